package persistence

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// txKey is the context key carrying the transaction-bound *gorm.DB
type txKey struct{}

// serializableTxTimeout bounds the serializable write paths, which fan out to
// one lookup per line item and can retry on serialization failures upstream.
const serializableTxTimeout = 30 * time.Second

// GormTxManager implements shared.TxManager on a GORM connection. The
// transaction handle travels in the context, so repositories used inside a
// transaction automatically issue their statements on it. A nested InTx call
// joins the ambient transaction instead of opening a second one.
type GormTxManager struct {
	db *gorm.DB
}

// NewGormTxManager creates a new transaction manager
func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

// InTx runs fn in a transaction with the store's default isolation.
// If the context already carries a transaction, fn joins it.
func (m *GormTxManager) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	})
}

// InSerializableTx runs fn in a serializable transaction with an extended
// timeout. If the context already carries a transaction, fn joins it; the
// isolation level of the ambient transaction is the caller's responsibility.
func (m *GormTxManager) InSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, serializableTxTimeout)
	defer cancel()

	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(withTx(ctx, tx))
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// Ensure GormTxManager implements shared.TxManager
var _ shared.TxManager = (*GormTxManager)(nil)

// withTx stashes the transaction handle in the context
func withTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// txFromContext extracts the transaction handle from the context, if any
func txFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// dbFromContext returns the ambient transaction handle when present, the base
// connection otherwise. Every repository method goes through this so it works
// identically inside and outside a transaction.
func dbFromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}

// lockForUpdate adds a FOR UPDATE clause on engines that support it. SQLite
// has no row locks and serializes writers on its own, so the clause is
// skipped there; the in-memory test databases rely on that.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
