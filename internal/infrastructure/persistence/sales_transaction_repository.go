package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/shared"
)

// GormSalesTransactionRepository implements billing.SalesTransactionRepository using GORM
type GormSalesTransactionRepository struct {
	db *gorm.DB
}

// NewGormSalesTransactionRepository creates a new GormSalesTransactionRepository
func NewGormSalesTransactionRepository(db *gorm.DB) *GormSalesTransactionRepository {
	return &GormSalesTransactionRepository{db: db}
}

// FindByKey finds the reporting line for an (invoice, product, warehouse) key
func (r *GormSalesTransactionRepository) FindByKey(ctx context.Context, tenantID, invoiceID, productID, warehouseID uuid.UUID) (*billing.SalesTransactionLine, error) {
	var line billing.SalesTransactionLine
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND invoice_id = ? AND product_id = ? AND warehouse_id = ?",
			tenantID, invoiceID, productID, warehouseID).
		First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &line, nil
}

// Save creates or updates a reporting line
func (r *GormSalesTransactionRepository) Save(ctx context.Context, line *billing.SalesTransactionLine) error {
	return dbFromContext(ctx, r.db).Save(line).Error
}

// DeleteByPayment removes all reporting lines referencing a payment
func (r *GormSalesTransactionRepository) DeleteByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error {
	return dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND payment_id = ?", tenantID, paymentID).
		Delete(&billing.SalesTransactionLine{}).Error
}

// Ensure GormSalesTransactionRepository implements billing.SalesTransactionRepository
var _ billing.SalesTransactionRepository = (*GormSalesTransactionRepository)(nil)
