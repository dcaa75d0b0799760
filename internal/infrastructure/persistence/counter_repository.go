package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/serial"
	"github.com/tradeledger/backend/internal/domain/shared"
)

// GormCounterRepository implements serial.CounterRepository using GORM
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new GormCounterRepository
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// FindForUpdate returns the counter for a key, locking the row
func (r *GormCounterRepository) FindForUpdate(ctx context.Context, tenantID uuid.UUID, module serial.Module, prefix string) (*serial.Counter, error) {
	var counter serial.Counter
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Where("tenant_id = ? AND module = ? AND prefix = ?", tenantID, module, prefix).
		First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &counter, nil
}

// FindReservedByNumberForUpdate locates a reserved counter matching a parsed
// serial across modules, locking the row
func (r *GormCounterRepository) FindReservedByNumberForUpdate(ctx context.Context, tenantID uuid.UUID, prefix string, number int64) (*serial.Counter, error) {
	var counter serial.Counter
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Where("tenant_id = ? AND prefix = ? AND current_number = ? AND is_reserved = ?", tenantID, prefix, number, true).
		First(&counter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &counter, nil
}

// Save creates or updates a counter row
func (r *GormCounterRepository) Save(ctx context.Context, counter *serial.Counter) error {
	return dbFromContext(ctx, r.db).Save(counter).Error
}

// Ensure GormCounterRepository implements serial.CounterRepository
var _ serial.CounterRepository = (*GormCounterRepository)(nil)
