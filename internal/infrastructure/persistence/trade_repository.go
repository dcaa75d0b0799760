package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/domain/trade"
)

// GormSalesOrderRepository implements trade.SalesOrderRepository using GORM
type GormSalesOrderRepository struct {
	db *gorm.DB
}

// NewGormSalesOrderRepository creates a new GormSalesOrderRepository
func NewGormSalesOrderRepository(db *gorm.DB) *GormSalesOrderRepository {
	return &GormSalesOrderRepository{db: db}
}

// FindByIDForTenant finds a sales order by ID within a tenant
func (r *GormSalesOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesOrder, error) {
	var order trade.SalesOrder
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate loads the order with a row lock so the status check and
// the COMPLETED flip happen against the same committed state
func (r *GormSalesOrderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.SalesOrder, error) {
	var order trade.SalesOrder
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Save creates or updates a sales order
func (r *GormSalesOrderRepository) Save(ctx context.Context, order *trade.SalesOrder) error {
	return dbFromContext(ctx, r.db).Save(order).Error
}

// Ensure GormSalesOrderRepository implements trade.SalesOrderRepository
var _ trade.SalesOrderRepository = (*GormSalesOrderRepository)(nil)

// GormLoanRequestRepository implements trade.LoanRequestRepository using GORM
type GormLoanRequestRepository struct {
	db *gorm.DB
}

// NewGormLoanRequestRepository creates a new GormLoanRequestRepository
func NewGormLoanRequestRepository(db *gorm.DB) *GormLoanRequestRepository {
	return &GormLoanRequestRepository{db: db}
}

// FindByIDForTenant finds a loan request with its items within a tenant
func (r *GormLoanRequestRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*trade.LoanRequest, error) {
	var loan trade.LoanRequest
	if err := dbFromContext(ctx, r.db).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// FindByIDForUpdate loads the loan request and its items with a row lock on
// the loan row. Item rows ride on the loan lock; nothing mutates items
// without first locking their loan.
func (r *GormLoanRequestRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.LoanRequest, error) {
	var loan trade.LoanRequest
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// Save creates or updates a loan request and its items
func (r *GormLoanRequestRepository) Save(ctx context.Context, loan *trade.LoanRequest) error {
	return dbFromContext(ctx, r.db).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(loan).Error
}

// Ensure GormLoanRequestRepository implements trade.LoanRequestRepository
var _ trade.LoanRequestRepository = (*GormLoanRequestRepository)(nil)
