package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/inventory"
)

// GormBatchLogRepository implements inventory.BatchLogRepository using GORM
type GormBatchLogRepository struct {
	db *gorm.DB
}

// NewGormBatchLogRepository creates a new GormBatchLogRepository
func NewGormBatchLogRepository(db *gorm.DB) *GormBatchLogRepository {
	return &GormBatchLogRepository{db: db}
}

// FindPendingBySalesOrder returns the pending logs raised for a sales order
func (r *GormBatchLogRepository) FindPendingBySalesOrder(ctx context.Context, tenantID, salesOrderID uuid.UUID) ([]inventory.BatchLog, error) {
	var logs []inventory.BatchLog
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND sales_order_id = ? AND status = ?",
			tenantID, salesOrderID, inventory.BatchLogStatusPending).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// FindPendingByLoanAndProduct returns the pending logs raised for one product
// of a loan request
func (r *GormBatchLogRepository) FindPendingByLoanAndProduct(ctx context.Context, tenantID, loanRequestID, productID uuid.UUID) ([]inventory.BatchLog, error) {
	var logs []inventory.BatchLog
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND loan_request_id = ? AND product_id = ? AND status = ?",
			tenantID, loanRequestID, productID, inventory.BatchLogStatusPending).
		Order("created_at ASC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// FindPendingForInvoice returns pending logs already attached to an invoice,
// optionally narrowed to the invoice's parent request
func (r *GormBatchLogRepository) FindPendingForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, salesOrderID, loanRequestID *uuid.UUID) ([]inventory.BatchLog, error) {
	query := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND invoice_id = ? AND status = ?",
			tenantID, invoiceID, inventory.BatchLogStatusPending)
	if salesOrderID != nil {
		query = query.Where("sales_order_id = ?", *salesOrderID)
	}
	if loanRequestID != nil {
		query = query.Where("loan_request_id = ?", *loanRequestID)
	}

	var logs []inventory.BatchLog
	if err := query.Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// Save creates or updates a batch log
func (r *GormBatchLogRepository) Save(ctx context.Context, log *inventory.BatchLog) error {
	return dbFromContext(ctx, r.db).Save(log).Error
}

// DeletePendingByInvoice removes the pending logs attached to an invoice.
// Completed logs stay; cancellation reopens their payments separately.
func (r *GormBatchLogRepository) DeletePendingByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	return dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND invoice_id = ? AND status = ?",
			tenantID, invoiceID, inventory.BatchLogStatusPending).
		Delete(&inventory.BatchLog{}).Error
}

// Ensure GormBatchLogRepository implements inventory.BatchLogRepository
var _ inventory.BatchLogRepository = (*GormBatchLogRepository)(nil)
