package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/shared"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByIDForTenant finds an invoice with its items within a tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := dbFromContext(ctx, r.db).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, invoiceID).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForUpdate loads the invoice and its items with a row lock on the
// invoice row so status transitions serialize.
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, invoiceID).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// FindBySerialForTenant finds an invoice by its serial number within a tenant
func (r *GormInvoiceRepository) FindBySerialForTenant(ctx context.Context, tenantID uuid.UUID, serialNumber string) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := dbFromContext(ctx, r.db).
		Preload("Items").
		Where("tenant_id = ? AND serial_number = ?", tenantID, serialNumber).
		First(&invoice).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// Save creates or updates an invoice and its items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return dbFromContext(ctx, r.db).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(invoice).Error
}

// SumActiveTotalByCustomer returns the sum of TotalPrice over the customer's
// non-cancelled invoices
func (r *GormInvoiceRepository) SumActiveTotalByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := dbFromContext(ctx, r.db).
		Model(&billing.Invoice{}).
		Select("SUM(total_price)").
		Where("tenant_id = ? AND customer_id = ? AND payment_status <> ?",
			tenantID, customerID, billing.InvoiceStatusCancelled).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Ensure GormInvoiceRepository implements billing.InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
