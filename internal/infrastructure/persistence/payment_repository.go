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

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByIDForTenant finds a payment by ID within a tenant
func (r *GormPaymentRepository) FindByIDForTenant(ctx context.Context, tenantID, paymentID uuid.UUID) (*billing.Payment, error) {
	var payment billing.Payment
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, paymentID).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindByIDForUpdate loads the payment with a row lock so the cancel flip
// serializes with concurrent writers
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, tenantID, paymentID uuid.UUID) (*billing.Payment, error) {
	var payment billing.Payment
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Where("tenant_id = ? AND id = ?", tenantID, paymentID).
		First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindActiveByInvoice returns the invoice's non-cancelled payment rows,
// oldest first
func (r *GormPaymentRepository) FindActiveByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*billing.Payment, error) {
	var payments []*billing.Payment
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND invoice_id = ? AND status <> ?",
			tenantID, invoiceID, billing.PaymentStatusCancelled).
		Order("created_at ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	return dbFromContext(ctx, r.db).Save(payment).Error
}

// SumActiveSettlementByCustomer returns the sum of AmountPaid over the
// customer's non-cancelled CASH and TRANSFER payments. BALANCE rows only move
// existing credit, so they are excluded.
func (r *GormPaymentRepository) SumActiveSettlementByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := dbFromContext(ctx, r.db).
		Model(&billing.Payment{}).
		Select("SUM(amount_paid)").
		Where("tenant_id = ? AND customer_id = ? AND status <> ? AND payment_mode IN ?",
			tenantID, customerID, billing.PaymentStatusCancelled,
			[]billing.PaymentMode{billing.PaymentModeCash, billing.PaymentModeTransfer}).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Ensure GormPaymentRepository implements billing.PaymentRepository
var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
