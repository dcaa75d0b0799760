package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRepository manages invoice persistence
type InvoiceRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, invoiceID uuid.UUID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, tenantID, invoiceID uuid.UUID) (*Invoice, error)
	FindBySerialForTenant(ctx context.Context, tenantID uuid.UUID, serialNumber string) (*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SumActiveTotalByCustomer returns the sum of TotalPrice over the
	// customer's non-cancelled invoices.
	SumActiveTotalByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error)
}

// PaymentRepository manages payment persistence
type PaymentRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, paymentID uuid.UUID) (*Payment, error)
	FindByIDForUpdate(ctx context.Context, tenantID, paymentID uuid.UUID) (*Payment, error)
	FindActiveByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	// SumActiveSettlementByCustomer returns the sum of AmountPaid over the
	// customer's non-cancelled CASH and TRANSFER payments. BALANCE rows are
	// excluded.
	SumActiveSettlementByCustomer(ctx context.Context, tenantID, customerID uuid.UUID) (decimal.Decimal, error)
}

// SalesTransactionRepository manages reporting line persistence
type SalesTransactionRepository interface {
	FindByKey(ctx context.Context, tenantID, invoiceID, productID, warehouseID uuid.UUID) (*SalesTransactionLine, error)
	Save(ctx context.Context, line *SalesTransactionLine) error
	DeleteByPayment(ctx context.Context, tenantID, paymentID uuid.UUID) error
}
