package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// PaymentMode identifies the funding source of a payment row
type PaymentMode string

const (
	PaymentModeCash     PaymentMode = "CASH"
	PaymentModeTransfer PaymentMode = "TRANSFER"
	// PaymentModeBalance draws down existing customer credit. Rows in this
	// mode are excluded from customer payment totals so the credit is not
	// counted twice.
	PaymentModeBalance PaymentMode = "BALANCE"
)

// IsValid checks if the mode is a valid PaymentMode
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeTransfer, PaymentModeBalance:
		return true
	}
	return false
}

// String returns the string representation of PaymentMode
func (m PaymentMode) String() string {
	return string(m)
}

// PaymentStatus represents the state of a payment row
type PaymentStatus string

const (
	PaymentStatusPart      PaymentStatus = "PART_PAYMENT"
	PaymentStatusFull      PaymentStatus = "FULL_PAYMENT"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Payment is one settlement row against an invoice. A single act of paying
// may produce two rows when customer credit covers part of the amount: one
// BALANCE row for the credit slice and one CASH or TRANSFER row for the rest.
type Payment struct {
	shared.TenantAggregateRoot
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	AmountPaid    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PaymentMode   PaymentMode     `gorm:"type:varchar(20);not null"`
	Status        PaymentStatus   `gorm:"type:varchar(20);not null"`
	CancelComment string          `gorm:"type:text"`
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a payment row against an invoice
func NewPayment(
	tenantID, invoiceID, customerID uuid.UUID,
	amount decimal.Decimal,
	mode PaymentMode,
	status PaymentStatus,
) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unknown payment mode: "+mode.String())
	}
	if status != PaymentStatusPart && status != PaymentStatusFull {
		return nil, shared.NewDomainError("INVALID_INPUT", "New payment must be PART_PAYMENT or FULL_PAYMENT")
	}

	return &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceID:           invoiceID,
		CustomerID:          customerID,
		AmountPaid:          amount,
		PaymentMode:         mode,
		Status:              status,
	}, nil
}

// Cancel moves the payment to the terminal CANCELLED state
func (p *Payment) Cancel(comment string) error {
	if p.Status == PaymentStatusCancelled {
		return shared.NewDomainError("CONFLICT", "Payment already cancelled")
	}
	now := time.Now()
	p.Status = PaymentStatusCancelled
	p.CancelComment = comment
	p.CancelledAt = &now
	p.UpdatedAt = now
	return nil
}

// IsCancelled returns true if the payment is cancelled
func (p *Payment) IsCancelled() bool {
	return p.Status == PaymentStatusCancelled
}

// CountsTowardPaymentTotal reports whether the row contributes to the
// customer's aggregated payment total. BALANCE rows never do.
func (p *Payment) CountsTowardPaymentTotal() bool {
	return !p.IsCancelled() && (p.PaymentMode == PaymentModeCash || p.PaymentMode == PaymentModeTransfer)
}
