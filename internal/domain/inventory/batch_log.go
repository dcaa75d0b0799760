package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// BatchLogStatus represents the settlement state of a batch log
type BatchLogStatus string

const (
	BatchLogStatusPending   BatchLogStatus = "PENDING"
	BatchLogStatusCompleted BatchLogStatus = "COMPLETED"
)

// BatchLog bridges a fulfillment request (sales order or loan) to the invoice
// and payment that eventually settle it. Rows are created when the request is
// raised, pick up the invoice ID when invoicing happens, and flip to COMPLETED
// with a payment ID when paid. All links are explicit foreign-key columns.
type BatchLog struct {
	shared.TenantAggregateRoot
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SalesOrderID  *uuid.UUID      `gorm:"type:uuid;index"`
	LoanRequestID *uuid.UUID      `gorm:"type:uuid;index"`
	InvoiceID     *uuid.UUID      `gorm:"type:uuid;index"`
	PaymentID     *uuid.UUID      `gorm:"type:uuid;index"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Status        BatchLogStatus  `gorm:"type:varchar(20);not null;default:'PENDING'"`
}

// TableName returns the table name for GORM
func (BatchLog) TableName() string {
	return "batch_logs"
}

// NewSalesOrderBatchLog creates a pending batch log tied to a sales order
func NewSalesOrderBatchLog(tenantID, productID, salesOrderID uuid.UUID, quantity, sellingPrice decimal.Decimal) *BatchLog {
	return &BatchLog{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		SalesOrderID:        &salesOrderID,
		Quantity:            quantity,
		SellingPrice:        sellingPrice,
		Status:              BatchLogStatusPending,
	}
}

// NewLoanBatchLog creates a pending batch log tied to a loan request
func NewLoanBatchLog(tenantID, productID, loanRequestID uuid.UUID, quantity, sellingPrice decimal.Decimal) *BatchLog {
	return &BatchLog{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		LoanRequestID:       &loanRequestID,
		Quantity:            quantity,
		SellingPrice:        sellingPrice,
		Status:              BatchLogStatusPending,
	}
}

// AttachInvoice links the log to the invoice that settles its request
func (b *BatchLog) AttachInvoice(invoiceID uuid.UUID) {
	b.InvoiceID = &invoiceID
	b.UpdatedAt = time.Now()
}

// SetInvoicedLine overwrites quantity and selling price from the invoice line
// (loan path: the loan's pending logs carry the loaned quantities until the
// invoice fixes the settled ones).
func (b *BatchLog) SetInvoicedLine(invoiceID uuid.UUID, quantity, sellingPrice decimal.Decimal) {
	b.InvoiceID = &invoiceID
	b.Quantity = quantity
	b.SellingPrice = sellingPrice
	b.UpdatedAt = time.Now()
}

// Complete flips the log to COMPLETED, recording the settling payment
func (b *BatchLog) Complete(paymentID uuid.UUID) error {
	if b.Status == BatchLogStatusCompleted {
		return shared.NewDomainError("CONFLICT", "Batch log already completed")
	}
	b.PaymentID = &paymentID
	b.Status = BatchLogStatusCompleted
	b.UpdatedAt = time.Now()
	return nil
}

// IsPending returns true while the log awaits settlement
func (b *BatchLog) IsPending() bool {
	return b.Status == BatchLogStatusPending
}
