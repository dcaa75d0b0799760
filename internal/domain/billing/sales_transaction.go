package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// SalesTransactionLine is the reporting row projected when a payment lands.
// Lines are keyed by (invoice, product, warehouse): a repeat payment against
// the same invoice updates the existing line in place instead of inserting a
// duplicate.
type SalesTransactionLine struct {
	shared.TenantAggregateRoot
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_txn_line_key,priority:2"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_txn_line_key,priority:3"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_txn_line_key,priority:4"`
	PaymentID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (SalesTransactionLine) TableName() string {
	return "sales_transaction_lines"
}

// NewSalesTransactionLine creates a reporting line for an invoice item
func NewSalesTransactionLine(
	tenantID, invoiceID, paymentID, customerID, productID, warehouseID uuid.UUID,
	quantity, rate decimal.Decimal,
) (*SalesTransactionLine, error) {
	if invoiceID == uuid.Nil || paymentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction line requires invoice and payment")
	}
	if productID == uuid.Nil || warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Transaction line requires product and warehouse")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transaction line quantity must be positive")
	}

	return &SalesTransactionLine{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceID:           invoiceID,
		ProductID:           productID,
		WarehouseID:         warehouseID,
		PaymentID:           paymentID,
		CustomerID:          customerID,
		Quantity:            quantity,
		Rate:                rate,
		Amount:              quantity.Mul(rate),
	}, nil
}

// Refresh re-points the line at the latest payment and recomputes the amount
func (l *SalesTransactionLine) Refresh(paymentID uuid.UUID, quantity, rate decimal.Decimal) {
	l.PaymentID = paymentID
	l.Quantity = quantity
	l.Rate = rate
	l.Amount = quantity.Mul(rate)
	l.UpdatedAt = time.Now()
}
