package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// InvoicePaymentStatus represents the settlement state of an invoice
type InvoicePaymentStatus string

const (
	InvoiceStatusPending   InvoicePaymentStatus = "PENDING"
	InvoiceStatusPart      InvoicePaymentStatus = "PART"
	InvoiceStatusPaid      InvoicePaymentStatus = "PAID"
	InvoiceStatusCancelled InvoicePaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvoicePaymentStatus
func (s InvoicePaymentStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPart, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoicePaymentStatus
func (s InvoicePaymentStatus) String() string {
	return string(s)
}

// InvoiceItem is one billed product line. Amount is Quantity * Rate, computed
// at construction and never recomputed afterwards.
type InvoiceItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	WarehouseName string          `gorm:"type:varchar(100);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Rate          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM
func (InvoiceItem) TableName() string {
	return "invoice_items"
}

// Invoice is the billing aggregate raised against exactly one parent: an
// approved sales order or an open loan request. Status only moves forward
// (PENDING -> PART -> PAID) except for the terminal CANCELLED state, reachable
// from any non-cancelled state.
type Invoice struct {
	shared.TenantAggregateRoot
	SerialNumber  string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoice_tenant_serial,priority:2"`
	CustomerID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	SalesPersonID uuid.UUID            `gorm:"type:uuid;not null"`
	SalesOrderID  *uuid.UUID           `gorm:"type:uuid;index"`
	LoanRequestID *uuid.UUID           `gorm:"type:uuid;index"`
	Items         []InvoiceItem        `gorm:"foreignKey:InvoiceID"`
	TotalPrice    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaymentStatus InvoicePaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	CancelComment string               `gorm:"type:text"`
	CancelledAt   *time.Time
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceLine is the caller-supplied input for one invoice line
type InvoiceLine struct {
	ProductID     uuid.UUID
	WarehouseName string
	Quantity      decimal.Decimal
	Rate          decimal.Decimal
}

// NewInvoice creates a pending invoice. Exactly one of salesOrderID and
// loanRequestID must be set.
func NewInvoice(
	tenantID uuid.UUID,
	serialNumber string,
	customerID, salesPersonID uuid.UUID,
	salesOrderID, loanRequestID *uuid.UUID,
	lines []InvoiceLine,
	totalPrice decimal.Decimal,
) (*Invoice, error) {
	if serialNumber == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Invoice serial number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if salesPersonID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SALES_PERSON", "Sales person ID cannot be empty")
	}
	if (salesOrderID == nil) == (loanRequestID == nil) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Exactly one of sales order and loan request must be supplied")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice requires at least one line item")
	}
	if totalPrice.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice total must be positive")
	}

	inv := &Invoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SerialNumber:        serialNumber,
		CustomerID:          customerID,
		SalesPersonID:       salesPersonID,
		SalesOrderID:        salesOrderID,
		LoanRequestID:       loanRequestID,
		Items:               make([]InvoiceItem, 0, len(lines)),
		TotalPrice:          totalPrice,
		PaymentStatus:       InvoiceStatusPending,
	}

	now := time.Now()
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_PRODUCT", "Line item product ID cannot be empty")
		}
		if line.WarehouseName == "" {
			return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Line item warehouse cannot be empty")
		}
		if line.Quantity.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Line item quantity must be positive")
		}
		if line.Rate.IsNegative() {
			return nil, shared.NewDomainError("INVALID_RATE", "Line item rate cannot be negative")
		}
		inv.Items = append(inv.Items, InvoiceItem{
			ID:            uuid.New(),
			InvoiceID:     inv.ID,
			ProductID:     line.ProductID,
			WarehouseName: line.WarehouseName,
			Quantity:      line.Quantity,
			Rate:          line.Rate,
			Amount:        line.Quantity.Mul(line.Rate),
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	return inv, nil
}

// MarkPart records a part-payment against the invoice
func (i *Invoice) MarkPart() error {
	if i.PaymentStatus == InvoiceStatusCancelled || i.PaymentStatus == InvoiceStatusPaid {
		return shared.NewDomainError("CONFLICT", "Invoice cannot accept payments in "+i.PaymentStatus.String()+" status")
	}
	i.PaymentStatus = InvoiceStatusPart
	i.UpdatedAt = time.Now()
	return nil
}

// MarkPaid records full settlement of the invoice
func (i *Invoice) MarkPaid() error {
	if i.PaymentStatus == InvoiceStatusCancelled || i.PaymentStatus == InvoiceStatusPaid {
		return shared.NewDomainError("CONFLICT", "Invoice cannot accept payments in "+i.PaymentStatus.String()+" status")
	}
	i.PaymentStatus = InvoiceStatusPaid
	i.UpdatedAt = time.Now()
	return nil
}

// RederiveSettlement resets the settlement status from the count of
// remaining active payment rows after one is voided: back to PENDING when
// none are left, PART otherwise. A settled status always has at least one
// active payment row behind it.
func (i *Invoice) RederiveSettlement(activePayments int) error {
	if i.PaymentStatus == InvoiceStatusCancelled {
		return shared.NewDomainError("CONFLICT", "Invoice is cancelled")
	}
	if activePayments == 0 {
		i.PaymentStatus = InvoiceStatusPending
	} else {
		i.PaymentStatus = InvoiceStatusPart
	}
	i.UpdatedAt = time.Now()
	return nil
}

// Cancel moves the invoice to the terminal CANCELLED state
func (i *Invoice) Cancel(comment string) error {
	if i.PaymentStatus == InvoiceStatusCancelled {
		return shared.NewDomainError("CONFLICT", "Invoice already cancelled")
	}
	now := time.Now()
	i.PaymentStatus = InvoiceStatusCancelled
	i.CancelComment = comment
	i.CancelledAt = &now
	i.UpdatedAt = now
	return nil
}

// WasSettled returns true if any payment has been applied (PART or PAID)
func (i *Invoice) WasSettled() bool {
	return i.PaymentStatus == InvoiceStatusPart || i.PaymentStatus == InvoiceStatusPaid
}

// IsCancelled returns true if the invoice is cancelled
func (i *Invoice) IsCancelled() bool {
	return i.PaymentStatus == InvoiceStatusCancelled
}

// ItemByProduct returns the invoice item for a product, or nil
func (i *Invoice) ItemByProduct(productID uuid.UUID) *InvoiceItem {
	for idx := range i.Items {
		if i.Items[idx].ProductID == productID {
			return &i.Items[idx]
		}
	}
	return nil
}
