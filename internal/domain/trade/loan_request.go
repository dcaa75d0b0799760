package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// LoanStatus represents the status of a loan request
type LoanStatus string

const (
	LoanStatusOpen   LoanStatus = "OPEN"
	LoanStatusClosed LoanStatus = "CLOSED"
)

// String returns the string representation of LoanStatus
func (s LoanStatus) String() string {
	return string(s)
}

// LoanItem is one product line on a loan request. BalanceQty is what the
// borrower still holds; QtyToBeReturned is what invoicing has not yet settled.
type LoanItem struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	LoanRequestID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	BalanceQty      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QtyToBeReturned decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name for GORM
func (LoanItem) TableName() string {
	return "loan_items"
}

// LoanRequest is goods handed out on credit, settled later by invoicing.
//
// NOTE: status flips to CLOSED on the first invoice raised against the loan
// even when some line quantities remain unsettled; the per-item
// QtyToBeReturned/BalanceQty bookkeeping stays accurate either way. Kept as-is
// pending product-owner confirmation.
type LoanRequest struct {
	shared.TenantAggregateRoot
	SerialNumber string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_loan_tenant_serial,priority:2"`
	CustomerID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status       LoanStatus `gorm:"type:varchar(20);not null;default:'OPEN'"`
	Items        []LoanItem `gorm:"foreignKey:LoanRequestID"`
	ClosedAt     *time.Time
}

// TableName returns the table name for GORM
func (LoanRequest) TableName() string {
	return "loan_requests"
}

// NewLoanRequest creates a new open loan request
func NewLoanRequest(tenantID uuid.UUID, serialNumber string, customerID uuid.UUID) (*LoanRequest, error) {
	if serialNumber == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Loan request serial number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	return &LoanRequest{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SerialNumber:        serialNumber,
		CustomerID:          customerID,
		Status:              LoanStatusOpen,
		Items:               make([]LoanItem, 0),
	}, nil
}

// AddItem adds a product line to an open loan
func (l *LoanRequest) AddItem(productID uuid.UUID, balanceQty decimal.Decimal) (*LoanItem, error) {
	if l.Status != LoanStatusOpen {
		return nil, shared.NewDomainError("CONFLICT", "Cannot add items to a closed loan")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if balanceQty.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	for _, item := range l.Items {
		if item.ProductID == productID {
			return nil, shared.NewDomainError("CONFLICT", "Product already exists on loan")
		}
	}

	now := time.Now()
	item := LoanItem{
		ID:              uuid.New(),
		LoanRequestID:   l.ID,
		ProductID:       productID,
		BalanceQty:      balanceQty,
		QtyToBeReturned: balanceQty,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	l.Items = append(l.Items, item)
	l.UpdatedAt = now
	return &l.Items[len(l.Items)-1], nil
}

// EnsureInvoiceable returns a Conflict error if the loan is already closed
func (l *LoanRequest) EnsureInvoiceable() error {
	if l.Status == LoanStatusClosed {
		return shared.NewDomainError("CONFLICT", "Loan request already closed")
	}
	return nil
}

// ApplyInvoicedQuantity settles quantity against the loan item for productID:
// QtyToBeReturned drops by the invoiced quantity and BalanceQty follows.
// Fails if the product was never part of the loan or the decrement would go
// negative (over-invoicing).
func (l *LoanRequest) ApplyInvoicedQuantity(productID uuid.UUID, quantity decimal.Decimal) error {
	for idx := range l.Items {
		if l.Items[idx].ProductID != productID {
			continue
		}
		remaining := l.Items[idx].QtyToBeReturned.Sub(quantity)
		if remaining.IsNegative() {
			return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf(
				"Invoiced quantity %s exceeds outstanding %s for product %s",
				quantity, l.Items[idx].QtyToBeReturned, productID))
		}
		l.Items[idx].QtyToBeReturned = remaining
		l.Items[idx].BalanceQty = remaining
		l.Items[idx].UpdatedAt = time.Now()
		l.UpdatedAt = l.Items[idx].UpdatedAt
		return nil
	}
	return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Product %s is not part of this loan", productID))
}

// Close transitions the loan to CLOSED
func (l *LoanRequest) Close() error {
	if l.Status == LoanStatusClosed {
		return shared.NewDomainError("CONFLICT", "Loan request already closed")
	}
	now := time.Now()
	l.Status = LoanStatusClosed
	l.ClosedAt = &now
	l.UpdatedAt = now
	return nil
}

// ItemByProduct returns the loan item for a product, or nil
func (l *LoanRequest) ItemByProduct(productID uuid.UUID) *LoanItem {
	for idx := range l.Items {
		if l.Items[idx].ProductID == productID {
			return &l.Items[idx]
		}
	}
	return nil
}
