package partner

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer is the aggregate root for a buying party. Balance,
// TotalInvoiceAmount and TotalPaymentAmount are a denormalized cache owned
// exclusively by the balance aggregator: they are always recomputed from the
// invoice and payment tables, never patched incrementally.
type Customer struct {
	shared.TenantAggregateRoot
	Code               string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_customer_tenant_code,priority:2"`
	Name               string          `gorm:"type:varchar(200);not null"`
	Phone              string          `gorm:"type:varchar(50);index"`
	Email              string          `gorm:"type:varchar(200)"`
	Status             CustomerStatus  `gorm:"type:varchar(20);not null;default:'active'"`
	Balance            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalInvoiceAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalPaymentAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Customer) TableName() string {
	return "customers"
}

// NewCustomer creates a new customer with required fields
func NewCustomer(tenantID uuid.UUID, code, name string) (*Customer, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Customer code must be 1-50 characters")
	}
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Customer name must be 1-200 characters")
	}

	return &Customer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(code),
		Name:                name,
		Status:              CustomerStatusActive,
		Balance:             decimal.Zero,
		TotalInvoiceAmount:  decimal.Zero,
		TotalPaymentAmount:  decimal.Zero,
	}, nil
}

// ApplyAggregates overwrites the cached totals with freshly derived sums.
// Balance is always payments minus invoices; the three fields move together.
func (c *Customer) ApplyAggregates(totalInvoiceAmount, totalPaymentAmount decimal.Decimal) {
	c.TotalInvoiceAmount = totalInvoiceAmount
	c.TotalPaymentAmount = totalPaymentAmount
	c.Balance = totalPaymentAmount.Sub(totalInvoiceAmount)
	c.UpdatedAt = time.Now()
}

// HasCredit returns true if the customer has positive balance to draw from
func (c *Customer) HasCredit() bool {
	return c.Balance.GreaterThan(decimal.Zero)
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}
