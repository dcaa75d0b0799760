package partner

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// SalesPerson is the staff member credited with an invoice. The core only
// verifies existence; staff management lives upstream.
type SalesPerson struct {
	shared.TenantAggregateRoot
	Name  string `gorm:"type:varchar(200);not null"`
	Email string `gorm:"type:varchar(200);index"`
}

// TableName returns the table name for GORM
func (SalesPerson) TableName() string {
	return "sales_persons"
}

// NewSalesPerson creates a new sales person
func NewSalesPerson(tenantID uuid.UUID, name, email string) (*SalesPerson, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Sales person name must be 1-200 characters")
	}
	return &SalesPerson{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Email:               strings.TrimSpace(email),
	}, nil
}
