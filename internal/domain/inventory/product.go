package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// Product is a sellable item. TotalStock is a cached sum over the product's
// stock batches of (OpeningStock + CommittedQuantity); it is recomputed from
// the batch rows whenever any batch changes, never hand-patched.
type Product struct {
	shared.TenantAggregateRoot
	Code       string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_product_tenant_code,priority:2"`
	Name       string          `gorm:"type:varchar(200);not null"`
	TotalStock decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product with zero stock
func NewProduct(tenantID uuid.UUID, code, name string) (*Product, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || len(code) > 50 {
		return nil, shared.NewDomainError("INVALID_CODE", "Product code must be 1-50 characters")
	}
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name must be 1-200 characters")
	}
	return &Product{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                strings.ToUpper(code),
		Name:                name,
		TotalStock:          decimal.Zero,
	}, nil
}

// ApplyTotalStock overwrites the cached stock figure with a derived sum
func (p *Product) ApplyTotalStock(total decimal.Decimal) {
	p.TotalStock = total
	p.UpdatedAt = time.Now()
}
