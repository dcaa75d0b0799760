package partner

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// Warehouse is a storage location. Stock batches reference warehouses by name
// (the human-entered key on fulfillment requests); sales transaction lines
// carry the resolved warehouse ID.
type Warehouse struct {
	shared.TenantAggregateRoot
	Name     string `gorm:"type:varchar(100);not null;uniqueIndex:idx_warehouse_tenant_name,priority:2"`
	Location string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a new warehouse
func NewWarehouse(tenantID uuid.UUID, name, location string) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 100 {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name must be 1-100 characters")
	}
	return &Warehouse{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Location:            strings.TrimSpace(location),
	}, nil
}
