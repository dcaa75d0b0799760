package partner

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository persists customers
type CustomerRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	// FindByIDForUpdate loads the customer with a row lock so the cached
	// aggregates can be rewritten inside the active transaction.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Customer, error)
	Save(ctx context.Context, customer *Customer) error
}

// SalesPersonRepository persists sales persons
type SalesPersonRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SalesPerson, error)
	Save(ctx context.Context, sp *SalesPerson) error
}

// WarehouseRepository persists warehouses
type WarehouseRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Warehouse, error)
	FindByNameForTenant(ctx context.Context, tenantID uuid.UUID, name string) (*Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}
