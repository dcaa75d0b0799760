package trade

import (
	"context"

	"github.com/google/uuid"
)

// SalesOrderRepository persists sales orders
type SalesOrderRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrder, error)
	// FindByIDForUpdate loads the order with a row lock so the status check and
	// the COMPLETED flip happen against the same committed state.
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*SalesOrder, error)
	Save(ctx context.Context, order *SalesOrder) error
}

// LoanRequestRepository persists loan requests with their items
type LoanRequestRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*LoanRequest, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*LoanRequest, error)
	Save(ctx context.Context, loan *LoanRequest) error
}
