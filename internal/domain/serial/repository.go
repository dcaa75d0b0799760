package serial

import (
	"context"

	"github.com/google/uuid"
)

// CounterRepository persists serial counters. Implementations must scope every
// query by tenant ID. FindForUpdate variants take a row lock so concurrent
// allocations for the same key serialize inside the active transaction.
type CounterRepository interface {
	// FindForUpdate returns the counter for a key, locking the row. Returns
	// shared.ErrNotFound if no counter exists yet.
	FindForUpdate(ctx context.Context, tenantID uuid.UUID, module Module, prefix string) (*Counter, error)
	// FindReservedByNumberForUpdate locates a reserved counter matching a
	// parsed serial (prefix + number) across modules, locking the row.
	FindReservedByNumberForUpdate(ctx context.Context, tenantID uuid.UUID, prefix string, number int64) (*Counter, error)
	// Save creates or updates a counter row.
	Save(ctx context.Context, counter *Counter) error
}
