package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// StockMovement is one product/warehouse/quantity triple to commit or restore
type StockMovement struct {
	ProductID     uuid.UUID
	WarehouseName string
	Quantity      decimal.Decimal
}

// BatchNumberFunc allocates the next machine-generated batch number for a
// tenant. Wired to the serial allocator's non-reserving sequence.
type BatchNumberFunc func(ctx context.Context, tenantID uuid.UUID) (string, error)

// LedgerService is the inventory ledger: it depletes and restores the
// committed-quantity pool across a product's stock batches in FIFO order and
// keeps the product's cached TotalStock equal to the sum over its batches.
// Every method expects to run inside the caller's active transaction.
type LedgerService struct {
	stockRepo StockRepository
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(stockRepo StockRepository) *LedgerService {
	return &LedgerService{stockRepo: stockRepo}
}

// Commit depletes the committed pool for each movement, walking batches
// oldest-first and subtracting min(batch committed, remaining) from each.
// Fails with InsufficientStock if the batches run out before the requested
// quantity is covered. Recomputes each product's TotalStock afterwards.
func (s *LedgerService) Commit(ctx context.Context, tenantID uuid.UUID, movements []StockMovement) error {
	for _, m := range movements {
		if m.Quantity.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
		}

		batches, err := s.stockRepo.FindBatchesForUpdate(ctx, tenantID, m.ProductID, m.WarehouseName)
		if err != nil {
			return err
		}

		remaining := m.Quantity
		for idx := range batches {
			if remaining.IsZero() {
				break
			}
			taken := batches[idx].DepleteCommitted(remaining)
			if taken.IsZero() {
				continue
			}
			remaining = remaining.Sub(taken)
			if err := s.stockRepo.SaveBatch(ctx, &batches[idx]); err != nil {
				return err
			}
		}
		if remaining.IsPositive() {
			return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf(
				"Insufficient committed stock for product %s in warehouse %s: short by %s",
				m.ProductID, m.WarehouseName, remaining))
		}

		if err := s.recomputeTotalStock(ctx, tenantID, m.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// Restore puts quantities back into the opening pool. The oldest batch in the
// movement's warehouse receives the quantity; if the warehouse has no batch
// for the product one is auto-vivified with a freshly allocated batch number.
func (s *LedgerService) Restore(ctx context.Context, tenantID uuid.UUID, movements []StockMovement, nextBatchNumber BatchNumberFunc) error {
	for _, m := range movements {
		if m.Quantity.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
		}

		batches, err := s.stockRepo.FindBatchesForUpdate(ctx, tenantID, m.ProductID, m.WarehouseName)
		if err != nil {
			return err
		}

		if len(batches) > 0 {
			batches[0].RestoreOpening(m.Quantity)
			if err := s.stockRepo.SaveBatch(ctx, &batches[0]); err != nil {
				return err
			}
		} else {
			number, err := nextBatchNumber(ctx, tenantID)
			if err != nil {
				return err
			}
			batch, err := NewStockBatch(tenantID, m.ProductID, m.WarehouseName, number, m.Quantity, decimal.Zero)
			if err != nil {
				return err
			}
			if err := s.stockRepo.SaveBatch(ctx, batch); err != nil {
				return err
			}
		}

		if err := s.recomputeTotalStock(ctx, tenantID, m.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects duplicate products within one call, unknown products, and
// quantities exceeding either the product's committed pool or its total
// stock. Runs before the engine transaction opens.
func (s *LedgerService) Validate(ctx context.Context, tenantID uuid.UUID, movements []StockMovement) error {
	seen := make(map[uuid.UUID]bool, len(movements))
	for _, m := range movements {
		if seen[m.ProductID] {
			return shared.NewDomainError("CONFLICT", fmt.Sprintf("Duplicate line item for product %s", m.ProductID))
		}
		seen[m.ProductID] = true

		if m.Quantity.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_QUANTITY", "Line item quantity must be positive")
		}

		product, err := s.stockRepo.FindProductForTenant(ctx, tenantID, m.ProductID)
		if err != nil {
			return err
		}

		totals, err := s.stockRepo.SumBatchTotals(ctx, tenantID, m.ProductID)
		if err != nil {
			return err
		}
		if m.Quantity.GreaterThan(totals.CommittedQuantity) {
			return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf(
				"Quantity %s exceeds committed stock %s for product %s",
				m.Quantity, totals.CommittedQuantity, product.Code))
		}
		if m.Quantity.GreaterThan(product.TotalStock) {
			return shared.NewDomainError("INSUFFICIENT_STOCK", fmt.Sprintf(
				"Quantity %s exceeds total stock %s for product %s",
				m.Quantity, product.TotalStock, product.Code))
		}
	}
	return nil
}

// recomputeTotalStock re-derives the cached figure from the batch rows
func (s *LedgerService) recomputeTotalStock(ctx context.Context, tenantID, productID uuid.UUID) error {
	product, err := s.stockRepo.FindProductForUpdate(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	totals, err := s.stockRepo.SumBatchTotals(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	product.ApplyTotalStock(totals.Total())
	return s.stockRepo.SaveProduct(ctx, product)
}
