package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchTotals is the derived per-product sum over batch rows
type BatchTotals struct {
	OpeningStock      decimal.Decimal
	CommittedQuantity decimal.Decimal
}

// Total returns the combined stock figure
func (t BatchTotals) Total() decimal.Decimal {
	return t.OpeningStock.Add(t.CommittedQuantity)
}

// StockRepository persists products and their batches. ForUpdate variants take
// row locks; the ledger always mutates batches inside the caller's active
// transaction.
type StockRepository interface {
	FindProductForTenant(ctx context.Context, tenantID, productID uuid.UUID) (*Product, error)
	FindProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*Product, error)
	SaveProduct(ctx context.Context, product *Product) error

	// FindBatchesForUpdate returns a product's batches in one warehouse
	// ordered oldest-first (FIFO), locked.
	FindBatchesForUpdate(ctx context.Context, tenantID, productID uuid.UUID, warehouseName string) ([]StockBatch, error)
	SaveBatch(ctx context.Context, batch *StockBatch) error

	// SumBatchTotals derives the product's opening/committed sums across all
	// its batches and warehouses.
	SumBatchTotals(ctx context.Context, tenantID, productID uuid.UUID) (BatchTotals, error)
}

// BatchLogRepository persists the request-to-settlement bridge rows
type BatchLogRepository interface {
	FindPendingBySalesOrder(ctx context.Context, tenantID, salesOrderID uuid.UUID) ([]BatchLog, error)
	FindPendingByLoanAndProduct(ctx context.Context, tenantID, loanRequestID, productID uuid.UUID) ([]BatchLog, error)
	// FindPendingForInvoice returns pending logs already attached to an
	// invoice, optionally narrowed to the invoice's parent request.
	FindPendingForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, salesOrderID, loanRequestID *uuid.UUID) ([]BatchLog, error)
	Save(ctx context.Context, log *BatchLog) error
	DeletePendingByInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) error
}
