package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// StockBatch is one lot of a product's stock in one warehouse.
// CommittedQuantity is stock promised to approved fulfillment requests but not
// yet invoiced away; OpeningStock is unpromised stock. Both stay >= 0. Batches
// deplete oldest-first by CreatedAt.
type StockBatch struct {
	shared.TenantAggregateRoot
	ProductID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_fifo,priority:2"`
	WarehouseName     string          `gorm:"type:varchar(100);not null;index:idx_batch_fifo,priority:3"`
	BatchNumber       string          `gorm:"type:varchar(50);not null"`
	OpeningStock      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CommittedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (StockBatch) TableName() string {
	return "stock_batches"
}

// NewStockBatch creates a new stock batch
func NewStockBatch(tenantID, productID uuid.UUID, warehouseName, batchNumber string, openingStock, committedQuantity decimal.Decimal) (*StockBatch, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if warehouseName == "" {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse name cannot be empty")
	}
	if batchNumber == "" {
		return nil, shared.NewDomainError("INVALID_BATCH_NUMBER", "Batch number cannot be empty")
	}
	if openingStock.IsNegative() || committedQuantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Batch quantities cannot be negative")
	}
	return &StockBatch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		WarehouseName:       warehouseName,
		BatchNumber:         batchNumber,
		OpeningStock:        openingStock,
		CommittedQuantity:   committedQuantity,
	}, nil
}

// DepleteCommitted subtracts up to quantity from the committed pool and
// returns the amount actually taken (min of the pool and the request).
func (b *StockBatch) DepleteCommitted(quantity decimal.Decimal) decimal.Decimal {
	taken := decimal.Min(b.CommittedQuantity, quantity)
	if taken.IsPositive() {
		b.CommittedQuantity = b.CommittedQuantity.Sub(taken)
		b.UpdatedAt = time.Now()
	}
	return taken
}

// RestoreOpening adds quantity back into the unpromised pool
func (b *StockBatch) RestoreOpening(quantity decimal.Decimal) {
	b.OpeningStock = b.OpeningStock.Add(quantity)
	b.UpdatedAt = time.Now()
}

// Total returns OpeningStock + CommittedQuantity for this batch
func (b *StockBatch) Total() decimal.Decimal {
	return b.OpeningStock.Add(b.CommittedQuantity)
}
