package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/inventory"
	"github.com/tradeledger/backend/internal/domain/shared"
)

// GormStockRepository implements inventory.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindProductForTenant finds a product by ID within a tenant
func (r *GormStockRepository) FindProductForTenant(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.Product, error) {
	var product inventory.Product
	if err := dbFromContext(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, productID).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FindProductForUpdate loads the product with a row lock so the cached
// TotalStock rewrite serializes with other ledger writers
func (r *GormStockRepository) FindProductForUpdate(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.Product, error) {
	var product inventory.Product
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Where("tenant_id = ? AND id = ?", tenantID, productID).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// SaveProduct creates or updates a product
func (r *GormStockRepository) SaveProduct(ctx context.Context, product *inventory.Product) error {
	return dbFromContext(ctx, r.db).Save(product).Error
}

// FindBatchesForUpdate returns a product's batches in one warehouse ordered
// oldest-first, locked for the duration of the transaction
func (r *GormStockRepository) FindBatchesForUpdate(ctx context.Context, tenantID, productID uuid.UUID, warehouseName string) ([]inventory.StockBatch, error) {
	var batches []inventory.StockBatch
	if err := lockForUpdate(dbFromContext(ctx, r.db)).
		Where("tenant_id = ? AND product_id = ? AND warehouse_name = ?",
			tenantID, productID, warehouseName).
		Order("created_at ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// SaveBatch creates or updates a stock batch
func (r *GormStockRepository) SaveBatch(ctx context.Context, batch *inventory.StockBatch) error {
	return dbFromContext(ctx, r.db).Save(batch).Error
}

// SumBatchTotals derives the product's opening/committed sums across all its
// batches and warehouses
func (r *GormStockRepository) SumBatchTotals(ctx context.Context, tenantID, productID uuid.UUID) (inventory.BatchTotals, error) {
	var row struct {
		OpeningStock      decimal.NullDecimal
		CommittedQuantity decimal.NullDecimal
	}
	if err := dbFromContext(ctx, r.db).
		Model(&inventory.StockBatch{}).
		Select("SUM(opening_stock) AS opening_stock, SUM(committed_quantity) AS committed_quantity").
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Scan(&row).Error; err != nil {
		return inventory.BatchTotals{}, err
	}

	totals := inventory.BatchTotals{
		OpeningStock:      decimal.Zero,
		CommittedQuantity: decimal.Zero,
	}
	if row.OpeningStock.Valid {
		totals.OpeningStock = row.OpeningStock.Decimal
	}
	if row.CommittedQuantity.Valid {
		totals.CommittedQuantity = row.CommittedQuantity.Decimal
	}
	return totals, nil
}

// Ensure GormStockRepository implements inventory.StockRepository
var _ inventory.StockRepository = (*GormStockRepository)(nil)
