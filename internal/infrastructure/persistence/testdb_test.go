package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/inventory"
	"github.com/tradeledger/backend/internal/domain/partner"
	"github.com/tradeledger/backend/internal/domain/serial"
	"github.com/tradeledger/backend/internal/domain/trade"
)

// setupTestDB opens an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&serial.Counter{},
		&partner.Customer{},
		&partner.SalesPerson{},
		&partner.Warehouse{},
		&trade.SalesOrder{},
		&trade.LoanRequest{},
		&trade.LoanItem{},
		&inventory.Product{},
		&inventory.StockBatch{},
		&inventory.BatchLog{},
		&billing.Invoice{},
		&billing.InvoiceItem{},
		&billing.Payment{},
		&billing.SalesTransactionLine{},
	))

	return db
}
