package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/shared"
)

func buildInvoice(t *testing.T, tenantID uuid.UUID, serialNumber string, total int64) *billing.Invoice {
	t.Helper()
	salesOrderID := uuid.New()
	invoice, err := billing.NewInvoice(
		tenantID,
		serialNumber,
		uuid.New(),
		uuid.New(),
		&salesOrderID,
		nil,
		[]billing.InvoiceLine{{
			ProductID:     uuid.New(),
			WarehouseName: "Lagos",
			Quantity:      decimal.NewFromInt(total / 100),
			Rate:          decimal.NewFromInt(100),
		}},
		decimal.NewFromInt(total),
	)
	require.NoError(t, err)
	return invoice
}

func TestGormInvoiceRepository(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("save and find preloads items", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormInvoiceRepository(db)
		invoice := buildInvoice(t, tenantID, "INV-0000001", 1200)
		require.NoError(t, repo.Save(ctx, invoice))

		found, err := repo.FindByIDForTenant(ctx, tenantID, invoice.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.True(t, found.TotalPrice.Equal(decimal.NewFromInt(1200)))
		assert.Equal(t, billing.InvoiceStatusPending, found.PaymentStatus)
	})

	t.Run("find by serial", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormInvoiceRepository(db)
		invoice := buildInvoice(t, tenantID, "INV-0000002", 500)
		require.NoError(t, repo.Save(ctx, invoice))

		found, err := repo.FindBySerialForTenant(ctx, tenantID, "INV-0000002")
		require.NoError(t, err)
		assert.Equal(t, invoice.ID, found.ID)

		_, err = repo.FindBySerialForTenant(ctx, tenantID, "INV-9999999")
		require.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("status update persists", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormInvoiceRepository(db)
		invoice := buildInvoice(t, tenantID, "INV-0000003", 500)
		require.NoError(t, repo.Save(ctx, invoice))

		locked, err := repo.FindByIDForUpdate(ctx, tenantID, invoice.ID)
		require.NoError(t, err)
		require.NoError(t, locked.MarkPaid())
		require.NoError(t, repo.Save(ctx, locked))

		found, err := repo.FindByIDForTenant(ctx, tenantID, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.InvoiceStatusPaid, found.PaymentStatus)
	})

	t.Run("sum of active totals skips cancelled invoices", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormInvoiceRepository(db)
		customerID := uuid.New()

		first := buildInvoice(t, tenantID, "INV-0000004", 1000)
		first.CustomerID = customerID
		require.NoError(t, repo.Save(ctx, first))

		second := buildInvoice(t, tenantID, "INV-0000005", 600)
		second.CustomerID = customerID
		require.NoError(t, second.Cancel("voided"))
		require.NoError(t, repo.Save(ctx, second))

		total, err := repo.SumActiveTotalByCustomer(ctx, tenantID, customerID)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(1000)), "got %s", total)
	})

	t.Run("sum with no invoices is zero", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormInvoiceRepository(db)

		total, err := repo.SumActiveTotalByCustomer(ctx, tenantID, uuid.New())
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})
}

func TestGormPaymentRepository(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	newPayment := func(t *testing.T, invoiceID, customerID uuid.UUID, amount int64, mode billing.PaymentMode) *billing.Payment {
		t.Helper()
		payment, err := billing.NewPayment(tenantID, invoiceID, customerID,
			decimal.NewFromInt(amount), mode, billing.PaymentStatusPart)
		require.NoError(t, err)
		return payment
	}

	t.Run("save and find round trips", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPaymentRepository(db)
		payment := newPayment(t, uuid.New(), uuid.New(), 300, billing.PaymentModeCash)
		require.NoError(t, repo.Save(ctx, payment))

		found, err := repo.FindByIDForTenant(ctx, tenantID, payment.ID)
		require.NoError(t, err)
		assert.True(t, found.AmountPaid.Equal(decimal.NewFromInt(300)))
		assert.Equal(t, billing.PaymentModeCash, found.PaymentMode)
	})

	t.Run("active by invoice excludes cancelled rows", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPaymentRepository(db)
		invoiceID := uuid.New()
		customerID := uuid.New()

		live := newPayment(t, invoiceID, customerID, 300, billing.PaymentModeCash)
		require.NoError(t, repo.Save(ctx, live))

		cancelled := newPayment(t, invoiceID, customerID, 200, billing.PaymentModeTransfer)
		require.NoError(t, cancelled.Cancel("voided"))
		require.NoError(t, repo.Save(ctx, cancelled))

		active, err := repo.FindActiveByInvoice(ctx, tenantID, invoiceID)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, live.ID, active[0].ID)
	})

	t.Run("settlement sum excludes balance rows and cancelled rows", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormPaymentRepository(db)
		customerID := uuid.New()

		cash := newPayment(t, uuid.New(), customerID, 600, billing.PaymentModeCash)
		require.NoError(t, repo.Save(ctx, cash))

		transfer := newPayment(t, uuid.New(), customerID, 150, billing.PaymentModeTransfer)
		require.NoError(t, repo.Save(ctx, transfer))

		balance := newPayment(t, uuid.New(), customerID, 400, billing.PaymentModeBalance)
		require.NoError(t, repo.Save(ctx, balance))

		void := newPayment(t, uuid.New(), customerID, 999, billing.PaymentModeCash)
		require.NoError(t, void.Cancel("voided"))
		require.NoError(t, repo.Save(ctx, void))

		total, err := repo.SumActiveSettlementByCustomer(ctx, tenantID, customerID)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.NewFromInt(750)), "got %s", total)
	})
}

func TestGormSalesTransactionRepository(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("find by key and refresh in place", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormSalesTransactionRepository(db)
		invoiceID, productID, warehouseID := uuid.New(), uuid.New(), uuid.New()

		line, err := billing.NewSalesTransactionLine(
			tenantID, invoiceID, uuid.New(), uuid.New(), productID, warehouseID,
			decimal.NewFromInt(5), decimal.NewFromInt(100))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, line))

		found, err := repo.FindByKey(ctx, tenantID, invoiceID, productID, warehouseID)
		require.NoError(t, err)
		assert.True(t, found.Amount.Equal(decimal.NewFromInt(500)))

		laterPayment := uuid.New()
		found.Refresh(laterPayment, decimal.NewFromInt(5), decimal.NewFromInt(120))
		require.NoError(t, repo.Save(ctx, found))

		again, err := repo.FindByKey(ctx, tenantID, invoiceID, productID, warehouseID)
		require.NoError(t, err)
		assert.Equal(t, laterPayment, again.PaymentID)
		assert.True(t, again.Amount.Equal(decimal.NewFromInt(600)))
	})

	t.Run("delete by payment removes only that payment's lines", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormSalesTransactionRepository(db)
		paymentID := uuid.New()
		keptInvoice, keptProduct, keptWarehouse := uuid.New(), uuid.New(), uuid.New()

		doomed, err := billing.NewSalesTransactionLine(
			tenantID, uuid.New(), paymentID, uuid.New(), uuid.New(), uuid.New(),
			decimal.NewFromInt(2), decimal.NewFromInt(50))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, doomed))

		kept, err := billing.NewSalesTransactionLine(
			tenantID, keptInvoice, uuid.New(), uuid.New(), keptProduct, keptWarehouse,
			decimal.NewFromInt(3), decimal.NewFromInt(50))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, kept))

		require.NoError(t, repo.DeleteByPayment(ctx, tenantID, paymentID))

		_, err = repo.FindByKey(ctx, tenantID, doomed.InvoiceID, doomed.ProductID, doomed.WarehouseID)
		require.ErrorIs(t, err, shared.ErrNotFound)

		_, err = repo.FindByKey(ctx, tenantID, keptInvoice, keptProduct, keptWarehouse)
		require.NoError(t, err)
	})
}
