package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/domain/trade"
)

func TestGormSalesOrderRepository(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("status transition persists", func(t *testing.T) {
		repo := NewGormSalesOrderRepository(setupTestDB(t))

		order, err := trade.NewSalesOrder(tenantID, "SO-0000001", uuid.New())
		require.NoError(t, err)
		require.NoError(t, order.Approve())
		require.NoError(t, repo.Save(ctx, order))

		locked, err := repo.FindByIDForUpdate(ctx, tenantID, order.ID)
		require.NoError(t, err)
		require.NoError(t, locked.Complete())
		require.NoError(t, repo.Save(ctx, locked))

		found, err := repo.FindByIDForTenant(ctx, tenantID, order.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusCompleted, found.Status)
		assert.NotNil(t, found.CompletedAt)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		repo := NewGormSalesOrderRepository(setupTestDB(t))

		order, err := trade.NewSalesOrder(tenantID, "SO-0000002", uuid.New())
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, order))

		_, err = repo.FindByIDForTenant(ctx, uuid.New(), order.ID)
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormLoanRequestRepository(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("items ride along with the loan", func(t *testing.T) {
		repo := NewGormLoanRequestRepository(setupTestDB(t))
		productID := uuid.New()

		loan, err := trade.NewLoanRequest(tenantID, "LOAN-0000001", uuid.New())
		require.NoError(t, err)
		_, err = loan.AddItem(productID, decimal.NewFromInt(8))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, loan))

		found, err := repo.FindByIDForTenant(ctx, tenantID, loan.ID)
		require.NoError(t, err)
		require.Len(t, found.Items, 1)
		assert.True(t, found.Items[0].BalanceQty.Equal(decimal.NewFromInt(8)))
	})

	t.Run("item mutation persists through save", func(t *testing.T) {
		repo := NewGormLoanRequestRepository(setupTestDB(t))
		productID := uuid.New()

		loan, err := trade.NewLoanRequest(tenantID, "LOAN-0000002", uuid.New())
		require.NoError(t, err)
		_, err = loan.AddItem(productID, decimal.NewFromInt(8))
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, loan))

		locked, err := repo.FindByIDForUpdate(ctx, tenantID, loan.ID)
		require.NoError(t, err)
		require.NoError(t, locked.ApplyInvoicedQuantity(productID, decimal.NewFromInt(5)))
		require.NoError(t, repo.Save(ctx, locked))

		found, err := repo.FindByIDForTenant(ctx, tenantID, loan.ID)
		require.NoError(t, err)
		item := found.ItemByProduct(productID)
		require.NotNil(t, item)
		assert.True(t, item.QtyToBeReturned.Equal(decimal.NewFromInt(3)), "got %s", item.QtyToBeReturned)
	})

	t.Run("missing loan returns not found", func(t *testing.T) {
		repo := NewGormLoanRequestRepository(setupTestDB(t))

		_, err := repo.FindByIDForUpdate(ctx, tenantID, uuid.New())
		require.ErrorIs(t, err, shared.ErrNotFound)
	})
}
