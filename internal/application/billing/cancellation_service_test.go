package billing

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbilling "github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/shared"
)

func payInFull(t *testing.T, f *fixture, invoice *InvoiceResult) []PaymentResult {
	t.Helper()
	results, err := f.paymentSvc.CreatePayment(context.Background(), CreatePaymentRequest{
		TenantID:      f.tenantID,
		InvoiceID:     invoice.ID,
		CustomerID:    invoice.CustomerID,
		AmountPaid:    invoice.TotalPrice,
		PaymentMode:   domainbilling.PaymentModeCash,
		PaymentStatus: domainbilling.PaymentStatusFull,
	})
	require.NoError(t, err)
	return results
}

func TestCancelInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("paid invoice returns stock and cancels its payments", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)
		payments := payInFull(t, f, invoice)

		var productID = invoice.Lines[0].ProductID
		totalsBefore, err := f.store.batchTotals(productID)
		require.NoError(t, err)

		require.NoError(t, f.cancellation.CancelInvoice(ctx, f.tenantID, invoice.ID, "customer returned goods"))

		saved := f.store.invoices[invoice.ID]
		assert.Equal(t, domainbilling.InvoiceStatusCancelled, saved.PaymentStatus)
		assert.Equal(t, "customer returned goods", saved.CancelComment)

		// the 10 invoiced units are back, in the opening pool
		totalsAfter, err := f.store.batchTotals(productID)
		require.NoError(t, err)
		assert.True(t, totalsAfter.Total().Equal(totalsBefore.Total().Add(decimal.NewFromInt(10))))

		payment := f.store.payments[payments[0].ID]
		assert.True(t, payment.IsCancelled())
		assert.Empty(t, f.store.txnLines)

		customer := f.store.customers[invoice.CustomerID]
		assert.True(t, customer.TotalInvoiceAmount.IsZero())
		assert.True(t, customer.TotalPaymentAmount.IsZero())
		assert.True(t, customer.Balance.IsZero())
	})

	t.Run("pending invoice cancels without touching payments", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)

		require.NoError(t, f.cancellation.CancelInvoice(ctx, f.tenantID, invoice.ID, "mistake"))

		assert.Equal(t, domainbilling.InvoiceStatusCancelled, f.store.invoices[invoice.ID].PaymentStatus)
		assert.Empty(t, f.store.payments)
		// pending batch logs tied to the invoice are gone
		for _, log := range f.store.batchLogs {
			if log.InvoiceID != nil {
				assert.NotEqual(t, invoice.ID, *log.InvoiceID)
			}
		}
	})

	t.Run("second cancel fails Conflict", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)
		require.NoError(t, f.cancellation.CancelInvoice(ctx, f.tenantID, invoice.ID, "first"))

		err := f.cancellation.CancelInvoice(ctx, f.tenantID, invoice.ID, "second")
		require.Error(t, err)
		domainErr, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "CONFLICT", domainErr.Code)
		assert.Contains(t, domainErr.Message, "already cancelled")
	})

	t.Run("unknown invoice fails NotFound", func(t *testing.T) {
		f := newFixture()
		customer := f.seedCustomer()

		err := f.cancellation.CancelInvoice(ctx, f.tenantID, customer.ID, "nope")
		require.Error(t, err)
		domainErr, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("restore auto-vivifies a batch when none is left", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)

		// drop every batch for the product, simulating a purged warehouse
		for id := range f.store.batches {
			delete(f.store.batches, id)
		}

		require.NoError(t, f.cancellation.CancelInvoice(ctx, f.tenantID, invoice.ID, "returned"))

		require.Len(t, f.store.batches, 1)
		for _, b := range f.store.batches {
			assert.Equal(t, "BATCH-0000001", b.BatchNumber)
			assert.True(t, b.OpeningStock.Equal(decimal.NewFromInt(10)))
			assert.True(t, b.CommittedQuantity.IsZero())
		}
	})
}

func TestCancelPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("cash payment cancellation removes its lines and totals", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)
		payments := payInFull(t, f, invoice)

		customer := f.store.customers[invoice.CustomerID]
		require.True(t, customer.TotalPaymentAmount.Equal(decimal.NewFromInt(1000)))

		require.NoError(t, f.cancellation.CancelPayment(ctx, f.tenantID, payments[0].ID, "bounced"))

		assert.True(t, f.store.payments[payments[0].ID].IsCancelled())
		assert.Empty(t, f.store.txnLines)
		assert.True(t, customer.TotalPaymentAmount.IsZero())
		// invoice total unaffected by payment cancellation
		assert.True(t, customer.TotalInvoiceAmount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("balance leg cancellation leaves payment totals unchanged", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)
		f.store.customers[invoice.CustomerID].ApplyAggregates(decimal.Zero, decimal.NewFromInt(400))

		results, err := f.paymentSvc.CreatePayment(ctx, CreatePaymentRequest{
			TenantID:              f.tenantID,
			InvoiceID:             invoice.ID,
			CustomerID:            invoice.CustomerID,
			AmountPaid:            decimal.NewFromInt(600),
			PaymentMode:           domainbilling.PaymentModeTransfer,
			PaymentStatus:         domainbilling.PaymentStatusFull,
			UseCustomerBalance:    true,
			CustomerBalanceAmount: decimal.NewFromInt(400),
		})
		require.NoError(t, err)
		require.Len(t, results, 2)

		customer := f.store.customers[invoice.CustomerID]
		require.True(t, customer.TotalPaymentAmount.Equal(decimal.NewFromInt(600)))

		// cancelling the BALANCE leg does not change the cash totals
		require.NoError(t, f.cancellation.CancelPayment(ctx, f.tenantID, results[0].ID, "void credit leg"))
		assert.True(t, customer.TotalPaymentAmount.Equal(decimal.NewFromInt(600)))
	})

	t.Run("cancelling the sole settling payment reopens the invoice", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)
		payments := payInFull(t, f, invoice)
		require.Equal(t, domainbilling.InvoiceStatusPaid, f.store.invoices[invoice.ID].PaymentStatus)

		require.NoError(t, f.cancellation.CancelPayment(ctx, f.tenantID, payments[0].ID, "bounced"))

		assert.Equal(t, domainbilling.InvoiceStatusPending, f.store.invoices[invoice.ID].PaymentStatus)
	})

	t.Run("cancelling one of two part payments keeps the invoice part-paid", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)

		partPay := func(amount int64) PaymentResult {
			results, err := f.paymentSvc.CreatePayment(ctx, CreatePaymentRequest{
				TenantID:      f.tenantID,
				InvoiceID:     invoice.ID,
				CustomerID:    invoice.CustomerID,
				AmountPaid:    decimal.NewFromInt(amount),
				PaymentMode:   domainbilling.PaymentModeCash,
				PaymentStatus: domainbilling.PaymentStatusPart,
			})
			require.NoError(t, err)
			require.Len(t, results, 1)
			return results[0]
		}
		first := partPay(300)
		partPay(200)

		require.NoError(t, f.cancellation.CancelPayment(ctx, f.tenantID, first.ID, "bounced"))

		assert.Equal(t, domainbilling.InvoiceStatusPart, f.store.invoices[invoice.ID].PaymentStatus)
		customer := f.store.customers[invoice.CustomerID]
		assert.True(t, customer.TotalPaymentAmount.Equal(decimal.NewFromInt(200)))
	})

	t.Run("second cancel fails Conflict", func(t *testing.T) {
		f := newFixture()
		invoice := seedInvoice(t, f, 1000)
		payments := payInFull(t, f, invoice)

		require.NoError(t, f.cancellation.CancelPayment(ctx, f.tenantID, payments[0].ID, "first"))

		err := f.cancellation.CancelPayment(ctx, f.tenantID, payments[0].ID, "second")
		require.Error(t, err)
		domainErr, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "CONFLICT", domainErr.Code)
	})

	t.Run("unknown payment fails NotFound", func(t *testing.T) {
		f := newFixture()
		customer := f.seedCustomer()

		err := f.cancellation.CancelPayment(ctx, f.tenantID, customer.ID, "nope")
		require.Error(t, err)
		domainErr, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})
}
