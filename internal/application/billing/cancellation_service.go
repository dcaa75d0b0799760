package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	appserial "github.com/tradeledger/backend/internal/application/serial"
	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/inventory"
	"github.com/tradeledger/backend/internal/domain/serial"
	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/infrastructure/telemetry"
)

// restockBatchPrefix names the serial sequence for batches auto-created when
// a cancellation restores stock into a warehouse with no existing batch.
const restockBatchPrefix = "BATCH"

// CancellationService reverses the effects of a cancelled invoice or payment:
// stock goes back to the batches, reporting lines and pending batch logs are
// cleaned up, and the customer's aggregates are recomputed from scratch. The
// full recompute makes a repeated cancellation attempt fail on the state
// check without ever double-adjusting totals.
type CancellationService struct {
	invoices  billing.InvoiceRepository
	payments  billing.PaymentRepository
	txnLines  billing.SalesTransactionRepository
	batchLogs inventory.BatchLogRepository
	ledger    *inventory.LedgerService
	serials   *appserial.Service
	balances  *BalanceService
	tx        shared.TxManager
}

// NewCancellationService creates a new CancellationService
func NewCancellationService(
	invoices billing.InvoiceRepository,
	payments billing.PaymentRepository,
	txnLines billing.SalesTransactionRepository,
	batchLogs inventory.BatchLogRepository,
	ledger *inventory.LedgerService,
	serials *appserial.Service,
	balances *BalanceService,
	tx shared.TxManager,
) *CancellationService {
	return &CancellationService{
		invoices:  invoices,
		payments:  payments,
		txnLines:  txnLines,
		batchLogs: batchLogs,
		ledger:    ledger,
		serials:   serials,
		balances:  balances,
		tx:        tx,
	}
}

// CancelInvoice voids an invoice: every line quantity returns to the opening
// pool, settling payments are cancelled with it, pending batch logs are
// deleted and the customer's aggregates are recomputed.
func (s *CancellationService) CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, comment string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "cancellation", "cancel_invoice")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	err := s.tx.InSerializableTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(txCtx, tenantID, invoiceID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}
		if err != nil {
			return fmt.Errorf("failed to lock invoice: %w", err)
		}

		wasSettled := invoice.WasSettled()
		if err := invoice.Cancel(comment); err != nil {
			return err
		}

		if err := s.ledger.Restore(txCtx, tenantID, invoiceMovements(invoice), s.nextBatchNumber); err != nil {
			return err
		}

		if wasSettled {
			if err := s.cancelSettlingPayments(txCtx, tenantID, invoice, comment); err != nil {
				return err
			}
		}

		if err := s.invoices.Save(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}
		if err := s.batchLogs.DeletePendingByInvoice(txCtx, tenantID, invoiceID); err != nil {
			return fmt.Errorf("failed to delete pending batch logs: %w", err)
		}

		return s.balances.Recompute(txCtx, tenantID, invoice.CustomerID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// CancelPayment voids one payment row: its reporting lines are deleted, the
// invoice's settlement status is re-derived from the remaining active
// payments and the customer's aggregates are recomputed without it.
func (s *CancellationService) CancelPayment(ctx context.Context, tenantID, paymentID uuid.UUID, comment string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "cancellation", "cancel_payment")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	err := s.tx.InSerializableTx(ctx, func(txCtx context.Context) error {
		payment, err := s.payments.FindByIDForUpdate(txCtx, tenantID, paymentID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Payment not found")
		}
		if err != nil {
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		if err := payment.Cancel(comment); err != nil {
			return err
		}
		if err := s.payments.Save(txCtx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := s.txnLines.DeleteByPayment(txCtx, tenantID, paymentID); err != nil {
			return fmt.Errorf("failed to delete transaction lines: %w", err)
		}

		if err := s.rederiveInvoiceSettlement(txCtx, tenantID, payment.InvoiceID); err != nil {
			return err
		}

		return s.balances.Recompute(txCtx, tenantID, payment.CustomerID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// rederiveInvoiceSettlement flips a settled invoice back to PENDING or PART
// from the payment rows still active after one was voided.
func (s *CancellationService) rederiveInvoiceSettlement(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	invoice, err := s.invoices.FindByIDForUpdate(ctx, tenantID, invoiceID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock invoice: %w", err)
	}
	if !invoice.WasSettled() {
		return nil
	}

	active, err := s.payments.FindActiveByInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	if err := invoice.RederiveSettlement(len(active)); err != nil {
		return err
	}
	if err := s.invoices.Save(ctx, invoice); err != nil {
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

func (s *CancellationService) cancelSettlingPayments(ctx context.Context, tenantID uuid.UUID, invoice *billing.Invoice, comment string) error {
	payments, err := s.payments.FindActiveByInvoice(ctx, tenantID, invoice.ID)
	if err != nil {
		return fmt.Errorf("failed to load payments: %w", err)
	}
	for _, payment := range payments {
		if err := payment.Cancel(comment); err != nil {
			return err
		}
		if err := s.payments.Save(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if err := s.txnLines.DeleteByPayment(ctx, tenantID, payment.ID); err != nil {
			return fmt.Errorf("failed to delete transaction lines: %w", err)
		}
	}
	return nil
}

func (s *CancellationService) nextBatchNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	return s.serials.Next(ctx, tenantID, serial.ModuleStockBatch, restockBatchPrefix)
}

func invoiceMovements(invoice *billing.Invoice) []inventory.StockMovement {
	movements := make([]inventory.StockMovement, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		movements = append(movements, inventory.StockMovement{
			ProductID:     item.ProductID,
			WarehouseName: item.WarehouseName,
			Quantity:      item.Quantity,
		})
	}
	return movements
}
