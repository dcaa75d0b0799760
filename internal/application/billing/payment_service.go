package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/inventory"
	"github.com/tradeledger/backend/internal/domain/partner"
	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/infrastructure/telemetry"
)

// PaymentService applies payments to invoices. A single act of paying may
// materialize one or two payment rows: when customer credit covers part of
// the amount, a BALANCE row records the credit draw-down next to the CASH or
// TRANSFER row for the fresh money.
type PaymentService struct {
	customers  partner.CustomerRepository
	warehouses partner.WarehouseRepository
	invoices   billing.InvoiceRepository
	payments   billing.PaymentRepository
	txnLines   billing.SalesTransactionRepository
	batchLogs  inventory.BatchLogRepository
	balances   *BalanceService
	tx         shared.TxManager
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	customers partner.CustomerRepository,
	warehouses partner.WarehouseRepository,
	invoices billing.InvoiceRepository,
	payments billing.PaymentRepository,
	txnLines billing.SalesTransactionRepository,
	batchLogs inventory.BatchLogRepository,
	balances *BalanceService,
	tx shared.TxManager,
) *PaymentService {
	return &PaymentService{
		customers:  customers,
		warehouses: warehouses,
		invoices:   invoices,
		payments:   payments,
		txnLines:   txnLines,
		batchLogs:  batchLogs,
		balances:   balances,
		tx:         tx,
	}
}

// CreatePayment applies a payment against an invoice inside a serializable
// transaction: payment rows, reporting lines, batch log flips, invoice status
// and the customer's recomputed aggregates all commit together.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) ([]PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrAmount, req.AmountPaid.String(),
	)

	if err := s.validateRequest(req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var created []*billing.Payment
	err := s.tx.InSerializableTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoices.FindByIDForUpdate(txCtx, req.TenantID, req.InvoiceID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Invoice not found")
		}
		if err != nil {
			return fmt.Errorf("failed to lock invoice: %w", err)
		}
		if invoice.CustomerID != req.CustomerID {
			return shared.NewDomainError("INVALID_INPUT", "Invoice does not belong to this customer")
		}

		created, err = s.createPaymentRows(txCtx, req)
		if err != nil {
			return err
		}

		// Reporting lines and batch logs reference the row carrying the
		// fresh money; for a pure balance payment that is the BALANCE row.
		settling := created[len(created)-1]

		if err := s.upsertTransactionLines(txCtx, req.TenantID, invoice, settling); err != nil {
			return err
		}
		if err := s.completeBatchLogs(txCtx, req.TenantID, invoice, settling.ID); err != nil {
			return err
		}

		if req.PaymentStatus == billing.PaymentStatusPart {
			err = invoice.MarkPart()
		} else {
			err = invoice.MarkPaid()
		}
		if err != nil {
			return err
		}
		if err := s.invoices.Save(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		return s.balances.Recompute(txCtx, req.TenantID, req.CustomerID)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	results := make([]PaymentResult, 0, len(created))
	for _, p := range created {
		results = append(results, ToPaymentResult(p))
	}
	return results, nil
}

// GetPayment returns one payment by ID
func (s *PaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*PaymentResult, error) {
	payment, err := s.payments.FindByIDForTenant(ctx, tenantID, paymentID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("NOT_FOUND", "Payment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	result := ToPaymentResult(payment)
	return &result, nil
}

func (s *PaymentService) validateRequest(req CreatePaymentRequest) error {
	if req.PaymentStatus != billing.PaymentStatusPart && req.PaymentStatus != billing.PaymentStatusFull {
		return shared.NewDomainError("INVALID_INPUT", "Payment status must be PART_PAYMENT or FULL_PAYMENT")
	}
	if req.PaymentMode == billing.PaymentModeBalance {
		return shared.NewDomainError("INVALID_INPUT", "BALANCE rows are created by the balance split, not requested directly")
	}
	if req.UseCustomerBalance {
		if req.CustomerBalanceAmount.LessThanOrEqual(decimal.Zero) {
			return shared.NewDomainError("INVALID_AMOUNT", "Customer balance amount must be positive")
		}
		if req.AmountPaid.IsNegative() {
			return shared.NewDomainError("INVALID_AMOUNT", "Amount paid cannot be negative")
		}
	} else if req.AmountPaid.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount paid must be positive")
	}
	return nil
}

// createPaymentRows builds the 1-2 payment rows for the request. When
// customer credit is used the customer row is locked and the draw-down
// checked against the live balance.
func (s *PaymentService) createPaymentRows(ctx context.Context, req CreatePaymentRequest) ([]*billing.Payment, error) {
	var rows []*billing.Payment

	if req.UseCustomerBalance {
		customer, err := s.customers.FindByIDForUpdate(ctx, req.TenantID, req.CustomerID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to lock customer: %w", err)
		}
		if customer.Balance.LessThan(req.CustomerBalanceAmount) {
			return nil, shared.NewDomainError("INSUFFICIENT_BALANCE", fmt.Sprintf(
				"Customer balance %s cannot cover %s", customer.Balance, req.CustomerBalanceAmount))
		}

		balanceRow, err := billing.NewPayment(req.TenantID, req.InvoiceID, req.CustomerID,
			req.CustomerBalanceAmount, billing.PaymentModeBalance, req.PaymentStatus)
		if err != nil {
			return nil, err
		}
		rows = append(rows, balanceRow)
	}

	if req.AmountPaid.IsPositive() {
		cashRow, err := billing.NewPayment(req.TenantID, req.InvoiceID, req.CustomerID,
			req.AmountPaid, req.PaymentMode, req.PaymentStatus)
		if err != nil {
			return nil, err
		}
		rows = append(rows, cashRow)
	}

	if len(rows) == 0 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment requires an amount or a balance draw-down")
	}

	for _, row := range rows {
		if err := s.payments.Save(ctx, row); err != nil {
			return nil, fmt.Errorf("failed to save payment: %w", err)
		}
	}
	return rows, nil
}

// upsertTransactionLines projects one reporting line per invoice item.
// Existing lines, left by an earlier part-payment, are updated in place so
// repeated payments never duplicate rows.
func (s *PaymentService) upsertTransactionLines(ctx context.Context, tenantID uuid.UUID, invoice *billing.Invoice, payment *billing.Payment) error {
	for _, item := range invoice.Items {
		warehouse, err := s.warehouses.FindByNameForTenant(ctx, tenantID, item.WarehouseName)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Warehouse %q not found", item.WarehouseName))
		}
		if err != nil {
			return fmt.Errorf("failed to load warehouse: %w", err)
		}

		line, err := s.txnLines.FindByKey(ctx, tenantID, invoice.ID, item.ProductID, warehouse.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("failed to load transaction line: %w", err)
		}

		if line != nil {
			line.Refresh(payment.ID, item.Quantity, item.Rate)
		} else {
			line, err = billing.NewSalesTransactionLine(tenantID, invoice.ID, payment.ID,
				invoice.CustomerID, item.ProductID, warehouse.ID, item.Quantity, item.Rate)
			if err != nil {
				return err
			}
		}
		if err := s.txnLines.Save(ctx, line); err != nil {
			return fmt.Errorf("failed to save transaction line: %w", err)
		}
	}
	return nil
}

// completeBatchLogs flips the invoice's pending batch logs to COMPLETED,
// stamping the settling payment.
func (s *PaymentService) completeBatchLogs(ctx context.Context, tenantID uuid.UUID, invoice *billing.Invoice, paymentID uuid.UUID) error {
	logs, err := s.batchLogs.FindPendingForInvoice(ctx, tenantID, invoice.ID, invoice.SalesOrderID, invoice.LoanRequestID)
	if err != nil {
		return fmt.Errorf("failed to load batch logs: %w", err)
	}
	for idx := range logs {
		if err := logs[idx].Complete(paymentID); err != nil {
			return err
		}
		if err := s.batchLogs.Save(ctx, &logs[idx]); err != nil {
			return fmt.Errorf("failed to save batch log: %w", err)
		}
	}
	return nil
}
