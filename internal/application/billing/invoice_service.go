package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	appserial "github.com/tradeledger/backend/internal/application/serial"
	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/inventory"
	"github.com/tradeledger/backend/internal/domain/partner"
	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/domain/trade"
	"github.com/tradeledger/backend/internal/infrastructure/telemetry"
)

// InvoiceService turns approved sales orders and open loan requests into
// invoices. The whole write path runs in one serializable transaction:
// invoice row, inventory depletion, parent state flip, serial finalization,
// batch log linking and the customer's recomputed aggregates all commit or
// roll back together.
type InvoiceService struct {
	customers    partner.CustomerRepository
	salesPersons partner.SalesPersonRepository
	orders       trade.SalesOrderRepository
	loans        trade.LoanRequestRepository
	invoices     billing.InvoiceRepository
	batchLogs    inventory.BatchLogRepository
	ledger       *inventory.LedgerService
	serials      *appserial.Service
	balances     *BalanceService
	tx           shared.TxManager
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	customers partner.CustomerRepository,
	salesPersons partner.SalesPersonRepository,
	orders trade.SalesOrderRepository,
	loans trade.LoanRequestRepository,
	invoices billing.InvoiceRepository,
	batchLogs inventory.BatchLogRepository,
	ledger *inventory.LedgerService,
	serials *appserial.Service,
	balances *BalanceService,
	tx shared.TxManager,
) *InvoiceService {
	return &InvoiceService{
		customers:    customers,
		salesPersons: salesPersons,
		orders:       orders,
		loans:        loans,
		invoices:     invoices,
		batchLogs:    batchLogs,
		ledger:       ledger,
		serials:      serials,
		balances:     balances,
		tx:           tx,
	}
}

// CreateInvoice validates the request, then creates the invoice inside a
// serializable transaction. The parent is re-checked under a row lock inside
// the transaction, so two requests racing on the same order cannot both pass
// the precondition.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrCustomerID, req.CustomerID.String(),
		telemetry.SpanAttrSerialNumber, req.SerialNumber,
	)

	if err := s.checkPreconditions(ctx, req); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var created *billing.Invoice
	err := s.tx.InSerializableTx(ctx, func(txCtx context.Context) error {
		invoice, err := billing.NewInvoice(
			req.TenantID, req.SerialNumber,
			req.CustomerID, req.SalesPersonID,
			req.SalesOrderID, req.LoanRequestID,
			toInvoiceLines(req.Lines), req.TotalPrice,
		)
		if err != nil {
			return err
		}

		if err := s.invoices.Save(txCtx, invoice); err != nil {
			return fmt.Errorf("failed to save invoice: %w", err)
		}

		if err := s.ledger.Commit(txCtx, req.TenantID, toMovements(req.Lines)); err != nil {
			return err
		}

		if req.SalesOrderID != nil {
			if err := s.settleSalesOrder(txCtx, req.TenantID, *req.SalesOrderID, invoice); err != nil {
				return err
			}
		} else {
			if err := s.settleLoanRequest(txCtx, req.TenantID, *req.LoanRequestID, invoice); err != nil {
				return err
			}
		}

		if err := s.serials.Finalize(txCtx, req.TenantID, req.SerialNumber); err != nil {
			return err
		}

		if err := s.balances.Recompute(txCtx, req.TenantID, req.CustomerID); err != nil {
			return err
		}

		created = invoice
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, created.ID.String())
	return ToInvoiceResult(created), nil
}

// GetInvoice returns one invoice by ID
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*InvoiceResult, error) {
	invoice, err := s.invoices.FindByIDForTenant(ctx, tenantID, invoiceID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("NOT_FOUND", "Invoice not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return ToInvoiceResult(invoice), nil
}

// checkPreconditions runs the cheap referential and state checks before the
// serializable transaction opens. State checks are repeated under row locks
// inside the transaction.
func (s *InvoiceService) checkPreconditions(ctx context.Context, req CreateInvoiceRequest) error {
	if (req.SalesOrderID == nil) == (req.LoanRequestID == nil) {
		return shared.NewDomainError("INVALID_INPUT", "Exactly one of sales order and loan request must be supplied")
	}

	if _, err := s.invoices.FindBySerialForTenant(ctx, req.TenantID, req.SerialNumber); err == nil {
		return shared.NewDomainError("CONFLICT", fmt.Sprintf("Serial %s is already used by another invoice", req.SerialNumber))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("failed to check invoice serial: %w", err)
	}

	if _, err := s.customers.FindByIDForTenant(ctx, req.TenantID, req.CustomerID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Customer not found")
		}
		return fmt.Errorf("failed to load customer: %w", err)
	}
	if _, err := s.salesPersons.FindByIDForTenant(ctx, req.TenantID, req.SalesPersonID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Sales person not found")
		}
		return fmt.Errorf("failed to load sales person: %w", err)
	}

	if req.SalesOrderID != nil {
		order, err := s.orders.FindByIDForTenant(ctx, req.TenantID, *req.SalesOrderID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Sales order not found")
		}
		if err != nil {
			return fmt.Errorf("failed to load sales order: %w", err)
		}
		if err := order.EnsureInvoiceable(); err != nil {
			return err
		}
	} else {
		loan, err := s.loans.FindByIDForTenant(ctx, req.TenantID, *req.LoanRequestID)
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Loan request not found")
		}
		if err != nil {
			return fmt.Errorf("failed to load loan request: %w", err)
		}
		if err := loan.EnsureInvoiceable(); err != nil {
			return err
		}
	}

	return s.ledger.Validate(ctx, req.TenantID, toMovements(req.Lines))
}

func (s *InvoiceService) settleSalesOrder(ctx context.Context, tenantID, orderID uuid.UUID, invoice *billing.Invoice) error {
	order, err := s.orders.FindByIDForUpdate(ctx, tenantID, orderID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("NOT_FOUND", "Sales order not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock sales order: %w", err)
	}
	if err := order.Complete(); err != nil {
		return err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("failed to save sales order: %w", err)
	}

	logs, err := s.batchLogs.FindPendingBySalesOrder(ctx, tenantID, orderID)
	if err != nil {
		return fmt.Errorf("failed to load batch logs: %w", err)
	}
	for idx := range logs {
		logs[idx].AttachInvoice(invoice.ID)
		if err := s.batchLogs.Save(ctx, &logs[idx]); err != nil {
			return fmt.Errorf("failed to save batch log: %w", err)
		}
	}
	return nil
}

func (s *InvoiceService) settleLoanRequest(ctx context.Context, tenantID, loanID uuid.UUID, invoice *billing.Invoice) error {
	loan, err := s.loans.FindByIDForUpdate(ctx, tenantID, loanID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("NOT_FOUND", "Loan request not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock loan request: %w", err)
	}
	if err := loan.EnsureInvoiceable(); err != nil {
		return err
	}

	for _, item := range invoice.Items {
		if err := loan.ApplyInvoicedQuantity(item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	if err := loan.Close(); err != nil {
		return err
	}
	if err := s.loans.Save(ctx, loan); err != nil {
		return fmt.Errorf("failed to save loan request: %w", err)
	}

	for _, item := range invoice.Items {
		logs, err := s.batchLogs.FindPendingByLoanAndProduct(ctx, tenantID, loanID, item.ProductID)
		if err != nil {
			return fmt.Errorf("failed to load batch logs: %w", err)
		}
		for idx := range logs {
			logs[idx].SetInvoicedLine(invoice.ID, item.Quantity, item.Rate)
			if err := s.batchLogs.Save(ctx, &logs[idx]); err != nil {
				return fmt.Errorf("failed to save batch log: %w", err)
			}
		}
	}
	return nil
}

func toInvoiceLines(lines []InvoiceLineInput) []billing.InvoiceLine {
	out := make([]billing.InvoiceLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, billing.InvoiceLine{
			ProductID:     l.ProductID,
			WarehouseName: l.WarehouseName,
			Quantity:      l.Quantity,
			Rate:          l.Rate,
		})
	}
	return out
}

func toMovements(lines []InvoiceLineInput) []inventory.StockMovement {
	out := make([]inventory.StockMovement, 0, len(lines))
	for _, l := range lines {
		out = append(out, inventory.StockMovement{
			ProductID:     l.ProductID,
			WarehouseName: l.WarehouseName,
			Quantity:      l.Quantity,
		})
	}
	return out
}
