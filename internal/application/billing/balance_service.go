package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/domain/partner"
	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/infrastructure/telemetry"
)

// BalanceCache is the read-side cache for customer balance lookups. A nil
// cache disables caching; errors from the cache are logged and swallowed, the
// store stays authoritative.
type BalanceCache interface {
	Get(ctx context.Context, tenantID, customerID uuid.UUID) (*CustomerBalanceResult, error)
	Set(ctx context.Context, tenantID uuid.UUID, result *CustomerBalanceResult) error
	Invalidate(ctx context.Context, tenantID, customerID uuid.UUID) error
}

// BalanceService owns the customer's cached balance aggregates. The totals
// are always re-derived from scratch over the customer's full invoice and
// payment history, never patched incrementally, so a repeated recompute is a
// no-op rather than a double-count.
type BalanceService struct {
	customers partner.CustomerRepository
	invoices  billing.InvoiceRepository
	payments  billing.PaymentRepository
	tx        shared.TxManager
	cache     BalanceCache
	logger    *zap.Logger
}

// NewBalanceService creates a new BalanceService. cache may be nil.
func NewBalanceService(
	customers partner.CustomerRepository,
	invoices billing.InvoiceRepository,
	payments billing.PaymentRepository,
	tx shared.TxManager,
	cache BalanceCache,
	logger *zap.Logger,
) *BalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BalanceService{
		customers: customers,
		invoices:  invoices,
		payments:  payments,
		tx:        tx,
		cache:     cache,
		logger:    logger,
	}
}

// Recompute re-derives the customer's cached aggregates inside the caller's
// active transaction: invoice total over non-cancelled invoices, payment
// total over non-cancelled CASH/TRANSFER payments, balance = payments minus
// invoices.
func (s *BalanceService) Recompute(ctx context.Context, tenantID, customerID uuid.UUID) error {
	customer, err := s.customers.FindByIDForUpdate(ctx, tenantID, customerID)
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("NOT_FOUND", "Customer not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load customer: %w", err)
	}

	invoiceTotal, err := s.invoices.SumActiveTotalByCustomer(ctx, tenantID, customerID)
	if err != nil {
		return fmt.Errorf("failed to sum invoices: %w", err)
	}
	paymentTotal, err := s.payments.SumActiveSettlementByCustomer(ctx, tenantID, customerID)
	if err != nil {
		return fmt.Errorf("failed to sum payments: %w", err)
	}

	customer.ApplyAggregates(invoiceTotal, paymentTotal)
	if err := s.customers.Save(ctx, customer); err != nil {
		return fmt.Errorf("failed to save customer aggregates: %w", err)
	}

	s.invalidateCache(ctx, tenantID, customerID)
	return nil
}

// GetBalance returns the customer's cached aggregates, serving from the
// read cache when possible.
func (s *BalanceService) GetBalance(ctx context.Context, tenantID, customerID uuid.UUID) (*CustomerBalanceResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "balance", "get")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrCustomerID, customerID.String(),
	)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, tenantID, customerID)
		if err != nil {
			s.logger.Warn("Balance cache read failed",
				zap.String("customer_id", customerID.String()),
				zap.Error(err))
		} else if cached != nil {
			telemetry.SetAttribute(span, "cache_hit", true)
			return cached, nil
		}
	}

	customer, err := s.customers.FindByIDForTenant(ctx, tenantID, customerID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("NOT_FOUND", "Customer not found")
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	result := &CustomerBalanceResult{
		CustomerID:         customer.ID,
		Balance:            customer.Balance,
		TotalInvoiceAmount: customer.TotalInvoiceAmount,
		TotalPaymentAmount: customer.TotalPaymentAmount,
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, result); err != nil {
			s.logger.Warn("Balance cache write failed",
				zap.String("customer_id", customerID.String()),
				zap.Error(err))
		}
	}
	return result, nil
}

func (s *BalanceService) invalidateCache(ctx context.Context, tenantID, customerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID, customerID); err != nil {
		s.logger.Warn("Balance cache invalidation failed",
			zap.String("customer_id", customerID.String()),
			zap.Error(err))
	}
}
