package serial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradeledger/backend/internal/domain/serial"
	"github.com/tradeledger/backend/internal/domain/shared"
	"github.com/tradeledger/backend/internal/infrastructure/telemetry"
)

// DefaultReservationTTL bounds how long a reservation blocks its counter when
// the reserving transaction never finalizes or releases.
const DefaultReservationTTL = 15 * time.Minute

// Service allocates gap-free serial numbers. Reserve hands out the counter's
// current number without advancing it; only Finalize advances, so an abandoned
// reservation expires and the same number goes to the next caller.
type Service struct {
	counters serial.CounterRepository
	tx       shared.TxManager
	ttl      time.Duration
}

// NewService creates a new serial Service. A non-positive ttl falls back to
// DefaultReservationTTL.
func NewService(counters serial.CounterRepository, tx shared.TxManager, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &Service{
		counters: counters,
		tx:       tx,
		ttl:      ttl,
	}
}

// Reserve hands out the next serial for a (module, prefix) key without
// consuming it. Calling Reserve again while a reservation is in flight returns
// the same serial and re-stamps the reservation window.
func (s *Service) Reserve(ctx context.Context, tenantID uuid.UUID, module serial.Module, prefix string) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "serial", "reserve")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrSerialModule, module.String(),
	)

	var serialNumber string
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		counter, err := s.counters.FindForUpdate(txCtx, tenantID, module, prefix)
		if errors.Is(err, shared.ErrNotFound) {
			counter, err = serial.NewCounter(tenantID, module, prefix)
			if err != nil {
				return err
			}
			counter.Reserve()
			if err := s.counters.Save(txCtx, counter); err != nil {
				return fmt.Errorf("failed to save new counter: %w", err)
			}
			serialNumber = counter.Format()
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load counter: %w", err)
		}

		if counter.IsReserved && !counter.ReservationExpired(s.ttl) {
			counter.RefreshReservation()
		} else {
			counter.Reserve()
		}
		if err := s.counters.Save(txCtx, counter); err != nil {
			return fmt.Errorf("failed to save counter: %w", err)
		}
		serialNumber = counter.Format()
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrSerialNumber, serialNumber)
	return serialNumber, nil
}

// Finalize consumes a previously reserved serial, advancing the counter.
// Returns shared.ErrNotFound when no in-flight reservation matches.
func (s *Service) Finalize(ctx context.Context, tenantID uuid.UUID, serialNumber string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "serial", "finalize")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrSerialNumber, serialNumber,
	)

	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		counter, err := s.findReservation(txCtx, tenantID, serialNumber)
		if err != nil {
			return err
		}
		counter.Increment()
		counter.ClearReservation()
		if err := s.counters.Save(txCtx, counter); err != nil {
			return fmt.Errorf("failed to save counter: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// Release abandons a reservation without consuming the serial. The counter
// keeps its number, so the next Reserve hands the same serial out again.
func (s *Service) Release(ctx context.Context, tenantID uuid.UUID, serialNumber string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "serial", "release")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrSerialNumber, serialNumber,
	)

	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		counter, err := s.findReservation(txCtx, tenantID, serialNumber)
		if err != nil {
			return err
		}
		counter.ClearReservation()
		if err := s.counters.Save(txCtx, counter); err != nil {
			return fmt.Errorf("failed to save counter: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// Next reserves and finalizes in one step, for internally generated serials
// such as stock batch numbers where no caller holds the number across a
// request boundary.
func (s *Service) Next(ctx context.Context, tenantID uuid.UUID, module serial.Module, prefix string) (string, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "serial", "next")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrSerialModule, module.String(),
	)

	var serialNumber string
	err := s.tx.InTx(ctx, func(txCtx context.Context) error {
		counter, err := s.counters.FindForUpdate(txCtx, tenantID, module, prefix)
		if errors.Is(err, shared.ErrNotFound) {
			counter, err = serial.NewCounter(tenantID, module, prefix)
			if err != nil {
				return err
			}
		} else if err != nil {
			return fmt.Errorf("failed to load counter: %w", err)
		}

		if counter.IsReserved {
			if !counter.ReservationExpired(s.ttl) {
				return shared.NewDomainError("CONFLICT", fmt.Sprintf("Serial %s is reserved by an in-flight allocation", counter.Format()))
			}
			counter.ClearReservation()
		}

		serialNumber = counter.Format()
		counter.Increment()
		if err := s.counters.Save(txCtx, counter); err != nil {
			return fmt.Errorf("failed to save counter: %w", err)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrSerialNumber, serialNumber)
	return serialNumber, nil
}

func (s *Service) findReservation(ctx context.Context, tenantID uuid.UUID, serialNumber string) (*serial.Counter, error) {
	prefix, number, err := serial.Parse(serialNumber)
	if err != nil {
		return nil, err
	}
	counter, err := s.counters.FindReservedByNumberForUpdate(ctx, tenantID, prefix, number)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("No reservation found for serial %s", serialNumber))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reserved counter: %w", err)
	}
	return counter, nil
}
