package serial

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// Module identifies the subsystem a counter sequence belongs to. Counters are
// unique per (tenant, module, prefix), so the same prefix can exist in two
// modules without colliding.
type Module string

const (
	ModuleInvoice    Module = "invoice"
	ModuleSalesOrder Module = "sales_order"
	ModuleLoan       Module = "loan"
	ModuleStockBatch Module = "stock_batch"
)

// IsValid checks if the module is a known counter module
func (m Module) IsValid() bool {
	switch m {
	case ModuleInvoice, ModuleSalesOrder, ModuleLoan, ModuleStockBatch:
		return true
	}
	return false
}

// String returns the string representation of Module
func (m Module) String() string {
	return string(m)
}

// numberWidth is the minimum zero-padded width of the numeric part of a
// serial. Counters past 9999999 format wider, so Parse accepts seven digits
// or more.
const numberWidth = 7

var serialPattern = regexp.MustCompile(`^([A-Za-z0-9]+)-(\d{7,})$`)

// Counter is the per-(tenant, module, prefix) sequence row. CurrentNumber only
// ever increases. IsReserved marks an allocation handed to a caller whose
// surrounding transaction has not committed yet; while set, Reserve returns
// the same number instead of incrementing.
type Counter struct {
	shared.TenantAggregateRoot
	Module        Module `gorm:"type:varchar(30);not null;uniqueIndex:idx_serial_tenant_module_prefix,priority:2"`
	Prefix        string `gorm:"type:varchar(20);not null;uniqueIndex:idx_serial_tenant_module_prefix,priority:3"`
	CurrentNumber int64  `gorm:"not null;default:0"`
	IsReserved    bool   `gorm:"not null;default:false"`
	ReservedAt    *time.Time
}

// TableName returns the table name for GORM
func (Counter) TableName() string {
	return "serial_counters"
}

// NewCounter creates the first counter row for a key, already holding number 1.
func NewCounter(tenantID uuid.UUID, module Module, prefix string) (*Counter, error) {
	if !module.IsValid() {
		return nil, shared.NewDomainError("INVALID_MODULE", fmt.Sprintf("Unknown serial module %q", module))
	}
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}

	return &Counter{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Module:              module,
		Prefix:              prefix,
		CurrentNumber:       1,
	}, nil
}

// Increment advances the sequence by one
func (c *Counter) Increment() {
	c.CurrentNumber++
	c.UpdatedAt = time.Now()
}

// Reserve marks the current number as handed out but not yet committed
func (c *Counter) Reserve() {
	now := time.Now()
	c.IsReserved = true
	c.ReservedAt = &now
	c.UpdatedAt = now
}

// RefreshReservation re-stamps an in-flight reservation without changing the
// number. Used when an idempotent re-read hands the same number out again.
func (c *Counter) RefreshReservation() {
	now := time.Now()
	c.ReservedAt = &now
	c.UpdatedAt = now
}

// ClearReservation finalizes the allocation, freeing the row for the next
// increment.
func (c *Counter) ClearReservation() {
	c.IsReserved = false
	c.ReservedAt = nil
	c.UpdatedAt = time.Now()
}

// ReservationExpired reports whether an in-flight reservation is older than
// ttl. Expired reservations no longer block the slot: the same number is
// handed out again, so the visible sequence never skips.
func (c *Counter) ReservationExpired(ttl time.Duration) bool {
	if !c.IsReserved || c.ReservedAt == nil {
		return false
	}
	return time.Since(*c.ReservedAt) > ttl
}

// Format renders the counter's current number as a serial string,
// e.g. "INV-0000123".
func (c *Counter) Format() string {
	return FormatSerial(c.Prefix, c.CurrentNumber)
}

// FormatSerial renders a prefix and number as a serial string
func FormatSerial(prefix string, number int64) string {
	return fmt.Sprintf("%s-%0*d", prefix, numberWidth, number)
}

// Parse splits a formatted serial string into prefix and number.
// Returns ErrInvalidInput for strings that don't match the serial shape.
func Parse(serialNumber string) (string, int64, error) {
	m := serialPattern.FindStringSubmatch(serialNumber)
	if m == nil {
		return "", 0, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Malformed serial number %q", serialNumber))
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return "", 0, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Malformed serial number %q", serialNumber))
	}
	return m[1], n, nil
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return shared.NewDomainError("INVALID_PREFIX", "Serial prefix cannot be empty")
	}
	if len(prefix) > 20 {
		return shared.NewDomainError("INVALID_PREFIX", "Serial prefix cannot exceed 20 characters")
	}
	for _, r := range prefix {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return shared.NewDomainError("INVALID_PREFIX", "Serial prefix must be alphanumeric")
		}
	}
	return nil
}
