package serial

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCounter(t *testing.T) {
	tenantID := uuid.New()

	t.Run("starts at number 1 unreserved", func(t *testing.T) {
		c, err := NewCounter(tenantID, ModuleInvoice, "INV")
		require.NoError(t, err)
		assert.Equal(t, int64(1), c.CurrentNumber)
		assert.False(t, c.IsReserved)
		assert.Equal(t, tenantID, c.TenantID)
	})

	t.Run("rejects unknown module", func(t *testing.T) {
		_, err := NewCounter(tenantID, Module("payroll"), "PAY")
		assert.Error(t, err)
	})

	t.Run("rejects empty prefix", func(t *testing.T) {
		_, err := NewCounter(tenantID, ModuleInvoice, "")
		assert.Error(t, err)
	})

	t.Run("rejects non-alphanumeric prefix", func(t *testing.T) {
		_, err := NewCounter(tenantID, ModuleInvoice, "IN V")
		assert.Error(t, err)
	})
}

func TestCounterLifecycle(t *testing.T) {
	c, err := NewCounter(uuid.New(), ModuleInvoice, "INV")
	require.NoError(t, err)

	t.Run("Increment only moves forward", func(t *testing.T) {
		c.Increment()
		c.Increment()
		assert.Equal(t, int64(3), c.CurrentNumber)
	})

	t.Run("Reserve stamps the reservation", func(t *testing.T) {
		c.Reserve()
		assert.True(t, c.IsReserved)
		require.NotNil(t, c.ReservedAt)
	})

	t.Run("ClearReservation frees the slot", func(t *testing.T) {
		c.ClearReservation()
		assert.False(t, c.IsReserved)
		assert.Nil(t, c.ReservedAt)
	})
}

func TestReservationExpired(t *testing.T) {
	c, err := NewCounter(uuid.New(), ModuleInvoice, "INV")
	require.NoError(t, err)

	t.Run("unreserved counter never expires", func(t *testing.T) {
		assert.False(t, c.ReservationExpired(time.Minute))
	})

	t.Run("fresh reservation is not expired", func(t *testing.T) {
		c.Reserve()
		assert.False(t, c.ReservationExpired(time.Minute))
	})

	t.Run("stale reservation expires", func(t *testing.T) {
		old := time.Now().Add(-time.Hour)
		c.ReservedAt = &old
		assert.True(t, c.ReservationExpired(time.Minute))
	})
}

func TestFormatAndParse(t *testing.T) {
	t.Run("Format zero-pads to seven digits", func(t *testing.T) {
		assert.Equal(t, "INV-0000123", FormatSerial("INV", 123))
		assert.Equal(t, "B-0000001", FormatSerial("B", 1))
	})

	t.Run("Counter Format uses its own prefix and number", func(t *testing.T) {
		c, err := NewCounter(uuid.New(), ModuleInvoice, "INV")
		require.NoError(t, err)
		assert.Equal(t, "INV-0000001", c.Format())
	})

	t.Run("Parse round-trips Format", func(t *testing.T) {
		prefix, number, err := Parse(FormatSerial("INV", 42))
		require.NoError(t, err)
		assert.Equal(t, "INV", prefix)
		assert.Equal(t, int64(42), number)
	})

	t.Run("Parse round-trips beyond the padded width", func(t *testing.T) {
		// past 9999999 the number no longer fits seven digits
		formatted := FormatSerial("INV", 10000000)
		assert.Equal(t, "INV-10000000", formatted)

		prefix, number, err := Parse(formatted)
		require.NoError(t, err)
		assert.Equal(t, "INV", prefix)
		assert.Equal(t, int64(10000000), number)
	})

	t.Run("Parse rejects malformed serials", func(t *testing.T) {
		for _, s := range []string{"", "INV", "INV-", "INV-123", "INV 0000123", "-0000123"} {
			_, _, err := Parse(s)
			assert.Error(t, err, s)
		}
	})
}
