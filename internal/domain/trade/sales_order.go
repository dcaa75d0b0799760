package trade

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradeledger/backend/internal/domain/shared"
)

// OrderStatus represents the status of a sales order
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusApproved  OrderStatus = "APPROVED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusApproved, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// SalesOrder is an approved-for-invoicing fulfillment request. Orders are
// created and approved upstream; the invoice engine consumes them, driving
// APPROVED orders to COMPLETED when an invoice is raised against them.
type SalesOrder struct {
	shared.TenantAggregateRoot
	SerialNumber string      `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_order_tenant_serial,priority:2"`
	CustomerID   uuid.UUID   `gorm:"type:uuid;not null;index"`
	Status       OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (SalesOrder) TableName() string {
	return "sales_orders"
}

// NewSalesOrder creates a new sales order in PENDING status
func NewSalesOrder(tenantID uuid.UUID, serialNumber string, customerID uuid.UUID) (*SalesOrder, error) {
	if serialNumber == "" {
		return nil, shared.NewDomainError("INVALID_SERIAL", "Sales order serial number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	return &SalesOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SerialNumber:        serialNumber,
		CustomerID:          customerID,
		Status:              OrderStatusPending,
	}, nil
}

// Approve marks the order ready for invoicing
func (o *SalesOrder) Approve() error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("CONFLICT", fmt.Sprintf("Cannot approve order in %s status", o.Status))
	}
	o.Status = OrderStatusApproved
	o.UpdatedAt = time.Now()
	return nil
}

// EnsureInvoiceable returns a Conflict error unless the order is APPROVED.
// Completed orders report "already completed" so double invoicing surfaces as
// a distinct message from never-approved orders.
func (o *SalesOrder) EnsureInvoiceable() error {
	switch o.Status {
	case OrderStatusApproved:
		return nil
	case OrderStatusCompleted:
		return shared.NewDomainError("CONFLICT", "Sales order already completed")
	case OrderStatusCancelled:
		return shared.NewDomainError("CONFLICT", "Sales order already cancelled")
	default:
		return shared.NewDomainError("CONFLICT", "Sales order not approved")
	}
}

// Complete transitions an APPROVED order to COMPLETED
func (o *SalesOrder) Complete() error {
	if err := o.EnsureInvoiceable(); err != nil {
		return err
	}
	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now
	return nil
}

// IsCompleted returns true if the order is completed
func (o *SalesOrder) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}
