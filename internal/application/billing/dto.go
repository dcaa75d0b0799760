package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tradeledger/backend/internal/domain/billing"
)

// InvoiceLineInput is one validated invoice line from the caller
type InvoiceLineInput struct {
	ProductID     uuid.UUID
	WarehouseName string
	Quantity      decimal.Decimal
	Rate          decimal.Decimal
}

// CreateInvoiceRequest carries the validated input for invoice creation.
// Exactly one of SalesOrderID and LoanRequestID must be set.
type CreateInvoiceRequest struct {
	TenantID      uuid.UUID
	CustomerID    uuid.UUID
	SalesPersonID uuid.UUID
	SalesOrderID  *uuid.UUID
	LoanRequestID *uuid.UUID
	SerialNumber  string
	Lines         []InvoiceLineInput
	TotalPrice    decimal.Decimal
}

// InvoiceResult is the view of a created or fetched invoice
type InvoiceResult struct {
	ID            uuid.UUID           `json:"id"`
	SerialNumber  string              `json:"serial_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	SalesOrderID  *uuid.UUID          `json:"sales_order_id,omitempty"`
	LoanRequestID *uuid.UUID          `json:"loan_request_id,omitempty"`
	TotalPrice    decimal.Decimal     `json:"total_price"`
	PaymentStatus string              `json:"payment_status"`
	Lines         []InvoiceLineResult `json:"lines"`
}

// InvoiceLineResult is the view of one invoice line
type InvoiceLineResult struct {
	ProductID     uuid.UUID       `json:"product_id"`
	WarehouseName string          `json:"warehouse_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Rate          decimal.Decimal `json:"rate"`
	Amount        decimal.Decimal `json:"amount"`
}

// ToInvoiceResult maps an invoice aggregate to its result view
func ToInvoiceResult(inv *billing.Invoice) *InvoiceResult {
	lines := make([]InvoiceLineResult, 0, len(inv.Items))
	for _, item := range inv.Items {
		lines = append(lines, InvoiceLineResult{
			ProductID:     item.ProductID,
			WarehouseName: item.WarehouseName,
			Quantity:      item.Quantity,
			Rate:          item.Rate,
			Amount:        item.Amount,
		})
	}
	return &InvoiceResult{
		ID:            inv.ID,
		SerialNumber:  inv.SerialNumber,
		CustomerID:    inv.CustomerID,
		SalesOrderID:  inv.SalesOrderID,
		LoanRequestID: inv.LoanRequestID,
		TotalPrice:    inv.TotalPrice,
		PaymentStatus: inv.PaymentStatus.String(),
		Lines:         lines,
	}
}

// CreatePaymentRequest carries the validated input for applying a payment.
// CustomerBalanceAmount is only consulted when UseCustomerBalance is set.
type CreatePaymentRequest struct {
	TenantID              uuid.UUID
	InvoiceID             uuid.UUID
	CustomerID            uuid.UUID
	AmountPaid            decimal.Decimal
	PaymentMode           billing.PaymentMode
	PaymentStatus         billing.PaymentStatus
	UseCustomerBalance    bool
	CustomerBalanceAmount decimal.Decimal
}

// PaymentResult is the view of one created payment row
type PaymentResult struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	PaymentMode string          `json:"payment_mode"`
	Status      string          `json:"status"`
}

// ToPaymentResult maps a payment aggregate to its result view
func ToPaymentResult(p *billing.Payment) PaymentResult {
	return PaymentResult{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		CustomerID:  p.CustomerID,
		AmountPaid:  p.AmountPaid,
		PaymentMode: p.PaymentMode.String(),
		Status:      p.Status.String(),
	}
}

// CustomerBalanceResult is the view of a customer's cached aggregates
type CustomerBalanceResult struct {
	CustomerID         uuid.UUID       `json:"customer_id"`
	Balance            decimal.Decimal `json:"balance"`
	TotalInvoiceAmount decimal.Decimal `json:"total_invoice_amount"`
	TotalPaymentAmount decimal.Decimal `json:"total_payment_amount"`
}
