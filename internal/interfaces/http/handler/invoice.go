package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/tradeledger/backend/internal/application/billing"
	"github.com/tradeledger/backend/internal/interfaces/http/dto"
	"github.com/tradeledger/backend/internal/interfaces/http/middleware"
)

type invoiceService interface {
	CreateInvoice(ctx context.Context, req appbilling.CreateInvoiceRequest) (*appbilling.InvoiceResult, error)
	GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*appbilling.InvoiceResult, error)
}

type invoiceCanceller interface {
	CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID, comment string) error
}

// InvoiceHandler exposes invoice creation, lookup and cancellation
type InvoiceHandler struct {
	BaseHandler
	invoices  invoiceService
	canceller invoiceCanceller
}

func NewInvoiceHandler(invoices invoiceService, canceller invoiceCanceller) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, canceller: canceller}
}

// InvoiceLineRequest is one line of a create invoice request
type InvoiceLineRequest struct {
	ProductID     uuid.UUID       `json:"product_id" binding:"required"`
	WarehouseName string          `json:"warehouse_name" binding:"required"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Rate          decimal.Decimal `json:"rate" binding:"required"`
}

// CreateInvoiceRequest creates an invoice against a sales order or a loan
// request. Exactly one of sales_order_id and loan_request_id must be set.
type CreateInvoiceRequest struct {
	CustomerID    uuid.UUID            `json:"customer_id" binding:"required"`
	SalesPersonID uuid.UUID            `json:"sales_person_id" binding:"required"`
	SalesOrderID  *uuid.UUID           `json:"sales_order_id"`
	LoanRequestID *uuid.UUID           `json:"loan_request_id"`
	SerialNumber  string               `json:"serial_number" binding:"required"`
	Lines         []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
	TotalPrice    decimal.Decimal      `json:"total_price" binding:"required"`
}

// CancelRequest carries the audit comment for a cancellation
type CancelRequest struct {
	Comment string `json:"comment" binding:"max=512"`
}

// Create issues an invoice
// @Summary Create an invoice
// @Tags invoices
// @Param request body CreateInvoiceRequest true "Invoice payload"
// @Success 201 {object} dto.Response{data=billing.InvoiceResult}
// @Failure 400 {object} dto.Response
// @Failure 422 {object} dto.Response
// @Router /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	lines := make([]appbilling.InvoiceLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, appbilling.InvoiceLineInput{
			ProductID:     line.ProductID,
			WarehouseName: line.WarehouseName,
			Quantity:      line.Quantity,
			Rate:          line.Rate,
		})
	}

	result, err := h.invoices.CreateInvoice(c.Request.Context(), appbilling.CreateInvoiceRequest{
		TenantID:      middleware.MustGetTenantUUID(c),
		CustomerID:    req.CustomerID,
		SalesPersonID: req.SalesPersonID,
		SalesOrderID:  req.SalesOrderID,
		LoanRequestID: req.LoanRequestID,
		SerialNumber:  req.SerialNumber,
		Lines:         lines,
		TotalPrice:    req.TotalPrice,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID fetches one invoice
// @Summary Get an invoice by ID
// @Tags invoices
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.Response{data=billing.InvoiceResult}
// @Failure 404 {object} dto.Response
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.invoices.GetInvoice(c.Request.Context(),
		middleware.MustGetTenantUUID(c), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel reverses an invoice and everything it touched
// @Summary Cancel an invoice
// @Tags invoices
// @Param id path string true "Invoice ID"
// @Param request body CancelRequest false "Audit comment"
// @Success 204
// @Failure 409 {object} dto.Response
// @Router /invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c *gin.Context) {
	var uriReq dto.IDRequest
	if err := c.ShouldBindUri(&uriReq); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	err := h.canceller.CancelInvoice(c.Request.Context(),
		middleware.MustGetTenantUUID(c), uuid.MustParse(uriReq.ID), req.Comment)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
