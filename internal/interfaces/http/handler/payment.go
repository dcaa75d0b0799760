package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appbilling "github.com/tradeledger/backend/internal/application/billing"
	"github.com/tradeledger/backend/internal/domain/billing"
	"github.com/tradeledger/backend/internal/interfaces/http/dto"
	"github.com/tradeledger/backend/internal/interfaces/http/middleware"
)

type paymentService interface {
	CreatePayment(ctx context.Context, req appbilling.CreatePaymentRequest) ([]appbilling.PaymentResult, error)
	GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*appbilling.PaymentResult, error)
}

type paymentCanceller interface {
	CancelPayment(ctx context.Context, tenantID, paymentID uuid.UUID, comment string) error
}

// PaymentHandler exposes payment application, lookup and cancellation
type PaymentHandler struct {
	BaseHandler
	payments  paymentService
	canceller paymentCanceller
}

func NewPaymentHandler(payments paymentService, canceller paymentCanceller) *PaymentHandler {
	return &PaymentHandler{payments: payments, canceller: canceller}
}

// CreatePaymentRequest applies a payment to an invoice. BALANCE rows are
// created by the balance split, not requested directly, so payment_mode only
// accepts CASH and TRANSFER.
type CreatePaymentRequest struct {
	InvoiceID             uuid.UUID       `json:"invoice_id" binding:"required"`
	CustomerID            uuid.UUID       `json:"customer_id" binding:"required"`
	AmountPaid            decimal.Decimal `json:"amount_paid" binding:"required"`
	PaymentMode           string          `json:"payment_mode" binding:"required,oneof=CASH TRANSFER"`
	PaymentStatus         string          `json:"payment_status" binding:"required,oneof=PART_PAYMENT FULL_PAYMENT"`
	UseCustomerBalance    bool            `json:"use_customer_balance"`
	CustomerBalanceAmount decimal.Decimal `json:"customer_balance_amount"`
}

// Create applies a payment to an invoice
// @Summary Apply a payment
// @Tags payments
// @Param request body CreatePaymentRequest true "Payment payload"
// @Success 201 {object} dto.Response{data=[]billing.PaymentResult}
// @Failure 400 {object} dto.Response
// @Failure 422 {object} dto.Response
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	results, err := h.payments.CreatePayment(c.Request.Context(), appbilling.CreatePaymentRequest{
		TenantID:              middleware.MustGetTenantUUID(c),
		InvoiceID:             req.InvoiceID,
		CustomerID:            req.CustomerID,
		AmountPaid:            req.AmountPaid,
		PaymentMode:           billing.PaymentMode(req.PaymentMode),
		PaymentStatus:         billing.PaymentStatus(req.PaymentStatus),
		UseCustomerBalance:    req.UseCustomerBalance,
		CustomerBalanceAmount: req.CustomerBalanceAmount,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, results)
}

// GetByID fetches one payment row
// @Summary Get a payment by ID
// @Tags payments
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.Response{data=billing.PaymentResult}
// @Failure 404 {object} dto.Response
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.payments.GetPayment(c.Request.Context(),
		middleware.MustGetTenantUUID(c), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Cancel reverses a payment row and rolls the invoice status back
// @Summary Cancel a payment
// @Tags payments
// @Param id path string true "Payment ID"
// @Param request body CancelRequest false "Audit comment"
// @Success 204
// @Failure 409 {object} dto.Response
// @Router /payments/{id}/cancel [post]
func (h *PaymentHandler) Cancel(c *gin.Context) {
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

	err := h.canceller.CancelPayment(c.Request.Context(),
		middleware.MustGetTenantUUID(c), uuid.MustParse(uriReq.ID), req.Comment)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}
