package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appbilling "github.com/tradeledger/backend/internal/application/billing"
	"github.com/tradeledger/backend/internal/domain/shared"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) CreatePayment(ctx context.Context, req appbilling.CreatePaymentRequest) ([]appbilling.PaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]appbilling.PaymentResult), args.Error(1)
}

func (m *mockPaymentService) GetPayment(ctx context.Context, tenantID, paymentID uuid.UUID) (*appbilling.PaymentResult, error) {
	args := m.Called(ctx, tenantID, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appbilling.PaymentResult), args.Error(1)
}

func validCreatePaymentBody(invoiceID, customerID uuid.UUID) map[string]any {
	return map[string]any{
		"invoice_id":     invoiceID.String(),
		"customer_id":    customerID.String(),
		"amount_paid":    "50.00",
		"payment_mode":   "CASH",
		"payment_status": "PART_PAYMENT",
	}
}

func TestPaymentHandler_Create(t *testing.T) {
	tenantID := uuid.New()
	invoiceID := uuid.New()
	customerID := uuid.New()

	setup := func() (*mockPaymentService, *gin.Engine) {
		payments := new(mockPaymentService)
		r := newTestEngine(tenantID)
		h := NewPaymentHandler(payments, new(mockCancellationService))
		r.POST("/payments", h.Create)
		return payments, r
	}

	t.Run("applies payment and returns rows", func(t *testing.T) {
		payments, r := setup()
		rows := []appbilling.PaymentResult{{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			CustomerID:  customerID,
			AmountPaid:  decimal.RequireFromString("50.00"),
			PaymentMode: "CASH",
			Status:      "PART_PAYMENT",
		}}
		payments.On("CreatePayment", mock.Anything, mock.MatchedBy(func(req appbilling.CreatePaymentRequest) bool {
			return req.TenantID == tenantID &&
				req.InvoiceID == invoiceID &&
				req.PaymentMode.String() == "CASH" &&
				!req.UseCustomerBalance
		})).Return(rows, nil)

		w := performJSON(t, r, http.MethodPost, "/payments", validCreatePaymentBody(invoiceID, customerID))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "PART_PAYMENT")
		payments.AssertExpectations(t)
	})

	t.Run("balance split request passes both amounts", func(t *testing.T) {
		payments, r := setup()
		body := validCreatePaymentBody(invoiceID, customerID)
		body["use_customer_balance"] = true
		body["customer_balance_amount"] = "20.00"

		payments.On("CreatePayment", mock.Anything, mock.MatchedBy(func(req appbilling.CreatePaymentRequest) bool {
			return req.UseCustomerBalance && req.CustomerBalanceAmount.Equal(decimal.RequireFromString("20.00"))
		})).Return([]appbilling.PaymentResult{}, nil)

		w := performJSON(t, r, http.MethodPost, "/payments", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		payments.AssertExpectations(t)
	})

	t.Run("rejects BALANCE as direct mode", func(t *testing.T) {
		payments, r := setup()
		body := validCreatePaymentBody(invoiceID, customerID)
		body["payment_mode"] = "BALANCE"

		w := performJSON(t, r, http.MethodPost, "/payments", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "ERR_VALIDATION", errorCode(t, w))
		payments.AssertNotCalled(t, "CreatePayment")
	})

	t.Run("rejects CANCELLED as requested status", func(t *testing.T) {
		_, r := setup()
		body := validCreatePaymentBody(invoiceID, customerID)
		body["payment_status"] = "CANCELLED"

		w := performJSON(t, r, http.MethodPost, "/payments", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("maps insufficient balance to 422", func(t *testing.T) {
		payments, r := setup()
		payments.On("CreatePayment", mock.Anything, mock.Anything).
			Return(nil, shared.NewDomainError("INSUFFICIENT_BALANCE", "customer balance too low"))

		w := performJSON(t, r, http.MethodPost, "/payments", validCreatePaymentBody(invoiceID, customerID))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "ERR_INSUFFICIENT_BALANCE", errorCode(t, w))
	})
}

func TestPaymentHandler_GetByID(t *testing.T) {
	tenantID := uuid.New()
	paymentID := uuid.New()

	payments := new(mockPaymentService)
	r := newTestEngine(tenantID)
	h := NewPaymentHandler(payments, new(mockCancellationService))
	r.GET("/payments/:id", h.GetByID)

	t.Run("returns payment", func(t *testing.T) {
		payments.On("GetPayment", mock.Anything, tenantID, paymentID).
			Return(&appbilling.PaymentResult{ID: paymentID, Status: "FULL_PAYMENT"}, nil).Once()

		w := performJSON(t, r, http.MethodGet, "/payments/"+paymentID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "FULL_PAYMENT")
	})

	t.Run("unknown payment yields 404", func(t *testing.T) {
		missing := uuid.New()
		payments.On("GetPayment", mock.Anything, tenantID, missing).
			Return(nil, shared.NewDomainError("NOT_FOUND", "payment not found")).Once()

		w := performJSON(t, r, http.MethodGet, "/payments/"+missing.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPaymentHandler_Cancel(t *testing.T) {
	tenantID := uuid.New()
	paymentID := uuid.New()

	canceller := new(mockCancellationService)
	r := newTestEngine(tenantID)
	h := NewPaymentHandler(new(mockPaymentService), canceller)
	r.POST("/payments/:id/cancel", h.Cancel)

	t.Run("cancels payment", func(t *testing.T) {
		canceller.On("CancelPayment", mock.Anything, tenantID, paymentID, "duplicate entry").
			Return(nil).Once()

		w := performJSON(t, r, http.MethodPost, "/payments/"+paymentID.String()+"/cancel",
			map[string]any{"comment": "duplicate entry"})

		assert.Equal(t, http.StatusNoContent, w.Code)
		canceller.AssertExpectations(t)
	})

	t.Run("cancelled balance-backed row conflict", func(t *testing.T) {
		canceller.On("CancelPayment", mock.Anything, tenantID, paymentID, "").
			Return(shared.NewDomainError("CONFLICT", "payment already cancelled")).Once()

		w := performJSON(t, r, http.MethodPost, "/payments/"+paymentID.String()+"/cancel", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
