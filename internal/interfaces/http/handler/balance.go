package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appbilling "github.com/tradeledger/backend/internal/application/billing"
	"github.com/tradeledger/backend/internal/interfaces/http/dto"
	"github.com/tradeledger/backend/internal/interfaces/http/middleware"
)

type balanceService interface {
	GetBalance(ctx context.Context, tenantID, customerID uuid.UUID) (*appbilling.CustomerBalanceResult, error)
	Recompute(ctx context.Context, tenantID, customerID uuid.UUID) error
}

// BalanceHandler exposes customer balance aggregates
type BalanceHandler struct {
	BaseHandler
	balances balanceService
}

func NewBalanceHandler(balances balanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// GetBalance returns the cached balance aggregates for a customer
// @Summary Get a customer balance
// @Tags customers
// @Param id path string true "Customer ID"
// @Success 200 {object} dto.Response{data=billing.CustomerBalanceResult}
// @Failure 404 {object} dto.Response
// @Router /customers/{id}/balance [get]
func (h *BalanceHandler) GetBalance(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.balances.GetBalance(c.Request.Context(),
		middleware.MustGetTenantUUID(c), uuid.MustParse(req.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Recompute rebuilds the balance aggregates from the ledger and returns the
// fresh values
// @Summary Recompute a customer balance
// @Tags customers
// @Param id path string true "Customer ID"
// @Success 200 {object} dto.Response{data=billing.CustomerBalanceResult}
// @Router /customers/{id}/balance/recompute [post]
func (h *BalanceHandler) Recompute(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID := middleware.MustGetTenantUUID(c)
	customerID := uuid.MustParse(req.ID)

	if err := h.balances.Recompute(c.Request.Context(), tenantID, customerID); err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.balances.GetBalance(c.Request.Context(), tenantID, customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
