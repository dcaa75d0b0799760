package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tradeledger/backend/internal/domain/serial"
	"github.com/tradeledger/backend/internal/interfaces/http/middleware"
)

// serialService is the slice of the serial application service the handler needs
type serialService interface {
	Reserve(ctx context.Context, tenantID uuid.UUID, module serial.Module, prefix string) (string, error)
	Finalize(ctx context.Context, tenantID uuid.UUID, serialNumber string) error
	Release(ctx context.Context, tenantID uuid.UUID, serialNumber string) error
	Next(ctx context.Context, tenantID uuid.UUID, module serial.Module, prefix string) (string, error)
}

// SerialHandler exposes serial number allocation over HTTP
type SerialHandler struct {
	BaseHandler
	service serialService
}

func NewSerialHandler(service serialService) *SerialHandler {
	return &SerialHandler{service: service}
}

// ReserveSerialRequest asks for a serial to be reserved in a module sequence
type ReserveSerialRequest struct {
	Module string `json:"module" binding:"required,oneof=invoice sales_order loan stock_batch"`
	Prefix string `json:"prefix" binding:"required,max=8"`
}

// SerialNumberRequest addresses an already reserved serial
type SerialNumberRequest struct {
	SerialNumber string `json:"serial_number" binding:"required"`
}

// SerialNumberResponse returns an allocated serial
type SerialNumberResponse struct {
	SerialNumber string `json:"serial_number"`
}

// Reserve allocates and reserves the next serial in a sequence
// @Summary Reserve a serial number
// @Tags serials
// @Param request body ReserveSerialRequest true "Module and prefix"
// @Success 201 {object} dto.Response{data=SerialNumberResponse}
// @Failure 400 {object} dto.Response
// @Router /serials/reserve [post]
func (h *SerialHandler) Reserve(c *gin.Context) {
	var req ReserveSerialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID := middleware.MustGetTenantUUID(c)
	number, err := h.service.Reserve(c.Request.Context(), tenantID, serial.Module(req.Module), req.Prefix)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, SerialNumberResponse{SerialNumber: number})
}

// Finalize marks a reserved serial as consumed
// @Summary Finalize a reserved serial number
// @Tags serials
// @Param request body SerialNumberRequest true "Reserved serial"
// @Success 200 {object} dto.Response{data=SerialNumberResponse}
// @Failure 404 {object} dto.Response
// @Router /serials/finalize [post]
func (h *SerialHandler) Finalize(c *gin.Context) {
	var req SerialNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID := middleware.MustGetTenantUUID(c)
	if err := h.service.Finalize(c.Request.Context(), tenantID, req.SerialNumber); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SerialNumberResponse{SerialNumber: req.SerialNumber})
}

// Release returns a reserved serial to the pool
// @Summary Release a reserved serial number
// @Tags serials
// @Param request body SerialNumberRequest true "Reserved serial"
// @Success 204
// @Failure 404 {object} dto.Response
// @Router /serials/release [post]
func (h *SerialHandler) Release(c *gin.Context) {
	var req SerialNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID := middleware.MustGetTenantUUID(c)
	if err := h.service.Release(c.Request.Context(), tenantID, req.SerialNumber); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Next allocates the next serial without a reservation window
// @Summary Allocate the next serial number immediately
// @Tags serials
// @Param request body ReserveSerialRequest true "Module and prefix"
// @Success 201 {object} dto.Response{data=SerialNumberResponse}
// @Router /serials/next [post]
func (h *SerialHandler) Next(c *gin.Context) {
	var req ReserveSerialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	tenantID := middleware.MustGetTenantUUID(c)
	number, err := h.service.Next(c.Request.Context(), tenantID, serial.Module(req.Module), req.Prefix)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, SerialNumberResponse{SerialNumber: number})
}
