package handler

import (
	"context"
	"errors"
	"io"
	"time"

	inventoryapp "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CountSessions manages scan sessions ahead of reconciliation
type CountSessions interface {
	Start(ctx context.Context, cmd inventoryapp.StartCountSessionCommand) (inventory.CountSession, error)
	Get(ctx context.Context, storeID, sessionID uuid.UUID) (inventory.CountSession, error)
	RecordScan(ctx context.Context, cmd inventoryapp.RecordScanCommand) (inventory.CountSession, error)
	SetCount(ctx context.Context, cmd inventoryapp.SetCountCommand) (inventory.CountSession, error)
	RemoveItem(ctx context.Context, storeID, sessionID, productID uuid.UUID) (inventory.CountSession, error)
	Discard(ctx context.Context, storeID, sessionID uuid.UUID) error
	Submit(ctx context.Context, storeID, sessionID uuid.UUID) (*inventoryapp.SubmitCountSessionResponse, error)
}

// CountSessionHandler handles count session endpoints
type CountSessionHandler struct {
	BaseHandler
	sessions CountSessions
}

// NewCountSessionHandler creates a new CountSessionHandler
func NewCountSessionHandler(sessions CountSessions) *CountSessionHandler {
	return &CountSessionHandler{sessions: sessions}
}

// StartCountSessionRequest opens a session
type StartCountSessionRequest struct {
	WarehouseID string `json:"warehouse_id" binding:"omitempty,uuid" example:"550e8400-e29b-41d4-a716-446655440002"`
	CountedBy   string `json:"counted_by" binding:"max=100" example:"clerk-7"`
}

// RecordScanRequest is one scan from a device
type RecordScanRequest struct {
	ProductID   string           `json:"product_id" binding:"required,uuid"`
	WarehouseID string           `json:"warehouse_id" binding:"omitempty,uuid"`
	Qty         *decimal.Decimal `json:"qty" binding:"required" swaggertype:"string" example:"1"`
	ScannedAt   time.Time        `json:"scanned_at"`
}

// SetCountRequest overwrites the counted quantity of a product
type SetCountRequest struct {
	Qty *decimal.Decimal `json:"qty" binding:"required,decimal_gte0" swaggertype:"string" example:"12"`
	At  time.Time        `json:"at"`
}

// Start godoc
// @ID           startCountSession
// @Summary      Start a count session
// @Tags         count-sessions
// @Accept       json
// @Produce      json
// @Param        request body StartCountSessionRequest false "Session options"
// @Success      201 {object} APIResponse[inventory.CountSession]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/count-sessions [post]
func (h *CountSessionHandler) Start(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	// The body is optional
	var req StartCountSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BindError(c, err)
		return
	}
	countedBy := req.CountedBy
	if countedBy == "" {
		if claims := middleware.GetClaims(c); claims != nil {
			countedBy = claims.Subject
		}
	}

	session, err := h.sessions.Start(c.Request.Context(), inventoryapp.StartCountSessionCommand{
		StoreID:     storeID,
		WarehouseID: parseOptionalUUID(req.WarehouseID),
		CountedBy:   countedBy,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// Get godoc
// @ID           getCountSession
// @Summary      Get a count session
// @Tags         count-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[inventory.CountSession]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/count-sessions/{id} [get]
func (h *CountSessionHandler) Get(c *gin.Context) {
	storeID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), storeID, sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// RecordScan godoc
// @ID           recordCountScan
// @Summary      Record a scan
// @Description  Adds the scanned quantity to the product's running count
// @Tags         count-sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body RecordScanRequest true "Scan"
// @Success      200 {object} APIResponse[inventory.CountSession]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/count-sessions/{id}/scans [post]
func (h *CountSessionHandler) RecordScan(c *gin.Context) {
	storeID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	var req RecordScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	session, err := h.sessions.RecordScan(c.Request.Context(), inventoryapp.RecordScanCommand{
		StoreID:     storeID,
		SessionID:   sessionID,
		ProductID:   uuid.MustParse(req.ProductID),
		WarehouseID: parseOptionalUUID(req.WarehouseID),
		Qty:         *req.Qty,
		ScannedAt:   req.ScannedAt,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// SetCount godoc
// @ID           setCountSessionItem
// @Summary      Overwrite a product's count
// @Tags         count-sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        request body SetCountRequest true "Count"
// @Success      200 {object} APIResponse[inventory.CountSession]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/count-sessions/{id}/items/{product_id} [put]
func (h *CountSessionHandler) SetCount(c *gin.Context) {
	storeID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	var req SetCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	session, err := h.sessions.SetCount(c.Request.Context(), inventoryapp.SetCountCommand{
		StoreID:   storeID,
		SessionID: sessionID,
		ProductID: productID,
		Qty:       *req.Qty,
		At:        req.At,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// RemoveItem godoc
// @ID           removeCountSessionItem
// @Summary      Remove a product from a session
// @Tags         count-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[inventory.CountSession]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/count-sessions/{id}/items/{product_id} [delete]
func (h *CountSessionHandler) RemoveItem(c *gin.Context) {
	storeID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}

	session, err := h.sessions.RemoveItem(c.Request.Context(), storeID, sessionID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Submit godoc
// @ID           submitCountSession
// @Summary      Submit a count session
// @Description  Reconciles every counted product with the session ID as the reference. Resubmitting after a partial failure replays applied items.
// @Tags         count-sessions
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.SubmitCountSessionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/count-sessions/{id}/submit [post]
func (h *CountSessionHandler) Submit(c *gin.Context) {
	storeID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	resp, err := h.sessions.Submit(c.Request.Context(), storeID, sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Discard godoc
// @ID           discardCountSession
// @Summary      Discard a count session
// @Tags         count-sessions
// @Param        id path string true "Session ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/count-sessions/{id} [delete]
func (h *CountSessionHandler) Discard(c *gin.Context) {
	storeID, sessionID, ok := h.sessionParams(c)
	if !ok {
		return
	}

	if err := h.sessions.Discard(c.Request.Context(), storeID, sessionID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *CountSessionHandler) sessionParams(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	storeID, ok := h.storeID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	sessionID, ok := h.uuidParam(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return storeID, sessionID, true
}

func parseOptionalUUID(s string) uuid.UUID {
	if id := optionalUUID(s); id != nil {
		return *id
	}
	return uuid.Nil
}
