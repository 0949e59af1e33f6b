package handler

import (
	"context"
	"net/http"
	"time"

	inventoryapp "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger appends movements and reads the ledger and current stock
type Ledger interface {
	RecordMovement(ctx context.Context, cmd inventoryapp.RecordMovementCommand) (*inventoryapp.RecordMovementResponse, error)
	GetMovement(ctx context.Context, storeID, movementID uuid.UUID) (*inventoryapp.MovementDTO, error)
	ListMovements(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) (shared.Paginated[inventoryapp.MovementDTO], error)
	GetCurrentStock(ctx context.Context, key inventory.StockKey) (*inventoryapp.CurrentStockDTO, error)
	ListStock(ctx context.Context, storeID uuid.UUID, filter inventory.StockFilter) (shared.Paginated[inventoryapp.CurrentStockDTO], error)
}

// LedgerHandler handles movement and current stock endpoints
type LedgerHandler struct {
	BaseHandler
	ledger Ledger
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledger Ledger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// RecordMovementRequest represents an upstream stock movement
// @Description Request body for appending a movement to the ledger
type RecordMovementRequest struct {
	ProductID   string           `json:"product_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440001"`
	WarehouseID string           `json:"warehouse_id" binding:"required,uuid" example:"550e8400-e29b-41d4-a716-446655440002"`
	Type        string           `json:"type" binding:"required,oneof=sale purchase_receipt return manual_adjustment" example:"sale"`
	QtyDelta    *decimal.Decimal `json:"qty_delta" binding:"required,decimal_ne0" swaggertype:"string" example:"-3"`
	OccurredAt  time.Time        `json:"occurred_at" example:"2024-01-15T10:30:00Z"`
	ReferenceID string           `json:"reference_id" binding:"max=100" example:"SO-2024-001"`
	Note        string           `json:"note" binding:"max=500"`
	Metadata    map[string]any   `json:"metadata"`
}

// RecordMovement godoc
// @ID           recordMovement
// @Summary      Append a stock movement
// @Description  Append a sale, receipt, return or manual adjustment. The server assigns the ledger sequence.
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Param        X-Store-ID header string false "Store ID when no bearer token is sent"
// @Param        request body RecordMovementRequest true "Movement"
// @Success      201 {object} APIResponse[inventoryapp.RecordMovementResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/movements [post]
func (h *LedgerHandler) RecordMovement(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	var req RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.ledger.RecordMovement(c.Request.Context(), inventoryapp.RecordMovementCommand{
		StoreID:     storeID,
		ProductID:   uuid.MustParse(req.ProductID),
		WarehouseID: uuid.MustParse(req.WarehouseID),
		Type:        inventory.MovementType(req.Type),
		QtyDelta:    *req.QtyDelta,
		OccurredAt:  req.OccurredAt,
		ReferenceID: req.ReferenceID,
		Note:        req.Note,
		Metadata:    req.Metadata,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// GetMovement godoc
// @ID           getMovement
// @Summary      Get a movement
// @Tags         ledger
// @Produce      json
// @Param        id path string true "Movement ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.MovementDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/movements/{id} [get]
func (h *LedgerHandler) GetMovement(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	movement, err := h.ledger.GetMovement(c.Request.Context(), storeID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// MovementListRequest holds the ledger query parameters
type MovementListRequest struct {
	dto.ListRequest
	ProductID     string     `form:"product_id" binding:"omitempty,uuid"`
	WarehouseID   string     `form:"warehouse_id" binding:"omitempty,uuid"`
	Type          string     `form:"type" binding:"omitempty,oneof=sale purchase_receipt return manual_adjustment count_correction"`
	ReferenceID   string     `form:"reference_id"`
	From          *time.Time `form:"from"`
	To            *time.Time `form:"to"`
	AfterSequence int64      `form:"after_sequence" binding:"gte=0"`
}

// ListMovements godoc
// @ID           listMovements
// @Summary      List ledger movements
// @Description  Movements of the store, newest sequence first
// @Tags         ledger
// @Produce      json
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        warehouse_id query string false "Warehouse ID" format(uuid)
// @Param        type query string false "Movement type"
// @Param        reference_id query string false "Upstream reference"
// @Param        from query string false "Occurred at or after (RFC3339)"
// @Param        to query string false "Occurred before (RFC3339)"
// @Param        after_sequence query int false "Only movements with a greater sequence"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]inventoryapp.MovementDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/movements [get]
func (h *LedgerHandler) ListMovements(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	var req MovementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := inventory.MovementFilter{
		Filter:        req.ToFilter(),
		ProductID:     optionalUUID(req.ProductID),
		WarehouseID:   optionalUUID(req.WarehouseID),
		ReferenceID:   req.ReferenceID,
		From:          req.From,
		To:            req.To,
		AfterSequence: req.AfterSequence,
	}
	if req.Type != "" {
		t := inventory.MovementType(req.Type)
		filter.Type = &t
	}

	page, err := h.ledger.ListMovements(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// StockListRequest holds the current stock query parameters
type StockListRequest struct {
	dto.ListRequest
	ProductID    string `form:"product_id" binding:"omitempty,uuid"`
	WarehouseID  string `form:"warehouse_id" binding:"omitempty,uuid"`
	NegativeOnly bool   `form:"negative_only"`
	Below        string `form:"below" binding:"omitempty,numeric"`
}

// ListStock godoc
// @ID           listStock
// @Summary      List current stock
// @Tags         stock
// @Produce      json
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        warehouse_id query string false "Warehouse ID" format(uuid)
// @Param        negative_only query boolean false "Only pairs below zero"
// @Param        below query string false "Only pairs with qty below this threshold"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]inventoryapp.CurrentStockDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock [get]
func (h *LedgerHandler) ListStock(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	var req StockListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := inventory.StockFilter{
		Filter:       req.ToFilter(),
		ProductID:    optionalUUID(req.ProductID),
		WarehouseID:  optionalUUID(req.WarehouseID),
		NegativeOnly: req.NegativeOnly,
	}
	if req.Below != "" {
		below, err := decimal.NewFromString(req.Below)
		if err != nil {
			h.BadRequest(c, "below must be a number")
			return
		}
		filter.Below = &below
	}

	page, err := h.ledger.ListStock(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}

// GetCurrentStock godoc
// @ID           getCurrentStock
// @Summary      Get current stock of a product
// @Description  Current quantity of one product. Without warehouse_id the store's default warehouse is used; a pair with no movements reads as zero.
// @Tags         stock
// @Produce      json
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        warehouse_id query string false "Warehouse ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.CurrentStockDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/stock/{product_id} [get]
func (h *LedgerHandler) GetCurrentStock(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	productID, ok := h.uuidParam(c, "product_id")
	if !ok {
		return
	}
	var warehouseID uuid.UUID
	if raw := c.Query("warehouse_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid warehouse_id format")
			return
		}
		warehouseID = id
	}

	stock, err := h.ledger.GetCurrentStock(c.Request.Context(), inventory.NewStockKey(storeID, productID, warehouseID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stock)
}

// optionalUUID parses a query value already validated by binding
func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
