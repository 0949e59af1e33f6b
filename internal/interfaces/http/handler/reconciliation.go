package handler

import (
	"context"
	"encoding/json"
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

// Reconciler runs count reconciliation and exposes its audit trail
type Reconciler interface {
	Reconcile(ctx context.Context, cmd inventoryapp.ReconcileCommand) (*inventoryapp.ReconcileResponse, error)
	ListResults(ctx context.Context, storeID uuid.UUID, filter inventory.ResultFilter) (shared.Paginated[inventoryapp.ReconciliationResultDTO], error)
}

// ReconciliationHandler handles count reconciliation endpoints
type ReconciliationHandler struct {
	BaseHandler
	reconciler Reconciler
}

// NewReconciliationHandler creates a new ReconciliationHandler
func NewReconciliationHandler(reconciler Reconciler) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// CountItemRequest is one counted product. Only the idempotency key is
// checked at binding; every other field is decoded per item so one bad line
// fails that item instead of the batch.
// @Description One physical count line
type CountItemRequest struct {
	ProductID      string          `json:"product_id" example:"550e8400-e29b-41d4-a716-446655440001"`
	WarehouseID    string          `json:"warehouse_id" example:"550e8400-e29b-41d4-a716-446655440002"`
	CountedQty     json.RawMessage `json:"counted_qty" swaggertype:"string" example:"45"`
	CountedAt      string          `json:"counted_at" example:"2024-01-15T10:30:00Z"`
	IdempotencyKey string          `json:"idempotency_key" binding:"max=200" example:"device-7:2024-01-15:sku-1"`
}

// ToInput decodes the line. A product that is not a UUID stays unset and
// fails as an unknown product; a bad counted_at stays zero.
func (r CountItemRequest) ToInput() inventoryapp.CountItemInput {
	input := inventoryapp.CountItemInput{IdempotencyKey: r.IdempotencyKey}
	if id, err := uuid.Parse(r.ProductID); err == nil {
		input.ProductID = id
	}
	if r.WarehouseID != "" {
		id, err := uuid.Parse(r.WarehouseID)
		if err != nil {
			input.Malformed = inventory.ErrUnknownWarehouse
		} else {
			input.WarehouseID = &id
		}
	}
	if at, err := time.Parse(time.RFC3339Nano, r.CountedAt); err == nil {
		input.CountedAt = at
	}
	qty, ok := decodeQty(r.CountedQty)
	if !ok && input.Malformed == nil {
		input.Malformed = inventory.ErrInvalidCountedQty
	}
	input.CountedQty = qty
	return input
}

// decodeQty accepts a JSON number or a numeric string
func decodeQty(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, false
	}
	var qty decimal.Decimal
	if err := qty.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, false
	}
	return qty, true
}

// ReconcileRequest is a batch of counts
// @Description Request body for reconciling physical counts
type ReconcileRequest struct {
	Reference string             `json:"reference" binding:"max=100" example:"aisle-4-cycle-count"`
	CountedBy string             `json:"counted_by" binding:"max=100" example:"clerk-17"`
	Items     []CountItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToCommand converts the request for the reconciliation service
func (r ReconcileRequest) ToCommand(storeID uuid.UUID) inventoryapp.ReconcileCommand {
	cmd := inventoryapp.ReconcileCommand{
		StoreID:   storeID,
		Reference: r.Reference,
		CountedBy: r.CountedBy,
		Items:     make([]inventoryapp.CountItemInput, 0, len(r.Items)),
	}
	for _, item := range r.Items {
		cmd.Items = append(cmd.Items, item.ToInput())
	}
	return cmd
}

// Reconcile godoc
// @ID           reconcileCounts
// @Summary      Reconcile physical counts
// @Description  Apply a batch of point-in-time counts. Each item succeeds or fails on its own; the call answers 200 with per-item results even when some items failed.
// @Tags         reconciliation
// @Accept       json
// @Produce      json
// @Param        X-Store-ID header string false "Store ID when no bearer token is sent"
// @Param        request body ReconcileRequest true "Counts"
// @Success      200 {object} APIResponse[inventoryapp.ReconcileResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reconciliations [post]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.reconciler.Reconcile(c.Request.Context(), req.ToCommand(storeID))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ResultListRequest holds the audit trail query parameters
type ResultListRequest struct {
	dto.ListRequest
	Reference string     `form:"reference"`
	ProductID string     `form:"product_id" binding:"omitempty,uuid"`
	Status    string     `form:"status" binding:"omitempty,oneof=applied no_op skipped failed"`
	From      *time.Time `form:"from"`
	To        *time.Time `form:"to"`
}

// ListResults godoc
// @ID           listReconciliationResults
// @Summary      List reconciliation results
// @Description  Audit trail of reconciliation outcomes, newest first
// @Tags         reconciliation
// @Produce      json
// @Param        X-Store-ID header string false "Store ID when no bearer token is sent"
// @Param        reference query string false "Batch reference"
// @Param        product_id query string false "Product ID" format(uuid)
// @Param        status query string false "Result status" Enums(applied, no_op, skipped, failed)
// @Param        from query string false "Counted at or after (RFC3339)"
// @Param        to query string false "Counted before (RFC3339)"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(200)
// @Success      200 {object} APIResponse[[]inventoryapp.ReconciliationResultDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/reconciliations/results [get]
func (h *ReconciliationHandler) ListResults(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	var req ResultListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := inventory.ResultFilter{
		Filter:    req.ToFilter(),
		Reference: req.Reference,
		ProductID: optionalUUID(req.ProductID),
		From:      req.From,
		To:        req.To,
	}
	if req.Status != "" {
		status := inventory.ResultStatus(req.Status)
		filter.Status = &status
	}

	page, err := h.reconciler.ListResults(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPaginatedResponse(page))
}
