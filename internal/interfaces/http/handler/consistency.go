package handler

import (
	"context"

	inventoryapp "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ConsistencyChecker verifies and rebuilds current stock against the ledger
type ConsistencyChecker interface {
	Verify(ctx context.Context, storeID uuid.UUID) (*inventoryapp.ConsistencyReport, error)
	Rebuild(ctx context.Context, storeID uuid.UUID) (*inventoryapp.RebuildResponse, error)
}

// ConsistencyHandler handles ledger consistency endpoints
type ConsistencyHandler struct {
	BaseHandler
	checker ConsistencyChecker
}

// NewConsistencyHandler creates a new ConsistencyHandler
func NewConsistencyHandler(checker ConsistencyChecker) *ConsistencyHandler {
	return &ConsistencyHandler{checker: checker}
}

// Verify godoc
// @ID           verifyConsistency
// @Summary      Verify current stock against the ledger
// @Description  Compares every pair's current stock with the sum of its movements. Read only.
// @Tags         consistency
// @Produce      json
// @Success      200 {object} APIResponse[inventoryapp.ConsistencyReport]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/consistency [get]
func (h *ConsistencyHandler) Verify(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	report, err := h.checker.Verify(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Rebuild godoc
// @ID           rebuildStock
// @Summary      Rebuild current stock from the ledger
// @Description  Recomputes every pair of the store from its movements. Each pair is rewritten under its row lock.
// @Tags         consistency
// @Produce      json
// @Success      200 {object} APIResponse[inventoryapp.RebuildResponse]
// @Failure      401 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /inventory/consistency/rebuild [post]
func (h *ConsistencyHandler) Rebuild(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	resp, err := h.checker.Rebuild(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
