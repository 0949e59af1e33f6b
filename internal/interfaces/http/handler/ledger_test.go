package handler

import (
	"net/http"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLedgerEngine(storeID uuid.UUID, ledger Ledger) *gin.Engine {
	h := NewLedgerHandler(ledger)
	engine := scopedEngine(storeID)
	engine.POST("/inventory/movements", h.RecordMovement)
	engine.GET("/inventory/movements", h.ListMovements)
	engine.GET("/inventory/movements/:id", h.GetMovement)
	engine.GET("/inventory/stock", h.ListStock)
	engine.GET("/inventory/stock/:product_id", h.GetCurrentStock)
	return engine
}

func TestLedgerHandler_RecordMovement(t *testing.T) {
	storeID := uuid.New()
	productID := uuid.New()
	warehouseID := uuid.New()

	ledger := new(MockLedger)
	ledger.On("RecordMovement", mock.Anything, mock.MatchedBy(func(cmd inventoryapp.RecordMovementCommand) bool {
		return cmd.StoreID == storeID &&
			cmd.ProductID == productID &&
			cmd.WarehouseID == warehouseID &&
			cmd.Type == inventory.MovementTypeSale &&
			cmd.QtyDelta.Equal(decimal.NewFromInt(-3)) &&
			cmd.ReferenceID == "SO-1"
	})).Return(&inventoryapp.RecordMovementResponse{
		Movement:      inventoryapp.MovementDTO{ID: uuid.New(), Sequence: 7, Type: "sale"},
		ResultingQty:  decimal.NewFromInt(-1),
		NegativeStock: true,
	}, nil)

	engine := newLedgerEngine(storeID, ledger)
	w := doRequest(engine, http.MethodPost, "/inventory/movements", map[string]any{
		"product_id":   productID,
		"warehouse_id": warehouseID,
		"type":         "sale",
		"qty_delta":    "-3",
		"occurred_at":  time.Now().UTC(),
		"reference_id": "SO-1",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeResponse(t, w).Data.(map[string]any)
	assert.Equal(t, true, data["negative_stock"])
	ledger.AssertExpectations(t)
}

func TestLedgerHandler_RecordMovementValidation(t *testing.T) {
	valid := func() map[string]any {
		return map[string]any{
			"product_id":   uuid.New(),
			"warehouse_id": uuid.New(),
			"type":         "purchase_receipt",
			"qty_delta":    "5",
		}
	}
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"zero delta", func(b map[string]any) { b["qty_delta"] = "0" }, "qty_delta"},
		{"count correction is not accepted", func(b map[string]any) { b["type"] = "count_correction" }, "type"},
		{"unknown type", func(b map[string]any) { b["type"] = "transfer" }, "type"},
		{"missing warehouse", func(b map[string]any) { delete(b, "warehouse_id") }, "warehouse_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := new(MockLedger)
			engine := newLedgerEngine(uuid.New(), ledger)
			body := valid()
			tt.mutate(body)

			w := doRequest(engine, http.MethodPost, "/inventory/movements", body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			require.NotEmpty(t, resp.Error.Details)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			ledger.AssertNotCalled(t, "RecordMovement", mock.Anything, mock.Anything)
		})
	}
}

func TestLedgerHandler_RecordMovementUnknownProduct(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("RecordMovement", mock.Anything, mock.Anything).Return(nil, inventory.ErrUnknownProduct)
	engine := newLedgerEngine(uuid.New(), ledger)

	w := doRequest(engine, http.MethodPost, "/inventory/movements", map[string]any{
		"product_id":   uuid.New(),
		"warehouse_id": uuid.New(),
		"type":         "return",
		"qty_delta":    "1",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, dto.ErrCodeUnknownProduct, decodeResponse(t, w).Error.Code)
}

func TestLedgerHandler_GetMovement(t *testing.T) {
	storeID := uuid.New()
	movementID := uuid.New()

	ledger := new(MockLedger)
	ledger.On("GetMovement", mock.Anything, storeID, movementID).
		Return(&inventoryapp.MovementDTO{ID: movementID, Sequence: 3}, nil)
	ledger.On("GetMovement", mock.Anything, storeID, mock.Anything).Return(nil, shared.ErrNotFound)
	engine := newLedgerEngine(storeID, ledger)

	w := doRequest(engine, http.MethodGet, "/inventory/movements/"+movementID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeResponse(t, w).Data.(map[string]any)["sequence"])

	w = doRequest(engine, http.MethodGet, "/inventory/movements/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(engine, http.MethodGet, "/inventory/movements/nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_ListMovements(t *testing.T) {
	storeID := uuid.New()
	productID := uuid.New()

	ledger := new(MockLedger)
	ledger.On("ListMovements", mock.Anything, storeID, mock.MatchedBy(func(f inventory.MovementFilter) bool {
		return f.ProductID != nil && *f.ProductID == productID &&
			f.WarehouseID == nil &&
			f.Type != nil && *f.Type == inventory.MovementTypeCountCorrection &&
			f.AfterSequence == 40 &&
			f.From != nil
	})).Return(shared.NewPaginated([]inventoryapp.MovementDTO{{Sequence: 41}}, 1, 1, 20), nil)
	engine := newLedgerEngine(storeID, ledger)

	w := doRequest(engine, http.MethodGet, "/inventory/movements?type=count_correction&after_sequence=40&from=2024-01-01T00:00:00Z&product_id="+productID.String(), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.Equal(t, int64(1), resp.Meta.Total)
	ledger.AssertExpectations(t)

	w = doRequest(engine, http.MethodGet, "/inventory/movements?page_size=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_ListStock(t *testing.T) {
	storeID := uuid.New()

	ledger := new(MockLedger)
	ledger.On("ListStock", mock.Anything, storeID, mock.MatchedBy(func(f inventory.StockFilter) bool {
		return f.NegativeOnly
	})).Return(shared.NewPaginated([]inventoryapp.CurrentStockDTO{{Qty: decimal.NewFromInt(-2), IsNegative: true}}, 1, 1, 20), nil)
	engine := newLedgerEngine(storeID, ledger)

	w := doRequest(engine, http.MethodGet, "/inventory/stock?negative_only=true", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	items := decodeResponse(t, w).Data.([]any)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].(map[string]any)["is_negative"])
}

func TestLedgerHandler_ListStockBelowThreshold(t *testing.T) {
	storeID := uuid.New()

	ledger := new(MockLedger)
	ledger.On("ListStock", mock.Anything, storeID, mock.MatchedBy(func(f inventory.StockFilter) bool {
		return f.Below != nil && f.Below.Equal(decimal.RequireFromString("5.5"))
	})).Return(shared.NewPaginated([]inventoryapp.CurrentStockDTO{{Qty: decimal.NewFromInt(2)}}, 1, 1, 20), nil)
	engine := newLedgerEngine(storeID, ledger)

	w := doRequest(engine, http.MethodGet, "/inventory/stock?below=5.5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decodeResponse(t, w).Data.([]any), 1)
	ledger.AssertExpectations(t)

	w = doRequest(engine, http.MethodGet, "/inventory/stock?below=low", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLedgerHandler_GetCurrentStock(t *testing.T) {
	storeID := uuid.New()
	productID := uuid.New()
	warehouseID := uuid.New()

	ledger := new(MockLedger)
	ledger.On("GetCurrentStock", mock.Anything, inventory.NewStockKey(storeID, productID, warehouseID)).
		Return(&inventoryapp.CurrentStockDTO{ProductID: productID, WarehouseID: warehouseID, Qty: decimal.NewFromInt(12)}, nil)
	ledger.On("GetCurrentStock", mock.Anything, inventory.NewStockKey(storeID, productID, uuid.Nil)).
		Return(&inventoryapp.CurrentStockDTO{ProductID: productID, Qty: decimal.Zero}, nil)
	engine := newLedgerEngine(storeID, ledger)

	w := doRequest(engine, http.MethodGet, "/inventory/stock/"+productID.String()+"?warehouse_id="+warehouseID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12", decodeResponse(t, w).Data.(map[string]any)["qty"])

	w = doRequest(engine, http.MethodGet, "/inventory/stock/"+productID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(engine, http.MethodGet, "/inventory/stock/"+productID.String()+"?warehouse_id=bad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	ledger.AssertExpectations(t)
}
