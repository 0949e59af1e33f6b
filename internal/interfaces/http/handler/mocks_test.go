package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"

	inventoryapp "github.com/erp/stockrecon/internal/application/inventory"
	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, cmd inventoryapp.ReconcileCommand) (*inventoryapp.ReconcileResponse, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ReconcileResponse), args.Error(1)
}

func (m *MockReconciler) ListResults(ctx context.Context, storeID uuid.UUID, filter inventory.ResultFilter) (shared.Paginated[inventoryapp.ReconciliationResultDTO], error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).(shared.Paginated[inventoryapp.ReconciliationResultDTO]), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) RecordMovement(ctx context.Context, cmd inventoryapp.RecordMovementCommand) (*inventoryapp.RecordMovementResponse, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.RecordMovementResponse), args.Error(1)
}

func (m *MockLedger) GetMovement(ctx context.Context, storeID, movementID uuid.UUID) (*inventoryapp.MovementDTO, error) {
	args := m.Called(ctx, storeID, movementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.MovementDTO), args.Error(1)
}

func (m *MockLedger) ListMovements(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) (shared.Paginated[inventoryapp.MovementDTO], error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).(shared.Paginated[inventoryapp.MovementDTO]), args.Error(1)
}

func (m *MockLedger) GetCurrentStock(ctx context.Context, key inventory.StockKey) (*inventoryapp.CurrentStockDTO, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.CurrentStockDTO), args.Error(1)
}

func (m *MockLedger) ListStock(ctx context.Context, storeID uuid.UUID, filter inventory.StockFilter) (shared.Paginated[inventoryapp.CurrentStockDTO], error) {
	args := m.Called(ctx, storeID, filter)
	return args.Get(0).(shared.Paginated[inventoryapp.CurrentStockDTO]), args.Error(1)
}

type MockConsistencyChecker struct {
	mock.Mock
}

func (m *MockConsistencyChecker) Verify(ctx context.Context, storeID uuid.UUID) (*inventoryapp.ConsistencyReport, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ConsistencyReport), args.Error(1)
}

func (m *MockConsistencyChecker) Rebuild(ctx context.Context, storeID uuid.UUID) (*inventoryapp.RebuildResponse, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.RebuildResponse), args.Error(1)
}

type MockCountSessions struct {
	mock.Mock
}

func (m *MockCountSessions) Start(ctx context.Context, cmd inventoryapp.StartCountSessionCommand) (inventory.CountSession, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(inventory.CountSession), args.Error(1)
}

func (m *MockCountSessions) Get(ctx context.Context, storeID, sessionID uuid.UUID) (inventory.CountSession, error) {
	args := m.Called(ctx, storeID, sessionID)
	return args.Get(0).(inventory.CountSession), args.Error(1)
}

func (m *MockCountSessions) RecordScan(ctx context.Context, cmd inventoryapp.RecordScanCommand) (inventory.CountSession, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(inventory.CountSession), args.Error(1)
}

func (m *MockCountSessions) SetCount(ctx context.Context, cmd inventoryapp.SetCountCommand) (inventory.CountSession, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(inventory.CountSession), args.Error(1)
}

func (m *MockCountSessions) RemoveItem(ctx context.Context, storeID, sessionID, productID uuid.UUID) (inventory.CountSession, error) {
	args := m.Called(ctx, storeID, sessionID, productID)
	return args.Get(0).(inventory.CountSession), args.Error(1)
}

func (m *MockCountSessions) Discard(ctx context.Context, storeID, sessionID uuid.UUID) error {
	args := m.Called(ctx, storeID, sessionID)
	return args.Error(0)
}

func (m *MockCountSessions) Submit(ctx context.Context, storeID, sessionID uuid.UUID) (*inventoryapp.SubmitCountSessionResponse, error) {
	args := m.Called(ctx, storeID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.SubmitCountSessionResponse), args.Error(1)
}

// scopedEngine returns an engine whose routes run with storeID already resolved
func scopedEngine(storeID uuid.UUID) *gin.Engine {
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		if storeID != uuid.Nil {
			c.Set(middleware.StoreIDKey, storeID)
		}
		c.Next()
	})
	return engine
}

func doRequest(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

