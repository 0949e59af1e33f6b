package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mapSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]inventory.CountSession
}

func newMapSessionStore() *mapSessionStore {
	return &mapSessionStore{sessions: make(map[uuid.UUID]inventory.CountSession)}
}

func (s *mapSessionStore) Get(_ context.Context, storeID, sessionID uuid.UUID) (inventory.CountSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.StoreID != storeID {
		return inventory.CountSession{}, shared.ErrNotFound
	}
	return session, nil
}

func (s *mapSessionStore) Put(_ context.Context, session inventory.CountSession, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *mapSessionStore) Delete(_ context.Context, _, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func newCountSessionTestService(t *testing.T, env *testEnv) (*CountSessionService, *mapSessionStore) {
	store := newMapSessionStore()
	return NewCountSessionService(store, env.reconciler, time.Hour, zaptest.NewLogger(t)), store
}

func TestCountSessionService_ScanAndSubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc, _ := newCountSessionTestService(t, env)

	env.record(t, inventory.MovementTypePurchaseReceipt, 20, time.Now().Add(-time.Hour))

	session, err := svc.Start(ctx, StartCountSessionCommand{StoreID: env.storeID, WarehouseID: env.warehouseID, CountedBy: "clerk"})
	require.NoError(t, err)
	assert.True(t, session.IsOpen())

	firstScan := time.Now().Add(-10 * time.Minute)
	_, err = svc.RecordScan(ctx, RecordScanCommand{
		StoreID: env.storeID, SessionID: session.ID, ProductID: env.productID,
		Qty:     decimal.NewFromInt(6), ScannedAt: firstScan,
	})
	require.NoError(t, err)
	updated, err := svc.RecordScan(ctx, RecordScanCommand{
		StoreID: env.storeID, SessionID: session.ID, ProductID: env.productID,
		Qty:     decimal.NewFromInt(5), ScannedAt: time.Now().Add(-5 * time.Minute),
	})
	require.NoError(t, err)
	item := updated.Items[env.productID]
	assert.True(t, item.CountedQty.Equal(decimal.NewFromInt(11)))
	assert.Equal(t, 2, item.Scans)
	assert.True(t, item.FirstScannedAt.Equal(firstScan.UTC()))

	// A sale after the first scan is not counted against the shelf
	env.record(t, inventory.MovementTypeSale, -2, time.Now().Add(-time.Minute))

	resp, err := svc.Submit(ctx, env.storeID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.CountSessionStatusSubmitted, resp.Session.Status)
	require.Len(t, resp.Reconciliation.Results, 1)
	r := resp.Reconciliation.Results[0]
	assert.Equal(t, string(inventory.ResultStatusApplied), r.Status)
	assert.Equal(t, session.ID.String(), r.Reference)
	assert.True(t, r.DeltaApplied.Equal(decimal.NewFromInt(-9)))
	assert.True(t, env.currentQty(t).Equal(decimal.NewFromInt(9)))

	stored, err := svc.Get(ctx, env.storeID, session.ID)
	require.NoError(t, err)
	require.Len(t, stored.Results, 1)
	assert.Equal(t, inventory.ResultStatusApplied, stored.Results[0].Status)

	_, err = svc.Submit(ctx, env.storeID, session.ID)
	assert.ErrorIs(t, err, inventory.ErrCountSessionNotOpen)
	_, err = svc.RecordScan(ctx, RecordScanCommand{
		StoreID: env.storeID, SessionID: session.ID, ProductID: env.productID, Qty: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, inventory.ErrCountSessionNotOpen)
}

func TestCountSessionService_ResubmitAfterCancelledSubmit(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newCountSessionTestService(t, env)
	env.record(t, inventory.MovementTypePurchaseReceipt, 20, time.Now().Add(-time.Hour))

	session, err := svc.Start(context.Background(), StartCountSessionCommand{StoreID: env.storeID, WarehouseID: env.warehouseID})
	require.NoError(t, err)
	_, err = svc.SetCount(context.Background(), SetCountCommand{
		StoreID: env.storeID, SessionID: session.ID, ProductID: env.productID,
		Qty:     decimal.NewFromInt(17), At: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	first, err := svc.Submit(cancelled, env.storeID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.CountSessionStatusIncomplete, first.Session.Status)
	assert.Equal(t, 1, first.Reconciliation.SkippedCount)
	assert.True(t, env.currentQty(t).Equal(decimal.NewFromInt(20)))

	// Frozen until resubmitted
	_, err = svc.SetCount(context.Background(), SetCountCommand{
		StoreID: env.storeID, SessionID: session.ID, ProductID: env.productID, Qty: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, inventory.ErrCountSessionNotOpen)

	second, err := svc.Submit(context.Background(), env.storeID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.CountSessionStatusSubmitted, second.Session.Status)
	assert.Equal(t, 1, second.Reconciliation.AppliedCount)
	assert.True(t, env.currentQty(t).Equal(decimal.NewFromInt(17)))
}

func TestCountSessionService_SetCountAndRemove(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc, _ := newCountSessionTestService(t, env)

	session, err := svc.Start(ctx, StartCountSessionCommand{StoreID: env.storeID})
	require.NoError(t, err)

	updated, err := svc.SetCount(ctx, SetCountCommand{
		StoreID: env.storeID, SessionID: session.ID, ProductID: env.productID, Qty: decimal.NewFromInt(4),
	})
	require.NoError(t, err)
	assert.True(t, updated.Items[env.productID].CountedQty.Equal(decimal.NewFromInt(4)))

	_, err = svc.SetCount(ctx, SetCountCommand{
		StoreID: env.storeID, SessionID: session.ID, ProductID: env.productID, Qty: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, inventory.ErrNegativeCountedQty)

	updated, err = svc.RemoveItem(ctx, env.storeID, session.ID, env.productID)
	require.NoError(t, err)
	assert.Empty(t, updated.Items)

	_, err = svc.RemoveItem(ctx, env.storeID, session.ID, env.productID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Submit(ctx, env.storeID, session.ID)
	require.Error(t, err)
	domainErr, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
}

func TestCountSessionService_Discard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc, store := newCountSessionTestService(t, env)

	session, err := svc.Start(ctx, StartCountSessionCommand{StoreID: env.storeID})
	require.NoError(t, err)
	require.NoError(t, svc.Discard(ctx, env.storeID, session.ID))

	_, err = store.Get(ctx, env.storeID, session.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, svc.Discard(ctx, env.storeID, session.ID), shared.ErrNotFound)

	_, err = svc.Get(ctx, uuid.New(), session.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
