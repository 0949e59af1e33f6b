package inventory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{
		events: make([]shared.DomainEvent, 0),
	}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// MockCatalogReader is a mock implementation of inventory.CatalogReader
type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) ProductExists(ctx context.Context, storeID, productID uuid.UUID) (bool, error) {
	args := m.Called(ctx, storeID, productID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogReader) WarehouseBelongsTo(ctx context.Context, storeID, warehouseID uuid.UUID) (bool, error) {
	args := m.Called(ctx, storeID, warehouseID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogReader) DefaultWarehouse(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

// fakeLedger is an in-memory movement ledger with a global sequence
type fakeLedger struct {
	mu        sync.Mutex
	movements []inventory.StockMovement
	appendErr error
}

func (l *fakeLedger) Append(_ context.Context, m *inventory.StockMovement) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return 0, l.appendErr
	}
	m.Sequence = int64(len(l.movements) + 1)
	l.movements = append(l.movements, *m)
	return m.Sequence, nil
}

func (l *fakeLedger) SumDeltasSince(ctx context.Context, key inventory.StockKey, after int64) (decimal.Decimal, error) {
	return l.SumDeltasBetween(ctx, key, after, int64(1<<62))
}

func (l *fakeLedger) SumDeltasBetween(_ context.Context, key inventory.StockKey, after, through int64) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := decimal.Zero
	for _, m := range l.movements {
		if m.Key() == key && m.Sequence > after && m.Sequence <= through {
			sum = sum.Add(m.QtyDelta)
		}
	}
	return sum, nil
}

func (l *fakeLedger) SequenceAt(_ context.Context, key inventory.StockKey, at time.Time, ceiling int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var seq int64
	for _, m := range l.movements {
		if m.Key() == key && m.Sequence <= ceiling && !m.OccurredAt.After(at) && m.Sequence > seq {
			seq = m.Sequence
		}
	}
	return seq, nil
}

func (l *fakeLedger) FindByID(_ context.Context, storeID, id uuid.UUID) (*inventory.StockMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.movements {
		if l.movements[i].StoreID == storeID && l.movements[i].ID == id {
			m := l.movements[i]
			return &m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (l *fakeLedger) List(_ context.Context, storeID uuid.UUID, filter inventory.MovementFilter) ([]inventory.StockMovement, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rows := make([]inventory.StockMovement, 0)
	for i := len(l.movements) - 1; i >= 0; i-- {
		m := l.movements[i]
		if m.StoreID != storeID {
			continue
		}
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.WarehouseID != nil && m.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.Type != nil && m.Type != *filter.Type {
			continue
		}
		rows = append(rows, m)
	}
	total := int64(len(rows))
	start := filter.Offset()
	if start > len(rows) {
		start = len(rows)
	}
	end := start + filter.PageSize
	if end > len(rows) || filter.PageSize <= 0 {
		end = len(rows)
	}
	return rows[start:end], total, nil
}

func (l *fakeLedger) SumByKey(_ context.Context, storeID uuid.UUID) ([]inventory.LedgerTotal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	byKey := make(map[inventory.StockKey]*inventory.LedgerTotal)
	for _, m := range l.movements {
		if m.StoreID != storeID {
			continue
		}
		t, ok := byKey[m.Key()]
		if !ok {
			t = &inventory.LedgerTotal{Key: m.Key(), Qty: decimal.Zero}
			byKey[m.Key()] = t
		}
		t.Qty = t.Qty.Add(m.QtyDelta)
		if m.Sequence > t.MaxSequence {
			t.MaxSequence = m.Sequence
		}
	}
	totals := make([]inventory.LedgerTotal, 0, len(byKey))
	for _, t := range byKey {
		totals = append(totals, *t)
	}
	return totals, nil
}

func (l *fakeLedger) StoreIDs(_ context.Context) ([]uuid.UUID, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0)
	for _, m := range l.movements {
		if !seen[m.StoreID] {
			seen[m.StoreID] = true
			ids = append(ids, m.StoreID)
		}
	}
	return ids, nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.movements)
}

// fakeStockRepo keeps CurrentStock rows in memory. Locks are not modelled;
// Save enforces the version check instead.
type fakeStockRepo struct {
	mu   sync.Mutex
	rows map[inventory.StockKey]inventory.CurrentStock

	// lockConflicts makes the next TryLockForUpdate calls fail with ErrLockNotAvailable
	lockConflicts int
	// beforeTryLock runs once before the next TryLockForUpdate
	beforeTryLock func()
	// beforeListAll runs once before the next ListAll
	beforeListAll func()
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{rows: make(map[inventory.StockKey]inventory.CurrentStock)}
}

func (r *fakeStockRepo) Find(_ context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &row, nil
}

func (r *fakeStockRepo) FindForUpdate(ctx context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	return r.Find(ctx, key)
}

func (r *fakeStockRepo) TryLockForUpdate(ctx context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	r.mu.Lock()
	hook := r.beforeTryLock
	r.beforeTryLock = nil
	conflict := r.lockConflicts > 0
	if conflict {
		r.lockConflicts--
	}
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if conflict {
		return nil, inventory.ErrLockNotAvailable
	}
	return r.Find(ctx, key)
}

func (r *fakeStockRepo) GetOrCreate(_ context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[key]; ok {
		return &row, nil
	}
	stock, err := inventory.NewCurrentStock(key)
	if err != nil {
		return nil, err
	}
	r.rows[key] = *stock
	return stock, nil
}

func (r *fakeStockRepo) Save(_ context.Context, stock *inventory.CurrentStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[stock.Key()]
	if ok && row.Version != stock.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.rows[stock.Key()] = *stock
	return nil
}

func (r *fakeStockRepo) Overwrite(_ context.Context, stock *inventory.CurrentStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[stock.Key()] = *stock
	return nil
}

func (r *fakeStockRepo) List(_ context.Context, storeID uuid.UUID, filter inventory.StockFilter) ([]inventory.CurrentStock, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]inventory.CurrentStock, 0)
	for _, row := range r.rows {
		if row.StoreID != storeID {
			continue
		}
		if filter.NegativeOnly && !row.IsNegative() {
			continue
		}
		if filter.Below != nil && !row.Qty.LessThan(*filter.Below) {
			continue
		}
		if filter.WarehouseID != nil && row.WarehouseID != *filter.WarehouseID {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ProductID.String() < rows[j].ProductID.String() })
	return rows, int64(len(rows)), nil
}

func (r *fakeStockRepo) ListAll(ctx context.Context, storeID uuid.UUID) ([]inventory.CurrentStock, error) {
	r.mu.Lock()
	hook := r.beforeListAll
	r.beforeListAll = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	rows, _, err := r.List(ctx, storeID, inventory.StockFilter{})
	return rows, err
}

// set replaces a row directly, bypassing the ledger
func (r *fakeStockRepo) set(stock inventory.CurrentStock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[stock.Key()] = stock
}

// fakeResultRepo keeps every result; applied and no-op rows own their key
type fakeResultRepo struct {
	mu      sync.Mutex
	rows    []inventory.ReconciliationResult
	findErr error
}

func newFakeResultRepo() *fakeResultRepo {
	return &fakeResultRepo{}
}

func (r *fakeResultRepo) owner(storeID uuid.UUID, key string) (int, bool) {
	for i, row := range r.rows {
		if row.StoreID == storeID && row.IdempotencyKey == key && row.Status.IsTerminalSuccess() {
			return i, true
		}
	}
	return 0, false
}

func (r *fakeResultRepo) FindByIdempotencyKey(_ context.Context, storeID uuid.UUID, key string) (*inventory.ReconciliationResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	i, ok := r.owner(storeID, key)
	if !ok {
		return nil, shared.ErrNotFound
	}
	result := r.rows[i]
	return &result, nil
}

func (r *fakeResultRepo) Create(_ context.Context, result *inventory.ReconciliationResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if result.Status.IsTerminalSuccess() {
		if _, taken := r.owner(result.StoreID, result.IdempotencyKey); taken {
			return shared.ErrConcurrencyConflict
		}
	}
	r.rows = append(r.rows, *result)
	return nil
}

func (r *fakeResultRepo) List(_ context.Context, storeID uuid.UUID, filter inventory.ResultFilter) ([]inventory.ReconciliationResult, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]inventory.ReconciliationResult, 0)
	for i := len(r.rows) - 1; i >= 0; i-- {
		result := r.rows[i]
		if result.StoreID != storeID {
			continue
		}
		if filter.Reference != "" && result.Reference != filter.Reference {
			continue
		}
		if filter.Status != nil && result.Status != *filter.Status {
			continue
		}
		rows = append(rows, result)
	}
	return rows, int64(len(rows)), nil
}

// count returns how many keys hold an applied or no-op result
func (r *fakeResultRepo) count() int {
	return r.countStatus(inventory.ResultStatusApplied) + r.countStatus(inventory.ResultStatusNoOp)
}

func (r *fakeResultRepo) countStatus(status inventory.ResultStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.Status == status {
			n++
		}
	}
	return n
}

// testEnv wires the services over the in-memory repositories
type testEnv struct {
	storeID     uuid.UUID
	productID   uuid.UUID
	warehouseID uuid.UUID

	ledger  *fakeLedger
	stock   *fakeStockRepo
	results *fakeResultRepo
	outbox  *MockEventPublisher
	catalog *MockCatalogReader

	reconciler  *ReconciliationService
	ledgerSvc   *LedgerService
	consistency *ConsistencyService
}

// inlineScope runs Execute directly against the fakes, without a transaction
type inlineScope struct {
	env *testEnv
}

func (s *inlineScope) Execute(_ context.Context, fn func(TransactionalRepositories) error) error {
	return fn(s)
}

func (s *inlineScope) Ledger() inventory.MovementLedger                  { return s.env.ledger }
func (s *inlineScope) Stock() inventory.CurrentStockRepository           { return s.env.stock }
func (s *inlineScope) Results() inventory.ReconciliationResultRepository { return s.env.results }
func (s *inlineScope) Outbox() shared.EventPublisher                     { return s.env.outbox }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		storeID:     uuid.New(),
		productID:   uuid.New(),
		warehouseID: uuid.New(),
		ledger:      &fakeLedger{},
		stock:       newFakeStockRepo(),
		results:     newFakeResultRepo(),
		outbox:      NewMockEventPublisher(),
		catalog:     new(MockCatalogReader),
	}

	env.catalog.On("ProductExists", mock.Anything, env.storeID, env.productID).Return(true, nil).Maybe()
	env.catalog.On("ProductExists", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Maybe()
	env.catalog.On("WarehouseBelongsTo", mock.Anything, env.storeID, env.warehouseID).Return(true, nil).Maybe()
	env.catalog.On("WarehouseBelongsTo", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Maybe()
	env.catalog.On("DefaultWarehouse", mock.Anything, env.storeID).Return(env.warehouseID, nil).Maybe()

	logger := zaptest.NewLogger(t)
	txScope := &inlineScope{env: env}
	env.reconciler = NewReconciliationService(
		NewEngine(env.ledger, env.stock),
		NewApplier(txScope),
		env.results,
		env.catalog,
		ReconciliationConfig{
			Retry:        RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
			Concurrency:  2,
			MaxBatchSize: 10,
		},
		logger,
	)
	env.ledgerSvc = NewLedgerService(txScope, env.ledger, env.stock, env.catalog, logger)
	env.consistency = NewConsistencyService(txScope, env.ledger, env.stock, logger)
	return env
}

func (e *testEnv) key() inventory.StockKey {
	return inventory.NewStockKey(e.storeID, e.productID, e.warehouseID)
}

// record appends an upstream movement through the ledger service
func (e *testEnv) record(t *testing.T, movementType inventory.MovementType, qty int64, occurredAt time.Time) *RecordMovementResponse {
	t.Helper()
	resp, err := e.ledgerSvc.RecordMovement(context.Background(), RecordMovementCommand{
		StoreID:     e.storeID,
		ProductID:   e.productID,
		WarehouseID: e.warehouseID,
		Type:        movementType,
		QtyDelta:    decimal.NewFromInt(qty),
		OccurredAt:  occurredAt,
	})
	require.NoError(t, err)
	return resp
}

func (e *testEnv) currentQty(t *testing.T) decimal.Decimal {
	t.Helper()
	stock, err := e.stock.Find(context.Background(), e.key())
	require.NoError(t, err)
	return stock.Qty
}

func (e *testEnv) countItem(qty int64, countedAt time.Time, key string) CountItemInput {
	warehouseID := e.warehouseID
	return CountItemInput{
		ProductID:      e.productID,
		WarehouseID:    &warehouseID,
		CountedQty:     decimal.NewFromInt(qty),
		CountedAt:      countedAt,
		IdempotencyKey: key,
	}
}
