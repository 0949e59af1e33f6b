package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultCountSessionTTL is how long an untouched session is kept
const DefaultCountSessionTTL = 24 * time.Hour

// EntryReconciler reconciles the entries of a submitted count session
type EntryReconciler interface {
	ReconcileEntries(ctx context.Context, storeID uuid.UUID, reference, countedBy string, entries []inventory.CountEntry) ([]*inventory.ReconciliationResult, error)
}

// StartCountSessionCommand opens a session on a device
type StartCountSessionCommand struct {
	StoreID     uuid.UUID
	WarehouseID uuid.UUID
	CountedBy   string
}

// RecordScanCommand adds one scan to a session
type RecordScanCommand struct {
	StoreID     uuid.UUID
	SessionID   uuid.UUID
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Qty         decimal.Decimal
	ScannedAt   time.Time
}

// SetCountCommand overwrites a product's count in a session
type SetCountCommand struct {
	StoreID   uuid.UUID
	SessionID uuid.UUID
	ProductID uuid.UUID
	Qty       decimal.Decimal
	At        time.Time
}

// SubmitCountSessionResponse is the closed session and the reconciliation outcome
type SubmitCountSessionResponse struct {
	Session        inventory.CountSession `json:"session"`
	Reconciliation *ReconcileResponse     `json:"reconciliation"`
}

// CountSessionService manages count sessions between device requests and
// hands them to reconciliation on submit
type CountSessionService struct {
	store      inventory.CountSessionStore
	reconciler EntryReconciler
	ttl        time.Duration
	logger     *zap.Logger
}

// NewCountSessionService creates a new CountSessionService
func NewCountSessionService(store inventory.CountSessionStore, reconciler EntryReconciler, ttl time.Duration, logger *zap.Logger) *CountSessionService {
	if ttl <= 0 {
		ttl = DefaultCountSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountSessionService{
		store:      store,
		reconciler: reconciler,
		ttl:        ttl,
		logger:     logger,
	}
}

// Start opens a new session
func (s *CountSessionService) Start(ctx context.Context, cmd StartCountSessionCommand) (inventory.CountSession, error) {
	session, err := inventory.NewCountSession(cmd.StoreID, cmd.WarehouseID, cmd.CountedBy, time.Now())
	if err != nil {
		return inventory.CountSession{}, err
	}
	if err := s.store.Put(ctx, session, s.ttl); err != nil {
		return inventory.CountSession{}, fmt.Errorf("store count session: %w", err)
	}
	s.logger.Info("Count session started",
		zap.String("store_id", session.StoreID.String()),
		zap.String("session_id", session.ID.String()),
		zap.String("counted_by", session.CountedBy),
	)
	return session, nil
}

// Get returns a session
func (s *CountSessionService) Get(ctx context.Context, storeID, sessionID uuid.UUID) (inventory.CountSession, error) {
	return s.store.Get(ctx, storeID, sessionID)
}

// RecordScan adds a scanned quantity
func (s *CountSessionService) RecordScan(ctx context.Context, cmd RecordScanCommand) (inventory.CountSession, error) {
	return s.update(ctx, cmd.StoreID, cmd.SessionID, func(session inventory.CountSession) (inventory.CountSession, error) {
		return session.RecordScan(cmd.ProductID, cmd.WarehouseID, cmd.Qty, cmd.ScannedAt)
	})
}

// SetCount overwrites a product's count
func (s *CountSessionService) SetCount(ctx context.Context, cmd SetCountCommand) (inventory.CountSession, error) {
	return s.update(ctx, cmd.StoreID, cmd.SessionID, func(session inventory.CountSession) (inventory.CountSession, error) {
		return session.SetCount(cmd.ProductID, cmd.Qty, cmd.At)
	})
}

// RemoveItem drops a product from the session
func (s *CountSessionService) RemoveItem(ctx context.Context, storeID, sessionID, productID uuid.UUID) (inventory.CountSession, error) {
	return s.update(ctx, storeID, sessionID, func(session inventory.CountSession) (inventory.CountSession, error) {
		return session.RemoveItem(productID)
	})
}

// Discard closes the session without reconciling and removes it
func (s *CountSessionService) Discard(ctx context.Context, storeID, sessionID uuid.UUID) error {
	session, err := s.store.Get(ctx, storeID, sessionID)
	if err != nil {
		return err
	}
	if _, err := session.MarkDiscarded(); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, storeID, sessionID); err != nil {
		return fmt.Errorf("delete count session: %w", err)
	}
	s.logger.Info("Count session discarded",
		zap.String("store_id", storeID.String()),
		zap.String("session_id", sessionID.String()),
	)
	return nil
}

// Submit reconciles every item of the session with the session ID as the
// reference. Entry keys are derived from the session, so submitting an
// incomplete session again replays what was already applied and retries the rest.
func (s *CountSessionService) Submit(ctx context.Context, storeID, sessionID uuid.UUID) (*SubmitCountSessionResponse, error) {
	session, err := s.store.Get(ctx, storeID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.CanSubmit() {
		return nil, inventory.ErrCountSessionNotOpen
	}
	entries := session.Entries()
	if len(entries) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Count session has no items")
	}

	results, err := s.reconciler.ReconcileEntries(ctx, storeID, session.ID.String(), session.CountedBy, entries)
	if err != nil {
		return nil, err
	}

	submitted, err := session.MarkSubmitted(results, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, submitted, s.ttl); err != nil {
		// The reconciliation is committed; a resubmit replays it
		s.logger.Error("Failed to store submitted count session",
			zap.String("session_id", sessionID.String()),
			zap.Error(err),
		)
	}

	resp := newReconcileResponse(results)
	s.logger.Info("Count session submitted",
		zap.String("store_id", storeID.String()),
		zap.String("session_id", sessionID.String()),
		zap.String("status", string(submitted.Status)),
		zap.Int("items", len(entries)),
		zap.Int("applied", resp.AppliedCount),
		zap.Int("skipped", resp.SkippedCount),
		zap.Int("failed", resp.FailedCount),
	)
	return &SubmitCountSessionResponse{Session: submitted, Reconciliation: resp}, nil
}

func (s *CountSessionService) update(ctx context.Context, storeID, sessionID uuid.UUID, fn func(inventory.CountSession) (inventory.CountSession, error)) (inventory.CountSession, error) {
	session, err := s.store.Get(ctx, storeID, sessionID)
	if err != nil {
		return inventory.CountSession{}, err
	}
	updated, err := fn(session)
	if err != nil {
		return inventory.CountSession{}, err
	}
	if err := s.store.Put(ctx, updated, s.ttl); err != nil {
		return inventory.CountSession{}, fmt.Errorf("store count session: %w", err)
	}
	return updated, nil
}
