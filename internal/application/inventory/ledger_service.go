package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/erp/stockrecon/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrCountCorrectionReserved is returned when an upstream system tries to
// record a count_correction movement directly
var ErrCountCorrectionReserved = shared.NewDomainError("INVALID_MOVEMENT_TYPE", "count_correction movements are written by reconciliation only")

// LedgerService records upstream movements and serves ledger and stock reads
type LedgerService struct {
	txScope TransactionScope
	ledger  inventory.MovementLedger
	stock   inventory.CurrentStockRepository
	catalog inventory.CatalogReader
	logger  *zap.Logger
	metrics *telemetry.ReconciliationMetrics
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	txScope TransactionScope,
	ledger inventory.MovementLedger,
	stock inventory.CurrentStockRepository,
	catalog inventory.CatalogReader,
	logger *zap.Logger,
) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{
		txScope: txScope,
		ledger:  ledger,
		stock:   stock,
		catalog: catalog,
		logger:  logger,
	}
}

// SetMetrics sets the metrics collector
func (s *LedgerService) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

// RecordMovement appends a sale, receipt, return or manual adjustment and
// folds it into current stock in the same transaction. Stock may go negative;
// that is reported, never refused.
func (s *LedgerService) RecordMovement(ctx context.Context, cmd RecordMovementCommand) (*RecordMovementResponse, error) {
	if cmd.Type == inventory.MovementTypeCountCorrection {
		return nil, ErrCountCorrectionReserved
	}
	key := inventory.NewStockKey(cmd.StoreID, cmd.ProductID, cmd.WarehouseID)
	movement, err := inventory.NewStockMovement(key, cmd.Type, cmd.QtyDelta, cmd.OccurredAt, cmd.ReferenceID)
	if err != nil {
		return nil, err
	}
	if cmd.Note != "" {
		movement.WithNote(cmd.Note)
	}
	if len(cmd.Metadata) > 0 {
		movement.WithMetadata(cmd.Metadata)
	}

	if err := s.checkCatalog(ctx, key); err != nil {
		return nil, err
	}

	var stock *inventory.CurrentStock
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		locked, err := lockStock(ctx, repos.Stock(), key, false)
		if err != nil {
			return err
		}
		if _, err := repos.Ledger().Append(ctx, movement); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}
		if err := locked.Fold(movement); err != nil {
			return err
		}
		if err := repos.Stock().Save(ctx, locked); err != nil {
			return err
		}

		events := []shared.DomainEvent{inventory.NewStockMovementRecordedEvent(locked, movement)}
		if locked.IsNegative() {
			events = append(events, inventory.NewNegativeStockDetectedEvent(locked, movement.Type))
		}
		if err := repos.Outbox().Publish(ctx, events...); err != nil {
			return fmt.Errorf("save events to outbox: %w", err)
		}
		stock = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordMovement(ctx, cmd.StoreID, movement.Type.String())
	if stock.IsNegative() {
		s.metrics.RecordNegativeStock(ctx, cmd.StoreID)
		logger.Ctx(ctx, s.logger).Warn("Movement left stock negative",
			zap.String("key", key.String()),
			zap.String("movement_type", movement.Type.String()),
			zap.String("qty", stock.Qty.String()),
		)
	}

	return &RecordMovementResponse{
		Movement:      ToMovementDTO(movement),
		ResultingQty:  stock.Qty,
		NegativeStock: stock.IsNegative(),
	}, nil
}

func (s *LedgerService) checkCatalog(ctx context.Context, key inventory.StockKey) error {
	if s.catalog == nil {
		return nil
	}
	ok, err := s.catalog.ProductExists(ctx, key.StoreID, key.ProductID)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return inventory.ErrUnknownProduct
	}
	ok, err = s.catalog.WarehouseBelongsTo(ctx, key.StoreID, key.WarehouseID)
	if err != nil {
		return fmt.Errorf("check warehouse: %w", err)
	}
	if !ok {
		return inventory.ErrUnknownWarehouse
	}
	return nil
}

// GetCurrentStock returns the stock of one pair. A pair that never moved
// has zero stock. A key without a warehouse reads the store's default.
func (s *LedgerService) GetCurrentStock(ctx context.Context, key inventory.StockKey) (*CurrentStockDTO, error) {
	if key.WarehouseID == uuid.Nil && s.catalog != nil && key.StoreID != uuid.Nil {
		id, err := s.catalog.DefaultWarehouse(ctx, key.StoreID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.ErrUnknownWarehouse
		}
		if err != nil {
			return nil, fmt.Errorf("resolve default warehouse: %w", err)
		}
		key.WarehouseID = id
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	stock, err := s.stock.Find(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		dto := zeroStockDTO(key)
		return &dto, nil
	}
	if err != nil {
		return nil, err
	}
	dto := ToCurrentStockDTO(stock)
	return &dto, nil
}

// ListStock lists current stock rows of a store
func (s *LedgerService) ListStock(ctx context.Context, storeID uuid.UUID, filter inventory.StockFilter) (shared.Paginated[CurrentStockDTO], error) {
	filter.Filter = filter.Filter.Normalize()
	rows, total, err := s.stock.List(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[CurrentStockDTO]{}, err
	}
	items := make([]CurrentStockDTO, 0, len(rows))
	for i := range rows {
		items = append(items, ToCurrentStockDTO(&rows[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// GetMovement returns one ledger movement
func (s *LedgerService) GetMovement(ctx context.Context, storeID, movementID uuid.UUID) (*MovementDTO, error) {
	m, err := s.ledger.FindByID(ctx, storeID, movementID)
	if err != nil {
		return nil, err
	}
	dto := ToMovementDTO(m)
	return &dto, nil
}

// ListMovements lists ledger movements of a store, newest first
func (s *LedgerService) ListMovements(ctx context.Context, storeID uuid.UUID, filter inventory.MovementFilter) (shared.Paginated[MovementDTO], error) {
	filter.Filter = filter.Filter.Normalize()
	rows, total, err := s.ledger.List(ctx, storeID, filter)
	if err != nil {
		return shared.Paginated[MovementDTO]{}, err
	}
	items := make([]MovementDTO, 0, len(rows))
	for i := range rows {
		items = append(items, ToMovementDTO(&rows[i]))
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}
