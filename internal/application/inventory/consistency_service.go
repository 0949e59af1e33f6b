package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/logger"
	"github.com/erp/stockrecon/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// discrepancyTolerance is the largest qty difference still treated as equal
var discrepancyTolerance = decimal.New(1, -4)

// recheckAttempts bounds how often a suspect pair is re-read while movements
// keep landing on it
const recheckAttempts = 3

// endOfTime is later than any movement's occurred_at
var endOfTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// ConsistencyService checks that every CurrentStock row equals the sum of its
// ledger slice and, when asked, rebuilds the rows from the ledger
type ConsistencyService struct {
	txScope TransactionScope
	ledger  inventory.MovementLedger
	stock   inventory.CurrentStockRepository
	logger  *zap.Logger
	metrics *telemetry.ReconciliationMetrics
}

// NewConsistencyService creates a new ConsistencyService
func NewConsistencyService(
	txScope TransactionScope,
	ledger inventory.MovementLedger,
	stock inventory.CurrentStockRepository,
	logger *zap.Logger,
) *ConsistencyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsistencyService{
		txScope: txScope,
		ledger:  ledger,
		stock:   stock,
		logger:  logger,
	}
}

// SetMetrics sets the metrics collector
func (s *ConsistencyService) SetMetrics(m *telemetry.ReconciliationMetrics) {
	s.metrics = m
}

type pairState struct {
	key          inventory.StockKey
	ledgerQty    decimal.Decimal
	ledgerSeq    int64
	aggregateQty decimal.Decimal
	aggregateSeq int64
}

func (p *pairState) drifted() bool {
	diff := p.aggregateQty.Sub(p.ledgerQty)
	return diff.Abs().GreaterThan(discrepancyTolerance) || p.aggregateSeq != p.ledgerSeq
}

// Verify compares the ledger totals of a store with its CurrentStock rows.
// Pairs present on only one side are compared against zero. The store-wide
// reads are not one snapshot, so a pair that looks off is read again on its
// own before it is reported.
func (s *ConsistencyService) Verify(ctx context.Context, storeID uuid.UUID) (*ConsistencyReport, error) {
	totals, err := s.ledger.SumByKey(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	rows, err := s.stock.ListAll(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list current stock: %w", err)
	}

	pairs := make(map[inventory.StockKey]*pairState, len(totals))
	for _, t := range totals {
		pairs[t.Key] = &pairState{key: t.Key, ledgerQty: t.Qty, ledgerSeq: t.MaxSequence}
	}
	for i := range rows {
		key := rows[i].Key()
		p, ok := pairs[key]
		if !ok {
			p = &pairState{key: key, ledgerQty: decimal.Zero}
			pairs[key] = p
		}
		p.aggregateQty = rows[i].Qty
		p.aggregateSeq = rows[i].LastSequence
	}

	report := &ConsistencyReport{
		StoreID:       storeID,
		CheckedAt:     time.Now().UTC(),
		PairsChecked:  len(pairs),
		Discrepancies: make([]DiscrepancyDTO, 0),
	}
	for _, p := range pairs {
		if !p.drifted() {
			continue
		}
		fresh, err := s.recheck(ctx, p.key)
		if err != nil {
			return nil, fmt.Errorf("recheck %s: %w", p.key, err)
		}
		if fresh == nil || !fresh.drifted() {
			continue
		}
		diff := fresh.aggregateQty.Sub(fresh.ledgerQty)
		report.Discrepancies = append(report.Discrepancies, DiscrepancyDTO{
			ProductID:             fresh.key.ProductID,
			WarehouseID:           fresh.key.WarehouseID,
			LedgerQty:             inventory.NormalizeQuantity(fresh.ledgerQty),
			AggregateQty:          inventory.NormalizeQuantity(fresh.aggregateQty),
			Diff:                  inventory.NormalizeQuantity(diff),
			LedgerMaxSequence:     fresh.ledgerSeq,
			AggregateLastSequence: fresh.aggregateSeq,
		})
	}
	sort.Slice(report.Discrepancies, func(i, j int) bool {
		a, b := report.Discrepancies[i], report.Discrepancies[j]
		if a.ProductID != b.ProductID {
			return a.ProductID.String() < b.ProductID.String()
		}
		return a.WarehouseID.String() < b.WarehouseID.String()
	})
	report.Consistent = len(report.Discrepancies) == 0

	s.metrics.RecordDiscrepancies(ctx, storeID, int64(len(report.Discrepancies)))
	if !report.Consistent {
		logger.Ctx(ctx, s.logger).Warn("Current stock disagrees with the movement ledger",
			zap.String("store_id", storeID.String()),
			zap.Int("pairs_checked", report.PairsChecked),
			zap.Int("discrepancies", len(report.Discrepancies)),
		)
	}
	return report, nil
}

// recheck reads one pair between two reads of its CurrentStock row. A movement
// and its fold commit together, so when both row reads agree the ledger read
// in between saw exactly the movements the row has folded plus any that were
// never folded. Returns nil when the pair kept moving on every attempt.
func (s *ConsistencyService) recheck(ctx context.Context, key inventory.StockKey) (*pairState, error) {
	for attempt := 0; attempt < recheckAttempts; attempt++ {
		before, err := s.findStock(ctx, key)
		if err != nil {
			return nil, err
		}
		p := &pairState{key: key, aggregateQty: decimal.Zero}
		if before != nil {
			p.aggregateQty = before.Qty
			p.aggregateSeq = before.LastSequence
		}
		if p.ledgerQty, err = s.ledger.SumDeltasSince(ctx, key, 0); err != nil {
			return nil, err
		}
		if p.ledgerSeq, err = s.ledger.SequenceAt(ctx, key, endOfTime, math.MaxInt64); err != nil {
			return nil, err
		}
		after, err := s.findStock(ctx, key)
		if err != nil {
			return nil, err
		}
		if sameFold(before, after) {
			return p, nil
		}
	}
	logger.Ctx(ctx, s.logger).Debug("Pair kept moving during consistency check",
		zap.String("product_id", key.ProductID.String()),
		zap.String("warehouse_id", key.WarehouseID.String()),
	)
	return nil, nil
}

func (s *ConsistencyService) findStock(ctx context.Context, key inventory.StockKey) (*inventory.CurrentStock, error) {
	row, err := s.stock.Find(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return row, err
}

func sameFold(a, b *inventory.CurrentStock) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.LastSequence == b.LastSequence && a.Version == b.Version
}

// Rebuild rewrites every CurrentStock row of a store from the ledger. Each
// pair is rebuilt in its own transaction under the row lock, and the sum is
// taken inside that transaction so no concurrent movement is lost.
// Negative totals are kept as they are.
func (s *ConsistencyService) Rebuild(ctx context.Context, storeID uuid.UUID) (*RebuildResponse, error) {
	totals, err := s.ledger.SumByKey(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("sum ledger: %w", err)
	}
	rows, err := s.stock.ListAll(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list current stock: %w", err)
	}

	keys := make(map[inventory.StockKey]struct{}, len(totals)+len(rows))
	for _, t := range totals {
		keys[t.Key] = struct{}{}
	}
	for i := range rows {
		keys[rows[i].Key()] = struct{}{}
	}

	rebuilt := 0
	for key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.rebuildPair(ctx, key); err != nil {
			return nil, fmt.Errorf("rebuild %s: %w", key, err)
		}
		rebuilt++
	}

	logger.Ctx(ctx, s.logger).Info("Current stock rebuilt from ledger",
		zap.String("store_id", storeID.String()),
		zap.Int("pairs", rebuilt),
	)
	return &RebuildResponse{StoreID: storeID, PairsRebuilt: rebuilt}, nil
}

func (s *ConsistencyService) rebuildPair(ctx context.Context, key inventory.StockKey) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		stock, err := lockStock(ctx, repos.Stock(), key, false)
		if err != nil {
			return err
		}
		page, _, err := repos.Ledger().List(ctx, key.StoreID, inventory.MovementFilter{
			Filter:      singleRowFilter(),
			ProductID:   &key.ProductID,
			WarehouseID: &key.WarehouseID,
		})
		if err != nil {
			return err
		}
		var maxSequence int64
		if len(page) > 0 {
			maxSequence = page[0].Sequence
		}
		qty, err := repos.Ledger().SumDeltasBetween(ctx, key, 0, maxSequence)
		if err != nil {
			return err
		}
		stock.Reset(qty, maxSequence)
		return repos.Stock().Overwrite(ctx, stock)
	})
}

// singleRowFilter selects the newest movement only
func singleRowFilter() shared.Filter {
	return shared.Filter{Page: 1, PageSize: 1, OrderDir: "desc"}
}
