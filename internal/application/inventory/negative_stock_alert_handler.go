package inventory

import (
	"context"
	"fmt"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/erp/stockrecon/internal/domain/shared"
	"github.com/erp/stockrecon/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// NegativeStockAlertHandler handles NegativeStockDetected events and
// forwards them to the configured notifier
type NegativeStockAlertHandler struct {
	logger   *zap.Logger
	notifier StockAlertNotifier
	metrics  *telemetry.ReconciliationMetrics
}

// StockAlertNotifier is the interface for sending stock alerts.
// Implementations can support different channels (in-app, email, SMS, etc.)
type StockAlertNotifier interface {
	// SendAlert sends a stock alert notification
	SendAlert(ctx context.Context, alert StockAlert) error
}

// StockAlert represents a negative stock alert
type StockAlert struct {
	StoreID      string `json:"store_id"`
	ProductID    string `json:"product_id"`
	WarehouseID  string `json:"warehouse_id"`
	Qty          string `json:"qty"`
	LastSequence int64  `json:"last_sequence"`
	Source       string `json:"source"`
}

// NewNegativeStockAlertHandler creates a new handler for negative stock events
func NewNegativeStockAlertHandler(logger *zap.Logger) *NegativeStockAlertHandler {
	return &NegativeStockAlertHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *NegativeStockAlertHandler) WithNotifier(notifier StockAlertNotifier) *NegativeStockAlertHandler {
	h.notifier = notifier
	return h
}

// WithMetrics sets the metrics collector
func (h *NegativeStockAlertHandler) WithMetrics(m *telemetry.ReconciliationMetrics) *NegativeStockAlertHandler {
	h.metrics = m
	return h
}

// HandlerName scopes the handler's idempotency keys
func (h *NegativeStockAlertHandler) HandlerName() string {
	return "negative-stock-alerts"
}

// EventTypes returns the event types this handler is interested in
func (h *NegativeStockAlertHandler) EventTypes() []string {
	return []string{inventory.EventTypeNegativeStockDetected}
}

// Handle processes a NegativeStockDetectedEvent
func (h *NegativeStockAlertHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	negative, ok := event.(*inventory.NegativeStockDetectedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", inventory.EventTypeNegativeStockDetected),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			inventory.EventTypeNegativeStockDetected, event.EventType())
	}

	h.logger.Warn("negative stock detected",
		zap.String("store_id", event.StoreID().String()),
		zap.String("product_id", negative.ProductID.String()),
		zap.String("warehouse_id", negative.WarehouseID.String()),
		zap.String("qty", negative.Qty.String()),
		zap.Int64("last_sequence", negative.LastSequence),
		zap.String("source", negative.Source.String()),
	)
	h.metrics.RecordNegativeStockAlert(ctx, event.StoreID())

	if h.notifier == nil {
		return nil
	}
	alert := StockAlert{
		StoreID:      event.StoreID().String(),
		ProductID:    negative.ProductID.String(),
		WarehouseID:  negative.WarehouseID.String(),
		Qty:          negative.Qty.String(),
		LastSequence: negative.LastSequence,
		Source:       negative.Source.String(),
	}
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		// Notification failure shouldn't fail the event handling
		h.logger.Error("failed to send negative stock alert",
			zap.String("product_id", alert.ProductID),
			zap.Error(err),
		)
	}
	return nil
}

// Ensure NegativeStockAlertHandler implements shared.EventHandler
var _ shared.EventHandler = (*NegativeStockAlertHandler)(nil)

// LoggingStockAlertNotifier is a simple notifier that logs alerts
type LoggingStockAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingStockAlertNotifier creates a new logging notifier
func NewLoggingStockAlertNotifier(logger *zap.Logger) *LoggingStockAlertNotifier {
	return &LoggingStockAlertNotifier{
		logger: logger,
	}
}

// SendAlert logs the stock alert
func (n *LoggingStockAlertNotifier) SendAlert(ctx context.Context, alert StockAlert) error {
	n.logger.Warn("NEGATIVE STOCK",
		zap.String("store_id", alert.StoreID),
		zap.String("product_id", alert.ProductID),
		zap.String("warehouse_id", alert.WarehouseID),
		zap.String("qty", alert.Qty),
		zap.String("source", alert.Source),
	)
	return nil
}

var _ StockAlertNotifier = (*LoggingStockAlertNotifier)(nil)
