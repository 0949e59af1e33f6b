package router

import (
	"github.com/erp/stockrecon/internal/interfaces/http/handler"
)

// InventoryHandlers holds the handlers mounted under /inventory
type InventoryHandlers struct {
	Reconciliation *handler.ReconciliationHandler
	Ledger         *handler.LedgerHandler
	Consistency    *handler.ConsistencyHandler
	CountSessions  *handler.CountSessionHandler
}

// InventoryRoutes builds the inventory domain group
func InventoryRoutes(h InventoryHandlers) *DomainGroup {
	inventory := NewDomainGroup("inventory", "/inventory")

	reconciliations := inventory.Group("reconciliations", "/reconciliations")
	reconciliations.POST("", h.Reconciliation.Reconcile)
	reconciliations.GET("/results", h.Reconciliation.ListResults)

	movements := inventory.Group("movements", "/movements")
	movements.POST("", h.Ledger.RecordMovement)
	movements.GET("", h.Ledger.ListMovements)
	movements.GET("/:id", h.Ledger.GetMovement)

	stock := inventory.Group("stock", "/stock")
	stock.GET("", h.Ledger.ListStock)
	stock.GET("/:product_id", h.Ledger.GetCurrentStock)

	consistency := inventory.Group("consistency", "/consistency")
	consistency.GET("", h.Consistency.Verify)
	consistency.POST("/rebuild", h.Consistency.Rebuild)

	sessions := inventory.Group("count-sessions", "/count-sessions")
	sessions.POST("", h.CountSessions.Start)
	sessions.GET("/:id", h.CountSessions.Get)
	sessions.DELETE("/:id", h.CountSessions.Discard)
	sessions.POST("/:id/scans", h.CountSessions.RecordScan)
	sessions.PUT("/:id/items/:product_id", h.CountSessions.SetCount)
	sessions.DELETE("/:id/items/:product_id", h.CountSessions.RemoveItem)
	sessions.POST("/:id/submit", h.CountSessions.Submit)

	return inventory
}

// SystemRoutes mounts the probes on the engine root, outside API versioning
func SystemRoutes(r *Router, health *handler.HealthHandler) {
	r.engine.GET("/health", health.Live)
	r.engine.GET("/ready", health.Ready)
}
