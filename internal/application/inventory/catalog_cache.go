package inventory

import (
	"context"
	"sync"

	"github.com/erp/stockrecon/internal/domain/inventory"
	"github.com/google/uuid"
)

// catalogCache memoizes catalog lookups for the duration of one batch.
// It is safe for concurrent use by the batch workers.
type catalogCache struct {
	reader  inventory.CatalogReader
	storeID uuid.UUID

	mu               sync.Mutex
	products         map[uuid.UUID]bool
	warehouses       map[uuid.UUID]bool
	defaultWarehouse *uuid.UUID
}

func newCatalogCache(reader inventory.CatalogReader, storeID uuid.UUID) *catalogCache {
	return &catalogCache{
		reader:     reader,
		storeID:    storeID,
		products:   make(map[uuid.UUID]bool),
		warehouses: make(map[uuid.UUID]bool),
	}
}

func (c *catalogCache) productExists(ctx context.Context, productID uuid.UUID) (bool, error) {
	c.mu.Lock()
	ok, found := c.products[productID]
	c.mu.Unlock()
	if found {
		return ok, nil
	}

	ok, err := c.reader.ProductExists(ctx, c.storeID, productID)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.products[productID] = ok
	c.mu.Unlock()
	return ok, nil
}

func (c *catalogCache) warehouseBelongs(ctx context.Context, warehouseID uuid.UUID) (bool, error) {
	c.mu.Lock()
	ok, found := c.warehouses[warehouseID]
	c.mu.Unlock()
	if found {
		return ok, nil
	}

	ok, err := c.reader.WarehouseBelongsTo(ctx, c.storeID, warehouseID)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	c.warehouses[warehouseID] = ok
	c.mu.Unlock()
	return ok, nil
}

func (c *catalogCache) defaultWarehouseID(ctx context.Context) (uuid.UUID, error) {
	c.mu.Lock()
	if c.defaultWarehouse != nil {
		id := *c.defaultWarehouse
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := c.reader.DefaultWarehouse(ctx, c.storeID)
	if err != nil {
		return uuid.Nil, err
	}
	c.mu.Lock()
	c.defaultWarehouse = &id
	c.warehouses[id] = true
	c.mu.Unlock()
	return id, nil
}

// resolve validates the entry against the catalog and fills in the default
// warehouse when none was given
func (c *catalogCache) resolve(ctx context.Context, entry inventory.CountEntry) (inventory.CountEntry, error) {
	ok, err := c.productExists(ctx, entry.ProductID)
	if err != nil {
		return entry, err
	}
	if !ok {
		return entry, inventory.ErrUnknownProduct
	}

	if entry.WarehouseID == uuid.Nil {
		id, err := c.defaultWarehouseID(ctx)
		if err != nil {
			return entry, err
		}
		entry.WarehouseID = id
		return entry, nil
	}

	ok, err = c.warehouseBelongs(ctx, entry.WarehouseID)
	if err != nil {
		return entry, err
	}
	if !ok {
		return entry, inventory.ErrUnknownWarehouse
	}
	return entry, nil
}
