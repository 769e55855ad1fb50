package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
)

// Invalidator couples each committed mutation to its cache action. Callers
// invoke it only after Commit has returned nil; a rolled back write must
// never reach it.
type Invalidator struct {
	cache    *cache.Layer
	entryTTL time.Duration
	log      *zap.Logger
}

func NewInvalidator(layer *cache.Layer, entryTTL time.Duration, log *zap.Logger) *Invalidator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Invalidator{cache: layer, entryTTL: entryTTL, log: log}
}

func (i *Invalidator) InventoryItemCreated(ctx context.Context, item domain.InventoryItem) {
	i.cache.BumpVersion(ctx, cache.Inventory)
	i.log.Debug("inventory list invalidated", zap.Int64("item_id", item.ItemID))
}

// InventoryItemDeleted also refreshes the owning order, whose projections
// embed the item.
func (i *Invalidator) InventoryItemDeleted(ctx context.Context, item domain.InventoryItem) {
	i.cache.BumpVersion(ctx, cache.Inventory)
	if item.OrderID != nil {
		i.cache.BumpVersion(ctx, cache.Orders)
		i.cache.RemoveByID(ctx, cache.Orders, *item.OrderID)
	}
	i.log.Debug("inventory list invalidated", zap.Int64("item_id", item.ItemID))
}

// OrderCreated bumps both lists, drops the entries of orders whose items
// were taken over and seeds the per-id entry so the creator can read it back.
func (i *Invalidator) OrderCreated(ctx context.Context, view domain.OrderView, displaced []int64) {
	i.cache.BumpVersion(ctx, cache.Orders)
	i.cache.BumpVersion(ctx, cache.Inventory)
	for _, id := range displaced {
		i.cache.RemoveByID(ctx, cache.Orders, id)
	}
	cache.PutByID(ctx, i.cache, cache.Orders, view.OrderID, view, i.entryTTL)
	i.log.Debug("order lists invalidated", zap.Int64("order_id", view.OrderID))
}

// OrderDeleted bumps both lists because owned items are deleted with the order.
func (i *Invalidator) OrderDeleted(ctx context.Context, orderID int64) {
	i.cache.BumpVersion(ctx, cache.Orders)
	i.cache.BumpVersion(ctx, cache.Inventory)
	i.cache.RemoveByID(ctx, cache.Orders, orderID)
	i.log.Debug("order lists invalidated", zap.Int64("order_id", orderID))
}

// OrderLoaded populates the per-id entry after a store read.
func (i *Invalidator) OrderLoaded(ctx context.Context, view domain.OrderView) {
	cache.PutByID(ctx, i.cache, cache.Orders, view.OrderID, view, i.entryTTL)
}
