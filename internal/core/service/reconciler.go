package service

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

// Reconciler turns an OrderInput into a persisted order whose items are a mix
// of reused rows and newly inserted rows, all in one transaction.
type Reconciler struct {
	store port.Store
	now   func() time.Time
	log   *zap.Logger
}

func NewReconciler(store port.Store, now func() time.Time, log *zap.Logger) *Reconciler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, now: now, log: log}
}

// Reconciled is a committed order plus the orders that lost items to it.
type Reconciled struct {
	Order     domain.Order
	Displaced []int64
}

type resolvedItem struct {
	item     domain.InventoryItem
	existing bool
}

// Reconcile validates in, resolves its items and commits the order. Supplied
// ids that no longer exist are inserted as new items rather than rejected.
// On any store failure the whole transaction is rolled back.
func (r *Reconciler) Reconcile(ctx context.Context, in OrderInput) (Reconciled, error) {
	if err := in.Validate(); err != nil {
		return Reconciled{}, invalid(err)
	}

	existing, err := r.lookupExisting(ctx, in.Items)
	if err != nil {
		return Reconciled{}, err
	}
	// ids that no longer exist fall back to new items and must be complete
	if err := newItemErrors(in.Items, func(it domain.InventoryItem) bool {
		_, ok := existing[it.ItemID]
		return it.ItemID > 0 && !ok
	}); err != nil {
		return Reconciled{}, invalid(validation.Errors{"items": err})
	}

	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return Reconciled{}, transient("begin order tx", err)
	}
	defer tx.Rollback()

	resolved := make([]resolvedItem, 0, len(in.Items))
	for _, incoming := range in.Items {
		if incoming.ItemID > 0 {
			if it, ok := existing[incoming.ItemID]; ok {
				resolved = append(resolved, resolvedItem{item: it, existing: true})
				continue
			}
		}
		fresh := incoming
		fresh.ItemID = 0
		fresh.OrderID = nil
		resolved = append(resolved, resolvedItem{item: fresh})
	}

	order := domain.Order{
		CustomerName: in.CustomerName,
		DatePlaced:   in.DatePlaced,
		Items:        make([]domain.InventoryItem, 0, len(resolved)),
	}
	if order.DatePlaced.IsZero() {
		order.DatePlaced = r.now()
	}
	order.DatePlaced = order.DatePlaced.UTC().Truncate(time.Microsecond)

	if err := tx.InsertOrder(ctx, &order); err != nil {
		return Reconciled{}, transient("insert order", err)
	}

	assigned := make(map[int64]struct{}, len(existing))
	var displaced []int64
	for _, ri := range resolved {
		item := ri.item
		orderID := order.OrderID
		item.OrderID = &orderID

		if ri.existing {
			if _, done := assigned[item.ItemID]; !done {
				if err := tx.AssignItem(ctx, item.ItemID, orderID); err != nil {
					return Reconciled{}, transient("attach item", err)
				}
				assigned[item.ItemID] = struct{}{}
				if prev := ri.item.OrderID; prev != nil && *prev != orderID {
					displaced = append(displaced, *prev)
				}
			}
		} else if err := tx.InsertItem(ctx, &item); err != nil {
			return Reconciled{}, transient("insert item", err)
		}

		order.Items = append(order.Items, item)
	}

	if err := tx.Commit(); err != nil {
		r.log.Error("order commit failed", zap.String("customer", order.CustomerName), zap.Error(err))
		return Reconciled{}, transient("commit order", err)
	}

	r.log.Info("order created",
		zap.Int64("order_id", order.OrderID),
		zap.Int("items", len(order.Items)),
		zap.Int("reused", len(assigned)),
	)
	return Reconciled{Order: order, Displaced: displaced}, nil
}

// lookupExisting fetches every positively-identified item in one query.
func (r *Reconciler) lookupExisting(ctx context.Context, items []domain.InventoryItem) (map[int64]domain.InventoryItem, error) {
	ids := suppliedIDs(items)
	existing := make(map[int64]domain.InventoryItem, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	found, err := r.store.FindItemsByIDs(ctx, ids)
	if err != nil {
		return nil, transient("find items", err)
	}
	for _, it := range found {
		existing[it.ItemID] = it
	}
	return existing, nil
}

// suppliedIDs returns the distinct positive ids in input order.
func suppliedIDs(items []domain.InventoryItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	var ids []int64
	for _, it := range items {
		if it.ItemID <= 0 {
			continue
		}
		if _, dup := seen[it.ItemID]; dup {
			continue
		}
		seen[it.ItemID] = struct{}{}
		ids = append(ids, it.ItemID)
	}
	return ids
}
