package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

type InventoryService struct {
	store       port.Store
	cache       *cache.Layer
	invalidator *Invalidator
	events      notifier
	listTTL     time.Duration
	log         *zap.Logger
}

func NewInventoryService(deps Dependencies) *InventoryService {
	deps = deps.withDefaults()
	log := deps.Logger.Named("inventory")
	return &InventoryService{
		store:       deps.Store,
		cache:       deps.Cache,
		invalidator: NewInvalidator(deps.Cache, deps.EntryTTL, log),
		events:      newNotifier(deps, log),
		listTTL:     deps.ListTTL,
		log:         log,
	}
}

// GetInventoryList returns every item, served from the version-keyed list
// cache when possible.
func (s *InventoryService) GetInventoryList(ctx context.Context) (items []domain.InventoryItem, err error) {
	ctx, span := tracer.Start(ctx, "inventory.list")
	defer func() { endSpan(span, err) }()

	version := s.cache.GetOrInitVersion(ctx, cache.Inventory)
	if cached, ok := cache.TryGetList[domain.InventoryItem](ctx, s.cache, cache.Inventory, version); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	items, err = s.store.ListItems(ctx)
	if err != nil {
		return nil, transient("list items", err)
	}
	cache.PutList(ctx, s.cache, cache.Inventory, version, items, s.listTTL)
	return items, nil
}

func (s *InventoryService) CreateInventoryItem(ctx context.Context, in InventoryInput) (item domain.InventoryItem, err error) {
	ctx, span := tracer.Start(ctx, "inventory.create")
	defer func() { endSpan(span, err) }()

	if err := in.Validate(); err != nil {
		return domain.InventoryItem{}, invalid(err)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return domain.InventoryItem{}, transient("begin item tx", err)
	}
	defer tx.Rollback()

	item = domain.InventoryItem{Name: in.Name, Quantity: in.Quantity, Location: in.Location}
	if err := tx.InsertItem(ctx, &item); err != nil {
		return domain.InventoryItem{}, transient("insert item", err)
	}
	if err := tx.Commit(); err != nil {
		s.log.Error("item commit failed", zap.String("name", in.Name), zap.Error(err))
		return domain.InventoryItem{}, transient("commit item", err)
	}

	s.invalidator.InventoryItemCreated(ctx, item)
	s.events.emit(ctx, domain.EventInventoryCreated, item.ItemID)

	span.SetAttributes(attribute.Int64("item.id", item.ItemID))
	s.log.Info("item created", zap.Int64("item_id", item.ItemID), zap.String("name", item.Name))
	return item, nil
}

// DeleteInventoryItem removes an item. Deleting an id that does not exist is
// a successful no-op.
func (s *InventoryService) DeleteInventoryItem(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "inventory.delete", traceID(id))
	defer func() { endSpan(span, err) }()

	item, err := s.store.FindItemByID(ctx, id)
	if err != nil {
		return transient("find item", err)
	}
	if item == nil {
		return nil
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return transient("begin item tx", err)
	}
	defer tx.Rollback()

	if err := tx.DeleteItem(ctx, id); err != nil {
		return transient("delete item", err)
	}
	if err := tx.Commit(); err != nil {
		s.log.Error("item delete commit failed", zap.Int64("item_id", id), zap.Error(err))
		return transient("commit item delete", err)
	}

	s.invalidator.InventoryItemDeleted(ctx, *item)
	s.events.emit(ctx, domain.EventInventoryDeleted, id)

	s.log.Info("item deleted", zap.Int64("item_id", id))
	return nil
}

// Seed inserts items in one transaction when the store holds no inventory
// yet. It reports how many items were written.
func (s *InventoryService) Seed(ctx context.Context, inputs []InventoryInput) (int, error) {
	if len(inputs) == 0 {
		return 0, nil
	}
	for _, in := range inputs {
		if err := in.Validate(); err != nil {
			return 0, invalid(err)
		}
	}

	existing, err := s.store.ListItems(ctx)
	if err != nil {
		return 0, transient("list items", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return 0, transient("begin seed tx", err)
	}
	defer tx.Rollback()

	for _, in := range inputs {
		item := domain.InventoryItem{Name: in.Name, Quantity: in.Quantity, Location: in.Location}
		if err := tx.InsertItem(ctx, &item); err != nil {
			return 0, transient("seed item", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, transient("commit seed", err)
	}

	s.cache.BumpVersion(ctx, cache.Inventory)
	s.log.Info("inventory seeded", zap.Int("items", len(inputs)))
	return len(inputs), nil
}
