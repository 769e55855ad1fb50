package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

type OrderService struct {
	store       port.Store
	cache       *cache.Layer
	reconciler  *Reconciler
	invalidator *Invalidator
	events      notifier
	deps        Dependencies
	log         *zap.Logger
}

func NewOrderService(deps Dependencies) *OrderService {
	deps = deps.withDefaults()
	log := deps.Logger.Named("orders")
	return &OrderService{
		store:       deps.Store,
		cache:       deps.Cache,
		reconciler:  NewReconciler(deps.Store, deps.Now, log),
		invalidator: NewInvalidator(deps.Cache, deps.EntryTTL, log),
		events:      newNotifier(deps, log),
		deps:        deps,
		log:         log,
	}
}

// GetOrderList returns all orders newest first, served from the version-keyed
// list cache when possible.
func (s *OrderService) GetOrderList(ctx context.Context) (views []domain.OrderView, err error) {
	ctx, span := tracer.Start(ctx, "orders.list")
	defer func() { endSpan(span, err) }()

	version := s.cache.GetOrInitVersion(ctx, cache.Orders)
	if cached, ok := cache.TryGetList[domain.OrderView](ctx, s.cache, cache.Orders, version); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, transient("list orders", err)
	}
	views = domain.NewOrderViews(orders)
	cache.PutList(ctx, s.cache, cache.Orders, version, views, s.deps.ListTTL)
	return views, nil
}

func (s *OrderService) GetOrderByID(ctx context.Context, id int64) (view domain.OrderView, err error) {
	ctx, span := tracer.Start(ctx, "orders.get", traceID(id))
	defer func() { endSpan(span, err) }()

	if cached, ok := cache.GetByID[domain.OrderView](ctx, s.cache, cache.Orders, id); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return cached, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	order, err := s.store.FindOrderByID(ctx, id)
	if err != nil {
		return domain.OrderView{}, transient("find order", err)
	}
	if order == nil {
		return domain.OrderView{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}

	view = domain.NewOrderView(*order)
	s.invalidator.OrderLoaded(ctx, view)
	return view, nil
}

// CreateOrder reconciles the input against stored items and persists the
// order. Caches are refreshed only once the transaction has committed.
func (s *OrderService) CreateOrder(ctx context.Context, in OrderInput) (view domain.OrderView, err error) {
	ctx, span := tracer.Start(ctx, "orders.create")
	defer func() { endSpan(span, err) }()

	res, err := s.reconciler.Reconcile(ctx, in)
	if err != nil {
		return domain.OrderView{}, err
	}
	order := res.Order

	view = domain.NewOrderView(order)
	s.invalidator.OrderCreated(ctx, view, res.Displaced)
	s.events.emit(ctx, domain.EventOrderCreated, order.OrderID)

	span.SetAttributes(
		attribute.Int64("order.id", order.OrderID),
		attribute.Int("order.items", len(order.Items)),
	)
	return view, nil
}

// DeleteOrder removes an order and the items it owns. Deleting an id that
// does not exist is a successful no-op.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) (err error) {
	ctx, span := tracer.Start(ctx, "orders.delete", traceID(id))
	defer func() { endSpan(span, err) }()

	order, err := s.store.FindOrderByID(ctx, id)
	if err != nil {
		return transient("find order", err)
	}
	if order == nil {
		return nil
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return transient("begin order tx", err)
	}
	defer tx.Rollback()

	if err := tx.DeleteOrder(ctx, id); err != nil {
		return transient("delete order", err)
	}
	if err := tx.Commit(); err != nil {
		s.log.Error("order delete commit failed", zap.Int64("order_id", id), zap.Error(err))
		return transient("commit order delete", err)
	}

	s.invalidator.OrderDeleted(ctx, id)
	s.events.emit(ctx, domain.EventOrderDeleted, id)

	s.log.Info("order deleted", zap.Int64("order_id", id), zap.Int("items", len(order.Items)))
	return nil
}

func traceID(id int64) trace.SpanStartOption {
	return trace.WithAttributes(attribute.Int64("entity.id", id))
}
