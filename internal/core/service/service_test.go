package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/logitrack/internal/adapter/storage"
	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

var errCommit = errors.New("commit refused")

// countingStore wraps a Store, counts opened transactions and can be told to
// fail every commit.
type countingStore struct {
	port.Store
	begins     atomic.Int32
	failCommit atomic.Bool
}

func (s *countingStore) BeginTx(ctx context.Context) (port.Tx, error) {
	s.begins.Add(1)
	tx, err := s.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	if s.failCommit.Load() {
		return failingTx{Tx: tx}, nil
	}
	return tx, nil
}

type failingTx struct {
	port.Tx
}

func (t failingTx) Commit() error {
	_ = t.Tx.Rollback()
	return errCommit
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	mr        *miniredis.Miniredis
	store     *countingStore
	layer     *cache.Layer
	events    *recordingPublisher
	inventory *InventoryService
	orders    *OrderService
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	layer, err := cache.New(cache.Options{Backend: storage.NewRedisAdapter(client, true)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = layer.Close(context.Background()) })

	store := &countingStore{Store: storage.NewMemoryAdapter()}
	events := &recordingPublisher{}
	deps := Dependencies{
		Store:  store,
		Cache:  layer,
		Events: events,
		Now:    func() time.Time { return fixedNow },
	}

	return &fixture{
		mr:        mr,
		store:     store,
		layer:     layer,
		events:    events,
		inventory: NewInventoryService(deps),
		orders:    NewOrderService(deps),
	}
}

// addItems creates n standalone items, returning them in id order.
func (f *fixture) addItems(t *testing.T, n int) []domain.InventoryItem {
	t.Helper()
	items := make([]domain.InventoryItem, 0, n)
	for i := 0; i < n; i++ {
		it, err := f.inventory.CreateInventoryItem(context.Background(), InventoryInput{
			Name:     "bolt",
			Quantity: 10 + i,
			Location: "A1",
		})
		require.NoError(t, err)
		items = append(items, it)
	}
	return items
}

func (f *fixture) version(t *testing.T, c cache.Collection) string {
	t.Helper()
	v, err := f.mr.Get(c.VersionKey())
	require.NoError(t, err)
	return v
}

func itemIDs(views []domain.ItemView) []int64 {
	ids := make([]int64, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ItemID)
	}
	return ids
}

// blockingPublisher holds every publish until its context ends.
type blockingPublisher struct {
	calls       atomic.Int32
	hadDeadline atomic.Bool
}

func (p *blockingPublisher) Publish(ctx context.Context, _ domain.Event) error {
	p.calls.Add(1)
	_, ok := ctx.Deadline()
	p.hadDeadline.Store(ok)
	<-ctx.Done()
	return ctx.Err()
}

func (p *blockingPublisher) Close() error { return nil }
