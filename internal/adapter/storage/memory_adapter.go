package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrTxDone         = errors.New("transaction already finished")
)

var _ port.Store = (*MemoryAdapter)(nil)

type orderRow struct {
	id           int64
	customerName string
	datePlaced   time.Time
}

type memState struct {
	items  map[int64]domain.InventoryItem
	orders map[int64]orderRow
}

func (s memState) clone() memState {
	out := memState{
		items:  make(map[int64]domain.InventoryItem, len(s.items)),
		orders: make(map[int64]orderRow, len(s.orders)),
	}
	for k, v := range s.items {
		out.items[k] = copyItem(v)
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	return out
}

// MemoryAdapter is an in-process Store. Transactions stage their writes and
// apply them all-or-nothing on Commit; identities are allocated when a write
// is staged, so ids burnt by a rolled back transaction are never reused.
type MemoryAdapter struct {
	mu    sync.RWMutex
	state memState

	nextItemID  atomic.Int64
	nextOrderID atomic.Int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		state: memState{
			items:  make(map[int64]domain.InventoryItem),
			orders: make(map[int64]orderRow),
		},
	}
}

func (m *MemoryAdapter) BeginTx(ctx context.Context) (port.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &memoryTx{store: m}, nil
}

func (m *MemoryAdapter) FindItemsByIDs(ctx context.Context, ids []int64) ([]domain.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int64]struct{}, len(ids))
	var out []domain.InventoryItem
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if it, ok := m.state.items[id]; ok {
			out = append(out, copyItem(it))
		}
	}
	sortItems(out)
	return out, nil
}

func (m *MemoryAdapter) FindItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.state.items[id]
	if !ok {
		return nil, nil
	}
	cp := copyItem(it)
	return &cp, nil
}

func (m *MemoryAdapter) FindOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.state.orders[id]
	if !ok {
		return nil, nil
	}
	o := m.assemble(row)
	return &o, nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.InventoryItem, 0, len(m.state.items))
	for _, it := range m.state.items {
		out = append(out, copyItem(it))
	}
	sortItems(out)
	return out, nil
}

func (m *MemoryAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Order, 0, len(m.state.orders))
	for _, row := range m.state.orders {
		out = append(out, m.assemble(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DatePlaced.Equal(out[j].DatePlaced) {
			return out[i].DatePlaced.After(out[j].DatePlaced)
		}
		return out[i].OrderID > out[j].OrderID
	})
	return out, nil
}

func (m *MemoryAdapter) Close() error { return nil }

// assemble must be called with mu held.
func (m *MemoryAdapter) assemble(row orderRow) domain.Order {
	o := domain.Order{
		OrderID:      row.id,
		CustomerName: row.customerName,
		DatePlaced:   row.datePlaced,
		Items:        []domain.InventoryItem{},
	}
	for _, it := range m.state.items {
		if it.OrderID != nil && *it.OrderID == row.id {
			o.Items = append(o.Items, copyItem(it))
		}
	}
	sortItems(o.Items)
	return o
}

type memOp func(s memState) error

type memoryTx struct {
	store *MemoryAdapter
	ops   []memOp
	done  bool
}

func (t *memoryTx) stage(ctx context.Context, op memOp) error {
	if t.done {
		return ErrTxDone
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.ops = append(t.ops, op)
	return nil
}

func (t *memoryTx) InsertItem(ctx context.Context, item *domain.InventoryItem) error {
	if t.done {
		return ErrTxDone
	}
	item.ItemID = t.store.nextItemID.Add(1)
	row := copyItem(*item)
	return t.stage(ctx, func(s memState) error {
		if row.OrderID != nil {
			if _, ok := s.orders[*row.OrderID]; !ok {
				return fmt.Errorf("insert item: order %d: %w", *row.OrderID, ErrRecordNotFound)
			}
		}
		s.items[row.ItemID] = row
		return nil
	})
}

func (t *memoryTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	if t.done {
		return ErrTxDone
	}
	order.OrderID = t.store.nextOrderID.Add(1)
	row := orderRow{id: order.OrderID, customerName: order.CustomerName, datePlaced: order.DatePlaced.UTC()}
	return t.stage(ctx, func(s memState) error {
		s.orders[row.id] = row
		return nil
	})
}

func (t *memoryTx) AssignItem(ctx context.Context, itemID, orderID int64) error {
	return t.stage(ctx, func(s memState) error {
		it, ok := s.items[itemID]
		if !ok {
			return fmt.Errorf("assign item %d: %w", itemID, ErrRecordNotFound)
		}
		if _, ok := s.orders[orderID]; !ok {
			return fmt.Errorf("assign item %d: order %d: %w", itemID, orderID, ErrRecordNotFound)
		}
		oid := orderID
		it.OrderID = &oid
		s.items[itemID] = it
		return nil
	})
}

func (t *memoryTx) DeleteItem(ctx context.Context, itemID int64) error {
	return t.stage(ctx, func(s memState) error {
		delete(s.items, itemID)
		return nil
	})
}

func (t *memoryTx) DeleteOrder(ctx context.Context, orderID int64) error {
	return t.stage(ctx, func(s memState) error {
		for id, it := range s.items {
			if it.OrderID != nil && *it.OrderID == orderID {
				delete(s.items, id)
			}
		}
		delete(s.orders, orderID)
		return nil
	})
}

func (t *memoryTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	next := t.store.state.clone()
	for _, op := range t.ops {
		if err := op(next); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
	}
	t.store.state = next
	return nil
}

func (t *memoryTx) Rollback() error {
	t.done = true
	t.ops = nil
	return nil
}

func copyItem(it domain.InventoryItem) domain.InventoryItem {
	if it.OrderID != nil {
		oid := *it.OrderID
		it.OrderID = &oid
	}
	return it
}

func sortItems(items []domain.InventoryItem) {
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
}
