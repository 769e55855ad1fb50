package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

// runStoreSuite exercises the port.Store contract. newStore must return an
// empty store.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) port.Store) {
	t.Run("CreateAndRead", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		loose := insertItem(t, s, domain.InventoryItem{Name: "bolt", Quantity: 5, Location: "A1"})

		placed := time.Date(2024, 1, 2, 3, 4, 5, 678000, time.UTC)
		tx, err := s.BeginTx(ctx)
		require.NoError(t, err)
		order := domain.Order{CustomerName: "Ada", DatePlaced: placed}
		require.NoError(t, tx.InsertOrder(ctx, &order))
		require.Positive(t, order.OrderID)

		owned := domain.InventoryItem{Name: "nut", Quantity: 2, Location: "B1", OrderID: &order.OrderID}
		require.NoError(t, tx.InsertItem(ctx, &owned))
		require.NoError(t, tx.AssignItem(ctx, loose.ItemID, order.OrderID))
		require.NoError(t, tx.Commit())
		require.NoError(t, tx.Rollback(), "rollback after commit is a no-op")

		got, err := s.FindOrderByID(ctx, order.OrderID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Ada", got.CustomerName)
		assert.True(t, placed.Equal(got.DatePlaced), "got %v", got.DatePlaced)
		require.Len(t, got.Items, 2)
		assert.Equal(t, loose.ItemID, got.Items[0].ItemID)
		assert.Equal(t, owned.ItemID, got.Items[1].ItemID)
		for _, it := range got.Items {
			require.NotNil(t, it.OrderID)
			assert.Equal(t, order.OrderID, *it.OrderID)
		}

		item, err := s.FindItemByID(ctx, owned.ItemID)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, "nut", item.Name)
	})

	t.Run("MissingLookups", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		item, err := s.FindItemByID(ctx, 12345)
		require.NoError(t, err)
		assert.Nil(t, item)

		order, err := s.FindOrderByID(ctx, 12345)
		require.NoError(t, err)
		assert.Nil(t, order)

		items, err := s.ListItems(ctx)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)

		orders, err := s.ListOrders(ctx)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("FindItemsByIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		a := insertItem(t, s, domain.InventoryItem{Name: "a", Quantity: 1, Location: "X"})
		b := insertItem(t, s, domain.InventoryItem{Name: "b", Quantity: 1, Location: "X"})

		found, err := s.FindItemsByIDs(ctx, []int64{b.ItemID, 9999, a.ItemID, b.ItemID})
		require.NoError(t, err)
		require.Len(t, found, 2)
		assert.Equal(t, a.ItemID, found[0].ItemID)
		assert.Equal(t, b.ItemID, found[1].ItemID)

		found, err = s.FindItemsByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	t.Run("RollbackDiscards", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tx, err := s.BeginTx(ctx)
		require.NoError(t, err)
		order := domain.Order{CustomerName: "Ada", DatePlaced: time.Now().UTC()}
		require.NoError(t, tx.InsertOrder(ctx, &order))
		item := domain.InventoryItem{Name: "x", Quantity: 1, Location: "Y", OrderID: &order.OrderID}
		require.NoError(t, tx.InsertItem(ctx, &item))
		require.NoError(t, tx.Rollback())

		items, err := s.ListItems(ctx)
		require.NoError(t, err)
		assert.Empty(t, items)

		orders, err := s.ListOrders(ctx)
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("AssignMissingItem", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		tx, err := s.BeginTx(ctx)
		require.NoError(t, err)
		defer tx.Rollback()

		order := domain.Order{CustomerName: "Ada", DatePlaced: time.Now().UTC()}
		require.NoError(t, tx.InsertOrder(ctx, &order))

		err = tx.AssignItem(ctx, 777, order.OrderID)
		if err == nil {
			err = tx.Commit()
		}
		assert.True(t, errors.Is(err, ErrRecordNotFound), "got %v", err)
	})

	t.Run("DeleteOrderCascades", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		loose := insertItem(t, s, domain.InventoryItem{Name: "loose", Quantity: 1, Location: "A"})

		tx, err := s.BeginTx(ctx)
		require.NoError(t, err)
		order := domain.Order{CustomerName: "Ada", DatePlaced: time.Now().UTC()}
		require.NoError(t, tx.InsertOrder(ctx, &order))
		owned := domain.InventoryItem{Name: "owned", Quantity: 1, Location: "A", OrderID: &order.OrderID}
		require.NoError(t, tx.InsertItem(ctx, &owned))
		require.NoError(t, tx.Commit())

		tx, err = s.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.DeleteOrder(ctx, order.OrderID))
		require.NoError(t, tx.DeleteItem(ctx, 4242))
		require.NoError(t, tx.Commit())

		got, err := s.FindOrderByID(ctx, order.OrderID)
		require.NoError(t, err)
		assert.Nil(t, got)

		items, err := s.ListItems(ctx)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, loose.ItemID, items[0].ItemID)
	})

	t.Run("ListOrdersNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

		var ids []int64
		for i, offset := range []time.Duration{0, 2 * time.Hour, time.Hour} {
			tx, err := s.BeginTx(ctx)
			require.NoError(t, err)
			o := domain.Order{CustomerName: "c", DatePlaced: base.Add(offset)}
			require.NoError(t, tx.InsertOrder(ctx, &o))
			it := domain.InventoryItem{Name: "i", Quantity: i, Location: "L", OrderID: &o.OrderID}
			require.NoError(t, tx.InsertItem(ctx, &it))
			require.NoError(t, tx.Commit())
			ids = append(ids, o.OrderID)
		}

		orders, err := s.ListOrders(ctx)
		require.NoError(t, err)
		require.Len(t, orders, 3)
		assert.Equal(t, []int64{ids[1], ids[2], ids[0]}, []int64{orders[0].OrderID, orders[1].OrderID, orders[2].OrderID})
		for _, o := range orders {
			assert.Len(t, o.Items, 1)
		}
	})
}

func insertItem(t *testing.T, s port.Store, item domain.InventoryItem) domain.InventoryItem {
	t.Helper()
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.InsertItem(ctx, &item))
	require.NoError(t, tx.Commit())
	require.Positive(t, item.ItemID)
	return item
}
