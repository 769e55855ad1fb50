package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/logitrack/internal/cache"
	"github.com/rl1809/logitrack/internal/core/domain"
)

func TestCreateInventoryItem_VisibleInNextList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// warm the list cache under the current version
	before, err := f.inventory.GetInventoryList(ctx)
	require.NoError(t, err)
	assert.Empty(t, before)

	item, err := f.inventory.CreateInventoryItem(ctx, InventoryInput{Name: "crate", Quantity: 4, Location: "B2"})
	require.NoError(t, err)
	assert.Positive(t, item.ItemID)

	after, err := f.inventory.GetInventoryList(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, item.ItemID, after[0].ItemID)
	assert.Equal(t, "crate", after[0].Name)

	assert.Equal(t, []domain.EventType{domain.EventInventoryCreated}, f.events.types())
}

func TestGetInventoryList_ServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addItems(t, 2)

	_, err := f.inventory.GetInventoryList(ctx)
	require.NoError(t, err)
	hits := f.layer.Stats().Hits

	items, err := f.inventory.GetInventoryList(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, hits+1, f.layer.Stats().Hits)
}

func TestCreateInventoryItem_Validation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   InventoryInput
	}{
		{"missing name", InventoryInput{Quantity: 1, Location: "A"}},
		{"blank name", InventoryInput{Name: "   ", Quantity: 1, Location: "A"}},
		{"negative quantity", InventoryInput{Name: "x", Quantity: -1, Location: "A"}},
		{"missing location", InventoryInput{Name: "x", Quantity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.inventory.CreateInventoryItem(context.Background(), tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Zero(t, f.store.begins.Load())
}

func TestDeleteInventoryItem_MissingIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	version := f.layer.GetOrInitVersion(ctx, cache.Inventory)

	require.NoError(t, f.inventory.DeleteInventoryItem(ctx, 42))
	require.NoError(t, f.inventory.DeleteInventoryItem(ctx, 42))

	assert.Zero(t, f.store.begins.Load())
	assert.Equal(t, string(version), f.version(t, cache.Inventory))
	assert.Empty(t, f.events.types())
}

func TestDeleteInventoryItem_OwnedItemRefreshesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	items := f.addItems(t, 2)

	order, err := f.orders.CreateOrder(ctx, OrderInput{
		CustomerName: "Ada",
		Items:        []domain.InventoryItem{{ItemID: items[0].ItemID}, {ItemID: items[1].ItemID}},
	})
	require.NoError(t, err)
	require.True(t, f.mr.Exists(cache.Orders.IDKey(order.OrderID)))
	ordersVersion := f.version(t, cache.Orders)

	require.NoError(t, f.inventory.DeleteInventoryItem(ctx, items[0].ItemID))

	assert.False(t, f.mr.Exists(cache.Orders.IDKey(order.OrderID)))
	assert.NotEqual(t, ordersVersion, f.version(t, cache.Orders))

	got, err := f.orders.GetOrderByID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, []int64{items[1].ItemID}, itemIDs(got.Items))
}

func TestDeleteInventoryItem_CommitFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.addItems(t, 1)[0]

	version := f.version(t, cache.Inventory)
	f.store.failCommit.Store(true)

	err := f.inventory.DeleteInventoryItem(ctx, item.ItemID)
	require.ErrorIs(t, err, ErrTransient)
	assert.True(t, errors.Is(err, errCommit))
	assert.Equal(t, version, f.version(t, cache.Inventory))

	f.store.failCommit.Store(false)
	items, err := f.inventory.GetInventoryList(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := []InventoryInput{
		{Name: "pallet", Quantity: 3, Location: "Dock"},
		{Name: "forklift", Quantity: 1, Location: "Yard"},
	}

	n, err := f.inventory.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.inventory.Seed(ctx, seed)
	require.NoError(t, err)
	assert.Zero(t, n)

	items, err := f.inventory.GetInventoryList(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestSeed_RejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.inventory.Seed(context.Background(), []InventoryInput{{Name: "", Location: "x"}})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, f.store.begins.Load())
}
