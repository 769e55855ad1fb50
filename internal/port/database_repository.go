package port

import (
	"context"

	"github.com/rl1809/logitrack/internal/core/domain"
)

// Store is the transactional backend holding inventory items and orders.
// Lookups that find nothing return a nil pointer and a nil error.
type Store interface {
	// BeginTx opens a transaction. The caller must Commit or Rollback it.
	BeginTx(ctx context.Context) (Tx, error)

	// FindItemsByIDs returns the items whose id is in ids, in one round trip
	FindItemsByIDs(ctx context.Context, ids []int64) ([]domain.InventoryItem, error)

	FindItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error)

	// FindOrderByID returns the order with its items
	FindOrderByID(ctx context.Context, id int64) (*domain.Order, error)

	ListItems(ctx context.Context) ([]domain.InventoryItem, error)

	// ListOrders returns every order with its items, newest first
	ListOrders(ctx context.Context) ([]domain.Order, error)

	Close() error
}

// Tx is a unit of work. Rollback after Commit is a no-op so it can be deferred.
type Tx interface {
	// InsertItem persists item and assigns its ItemID
	InsertItem(ctx context.Context, item *domain.InventoryItem) error

	// InsertOrder persists the order row only and assigns its OrderID
	InsertOrder(ctx context.Context, order *domain.Order) error

	// AssignItem sets the owning order of an existing item
	AssignItem(ctx context.Context, itemID, orderID int64) error

	DeleteItem(ctx context.Context, itemID int64) error

	// DeleteOrder removes the order and every item it owns
	DeleteOrder(ctx context.Context, orderID int64) error

	Commit() error
	Rollback() error
}
