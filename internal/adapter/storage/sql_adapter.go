package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/logitrack/internal/core/domain"
	"github.com/rl1809/logitrack/internal/port"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

var _ port.Store = (*SQLAdapter)(nil)

var schemas = map[string][]string{
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS orders (
			order_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			customer_name VARCHAR(255) NOT NULL,
			date_placed DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			item_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			location VARCHAR(255) NOT NULL,
			order_id BIGINT NULL,
			INDEX idx_inventory_items_order (order_id),
			CONSTRAINT fk_inventory_items_order FOREIGN KEY (order_id) REFERENCES orders (order_id)
		)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS orders (
			order_id INTEGER PRIMARY KEY AUTOINCREMENT,
			customer_name TEXT NOT NULL,
			date_placed DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS inventory_items (
			item_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			location TEXT NOT NULL,
			order_id INTEGER NULL REFERENCES orders (order_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_items_order ON inventory_items (order_id)`,
	},
}

const itemColumns = `item_id, name, quantity, location, order_id`

// SQLAdapter is a Store over database/sql. The queries are written to run
// unchanged on MySQL and SQLite.
type SQLAdapter struct {
	db     *sql.DB
	driver string
}

func NewSQLAdapter(db *sql.DB, driver string) *SQLAdapter {
	return &SQLAdapter{db: db, driver: driver}
}

// Migrate creates the tables if they do not exist yet.
func (m *SQLAdapter) Migrate(ctx context.Context) error {
	stmts, ok := schemas[m.driver]
	if !ok {
		return fmt.Errorf("migrate: unsupported driver %q", m.driver)
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (m *SQLAdapter) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

func (m *SQLAdapter) FindItemsByIDs(ctx context.Context, ids []int64) ([]domain.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := m.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE item_id IN (`+placeholders+`) ORDER BY item_id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query items by ids: %w", err)
	}
	return scanItems(rows)
}

func (m *SQLAdapter) FindItemByID(ctx context.Context, id int64) (*domain.InventoryItem, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE item_id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (m *SQLAdapter) FindOrderByID(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := m.db.QueryRowContext(ctx, `
		SELECT order_id, customer_name, date_placed
		FROM orders WHERE order_id = ?`, id,
	).Scan(&o.OrderID, &o.CustomerName, &o.DatePlaced)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := m.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE order_id = ? ORDER BY item_id`, id)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}

	o.DatePlaced = o.DatePlaced.UTC()
	o.Items = nonNil(items)
	return &o, nil
}

func (m *SQLAdapter) ListItems(ctx context.Context) ([]domain.InventoryItem, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM inventory_items ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	return nonNil(items), nil
}

func (m *SQLAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, customer_name, date_placed
		FROM orders ORDER BY date_placed DESC, order_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	index := make(map[int64]int)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.OrderID, &o.CustomerName, &o.DatePlaced); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.DatePlaced = o.DatePlaced.UTC()
		o.Items = []domain.InventoryItem{}
		index[o.OrderID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	// release the connection before the second query; SQLite runs with one
	rows.Close()

	itemRows, err := m.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE order_id IS NOT NULL ORDER BY item_id`)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	items, err := scanItems(itemRows)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if i, ok := index[*it.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	return orders, nil
}

func (m *SQLAdapter) Close() error {
	return m.db.Close()
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) InsertItem(ctx context.Context, item *domain.InventoryItem) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO inventory_items (name, quantity, location, order_id)
		VALUES (?, ?, ?, ?)`,
		item.Name, item.Quantity, item.Location, nullableID(item.OrderID),
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	item.ItemID = id
	return nil
}

func (t *sqlTx) InsertOrder(ctx context.Context, order *domain.Order) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (customer_name, date_placed)
		VALUES (?, ?)`,
		order.CustomerName, order.DatePlaced.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	order.OrderID = id
	return nil
}

func (t *sqlTx) AssignItem(ctx context.Context, itemID, orderID int64) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE inventory_items SET order_id = ? WHERE item_id = ?`, orderID, itemID)
	if err != nil {
		return fmt.Errorf("assign item: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("assign item %d: %w", itemID, ErrRecordNotFound)
	}
	return nil
}

func (t *sqlTx) DeleteItem(ctx context.Context, itemID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE item_id = ?`, itemID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (t *sqlTx) DeleteOrder(ctx context.Context, orderID int64) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM inventory_items WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = ?`, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (t *sqlTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.InventoryItem, error) {
	var (
		it      domain.InventoryItem
		orderID sql.NullInt64
	)
	if err := row.Scan(&it.ItemID, &it.Name, &it.Quantity, &it.Location, &orderID); err != nil {
		return domain.InventoryItem{}, err
	}
	if orderID.Valid {
		oid := orderID.Int64
		it.OrderID = &oid
	}
	return it, nil
}

func scanItems(rows *sql.Rows) ([]domain.InventoryItem, error) {
	defer rows.Close()

	var items []domain.InventoryItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nonNil(items []domain.InventoryItem) []domain.InventoryItem {
	if items == nil {
		return []domain.InventoryItem{}
	}
	return items
}
