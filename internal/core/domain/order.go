package domain

import "time"

type Order struct {
	OrderID      int64           `json:"orderId"`
	CustomerName string          `json:"customerName"`
	DatePlaced   time.Time       `json:"datePlaced"`
	Items        []InventoryItem `json:"items"`
}

// OrderView is the projection cached for list and by-id reads.
type OrderView struct {
	OrderID      int64      `json:"orderId" msgpack:"orderId" cbor:"orderId"`
	CustomerName string     `json:"customerName" msgpack:"customerName" cbor:"customerName"`
	DatePlaced   time.Time  `json:"datePlaced" msgpack:"datePlaced" cbor:"datePlaced"`
	Items        []ItemView `json:"items" msgpack:"items" cbor:"items"`
}

func NewOrderView(o Order) OrderView {
	items := make([]ItemView, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, NewItemView(it))
	}
	return OrderView{
		OrderID:      o.OrderID,
		CustomerName: o.CustomerName,
		DatePlaced:   o.DatePlaced.UTC(),
		Items:        items,
	}
}

func NewOrderViews(orders []Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderView(o))
	}
	return out
}
