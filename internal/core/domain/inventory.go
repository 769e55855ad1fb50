package domain

// InventoryItem is a stock line stored in the warehouse. OrderID is set by the
// store when the item is owned by an order; the order holds the owning side.
type InventoryItem struct {
	ItemID   int64  `json:"itemId" msgpack:"itemId" cbor:"itemId"`
	Name     string `json:"name" msgpack:"name" cbor:"name"`
	Quantity int    `json:"quantity" msgpack:"quantity" cbor:"quantity"`
	Location string `json:"location" msgpack:"location" cbor:"location"`
	OrderID  *int64 `json:"orderId,omitempty" msgpack:"orderId,omitempty" cbor:"orderId,omitempty"`
}

// Persisted reports whether the store has assigned an identity to the item.
func (i InventoryItem) Persisted() bool {
	return i.ItemID > 0
}

// ItemView is the client-facing projection of an item inside an order.
type ItemView struct {
	ItemID   int64  `json:"itemId" msgpack:"itemId" cbor:"itemId"`
	Name     string `json:"name" msgpack:"name" cbor:"name"`
	Quantity int    `json:"quantity" msgpack:"quantity" cbor:"quantity"`
	Location string `json:"location" msgpack:"location" cbor:"location"`
}

func NewItemView(i InventoryItem) ItemView {
	return ItemView{
		ItemID:   i.ItemID,
		Name:     i.Name,
		Quantity: i.Quantity,
		Location: i.Location,
	}
}
