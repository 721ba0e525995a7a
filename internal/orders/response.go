package orders

// StripInternalKeys drops the storage-only attributes (pk, sk) from an order.
func StripInternalKeys(o *Order) OrderResponse {
	items := make([]Item, len(o.Items))
	copy(items, o.Items)
	return OrderResponse{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Items:      items,
		Total:      o.Total,
		Status:     o.Status,
		Created:    o.Created,
		Updated:    o.Updated,
	}
}
