package pipeline

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/imrishuroy/orders-service/internal/orders"
)

// createOrderFromDocument builds the typed request from a document that
// already passed CreateOrderSchema. Numbers are read the way the schema read
// them, so an integral 2.0 is quantity 2.
func createOrderFromDocument(doc any) (orders.CreateOrder, error) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return orders.CreateOrder{}, fmt.Errorf("create order document is %T", doc)
	}

	customerID, _ := obj["customerId"].(string)
	total, err := number(obj["total"])
	if err != nil {
		return orders.CreateOrder{}, fmt.Errorf("total: %w", err)
	}

	rawItems, _ := obj["items"].([]any)
	items := make([]orders.Item, 0, len(rawItems))
	for i, raw := range rawItems {
		fields, ok := raw.(map[string]any)
		if !ok {
			return orders.CreateOrder{}, fmt.Errorf("items[%d] is %T", i, raw)
		}
		quantity, err := number(fields["quantity"])
		if err != nil {
			return orders.CreateOrder{}, fmt.Errorf("items[%d].quantity: %w", i, err)
		}
		if quantity != math.Trunc(quantity) || quantity < math.MinInt64 || quantity >= math.MaxInt64 {
			return orders.CreateOrder{}, fmt.Errorf("items[%d].quantity %v is not an int", i, quantity)
		}

		item := orders.Item{Quantity: int(quantity)}
		item.ProductID, _ = fields["productId"].(string)
		if p, present := fields["price"]; present {
			price, err := number(p)
			if err != nil {
				return orders.CreateOrder{}, fmt.Errorf("items[%d].price: %w", i, err)
			}
			item.Price = &price
		}
		items = append(items, item)
	}

	return orders.CreateOrder{
		CustomerID: customerID,
		Items:      items,
		Total:      total,
	}, nil
}

func number(v any) (float64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Float64()
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("%v is not a number", v)
	}
}
