package orders

// StatusPending is the status every new order starts in.
const StatusPending = "PENDING"

// Item is a single order line.
type Item struct {
	ProductID string   `json:"productId" dynamodbav:"productId"`
	Quantity  int      `json:"quantity" dynamodbav:"quantity"`
	Price     *float64 `json:"price,omitempty" dynamodbav:"price,omitempty"`
}

// CreateOrder is the payload for POST /orders.
type CreateOrder struct {
	CustomerID string  `json:"customerId"`
	Items      []Item  `json:"items"`
	Total      float64 `json:"total"`
}

// Order represents the item stored in the orders table. PK and SK are both
// derived from ID so every order lives in its own partition.
type Order struct {
	PK         string  `json:"pk" dynamodbav:"pk"`
	SK         string  `json:"sk" dynamodbav:"sk"`
	ID         string  `json:"id" dynamodbav:"id"`
	CustomerID string  `json:"customerId" dynamodbav:"customerId"`
	Items      []Item  `json:"items" dynamodbav:"items"`
	Total      float64 `json:"total" dynamodbav:"total"`
	Status     string  `json:"status" dynamodbav:"status"`
	Created    string  `json:"created" dynamodbav:"created"`
	Updated    string  `json:"updated" dynamodbav:"updated"`
}

// OrderResponse is an order as returned to callers: no key attributes.
type OrderResponse struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customerId"`
	Items      []Item  `json:"items"`
	Total      float64 `json:"total"`
	Status     string  `json:"status"`
	Created    string  `json:"created"`
	Updated    string  `json:"updated"`
}

// OrderKey returns the partition and sort key value for an order id.
func OrderKey(id string) string { return "ORDER#" + id }
