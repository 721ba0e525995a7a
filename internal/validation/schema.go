package validation

// Type is a JSON value type a schema can require.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// FormatDateTime requires an ISO-8601 (RFC 3339) timestamp string.
const FormatDateTime = "date-time"

// Schema is a declarative description of a JSON value. Nil pointer fields are
// unconstrained.
type Schema struct {
	Type          Type
	Required      []string
	Properties    map[string]*Schema
	Items         *Schema
	MinItems      *int
	Minimum       *float64
	MinProperties *int
	MaxProperties *int
	Format        string
	// Closed rejects object properties not listed in Properties.
	Closed bool
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

var itemSchema = &Schema{
	Type:     TypeObject,
	Required: []string{"productId", "quantity"},
	Closed:   true,
	Properties: map[string]*Schema{
		"productId": {Type: TypeString},
		"quantity":  {Type: TypeInteger, Minimum: floatPtr(1)},
		"price":     {Type: TypeNumber},
	},
}

// CreateOrderSchema is the shape of the POST /orders body.
var CreateOrderSchema = &Schema{
	Type:          TypeObject,
	Required:      []string{"customerId", "items", "total"},
	MinProperties: intPtr(3),
	MaxProperties: intPtr(3),
	Properties: map[string]*Schema{
		"customerId": {Type: TypeString},
		"items":      {Type: TypeArray, MinItems: intPtr(1), Items: itemSchema},
		"total":      {Type: TypeNumber},
	},
}

// OrderSchema is the shape of an order as written to the orders table.
var OrderSchema = &Schema{
	Type:          TypeObject,
	Required:      []string{"pk", "sk", "id", "customerId", "items", "total", "status", "created", "updated"},
	MinProperties: intPtr(9),
	MaxProperties: intPtr(9),
	Properties: map[string]*Schema{
		"pk":         {Type: TypeString},
		"sk":         {Type: TypeString},
		"id":         {Type: TypeString},
		"customerId": {Type: TypeString},
		"items":      {Type: TypeArray, MinItems: intPtr(1), Items: itemSchema},
		"total":      {Type: TypeNumber},
		"status":     {Type: TypeString},
		"created":    {Type: TypeString, Format: FormatDateTime},
		"updated":    {Type: TypeString, Format: FormatDateTime},
	},
}

// OrderEventSchema is the order as returned to callers and published on the
// orders queue: the stored shape without its key attributes.
var OrderEventSchema = &Schema{
	Type:          TypeObject,
	Required:      []string{"id", "customerId", "items", "total", "status", "created", "updated"},
	MinProperties: intPtr(7),
	MaxProperties: intPtr(7),
	Properties: map[string]*Schema{
		"id":         {Type: TypeString},
		"customerId": {Type: TypeString},
		"items":      {Type: TypeArray, MinItems: intPtr(1), Items: itemSchema},
		"total":      {Type: TypeNumber},
		"status":     {Type: TypeString},
		"created":    {Type: TypeString, Format: FormatDateTime},
		"updated":    {Type: TypeString, Format: FormatDateTime},
	},
}
