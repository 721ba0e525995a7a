package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/orders-service/internal/apperr"
)

func validateRaw(t *testing.T, s *Schema, raw string) error {
	t.Helper()
	v, err := Decode([]byte(raw))
	if err != nil {
		return err
	}
	return New().Validate(s, v)
}

func TestCreateOrderSchema(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantPath   string
		wantReason string
	}{
		{
			name: "valid",
			body: `{"customerId":"C1","items":[{"productId":"P1","quantity":2}],"total":20}`,
		},
		{
			name: "valid_with_price",
			body: `{"customerId":"C1","items":[{"productId":"P1","quantity":2,"price":9.99}],"total":19.98}`,
		},
		{
			name:       "missing_total",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":2}]}`,
			wantPath:   "/",
			wantReason: "must have required property 'total'",
		},
		{
			name:       "extra_field",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":2}],"total":20,"note":"x"}`,
			wantPath:   "/",
			wantReason: "must NOT have more than 3 properties",
		},
		{
			name:       "empty_items",
			body:       `{"customerId":"C1","items":[],"total":20}`,
			wantPath:   "/items",
			wantReason: "must NOT have fewer than 1 items",
		},
		{
			name:       "zero_quantity",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":0}],"total":20}`,
			wantPath:   "/items/0/quantity",
			wantReason: "must be >= 1",
		},
		{
			name:       "fractional_quantity",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":1.5}],"total":20}`,
			wantPath:   "/items/0/quantity",
			wantReason: "must be integer",
		},
		{
			name: "integral_float_quantity",
			body: `{"customerId":"C1","items":[{"productId":"P1","quantity":2.0}],"total":20}`,
		},
		{
			name:       "quantity_beyond_int64",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":1e19}],"total":20}`,
			wantPath:   "/items/0/quantity",
			wantReason: "must be integer",
		},
		{
			name:       "item_extra_property",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":1,"sku":"S-1"}],"total":20}`,
			wantPath:   "/items/0/sku",
			wantReason: "must NOT have additional properties",
		},
		{
			name:       "item_missing_product",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":1},{"quantity":1}],"total":20}`,
			wantPath:   "/items/1",
			wantReason: "must have required property 'productId'",
		},
		{
			name:       "customer_not_string",
			body:       `{"customerId":7,"items":[{"productId":"P1","quantity":1}],"total":20}`,
			wantPath:   "/customerId",
			wantReason: "must be string",
		},
		{
			name:       "total_as_string",
			body:       `{"customerId":"C1","items":[{"productId":"P1","quantity":1}],"total":"20"}`,
			wantPath:   "/total",
			wantReason: "must be number",
		},
		{
			name:       "not_an_object",
			body:       `[1,2,3]`,
			wantPath:   "/",
			wantReason: "must be object",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateRaw(t, CreateOrderSchema, tc.body)
			if tc.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			var verr *Error
			require.True(t, errors.As(err, &verr), "expected *Error, got %v", err)
			assert.Equal(t, tc.wantPath, verr.Path)
			assert.Equal(t, tc.wantReason, verr.Reason)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestOrderSchema(t *testing.T) {
	valid := `{"pk":"ORDER#1","sk":"ORDER#1","id":"1","customerId":"C1",
		"items":[{"productId":"P1","quantity":2}],"total":20,"status":"PENDING",
		"created":"2024-05-01T10:00:00.000Z","updated":"2024-05-01T10:00:00.000Z"}`
	assert.NoError(t, validateRaw(t, OrderSchema, valid))

	badDate := `{"pk":"ORDER#1","sk":"ORDER#1","id":"1","customerId":"C1",
		"items":[{"productId":"P1","quantity":2}],"total":20,"status":"PENDING",
		"created":"yesterday","updated":"2024-05-01T10:00:00.000Z"}`
	err := validateRaw(t, OrderSchema, badDate)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "/created", verr.Path)
	assert.Equal(t, `must match format "date-time"`, verr.Reason)

	missingSK := `{"pk":"ORDER#1","id":"1","customerId":"C1",
		"items":[{"productId":"P1","quantity":2}],"total":20,"status":"PENDING",
		"created":"2024-05-01T10:00:00.000Z","updated":"2024-05-01T10:00:00.000Z"}`
	assert.ErrorIs(t, validateRaw(t, OrderSchema, missingSK), apperr.ErrValidation)
}

func TestOrderEventSchema_RejectsKeyAttributes(t *testing.T) {
	withKeys := `{"pk":"ORDER#1","sk":"ORDER#1","id":"1","customerId":"C1",
		"items":[{"productId":"P1","quantity":2}],"total":20,"status":"PENDING",
		"created":"2024-05-01T10:00:00.000Z","updated":"2024-05-01T10:00:00.000Z"}`
	err := validateRaw(t, OrderEventSchema, withKeys)
	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must NOT have more than 7 properties", verr.Reason)
}

func TestDecode(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Decode([]byte(`{"a":1`))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = Decode([]byte(`{"a":1} {"b":2}`))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	v, err := Decode([]byte(" {\"a\": 1}\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "1"}, stringifyNumbers(v))
}

func TestCanonical_SortsKeys(t *testing.T) {
	a, err := Decode([]byte(`{"total":20, "customerId":"C1"}`))
	require.NoError(t, err)
	b, err := Decode([]byte(`{"customerId":"C1","total":20}`))
	require.NoError(t, err)

	ca, err := Canonical(a)
	require.NoError(t, err)
	cb, err := Canonical(b)
	require.NoError(t, err)
	assert.Equal(t, string(cb), string(ca))
	assert.Equal(t, `{"customerId":"C1","total":20}`, string(ca))
}

func stringifyNumbers(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := map[string]any{}
	for k, val := range m {
		out[k] = val
		if n, ok := val.(interface{ String() string }); ok {
			out[k] = n.String()
		}
	}
	return out
}
