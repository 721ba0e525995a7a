package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/orders-service/internal/validation"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Upserter persists a complete order.
type Upserter interface {
	Upsert(ctx context.Context, order *Order) error
}

// Creator builds new orders and persists them.
type Creator struct {
	store     Upserter
	validator *validation.Validator
	logger    *slog.Logger
	newID     func() string
	nowFunc   func() time.Time
}

// NewCreator returns a Creator writing through store.
func NewCreator(store Upserter, v *validation.Validator, logger *slog.Logger) *Creator {
	return &Creator{
		store:     store,
		validator: v,
		logger:    logger,
		newID:     uuid.NewString,
		nowFunc:   time.Now,
	}
}

// Create assigns identity, timestamps and the initial status to req, checks
// the result against the order schema and upserts it.
func (c *Creator) Create(ctx context.Context, req CreateOrder) (*Order, error) {
	orderID := c.newID()
	c.logger.InfoContext(ctx, "creating order", "order_id", orderID)

	created := c.nowFunc().UTC().Format(TimestampLayout)
	key := OrderKey(orderID)

	order := &Order{
		PK:         key,
		SK:         key,
		ID:         orderID,
		CustomerID: req.CustomerID,
		Items:      req.Items,
		Total:      req.Total,
		Status:     StatusPending,
		Created:    created,
		Updated:    created,
	}

	value, err := validation.ToValue(order)
	if err != nil {
		return nil, err
	}
	if err := c.validator.Validate(validation.OrderSchema, value); err != nil {
		return nil, fmt.Errorf("built order %s: %w", orderID, err)
	}

	if err := c.store.Upsert(ctx, order); err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "order created", "order_id", orderID)
	return order, nil
}
