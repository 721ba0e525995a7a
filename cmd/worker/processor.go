package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/orders-service/internal/aws"
	"github.com/imrishuroy/orders-service/internal/orders"
	"github.com/imrishuroy/orders-service/internal/telemetry"
	"github.com/imrishuroy/orders-service/internal/validation"
)

// MetricOrderCreatedEvent counts order-created events accepted by the worker.
const MetricOrderCreatedEvent = "OrderCreatedEventProcessed"

// Processor consumes order-created events from the orders queue.
type Processor struct {
	validator *validation.Validator
	logger    *slog.Logger
	metrics   telemetry.Metrics
}

// NewProcessor creates a new worker processor.
func NewProcessor(v *validation.Validator, sinks telemetry.Sinks) *Processor {
	sinks = sinks.WithDefaults()
	return &Processor{
		validator: v,
		logger:    sinks.Logger,
		metrics:   sinks.Metrics,
	}
}

// Handle processes every record of the batch and reports the ones that failed,
// so only those are redelivered.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	p.logger.InfoContext(ctx, "received SQS messages", "count", len(ev.Records))

	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.logger.ErrorContext(ctx, "worker error", "message_id", rec.MessageId, "error", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	if kind := eventType(rec); kind != "" && kind != aws.EventOrderCreated {
		p.logger.InfoContext(ctx, "skipping event", "message_id", rec.MessageId, "event_type", kind)
		return nil
	}

	doc, err := validation.Decode([]byte(rec.Body))
	if err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if err := p.validator.Validate(validation.OrderEventSchema, doc); err != nil {
		return fmt.Errorf("invalid order event: %w", err)
	}

	var order orders.OrderResponse
	if err := json.Unmarshal([]byte(rec.Body), &order); err != nil {
		return fmt.Errorf("invalid order event: %w", err)
	}

	p.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"customer_id", order.CustomerID,
		"items", len(order.Items),
		"total", order.Total,
		"status", order.Status,
	)
	if err := p.metrics.AddCount(ctx, MetricOrderCreatedEvent, 1); err != nil {
		p.logger.WarnContext(ctx, "failed to emit metric", "metric", MetricOrderCreatedEvent, "error", err)
	}
	return nil
}
