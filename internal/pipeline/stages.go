package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imrishuroy/orders-service/internal/apperr"
	"github.com/imrishuroy/orders-service/internal/idempotency"
	"github.com/imrishuroy/orders-service/internal/orders"
	"github.com/imrishuroy/orders-service/internal/validation"
)

// validate: RECEIVED -> VALIDATED.
func (p *Pipeline) validate(ctx context.Context, st State) (State, error) {
	if p.opts.LogEvent {
		p.logger.InfoContext(ctx, "create order request", "body", string(st.Raw))
	}

	doc, err := validation.Decode(st.Raw)
	if err != nil {
		return st, err
	}
	if err := p.opts.Validator.Validate(validation.CreateOrderSchema, doc); err != nil {
		return st, err
	}

	input, err := createOrderFromDocument(doc)
	if err != nil {
		return st, fmt.Errorf("build create order request: %w", err)
	}

	st.Document = doc
	st.Input = input
	st.Phase = PhaseValidated
	return st, nil
}

// fingerprint: VALIDATED -> DEDUP_GATE.
func (p *Pipeline) fingerprint(ctx context.Context, st State) (State, error) {
	payload := st.Raw
	if p.opts.Canonical {
		canonical, err := validation.Canonical(st.Document)
		if err != nil {
			return st, err
		}
		payload = canonical
	}
	st.Fingerprint = idempotency.Fingerprint(p.opts.ServiceName, payload)
	st.Phase = PhaseDedupGate
	return st, nil
}

// dedup: DEDUP_GATE -> EXECUTING, or straight to SHAPED for a replay.
func (p *Pipeline) dedup(ctx context.Context, st State) (State, error) {
	res, err := p.opts.Idempotency.Begin(ctx, st.Fingerprint)
	if err != nil {
		return st, err
	}
	p.logger.DebugContext(ctx, "idempotency gate", "fingerprint", st.Fingerprint, "outcome", res.Outcome.String())

	switch res.Outcome {
	case idempotency.Proceed:
		st.Phase = PhaseExecuting
	case idempotency.Duplicate:
		st.Snapshot = res.ResponseBody
		st.Replayed = true
		st.OrderID = snapshotID(res.ResponseBody)
		st.Phase = PhaseShaped
	case idempotency.InProgress:
		return st, apperr.Conflict(st.Fingerprint)
	default:
		return st, fmt.Errorf("unknown idempotency outcome %d", res.Outcome)
	}
	return st, nil
}

// execute: EXECUTING -> PERSISTED. The reservation is released on any failure.
func (p *Pipeline) execute(ctx context.Context, st State) (State, error) {
	if p.opts.Faults != nil {
		if err := p.opts.Faults.Inject(ctx); err != nil {
			return st, p.release(ctx, st, err)
		}
	}

	order, err := p.opts.Creator.Create(ctx, st.Input)
	if err != nil {
		return st, p.release(ctx, st, err)
	}

	st.Order = order
	st.OrderID = order.ID
	st.Phase = PhasePersisted
	return st, nil
}

// shape: PERSISTED -> SHAPED. Completes the reservation with the shaped body.
func (p *Pipeline) shape(ctx context.Context, st State) (State, error) {
	body, err := json.Marshal(orders.StripInternalKeys(st.Order))
	if err != nil {
		return st, p.release(ctx, st, fmt.Errorf("marshal order %s: %w", st.OrderID, err))
	}

	settleCtx, cancel := settleContext(ctx)
	defer cancel()
	if err := p.opts.Idempotency.Complete(settleCtx, st.Fingerprint, body); err != nil {
		return st, p.release(ctx, st, err)
	}

	p.notify(ctx, st.OrderID, body)

	st.Snapshot = body
	st.Phase = PhaseShaped
	return st, nil
}

// respond: SHAPED -> RESPONDED.
func (p *Pipeline) respond(ctx context.Context, st State) (State, error) {
	if st.Replayed {
		p.logger.InfoContext(ctx, "replaying completed order", "fingerprint", st.Fingerprint, "order_id", st.OrderID)
	}
	st.Response = Response{
		StatusCode: 200,
		Headers:    cloneHeaders(p.headers),
		Body:       st.Snapshot,
	}
	st.Phase = PhaseResponded
	return st, nil
}

// release drops the reservation for st and returns cause, joined with any
// release failure.
func (p *Pipeline) release(ctx context.Context, st State, cause error) error {
	settleCtx, cancel := settleContext(ctx)
	defer cancel()
	if err := p.opts.Idempotency.Release(settleCtx, st.Fingerprint); err != nil {
		p.logger.ErrorContext(ctx, "failed to release idempotency reservation",
			"fingerprint", st.Fingerprint,
			"error", err,
		)
		return errors.Join(cause, err)
	}
	return cause
}

func (p *Pipeline) notify(ctx context.Context, orderID string, body []byte) {
	if p.opts.Notifier == nil {
		return
	}
	if err := p.opts.Notifier.PublishOrderCreated(ctx, orderID, body); err != nil {
		p.logger.WarnContext(ctx, "failed to publish order created event", "order_id", orderID, "error", err)
	}
}

func snapshotID(body []byte) string {
	var v struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return ""
	}
	return v.ID
}
