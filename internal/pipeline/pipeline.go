// Package pipeline runs a create-order request through validation, the
// idempotency gate, the use case and response shaping.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/imrishuroy/orders-service/internal/apperr"
	"github.com/imrishuroy/orders-service/internal/idempotency"
	"github.com/imrishuroy/orders-service/internal/orders"
	"github.com/imrishuroy/orders-service/internal/telemetry"
	"github.com/imrishuroy/orders-service/internal/validation"
)

// AnnotationSuccessfulCreateOrder is the span attribute set on every request.
const AnnotationSuccessfulCreateOrder = "SuccessfulCreateOrder"

// settleTimeout bounds Complete and Release once they are detached from the
// request context.
const settleTimeout = 5 * time.Second

// Creator runs the create-order use case.
type Creator interface {
	Create(ctx context.Context, req orders.CreateOrder) (*orders.Order, error)
}

// FaultInjector may delay or fail a request before the use case runs.
type FaultInjector interface {
	Inject(ctx context.Context) error
}

// Notifier announces newly created orders.
type Notifier interface {
	PublishOrderCreated(ctx context.Context, orderID string, body []byte) error
}

// Options wires a Pipeline. Faults and Notifier are optional.
type Options struct {
	ServiceName string
	Stage       string
	// Canonical fingerprints the re-encoded document instead of the raw body,
	// so key order and whitespace no longer distinguish requests.
	Canonical bool
	LogEvent  bool

	Validator   *validation.Validator
	Idempotency idempotency.Store
	Creator     Creator
	Faults      FaultInjector
	Notifier    Notifier
	Sinks       telemetry.Sinks
}

type stage func(ctx context.Context, st State) (State, error)

// Pipeline is safe for concurrent use; per-request data lives in State.
type Pipeline struct {
	opts    Options
	logger  *slog.Logger
	metrics telemetry.Metrics
	tracer  trace.Tracer
	headers map[string]string
	stages  map[Phase]stage
}

// New returns a Pipeline. It panics when a required dependency is missing.
func New(opts Options) *Pipeline {
	if opts.Validator == nil || opts.Idempotency == nil || opts.Creator == nil {
		panic("pipeline: validator, idempotency store and creator are required")
	}
	sinks := opts.Sinks.WithDefaults()
	p := &Pipeline{
		opts:    opts,
		logger:  sinks.Logger,
		metrics: sinks.Metrics,
		tracer:  sinks.Tracer,
		headers: responseHeaders(opts.Stage),
	}
	p.stages = map[Phase]stage{
		PhaseReceived:  p.validate,
		PhaseValidated: p.fingerprint,
		PhaseDedupGate: p.dedup,
		PhaseExecuting: p.execute,
		PhasePersisted: p.shape,
		PhaseShaped:    p.respond,
	}
	return p
}

// Handle processes one create-order request body. It never returns an error:
// every failure is mapped to a response.
func (p *Pipeline) Handle(ctx context.Context, body []byte) Response {
	ctx, span := p.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	st := State{Phase: PhaseReceived, Raw: body}
	for st.Phase != PhaseResponded {
		run, ok := p.stages[st.Phase]
		if !ok {
			return p.fail(ctx, span, st, fmt.Errorf("no stage for phase %s", st.Phase))
		}
		next, err := run(ctx, st)
		if err != nil {
			return p.fail(ctx, span, st, err)
		}
		p.logger.DebugContext(ctx, "stage done", "from", st.Phase.String(), "to", next.Phase.String())
		st = next
	}

	span.SetAttributes(attribute.Bool(AnnotationSuccessfulCreateOrder, true))
	p.count(ctx, telemetry.MetricSuccessfulCreateOrder)
	return st.Response
}

// Reject answers a request whose body could not be read. It takes the same
// error path as a request that fails validation.
func (p *Pipeline) Reject(ctx context.Context, cause error) Response {
	ctx, span := p.tracer.Start(ctx, "CreateOrder")
	defer span.End()

	err := errors.Join(&validation.Error{Path: "/", Reason: "unable to read request body"}, cause)
	return p.fail(ctx, span, State{Phase: PhaseReceived}, err)
}

func (p *Pipeline) fail(ctx context.Context, span trace.Span, st State, err error) Response {
	failedIn := st.Phase
	st.Phase = PhaseError

	kind := apperr.KindOf(err)
	p.logger.ErrorContext(ctx, "create order failed",
		"phase", failedIn.String(),
		"state", st.Phase.String(),
		"kind", string(kind),
		"fingerprint", st.Fingerprint,
		"order_id", st.OrderID,
		"error", err,
	)

	span.SetAttributes(attribute.Bool(AnnotationSuccessfulCreateOrder, false))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(kind))
	p.count(ctx, telemetry.MetricCreateOrderError)

	return errorResponse(err, p.headers)
}

func (p *Pipeline) count(ctx context.Context, name string) {
	if err := p.metrics.AddCount(ctx, name, 1); err != nil {
		p.logger.WarnContext(ctx, "failed to emit metric", "metric", name, "error", err)
	}
}

// settleContext detaches from the request's cancellation so a reservation is
// still completed or released after the caller gave up.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}
