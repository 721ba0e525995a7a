// Package telemetry provides the logging, metrics and tracing sinks handed to
// the order pipeline.
package telemetry

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Sinks bundles the observability handles a component emits to.
type Sinks struct {
	Logger  *slog.Logger
	Metrics Metrics
	Tracer  trace.Tracer
}

// WithDefaults fills unset sinks with no-op implementations.
func (s Sinks) WithDefaults() Sinks {
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if s.Metrics == nil {
		s.Metrics = NopMetrics{}
	}
	if s.Tracer == nil {
		s.Tracer = NopTracer()
	}
	return s
}
