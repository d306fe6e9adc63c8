// Package telemetry emits OpenTelemetry spans and metrics around each
// compiler pipeline stage (SPEC_FULL.md §3 domain stack), grounded on the
// teacher pack's own otel.Tracer/span-event usage for fire-and-forget work
// (internal/hooks.runHook in the beads example: a root span per unit of
// work, attributes set at start, RecordError/SetStatus on failure).
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/cyphergraph/cyphergraph/internal/compiler"

// Recorder wraps the tracer and instruments one compiler uses for every
// query it compiles. Each compilation calls StartStage once per pipeline
// stage (parse, plan, analyze, join_infer, path_expand, render, emit)
// rather than wrapping the whole pipeline in a single span, so a slow
// stage is visible without needing span-event correlation.
type Recorder struct {
	tracer   trace.Tracer
	duration metric.Float64Histogram
	failures metric.Int64Counter
}

// NewRecorder builds a Recorder against the global otel TracerProvider/
// MeterProvider. Callers that want isolated providers (tests, multi-tenant
// hosting) should install them globally via otel.SetTracerProvider/
// otel.SetMeterProvider before calling NewRecorder.
func NewRecorder() (*Recorder, error) {
	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"cyphergraph.compile.stage.duration",
		metric.WithDescription("wall-clock duration of one compiler pipeline stage"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"cyphergraph.compile.stage.failures",
		metric.WithDescription("count of compiler pipeline stages that returned an error"),
	)
	if err != nil {
		return nil, err
	}

	return &Recorder{
		tracer:   otel.Tracer(instrumentationName),
		duration: duration,
		failures: failures,
	}, nil
}

// StartStage opens a span named "compile."+stage and returns the derived
// context plus a done func the caller defers, passing the stage's outcome
// so the span and the duration/failure metrics stay consistent with each
// other.
func (r *Recorder) StartStage(ctx context.Context, stage string) (context.Context, func(err *error)) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "compile."+stage,
		trace.WithAttributes(attribute.String("cyphergraph.stage", stage)))

	return ctx, func(errp *error) {
		elapsed := time.Since(start)
		r.duration.Record(ctx, float64(elapsed.Milliseconds()),
			metric.WithAttributes(attribute.String("cyphergraph.stage", stage)))

		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
			r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("cyphergraph.stage", stage)))
		}
		span.End()
	}
}
