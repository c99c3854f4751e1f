package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "scorecli.operations"
)

// Recorder receives per-step and per-file outcomes.
// infrastructure.EngineMetrics implements it.
type Recorder interface {
	RecordStep(ctx context.Context, category, step, status string, elapsed time.Duration)
	RecordFile(ctx context.Context, category string, failed bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordStep(context.Context, string, string, string, time.Duration) {}
func (nopRecorder) RecordFile(context.Context, string, bool)                          {}

// OperationTracer wraps spans for runs, files and steps
type OperationTracer struct {
	tracer trace.Tracer
}

// NewOperationTracer uses the global tracer provider
func NewOperationTracer() *OperationTracer {
	return &OperationTracer{tracer: otel.Tracer(TracerName)}
}

// TraceRun creates a span for a whole run
func (t *OperationTracer) TraceRun(ctx context.Context, runID string, files int, rebuild bool) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operations.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.files", files),
			attribute.Bool("run.rebuild", rebuild),
		),
	)
}

// TraceFile creates a span for one category workbook
func (t *OperationTracer) TraceFile(ctx context.Context, category, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operations.file",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("file.category", category),
			attribute.String("file.path", path),
		),
	)
}

// TraceStep creates a span for one step
func (t *OperationTracer) TraceStep(ctx context.Context, category, stepID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operations.step",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("file.category", category),
			attribute.String("step.id", stepID),
		),
	)
}

// EndStep closes a step span with its final status
func (t *OperationTracer) EndStep(span trace.Span, status StepStatus, err error) {
	span.SetAttributes(attribute.String("step.status", string(status)))
	if status == StepStatusFailed && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, string(status))
	}
	span.End()
}
