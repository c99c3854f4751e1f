package engine

import (
	"context"
	"time"

	"scorecli/pkg/contracts/domain"
)

// Recorder receives engine measurements. infrastructure.EngineMetrics is the
// OpenTelemetry implementation.
type Recorder interface {
	RecordUpdate(ctx context.Context, sheet string, result domain.UpdateResult, elapsed time.Duration)
	RecordSkip(ctx context.Context, sheet, reason string)
	RecordRowFailure(ctx context.Context, sheet string)
}

type nopRecorder struct{}

func (nopRecorder) RecordUpdate(context.Context, string, domain.UpdateResult, time.Duration) {}
func (nopRecorder) RecordSkip(context.Context, string, string)                               {}
func (nopRecorder) RecordRowFailure(context.Context, string)                                 {}
