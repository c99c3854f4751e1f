package operations

import (
	"context"
	"log/slog"

	"scorecli/internal/engine"
	"scorecli/internal/exporter"
	"scorecli/pkg/contracts/domain"
)

// UpdateMetricSheet brings one metric sheet of the workbook at path up to
// date with raw and persists it. Calling it again with the same raw table
// writes nothing.
func UpdateMetricSheet(ctx context.Context, path string, spec engine.Spec, raw domain.RawTable) (domain.UpdateResult, error) {
	logger := slog.Default()
	step := NewMetricStep(spec, engine.New(engine.DefaultConfig(), logger), exporter.NewWorkbookStore(logger), logger)
	if err := step.spec.Validate(); err != nil {
		return domain.UpdateResult{Sheet: step.spec.Sheet}, err
	}
	return step.apply(ctx, path, raw, false)
}
