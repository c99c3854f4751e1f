package operations

import (
	"context"
	"log/slog"
	"time"

	"scorecli/pkg/contracts/domain"
)

// logRunStart logs the start of a run
func (m *Manager) logRunStart(ctx context.Context, runID string, files int) {
	m.logger.InfoContext(ctx, "run_start",
		slog.String("run_id", runID),
		slog.Int("files", files),
		slog.Int("steps", m.registry.Count()),
		slog.Bool("rebuild", m.rebuild))
}

// logRunComplete logs the completion of a run
func (m *Manager) logRunComplete(ctx context.Context, runID, status string, duration time.Duration) {
	m.logger.InfoContext(ctx, "run_complete",
		slog.String("run_id", runID),
		slog.String("status", status),
		slog.Duration("duration", duration))
}

func (m *Manager) logFileStart(ctx context.Context, category, path string, market domain.Market) {
	m.logger.InfoContext(ctx, "file_start",
		slog.String("category", category),
		slog.String("path", path),
		slog.String("market", string(market)))
}

func (m *Manager) logFileComplete(ctx context.Context, report FileReport) {
	m.logger.InfoContext(ctx, "file_complete",
		slog.String("category", report.Category),
		slog.String("status", string(report.Status)),
		slog.Int("steps", len(report.Steps)),
		slog.String("duration", report.Duration))
}

func (m *Manager) logFileError(ctx context.Context, category string, err error) {
	m.logger.ErrorContext(ctx, "file_error",
		slog.String("category", category),
		slog.String("error", err.Error()))
}

// logStepStart logs the start of a Step execution
func (m *Manager) logStepStart(ctx context.Context, category, stepID string) {
	m.logger.DebugContext(ctx, "step_start",
		slog.String("category", category),
		slog.String("step", stepID))
}

// logStepComplete logs the completion of a Step execution
func (m *Manager) logStepComplete(ctx context.Context, category, stepID string, result domain.UpdateResult, duration time.Duration) {
	m.logger.InfoContext(ctx, "step_complete",
		slog.String("category", category),
		slog.String("step", stepID),
		slog.Int("new_columns", result.NewColumnsWritten),
		slog.Int("cells_written", result.CellsWritten),
		slog.Duration("duration", duration))
}

// logStepSkipped logs a Step that had nothing to work with
func (m *Manager) logStepSkipped(ctx context.Context, category, stepID string, err error) {
	m.logger.WarnContext(ctx, "step_skipped",
		slog.String("category", category),
		slog.String("step", stepID),
		slog.String("reason", err.Error()))
}

// logStepError logs a Step error
func (m *Manager) logStepError(ctx context.Context, category, stepID string, err error) {
	m.logger.ErrorContext(ctx, "step_error",
		slog.String("category", category),
		slog.String("step", stepID),
		slog.String("error", err.Error()))
}
