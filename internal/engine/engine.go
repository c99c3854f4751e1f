package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	apperrors "scorecli/internal/errors"
	"scorecli/internal/sheet"
	"scorecli/pkg/contracts/domain"
)

// TracerName is the instrumentation scope of engine spans.
const TracerName = "scorecli.engine"

// Config tunes an Engine.
type Config struct {
	// Workers bounds per-row parallelism inside one column. 1 is sequential.
	Workers int
	// RetryEmpty makes existing rows re-attempt their empty cells in
	// established columns, not only newly created rows.
	RetryEmpty bool
}

// DefaultConfig returns a sequential engine that retries empty cells.
func DefaultConfig() Config {
	return Config{Workers: 1, RetryEmpty: true}
}

// Engine applies incremental updates to score sheets.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	recorder Recorder
	tracer   trace.Tracer

	// compute is Spec.Compute; tests swap it to inject row failures.
	compute func(Spec, domain.Series, int) (float64, bool)
}

// New creates an engine. A nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Engine{
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "engine")),
		recorder: nopRecorder{},
		tracer:   otel.Tracer(TracerName),
		compute:  Spec.Compute,
	}
}

// WithRecorder sets where measurements go.
func (e *Engine) WithRecorder(r Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

type rowJob struct {
	handle  sheet.RowHandle
	code    string
	series  domain.Series
	created bool
}

type cellOutcome int

const (
	cellWritten cellOutcome = iota
	cellUndefined
	cellFilled
	cellFailed
)

// Update brings table up to date with raw for one metric.
//
// A raw axis shorter than the metric's first defined position returns
// ErrInsufficientHistory and leaves the table untouched. Running Update twice
// with the same input writes nothing the second time.
func (e *Engine) Update(ctx context.Context, spec Spec, raw domain.RawTable, table *sheet.Table) (domain.UpdateResult, error) {
	result := domain.UpdateResult{Sheet: spec.Sheet}
	if err := spec.Validate(); err != nil {
		return result, err
	}

	ctx, span := e.tracer.Start(ctx, "engine.update",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sheet", spec.Sheet),
			attribute.String("kind", string(spec.Kind)),
			attribute.Int("entities", len(raw.Entities)),
			attribute.Int("dates", len(raw.Axis)),
		),
	)
	defer span.End()
	start := time.Now()

	if !raw.Axis.IsSorted() {
		raw = normalizedCopy(raw)
	}

	minIdx := spec.MinIndex()
	if len(raw.Axis) <= minIdx {
		e.logger.WarnContext(ctx, "not enough dates for metric, skipping",
			slog.String("sheet", spec.Sheet),
			slog.Int("dates", len(raw.Axis)),
			slog.Int("required", minIdx+1),
		)
		e.recorder.RecordSkip(ctx, spec.Sheet, "insufficient_history")
		span.SetStatus(codes.Ok, "skipped")
		return result, fmt.Errorf("%s: %d dates, need %d: %w", spec.Sheet, len(raw.Axis), minIdx+1, apperrors.ErrInsufficientHistory)
	}

	established := e.establishedColumns(ctx, spec, raw.Axis, table)
	hadColumns := len(table.Columns()) > 0
	rows, renamed := e.ensureRows(ctx, spec, raw, table)
	result.RowsRenamed = renamed

	// backfill established columns
	backfill := rows
	if !e.cfg.RetryEmpty {
		backfill = backfill[:0:0]
		for _, r := range rows {
			if r.created {
				backfill = append(backfill, r)
			}
		}
	}
	for _, r := range rows {
		if r.created && hadColumns {
			result.NewRowsBackfilled++
		}
	}
	if len(backfill) > 0 {
		for _, c := range established {
			if err := ctx.Err(); err != nil {
				return e.finish(ctx, span, spec, table, result, start, err)
			}
			w, s := e.fillColumn(ctx, spec, table, c.handle, c.idx, backfill)
			result.CellsWritten += w
			result.CellsSkipped += s
		}
	}

	// append new columns
	last, hasLast := table.LastColumn()
	for idx := minIdx; idx < len(raw.Axis); idx++ {
		date := raw.Axis[idx]
		if hasLast && date <= last {
			continue
		}
		if err := ctx.Err(); err != nil {
			return e.finish(ctx, span, spec, table, result, start, err)
		}
		col, err := table.AppendColumn(date)
		if err != nil {
			return e.finish(ctx, span, spec, table, result, start, err)
		}
		result.NewColumnsWritten++
		w, s := e.fillColumn(ctx, spec, table, col, idx, rows)
		result.CellsWritten += w
		result.CellsSkipped += s
	}

	return e.finish(ctx, span, spec, table, result, start, nil)
}

// Rebuild recomputes a sheet from nothing. The returned table replaces the
// persisted one wholesale, so rows come out in raw sheet order.
func (e *Engine) Rebuild(ctx context.Context, spec Spec, raw domain.RawTable) (*sheet.Table, domain.UpdateResult, error) {
	e.logger.InfoContext(ctx, "rebuilding sheet from scratch", slog.String("sheet", spec.Sheet))
	table := sheet.NewTable(spec.Sheet)
	result, err := e.Update(ctx, spec, raw, table)
	result.Rebuilt = true
	return table, result, err
}

func (e *Engine) finish(ctx context.Context, span trace.Span, spec Spec, table *sheet.Table, result domain.UpdateResult, start time.Time, err error) (domain.UpdateResult, error) {
	if last, ok := table.LastColumn(); ok {
		result.LastColumn = last
	}
	elapsed := time.Since(start)

	span.SetAttributes(
		attribute.Int("columns_written", result.NewColumnsWritten),
		attribute.Int("rows_backfilled", result.NewRowsBackfilled),
		attribute.Int("cells_written", result.CellsWritten),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.ErrorContext(ctx, "metric update aborted",
			slog.String("sheet", spec.Sheet),
			slog.String("error", err.Error()),
		)
		return result, fmt.Errorf("update %s: %w", spec.Sheet, err)
	}

	e.recorder.RecordUpdate(ctx, spec.Sheet, result, elapsed)
	e.logger.InfoContext(ctx, "metric sheet updated",
		slog.String("sheet", spec.Sheet),
		slog.Int("new_columns", result.NewColumnsWritten),
		slog.Int("new_rows_backfilled", result.NewRowsBackfilled),
		slog.Int("cells_written", result.CellsWritten),
		slog.Int("cells_empty", result.CellsSkipped),
		slog.Duration("elapsed", elapsed),
	)
	return result, nil
}

type establishedColumn struct {
	handle sheet.ColumnHandle
	idx    int
}

// establishedColumns maps the table's existing columns onto absolute axis
// positions by date. Columns whose date is gone from the raw axis, or sits
// before the metric's first defined position, are left alone.
func (e *Engine) establishedColumns(ctx context.Context, spec Spec, axis domain.DateAxis, table *sheet.Table) []establishedColumn {
	existing := table.Columns()
	out := make([]establishedColumn, 0, len(existing))
	orphaned := 0
	for h, date := range existing {
		idx, ok := axis.Index(date)
		if !ok || idx < spec.MinIndex() {
			orphaned++
			continue
		}
		out = append(out, establishedColumn{handle: sheet.ColumnHandle(h), idx: idx})
	}
	if orphaned > 0 {
		e.logger.WarnContext(ctx, "sheet has columns the raw axis cannot place",
			slog.String("sheet", spec.Sheet),
			slog.Int("columns", orphaned),
		)
	}
	return out
}

// ensureRows creates or finds a row for every raw entity and counts existing
// rows whose name changed. Entities without a code are ignored; a repeated
// code keeps its first raw row.
func (e *Engine) ensureRows(ctx context.Context, spec Spec, raw domain.RawTable, table *sheet.Table) ([]rowJob, int) {
	rows := make([]rowJob, 0, len(raw.Entities))
	renamed := 0
	seen := make(map[string]struct{}, len(raw.Entities))
	for _, es := range raw.Entities {
		code := es.Entity.Code
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			e.logger.WarnContext(ctx, "duplicate entity code in raw sheet, keeping first row",
				slog.String("sheet", spec.Sheet),
				slog.String("code", code),
			)
			continue
		}
		seen[code] = struct{}{}

		if h, ok := table.Row(code); ok && es.Entity.Name != "" {
			if info, _ := table.Info(h); info.Name != es.Entity.Name {
				renamed++
			}
		}
		h, created := table.EnsureRow(code, es.Entity.Name)
		rows = append(rows, rowJob{handle: h, code: code, series: es.Series, created: created})
	}
	return rows, renamed
}

// fillColumn computes one column for the given rows. The column header must
// already exist.
func (e *Engine) fillColumn(ctx context.Context, spec Spec, table *sheet.Table, col sheet.ColumnHandle, idx int, rows []rowJob) (written, skipped int) {
	if e.cfg.Workers <= 1 {
		for _, r := range rows {
			switch e.fillCell(ctx, spec, table, r, col, idx) {
			case cellWritten:
				written++
			case cellUndefined, cellFailed:
				skipped++
			}
		}
		return written, skipped
	}

	var w, s atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for _, r := range rows {
		g.Go(func() error {
			switch e.fillCell(ctx, spec, table, r, col, idx) {
			case cellWritten:
				w.Add(1)
			case cellUndefined, cellFailed:
				s.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(w.Load()), int(s.Load())
}

// fillCell never lets a row failure escape; the cell stays empty for retry.
func (e *Engine) fillCell(ctx context.Context, spec Spec, table *sheet.Table, r rowJob, col sheet.ColumnHandle, idx int) (outcome cellOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			e.logger.ErrorContext(ctx, "row computation failed, leaving cell empty",
				slog.String("sheet", spec.Sheet),
				slog.String("code", r.code),
				slog.Int("index", idx),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			e.recorder.RecordRowFailure(ctx, spec.Sheet)
			outcome = cellFailed
		}
	}()

	if _, ok := table.Get(r.handle, col); ok {
		return cellFilled
	}
	v, ok := e.compute(spec, r.series, idx)
	if !ok {
		return cellUndefined
	}
	if !table.SetIfEmpty(r.handle, col, v) {
		return cellFilled
	}
	return cellWritten
}

// normalizedCopy sorts a raw table without touching the caller's series.
func normalizedCopy(raw domain.RawTable) domain.RawTable {
	cp := domain.RawTable{
		Axis:     append(domain.DateAxis(nil), raw.Axis...),
		Entities: append([]domain.EntitySeries(nil), raw.Entities...),
	}
	cp.Normalize()
	return cp
}
