package operations

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"scorecli/internal/config"
	"scorecli/internal/engine"
	"scorecli/internal/exporter"
	"scorecli/pkg/contracts/domain"
)

// MetricStep keeps one score sheet of a workbook up to date.
type MetricStep struct {
	BaseStep
	spec   engine.Spec
	engine *engine.Engine
	store  *exporter.WorkbookStore
	logger *slog.Logger
}

// NewMetricStep creates the step for spec. The sheet name is the step ID.
func NewMetricStep(spec engine.Spec, eng *engine.Engine, store *exporter.WorkbookStore, logger *slog.Logger) *MetricStep {
	if logger == nil {
		logger = slog.Default()
	}
	spec = spec.WithDefaults()
	return &MetricStep{
		BaseStep: NewBaseStep(spec.Sheet, spec.String()),
		spec:     spec,
		engine:   eng,
		store:    store,
		logger:   logger.With(slog.String("component", "metric_step"), slog.String("sheet", spec.Sheet)),
	}
}

// Spec returns the metric the step computes.
func (s *MetricStep) Spec() engine.Spec {
	return s.spec
}

// Execute loads the persisted sheet, extends it and saves it back. A missing
// raw sheet returns ErrSourceMissing before anything is read or written.
func (s *MetricStep) Execute(ctx context.Context, state *FileState) (domain.UpdateResult, error) {
	if state.Workbook == nil {
		return domain.UpdateResult{Sheet: s.spec.Sheet}, fmt.Errorf("no workbook loaded for %s", state.Category)
	}
	raw, err := state.Workbook.Table(string(s.spec.Source))
	if err != nil {
		return domain.UpdateResult{Sheet: s.spec.Sheet}, err
	}
	return s.apply(ctx, state.Path, raw, state.Rebuild)
}

func (s *MetricStep) apply(ctx context.Context, path string, raw domain.RawTable, rebuild bool) (domain.UpdateResult, error) {
	if rebuild {
		table, result, err := s.engine.Rebuild(ctx, s.spec, raw)
		if err != nil {
			return result, err
		}
		opts := exporter.SaveOptions{Integral: s.spec.Integral(), Replace: true}
		if err := s.store.SaveSheet(path, table, opts); err != nil {
			return result, err
		}
		return result, nil
	}

	table, err := s.store.LoadSheet(path, s.spec.Sheet)
	if err != nil {
		return domain.UpdateResult{Sheet: s.spec.Sheet}, err
	}
	result, err := s.engine.Update(ctx, s.spec, raw, table)
	if err != nil {
		return result, err
	}
	if !result.Changed() {
		s.logger.DebugContext(ctx, "sheet already current, not saving")
		return result, nil
	}
	if err := s.store.SaveSheet(path, table, exporter.SaveOptions{Integral: s.spec.Integral()}); err != nil {
		return result, err
	}
	return result, nil
}

// SpecsFromConfig converts configured metrics into engine specs. An empty
// list selects engine.DefaultSpecs.
func SpecsFromConfig(metrics []config.MetricConfig) ([]engine.Spec, error) {
	if len(metrics) == 0 {
		return engine.DefaultSpecs(), nil
	}
	specs := make([]engine.Spec, 0, len(metrics))
	seen := make(map[string]bool, len(metrics))
	for i, m := range metrics {
		spec := engine.Spec{
			Kind:       engine.Kind(m.Kind),
			Sheet:      m.Sheet,
			Window:     m.Window,
			WindowStd:  m.WindowStd,
			WindowMean: m.WindowMean,
		}.WithDefaults()
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("metrics[%d]: %w", i, err)
		}
		if seen[spec.Sheet] {
			return nil, fmt.Errorf("metrics[%d]: duplicate sheet %q", i, spec.Sheet)
		}
		seen[spec.Sheet] = true
		specs = append(specs, spec)
	}
	return specs, nil
}

// runsFirst reports whether a kind belongs to the leading S/Z group.
func runsFirst(k engine.Kind) bool {
	return k == engine.KindS || k == engine.KindZ
}

// NewMetricRegistry registers one MetricStep per spec. S and Z sheets come
// first, then GAP, STD and QUANT, each group keeping its given order.
func NewMetricRegistry(specs []engine.Spec, eng *engine.Engine, store *exporter.WorkbookStore, logger *slog.Logger) (*Registry, error) {
	ordered := slices.Clone(specs)
	slices.SortStableFunc(ordered, func(a, b engine.Spec) int {
		af, bf := runsFirst(a.Kind), runsFirst(b.Kind)
		switch {
		case af == bf:
			return 0
		case af:
			return -1
		default:
			return 1
		}
	})

	registry := NewRegistry()
	for _, spec := range ordered {
		if err := registry.Register(NewMetricStep(spec, eng, store, logger)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
