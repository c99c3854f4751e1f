package operations

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"scorecli/internal/config"
	"scorecli/internal/dataprocessing"
	apperrors "scorecli/internal/errors"
	"scorecli/internal/infrastructure"
	"scorecli/internal/validation"
	"scorecli/pkg/contracts/domain"
)

// Manager runs the registered steps over category workbooks
type Manager struct {
	registry  *Registry
	loader    *dataprocessing.Loader
	validator *validation.FileValidator
	paths     *config.Paths
	markets   map[string]domain.Market
	rebuild   bool
	recorder  Recorder
	tracer    *OperationTracer
	logger    *slog.Logger
}

// NewManager creates a manager. paths may be nil, in which case relative
// workbook paths are used as given and no manifest is written.
func NewManager(registry *Registry, paths *config.Paths, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		registry:  registry,
		loader:    dataprocessing.NewLoader(logger),
		validator: validation.NewFileValidator(logger),
		paths:     paths,
		markets:   make(map[string]domain.Market),
		recorder:  nopRecorder{},
		tracer:    NewOperationTracer(),
		logger:    logger.With(slog.String("component", "operations")),
	}
}

// WithRecorder sets where step and file outcomes are measured
func (m *Manager) WithRecorder(r Recorder) *Manager {
	if r != nil {
		m.recorder = r
	}
	return m
}

// WithRebuild makes every step recompute its sheet from nothing
func (m *Manager) WithRebuild(rebuild bool) *Manager {
	m.rebuild = rebuild
	return m
}

// WithMarkets overrides the market inferred from category names
func (m *Manager) WithMarkets(markets map[string]string) *Manager {
	for category, market := range markets {
		m.markets[category] = domain.Market(strings.ToUpper(market))
	}
	return m
}

// GetRegistry returns the registry for accessing registered steps
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// MarketFor returns the market of a category
func (m *Manager) MarketFor(category string) domain.Market {
	if market, ok := m.markets[category]; ok {
		return market
	}
	return domain.MarketForCategory(category)
}

// RunFile loads one category workbook and runs every step against it.
// Step failures are collected; the remaining steps still run.
func (m *Manager) RunFile(ctx context.Context, category, path string) (FileReport, error) {
	ctx, span := m.tracer.TraceFile(ctx, category, path)
	defer span.End()

	market := m.MarketFor(category)
	m.logFileStart(ctx, category, path, market)

	var errs ErrorList
	wb, err := m.loader.Load(ctx, path, market)
	if err != nil {
		opErr := ClassifyError(category, "", err)
		errs.Add(opErr)
		m.logFileError(ctx, category, err)
		m.recorder.RecordFile(ctx, category, true)
		span.RecordError(err)
		return FileReport{
			Category: category,
			Path:     path,
			Market:   market,
			Status:   StepStatusFailed,
			Error:    opErr.Error(),
		}, errs.Err()
	}

	state := NewFileState(category, path, market, wb)
	state.Rebuild = m.rebuild

	for _, step := range m.registry.List() {
		if ctx.Err() != nil {
			m.logger.WarnContext(ctx, "run cancelled",
				slog.String("category", category),
				slog.String("step", step.ID()))
			e := NewCancellationError(step.ID())
			e.Category = category
			errs.Add(e)
			break
		}
		if opErr := m.runStep(ctx, state, step); opErr != nil {
			errs.Add(opErr)
		}
	}

	report := state.Report()
	m.recorder.RecordFile(ctx, category, report.Status == StepStatusFailed)
	m.logFileComplete(ctx, report)
	return report, errs.Err()
}

func (m *Manager) runStep(ctx context.Context, state *FileState, step Step) *OperationError {
	stepState := NewStepState(step.ID(), step.Name())
	state.SetStep(step.ID(), stepState)

	ctx, span := m.tracer.TraceStep(ctx, state.Category, step.ID())
	stepState.Start()
	m.logStepStart(ctx, state.Category, step.ID())

	result, err := step.Execute(ctx, state)
	switch {
	case err == nil:
		stepState.Complete(result)
		m.logStepComplete(ctx, state.Category, step.ID(), result, stepState.Duration())
	case apperrors.IsSkip(err):
		stepState.Skip(err.Error())
		m.logStepSkipped(ctx, state.Category, step.ID(), err)
		err = nil
	default:
		stepState.Fail(err)
		m.logStepError(ctx, state.Category, step.ID(), err)
	}

	status := stepState.GetStatus()
	m.tracer.EndStep(span, status, err)
	m.recorder.RecordStep(ctx, state.Category, step.ID(), string(status), stepState.Duration())
	if err != nil {
		return ClassifyError(state.Category, step.ID(), err)
	}
	return nil
}

// RunAll runs every category of files in sorted order. Categories whose
// workbook is missing are warned about and skipped. The run id becomes the
// trace id of every log line, and the manifest is saved to the reports
// directory when paths are configured.
func (m *Manager) RunAll(ctx context.Context, files map[string]string) (*RunManifest, error) {
	runID := infrastructure.GenerateTraceID()
	ctx = infrastructure.WithTraceID(ctx, runID)
	ctx, span := m.tracer.TraceRun(ctx, runID, len(files), m.rebuild)
	defer span.End()

	start := time.Now()
	manifest := NewRunManifest(runID, m.rebuild)
	m.logRunStart(ctx, runID, len(files))

	baseDir := ""
	if m.paths != nil {
		baseDir = m.paths.DataDir
	}
	available := m.validator.ValidateFileMap(baseDir, files)
	for _, category := range available.Missing {
		manifest.AddMissing(category, files[category])
	}

	categories := make([]string, 0, len(available.Present))
	for category := range available.Present {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var errs ErrorList
	cancelled := false
	for _, category := range categories {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		report, err := m.RunFile(ctx, category, available.Present[category])
		manifest.AddFile(report)
		if err == nil {
			continue
		}
		var list *ErrorList
		if errors.As(err, &list) {
			errs.Merge(list)
		} else {
			errs.Add(ClassifyError(category, "", err))
		}
	}
	if ctx.Err() != nil {
		cancelled = true
	}

	manifest.Finish(&errs, cancelled)
	m.saveManifest(ctx, manifest)
	m.logRunComplete(ctx, runID, manifest.Status, time.Since(start))

	if cancelled {
		return manifest, errors.Join(ctx.Err(), errs.Err())
	}
	return manifest, errs.Err()
}

func (m *Manager) saveManifest(ctx context.Context, manifest *RunManifest) {
	if m.paths == nil {
		return
	}
	path := m.paths.GetManifestPath(manifest.RunID)
	if err := manifest.SaveToFile(path); err != nil {
		m.logger.WarnContext(ctx, "could not save run manifest",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	m.logger.InfoContext(ctx, "run manifest saved", slog.String("path", path))
}
