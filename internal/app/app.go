package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"scorecli/internal/config"
	"scorecli/internal/engine"
	apperrors "scorecli/internal/errors"
	"scorecli/internal/exporter"
	filesdisc "scorecli/internal/files"
	"scorecli/internal/infrastructure"
	customMiddleware "scorecli/internal/middleware"
	"scorecli/internal/operations"
	"scorecli/internal/services"
	handlers "scorecli/internal/transport/http"
	"scorecli/pkg/contracts"
)

// Application is the read-only score API server.
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Files         map[string]string
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	ScoreService  *services.ScoreService
	HealthService *services.HealthService
	ErrorHandler  *apperrors.ErrorHandler
}

// NewApplication wires services, router and server from cfg. Without a
// file map the workbooks of the data directory are served.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	files, err := config.LoadFileMap(paths.FileMap)
	if err != nil {
		logger.Warn("file map unavailable, discovering workbooks",
			slog.String("path", paths.FileMap),
			slog.String("error", err.Error()))
		files, err = filesdisc.NewDiscovery(paths.DataDir, logger).DiscoverFileMap(paths.DataDir)
		if err != nil {
			logger.Warn("workbook discovery failed, serving no categories", slog.String("error", err.Error()))
			files = map[string]string{}
		}
	}

	store := exporter.NewWorkbookStore(logger)
	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Files:         files,
		Logger:        logger,
		OTelProviders: providers,
		ScoreService:  services.NewScoreService(files, paths.DataDir, store, logger).WithMarkets(cfg.Engine.Markets),
		HealthService: services.NewHealthService(paths.DataDir, files, logger),
		ErrorHandler:  apperrors.NewErrorHandler(logger, cfg.Logging.Development),
	}

	if err := a.setupRouter(); err != nil {
		return nil, err
	}
	a.createServer()

	logger.Info("application initialized",
		slog.String("version", contracts.GetVersionString()),
		slog.Int("categories", len(files)))
	return a, nil
}

// setupRouter orders middleware RequestID, RealIP, OTel, Logger, Recoverer,
// RateLimiter, SecurityHeaders.
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))

	rl := a.Config.Server.RateLimit
	if rl.Enabled && rl.RPS > 0 {
		r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.ErrorHandler, a.Logger).Handler)
	}
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.StripSlashes)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	scores := handlers.NewScoresHandler(a.ScoreService, a.Logger, a.ErrorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)
		r.Mount("/files", scores.Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start serves in the background. A listen failure calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "starting server",
		slog.String("addr", a.Server.Addr),
		slog.String("data_dir", a.Paths.DataDir))

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			cancel()
		}
	}()
	return nil
}

// Stop shuts the server down and flushes telemetry.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown error: %w", err))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return errors.Join(errs...)
}

// Run serves until SIGINT, SIGTERM or a listen failure.
func (a *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}
	<-ctx.Done()
	return a.Stop(ctx)
}

// Runner bundles what a batch scoring run needs.
type Runner struct {
	Manager   *operations.Manager
	Store     *exporter.WorkbookStore
	Paths     *config.Paths
	Providers *infrastructure.OTelProviders
}

// NewRunner builds the operations manager from cfg: metric specs from the
// metrics section, engine metrics as recorder, market overrides applied.
func NewRunner(cfg *config.Config, paths *config.Paths, providers *infrastructure.OTelProviders, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	specs, err := operations.SpecsFromConfig(cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("invalid metrics: %w", err)
	}

	eng := engine.New(engine.Config{
		Workers:    cfg.Engine.Workers,
		RetryEmpty: cfg.Engine.RetryEmpty,
	}, logger)

	var mgrRecorder operations.Recorder
	if providers != nil {
		metrics, err := infrastructure.CreateEngineMetrics(providers.Meter)
		if err != nil {
			return nil, fmt.Errorf("failed to create engine metrics: %w", err)
		}
		eng.WithRecorder(metrics)
		mgrRecorder = metrics
	}

	store := exporter.NewWorkbookStore(logger)
	registry, err := operations.NewMetricRegistry(specs, eng, store, logger)
	if err != nil {
		return nil, err
	}

	mgr := operations.NewManager(registry, paths, logger).
		WithMarkets(cfg.Engine.Markets).
		WithRecorder(mgrRecorder)

	return &Runner{Manager: mgr, Store: store, Paths: paths, Providers: providers}, nil
}

// ExportCSV writes every metric sheet of every present category to
// <reports>/<category>_<sheet>.csv. Sheets not yet written are skipped.
func (r *Runner) ExportCSV(ctx context.Context, files map[string]string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	writer := exporter.NewCSVWriter(r.Paths)

	categories := make([]string, 0, len(files))
	for c := range files {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	written := 0
	for _, category := range categories {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		path := files[category]
		if !filepath.IsAbs(path) && r.Paths != nil {
			path = r.Paths.GetDataPath(path)
		}
		names, err := r.Store.SheetNames(path)
		if apperrors.IsSkip(err) {
			continue
		}
		if err != nil {
			return written, err
		}

		for _, step := range r.Manager.GetRegistry().List() {
			ms, ok := step.(*operations.MetricStep)
			if !ok || !slices.Contains(names, ms.Spec().Sheet) {
				continue
			}
			spec := ms.Spec()
			table, err := r.Store.LoadSheet(path, spec.Sheet)
			if err != nil {
				return written, err
			}
			target := fmt.Sprintf("%s_%s.csv", category, spec.Sheet)
			if err := writer.WriteTable(target, table, spec.Integral()); err != nil {
				return written, fmt.Errorf("export %s: %w", target, err)
			}
			written++
			logger.InfoContext(ctx, "sheet exported",
				slog.String("category", category),
				slog.String("sheet", spec.Sheet),
				slog.String("file", target))
		}
	}
	return written, nil
}
