package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"scorecli/internal/config"
	"scorecli/pkg/contracts"
	"scorecli/pkg/contracts/domain"
)

// MeterName is the instrumentation scope of application metrics.
const MeterName = "scorecli"

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	EnableMetrics  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// NewOTelConfig maps the telemetry section of the application config.
func NewOTelConfig(cfg config.TelemetryConfig) *OTelConfig {
	out := DefaultOTelConfig()
	if cfg.ServiceName != "" {
		out.ServiceName = cfg.ServiceName
	}
	if cfg.TraceExporter != "" {
		out.TraceExporter = cfg.TraceExporter
	}
	out.EnableMetrics = cfg.MetricsEnabled
	return out
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    config.AppName,
		ServiceVersion: contracts.Version,
		Environment:    env,
		TraceExporter:  "none",
		EnableMetrics:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics and installs them as the global
// providers. Disabled signals fall back to no-op implementations so callers
// can always use Tracer and Meter.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = GetLogger()
	}

	ctx := context.Background()
	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)

	providers := &OTelProviders{
		Logger: logger,
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	if err := initializeTracing(cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if cfg.EnableMetrics {
		if err := initializeMetrics(cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return providers, nil
}

func initializeTracing(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter

	switch cfg.TraceExporter {
	case "stdout":
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create trace exporter: %w", err)
		}
		exporter = exp
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.Info("Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))
	return nil
}

// initializeMetrics exports through Prometheus. Each provider gets its own
// registry so repeated initialisation (tests, restarts) never collides.
func initializeMetrics(cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	otel.SetMeterProvider(mp)

	providers.Logger.Info("Metrics initialized", slog.String("exporter", "prometheus"))
	return nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// EngineMetrics records sheet updates and pipeline steps. It satisfies
// engine.Recorder.
type EngineMetrics struct {
	updatesTotal   metric.Int64Counter
	updateDuration metric.Float64Histogram
	columnsWritten metric.Int64Counter
	rowsBackfilled metric.Int64Counter
	cellsWritten   metric.Int64Counter
	cellsSkipped   metric.Int64Counter
	skipsTotal     metric.Int64Counter
	rowFailures    metric.Int64Counter
	stepsTotal     metric.Int64Counter
	stepDuration   metric.Float64Histogram
	filesProcessed metric.Int64Counter
}

// CreateEngineMetrics creates the engine and pipeline instruments.
func CreateEngineMetrics(meter metric.Meter) (*EngineMetrics, error) {
	var (
		m   EngineMetrics
		err error
	)

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.updatesTotal, "score_sheet_updates_total", "Total number of sheet updates"},
		{&m.columnsWritten, "score_columns_written_total", "Date columns appended to sheets"},
		{&m.rowsBackfilled, "score_rows_backfilled_total", "Entity rows added to sheets"},
		{&m.cellsWritten, "score_cells_written_total", "Cells written"},
		{&m.cellsSkipped, "score_cells_undefined_total", "Cells left empty because the metric was undefined"},
		{&m.skipsTotal, "score_sheet_skips_total", "Sheet updates skipped"},
		{&m.rowFailures, "score_row_failures_total", "Rows abandoned after a computation failure"},
		{&m.stepsTotal, "score_steps_total", "Pipeline steps executed"},
		{&m.filesProcessed, "score_files_processed_total", "Category workbooks processed"},
	}
	for _, c := range counters {
		if *c.dst, err = meter.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return nil, err
		}
	}

	if m.updateDuration, err = meter.Float64Histogram(
		"score_sheet_update_duration_seconds",
		metric.WithDescription("Sheet update duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.stepDuration, err = meter.Float64Histogram(
		"score_step_duration_seconds",
		metric.WithDescription("Pipeline step duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordUpdate records one finished sheet update.
func (m *EngineMetrics) RecordUpdate(ctx context.Context, sheet string, result domain.UpdateResult, elapsed time.Duration) {
	opt := metric.WithAttributes(attribute.String("sheet", sheet))

	m.updatesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sheet", sheet),
		attribute.Bool("rebuilt", result.Rebuilt),
	))
	m.updateDuration.Record(ctx, elapsed.Seconds(), opt)
	m.columnsWritten.Add(ctx, int64(result.NewColumnsWritten), opt)
	m.rowsBackfilled.Add(ctx, int64(result.NewRowsBackfilled), opt)
	m.cellsWritten.Add(ctx, int64(result.CellsWritten), opt)
	m.cellsSkipped.Add(ctx, int64(result.CellsSkipped), opt)
}

// RecordSkip records a sheet update that did not run.
func (m *EngineMetrics) RecordSkip(ctx context.Context, sheet, reason string) {
	m.skipsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sheet", sheet),
		attribute.String("reason", reason),
	))
}

// RecordRowFailure records a row the engine gave up on.
func (m *EngineMetrics) RecordRowFailure(ctx context.Context, sheet string) {
	m.rowFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("sheet", sheet)))
}

// RecordStep records one pipeline step with its final status.
func (m *EngineMetrics) RecordStep(ctx context.Context, category, step, status string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("step", step),
		attribute.String("status", status),
	)
	m.stepsTotal.Add(ctx, 1, attrs)
	m.stepDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFile records one processed category workbook.
func (m *EngineMetrics) RecordFile(ctx context.Context, category string, failed bool) {
	status := "success"
	if failed {
		status = "failure"
	}
	m.filesProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category),
		attribute.String("status", status),
	))
}

// HTTPMetrics instruments the read-only API.
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter
}

// CreateHTTPMetrics creates the HTTP server instruments.
func CreateHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		RequestsTotal:   requests,
		RequestDuration: duration,
		ActiveRequests:  active,
	}, nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext returns the OpenTelemetry trace ID of the active span.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}
