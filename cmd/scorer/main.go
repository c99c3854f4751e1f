// Command scorer brings every metric sheet of every configured category
// workbook up to date with its raw price and volume sheets.
//
//	scorer [-config scorecli.yaml] [-filemap stock_file_map.json]
//	       [-file CATEGORY=path.xlsx ...] [-discover] [-workers N] [-rebuild] [-csv]
//
// Exit status is 0 when every step completed or was skipped, 1 otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"scorecli/internal/app"
	"scorecli/internal/config"
	filesdisc "scorecli/internal/files"
	"scorecli/internal/infrastructure"
	"scorecli/internal/operations"
)

// fileFlags collects repeated -file CATEGORY=path values.
type fileFlags map[string]string

func (f fileFlags) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f fileFlags) Set(value string) error {
	category, path, ok := strings.Cut(value, "=")
	category, path = strings.TrimSpace(category), strings.TrimSpace(path)
	if !ok || category == "" || path == "" {
		return fmt.Errorf("want CATEGORY=path, got %q", value)
	}
	f[category] = path
	return nil
}

type options struct {
	configPath string
	fileMap    string
	files      fileFlags
	discover   bool
	workers    int
	rebuild    bool
	csv        bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	opts := options{files: fileFlags{}}

	fs := flag.NewFlagSet("scorer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (default: search scorecli.yaml, config.yaml)")
	fs.StringVar(&opts.fileMap, "filemap", "", "category -> workbook JSON map (overrides paths.file_map)")
	fs.Var(opts.files, "file", "process only CATEGORY=path.xlsx (repeatable)")
	fs.BoolVar(&opts.discover, "discover", false, "use every workbook of the data directory instead of the file map")
	fs.IntVar(&opts.workers, "workers", 0, "row workers per column (overrides engine.workers)")
	fs.BoolVar(&opts.rebuild, "rebuild", false, "recompute every metric sheet from scratch")
	fs.BoolVar(&opts.csv, "csv", false, "export metric sheets as CSV to the reports directory")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("scoring run failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.fileMap != "" {
		cfg.Paths.FileMap = opts.fileMap
	}
	if opts.workers > 0 {
		cfg.Engine.Workers = opts.workers
	}

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return err
	}
	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.GetLogPath(filepath.Base(cfg.Logging.FilePath))
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer providers.Shutdown(context.WithoutCancel(ctx))

	files := map[string]string(opts.files)
	switch {
	case len(files) > 0:
	case opts.discover:
		files, err = filesdisc.NewDiscovery(paths.DataDir, logger).DiscoverFileMap(paths.DataDir)
	default:
		files, err = config.LoadFileMap(paths.FileMap)
	}
	if err != nil {
		return err
	}

	runner, err := app.NewRunner(cfg, paths, providers, logger)
	if err != nil {
		return err
	}
	runner.Manager.WithRebuild(opts.rebuild)

	manifest, runErr := runner.Manager.RunAll(ctx, files)
	if manifest != nil {
		logger.InfoContext(ctx, "run summary",
			slog.String("run_id", manifest.RunID),
			slog.String("status", string(manifest.Status)),
			slog.Int("files", manifest.Totals.Files),
			slog.Int("missing", len(manifest.Missing)),
			slog.Int("steps_completed", manifest.Totals.StepsCompleted),
			slog.Int("steps_skipped", manifest.Totals.StepsSkipped),
			slog.Int("steps_failed", manifest.Totals.StepsFailed),
			slog.Int("cells_written", manifest.Totals.CellsWritten))
	}

	if opts.csv && ctx.Err() == nil {
		n, err := runner.ExportCSV(ctx, files, logger)
		if err != nil {
			return errors.Join(runErr, fmt.Errorf("csv export: %w", err))
		}
		logger.InfoContext(ctx, "csv export finished", slog.Int("sheets", n))
	}

	if runErr != nil && manifest != nil && manifest.Status == operations.RunStatusPartial {
		return fmt.Errorf("run %s partially failed: %w", manifest.RunID, runErr)
	}
	return runErr
}
