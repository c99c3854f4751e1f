// Command web serves persisted score sheets over a read-only JSON API.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"scorecli/internal/app"
	"scorecli/internal/config"
	"scorecli/internal/infrastructure"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (default: search scorecli.yaml, config.yaml)")
	port := flag.Int("port", 0, "listen port (overrides server.port)")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	if err := run(*configPath, *port); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
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

	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return application.Run()
}
