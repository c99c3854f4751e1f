package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths
// This is the single source of truth for ALL file paths in the application
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	LogsDir    string
	FileMap    string
}

// ExecutableDir returns the directory holding the running binary, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}
	return filepath.Dir(exe), nil
}

// ResolvePaths turns the configured paths into absolute ones. Relative
// entries resolve against BaseDir, or the executable directory when BaseDir
// is empty. The file map resolves against the data directory.
//
// Directory structure:
//
//	<base>/
//	  ├── data/              (category workbooks, stock_file_map.json)
//	  │   └── reports/       (CSV exports, run manifests)
//	  └── logs/
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	dataDir := resolve(base, c.Paths.DataDir)
	return &Paths{
		BaseDir:    base,
		DataDir:    dataDir,
		ReportsDir: resolve(base, c.Paths.ReportsDir),
		LogsDir:    resolve(base, c.Paths.LogsDir),
		FileMap:    resolve(dataDir, c.Paths.FileMap),
	}, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// GetDataPath returns the path for a workbook in the data directory
func (p *Paths) GetDataPath(filename string) string {
	return resolve(p.DataDir, filename)
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return resolve(p.ReportsDir, filename)
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return resolve(p.LogsDir, filename)
}

// GetManifestPath returns the path of the JSON summary for a run.
func (p *Paths) GetManifestPath(runID string) string {
	return filepath.Join(p.ReportsDir, fmt.Sprintf("run_%s.json", runID))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("file_map", p.FileMap),
			slog.Bool("file_map_exists", FileExists(p.FileMap)),
		))
}
