package validation

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "scorecli/internal/errors"
)

// FileValidator checks workbook and output paths before the pipeline touches them.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger.With(slog.String("component", "file_validator")),
	}
}

// ValidateFile checks that path exists, is a regular file and can be opened.
// A missing file is reported as ErrSourceMissing.
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file %s: %w", path, apperrors.ErrSourceMissing)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateWorkbook checks that path is a readable .xlsx workbook and not an
// Excel lock file.
func (v *FileValidator) ValidateWorkbook(path string) error {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		return fmt.Errorf("%s is a temporary Excel lock file", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".xlsm" {
		return fmt.Errorf("%s is not an xlsx workbook (extension %q)", path, ext)
	}

	return v.ValidateFile(path)
}

// ValidateOutputDirectory creates dir if needed and checks it is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	v.logger.Debug("output directory validated", slog.String("directory", dir))
	return nil
}

// FileMapReport splits a category -> workbook map by availability.
type FileMapReport struct {
	Present map[string]string
	Missing []string
}

// ValidateFileMap resolves every workbook in files against baseDir and
// reports which ones can be processed. Missing workbooks are warned about,
// not treated as errors.
func (v *FileValidator) ValidateFileMap(baseDir string, files map[string]string) FileMapReport {
	report := FileMapReport{Present: make(map[string]string, len(files))}

	categories := make([]string, 0, len(files))
	for c := range files {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		path := files[category]
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		if err := v.ValidateWorkbook(path); err != nil {
			v.logger.Warn("workbook unavailable, skipping category",
				slog.String("category", category),
				slog.String("path", path),
				slog.String("error", err.Error()))
			report.Missing = append(report.Missing, category)
			continue
		}
		report.Present[category] = path
	}
	return report
}
