package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered workbook
type FileInfo struct {
	Category string
	Path     string
	Name     string
	Size     int64
	ModTime  time.Time
}

// Discovery finds category workbooks in a directory
type Discovery struct {
	basePath string
	logger   *slog.Logger
}

// NewDiscovery creates a new file discovery instance. Relative directories
// resolve against basePath.
func NewDiscovery(basePath string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{
		basePath: basePath,
		logger:   logger.With(slog.String("component", "discovery")),
	}
}

// FindWorkbooks lists the .xlsx/.xlsm files of dir sorted by name. Excel
// lock files (~$name.xlsx) and hidden files are ignored.
func (d *Discovery) FindWorkbooks(dir string) ([]FileInfo, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		ext := filepath.Ext(name)
		if e := strings.ToLower(ext); e != ".xlsx" && e != ".xlsm" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Category: strings.TrimSuffix(name, ext),
			Path:     filepath.Join(fullPath, name),
			Name:     name,
			Size:     info.Size(),
			ModTime:  info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// DiscoverFileMap builds a category -> file name map from the workbooks of
// dir, the category being the file name without extension. It stands in
// for a missing stock_file_map.json.
func (d *Discovery) DiscoverFileMap(dir string) (map[string]string, error) {
	files, err := d.FindWorkbooks(dir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(files))
	for _, f := range files {
		if prev, ok := out[f.Category]; ok {
			d.logger.Warn("duplicate category, keeping first",
				slog.String("category", f.Category),
				slog.String("kept", prev),
				slog.String("ignored", f.Name))
			continue
		}
		out[f.Category] = f.Name
	}

	d.logger.Info("workbooks discovered",
		slog.String("dir", dir),
		slog.Int("categories", len(out)))
	return out, nil
}
