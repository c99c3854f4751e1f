package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "scorecli/internal/errors"
	"scorecli/internal/validation"
	"scorecli/pkg/contracts/domain"
)

// Raw sheet names.
const (
	PriceSheet  = "종가"
	VolumeSheet = "거래량"
)

// Sources a metric can read.
const (
	SourcePrice  = "price"
	SourceVolume = "volume"
)

// firstValueColumn is the zero-based column where readings start (column C).
const firstValueColumn = 2

// maxMalformedLogged caps per-cell debug lines for one sheet.
const maxMalformedLogged = 20

// Workbook is the raw input of one category. A nil table means the sheet is
// absent from the workbook.
type Workbook struct {
	Path   string
	Market domain.Market
	Price  *domain.RawTable
	Volume *domain.RawTable
}

// Table returns the raw table for a source, or ErrSourceMissing.
func (w *Workbook) Table(source string) (domain.RawTable, error) {
	var t *domain.RawTable
	switch source {
	case SourcePrice:
		t = w.Price
	case SourceVolume:
		t = w.Volume
	default:
		return domain.RawTable{}, fmt.Errorf("unknown source %q", source)
	}
	if t == nil {
		return domain.RawTable{}, fmt.Errorf("%s sheet in %s: %w", source, w.Path, apperrors.ErrSourceMissing)
	}
	return *t, nil
}

// Loader reads raw workbooks.
type Loader struct {
	logger    *slog.Logger
	validator *validation.FileValidator
}

// NewLoader creates a loader. A nil logger falls back to slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:    logger.With(slog.String("component", "loader")),
		validator: validation.NewFileValidator(logger),
	}
}

// Load opens path and reads both raw sheets. A missing workbook is
// ErrSourceMissing; a missing sheet only leaves that table nil.
func (l *Loader) Load(ctx context.Context, path string, market domain.Market) (*Workbook, error) {
	f, err := l.OpenWorkbook(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wb := &Workbook{Path: path, Market: market}

	price, err := l.LoadPriceSeries(ctx, f, market)
	switch {
	case err == nil:
		wb.Price = &price
	case errors.Is(err, apperrors.ErrSourceMissing):
		l.logger.WarnContext(ctx, "price sheet missing", slog.String("path", path))
	default:
		return nil, err
	}

	volume, err := l.LoadVolumeSeries(ctx, f, market)
	switch {
	case err == nil:
		wb.Volume = &volume
	case errors.Is(err, apperrors.ErrSourceMissing):
		l.logger.WarnContext(ctx, "volume sheet missing", slog.String("path", path))
	default:
		return nil, err
	}

	return wb, nil
}

// OpenWorkbook validates path and opens it. The caller closes the file.
func (l *Loader) OpenWorkbook(path string) (*excelize.File, error) {
	if err := l.validator.ValidateWorkbook(path); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return f, nil
}

// LoadPriceSeries reads the close price sheet.
func (l *Loader) LoadPriceSeries(ctx context.Context, f *excelize.File, market domain.Market) (domain.RawTable, error) {
	return l.loadSheet(ctx, f, PriceSheet, market)
}

// LoadVolumeSeries reads the volume sheet.
func (l *Loader) LoadVolumeSeries(ctx context.Context, f *excelize.File, market domain.Market) (domain.RawTable, error) {
	return l.loadSheet(ctx, f, VolumeSheet, market)
}

func (l *Loader) loadSheet(ctx context.Context, f *excelize.File, name string, market domain.Market) (domain.RawTable, error) {
	if !slices.Contains(f.GetSheetList(), name) {
		return domain.RawTable{}, fmt.Errorf("sheet %s: %w", name, apperrors.ErrSourceMissing)
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.RawTable{}, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return domain.RawTable{}, nil
	}

	var headers []string
	if len(rows[0]) > firstValueColumn {
		headers = rows[0][firstValueColumn:]
	}
	axis, columns := domain.BuildDateAxis(headers)

	raw := domain.RawTable{Axis: axis, Entities: make([]domain.EntitySeries, 0, len(rows)-1)}
	skipped, malformed := 0, 0
	for r, row := range rows[1:] {
		entityName, code := cell(row, 0), domain.NormalizeCode(cell(row, 1), market)
		if entityName == "" || code == "" {
			skipped++
			continue
		}

		series := make(domain.Series, len(columns))
		for i, c := range columns {
			obs, err := domain.ParseObservation(cell(row, firstValueColumn+c))
			if err != nil {
				malformed++
				if malformed <= maxMalformedLogged {
					l.logger.DebugContext(ctx, "unreadable cell treated as missing",
						slog.String("sheet", name),
						slog.Int("row", r+2),
						slog.String("date", axis[i].String()),
						slog.String("error", err.Error()),
					)
				}
			}
			series[i] = obs
		}
		raw.Entities = append(raw.Entities, domain.EntitySeries{
			Entity: domain.Entity{Code: code, Name: entityName},
			Series: series,
		})
	}
	raw.Normalize()

	l.logger.InfoContext(ctx, "raw sheet loaded",
		slog.String("sheet", name),
		slog.Int("dates", len(raw.Axis)),
		slog.Int("entities", len(raw.Entities)),
		slog.Int("rows_without_identity", skipped),
		slog.Int("unreadable_cells", malformed),
	)
	return raw, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
