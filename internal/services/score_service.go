package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"scorecli/internal/dataprocessing"
	apperrors "scorecli/internal/errors"
	"scorecli/internal/exporter"
	"scorecli/internal/sheet"
	"scorecli/pkg/contracts/domain"
)

// FileInfo describes one configured category workbook.
type FileInfo struct {
	Category  string        `json:"category"`
	File      string        `json:"file"`
	Market    domain.Market `json:"market"`
	Available bool          `json:"available"`
	Sheets    []string      `json:"sheets"`
}

// SheetView is a persisted score sheet, optionally cut to a date range.
// Undefined cells are null.
type SheetView struct {
	Category string           `json:"category"`
	Sheet    string           `json:"sheet"`
	Columns  []domain.DateKey `json:"columns"`
	Rows     []RowView        `json:"rows"`
}

// RowView is one entity row of a SheetView.
type RowView struct {
	Code   string     `json:"code"`
	Name   string     `json:"name"`
	Values []*float64 `json:"values"`
}

// EntityView lists the defined scores of one entity.
type EntityView struct {
	Category string       `json:"category"`
	Sheet    string       `json:"sheet"`
	Code     string       `json:"code"`
	Name     string       `json:"name"`
	Scores   []ScorePoint `json:"scores"`
}

// ScorePoint is one defined cell.
type ScorePoint struct {
	Date  domain.DateKey `json:"date"`
	Value float64        `json:"value"`
}

// ScoreService reads persisted score sheets. It never writes.
type ScoreService struct {
	files   map[string]string
	markets map[string]domain.Market
	store   *exporter.WorkbookStore
	logger  *slog.Logger
}

// NewScoreService serves the workbooks of files, a category -> path map
// whose relative paths resolve against dataDir.
func NewScoreService(files map[string]string, dataDir string, store *exporter.WorkbookStore, logger *slog.Logger) *ScoreService {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = exporter.NewWorkbookStore(logger)
	}
	resolved := make(map[string]string, len(files))
	for category, path := range files {
		if !filepath.IsAbs(path) && dataDir != "" {
			path = filepath.Join(dataDir, path)
		}
		resolved[category] = path
	}
	return &ScoreService{
		files:   resolved,
		markets: make(map[string]domain.Market),
		store:   store,
		logger:  logger.With(slog.String("service", "score")),
	}
}

// WithMarkets overrides the market inferred from category names, the same
// overrides the scoring run applies when it normalises codes.
func (s *ScoreService) WithMarkets(markets map[string]string) *ScoreService {
	for category, market := range markets {
		s.markets[category] = domain.Market(strings.ToUpper(market))
	}
	return s
}

func (s *ScoreService) marketFor(category string) domain.Market {
	if market, ok := s.markets[category]; ok {
		return market
	}
	return domain.MarketForCategory(category)
}

// ListFiles returns every configured category in sorted order with the
// score sheets its workbook currently holds.
func (s *ScoreService) ListFiles(ctx context.Context) ([]FileInfo, error) {
	categories := make([]string, 0, len(s.files))
	for c := range s.files {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]FileInfo, 0, len(categories))
	for _, category := range categories {
		path := s.files[category]
		info := FileInfo{
			Category: category,
			File:     filepath.Base(path),
			Market:   s.marketFor(category),
			Sheets:   []string{},
		}

		names, err := s.store.SheetNames(path)
		switch {
		case err == nil:
			info.Available = true
			for _, n := range names {
				if n != dataprocessing.PriceSheet && n != dataprocessing.VolumeSheet {
					info.Sheets = append(info.Sheets, n)
				}
			}
		case errors.Is(err, apperrors.ErrSourceMissing):
			s.logger.DebugContext(ctx, "workbook missing", slog.String("category", category))
		default:
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// GetSheet loads a score sheet. Zero from/to leave that side open.
func (s *ScoreService) GetSheet(ctx context.Context, category, name string, from, to domain.DateKey) (*SheetView, error) {
	if from != 0 && to != 0 && from > to {
		return nil, fmt.Errorf("from %s after to %s: %w", from, to, ErrInvalidRange)
	}

	table, err := s.load(ctx, category, name)
	if err != nil {
		return nil, err
	}

	view := &SheetView{Category: category, Sheet: name, Columns: []domain.DateKey{}, Rows: []RowView{}}
	var picked []int
	for i, d := range table.Columns() {
		if (from != 0 && d < from) || (to != 0 && d > to) {
			continue
		}
		picked = append(picked, i)
		view.Columns = append(view.Columns, d)
	}

	for _, row := range table.Rows() {
		rv := RowView{Code: row.Code, Name: row.Name, Values: make([]*float64, len(picked))}
		for j, c := range picked {
			if v, ok := table.Get(row.Handle, sheet.ColumnHandle(c)); ok {
				rv.Values[j] = &v
			}
		}
		view.Rows = append(view.Rows, rv)
	}

	s.logger.DebugContext(ctx, "sheet served",
		slog.String("category", category),
		slog.String("sheet", name),
		slog.Int("columns", len(view.Columns)),
		slog.Int("rows", len(view.Rows)))
	return view, nil
}

// GetEntity returns the defined scores of one entity, oldest first.
func (s *ScoreService) GetEntity(ctx context.Context, category, name, code string) (*EntityView, error) {
	table, err := s.load(ctx, category, name)
	if err != nil {
		return nil, err
	}

	code = domain.NormalizeCode(code, s.marketFor(category))
	h, ok := table.Row(code)
	if !ok {
		return nil, fmt.Errorf("%s in %s/%s: %w", code, category, name, ErrEntityNotFound)
	}

	view := &EntityView{Category: category, Sheet: name, Code: code, Scores: []ScorePoint{}}
	rows := table.Rows()
	if idx := slices.IndexFunc(rows, func(r sheet.RowInfo) bool { return r.Handle == h }); idx >= 0 {
		view.Name = rows[idx].Name
	}
	for i, d := range table.Columns() {
		if v, ok := table.Get(h, sheet.ColumnHandle(i)); ok {
			view.Scores = append(view.Scores, ScorePoint{Date: d, Value: v})
		}
	}
	return view, nil
}

func (s *ScoreService) load(ctx context.Context, category, name string) (*sheet.Table, error) {
	path, ok := s.files[category]
	if !ok {
		return nil, fmt.Errorf("%s: %w", category, apperrors.ErrUnknownCategory)
	}

	names, err := s.store.SheetNames(path)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, name) || name == dataprocessing.PriceSheet || name == dataprocessing.VolumeSheet {
		return nil, fmt.Errorf("%s/%s: %w", category, name, apperrors.ErrSheetNotFound)
	}

	s.logger.DebugContext(ctx, "loading sheet", slog.String("path", path), slog.String("sheet", name))
	return s.store.LoadSheet(path, name)
}
