package exporter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	apperrors "scorecli/internal/errors"
	"scorecli/internal/sheet"
	"scorecli/pkg/contracts/domain"
)

// Fixed header labels of a score sheet.
const (
	HeaderName = "종목명"
	HeaderCode = "종목코드"
)

// firstDateColumn is the one-based column of the first date (column C).
const firstDateColumn = 3

// SaveOptions controls how a table is written.
type SaveOptions struct {
	// Integral writes cells as integers.
	Integral bool
	// Replace drops the existing sheet before writing.
	Replace bool
}

// WorkbookStore reads and writes score sheets. Writes to one path are
// serialised; different paths proceed in parallel.
type WorkbookStore struct {
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWorkbookStore creates a store. A nil logger falls back to slog.Default().
func NewWorkbookStore(logger *slog.Logger) *WorkbookStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookStore{
		logger: logger.With(slog.String("component", "workbook_store")),
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *WorkbookStore) lock(path string) func() {
	key := filepath.Clean(path)

	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// SheetNames lists the sheets of the workbook at path.
func (s *WorkbookStore) SheetNames(path string) ([]string, error) {
	unlock := s.lock(path)
	defer unlock()

	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("workbook %s: %w", path, apperrors.ErrSourceMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	return f.GetSheetList(), nil
}

// LoadSheet reads a score sheet into memory. A missing workbook or sheet
// yields an empty table. Header dates are read left to right up to the first
// cell that is not a date; they must be strictly increasing.
func (s *WorkbookStore) LoadSheet(path, name string) (*sheet.Table, error) {
	unlock := s.lock(path)
	defer unlock()

	table := sheet.NewTable(name)

	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return table, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, apperrors.ErrSheetCorrupt)
	}
	defer f.Close()

	if !slices.Contains(f.GetSheetList(), name) {
		return table, nil
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, apperrors.ErrSheetCorrupt)
	}
	if len(rows) == 0 {
		return table, nil
	}

	header := rows[0]
	for i := firstDateColumn - 1; i < len(header); i++ {
		label := strings.TrimSpace(header[i])
		date, err := domain.ParseDateKey(label)
		if err != nil {
			if label != "" {
				s.logger.Warn("sheet header ends at non-date cell",
					slog.String("sheet", name),
					slog.String("cell", label),
					slog.Int("ignored_columns", len(header)-i))
			}
			break
		}
		if _, err := table.AppendColumn(date); err != nil {
			return nil, fmt.Errorf("sheet %s header: %w (%v)", name, apperrors.ErrSheetCorrupt, err)
		}
	}
	columns := len(table.Columns())

	for r, row := range rows[1:] {
		sheetRow := r + 2
		code := cellAt(row, 1)
		if code == "" {
			if cellAt(row, 0) != "" {
				s.logger.Warn("sheet row without code ignored",
					slog.String("sheet", name),
					slog.Int("row", sheetRow))
			}
			continue
		}
		if _, dup := table.Row(code); dup {
			s.logger.Warn("duplicate code in sheet, keeping first row",
				slog.String("sheet", name),
				slog.String("code", code),
				slog.Int("row", sheetRow))
			continue
		}
		handle, _ := table.EnsureRowAt(code, cellAt(row, 0), sheetRow)

		for c := 0; c < columns; c++ {
			obs, err := domain.ParseObservation(cellAt(row, firstDateColumn-1+c))
			if err != nil || !obs.Defined {
				continue
			}
			table.SetIfEmpty(handle, sheet.ColumnHandle(c), obs.Value)
		}
	}
	table.ReserveSheetRows(len(rows))

	s.logger.Debug("sheet loaded",
		slog.String("path", path),
		slog.String("sheet", name),
		slog.Int("columns", columns),
		slog.Int("rows", len(table.Rows())),
		slog.Int("cells", table.CellCount()))
	return table, nil
}

// SaveSheet writes table into the workbook at path, creating the file or
// sheet when needed. Loaded rows go back to the worksheet row they came from
// and new rows go below the last used row. Existing cells are overwritten in
// place; cells and rows the table does not hold are left alone unless
// opts.Replace is set.
func (s *WorkbookStore) SaveSheet(path string, table *sheet.Table, opts SaveOptions) error {
	unlock := s.lock(path)
	defer unlock()

	if err := s.save(path, table, opts); err != nil {
		return fmt.Errorf("save sheet %s to %s: %w: %v", table.Name(), path, apperrors.ErrPersistence, err)
	}

	s.logger.Info("sheet saved",
		slog.String("path", path),
		slog.String("sheet", table.Name()),
		slog.Int("columns", len(table.Columns())),
		slog.Int("rows", len(table.Rows())))
	return nil
}

func (s *WorkbookStore) save(path string, table *sheet.Table, opts SaveOptions) error {
	f, created, err := openOrCreate(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := table.Name()
	if err := prepareSheet(f, name, created, opts.Replace); err != nil {
		return err
	}

	columns := table.Columns()
	header := make([]any, 0, len(columns)+2)
	header = append(header, HeaderName, HeaderCode)
	for _, d := range columns {
		header = append(header, int(d))
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range table.PlaceRows() {
		r := row.SheetRow
		if err := f.SetCellStr(name, cellName(1, r), row.Name); err != nil {
			return err
		}
		if err := f.SetCellStr(name, cellName(2, r), row.Code); err != nil {
			return err
		}
		for c := range columns {
			v, ok := table.Get(row.Handle, sheet.ColumnHandle(c))
			if !ok {
				continue
			}
			var value any = v
			if opts.Integral {
				value = int64(v)
			}
			if err := f.SetCellValue(name, cellName(firstDateColumn+c, r), value); err != nil {
				return err
			}
		}
	}

	if err := applyPresentation(f, name, len(columns)); err != nil {
		return fmt.Errorf("style sheet: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return f.SaveAs(path)
}

func openOrCreate(path string) (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}
	return excelize.NewFile(), true, nil
}

func prepareSheet(f *excelize.File, name string, created, replace bool) error {
	sheets := f.GetSheetList()
	exists := slices.Contains(sheets, name)

	if exists && replace && len(sheets) > 1 {
		if err := f.DeleteSheet(name); err != nil {
			return err
		}
		exists = false
	} else if exists && replace {
		// only sheet in the workbook; clear it by rename and recreate
		if err := f.SetSheetName(name, "_replaced"); err != nil {
			return err
		}
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		return f.DeleteSheet("_replaced")
	}
	if exists {
		return nil
	}

	// a fresh workbook comes with a default sheet; take it over
	if created && len(sheets) == 1 {
		return f.SetSheetName(sheets[0], name)
	}
	_, err := f.NewSheet(name)
	return err
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
