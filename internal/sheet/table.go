package sheet

import (
	"fmt"
	"sync"

	apperrors "scorecli/internal/errors"
	"scorecli/pkg/contracts/domain"
)

// RowHandle addresses a row by its slot in persisted order.
type RowHandle int

// ColumnHandle addresses a date column by its position.
type ColumnHandle int

// RowInfo describes one row. SheetRow is the one-based worksheet row the
// entity occupies; zero means the row has not been written yet.
type RowInfo struct {
	Handle   RowHandle
	Code     string
	Name     string
	SheetRow int
}

// headerRow is the worksheet row holding the date header.
const headerRow = 1

type cellKey struct {
	row RowHandle
	col ColumnHandle
}

// Table is one score sheet held in memory. It is safe for concurrent cell
// writes; AppendColumn and EnsureRow are serialised by the same lock.
type Table struct {
	name string

	mu       sync.RWMutex
	columns  []domain.DateKey
	colIndex map[domain.DateKey]ColumnHandle
	rows     []RowInfo
	rowIndex map[string]RowHandle
	cells    map[cellKey]float64
	// lastSheetRow is the highest worksheet row in use, placed or reserved.
	lastSheetRow int
}

// NewTable creates an empty table for the named sheet.
func NewTable(name string) *Table {
	return &Table{
		name:     name,
		colIndex: make(map[domain.DateKey]ColumnHandle),
		rowIndex: make(map[string]RowHandle),
		cells:    make(map[cellKey]float64),

		lastSheetRow: headerRow,
	}
}

// Name returns the sheet name.
func (t *Table) Name() string {
	return t.name
}

// EnsureRow returns the row for code, creating it at the next free slot when
// missing. An existing row keeps its slot; only the name is refreshed.
func (t *Table) EnsureRow(code, name string) (RowHandle, bool) {
	return t.EnsureRowAt(code, name, 0)
}

// EnsureRowAt is EnsureRow for a row read from worksheet row sheetRow. The
// placement applies only when the row is created.
func (t *Table) EnsureRowAt(code, name string, sheetRow int) (RowHandle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.rowIndex[code]; ok {
		if name != "" {
			t.rows[h].Name = name
		}
		return h, false
	}

	if sheetRow <= headerRow {
		sheetRow = 0
	}
	h := RowHandle(len(t.rows))
	t.rows = append(t.rows, RowInfo{Handle: h, Code: code, Name: name, SheetRow: sheetRow})
	t.rowIndex[code] = h
	t.lastSheetRow = max(t.lastSheetRow, sheetRow)
	return h, true
}

// ReserveSheetRows marks worksheet rows up to n as occupied, so rows the
// table does not track are never overwritten by placed rows.
func (t *Table) ReserveSheetRows(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSheetRow = max(t.lastSheetRow, n)
}

// PlaceRows gives every unplaced row the next free worksheet row, in row
// order, and returns all rows.
func (t *Table) PlaceRows() []RowInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.rows {
		if t.rows[i].SheetRow == 0 {
			t.lastSheetRow++
			t.rows[i].SheetRow = t.lastSheetRow
		}
	}
	out := make([]RowInfo, len(t.rows))
	copy(out, t.rows)
	return out
}

// Row looks up the row for code.
func (t *Table) Row(code string) (RowHandle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.rowIndex[code]
	return h, ok
}

// Info returns the row description for h.
func (t *Table) Info(h RowHandle) (RowInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if int(h) < 0 || int(h) >= len(t.rows) {
		return RowInfo{}, false
	}
	return t.rows[h], true
}

// Rows returns all rows in persisted order.
func (t *Table) Rows() []RowInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RowInfo, len(t.rows))
	copy(out, t.rows)
	return out
}

// Columns returns the column dates in ascending order.
func (t *Table) Columns() []domain.DateKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.DateKey, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks up the column for date.
func (t *Table) Column(date domain.DateKey) (ColumnHandle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.colIndex[date]
	return h, ok
}

// LastColumn returns the most recent column date.
func (t *Table) LastColumn() (domain.DateKey, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.columns) == 0 {
		return 0, false
	}
	return t.columns[len(t.columns)-1], true
}

// AppendColumn adds date as the new last column. Dates must be strictly
// increasing; anything else is ErrColumnOrder.
func (t *Table) AppendColumn(date domain.DateKey) (ColumnHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.columns); n > 0 && date <= t.columns[n-1] {
		return 0, fmt.Errorf("sheet %s: append %s after %s: %w", t.name, date, t.columns[n-1], apperrors.ErrColumnOrder)
	}

	h := ColumnHandle(len(t.columns))
	t.columns = append(t.columns, date)
	t.colIndex[date] = h
	return h, nil
}

// Get returns the cell value, or false for an empty cell.
func (t *Table) Get(row RowHandle, col ColumnHandle) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.cells[cellKey{row, col}]
	return v, ok
}

// SetIfEmpty writes v only when the cell is empty and reports whether it did.
func (t *Table) SetIfEmpty(row RowHandle, col ColumnHandle, v float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(row) < 0 || int(row) >= len(t.rows) || int(col) < 0 || int(col) >= len(t.columns) {
		return false
	}
	key := cellKey{row, col}
	if _, ok := t.cells[key]; ok {
		return false
	}
	t.cells[key] = v
	return true
}

// Lookup reads a cell by entity code and date.
func (t *Table) Lookup(code string, date domain.DateKey) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	row, ok := t.rowIndex[code]
	if !ok {
		return 0, false
	}
	col, ok := t.colIndex[date]
	if !ok {
		return 0, false
	}
	v, ok := t.cells[cellKey{row, col}]
	return v, ok
}

// RowValues returns the row aligned with Columns(); empty cells are undefined.
func (t *Table) RowValues(row RowHandle) domain.Series {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(domain.Series, len(t.columns))
	for c := range t.columns {
		if v, ok := t.cells[cellKey{row, ColumnHandle(c)}]; ok {
			out[c] = domain.Value(v)
		}
	}
	return out
}

// CellCount returns the number of filled cells.
func (t *Table) CellCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cells)
}
