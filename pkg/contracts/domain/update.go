package domain

// UpdateResult summarises one metric sheet update.
type UpdateResult struct {
	Sheet             string  `json:"sheet"`
	NewColumnsWritten int     `json:"new_columns_written"`
	NewRowsBackfilled int     `json:"new_rows_backfilled"`
	RowsRenamed       int     `json:"rows_renamed,omitempty"`
	CellsWritten      int     `json:"cells_written"`
	CellsSkipped      int     `json:"cells_skipped"`
	LastColumn        DateKey `json:"last_column,omitempty"`
	Rebuilt           bool    `json:"rebuilt,omitempty"`
}

// Changed reports whether the sheet differs from what was loaded: new
// columns, new rows (even with every cell still empty), renamed rows or
// written cells.
func (r UpdateResult) Changed() bool {
	return r.NewColumnsWritten > 0 || r.NewRowsBackfilled > 0 || r.RowsRenamed > 0 || r.CellsWritten > 0
}

// Merge accumulates counters from another result for the same sheet.
func (r *UpdateResult) Merge(o UpdateResult) {
	r.NewColumnsWritten += o.NewColumnsWritten
	r.NewRowsBackfilled += o.NewRowsBackfilled
	r.RowsRenamed += o.RowsRenamed
	r.CellsWritten += o.CellsWritten
	r.CellsSkipped += o.CellsSkipped
	if o.LastColumn > r.LastColumn {
		r.LastColumn = o.LastColumn
	}
}
