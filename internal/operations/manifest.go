package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Run statuses recorded in the manifest.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

// RunManifest is the JSON summary of one run over the file map.
type RunManifest struct {
	mu sync.RWMutex

	RunID     string     `json:"run_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  string     `json:"duration,omitempty"`
	Rebuild   bool       `json:"rebuild"`
	Status    string     `json:"status"`

	Files   []FileReport  `json:"files"`
	Missing []MissingFile `json:"missing,omitempty"`
	Totals  RunTotals     `json:"totals"`
	Errors  []string      `json:"errors,omitempty"`
}

// MissingFile is a category whose workbook could not be found.
type MissingFile struct {
	Category string `json:"category"`
	Path     string `json:"path"`
}

// RunTotals adds up step outcomes over all files.
type RunTotals struct {
	Files          int `json:"files"`
	StepsCompleted int `json:"steps_completed"`
	StepsSkipped   int `json:"steps_skipped"`
	StepsFailed    int `json:"steps_failed"`
	ColumnsWritten int `json:"columns_written"`
	RowsBackfilled int `json:"rows_backfilled"`
	CellsWritten   int `json:"cells_written"`
}

// NewRunManifest creates a manifest for a starting run
func NewRunManifest(runID string, rebuild bool) *RunManifest {
	return &RunManifest{
		RunID:     runID,
		StartTime: time.Now(),
		Rebuild:   rebuild,
		Status:    RunStatusRunning,
		Files:     []FileReport{},
	}
}

// AddFile records the outcome of one workbook
func (m *RunManifest) AddFile(r FileReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Files = append(m.Files, r)
	m.Totals.Files++
	for _, s := range r.Steps {
		switch s.Status {
		case StepStatusCompleted:
			m.Totals.StepsCompleted++
		case StepStatusSkipped:
			m.Totals.StepsSkipped++
		case StepStatusFailed:
			m.Totals.StepsFailed++
		}
		m.Totals.ColumnsWritten += s.Result.NewColumnsWritten
		m.Totals.RowsBackfilled += s.Result.NewRowsBackfilled
		m.Totals.CellsWritten += s.Result.CellsWritten
	}
}

// AddMissing records a category that was skipped for lack of a workbook
func (m *RunManifest) AddMissing(category, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Missing = append(m.Missing, MissingFile{Category: category, Path: path})
}

// Finish stamps the end time and derives the run status from errs
func (m *RunManifest) Finish(errs *ErrorList, cancelled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.EndTime = &now
	m.Duration = now.Sub(m.StartTime).String()

	switch {
	case cancelled:
		m.Status = RunStatusCancelled
	case errs == nil || !errs.HasErrors():
		m.Status = RunStatusCompleted
	case m.Totals.StepsCompleted > 0:
		m.Status = RunStatusPartial
	default:
		m.Status = RunStatusFailed
	}
	if errs != nil {
		for _, e := range errs.Errors {
			m.Errors = append(m.Errors, e.Error())
		}
	}
}

// SaveToFile saves the manifest to a JSON file
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// LoadManifestFromFile loads a manifest from a JSON file
func LoadManifestFromFile(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &manifest, nil
}
