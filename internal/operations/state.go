package operations

import (
	"sync"
	"time"

	"scorecli/internal/dataprocessing"
	"scorecli/pkg/contracts/domain"
)

// FileState is the state of one category workbook while its steps run.
type FileState struct {
	mu sync.RWMutex

	Category string
	Path     string
	Market   domain.Market
	Workbook *dataprocessing.Workbook

	// Rebuild makes metric steps recompute their sheet from nothing.
	Rebuild bool

	StartTime time.Time
	steps     map[string]*StepState
	order     []string
}

// NewFileState creates the state for one workbook.
func NewFileState(category, path string, market domain.Market, wb *dataprocessing.Workbook) *FileState {
	return &FileState{
		Category:  category,
		Path:      path,
		Market:    market,
		Workbook:  wb,
		StartTime: time.Now(),
		steps:     make(map[string]*StepState),
	}
}

// GetStep returns the state of a specific Step
func (f *FileState) GetStep(id string) *StepState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.steps[id]
}

// SetStep records the state of a Step, keeping first-seen order
func (f *FileState) SetStep(id string, state *StepState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.steps[id]; !ok {
		f.order = append(f.order, id)
	}
	f.steps[id] = state
}

// Steps returns step states in execution order.
func (f *FileState) Steps() []*StepState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*StepState, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.steps[id])
	}
	return out
}

// Report summarises the file for the run manifest.
func (f *FileState) Report() FileReport {
	r := FileReport{
		Category: f.Category,
		Path:     f.Path,
		Market:   f.Market,
		Status:   StepStatusCompleted,
		Duration: time.Since(f.StartTime).String(),
	}
	for _, s := range f.Steps() {
		sr := s.Report()
		if sr.Status == StepStatusFailed {
			r.Status = StepStatusFailed
		}
		r.Steps = append(r.Steps, sr)
	}
	return r
}

// FileReport is the manifest entry of one category workbook.
type FileReport struct {
	Category string        `json:"category"`
	Path     string        `json:"path"`
	Market   domain.Market `json:"market"`
	Status   StepStatus    `json:"status"`
	Duration string        `json:"duration"`
	Error    string        `json:"error,omitempty"`
	Steps    []StepReport  `json:"steps"`
}
