package testutil

import (
	"context"
	"sync"
	"time"
)

// StepOutcome is one RecordStep call
type StepOutcome struct {
	Category string
	Step     string
	Status   string
}

// MockRecorder captures step and file outcomes
type MockRecorder struct {
	mu    sync.Mutex
	Steps []StepOutcome
	Files map[string]bool
}

// NewMockRecorder creates an empty recorder
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{Files: make(map[string]bool)}
}

// RecordStep implements operations.Recorder
func (r *MockRecorder) RecordStep(_ context.Context, category, step, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Steps = append(r.Steps, StepOutcome{Category: category, Step: step, Status: status})
}

// RecordFile implements operations.Recorder
func (r *MockRecorder) RecordFile(_ context.Context, category string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files[category] = failed
}

// StatusOf returns the last recorded status of a step
func (r *MockRecorder) StatusOf(category, step string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.Steps) - 1; i >= 0; i-- {
		if r.Steps[i].Category == category && r.Steps[i].Step == step {
			return r.Steps[i].Status
		}
	}
	return ""
}
