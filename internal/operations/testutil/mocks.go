package testutil

import (
	"context"
	"sync"
	"time"

	apperrors "scorecli/internal/errors"
	"scorecli/internal/operations"
	"scorecli/pkg/contracts/domain"
)

// MockStep is a configurable mock implementation of the step interface
type MockStep struct {
	IDValue   string
	NameValue string

	// Configurable function
	ExecuteFunc func(ctx context.Context, state *operations.FileState) (domain.UpdateResult, error)

	// Call tracking
	mu          sync.Mutex
	ExecuteArgs []ExecuteCall
}

// ExecuteCall tracks arguments passed to Execute
type ExecuteCall struct {
	Category string
	Path     string
	Time     time.Time
}

// ID returns the step ID
func (m *MockStep) ID() string {
	return m.IDValue
}

// Name returns the step name
func (m *MockStep) Name() string {
	return m.NameValue
}

// Execute runs the mock execute function
func (m *MockStep) Execute(ctx context.Context, state *operations.FileState) (domain.UpdateResult, error) {
	m.mu.Lock()
	m.ExecuteArgs = append(m.ExecuteArgs, ExecuteCall{
		Category: state.Category,
		Path:     state.Path,
		Time:     time.Now(),
	})
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, state)
	}
	return domain.UpdateResult{Sheet: m.IDValue}, nil
}

// GetExecuteCalls returns the number of Execute calls
func (m *MockStep) GetExecuteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ExecuteArgs)
}

// Categories returns the categories Execute saw, in call order
func (m *MockStep) Categories() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ExecuteArgs))
	for i, c := range m.ExecuteArgs {
		out[i] = c.Category
	}
	return out
}

// CreateSuccessfulStep returns a step that writes one column
func CreateSuccessfulStep(id, name string) *MockStep {
	return &MockStep{
		IDValue:   id,
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, state *operations.FileState) (domain.UpdateResult, error) {
			return domain.UpdateResult{Sheet: id, NewColumnsWritten: 1, CellsWritten: 2}, nil
		},
	}
}

// CreateFailingStep returns a step that always fails with err
func CreateFailingStep(id, name string, err error) *MockStep {
	return &MockStep{
		IDValue:   id,
		NameValue: name,
		ExecuteFunc: func(ctx context.Context, state *operations.FileState) (domain.UpdateResult, error) {
			return domain.UpdateResult{Sheet: id}, err
		},
	}
}

// CreateSkippingStep returns a step whose source sheet is missing
func CreateSkippingStep(id, name string) *MockStep {
	return CreateFailingStep(id, name, apperrors.ErrSourceMissing)
}

// CreateRecordingStep appends its ID to order on every call
func CreateRecordingStep(id string, mu *sync.Mutex, order *[]string) *MockStep {
	return &MockStep{
		IDValue:   id,
		NameValue: id,
		ExecuteFunc: func(ctx context.Context, state *operations.FileState) (domain.UpdateResult, error) {
			mu.Lock()
			*order = append(*order, id)
			mu.Unlock()
			return domain.UpdateResult{Sheet: id}, nil
		},
	}
}
