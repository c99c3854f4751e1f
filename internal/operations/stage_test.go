package operations

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecli/pkg/contracts/domain"
)

func TestStepStateTransitions(t *testing.T) {
	tests := []struct {
		name        string
		finish      func(s *StepState)
		wantStatus  StepStatus
		wantMessage string
		wantError   string
	}{
		{
			name:       "complete",
			finish:     func(s *StepState) { s.Complete(domain.UpdateResult{Sheet: "gap", CellsWritten: 4}) },
			wantStatus: StepStatusCompleted,
		},
		{
			name:       "fail",
			finish:     func(s *StepState) { s.Fail(errors.New("save gap: locked")) },
			wantStatus: StepStatusFailed,
			wantError:  "save gap: locked",
		},
		{
			name:        "skip",
			finish:      func(s *StepState) { s.Skip("volume sheet missing") },
			wantStatus:  StepStatusSkipped,
			wantMessage: "volume sheet missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStepState("gap", "gap(gap,20)")
			assert.Equal(t, StepStatusPending, s.GetStatus())
			assert.Zero(t, s.Duration())

			s.Start()
			assert.Equal(t, StepStatusActive, s.GetStatus())
			time.Sleep(time.Millisecond)
			tt.finish(s)

			report := s.Report()
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.wantMessage, report.Message)
			assert.Equal(t, tt.wantError, report.Error)
			assert.NotEmpty(t, report.Duration)
			assert.True(t, s.Duration() > 0)
		})
	}
}

func TestFileStateReport(t *testing.T) {
	state := NewFileState("KR_BIO", "KR_BIO.xlsx", domain.MarketKR, nil)

	s20 := NewStepState("s20", "s20")
	s20.Start()
	s20.Complete(domain.UpdateResult{Sheet: "s20", NewColumnsWritten: 1})
	state.SetStep("s20", s20)

	gap := NewStepState("gap", "gap")
	gap.Start()
	gap.Fail(errors.New("boom"))
	state.SetStep("gap", gap)

	// re-setting keeps the original position
	state.SetStep("s20", s20)

	report := state.Report()
	assert.Equal(t, StepStatusFailed, report.Status)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, "s20", report.Steps[0].ID)
	assert.Equal(t, "gap", report.Steps[1].ID)
	assert.Same(t, gap, state.GetStep("gap"))
	assert.Nil(t, state.GetStep("std"))
}

func TestBaseStep(t *testing.T) {
	b := NewBaseStep("z60", "z60(z,60)")
	assert.Equal(t, "z60", b.ID())
	assert.Equal(t, "z60(z,60)", b.Name())

	var nilStep *BaseStep
	assert.Empty(t, nilStep.ID())
	assert.Empty(t, nilStep.Name())
}
