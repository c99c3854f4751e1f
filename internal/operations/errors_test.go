package operations

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "scorecli/internal/errors"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{"persistence", fmt.Errorf("save gap: %w", apperrors.ErrPersistence), ErrorTypePersistence, true},
		{"cancelled", fmt.Errorf("update gap: %w", context.Canceled), ErrorTypeCancellation, false},
		{"deadline", context.DeadlineExceeded, ErrorTypeCancellation, false},
		{"missing workbook", fmt.Errorf("open: %w", apperrors.ErrSourceMissing), ErrorTypeNotFound, false},
		{"corrupt sheet", fmt.Errorf("read: %w", apperrors.ErrSheetCorrupt), ErrorTypeExecution, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ClassifyError("KR_BIO", "gap", tt.err)
			require.NotNil(t, e)
			assert.Equal(t, tt.wantType, e.Type)
			assert.Equal(t, tt.wantRetryable, e.Retryable)
			assert.ErrorIs(t, e, tt.err)
			assert.Contains(t, e.Error(), "KR_BIO/gap")
		})
	}

	assert.Nil(t, ClassifyError("KR_BIO", "gap", nil))
}

func TestClassifyErrorKeepsOperationError(t *testing.T) {
	orig := NewCancellationError("s20")
	got := ClassifyError("US_TECH", "other", fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, got)
	assert.Equal(t, "US_TECH", got.Category)
	assert.Equal(t, "s20", got.Step)
}

func TestOperationErrorMessage(t *testing.T) {
	assert.Equal(t, "[validation] gap: bad window", NewValidationError("gap", "bad window").Error())
	assert.Equal(t, "[execution] std: step execution failed: boom",
		NewExecutionError("std", errors.New("boom"), false).Error())

	var nilErr *OperationError
	assert.Equal(t, "unknown operation error", nilErr.Error())
	assert.NoError(t, nilErr.Unwrap())
}

func TestErrorList(t *testing.T) {
	var list ErrorList
	assert.False(t, list.HasErrors())
	assert.NoError(t, list.Err())
	assert.Equal(t, "no errors", list.Error())

	list.Add(nil)
	list.Add(ClassifyError("KR_BIO", "gap", apperrors.ErrPersistence))
	assert.Equal(t, list.Errors[0].Error(), list.Error())

	other := &ErrorList{}
	other.Add(ClassifyError("US_TECH", "std", errors.New("boom")))
	list.Merge(other)
	list.Merge(nil)

	require.Error(t, list.Err())
	assert.Equal(t, "multiple errors: 2 errors occurred", list.Error())
	assert.ErrorIs(t, list.Err(), apperrors.ErrPersistence)
	assert.Len(t, list.GetByStep("std"), 1)
	assert.Empty(t, list.GetByStep("s20"))

	assert.Equal(t, ErrorTypePersistence, GetErrorType(list.Err()))
	assert.True(t, IsRetryable(list.Err()))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(errors.New("plain")))
	assert.Empty(t, GetErrorType(nil))
	assert.False(t, IsRetryable(errors.New("plain")))
}
