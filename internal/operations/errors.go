package operations

import (
	"context"
	"errors"
	"fmt"

	apperrors "scorecli/internal/errors"
)

// ErrorType represents the type of operation error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypePersistence  ErrorType = "persistence"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeNotFound     ErrorType = "not_found"
)

// OperationError is a failure of one step or one file
type OperationError struct {
	Type      ErrorType `json:"type"`
	Category  string    `json:"category,omitempty"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Retryable bool      `json:"retryable"`
}

// Error implements the error interface
func (e *OperationError) Error() string {
	if e == nil {
		return "unknown operation error"
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	switch {
	case e.Category != "" && e.Step != "":
		return fmt.Sprintf("[%s] %s/%s: %s", e.Type, e.Category, e.Step, msg)
	case e.Category != "":
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Category, msg)
	case e.Step != "":
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Step, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(step, message string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeValidation,
		Step:    step,
		Message: message,
	}
}

// NewExecutionError creates a new execution error
func NewExecutionError(step string, cause error, retryable bool) *OperationError {
	return &OperationError{
		Type:      ErrorTypeExecution,
		Step:      step,
		Message:   "step execution failed",
		Cause:     cause,
		Retryable: retryable,
	}
}

// NewCancellationError creates a new cancellation error
func NewCancellationError(step string) *OperationError {
	return &OperationError{
		Type:    ErrorTypeCancellation,
		Step:    step,
		Message: "operation was cancelled",
		Cause:   context.Canceled,
	}
}

// ClassifyError turns a step failure into an OperationError. Save failures
// are retryable since the usual cause is the workbook being open elsewhere.
func ClassifyError(category, step string, err error) *OperationError {
	if err == nil {
		return nil
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		if opErr.Category == "" {
			opErr.Category = category
		}
		return opErr
	}

	e := &OperationError{Category: category, Step: step, Cause: err}
	switch {
	case errors.Is(err, apperrors.ErrPersistence):
		e.Type = ErrorTypePersistence
		e.Message = "saving sheet failed"
		e.Retryable = true
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		e.Type = ErrorTypeCancellation
		e.Message = "operation was cancelled"
	case errors.Is(err, apperrors.ErrSourceMissing), errors.Is(err, apperrors.ErrUnknownCategory):
		e.Type = ErrorTypeNotFound
		e.Message = "input not found"
	default:
		e.Type = ErrorTypeExecution
		e.Message = "step execution failed"
	}
	return e
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	return false
}

// GetErrorType returns the type of the error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Type
	}
	return ErrorTypeExecution
}

// ErrorList collects the failures of a run
type ErrorList struct {
	Errors []*OperationError `json:"errors"`
}

// Error implements the error interface
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("multiple errors: %d errors occurred", len(e.Errors))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *ErrorList) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err
	}
	return out
}

// Add adds an error to the list
func (e *ErrorList) Add(err *OperationError) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// Merge appends the errors of another list
func (e *ErrorList) Merge(other *ErrorList) {
	if other != nil {
		e.Errors = append(e.Errors, other.Errors...)
	}
}

// HasErrors returns true if there are any errors
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// GetByStep returns errors for a specific Step
func (e *ErrorList) GetByStep(step string) []*OperationError {
	var out []*OperationError
	for _, err := range e.Errors {
		if err.Step == step {
			out = append(out, err)
		}
	}
	return out
}

// Err returns the list as an error, or nil when empty.
func (e *ErrorList) Err() error {
	if e == nil || !e.HasErrors() {
		return nil
	}
	return e
}
