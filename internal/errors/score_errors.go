package errors

import (
	"errors"

	"scorecli/pkg/contracts/domain"
)

// Score pipeline errors. Callers wrap these with fmt.Errorf("...: %w") and
// check them with errors.Is.
var (
	// ErrInsufficientHistory means the raw axis is shorter than the metric's
	// minimum window. The metric is skipped for that file.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrSourceMissing means the raw sheet a metric reads from is absent.
	ErrSourceMissing = errors.New("source missing")

	// ErrPersistence means a score sheet could not be saved.
	ErrPersistence = errors.New("persistence failure")

	// ErrSheetCorrupt means a persisted score sheet cannot be read back safely,
	// for example because its date headers are out of order.
	ErrSheetCorrupt = errors.New("sheet corrupt")

	// ErrColumnOrder is a programming error: a column was appended out of order.
	ErrColumnOrder = errors.New("column out of order")

	// ErrSheetNotFound is returned by readers when a score sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrUnknownCategory is returned for a category missing from the file map.
	ErrUnknownCategory = errors.New("unknown category")

	ErrMalformedDate  = domain.ErrMalformedDate
	ErrMalformedValue = domain.ErrMalformedValue
)

// IsSkip reports whether err means "skip this metric and keep going" rather
// than a failure the run should surface.
func IsSkip(err error) bool {
	return errors.Is(err, ErrInsufficientHistory) || errors.Is(err, ErrSourceMissing)
}
