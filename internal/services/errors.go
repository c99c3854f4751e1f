package services

import "errors"

// Score service errors
var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrInvalidRange   = errors.New("invalid date range")
)
