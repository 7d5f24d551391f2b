package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange     = errors.New("start_date must be before end_date")
	ErrInvalidPeriod    = errors.New("invalid aggregation interval")
	ErrInvalidMonths    = errors.New("months must be between 1 and 24")
	ErrOverlapConflict  = errors.New("budget overlaps an existing budget")
	ErrNotFound         = errors.New("not found")
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrNoFieldsToUpdate = errors.New("no fields to update")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrValidation       = errors.New("validation failed")
)

// ValidationError reports a rejected input field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// OverlapError names the existing budget a candidate collides with.
type OverlapError struct {
	Existing Budget
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("budget for category %s already exists in overlapping period (%s, %s to %s)",
		e.Existing.Category, e.Existing.ID,
		e.Existing.StartDate.Format("2006-01-02"), e.Existing.EndDate.Format("2006-01-02"))
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlapConflict
}

// NotFoundError wraps ErrNotFound with the missing resource.
func NotFoundError(resource, id string) error {
	return fmt.Errorf("%s %q: %w", resource, id, ErrNotFound)
}
