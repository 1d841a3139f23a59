package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound matches every *NotFoundError through errors.Is.
	ErrNotFound = errors.New("entity not found")
	// ErrValidation matches every *ValidationError through errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrNoResult is returned by First and One when nothing matched.
	ErrNoResult = errors.New("no result found")
	// ErrMultipleResults is returned by One when more than one entity matched.
	ErrMultipleResults = errors.New("multiple results found")
	// ErrPageOutOfRange is returned by Paginate when ErrorOut is set and the
	// requested page holds no items.
	ErrPageOutOfRange = errors.New("page out of range")
)

// NotFoundError reports that the entity identified by ID does not exist.
type NotFoundError struct {
	ID  any
	Err error
}

// NewNotFoundError builds a NotFoundError for id, keeping the backend cause.
func NewNotFoundError(id any, cause error) *NotFoundError {
	return &NotFoundError{ID: id, Err: cause}
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("entity %v not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ValidationError reports that the backend rejected a set of field values.
// Details maps field names to messages when the backend reports them per field.
type ValidationError struct {
	Details map[string]string
	Err     error
}

// NewValidationError builds a ValidationError around the backend cause.
func NewValidationError(details map[string]string, cause error) *ValidationError {
	return &ValidationError{Details: details, Err: cause}
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		if e.Err != nil {
			return ErrValidation.Error() + ": " + e.Err.Error()
		}
		return ErrValidation.Error()
	}

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Details[k]
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
