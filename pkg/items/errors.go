package items

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error types
var (
	// ErrItemNotFound indicates an item was not found
	ErrItemNotFound = errors.New("item not found")

	// ErrRevisionNotFound indicates a revision was not found
	ErrRevisionNotFound = errors.New("revision not found")

	// ErrCategoryNotFound indicates a category was not found
	ErrCategoryNotFound = errors.New("category not found")

	// ErrMirrorLocked indicates a direct write against a locked mirror row
	ErrMirrorLocked = errors.New("mirror item is locked")

	// ErrRevisionImmutable indicates a write against a revision row
	ErrRevisionImmutable = errors.New("revision is immutable")

	// ErrNotCanonical indicates an operation that requires a canonical row
	ErrNotCanonical = errors.New("item is not canonical")

	// ErrValidation is matched by every *ValidationError
	ErrValidation = errors.New("validation failed")

	// ErrInvalidStatus indicates an unknown item status
	ErrInvalidStatus = errors.New("invalid item status")
)

// ItemError represents an error related to item operations
type ItemError struct {
	ItemID int64
	Op     string
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item operation %s failed for item %d: %v", e.Op, e.ItemID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ValidationError carries field level messages for a rejected payload.
type ValidationError struct {
	Fields map[string][]string `json:"fields"`
}

// NewValidationError creates an empty validation error.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add records a message for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
