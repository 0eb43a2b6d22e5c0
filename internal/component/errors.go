package component

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape is the root of every structural input error. Callers match
	// it with errors.Is to tell malformed components apart from I/O failures.
	ErrInputShape = errors.New("component: input shape error")

	ErrWidthMismatch   = fmt.Errorf("%w: feature width mismatch", ErrInputShape)
	ErrNonNumeric      = fmt.Errorf("%w: non-numeric feature value", ErrInputShape)
	ErrEmptyIdentifier = fmt.Errorf("%w: empty identifier", ErrInputShape)
	ErrDuplicateColumn = fmt.Errorf("%w: duplicate feature name", ErrInputShape)
	ErrInvalidIndex    = fmt.Errorf("%w: component index must be >= 1", ErrInputShape)
	ErrRaggedRow       = fmt.Errorf("%w: row has wrong number of fields", ErrInputShape)
	ErrNoHeader        = fmt.Errorf("%w: missing header row", ErrInputShape)
	ErrMissingColumn   = fmt.Errorf("%w: declared column not found", ErrInputShape)
	ErrNilTable        = fmt.Errorf("%w: nil component table", ErrInputShape)
)

// ShapeError locates a structural problem inside one component.
type ShapeError struct {
	Component int    // 1-based component index
	Record    int    // 0-based record position, -1 when not record specific
	Column    string // feature or header column, if any
	Value     string // offending raw value, if any
	Expected  int
	Actual    int
	Err       error
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("component %d", e.Component)
	if e.Record >= 0 {
		msg += fmt.Sprintf(" record %d", e.Record)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	msg += ": " + e.Err.Error()
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Expected != e.Actual {
		msg += fmt.Sprintf(" (expected %d, got %d)", e.Expected, e.Actual)
	}
	return msg
}

func (e *ShapeError) Unwrap() error { return e.Err }
