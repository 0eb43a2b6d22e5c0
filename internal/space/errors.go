package space

import (
	"errors"
	"fmt"

	"github.com/withObsrvr/rxnspace/internal/component"
)

var (
	// ErrInputShape matches structural problems in a component table.
	ErrInputShape = component.ErrInputShape

	// ErrDegenerateSize matches requests whose product size is undefined or
	// unrepresentable.
	ErrDegenerateSize = errors.New("space: degenerate size")

	// ErrIdentifierCollision matches identifiers that contain the join
	// separator and would make combined identifiers ambiguous.
	ErrIdentifierCollision = errors.New("space: identifier contains separator")

	// ErrNoComponents is returned when a build is requested over zero components.
	ErrNoComponents = fmt.Errorf("%w: 0 components supplied, at least 1 required", ErrDegenerateSize)

	// ErrTooLarge is returned when the entry count overflows int or exceeds
	// the configured maximum.
	ErrTooLarge = fmt.Errorf("%w: reaction space too large", ErrDegenerateSize)

	// ErrIndexOrder is returned when a table's Index is not its 1-based
	// position in the build request.
	ErrIndexOrder = fmt.Errorf("%w: component index does not match its position", ErrInputShape)
)

// IdentifierError reports a record identifier that contains the separator.
type IdentifierError struct {
	Component  int
	Record     int
	Identifier string
	Separator  string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("component %d record %d: identifier %q contains separator %q",
		e.Component, e.Record, e.Identifier, e.Separator)
}

func (e *IdentifierError) Unwrap() error { return ErrIdentifierCollision }
