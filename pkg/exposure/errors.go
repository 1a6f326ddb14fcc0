package exposure

import (
	"fmt"
	"image"
)

// ShapeMismatchError is returned when the frames of one fusion cycle
// don't share a grid shape. It is never recovered; the caller needs to
// supply a consistent set of captures.
type ShapeMismatchError struct {
	Want image.Point
	Got  image.Point
	// Index of the offending frame within the cycle, -1 if unknown
	Index int
}

func (e *ShapeMismatchError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("shape mismatch: frame %d is %dx%d, want %dx%d", e.Index, e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
	}
	return fmt.Sprintf("shape mismatch: got %dx%d, want %dx%d", e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

// DegenerateInputError is returned when an exposure scale is zero or
// negative, or some stage would have to divide by a zero range and has
// no sound fallback.
type DegenerateInputError struct {
	What  string
	Value float64
}

func (e *DegenerateInputError) Error() string {
	return fmt.Sprintf("degenerate input: %s (%g)", e.What, e.Value)
}

// InvalidConfigurationError reports an out-of-range parameter. It is
// raised before any pixel is processed.
type InvalidConfigurationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

func InvalidConfig(field string, value interface{}, reason string) error {
	return &InvalidConfigurationError{Field: field, Value: value, Reason: reason}
}
