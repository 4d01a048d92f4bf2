package tracks

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFile is returned when an input file does not exist.
	ErrMissingFile = errors.New("missing file")
	// ErrMissingArgument is returned when a required command argument
	// (the overlay image path) was not supplied.
	ErrMissingArgument = errors.New("missing argument")
	// ErrMalformedRow is wrapped by every RowError.
	ErrMalformedRow = errors.New("malformed row")
	// ErrEmptyDataset is returned when neither input holds any position.
	ErrEmptyDataset = errors.New("empty dataset")
)

// RowError reports a required field that is absent or not numeric.
// Line is 1-based and counts the header; it is 1 for header problems.
type RowError struct {
	Path  string
	Line  int
	Field string
	Value string
	Err   error
}

func (e *RowError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s:%d: field %q missing", e.Path, e.Line, e.Field)
	}
	return fmt.Sprintf("%s:%d: field %q value %q: %v", e.Path, e.Line, e.Field, e.Value, e.Err)
}

// Unwrap exposes both the sentinel and the underlying parse error.
func (e *RowError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedRow}
	}
	return []error{ErrMalformedRow, e.Err}
}
