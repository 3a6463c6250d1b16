package unidata

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrTypeMismatch    = errors.New("column type mismatch")
	ErrParse           = errors.New("invalid number")
	ErrNegativeValue   = errors.New("negative value")
)

// ColumnError describes a failure on a specific column, and optionally a
// specific row within it.
type ColumnError struct {
	Op     string // Operation that failed, e.g. "ToFloat"
	Column string // Offending column name (empty if the argument itself was bad)
	Row    int    // Zero-based row index, or -1 if not row-specific
	Value  string // Offending value, if any
	Err    error  // One of the Err* categories, possibly wrapped
}

func (e *ColumnError) Error() string {
	switch {
	case e.Column == "":
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Row >= 0:
		return fmt.Sprintf("%s: column %q row %d: %v: %q", e.Op, e.Column, e.Row, e.Err, e.Value)
	default:
		return fmt.Sprintf("%s: column %q: %v", e.Op, e.Column, e.Err)
	}
}

func (e *ColumnError) Unwrap() error { return e.Err }

func columnErr(op, column string, err error) *ColumnError {
	return &ColumnError{Op: op, Column: column, Row: -1, Err: err}
}

func rowErr(op, column string, row int, value string, err error) *ColumnError {
	return &ColumnError{Op: op, Column: column, Row: row, Value: value, Err: err}
}

// OffendingColumn returns the column named by err, if err is (or wraps) a
// *ColumnError.
func OffendingColumn(err error) (string, bool) {
	var ce *ColumnError
	if errors.As(err, &ce) && ce.Column != "" {
		return ce.Column, true
	}
	return "", false
}
