package table

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the declared element type of a column.
type Kind int

const (
	KindText Kind = iota
	KindFloat
	KindInt
)

// String returns a human-readable name for a kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is a named sequence of values of a single kind.
// Only the slice matching Kind is populated.
type Column struct {
	name   string
	kind   Kind
	texts  []string
	floats []float64
	ints   []int64
}

// NewText creates a text column. The values slice is owned by the column.
func NewText(name string, values []string) *Column {
	return &Column{name: name, kind: KindText, texts: values}
}

// NewFloat creates a floating-point column.
func NewFloat(name string, values []float64) *Column {
	return &Column{name: name, kind: KindFloat, floats: values}
}

// NewInt creates an integer column.
func NewInt(name string, values []int64) *Column {
	return &Column{name: name, kind: KindInt, ints: values}
}

func (c *Column) Name() string { return c.name }
func (c *Column) Kind() Kind   { return c.kind }

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.kind {
	case KindFloat:
		return len(c.floats)
	case KindInt:
		return len(c.ints)
	default:
		return len(c.texts)
	}
}

// Texts returns the backing values of a text column, or nil for other kinds.
// Writes to the returned slice mutate the column.
func (c *Column) Texts() []string {
	if c.kind != KindText {
		return nil
	}
	return c.texts
}

// Floats returns the backing values of a float column, or nil for other kinds.
func (c *Column) Floats() []float64 {
	if c.kind != KindFloat {
		return nil
	}
	return c.floats
}

// Ints returns the backing values of an int column, or nil for other kinds.
func (c *Column) Ints() []int64 {
	if c.kind != KindInt {
		return nil
	}
	return c.ints
}

// Value returns the value at row as a string, float64 or int64.
func (c *Column) Value(row int) any {
	switch c.kind {
	case KindFloat:
		return c.floats[row]
	case KindInt:
		return c.ints[row]
	default:
		return c.texts[row]
	}
}

// String formats the value at row for display.
// Missing float values (NaN) render as an empty string.
func (c *Column) String(row int) string {
	switch c.kind {
	case KindFloat:
		v := c.floats[row]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(c.ints[row], 10)
	default:
		return c.texts[row]
	}
}
