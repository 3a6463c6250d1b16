// Package table provides the in-memory, column-oriented table that the
// formatting functions operate on.
//
// A Table is an ordered collection of named, typed columns with a fixed row
// count. It is owned by the caller and is not safe for concurrent mutation.
package table

import (
	"errors"
	"fmt"
)

// ErrColumnNotFound is returned when a named column does not exist.
var ErrColumnNotFound = errors.New("column not found")

// ErrKindMismatch is returned by typed setters when the column has another kind.
var ErrKindMismatch = errors.New("column kind mismatch")

// Table is an ordered collection of named columns sharing one row count.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table from columns in declaration order.
// Column names must be non-empty and unique, and all columns must have
// the same number of rows.
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		columns: make([]*Column, 0, len(cols)),
		index:   make(map[string]int, len(cols)),
	}

	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if c.name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("duplicate column %q", c.name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.name, c.Len(), t.rows)
		}

		t.index[c.name] = len(t.columns)
		t.columns = append(t.columns, c)
	}

	return t, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

func (t *Table) NumRows() int    { return t.rows }
func (t *Table) NumColumns() int { return len(t.columns) }

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// ColumnAt returns the column at position i.
func (t *Table) ColumnAt(i int) *Column {
	return t.columns[i]
}

// Has reports whether the table contains a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Kind returns the element kind of the named column.
func (t *Table) Kind(name string) (Kind, bool) {
	c, ok := t.Column(name)
	if !ok {
		return 0, false
	}
	return c.kind, true
}

// Replace swaps the contents of the named column for col, keeping the
// column's position and name. The row count must not change.
func (t *Table) Replace(name string, col *Column) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if col.Len() != t.rows {
		return fmt.Errorf("replacement for %q has %d rows, want %d", name, col.Len(), t.rows)
	}

	col.name = name
	t.columns[i] = col
	return nil
}

// SetText sets a single value of a text column.
func (t *Table) SetText(name string, row int, v string) error {
	c, err := t.settable(name, row, KindText)
	if err != nil {
		return err
	}
	c.texts[row] = v
	return nil
}

// SetFloat sets a single value of a float column.
func (t *Table) SetFloat(name string, row int, v float64) error {
	c, err := t.settable(name, row, KindFloat)
	if err != nil {
		return err
	}
	c.floats[row] = v
	return nil
}

func (t *Table) settable(name string, row int, want Kind) (*Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	if c.kind != want {
		return nil, fmt.Errorf("%w: %q is %s, want %s", ErrKindMismatch, name, c.kind, want)
	}
	if row < 0 || row >= t.rows {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, t.rows)
	}
	return c, nil
}
