package unidata

import (
	"fmt"

	"github.com/JonMunkholm/unidata/internal/table"
)

// Columns converts loosely typed column references (decoded JSON, config
// values) into column names. It fails with ErrInvalidArgument on the first
// argument that is not a non-empty string.
func Columns(args ...any) ([]string, error) {
	names := make([]string, 0, len(args))
	for i, arg := range args {
		s, ok := arg.(string)
		if !ok {
			return nil, &ColumnError{
				Op:    "Columns",
				Row:   -1,
				Value: fmt.Sprint(arg),
				Err:   fmt.Errorf("%w: argument %d is %T, want string", ErrInvalidArgument, i, arg),
			}
		}
		if s == "" {
			return nil, columnErr("Columns", "", fmt.Errorf("%w: argument %d is an empty column name", ErrInvalidArgument, i))
		}
		names = append(names, s)
	}
	return names, nil
}

// ListColumnNames returns every column name of t in declaration order.
func ListColumnNames(t *table.Table) []string {
	if t == nil {
		return nil
	}
	return t.Names()
}

// resolve looks up every named column before any mutation happens. When
// kinds is non-empty each column must have one of them.
func resolve(op string, t *table.Table, columns []string, kinds ...table.Kind) ([]*table.Column, error) {
	if t == nil {
		return nil, columnErr(op, "", fmt.Errorf("%w: nil table", ErrInvalidArgument))
	}

	cols := make([]*table.Column, len(columns))
	for i, name := range columns {
		if name == "" {
			return nil, columnErr(op, "", fmt.Errorf("%w: empty column name", ErrInvalidArgument))
		}
		c, ok := t.Column(name)
		if !ok {
			return nil, columnErr(op, name, fmt.Errorf("%w: %w", ErrInvalidArgument, table.ErrColumnNotFound))
		}
		cols[i] = c
	}

	if len(kinds) == 0 {
		return cols, nil
	}
	for _, c := range cols {
		if !kindIn(c.Kind(), kinds) {
			return nil, columnErr(op, c.Name(), fmt.Errorf("%w: is %s, want %s", ErrTypeMismatch, c.Kind(), kindList(kinds)))
		}
	}
	return cols, nil
}

func kindIn(k table.Kind, kinds []table.Kind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func kindList(kinds []table.Kind) string {
	s := ""
	for i, k := range kinds {
		if i > 0 {
			s += " or "
		}
		s += k.String()
	}
	return s
}
