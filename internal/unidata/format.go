package unidata

// format.go implements the column operations used to clean currency-formatted
// survey answers into rounded numbers:
//
//	StripCharacter -> ToFloat -> RoundColumn
//
// Every operation validates all of its column arguments before touching the
// table, so an invalid argument never leaves a table half-modified.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/unidata/internal/table"
)

const (
	// DefaultCurrency is the symbol FormatCurrencyColumns strips when none is given.
	DefaultCurrency = "$"

	// DefaultPrecision is the number of decimal places currency columns keep.
	DefaultPrecision = 2

	// MaxPrecision is the largest accepted rounding precision, the decimal
	// exponent range of a float64.
	MaxPrecision = 308
)

// numericRegex validates that a string is a plain decimal number after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// StripCharacter removes every occurrence of character from the named text
// columns, in place.
func StripCharacter(t *table.Table, character string, columns ...string) error {
	const op = "StripCharacter"

	if character == "" {
		return columnErr(op, "", fmt.Errorf("%w: empty character", ErrInvalidArgument))
	}
	cols, err := resolve(op, t, columns, table.KindText)
	if err != nil {
		return err
	}

	for _, c := range cols {
		values := c.Texts()
		for i, v := range values {
			values[i] = strings.ReplaceAll(v, character, "")
		}
	}
	return nil
}

// ToFloat replaces each named column with a float column holding its parsed
// values. Text is trimmed before parsing and blank cells become NaN. Int
// columns are widened; float columns are left as they are.
//
// All columns are parsed before any is replaced, so a ParseError leaves the
// table unchanged.
func ToFloat(t *table.Table, columns ...string) error {
	const op = "ToFloat"

	cols, err := resolve(op, t, columns)
	if err != nil {
		return err
	}

	converted := make([]*table.Column, len(cols))
	for i, c := range cols {
		switch c.Kind() {
		case table.KindFloat:
			continue
		case table.KindInt:
			ints := c.Ints()
			floats := make([]float64, len(ints))
			for r, v := range ints {
				floats[r] = float64(v)
			}
			converted[i] = table.NewFloat(c.Name(), floats)
		default:
			floats, err := parseFloats(op, c)
			if err != nil {
				return err
			}
			converted[i] = table.NewFloat(c.Name(), floats)
		}
	}

	for i, c := range converted {
		if c == nil {
			continue
		}
		if err := t.Replace(cols[i].Name(), c); err != nil {
			return columnErr(op, cols[i].Name(), err)
		}
	}
	return nil
}

func parseFloats(op string, c *table.Column) ([]float64, error) {
	texts := c.Texts()
	floats := make([]float64, len(texts))
	for r, raw := range texts {
		s := strings.TrimSpace(raw)
		if s == "" {
			floats[r] = math.NaN()
			continue
		}
		if !numericRegex.MatchString(s) {
			return nil, rowErr(op, c.Name(), r, raw, ErrParse)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, rowErr(op, c.Name(), r, raw, fmt.Errorf("%w: %w", ErrParse, err))
		}
		floats[r] = f
	}
	return floats, nil
}

// RoundColumn rounds every value of the named float columns to precision
// decimal places, rounding half away from zero (see RoundHalfAwayFromZero).
func RoundColumn(t *table.Table, precision int, columns ...string) error {
	const op = "RoundColumn"

	if err := checkPrecision(precision); err != nil {
		return columnErr(op, "", err)
	}
	cols, err := resolve(op, t, columns, table.KindFloat)
	if err != nil {
		return err
	}

	for _, c := range cols {
		values := c.Floats()
		for i, v := range values {
			rounded, err := RoundHalfAwayFromZero(v, precision)
			if err != nil {
				return rowErr(op, c.Name(), i, strconv.FormatFloat(v, 'g', -1, 64), err)
			}
			values[i] = rounded
		}
	}
	return nil
}

// checkPrecision rejects precisions outside [0, MaxPrecision].
func checkPrecision(precision int) error {
	if precision < 0 || precision > MaxPrecision {
		return fmt.Errorf("%w: precision %d out of range [0, %d]", ErrInvalidArgument, precision, MaxPrecision)
	}
	return nil
}

// FormatCurrencyColumns converts text columns holding currency-formatted
// numbers ("$12.345") into float columns rounded to DefaultPrecision places.
// An empty character means DefaultCurrency.
//
// Columns are processed one at a time. Processing stops at the first failure;
// columns already converted stay converted.
func FormatCurrencyColumns(t *table.Table, character string, columns ...string) error {
	return FormatCurrencyColumnsPrecision(t, character, DefaultPrecision, columns...)
}

// FormatCurrencyColumnsPrecision is FormatCurrencyColumns with an explicit
// rounding precision.
func FormatCurrencyColumnsPrecision(t *table.Table, character string, precision int, columns ...string) error {
	const op = "FormatCurrencyColumns"

	if character == "" {
		character = DefaultCurrency
	}
	if err := checkPrecision(precision); err != nil {
		return columnErr(op, "", err)
	}
	if _, err := resolve(op, t, columns); err != nil {
		return err
	}

	for _, name := range columns {
		if err := StripCharacter(t, character, name); err != nil {
			return err
		}
		if err := ToFloat(t, name); err != nil {
			return err
		}
		if err := RoundColumn(t, precision, name); err != nil {
			return err
		}
	}
	return nil
}

// VerifyNonNegative checks that no value in the named float or int columns is
// below zero. Missing values (NaN) are ignored. It never modifies the table.
func VerifyNonNegative(t *table.Table, columns ...string) error {
	const op = "VerifyNonNegative"

	cols, err := resolve(op, t, columns, table.KindFloat, table.KindInt)
	if err != nil {
		return err
	}

	for _, c := range cols {
		switch c.Kind() {
		case table.KindFloat:
			for i, v := range c.Floats() {
				if v < 0 {
					return rowErr(op, c.Name(), i, strconv.FormatFloat(v, 'f', -1, 64), ErrNegativeValue)
				}
			}
		case table.KindInt:
			for i, v := range c.Ints() {
				if v < 0 {
					return rowErr(op, c.Name(), i, strconv.FormatInt(v, 10), ErrNegativeValue)
				}
			}
		}
	}
	return nil
}
