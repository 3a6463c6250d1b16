// Package csvio loads delimited files into tables and writes tables back out.
//
// Every column is loaded as text, exactly as it appears in the file; turning
// columns into numbers is the job of the formatting functions. Input is
// streamed through BOM removal and UTF-8 sanitizing before decoding.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/unidata/internal/table"
)

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = errors.New("empty file")

// ErrInvalidCSV wraps decoding and header problems.
var ErrInvalidCSV = errors.New("invalid csv")

// Options controls how input is decoded.
type Options struct {
	Comma    rune  // Field delimiter (default ',')
	MaxBytes int64 // Reject input larger than this (0 = no limit)
}

// Read decodes a CSV with a header row into a table of text columns.
func Read(r io.Reader, opts Options) (*table.Table, error) {
	cr := csv.NewReader(wrap(r, opts.MaxBytes))
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, decodeErr(err)
	}

	names, err := headerNames(header)
	if err != nil {
		return nil, err
	}

	values := make([][]string, len(names))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, decodeErr(err)
		}
		for i, v := range record {
			values[i] = append(values[i], v)
		}
	}

	cols := make([]*table.Column, len(names))
	for i, name := range names {
		if values[i] == nil {
			values[i] = []string{}
		}
		cols[i] = table.NewText(name, values[i])
	}

	t, err := table.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}
	return t, nil
}

// ReadFile opens path and decodes it with Read. Files ending in ".lz4" are
// decompressed first; MaxBytes then applies to the decompressed size.
func ReadFile(path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".lz4") {
		r = lz4.NewReader(f)
	}

	t, err := Read(r, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// Write encodes t as CSV with a header row. Missing float values are
// written as empty cells.
func Write(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Names()); err != nil {
		return err
	}

	record := make([]string, t.NumColumns())
	for row := 0; row < t.NumRows(); row++ {
		for i := range record {
			record[i] = t.ColumnAt(i).String(row)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func headerNames(header []string) ([]string, error) {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := CleanCell(h)
		if name == "" {
			return nil, fmt.Errorf("%w: header column %d is empty", ErrInvalidCSV, i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate header %q", ErrInvalidCSV, name)
		}
		seen[name] = true
		names[i] = name
	}
	return names, nil
}

func decodeErr(err error) error {
	if errors.Is(err, ErrFileTooLarge) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidCSV, err)
}

// CleanCell removes common spreadsheet export artifacts from a header cell:
// surrounding whitespace, the Excel formula prefix (="...") and surrounding
// quotes. The result is NFC-normalized so accented names compare equal
// regardless of how the exporting program composed them.
func CleanCell(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
