// Package render prints tables as aligned text for terminals.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/JonMunkholm/unidata/internal/table"
)

// DefaultMaxWidth is the widest a cell is printed before truncation.
const DefaultMaxWidth = 40

// Options controls table printing.
type Options struct {
	Color    bool // Bold header and dim row index
	MaxWidth int  // Truncate cells wider than this many display cells (0 = DefaultMaxWidth)
}

// Table writes t to w with a leading row-index column. Numeric columns are
// right-aligned, text columns left-aligned.
func Table(w io.Writer, t *table.Table, opts Options) error {
	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	header := color.New(color.Bold)
	index := color.New(color.Faint)
	if opts.Color {
		header.EnableColor()
		index.EnableColor()
	} else {
		header.DisableColor()
		index.DisableColor()
	}

	rows := t.NumRows()
	ncols := t.NumColumns()

	cells := make([][]string, ncols)
	widths := make([]int, ncols)
	for i := 0; i < ncols; i++ {
		c := t.ColumnAt(i)
		cells[i] = make([]string, rows)
		widths[i] = runewidth.StringWidth(truncate(c.Name(), maxWidth))
		for r := 0; r < rows; r++ {
			s := truncate(c.String(r), maxWidth)
			cells[i][r] = s
			if sw := runewidth.StringWidth(s); sw > widths[i] {
				widths[i] = sw
			}
		}
	}

	indexWidth := len(strconv.Itoa(rows - 1))
	if rows == 0 {
		indexWidth = 0
	}

	bw := bufio.NewWriter(w)

	var line strings.Builder
	line.WriteString(strings.Repeat(" ", indexWidth))
	for i := 0; i < ncols; i++ {
		line.WriteString("  ")
		name := truncate(t.ColumnAt(i).Name(), maxWidth)
		line.WriteString(header.Sprint(pad(name, widths[i], rightAligned(t.ColumnAt(i)))))
	}
	fmt.Fprintln(bw, strings.TrimRight(line.String(), " "))

	for r := 0; r < rows; r++ {
		line.Reset()
		line.WriteString(index.Sprint(runewidth.FillLeft(strconv.Itoa(r), indexWidth)))
		for i := 0; i < ncols; i++ {
			line.WriteString("  ")
			line.WriteString(pad(cells[i][r], widths[i], rightAligned(t.ColumnAt(i))))
		}
		fmt.Fprintln(bw, strings.TrimRight(line.String(), " "))
	}

	fmt.Fprintf(bw, "\n[%d rows x %d columns]\n", rows, ncols)
	return bw.Flush()
}

// Columns writes one column name per line with its kind.
func Columns(w io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(w)
	width := 0
	for _, name := range t.Names() {
		if sw := runewidth.StringWidth(name); sw > width {
			width = sw
		}
	}
	for i := 0; i < t.NumColumns(); i++ {
		c := t.ColumnAt(i)
		fmt.Fprintf(bw, "%s  %s\n", runewidth.FillRight(c.Name(), width), c.Kind())
	}
	return bw.Flush()
}

func rightAligned(c *table.Column) bool {
	return c.Kind() != table.KindText
}

func pad(s string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

func truncate(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
