package cli

// This file contains the column-aligned table writer shared by the rank, cmp
// and diff commands. text/tabwriter counts ANSI escape sequences as printable
// characters, which misaligns every colored cell, so alignment is computed
// here from the visible width instead.

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

var ansiEscapes = regexp.MustCompile("\x1b\\[[0-9;]*m")

// table accumulates rows of cells and renders them with every column padded
// to its widest visible cell. Cells may contain ANSI color sequences.
type table struct {
	rows [][]string
}

// addRow appends one row of cells.
func (t *table) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// addDivider appends a row separating the header from the data. Each cell is
// a run of '-' as wide as the corresponding header label.
func (t *table) addDivider(labels ...string) {
	cells := make([]string, 0, len(labels))
	for _, label := range labels {
		cells = append(cells, strings.Repeat("-", visibleWidth(label)))
	}
	t.rows = append(t.rows, cells)
}

// write renders the table. Columns are separated by two spaces and the last
// cell of a row is never padded.
func (t *table) write(w io.Writer) error {
	var widths []int
	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if width := visibleWidth(cell); width > widths[i] {
				widths[i] = width
			}
		}
	}
	var line strings.Builder
	for _, row := range t.rows {
		line.Reset()
		for i, cell := range row {
			if i > 0 {
				line.WriteString("  ")
			}
			line.WriteString(cell)
			if i < len(row)-1 {
				line.WriteString(strings.Repeat(" ", widths[i]-visibleWidth(cell)))
			}
		}
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return fmt.Errorf("failed to write table row: %w", err)
		}
	}
	return nil
}

// visibleWidth returns the number of characters the terminal renders for s,
// i.e. its length with ANSI escape sequences stripped.
func visibleWidth(s string) int {
	return len([]rune(ansiEscapes.ReplaceAllString(s, "")))
}
