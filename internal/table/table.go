// Package table holds in-memory tabular datasets as loaded from CSV or XLSX
// sources: an ordered set of named columns over an ordered set of rows.
package table

import (
	"strconv"
	"strings"
)

// Cell is one raw value from a source table. Spreadsheet loaders preserve
// native numeric cells so that currency columns skip string cleaning.
type Cell struct {
	Raw      string
	Number   float64
	IsNumber bool
}

// NumericCell builds a Cell carrying a native numeric value.
func NumericCell(v float64) Cell {
	return Cell{
		Raw:      strconv.FormatFloat(v, 'f', -1, 64),
		Number:   v,
		IsNumber: true,
	}
}

// StringCell builds a Cell from a raw string.
func StringCell(s string) Cell {
	return Cell{Raw: s}
}

// String returns the textual form of the cell.
func (c Cell) String() string {
	return c.Raw
}

// Empty reports whether the cell holds no value at all.
func (c Cell) Empty() bool {
	return !c.IsNumber && strings.TrimSpace(c.Raw) == ""
}

// Table is one loaded dataset. Rows are immutable after ingestion; a row's
// identity is its position.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// New creates an empty table with the given source name and column headers.
func New(name string, columns []string) *Table {
	return &Table{Name: name, Columns: columns}
}

// AppendRow adds a data row, padding or truncating it to the column count so
// every row has the same width as the header.
func (t *Table) AppendRow(cells []Cell) {
	if len(cells) > len(t.Columns) {
		cells = cells[:len(t.Columns)]
	}
	for len(cells) < len(t.Columns) {
		cells = append(cells, Cell{})
	}
	t.Rows = append(t.Rows, cells)
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the cell at (row, col), or a zero Cell when out of range.
func (t *Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return Cell{}
	}
	return t.Rows[row][col]
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
