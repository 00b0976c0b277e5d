package models

import (
	"path/filepath"
	"strings"
)

// Cell is one value of a table. Null marks an absent value (empty CSV field, SQL NULL).
type Cell struct {
	Raw  string
	Null bool
}

// Value builds a present cell.
func Value(raw string) Cell {
	return Cell{Raw: raw}
}

// NullCell builds an absent cell.
func NullCell() Cell {
	return Cell{Null: true}
}

// TableRef identifies a discoverable table.
type TableRef struct {
	// Name is the logical table identifier, always lower case.
	Name string `json:"name"`
	// Source is where the table came from: a file name or schema.table.
	Source string `json:"source"`
	// Location is the adapter-specific address (absolute path, qualified name).
	Location string `json:"location"`
}

// TableNameFromFile maps a file name to its table identifier: the lowercased stem.
func TableNameFromFile(filename string) string {
	base := filepath.Base(filename)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

// Table is a fully loaded tabular dataset. Rows are in source order and every row
// has exactly len(Columns) cells.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// ColumnIndex returns the position of column, or -1 when absent.
func (t *Table) ColumnIndex(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// ColumnValues returns the cells of one column in row order.
func (t *Table) ColumnValues(index int) []Cell {
	values := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[index]
	}
	return values
}
