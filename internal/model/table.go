// Package model defines the employee data model, the feature contract, and
// the tabular representation shared by the pipeline, the stores, and the API.
package model

import (
	"strconv"

	"github.com/rotisserie/eris"
)

// CellKind discriminates the three states a table cell can be in.
type CellKind int

const (
	KindNull CellKind = iota
	KindString
	KindNumber
)

// Cell is one nullable table cell: a string, a number, or null.
// Raw HR extracts mix the three freely, so the distinction is kept
// explicit instead of being flattened into empty strings or NaN.
type Cell struct {
	kind CellKind
	str  string
	num  float64
}

// Null is the missing-value cell.
var Null = Cell{}

// String builds a string cell.
func String(s string) Cell { return Cell{kind: KindString, str: s} }

// Number builds a numeric cell.
func Number(f float64) Cell { return Cell{kind: KindNumber, num: f} }

func (c Cell) Kind() CellKind { return c.kind }
func (c Cell) IsNull() bool   { return c.kind == KindNull }
func (c Cell) IsString() bool { return c.kind == KindString }
func (c Cell) IsNumber() bool { return c.kind == KindNumber }

// Str returns the string payload; empty for non-string cells.
func (c Cell) Str() string { return c.str }

// Num returns the numeric payload; 0 for non-numeric cells.
func (c Cell) Num() float64 { return c.num }

// Render formats the cell for logs and exports.
func (c Cell) Render() string {
	switch c.kind {
	case KindString:
		return c.str
	case KindNumber:
		return strconv.FormatFloat(c.num, 'g', -1, 64)
	default:
		return ""
	}
}

// Table is a small column-oriented record set: named columns over rows of
// cells. It is the unit the cleaning and transform stages operate on.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Cell
}

// NewTable creates an empty table with the given column names.
func NewTable(cols []string) *Table {
	t := &Table{
		cols:  append([]string(nil), cols...),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range t.cols {
		t.index[c] = i
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string { return append([]string(nil), t.cols...) }

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// AppendRow adds a row; the cell count must match the column count.
func (t *Table) AppendRow(cells []Cell) error {
	if len(cells) != len(t.cols) {
		return eris.Errorf("table: row has %d cells, want %d", len(cells), len(t.cols))
	}
	t.rows = append(t.rows, append([]Cell(nil), cells...))
	return nil
}

// At returns the cell at (row, column). Unknown columns read as Null.
func (t *Table) At(row int, col string) Cell {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return Null
	}
	return t.rows[row][i]
}

// Set overwrites the cell at (row, column). Unknown columns are ignored.
func (t *Table) Set(row int, col string, c Cell) {
	i, ok := t.index[col]
	if !ok || row < 0 || row >= len(t.rows) {
		return
	}
	t.rows[row][i] = c
}

// Column returns all cells of the named column, or nil if it is absent.
func (t *Table) Column(name string) []Cell {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	out := make([]Cell, len(t.rows))
	for r := range t.rows {
		out[r] = t.rows[r][i]
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	out := NewTable(t.cols)
	out.rows = make([][]Cell, len(t.rows))
	for r := range t.rows {
		out.rows[r] = append([]Cell(nil), t.rows[r]...)
	}
	return out
}

// DropColumns returns a copy without the named columns. Names that do not
// exist are ignored.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var kept []string
	var keptIdx []int
	for i, c := range t.cols {
		if !drop[c] {
			kept = append(kept, c)
			keptIdx = append(keptIdx, i)
		}
	}
	out := NewTable(kept)
	out.rows = make([][]Cell, len(t.rows))
	for r := range t.rows {
		row := make([]Cell, len(keptIdx))
		for j, i := range keptIdx {
			row[j] = t.rows[r][i]
		}
		out.rows[r] = row
	}
	return out
}

// AddColumn returns a copy with an extra all-null column appended. Adding an
// existing column name returns the table unchanged.
func (t *Table) AddColumn(name string) *Table {
	if t.HasColumn(name) {
		return t.Clone()
	}
	out := NewTable(append(t.Columns(), name))
	out.rows = make([][]Cell, len(t.rows))
	for r := range t.rows {
		out.rows[r] = append(append([]Cell(nil), t.rows[r]...), Null)
	}
	return out
}

// Subset returns a copy containing only the given row indices, in order.
func (t *Table) Subset(rows []int) *Table {
	out := NewTable(t.cols)
	out.rows = make([][]Cell, 0, len(rows))
	for _, r := range rows {
		if r >= 0 && r < len(t.rows) {
			out.rows = append(out.rows, append([]Cell(nil), t.rows[r]...))
		}
	}
	return out
}

// Dedupe returns a copy with exact-duplicate rows removed, keeping the first
// occurrence. Equality is full-row: same kinds, same payloads.
func (t *Table) Dedupe() *Table {
	out := NewTable(t.cols)
	seen := make(map[string]bool, len(t.rows))
	for _, row := range t.rows {
		key := rowKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.rows = append(out.rows, append([]Cell(nil), row...))
	}
	return out
}

// Append concatenates the rows of other onto a copy of t. Column sets must
// match exactly.
func (t *Table) Append(other *Table) (*Table, error) {
	if len(t.cols) != len(other.cols) {
		return nil, eris.Errorf("table: append column count mismatch: %d vs %d", len(t.cols), len(other.cols))
	}
	for i := range t.cols {
		if t.cols[i] != other.cols[i] {
			return nil, eris.Errorf("table: append column mismatch at %d: %q vs %q", i, t.cols[i], other.cols[i])
		}
	}
	out := t.Clone()
	for _, row := range other.rows {
		out.rows = append(out.rows, append([]Cell(nil), row...))
	}
	return out, nil
}

func rowKey(row []Cell) string {
	var b []byte
	for _, c := range row {
		b = append(b, byte('0'+int(c.kind)))
		b = append(b, c.Render()...)
		b = append(b, 0x1f)
	}
	return string(b)
}
