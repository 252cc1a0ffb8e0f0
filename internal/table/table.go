package table

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrColumnCount   = errors.New("row width does not match column count")
	ErrUnknownColumn = errors.New("unknown column")
	ErrDuplicateName = errors.New("duplicate column name")
)

// Column describes one column of a Table.
type Column struct {
	Name      string
	Kind      Kind
	Essential bool
}

// Row holds one cell per column, in column order.
type Row []Value

// Table is an ordered collection of rows over a fixed set of typed columns.
// Every transformation returns a new Table that shares no row storage with
// its source; only SortByIdu mutates the receiver.
type Table struct {
	columns []Column
	index   map[string]int
	rows    []Row
}

// New creates an empty table. It panics on duplicate column names since
// column sets are always built from constants.
func New(columns ...Column) *Table {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c.Name]; ok {
			panic(fmt.Errorf("%w: %s", ErrDuplicateName, c.Name))
		}
		index[c.Name] = i
	}
	return &Table{
		columns: slices.Clone(columns),
		index:   index,
	}
}

// Append adds a row. The number of values must match the number of columns.
func (t *Table) Append(values ...Value) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrColumnCount, len(values), len(t.columns))
	}
	t.rows = append(t.rows, slices.Clone(Row(values)))
	return nil
}

// Columns returns a copy of the column definitions.
func (t *Table) Columns() []Column {
	return slices.Clone(t.columns)
}

// ColumnNames returns the column names in display order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column definition by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *Table) RowCount() int {
	return len(t.rows)
}

// Rows returns a deep copy of the rows.
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		rows[i] = slices.Clone(r)
	}
	return rows
}

// Value returns the cell at row i in the named column.
func (t *Table) Value(i int, name string) (Value, error) {
	c, ok := t.index[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	if i < 0 || i >= len(t.rows) {
		return Value{}, fmt.Errorf("row %d out of range [0,%d)", i, len(t.rows))
	}
	return t.rows[i][c], nil
}

// Sum adds the non-null values of a numeric column.
func (t *Table) Sum(name string) float64 {
	c, ok := t.index[name]
	if !ok {
		return 0
	}
	var total float64
	for _, r := range t.rows {
		if !r[c].IsNull() {
			total += r[c].Number()
		}
	}
	return total
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	clone := New(t.columns...)
	clone.rows = t.Rows()
	return clone
}

// Project returns a table with only the named columns, kept in the source
// display order. Names the table does not have are ignored.
func (t *Table) Project(names ...string) *Table {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var keep []int
	var columns []Column
	for i, c := range t.columns {
		if wanted[c.Name] {
			keep = append(keep, i)
			columns = append(columns, c)
		}
	}

	projected := New(columns...)
	projected.rows = make([]Row, len(t.rows))
	for r, row := range t.rows {
		out := make(Row, len(keep))
		for j, i := range keep {
			out[j] = row[i]
		}
		projected.rows[r] = out
	}
	return projected
}

// Essential projects the table onto its essential columns.
func (t *Table) Essential() *Table {
	var names []string
	for _, c := range t.columns {
		if c.Essential {
			names = append(names, c.Name)
		}
	}
	return t.Project(names...)
}

// SortByIdu stable-sorts the rows in place by idu, then suf, then siren.
// Missing columns and null cells compare as empty strings.
func (t *Table) SortByIdu() {
	keys := []int{-1, -1, -1}
	for k, name := range []string{ColIdu, ColSuf, ColSiren} {
		if i, ok := t.index[name]; ok {
			keys[k] = i
		}
	}

	slices.SortStableFunc(t.rows, func(a, b Row) int {
		for _, k := range keys {
			if k < 0 {
				continue
			}
			if c := cmp.Compare(a[k].Text(), b[k].Text()); c != 0 {
				return c
			}
		}
		return 0
	})
}

// NullsAsEmptyString returns a copy where null text cells hold "".
// Numeric columns are left as they are.
func (t *Table) NullsAsEmptyString() *Table {
	out := t.Clone()
	for _, row := range out.rows {
		for i, c := range out.columns {
			if c.Kind == Text && row[i].IsNull() {
				row[i] = TextValue("")
			}
		}
	}
	return out
}
