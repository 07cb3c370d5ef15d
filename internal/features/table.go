package features

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sucolo/hexfeat/internal/model"
)

// Column is one feature aligned to the table's row index.
type Column struct {
	Name   string
	Values []model.Value
}

// Table is a feature table keyed by cell id. The row index is fixed at
// construction; every column has exactly one value per row.
type Table struct {
	index   []string
	pos     map[string]int
	columns []Column
	byName  map[string]int
}

// NewTable creates an empty table over the given cell ids.
func NewTable(index []string) *Table {
	t := &Table{
		index:  index,
		pos:    make(map[string]int, len(index)),
		byName: make(map[string]int),
	}
	for i, id := range index {
		t.pos[id] = i
	}
	return t
}

// Join aligns a partial result onto the row index and appends it as a new
// column. Rows absent from partial are null; cells of partial that are not
// part of the index are dropped.
func (t *Table) Join(name string, partial map[string]model.Value) error {
	if _, exists := t.byName[name]; exists {
		return eris.Errorf("features: column %q already exists", name)
	}
	values := make([]model.Value, len(t.index))
	for id, v := range partial {
		if i, ok := t.pos[id]; ok {
			values[i] = v
		}
	}
	t.byName[name] = len(t.columns)
	t.columns = append(t.columns, Column{Name: name, Values: values})
	return nil
}

// Index returns the cell ids in row order.
func (t *Table) Index() []string { return t.index }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.index) }

// Columns returns the columns in join order.
func (t *Table) Columns() []Column { return t.columns }

// ColumnNames returns the column names in join order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Value returns the value at (cell, column); null when either is unknown.
func (t *Table) Value(cellID, column string) model.Value {
	row, ok := t.pos[cellID]
	if !ok {
		return model.Null()
	}
	c, ok := t.byName[column]
	if !ok {
		return model.Null()
	}
	return t.columns[c].Values[row]
}

// Row returns all values of one cell keyed by column name.
func (t *Table) Row(cellID string) (map[string]model.Value, bool) {
	row, ok := t.pos[cellID]
	if !ok {
		return nil, false
	}
	out := make(map[string]model.Value, len(t.columns))
	for _, c := range t.columns {
		out[c.Name] = c.Values[row]
	}
	return out, true
}

type tableJSON struct {
	Index   []string                `json:"index"`
	Columns []string                `json:"columns"`
	Rows    map[string][]model.Value `json:"rows"`
}

// MarshalJSON encodes the table in a split orientation: the row index, the
// column names and, per cell, its values in column order.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Index:   t.index,
		Columns: t.ColumnNames(),
		Rows:    make(map[string][]model.Value, len(t.index)),
	}
	if out.Index == nil {
		out.Index = []string{}
	}
	for i, id := range t.index {
		row := make([]model.Value, len(t.columns))
		for c := range t.columns {
			row[c] = t.columns[c].Values[i]
		}
		out.Rows[id] = row
	}
	return json.Marshal(out)
}
