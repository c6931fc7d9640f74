// Package dataset loads and writes the delimited tabular data moving
// through the preprocessing run.
package dataset

import (
	"fmt"
	"math"
	"strconv"

	"github.com/featurelabs/abalone-preprocess/internal/schema"
)

// Table is a column-oriented, typed view of the raw dataset. Missing
// numeric values are NaN; missing categorical values are empty strings.
type Table struct {
	Schema schema.Schema

	rows    int
	floats  map[string][]float64
	strings map[string][]string
}

// NewTable allocates an empty table for the given schema and row count.
func NewTable(s schema.Schema, rows int) *Table {
	t := &Table{
		Schema:  s,
		rows:    rows,
		floats:  make(map[string][]float64),
		strings: make(map[string][]string),
	}
	for _, c := range s.Features {
		switch c.Kind {
		case schema.KindFractional:
			t.floats[c.Name] = make([]float64, rows)
		case schema.KindString:
			t.strings[c.Name] = make([]string, rows)
		}
	}
	t.floats[s.Label.Name] = make([]float64, rows)
	return t
}

// NumRows is the number of rows in the table.
func (t *Table) NumRows() int {
	return t.rows
}

// Floats returns the named fractional column. The slice is shared, not
// copied.
func (t *Table) Floats(name string) ([]float64, error) {
	col, ok := t.floats[name]
	if !ok {
		return nil, fmt.Errorf("table has no fractional column %q", name)
	}
	return col, nil
}

// Strings returns the named categorical column. The slice is shared, not
// copied.
func (t *Table) Strings(name string) ([]string, error) {
	col, ok := t.strings[name]
	if !ok {
		return nil, fmt.Errorf("table has no string column %q", name)
	}
	return col, nil
}

// Labels returns the label column.
func (t *Table) Labels() []float64 {
	return t.floats[t.Schema.Label.Name]
}

// FeatureValues renders row i's raw feature values as strings in schema
// order, the form the feature-store ingestion API expects.
func (t *Table) FeatureValues(i int) ([]string, error) {
	if i < 0 || i >= t.rows {
		return nil, fmt.Errorf("row %d out of range (table has %d rows)", i, t.rows)
	}
	values := make([]string, 0, len(t.Schema.Features))
	for _, c := range t.Schema.Features {
		switch c.Kind {
		case schema.KindString:
			values = append(values, t.strings[c.Name][i])
		case schema.KindFractional:
			v := t.floats[c.Name][i]
			if math.IsNaN(v) {
				values = append(values, "")
				continue
			}
			values = append(values, strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	return values, nil
}
