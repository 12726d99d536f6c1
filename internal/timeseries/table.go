package timeseries

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Table is a timestamp-indexed set of named numeric columns, one row per
// sample. Filtering always copies; a Table handed to the engine is never
// mutated. Missing samples are NaN.
type Table struct {
	timestamps []time.Time
	order      []string
	columns    map[string][]float64
}

// NewTable creates an empty table over the given timestamp index.
func NewTable(timestamps []time.Time) *Table {
	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	return &Table{
		timestamps: ts,
		columns:    make(map[string][]float64),
	}
}

// AddColumn attaches a named column. The value slice must match the index
// length; shorter slices are padded with NaN so a ragged ingest cannot
// corrupt row alignment.
func (t *Table) AddColumn(name string, values []float64) error {
	if len(values) > len(t.timestamps) {
		return fmt.Errorf("column %q has %d values for %d timestamps", name, len(values), len(t.timestamps))
	}
	col := make([]float64, len(t.timestamps))
	copy(col, values)
	for i := len(values); i < len(col); i++ {
		col[i] = math.NaN()
	}
	if _, exists := t.columns[name]; !exists {
		t.order = append(t.order, name)
	}
	t.columns[name] = col
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.timestamps)
}

// Columns returns column names in insertion order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Column returns the values of a named column, or nil if absent.
func (t *Table) Column(name string) []float64 {
	return t.columns[name]
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Timestamps returns the timestamp index.
func (t *Table) Timestamps() []time.Time {
	return t.timestamps
}

// Timestamp returns the timestamp of row i.
func (t *Table) Timestamp(i int) time.Time {
	return t.timestamps[i]
}

// HasTimeIndex reports whether the table has a usable timestamp axis.
// Hour/weekday/holiday filtering is undefined without one.
func (t *Table) HasTimeIndex() bool {
	return len(t.timestamps) > 0
}

// Select returns a copy of the table reduced to rows where keep[i] is true.
// keep must be index-aligned; extra entries are ignored.
func (t *Table) Select(keep []bool) *Table {
	n := 0
	for i := range t.timestamps {
		if i < len(keep) && keep[i] {
			n++
		}
	}
	out := &Table{
		timestamps: make([]time.Time, 0, n),
		order:      append([]string(nil), t.order...),
		columns:    make(map[string][]float64, len(t.columns)),
	}
	for _, name := range t.order {
		out.columns[name] = make([]float64, 0, n)
	}
	for i, ts := range t.timestamps {
		if i >= len(keep) || !keep[i] {
			continue
		}
		out.timestamps = append(out.timestamps, ts)
		for _, name := range t.order {
			out.columns[name] = append(out.columns[name], t.columns[name][i])
		}
	}
	return out
}

// SortByTime returns a copy of the table with rows in non-decreasing
// timestamp order. The sort is stable so duplicate timestamps keep their
// ingest order.
func (t *Table) SortByTime() *Table {
	idx := make([]int, len(t.timestamps))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.timestamps[idx[a]].Before(t.timestamps[idx[b]])
	})
	out := &Table{
		timestamps: make([]time.Time, len(t.timestamps)),
		order:      append([]string(nil), t.order...),
		columns:    make(map[string][]float64, len(t.columns)),
	}
	for _, name := range t.order {
		out.columns[name] = make([]float64, len(t.timestamps))
	}
	for dst, src := range idx {
		out.timestamps[dst] = t.timestamps[src]
		for _, name := range t.order {
			out.columns[name][dst] = t.columns[name][src]
		}
	}
	return out
}

// DropMissing returns the non-NaN values of a column together with their
// timestamps, preserving order.
func (t *Table) DropMissing(name string) ([]float64, []time.Time) {
	col, ok := t.columns[name]
	if !ok {
		return nil, nil
	}
	values := make([]float64, 0, len(col))
	stamps := make([]time.Time, 0, len(col))
	for i, v := range col {
		if math.IsNaN(v) {
			continue
		}
		values = append(values, v)
		stamps = append(stamps, t.timestamps[i])
	}
	return values, stamps
}

// Row returns row i as a name→value map, skipping NaN cells so that a
// missing sample reads as an absent variable rather than a NaN compare.
func (t *Table) Row(i int) map[string]float64 {
	row := make(map[string]float64, len(t.order))
	for _, name := range t.order {
		v := t.columns[name][i]
		if math.IsNaN(v) {
			continue
		}
		row[name] = v
	}
	return row
}

// Equal reports whether two tables have identical index, column order and
// values (NaN equals NaN). Used by tests to assert filter idempotence.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.timestamps) != len(other.timestamps) || len(t.order) != len(other.order) {
		return false
	}
	for i := range t.timestamps {
		if !t.timestamps[i].Equal(other.timestamps[i]) {
			return false
		}
	}
	for ci, name := range t.order {
		if other.order[ci] != name {
			return false
		}
		a, b := t.columns[name], other.columns[name]
		for i := range a {
			if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
				return false
			}
		}
	}
	return true
}
