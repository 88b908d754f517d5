// Package diff compares two materialized datasets: schema changes, row
// additions, removals and modifications, and bounded samples of each. Rows
// match by key columns when a usable key exists or is supplied; otherwise
// the comparison falls back to row position.
package diff

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"frostbyte/internal/dataset"
)

// DefaultSampleLimit bounds the example rows captured per change class.
const DefaultSampleLimit = 5

// Options controls a comparison.
type Options struct {
	// KeyColumns forces the row-matching key. Empty means infer: the first
	// shared column whose values are non-null and unique in both datasets.
	KeyColumns []string

	// SampleLimit caps the examples collected per change class. Zero means
	// DefaultSampleLimit.
	SampleLimit int
}

// Change is one modified cell: its value before and after.
type Change struct {
	Old any
	New any
}

// ModifiedSample is one modified row: its key values and the cells that
// changed.
type ModifiedSample struct {
	Key     map[string]any
	Changes map[string]Change
}

// Samples holds bounded examples of each change class. Added and Removed
// carry full rows; Modified carries keys and changed cells only.
type Samples struct {
	Added    []map[string]any
	Removed  []map[string]any
	Modified []ModifiedSample
}

// Result is a completed comparison of an old dataset against a new one.
type Result struct {
	SchemaChanges     []string
	RowsAdded         int
	RowsRemoved       int
	RowsModified      int
	TotalCellsChanged int

	// ColumnDiffCounts maps column name to the number of rows whose value
	// changed in that column. Columns with no changes have no entry.
	ColumnDiffCounts map[string]int

	Samples Samples

	// KeyColumns names the matching key actually used; empty when the
	// comparison was positional.
	KeyColumns []string
	Positional bool
}

// Diff compares dataset a (old) against b (new). Cell comparisons treat
// null==null and NaN==NaN as unchanged; numeric values compare by value
// across int64 and float64.
func Diff(a, b *dataset.Dataset, opts Options) *Result {
	limit := opts.SampleLimit
	if limit <= 0 {
		limit = DefaultSampleLimit
	}

	res := &Result{
		SchemaChanges:    schemaChanges(a, b),
		ColumnDiffCounts: make(map[string]int),
	}

	keys := opts.KeyColumns
	if len(keys) == 0 {
		keys = inferKey(a, b)
	} else if !keysPresent(a, b, keys) {
		keys = nil
	}

	if len(keys) > 0 {
		res.KeyColumns = keys
		keyedDiff(a, b, keys, limit, res)
	} else {
		res.Positional = true
		positionalDiff(a, b, limit, res)
	}
	return res
}

// schemaChanges reports column-level structure changes: columns only in b
// (added, in b's order), columns only in a (removed, in a's order), and
// shared columns whose type tag changed.
func schemaChanges(a, b *dataset.Dataset) []string {
	var changes []string
	for i := range b.Columns {
		col := &b.Columns[i]
		if a.Column(col.Name) == nil {
			changes = append(changes, fmt.Sprintf("Added column: %s (%s)", col.Name, col.Type))
		}
	}
	for i := range a.Columns {
		col := &a.Columns[i]
		if b.Column(col.Name) == nil {
			changes = append(changes, fmt.Sprintf("Removed column: %s (%s)", col.Name, col.Type))
		}
	}
	for i := range a.Columns {
		ca := &a.Columns[i]
		cb := b.Column(ca.Name)
		if cb != nil && ca.Type != cb.Type {
			changes = append(changes, fmt.Sprintf("Changed type of column %s: %s -> %s", ca.Name, ca.Type, cb.Type))
		}
	}
	return changes
}

// inferKey picks the first shared column (in a's order) whose values are
// non-null and unique in both datasets. No such column means no key.
func inferKey(a, b *dataset.Dataset) []string {
	for i := range a.Columns {
		ca := &a.Columns[i]
		cb := b.Column(ca.Name)
		if cb == nil {
			continue
		}
		if uniqueNonNull(ca.Values) && uniqueNonNull(cb.Values) {
			return []string{ca.Name}
		}
	}
	return nil
}

func keysPresent(a, b *dataset.Dataset, keys []string) bool {
	for _, k := range keys {
		if a.Column(k) == nil || b.Column(k) == nil {
			return false
		}
	}
	return true
}

func uniqueNonNull(values []any) bool {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == nil {
			return false
		}
		k := cellKey(v)
		if seen[k] {
			return false
		}
		seen[k] = true
	}
	return true
}

// colPair is a shared column viewed from both sides.
type colPair struct {
	name string
	a, b *dataset.Column
}

// sharedPairs returns the columns present in both datasets, in a's order,
// excluding the key columns.
func sharedPairs(a, b *dataset.Dataset, keys []string) []colPair {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}
	var pairs []colPair
	for i := range a.Columns {
		ca := &a.Columns[i]
		if isKey[ca.Name] {
			continue
		}
		if cb := b.Column(ca.Name); cb != nil {
			pairs = append(pairs, colPair{name: ca.Name, a: ca, b: cb})
		}
	}
	return pairs
}

func keyedDiff(a, b *dataset.Dataset, keys []string, limit int, res *Result) {
	ka := keyColumns(a, keys)
	kb := keyColumns(b, keys)

	// Duplicate keys collapse to the last occurrence.
	indexA, orderA := buildIndex(ka, a.NumRows())
	indexB, orderB := buildIndex(kb, b.NumRows())

	for _, k := range orderA {
		if _, ok := indexB[k]; ok {
			continue
		}
		res.RowsRemoved++
		if len(res.Samples.Removed) < limit {
			res.Samples.Removed = append(res.Samples.Removed, rowMap(a, indexA[k]))
		}
	}
	for _, k := range orderB {
		if _, ok := indexA[k]; ok {
			continue
		}
		res.RowsAdded++
		if len(res.Samples.Added) < limit {
			res.Samples.Added = append(res.Samples.Added, rowMap(b, indexB[k]))
		}
	}

	pairs := sharedPairs(a, b, keys)
	for _, k := range orderA {
		ib, ok := indexB[k]
		if !ok {
			continue
		}
		ia := indexA[k]
		changes := compareRow(pairs, ia, ib, res)
		if len(changes) == 0 {
			continue
		}
		res.RowsModified++
		if len(res.Samples.Modified) < limit {
			res.Samples.Modified = append(res.Samples.Modified, ModifiedSample{
				Key:     keyMap(keys, ka, ia),
				Changes: changes,
			})
		}
	}
}

func positionalDiff(a, b *dataset.Dataset, limit int, res *Result) {
	na, nb := a.NumRows(), b.NumRows()

	// With no key, extra rows on either side count by length difference; a
	// reordered dataset of equal length reports modifications instead.
	if nb > na {
		res.RowsAdded = nb - na
		for i := na; i < nb && len(res.Samples.Added) < limit; i++ {
			res.Samples.Added = append(res.Samples.Added, rowMap(b, i))
		}
	}
	if na > nb {
		res.RowsRemoved = na - nb
		for i := nb; i < na && len(res.Samples.Removed) < limit; i++ {
			res.Samples.Removed = append(res.Samples.Removed, rowMap(a, i))
		}
	}

	pairs := sharedPairs(a, b, nil)
	overlap := min(na, nb)
	for i := 0; i < overlap; i++ {
		changes := compareRow(pairs, i, i, res)
		if len(changes) == 0 {
			continue
		}
		res.RowsModified++
		if len(res.Samples.Modified) < limit {
			res.Samples.Modified = append(res.Samples.Modified, ModifiedSample{
				Key:     map[string]any{"row": int64(i)},
				Changes: changes,
			})
		}
	}
}

// compareRow compares one matched row pair across the shared columns,
// updating the aggregate counters. Returns nil when nothing changed.
func compareRow(pairs []colPair, ia, ib int, res *Result) map[string]Change {
	var changes map[string]Change
	for _, p := range pairs {
		va, vb := p.a.Values[ia], p.b.Values[ib]
		if dataset.ValuesEqual(va, vb) {
			continue
		}
		if changes == nil {
			changes = make(map[string]Change)
		}
		changes[p.name] = Change{Old: va, New: vb}
		res.ColumnDiffCounts[p.name]++
		res.TotalCellsChanged++
	}
	return changes
}

func keyColumns(d *dataset.Dataset, keys []string) []*dataset.Column {
	cols := make([]*dataset.Column, len(keys))
	for i, k := range keys {
		cols[i] = d.Column(k)
	}
	return cols
}

// buildIndex maps each composite row key to its row index, keeping the
// first-seen key order for deterministic iteration.
func buildIndex(cols []*dataset.Column, rows int) (map[string]int, []string) {
	index := make(map[string]int, rows)
	order := make([]string, 0, rows)
	for i := 0; i < rows; i++ {
		k := rowKey(cols, i)
		if _, dup := index[k]; !dup {
			order = append(order, k)
		}
		index[k] = i
	}
	return index, order
}

func rowKey(cols []*dataset.Column, row int) string {
	if len(cols) == 1 {
		return cellKey(cols[0].Values[row])
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = cellKey(c.Values[row])
	}
	return strings.Join(parts, "\x1f")
}

// cellKey renders a cell in a canonical form for map keying. Whole-number
// floats key identically to their int64 counterparts so a CSV load matches
// a parquet load of the same data.
func cellKey(v any) string {
	switch x := v.(type) {
	case nil:
		return "\x00"
	case int64:
		return "i" + strconv.FormatInt(x, 10)
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) && math.Abs(x) < 1<<53 {
			return "i" + strconv.FormatInt(int64(x), 10)
		}
		return "f" + strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return "b" + strconv.FormatBool(x)
	case string:
		return "s" + x
	case time.Time:
		return "t" + x.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("v%v", v)
}

func rowMap(d *dataset.Dataset, row int) map[string]any {
	m := make(map[string]any, len(d.Columns))
	for i := range d.Columns {
		m[d.Columns[i].Name] = d.Columns[i].Values[row]
	}
	return m
}

func keyMap(keys []string, cols []*dataset.Column, row int) map[string]any {
	m := make(map[string]any, len(keys))
	for i, k := range keys {
		m[k] = cols[i].Values[row]
	}
	return m
}

// FormatValue renders a sample cell for display: nulls and NaN as nil,
// scalars bare.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case float64:
		if math.IsNaN(x) {
			return "nil"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case string:
		return x
	}
	return fmt.Sprintf("%v", v)
}
