package codec

import (
	"sort"

	"frostbyte/internal/dataset"
	"frostbyte/internal/model"
)

// CompareDatasets loads two parquet artifacts fully and reports their
// structural difference: the signed row count delta, the symmetric
// difference of column names, and whether the contents are equal cell for
// cell. Equality is only evaluated when row counts match and the column
// sets are identical.
func CompareDatasets(pathA, pathB string) (*model.DatasetComparison, error) {
	a, err := dataset.FromParquet(pathA)
	if err != nil {
		return nil, err
	}
	b, err := dataset.FromParquet(pathB)
	if err != nil {
		return nil, err
	}

	cmp := &model.DatasetComparison{
		RowCountDiff: int64(a.NumRows()) - int64(b.NumRows()),
	}

	inA := make(map[string]bool, a.NumCols())
	for _, name := range a.ColumnNames() {
		inA[name] = true
	}
	inB := make(map[string]bool, b.NumCols())
	for _, name := range b.ColumnNames() {
		inB[name] = true
	}
	for _, name := range a.ColumnNames() {
		if !inB[name] {
			cmp.ColumnDiff = append(cmp.ColumnDiff, name)
		}
	}
	for _, name := range b.ColumnNames() {
		if !inA[name] {
			cmp.ColumnDiff = append(cmp.ColumnDiff, name)
		}
	}
	sort.Strings(cmp.ColumnDiff)

	if cmp.RowCountDiff == 0 && len(cmp.ColumnDiff) == 0 {
		cmp.Identical = datasetsEqual(a, b)
	}
	return cmp, nil
}

// datasetsEqual compares all cells by column name, tolerating column order
// differences. Nulls equal nulls and NaNs equal NaNs, so a float column
// round-trips as identical.
func datasetsEqual(a, b *dataset.Dataset) bool {
	for i := range a.Columns {
		ca := &a.Columns[i]
		cb := b.Column(ca.Name)
		if cb == nil || len(ca.Values) != len(cb.Values) {
			return false
		}
		for j := range ca.Values {
			if !dataset.ValuesEqual(ca.Values[j], cb.Values[j]) {
				return false
			}
		}
	}
	return true
}
