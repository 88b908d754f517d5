package dataset

import (
	"fmt"
	"strconv"
)

// TypeInferrer accumulates per-column type evidence row by row, so callers
// can infer over arbitrarily large inputs without materializing them.
//
// A cell votes for a numeric type only when it is in canonical form: the
// exact bytes FormatValue would write back for the parsed value. Anything
// else ("1.50", "+7", padded or exotic spellings) demotes the column to
// string, which preserves the cell text verbatim through a round trip.
// Empty cells are nulls and cast no vote. Precedence: bool, int64,
// float64, then string; a column with no non-empty cells is a string
// column.
type TypeInferrer struct {
	isInt    []bool
	isFloat  []bool
	isBool   []bool
	sawValue []bool
}

// NewTypeInferrer returns an inferrer for the given column count.
func NewTypeInferrer(cols int) *TypeInferrer {
	ti := &TypeInferrer{
		isInt:    make([]bool, cols),
		isFloat:  make([]bool, cols),
		isBool:   make([]bool, cols),
		sawValue: make([]bool, cols),
	}
	for i := range ti.isInt {
		ti.isInt[i], ti.isFloat[i], ti.isBool[i] = true, true, true
	}
	return ti
}

// Observe records one row's worth of evidence. Cells beyond the column
// count are ignored.
func (ti *TypeInferrer) Observe(row []string) {
	for c := 0; c < len(ti.isInt) && c < len(row); c++ {
		v := row[c]
		if v == "" {
			continue
		}
		ti.sawValue[c] = true
		if ti.isInt[c] && !canonicalInt(v) {
			ti.isInt[c] = false
		}
		if ti.isFloat[c] && !canonicalFloat(v) {
			ti.isFloat[c] = false
		}
		if ti.isBool[c] && v != "true" && v != "false" {
			ti.isBool[c] = false
		}
	}
}

// Types resolves the evidence seen so far into one type per column.
func (ti *TypeInferrer) Types() []Type {
	types := make([]Type, len(ti.isInt))
	for c := range types {
		switch {
		case !ti.sawValue[c]:
			types[c] = TypeString
		case ti.isBool[c]:
			types[c] = TypeBool
		case ti.isInt[c]:
			types[c] = TypeInt64
		case ti.isFloat[c]:
			types[c] = TypeFloat64
		default:
			types[c] = TypeString
		}
	}
	return types
}

func canonicalInt(v string) bool {
	n, err := strconv.ParseInt(v, 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == v
}

func canonicalFloat(v string) bool {
	f, err := strconv.ParseFloat(v, 64)
	return err == nil && FormatFloat(f) == v
}

// InferColumnTypes derives a type per column from materialized string rows.
func InferColumnTypes(rows [][]string, cols int) []Type {
	ti := NewTypeInferrer(cols)
	for _, row := range rows {
		ti.Observe(row)
	}
	return ti.Types()
}

// ParseValue converts one raw cell into the Go value for the given type.
// Empty cells are null for every type; string cells are kept verbatim.
func ParseValue(raw string, t Type) (any, error) {
	if raw == "" {
		return nil, nil
	}
	switch t {
	case TypeString:
		return raw, nil
	case TypeInt64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as int64: %w", raw, err)
		}
		return n, nil
	case TypeFloat64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q as float64: %w", raw, err)
		}
		return f, nil
	case TypeBool:
		switch raw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("parsing %q as bool", raw)
	}
	return nil, fmt.Errorf("cannot parse %q as %s", raw, t)
}

// FromRows materializes a dataset from a header and string-valued data rows,
// inferring column types from the rows themselves. Ragged rows are padded
// with nulls to the header width; cells beyond it are dropped.
func FromRows(header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	types := InferColumnTypes(rows, len(header))

	columns := make([]Column, len(header))
	for c := range header {
		columns[c] = Column{
			Name:   header[c],
			Type:   types[c],
			Values: make([]any, len(rows)),
		}
	}
	for r, row := range rows {
		for c := range header {
			var raw string
			if c < len(row) {
				raw = row[c]
			}
			v, err := ParseValue(raw, types[c])
			if err != nil {
				return nil, fmt.Errorf("row %d, column %q: %w", r+1, header[c], err)
			}
			columns[c].Values[r] = v
		}
	}
	return &Dataset{Columns: columns}, nil
}
