// Package dataset provides a materialized column-major table used by the
// diff engine, dataset comparison, and archive validation. Values are plain
// Go scalars (int64, float64, string, bool, time.Time) with nil for null.
package dataset

// Type is the semantic type tag of a column.
type Type int

const (
	TypeString Type = iota
	TypeInt64
	TypeFloat64
	TypeBool
	TypeTimestamp
)

// String returns the tag used in schema documents and diff descriptions.
func (t Type) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	default:
		return "string"
	}
}

// IsNumeric reports whether values of this type participate in numeric
// statistics.
func (t Type) IsNumeric() bool {
	return t == TypeInt64 || t == TypeFloat64
}

// Column is a named, typed column. Values holds one entry per row; nil
// marks a null.
type Column struct {
	Name   string
	Type   Type
	Values []any
}

// Dataset is an ordered collection of equal-length columns.
type Dataset struct {
	Columns []Column
}

// NumRows returns the row count (zero for a dataset with no columns).
func (d *Dataset) NumRows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// NumCols returns the column count.
func (d *Dataset) NumCols() int {
	return len(d.Columns)
}

// Column returns the first column with the given name, or nil.
func (d *Dataset) Column(name string) *Column {
	for i := range d.Columns {
		if d.Columns[i].Name == name {
			return &d.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns the column names in declaration order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i := range d.Columns {
		names[i] = d.Columns[i].Name
	}
	return names
}
