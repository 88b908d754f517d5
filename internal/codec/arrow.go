package codec

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"frostbyte/internal/dataset"
)

// arrowSchema builds the parquet schema for inferred columns. Every column
// is nullable; empty cells in any column become nulls.
func arrowSchema(header []string, types []dataset.Type) *arrow.Schema {
	fields := make([]arrow.Field, len(header))
	for i, name := range header {
		fields[i] = arrow.Field{Name: name, Type: arrowType(types[i]), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(t dataset.Type) arrow.DataType {
	switch t {
	case dataset.TypeInt64:
		return arrow.PrimitiveTypes.Int64
	case dataset.TypeFloat64:
		return arrow.PrimitiveTypes.Float64
	case dataset.TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case dataset.TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// appendRow parses one string row into the record builder. Missing cells
// in short rows become nulls.
func appendRow(b *array.RecordBuilder, types []dataset.Type, row []string) error {
	for c := range types {
		var raw string
		if c < len(row) {
			raw = row[c]
		}
		v, err := dataset.ParseValue(raw, types[c])
		if err != nil {
			return fmt.Errorf("column %d: %w", c+1, err)
		}
		appendValue(b.Field(c), types[c], v)
	}
	return nil
}

func appendValue(fb array.Builder, t dataset.Type, v any) {
	if v == nil {
		fb.AppendNull()
		return
	}
	switch t {
	case dataset.TypeInt64:
		fb.(*array.Int64Builder).Append(v.(int64))
	case dataset.TypeFloat64:
		fb.(*array.Float64Builder).Append(v.(float64))
	case dataset.TypeBool:
		fb.(*array.BooleanBuilder).Append(v.(bool))
	case dataset.TypeTimestamp:
		ts, _ := arrow.TimestampFromTime(v.(time.Time), arrow.Microsecond)
		fb.(*array.TimestampBuilder).Append(ts)
	default:
		fb.(*array.StringBuilder).Append(v.(string))
	}
}

// flushChunk drains the builder into the writer as one buffered record.
func flushChunk(fw *pqarrow.FileWriter, b *array.RecordBuilder) error {
	rec := b.NewRecord()
	defer rec.Release()
	if err := fw.WriteBuffered(rec); err != nil {
		return fmt.Errorf("writing row group: %w", err)
	}
	return nil
}

// formatCell renders one array element as a delimited-text cell.
func formatCell(arr arrow.Array, i int) string {
	return dataset.FormatValue(dataset.ValueAt(arr, i))
}
