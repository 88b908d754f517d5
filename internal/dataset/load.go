package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

const loadBatchSize = 64 * 1024

// Load reads a tabular file into a dataset, dispatching on extension.
func Load(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FromCSV(path)
	case ".xls", ".xlsx", ".xlsm":
		rows, err := ReadSheetRows(path)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, fmt.Errorf("%s: workbook has no rows", path)
		}
		return FromRows(rows[0], rows[1:])
	case ".parquet", ".pq":
		return FromParquet(path)
	}
	return nil, fmt.Errorf("%s: unsupported dataset format", path)
}

// FromCSV reads an entire delimited-text file into a dataset.
func FromCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty delimited file", path)
	}
	return FromRows(records[0], records[1:])
}

// CountCSVRecords counts data records in a delimited file, parsing quoting
// properly so embedded newlines do not inflate the count. The header row is
// excluded.
func CountCSVRecords(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	var n int64
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		n++
	}
	if n <= 1 {
		return 0, nil
	}
	return n - 1, nil
}

// ParquetRowCount returns the row count recorded in a parquet footer without
// reading any column data.
func ParquetRowCount(path string) (int64, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer pf.Close()
	return pf.NumRows(), nil
}

// FromParquet materializes an entire Parquet file into a dataset.
func FromParquet(path string) (*Dataset, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: loadBatchSize}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	tbl, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer tbl.Release()

	columns := make([]Column, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		field := tbl.Schema().Field(i)
		t, _ := TypeOf(field.Type)
		col := Column{
			Name:   field.Name,
			Type:   t,
			Values: make([]any, 0, tbl.NumRows()),
		}
		for _, chunk := range tbl.Column(i).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				col.Values = append(col.Values, ValueAt(chunk, j))
			}
		}
		columns[i] = col
	}
	return &Dataset{Columns: columns}, nil
}

// TypeOf maps an arrow type to a semantic tag. The second return is false
// for types outside the tag set (callers may fall back to the engine name).
func TypeOf(dt arrow.DataType) (Type, bool) {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return TypeInt64, true
	case arrow.FLOAT32, arrow.FLOAT64:
		return TypeFloat64, true
	case arrow.STRING, arrow.LARGE_STRING:
		return TypeString, true
	case arrow.BOOL:
		return TypeBool, true
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return TypeTimestamp, true
	}
	return TypeString, false
}

// ValueAt extracts one cell from an arrow array as a plain Go scalar.
// Nulls are nil; integer widths normalize to int64, floats to float64.
func ValueAt(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Timestamp:
		if ts, ok := a.DataType().(*arrow.TimestampType); ok {
			return a.Value(i).ToTime(ts.Unit)
		}
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	}
	if vs, ok := arr.(interface{ ValueStr(int) string }); ok {
		return vs.ValueStr(i)
	}
	return nil
}
