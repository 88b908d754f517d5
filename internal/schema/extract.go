package schema

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"frostbyte/internal/dataset"
)

const (
	// DefaultSampleRows bounds type/stat inference for delimited text and
	// spreadsheets; large files accept a sampling approximation.
	DefaultSampleRows = 100

	// DefaultLineBuffer is the initial scanner buffer for the full line
	// count pass over delimited text.
	DefaultLineBuffer = 1 << 20

	maxLineBytes = 64 << 20
)

// Extractor derives schema documents from supported tabular files.
type Extractor struct {
	SampleRows int
	LineBuffer int
}

// NewExtractor returns an extractor with default sampling bounds.
// A non-positive lineBuffer keeps the default.
func NewExtractor(lineBuffer int) *Extractor {
	e := &Extractor{SampleRows: DefaultSampleRows, LineBuffer: DefaultLineBuffer}
	if lineBuffer > 0 {
		e.LineBuffer = lineBuffer
	}
	return e
}

// Extract produces the schema document for path. It never fails: unreadable
// or unsupported files yield a degenerate document with the error embedded,
// so schema extraction never blocks archiving.
func (e *Extractor) Extract(path string) Document {
	var (
		doc Document
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		doc, err = e.extractCSV(path)
	case ".parquet", ".pq":
		doc, err = e.extractParquet(path)
	case ".xls", ".xlsx", ".xlsm":
		doc, err = e.extractSheet(path)
	default:
		err = fmt.Errorf("unsupported extension %q", filepath.Ext(path))
	}
	if err != nil {
		return Degenerate(err)
	}
	return doc
}

// Extract is the package-level convenience using default bounds.
func Extract(path string) Document {
	return NewExtractor(0).Extract(path)
}

// CountCSVRows counts data rows (lines minus the header) in a delimited
// file. This is a fast line count for schema extraction; quoted fields with
// embedded newlines inflate it, so validation paths parse records instead.
func (e *Extractor) CountCSVRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, e.LineBuffer), maxLineBytes)
	var lines int64
	for sc.Scan() {
		lines++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("counting rows of %s: %w", path, err)
	}
	if lines <= 1 {
		return 0, nil
	}
	return lines - 1, nil
}

// CountCSVRows counts data rows using default buffer sizes.
func CountCSVRows(path string) (int64, error) {
	return NewExtractor(0).CountCSVRows(path)
}

func (e *Extractor) extractCSV(path string) (Document, error) {
	size, err := fileSize(path)
	if err != nil {
		return Document{}, err
	}
	rows, err := e.CountCSVRows(path)
	if err != nil {
		return Document{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	header, err := r.Read()
	if err != nil {
		return Document{}, fmt.Errorf("reading header of %s: %w", path, err)
	}
	sample := make([][]string, 0, e.SampleRows)
	for len(sample) < e.SampleRows {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Document{}, fmt.Errorf("sampling %s: %w", path, err)
		}
		sample = append(sample, rec)
	}

	doc := Document{
		RowCount:      rows,
		ColumnCount:   len(header),
		Columns:       sampleColumns(header, sample),
		FileSizeBytes: size,
	}
	doc.AvgRowBytes = avgRowBytes(size, rows)
	return doc, nil
}

func (e *Extractor) extractSheet(path string) (Document, error) {
	size, err := fileSize(path)
	if err != nil {
		return Document{}, err
	}
	rows, err := dataset.ReadSheetRows(path)
	if err != nil {
		return Document{}, err
	}
	if len(rows) == 0 {
		return Document{}, fmt.Errorf("%s: workbook has no rows", path)
	}
	header, data := rows[0], rows[1:]
	sample := data
	if len(sample) > e.SampleRows {
		sample = sample[:e.SampleRows]
	}

	doc := Document{
		RowCount:      int64(len(data)),
		ColumnCount:   len(header),
		Columns:       sampleColumns(header, sample),
		FileSizeBytes: size,
	}
	doc.AvgRowBytes = avgRowBytes(size, doc.RowCount)
	return doc, nil
}

func (e *Extractor) extractParquet(path string) (Document, error) {
	size, err := fileSize(path)
	if err != nil {
		return Document{}, err
	}

	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		pf.Close()
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	sch, err := fr.Schema()
	pf.Close()
	if err != nil {
		return Document{}, fmt.Errorf("reading schema of %s: %w", path, err)
	}

	ds, err := dataset.FromParquet(path)
	if err != nil {
		return Document{}, err
	}

	columns := make(map[string]ColumnInfo, len(sch.Fields()))
	for i, f := range sch.Fields() {
		tag := f.Type.String()
		if t, ok := dataset.TypeOf(f.Type); ok {
			tag = t.String()
		}
		var col *dataset.Column
		if i < ds.NumCols() {
			col = &ds.Columns[i]
		}
		info := ColumnInfo{Type: tag, Nullable: f.Nullable}
		if col != nil {
			vals, sawNull := numericValues(col.Values)
			if sawNull {
				info.Nullable = true
			}
			if col.Type.IsNumeric() && len(vals) > 0 {
				info.Stats = summarize(vals)
			}
		}
		columns[f.Name] = info
	}

	doc := Document{
		RowCount:      int64(ds.NumRows()),
		ColumnCount:   len(sch.Fields()),
		Columns:       columns,
		FileSizeBytes: size,
	}
	doc.AvgRowBytes = avgRowBytes(size, doc.RowCount)
	return doc, nil
}

// sampleColumns infers per-column type, nullability, and numeric stats from
// a bounded sample of string rows.
func sampleColumns(header []string, sample [][]string) map[string]ColumnInfo {
	types := dataset.InferColumnTypes(sample, len(header))
	columns := make(map[string]ColumnInfo, len(header))
	for c, name := range header {
		info := ColumnInfo{Type: types[c].String()}
		var vals []float64
		for _, row := range sample {
			if c >= len(row) || row[c] == "" {
				info.Nullable = true
				continue
			}
			if types[c].IsNumeric() {
				v, err := strconv.ParseFloat(row[c], 64)
				if err == nil && !math.IsNaN(v) {
					vals = append(vals, v)
				}
			}
		}
		if types[c].IsNumeric() && len(vals) > 0 {
			info.Stats = summarize(vals)
		}
		columns[name] = info
	}
	return columns
}

// numericValues converts a column's values to floats for statistics,
// skipping nulls and NaNs, and reports whether any null was seen.
func numericValues(values []any) ([]float64, bool) {
	var vals []float64
	sawNull := false
	for _, v := range values {
		switch x := v.(type) {
		case nil:
			sawNull = true
		case int64:
			vals = append(vals, float64(x))
		case float64:
			if !math.IsNaN(x) {
				vals = append(vals, x)
			}
		}
	}
	return vals, sawNull
}

func summarize(vals []float64) *ColumnStats {
	s := &ColumnStats{
		Min:  floats.Min(vals),
		Max:  floats.Max(vals),
		Mean: stat.Mean(vals, nil),
	}
	if len(vals) > 1 {
		s.StdDev = stat.StdDev(vals, nil)
	}
	// Guard against NaN leaking into JSON serialization.
	if math.IsNaN(s.StdDev) || math.IsInf(s.StdDev, 0) {
		s.StdDev = 0
	}
	return s
}

func avgRowBytes(size, rows int64) float64 {
	if rows < 1 {
		rows = 1
	}
	return float64(size) / float64(rows)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
