package codec

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	"frostbyte/internal/dataset"
	"frostbyte/internal/fileutil"
	"frostbyte/internal/frost"
)

// compressSheet converts the first worksheet of a workbook. Spreadsheet
// cells arrive as display strings, so column types are inferred the same
// way as delimited text.
func (c *ParquetCodec) compressSheet(ctx context.Context, src, dst string, p *progressReporter) (int64, error) {
	rows, err := dataset.ReadSheetRows(src)
	if err != nil {
		return 0, &frost.FormatError{Path: src, Detail: err.Error()}
	}
	if len(rows) == 0 {
		return 0, &frost.FormatError{Path: src, Detail: "workbook has no rows"}
	}
	header, data := rows[0], rows[1:]
	if len(header) == 0 {
		return 0, &frost.FormatError{Path: src, Detail: "workbook has no columns"}
	}
	types := dataset.InferColumnTypes(data, len(header))

	sch := arrowSchema(header, types)
	total := int64(len(data))
	chunkRows := int(c.chunk(total))

	err = fileutil.WriteAtomic(dst, func(w io.Writer) error {
		fw, err := pqarrow.NewFileWriter(sch, w, c.writerProps(), c.arrowProps())
		if err != nil {
			return fmt.Errorf("creating parquet writer: %w", err)
		}
		b := array.NewRecordBuilder(memory.DefaultAllocator, sch)
		defer b.Release()

		var written int64
		for start := 0; start < len(data); start += chunkRows {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := start + chunkRows
			if end > len(data) {
				end = len(data)
			}
			for r, row := range data[start:end] {
				if err := appendRow(b, types, row); err != nil {
					return &frost.FormatError{Path: src, Detail: fmt.Sprintf("row %d: %v", start+r+1, err)}
				}
			}
			if err := flushChunk(fw, b); err != nil {
				return err
			}
			written += int64(end - start)
			if total > 0 {
				p.report(float64(written) / float64(total))
			}
		}
		if err := fw.Close(); err != nil {
			return fmt.Errorf("finalizing parquet: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// decompressSheet rematerializes a parquet artifact as a workbook with a
// single sheet. The workbook is always written in the zip container
// format, whatever dst's extension; reads back through content sniffing,
// so restore validation of legacy .xls sources still works.
func (c *ParquetCodec) decompressSheet(ctx context.Context, src, dst string, p *progressReporter) error {
	pf, err := file.OpenParquetFile(src, false)
	if err != nil {
		return &frost.FormatError{Path: src, Detail: fmt.Sprintf("opening parquet: %v", err)}
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{BatchSize: decodeBatchSize}, memory.DefaultAllocator)
	if err != nil {
		return &frost.FormatError{Path: src, Detail: fmt.Sprintf("reading parquet: %v", err)}
	}
	sch, err := fr.Schema()
	if err != nil {
		return &frost.FormatError{Path: src, Detail: fmt.Sprintf("reading parquet schema: %v", err)}
	}
	total := pf.NumRows()

	rr, err := fr.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return &frost.FormatError{Path: src, Detail: fmt.Sprintf("reading parquet rows: %v", err)}
	}
	defer rr.Release()

	wb := excelize.NewFile()
	defer wb.Close()
	sw, err := wb.NewStreamWriter("Sheet1")
	if err != nil {
		return fmt.Errorf("creating sheet writer: %w", err)
	}

	header := make([]any, sch.NumFields())
	for i := range header {
		header[i] = sch.Field(i).Name
	}
	cell, _ := excelize.CoordinatesToCellName(1, 1)
	if err := sw.SetRow(cell, header); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	rowIdx := 2
	var written int64
	for rr.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := rr.Record()
		for i := 0; i < int(rec.NumRows()); i++ {
			vals := make([]any, rec.NumCols())
			for col := range vals {
				vals[col] = sheetCell(rec.Column(col), i)
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			if err := sw.SetRow(cell, vals); err != nil {
				return fmt.Errorf("writing row %d: %w", rowIdx-1, err)
			}
			rowIdx++
		}
		written += rec.NumRows()
		if total > 0 {
			p.report(float64(written) / float64(total))
		}
	}
	if err := rr.Err(); err != nil && err != io.EOF {
		return &frost.FormatError{Path: src, Detail: fmt.Sprintf("decoding parquet rows: %v", err)}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing sheet writer: %w", err)
	}

	return fileutil.WriteAtomic(dst, func(w io.Writer) error {
		_, err := wb.WriteTo(w)
		return err
	})
}

// sheetCell converts one array element to a workbook cell value. Nulls and
// NaNs become empty cells.
func sheetCell(arr arrow.Array, i int) any {
	v := dataset.ValueAt(arr, i)
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return nil
	}
	return v
}
