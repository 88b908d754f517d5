package codec

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"frostbyte/internal/dataset"
	"frostbyte/internal/fileutil"
	"frostbyte/internal/frost"
)

const (
	csvBufferSize   = 256 << 10
	decodeBatchSize = 64 << 10
)

// scanCSV makes a full pass over the file to establish the header, the
// inferred column types, and the exact data row count before conversion.
func scanCSV(ctx context.Context, src string) (header []string, types []dataset.Type, total int64, err error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, nil, 0, &frost.IOError{Op: "open", Path: src, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, csvBufferSize))
	r.ReuseRecord = true

	header, err = r.Read()
	if err == io.EOF {
		return nil, nil, 0, &frost.FormatError{Path: src, Detail: "empty delimited file"}
	}
	if err != nil {
		return nil, nil, 0, &frost.FormatError{Path: src, Detail: err.Error()}
	}
	// ReuseRecord recycles the returned slice on the next Read.
	header = append([]string(nil), header...)

	ti := dataset.NewTypeInferrer(len(header))
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}
		rec, rerr := r.Read()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, nil, 0, &frost.FormatError{Path: src, Detail: rerr.Error()}
		}
		ti.Observe(rec)
		total++
	}
	return header, ti.Types(), total, nil
}

// compressCSV converts a delimited-text file in two streaming passes: the
// first establishes the exact row count and column types so the second can
// write fixed-type parquet columns chunk by chunk.
func (c *ParquetCodec) compressCSV(ctx context.Context, src, dst string, p *progressReporter) (int64, error) {
	header, types, total, err := scanCSV(ctx, src)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(src)
	if err != nil {
		return 0, &frost.IOError{Op: "open", Path: src, Err: err}
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReaderSize(f, csvBufferSize))
	r.ReuseRecord = true
	if _, err := r.Read(); err != nil {
		return 0, &frost.FormatError{Path: src, Detail: err.Error()}
	}

	sch := arrowSchema(header, types)
	chunkRows := c.chunk(total)
	var written int64

	err = fileutil.WriteAtomic(dst, func(w io.Writer) error {
		fw, err := pqarrow.NewFileWriter(sch, w, c.writerProps(), c.arrowProps())
		if err != nil {
			return fmt.Errorf("creating parquet writer: %w", err)
		}
		b := array.NewRecordBuilder(memory.DefaultAllocator, sch)
		defer b.Release()

		var inChunk, rowNum int64
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, rerr := r.Read()
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return &frost.FormatError{Path: src, Detail: rerr.Error()}
			}
			rowNum++
			if err := appendRow(b, types, rec); err != nil {
				return &frost.FormatError{Path: src, Detail: fmt.Sprintf("row %d: %v", rowNum, err)}
			}
			inChunk++
			if inChunk >= chunkRows {
				if err := flushChunk(fw, b); err != nil {
					return err
				}
				written += inChunk
				inChunk = 0
				if total > 0 {
					p.report(float64(written) / float64(total))
				}
			}
		}
		if inChunk > 0 {
			if err := flushChunk(fw, b); err != nil {
				return err
			}
			written += inChunk
		}
		if err := fw.Close(); err != nil {
			return fmt.Errorf("finalizing parquet: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

// decompressCSV streams a parquet artifact back to delimited text. The
// header comes from the parquet schema, so a zero-row table still restores
// with its header line.
func (c *ParquetCodec) decompressCSV(ctx context.Context, src, dst string, p *progressReporter) error {
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

	return fileutil.WriteAtomic(dst, func(w io.Writer) error {
		cw := csv.NewWriter(w)

		header := make([]string, sch.NumFields())
		for i := range header {
			header[i] = sch.Field(i).Name
		}
		if err := cw.Write(header); err != nil {
			return err
		}

		row := make([]string, sch.NumFields())
		var written int64
		for rr.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec := rr.Record()
			for i := 0; i < int(rec.NumRows()); i++ {
				for col := range row {
					row[col] = formatCell(rec.Column(col), i)
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
			written += rec.NumRows()
			if total > 0 {
				p.report(float64(written) / float64(total))
			}
		}
		if err := rr.Err(); err != nil && err != io.EOF {
			return &frost.FormatError{Path: src, Detail: fmt.Sprintf("decoding parquet rows: %v", err)}
		}
		cw.Flush()
		return cw.Error()
	})
}
