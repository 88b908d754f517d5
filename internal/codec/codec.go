// Package codec converts supported tabular sources to parquet artifacts
// and back. CSV and spreadsheet sources are converted column-by-column in
// chunks with progress reporting; parquet sources are validated and copied
// byte for byte so their content hash survives the round trip.
package codec

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"frostbyte/internal/frost"
)

// DefaultRowGroupSize bounds parquet row group length when the
// configuration does not override it.
const DefaultRowGroupSize = 100_000

// Config controls artifact encoding.
type Config struct {
	// Compression names the parquet codec: "snappy" (default), "zstd",
	// "gzip", or "none".
	Compression string

	// RowGroupSize caps rows per parquet row group. Zero means
	// DefaultRowGroupSize.
	RowGroupSize int64

	// ChunkStrategy maps a total row count to the conversion batch size.
	// Nil means DefaultChunkStrategy.
	ChunkStrategy func(totalRows int64) int64
}

// ParquetCodec implements frost.Codec over parquet artifacts.
type ParquetCodec struct {
	compression  compress.Compression
	rowGroupSize int64
	chunk        func(int64) int64
	logger       frost.Logger
}

// New builds a codec from cfg. A nil logger discards log output.
func New(cfg Config, logger frost.Logger) (*ParquetCodec, error) {
	comp, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = frost.NewNopLogger()
	}
	c := &ParquetCodec{
		compression:  comp,
		rowGroupSize: cfg.RowGroupSize,
		chunk:        cfg.ChunkStrategy,
		logger:       logger,
	}
	if c.rowGroupSize <= 0 {
		c.rowGroupSize = DefaultRowGroupSize
	}
	if c.chunk == nil {
		c.chunk = DefaultChunkStrategy
	}
	return c, nil
}

func unsupportedDetail(ext string) string {
	return fmt.Sprintf("unsupported extension %q (supported: %s)",
		ext, strings.Join(frost.SupportedExtensions(), ", "))
}

func parseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return 0, fmt.Errorf("unsupported compression %q", name)
}

// TargetPath resolves where Compress writes the artifact for src: an
// empty dst derives "<stem>.parquet" beside src, and a dst carrying a
// non-parquet extension is rewritten to ".parquet".
func TargetPath(src, dst string) string {
	if dst == "" {
		return strings.TrimSuffix(src, filepath.Ext(src)) + ".parquet"
	}
	switch strings.ToLower(filepath.Ext(dst)) {
	case ".parquet", ".pq":
		return dst
	}
	return strings.TrimSuffix(dst, filepath.Ext(dst)) + ".parquet"
}

// Compress converts the tabular file at src into a parquet artifact at dst
// and returns the number of data rows written. Dispatch is by src's
// extension; parquet sources are copied through unchanged. dst passes
// through TargetPath, so it may be empty or carry a foreign extension.
func (c *ParquetCodec) Compress(ctx context.Context, src, dst string, progress frost.ProgressFunc) (int64, error) {
	dst = TargetPath(src, dst)
	p := newProgressReporter(progress)
	var (
		rows int64
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(src)); ext {
	case ".csv":
		rows, err = c.compressCSV(ctx, src, dst, p)
	case ".xls", ".xlsx", ".xlsm":
		rows, err = c.compressSheet(ctx, src, dst, p)
	case ".parquet", ".pq":
		rows, err = c.copyParquet(ctx, src, dst, p)
	default:
		return 0, &frost.FormatError{Path: src, Detail: unsupportedDetail(ext)}
	}
	if err != nil {
		return 0, err
	}
	p.done()
	return rows, nil
}

// Decompress rematerializes the parquet artifact at src as dst, in the
// format implied by dst's extension.
func (c *ParquetCodec) Decompress(ctx context.Context, src, dst string, progress frost.ProgressFunc) error {
	if err := ValidateArtifact(src); err != nil {
		return err
	}
	p := newProgressReporter(progress)
	var err error
	switch ext := strings.ToLower(filepath.Ext(dst)); ext {
	case ".csv":
		err = c.decompressCSV(ctx, src, dst, p)
	case ".xls", ".xlsx", ".xlsm":
		err = c.decompressSheet(ctx, src, dst, p)
	case ".parquet", ".pq":
		_, err = c.copyParquet(ctx, src, dst, p)
	default:
		err = &frost.FormatError{Path: dst, Detail: unsupportedDetail(ext)}
	}
	if err != nil {
		return err
	}
	p.done()
	return nil
}

func (c *ParquetCodec) writerProps() *parquet.WriterProperties {
	return parquet.NewWriterProperties(
		parquet.WithCompression(c.compression),
		parquet.WithMaxRowGroupLength(c.rowGroupSize),
	)
}

func (c *ParquetCodec) arrowProps() pqarrow.ArrowWriterProperties {
	return pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())
}

// DefaultChunkStrategy scales the conversion batch size with table size:
// small tables convert in one batch, large ones in batches big enough to
// amortize encoding overhead while keeping progress updates flowing.
func DefaultChunkStrategy(totalRows int64) int64 {
	switch {
	case totalRows < 1_000:
		if totalRows < 1 {
			return 1
		}
		return totalRows
	case totalRows < 10_000:
		return 1_000
	case totalRows < 100_000:
		return 5_000
	case totalRows < 1_000_000:
		return 10_000
	default:
		return 50_000
	}
}

// progressReporter clamps raw progress into a monotone non-decreasing
// sequence in [0, 1] and tolerates a nil callback.
type progressReporter struct {
	fn   frost.ProgressFunc
	last float64
}

func newProgressReporter(fn frost.ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (p *progressReporter) report(f float64) {
	if p.fn == nil {
		return
	}
	if f < p.last {
		f = p.last
	}
	if f > 1 {
		f = 1
	}
	p.last = f
	p.fn(f)
}

func (p *progressReporter) done() { p.report(1) }

var _ frost.Codec = (*ParquetCodec)(nil)
