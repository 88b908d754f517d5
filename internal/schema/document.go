// Package schema extracts and represents per-archive schema documents:
// row/column counts, per-column types and nullability, numeric statistics,
// and size hints used for listing-time size estimation.
package schema

import "math"

// ColumnStats summarizes a numeric column.
type ColumnStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// ColumnInfo describes one column of an archived table.
type ColumnInfo struct {
	Type     string       `json:"type"`
	Nullable bool         `json:"nullable"`
	Stats    *ColumnStats `json:"stats,omitempty"`
}

// Document is the schema record stored alongside each archive. It is held
// as a typed value everywhere and serialized to JSON only at the store
// boundary.
type Document struct {
	RowCount      int64                 `json:"row_count"`
	ColumnCount   int                   `json:"column_count"`
	Columns       map[string]ColumnInfo `json:"columns"`
	FileSizeBytes int64                 `json:"file_size_bytes"`
	AvgRowBytes   float64               `json:"avg_row_bytes"`
	Error         string                `json:"error,omitempty"`
}

// OriginalSizeBytes returns the best available estimate of the source file's
// size: the recorded on-disk size, falling back to row count times average
// row bytes. Zero when neither is known.
func (d Document) OriginalSizeBytes() int64 {
	if d.FileSizeBytes > 0 {
		return d.FileSizeBytes
	}
	if d.RowCount > 0 && d.AvgRowBytes > 0 {
		return int64(math.Round(float64(d.RowCount) * d.AvgRowBytes))
	}
	return 0
}

// Degenerate returns the all-zero document recorded when extraction fails.
// Archiving proceeds with reduced metadata rather than aborting.
func Degenerate(err error) Document {
	return Document{Columns: map[string]ColumnInfo{}, Error: err.Error()}
}
