package model

import (
	"sort"
	"time"

	"frostbyte/internal/schema"
)

// ArchiveRecord represents one archived version of one source file.
// The (OriginalPath, Version) pair is unique across the store.
type ArchiveRecord struct {
	ID                string          // UUID
	OriginalPath      string          // Absolute, cleaned source path
	Version           int             // Per-path, starts at 1, allocated as max+1
	CreatedAt         time.Time       // When the archive was written
	ContentHash       string          // SHA-256 of the original file bytes (not the artifact)
	RowCount          int64           // Data rows in the source (header excluded)
	Schema            schema.Document // Extracted schema; serialized as JSON at the store boundary
	CompressionRatio  float64         // Percent saved; negative when the artifact is larger
	StoragePath       string          // Location of the Parquet artifact
	OriginalExtension string          // Extension of the source file, e.g. ".csv"
}

// ColumnStat holds numeric summary statistics for one column of one archive.
// Rows exist only for numeric columns with at least one non-null value.
type ColumnStat struct {
	ArchiveID  string
	ColumnName string
	Min        float64
	Max        float64
	Mean       float64
	StdDev     float64
}

// StatsFromSchema derives the column statistics rows for an archive from
// its schema document: one row per numeric column carrying stats, ordered
// by column name.
func StatsFromSchema(archiveID string, doc schema.Document) []ColumnStat {
	names := make([]string, 0, len(doc.Columns))
	for name, info := range doc.Columns {
		if info.Stats != nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	stats := make([]ColumnStat, 0, len(names))
	for _, name := range names {
		s := doc.Columns[name].Stats
		stats = append(stats, ColumnStat{
			ArchiveID:  archiveID,
			ColumnName: name,
			Min:        s.Min,
			Max:        s.Max,
			Mean:       s.Mean,
			StdDev:     s.StdDev,
		})
	}
	return stats
}

// Candidate is a fuzzy-search hit: a stored path and its highest version.
type Candidate struct {
	OriginalPath  string
	LatestVersion int
}

// PathSummary is one row of the summary listing: all versions of one path
// folded into aggregate figures.
type PathSummary struct {
	OriginalPath         string
	LatestVersion        int
	VersionCount         int
	LastArchivedAt       time.Time
	TotalOriginalBytes   int64
	TotalCompressedBytes int64
	AvgCompressionRatio  float64
	TotalRows            int64
}

// VersionDetail is one row of the detailed listing: a single archived version
// with sizes derived from its schema document and compression ratio.
type VersionDetail struct {
	OriginalPath        string
	Version             int
	CreatedAt           time.Time
	RowCount            int64
	CompressionRatio    float64
	StoragePath         string
	ArchiveFilename     string
	OriginalSizeBytes   int64
	CompressedSizeBytes int64
}

// RemoveResult reports what a store removal deleted. StoragePaths lists the
// artifact files backing the deleted rows so the caller can unlink them.
type RemoveResult struct {
	Count        int
	StoragePaths []string
}

// PurgeResult reports a completed purge, including artifact paths that were
// unlinked (or attempted; unlink failures are best-effort).
type PurgeResult struct {
	Count        int
	RemovedPaths []string
}

// RepoStats aggregates across every archive in the repository.
type RepoStats struct {
	TotalArchives       int
	TotalSizeSaved      int64
	AvgCompressionRatio float64
}

// PathStats aggregates across all versions of a single path.
type PathStats struct {
	OriginalPath   string
	VersionCount   int
	LatestVersion  int
	LastArchivedAt time.Time
	SizeSaved      int64
}

// ArchiveSummary is returned by a successful archive operation.
type ArchiveSummary struct {
	OriginalPath        string
	Version             int
	OriginalSizeBytes   int64
	CompressedSizeBytes int64
	CompressionRatio    float64
	RowCount            int64
	Elapsed             time.Duration
}

// RestoreSummary is returned by a successful restore operation. Sizes are
// estimates derived from the stored schema document and compression ratio.
type RestoreSummary struct {
	OriginalPath        string
	Version             int
	ArchivedAt          time.Time
	OriginalSizeBytes   int64
	CompressedSizeBytes int64
	RowCount            int64
	Elapsed             time.Duration
}

// DatasetComparison is the structural comparison of two columnar artifacts.
type DatasetComparison struct {
	RowCountDiff int64    // rows(A) - rows(B), signed
	ColumnDiff   []string // symmetric difference of column names, sorted
	Identical    bool     // full-equality result; false on any comparison failure
}

// ValidationResult reports an archive validation pass. Issues fail the
// archive; warnings are advisory data-quality notes.
type ValidationResult struct {
	OriginalPath string
	Version      int
	Passed       bool
	Issues       []string
	Warnings     []string
}
