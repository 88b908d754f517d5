package frost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"frostbyte/internal/dataset"
	"frostbyte/internal/fileutil"
	"frostbyte/internal/model"
)

// qualitySampleRows bounds the rows inspected for data-quality warnings.
const qualitySampleRows = 1000

// Verify checks one archived version without mutating anything: the
// artifact must exist, decode, carry the recorded row count, and (for
// hash-stable source formats) round-trip to the recorded content hash.
// Validation findings land in the result; an error return means the check
// itself could not run.
func (m *Manager) Verify(ctx context.Context, spec string, version int) (*model.ValidationResult, error) {
	path, v := ParsePathSpec(spec)
	if version == 0 {
		version = v
	}
	rec, err := m.resolveRecord(path, version)
	if err != nil {
		return nil, err
	}
	return m.verifyRecord(ctx, rec)
}

// VerifyAll validates every archive in the repository, in listing order.
func (m *Manager) VerifyAll(ctx context.Context) ([]model.ValidationResult, error) {
	recs, err := m.store.All()
	if err != nil {
		return nil, err
	}
	results := make([]model.ValidationResult, 0, len(recs))
	for _, rec := range recs {
		res, err := m.verifyRecord(ctx, rec)
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func (m *Manager) verifyRecord(ctx context.Context, rec *model.ArchiveRecord) (*model.ValidationResult, error) {
	res := &model.ValidationResult{OriginalPath: rec.OriginalPath, Version: rec.Version}
	defer func() {
		res.Passed = len(res.Issues) == 0
	}()

	if _, err := os.Stat(rec.StoragePath); err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("artifact missing: %s", rec.StoragePath))
		return res, nil
	}

	ds, err := dataset.FromParquet(rec.StoragePath)
	if err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("artifact unreadable: %v", err))
		return res, nil
	}

	if int64(ds.NumRows()) != rec.RowCount {
		res.Issues = append(res.Issues,
			fmt.Sprintf("row count mismatch: artifact holds %d rows, record says %d", ds.NumRows(), rec.RowCount))
	}
	if rec.Schema.ColumnCount > 0 && ds.NumCols() != rec.Schema.ColumnCount {
		res.Issues = append(res.Issues,
			fmt.Sprintf("column count mismatch: artifact holds %d columns, record says %d", ds.NumCols(), rec.Schema.ColumnCount))
	}

	if issue, err := m.roundTripIssue(ctx, rec); err != nil {
		return nil, err
	} else if issue != "" {
		res.Issues = append(res.Issues, issue)
	}

	res.Warnings = qualityWarnings(ds)
	return res, nil
}

// roundTripIssue decompresses the artifact into a scratch directory and
// hashes the result against the recorded content hash. Only hash-stable
// source formats gate this way; spreadsheet containers are covered by the
// row-count check.
func (m *Manager) roundTripIssue(ctx context.Context, rec *model.ArchiveRecord) (string, error) {
	ext := strings.ToLower(rec.OriginalExtension)
	switch ext {
	case ".csv", ".parquet", ".pq":
	default:
		return "", nil
	}

	scratch, err := os.MkdirTemp("", "frostbyte-verify-*")
	if err != nil {
		return "", &IOError{Op: "creating", Path: scratch, Err: err}
	}
	defer os.RemoveAll(scratch)

	restored := filepath.Join(scratch, "roundtrip"+ext)
	if err := m.codec.Decompress(ctx, rec.StoragePath, restored, nil); err != nil {
		return fmt.Sprintf("artifact failed to decompress: %v", err), nil
	}
	got, err := fileutil.Hash(restored)
	if err != nil {
		return "", err
	}
	if got != rec.ContentHash {
		return "round-trip content hash mismatch", nil
	}
	return "", nil
}

// qualityWarnings flags suspicious column contents in a bounded sample:
// columns that are entirely null, and columns more than half null.
func qualityWarnings(ds *dataset.Dataset) []string {
	limit := ds.NumRows()
	if limit > qualitySampleRows {
		limit = qualitySampleRows
	}
	if limit == 0 {
		return nil
	}

	var warnings []string
	for i := range ds.Columns {
		col := &ds.Columns[i]
		nulls := 0
		for j := 0; j < limit; j++ {
			if col.Values[j] == nil {
				nulls++
			}
		}
		switch {
		case nulls == limit:
			warnings = append(warnings, fmt.Sprintf("column %q contains only nulls", col.Name))
		case float64(nulls) > float64(limit)/2:
			warnings = append(warnings,
				fmt.Sprintf("column %q is %d%% null in the first %d rows", col.Name, nulls*100/limit, limit))
		}
	}
	return warnings
}
