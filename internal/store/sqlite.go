// Package store persists archive metadata in an embedded SQLite manifest.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"frostbyte/internal/frost"
	"frostbyte/internal/model"
	"frostbyte/internal/store/migrations"

	"github.com/mattn/go-sqlite3"
)

// ModeMemory opens a private in-memory manifest. Closing it destroys all
// data, so it is only suitable where the repository lives exactly as long
// as the process, such as tests.
const ModeMemory = ":memory:"

// ErrVersionConflict reports an insert that collided with an existing
// (path, version) row. Archiving one path from several processes at once is
// unsupported; the UNIQUE constraint turns such a race into this error
// rather than a silent overwrite.
var ErrVersionConflict = errors.New("archive version already exists")

const recordColumns = `id, original_path, version, created_at, content_hash,
	row_count, schema_json, compression_ratio, storage_path, original_extension`

// SQLiteStore implements the frost.MetadataStore interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens the manifest database at path, creating it and applying any
// pending schema migrations. path may be ModeMemory. A manifest written by
// a newer release is rejected rather than read with the wrong schema.
func Open(path string) (*SQLiteStore, error) {
	db, err := openConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating manifest schema: %w", err)
	}
	if err := migrations.CheckDBMigrationStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("manifest schema check: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// openConnection opens and configures a SQLite connection with the
// PRAGMAs the schema relies on.
func openConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite ships with foreign keys OFF for backward compatibility; the
	// column_stats cascade depends on them.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if path == ModeMemory {
		// Every pooled connection would otherwise see its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	}

	return db, nil
}

// Path returns the database file path (or ModeMemory).
func (s *SQLiteStore) Path() string {
	return s.path
}

// Record operations

func (s *SQLiteStore) Add(rec *model.ArchiveRecord, stats []model.ColumnStat) error {
	schemaJSON, err := json.Marshal(rec.Schema)
	if err != nil {
		return fmt.Errorf("encoding schema document: %w", err)
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO archives (
			id, original_path, version, created_at, content_hash,
			row_count, schema_json, compression_ratio, storage_path, original_extension
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.OriginalPath, rec.Version, rec.CreatedAt, rec.ContentHash,
		rec.RowCount, string(schemaJSON), rec.CompressionRatio, rec.StoragePath, rec.OriginalExtension,
	)
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("%w: %s version %d", ErrVersionConflict, rec.OriginalPath, rec.Version)
		}
		return fmt.Errorf("inserting archive record: %w", err)
	}

	for _, st := range stats {
		_, err = tx.Exec(`
			INSERT INTO column_stats (archive_id, column_name, min, max, mean, stddev)
			VALUES (?, ?, ?, ?, ?, ?)`,
			st.ArchiveID, st.ColumnName, st.Min, st.Max, st.Mean, st.StdDev,
		)
		if err != nil {
			return fmt.Errorf("inserting stats for column %s: %w", st.ColumnName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func (s *SQLiteStore) NextVersion(path string) (int, error) {
	var next int
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) + 1 FROM archives WHERE original_path = ?`,
		path,
	).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("allocating next version: %w", err)
	}
	return next, nil
}

func (s *SQLiteStore) Get(path string, version int) (*model.ArchiveRecord, error) {
	rec, err := s.getExact(path, version)
	if err != nil || rec != nil {
		return rec, err
	}

	// Archived paths are absolute; retry treating the spec as a bare
	// filename so callers can refer to archives from any directory.
	matches, err := s.pathsWithBasename(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return s.getExact(matches[0], version)
	default:
		return nil, &frost.AmbiguousMatchError{Spec: path, Candidates: matches}
	}
}

func (s *SQLiteStore) getExact(path string, version int) (*model.ArchiveRecord, error) {
	var row *sql.Row
	if version > 0 {
		row = s.db.QueryRow(
			`SELECT `+recordColumns+` FROM archives WHERE original_path = ? AND version = ?`,
			path, version,
		)
	} else {
		row = s.db.QueryRow(
			`SELECT `+recordColumns+` FROM archives WHERE original_path = ? ORDER BY version DESC LIMIT 1`,
			path,
		)
	}

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("loading archive record: %w", err)
	}
	return rec, nil
}

// pathsWithBasename returns the distinct archived paths whose filename is
// exactly name, in path order.
func (s *SQLiteStore) pathsWithBasename(name string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT original_path FROM archives ORDER BY original_path`)
	if err != nil {
		return nil, fmt.Errorf("listing archived paths: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning archived path: %w", err)
		}
		if filepath.Base(p) == name {
			matches = append(matches, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing archived paths: %w", err)
	}
	return matches, nil
}

func (s *SQLiteStore) FindByName(fragment string) ([]model.Candidate, error) {
	rows, err := s.db.Query(
		`SELECT original_path, version, storage_path FROM archives ORDER BY original_path, version`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	defer rows.Close()

	type pathEntry struct {
		latest    int
		artifacts []string
	}
	var order []string
	entries := map[string]*pathEntry{}
	for rows.Next() {
		var (
			path, storage string
			version       int
		)
		if err := rows.Scan(&path, &version, &storage); err != nil {
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		e, ok := entries[path]
		if !ok {
			e = &pathEntry{}
			entries[path] = e
			order = append(order, path)
		}
		if version > e.latest {
			e.latest = version
		}
		e.artifacts = append(e.artifacts, filepath.Base(storage))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}

	// Tiered match: exact basename, then path substring, then artifact
	// filename substring. The first tier with hits wins, so an exact name
	// is never diluted by looser matches.
	lower := strings.ToLower(fragment)
	tiers := []func(path string, e *pathEntry) bool{
		func(path string, _ *pathEntry) bool {
			return filepath.Base(path) == fragment
		},
		func(path string, _ *pathEntry) bool {
			return strings.Contains(strings.ToLower(path), lower)
		},
		func(_ string, e *pathEntry) bool {
			for _, name := range e.artifacts {
				if strings.Contains(strings.ToLower(name), lower) {
					return true
				}
			}
			return false
		},
	}

	for _, match := range tiers {
		var found []model.Candidate
		for _, path := range order {
			if match(path, entries[path]) {
				found = append(found, model.Candidate{
					OriginalPath:  path,
					LatestVersion: entries[path].latest,
				})
			}
		}
		if len(found) > 0 {
			return found, nil
		}
	}

	return nil, nil
}

func (s *SQLiteStore) Remove(path string, version int, all bool) (*model.RemoveResult, error) {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var rows *sql.Rows
	switch {
	case all:
		rows, err = tx.Query(
			`SELECT id, storage_path FROM archives WHERE original_path = ? ORDER BY version`,
			path,
		)
	case version > 0:
		rows, err = tx.Query(
			`SELECT id, storage_path FROM archives WHERE original_path = ? AND version = ?`,
			path, version,
		)
	default:
		rows, err = tx.Query(
			`SELECT id, storage_path FROM archives WHERE original_path = ? ORDER BY version DESC LIMIT 1`,
			path,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting archives to remove: %w", err)
	}

	var (
		ids   []any
		paths []string
	)
	for rows.Next() {
		var id, storage string
		if err := rows.Scan(&id, &storage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning archive row: %w", err)
		}
		ids = append(ids, id)
		paths = append(paths, storage)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("selecting archives to remove: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return &model.RemoveResult{}, nil
	}

	// Deleting by the selected ids keeps the returned paths consistent
	// with exactly the rows removed. The column_stats cascade cleans up
	// child rows.
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	if _, err := tx.Exec(`DELETE FROM archives WHERE id IN (`+placeholders+`)`, ids...); err != nil {
		return nil, fmt.Errorf("deleting archive records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	return &model.RemoveResult{Count: len(ids), StoragePaths: paths}, nil
}

// Listing operations

func (s *SQLiteStore) ListSummaries() ([]model.PathSummary, error) {
	recs, err := s.All()
	if err != nil {
		return nil, err
	}

	var (
		order     []string
		summaries = map[string]*model.PathSummary{}
		ratioSums = map[string]float64{}
	)
	for _, rec := range recs {
		sum, ok := summaries[rec.OriginalPath]
		if !ok {
			sum = &model.PathSummary{OriginalPath: rec.OriginalPath}
			summaries[rec.OriginalPath] = sum
			order = append(order, rec.OriginalPath)
		}

		original, compressed := derivedSizes(rec)
		sum.VersionCount++
		if rec.Version > sum.LatestVersion {
			sum.LatestVersion = rec.Version
		}
		if rec.CreatedAt.After(sum.LastArchivedAt) {
			sum.LastArchivedAt = rec.CreatedAt
		}
		sum.TotalOriginalBytes += original
		sum.TotalCompressedBytes += compressed
		sum.TotalRows += rec.RowCount
		ratioSums[rec.OriginalPath] += rec.CompressionRatio
	}

	out := make([]model.PathSummary, 0, len(order))
	for _, path := range order {
		sum := summaries[path]
		sum.AvgCompressionRatio = ratioSums[path] / float64(sum.VersionCount)
		out = append(out, *sum)
	}
	return out, nil
}

func (s *SQLiteStore) ListVersions(filter string) ([]model.VersionDetail, error) {
	recs, err := s.All()
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(filter)
	var details []model.VersionDetail
	for _, rec := range recs {
		if filter != "" && !strings.Contains(strings.ToLower(filepath.Base(rec.OriginalPath)), lower) {
			continue
		}
		original, compressed := derivedSizes(rec)
		details = append(details, model.VersionDetail{
			OriginalPath:        rec.OriginalPath,
			Version:             rec.Version,
			CreatedAt:           rec.CreatedAt,
			RowCount:            rec.RowCount,
			CompressionRatio:    rec.CompressionRatio,
			StoragePath:         rec.StoragePath,
			ArchiveFilename:     filepath.Base(rec.StoragePath),
			OriginalSizeBytes:   original,
			CompressedSizeBytes: compressed,
		})
	}
	return details, nil
}

func (s *SQLiteStore) All() ([]*model.ArchiveRecord, error) {
	return s.queryRecords(`SELECT ` + recordColumns + ` FROM archives ORDER BY original_path, version`)
}

// Statistics operations

func (s *SQLiteStore) Stats() (*model.RepoStats, error) {
	recs, err := s.All()
	if err != nil {
		return nil, err
	}

	stats := &model.RepoStats{TotalArchives: len(recs)}
	if len(recs) == 0 {
		return stats, nil
	}

	var ratioSum float64
	for _, rec := range recs {
		original, compressed := derivedSizes(rec)
		stats.TotalSizeSaved += original - compressed
		ratioSum += rec.CompressionRatio
	}
	stats.AvgCompressionRatio = ratioSum / float64(len(recs))
	return stats, nil
}

func (s *SQLiteStore) PathStats(path string) (*model.PathStats, error) {
	recs, err := s.queryRecords(
		`SELECT `+recordColumns+` FROM archives WHERE original_path = ? ORDER BY version`,
		path,
	)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil // Not found
	}

	stats := &model.PathStats{OriginalPath: path, VersionCount: len(recs)}
	for _, rec := range recs {
		if rec.Version > stats.LatestVersion {
			stats.LatestVersion = rec.Version
		}
		if rec.CreatedAt.After(stats.LastArchivedAt) {
			stats.LastArchivedAt = rec.CreatedAt
		}
		original, compressed := derivedSizes(rec)
		stats.SizeSaved += original - compressed
	}
	return stats, nil
}

// Lifecycle operations

// Initialize resets the manifest to an empty usable state. File-backed
// manifests are deleted and recreated, which also recovers from a corrupt
// database file; in-memory manifests are wiped row-wise.
func (s *SQLiteStore) Initialize() error {
	if s.path == ModeMemory {
		if _, err := s.db.Exec(`DELETE FROM archives`); err != nil {
			return fmt.Errorf("clearing archives: %w", err)
		}
		return nil
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing database file: %w", err)
	}

	db, err := openConnection(s.path)
	if err != nil {
		return err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return fmt.Errorf("migrating manifest schema: %w", err)
	}
	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// queryRecords runs a SELECT over the archives table and scans full records.
func (s *SQLiteStore) queryRecords(query string, args ...any) ([]*model.ArchiveRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying archives: %w", err)
	}
	defer rows.Close()

	var recs []*model.ArchiveRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning archive record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying archives: %w", err)
	}
	return recs, nil
}

// scanRecord scans one archives row, decoding the schema document from its
// JSON column.
func scanRecord(row interface{ Scan(dest ...any) error }) (*model.ArchiveRecord, error) {
	var (
		rec        model.ArchiveRecord
		schemaJSON string
	)
	err := row.Scan(
		&rec.ID, &rec.OriginalPath, &rec.Version, &rec.CreatedAt, &rec.ContentHash,
		&rec.RowCount, &schemaJSON, &rec.CompressionRatio, &rec.StoragePath, &rec.OriginalExtension,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(schemaJSON), &rec.Schema); err != nil {
		return nil, fmt.Errorf("decoding schema document: %w", err)
	}
	return &rec, nil
}

// derivedSizes reports a record's original and compressed byte sizes as the
// stored schema document and compression ratio describe them. The manifest
// never stores artifact sizes directly.
func derivedSizes(rec *model.ArchiveRecord) (original, compressed int64) {
	original = rec.Schema.OriginalSizeBytes()
	compressed = int64(math.Round(float64(original) * (1 - rec.CompressionRatio/100)))
	return original, compressed
}

// Compile-time check that SQLiteStore implements frost.MetadataStore
var _ frost.MetadataStore = (*SQLiteStore)(nil)
