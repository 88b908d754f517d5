// Package frost is the archive layer core: the manager orchestrating the
// archive, restore, purge, and verification pipelines, and the interfaces
// it is wired from.
package frost

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"frostbyte/internal/dataset"
	"frostbyte/internal/fileutil"
	"frostbyte/internal/model"
	"frostbyte/internal/repo"
	"frostbyte/internal/schema"
)

// largeFileThreshold is the source size above which archiving logs a
// heads-up that the conversion may take a while.
const largeFileThreshold = 10 << 20

// Manager coordinates the archive pipeline: path resolution, hashing,
// schema extraction, conversion, round-trip verification, and the metadata
// store.
type Manager struct {
	layout *repo.Layout
	store  MetadataStore
	codec  Codec
	ex     *schema.Extractor
	log    Logger
	clock  Clock
	ids    IDGenerator
}

// ManagerOptions overrides the manager's ambient dependencies. Zero values
// take defaults: a fresh extractor, a nop logger, the real clock, and
// random UUIDs.
type ManagerOptions struct {
	Extractor   *schema.Extractor
	Logger      Logger
	Clock       Clock
	IDGenerator IDGenerator
}

// NewManager wires a manager over an open store and codec.
func NewManager(layout *repo.Layout, store MetadataStore, codec Codec, opts ManagerOptions) *Manager {
	m := &Manager{
		layout: layout,
		store:  store,
		codec:  codec,
		ex:     opts.Extractor,
		log:    opts.Logger,
		clock:  opts.Clock,
		ids:    opts.IDGenerator,
	}
	if m.ex == nil {
		m.ex = schema.NewExtractor(0)
	}
	if m.log == nil {
		m.log = NewNopLogger()
	}
	if m.clock == nil {
		m.clock = RealClock{}
	}
	if m.ids == nil {
		m.ids = UUIDGenerator{}
	}
	return m
}

// Initialize resets the repository to an empty state: the directory
// structure is created if missing, every stored artifact is deleted, and
// the manifest is recreated. Destructive and idempotent.
func (m *Manager) Initialize() error {
	if err := m.layout.EnsureDirs(); err != nil {
		return err
	}
	if err := m.clearArtifacts(); err != nil {
		return err
	}
	if err := m.store.Initialize(); err != nil {
		return fmt.Errorf("resetting manifest: %w", err)
	}
	m.log.Info("initialized repository", "dir", m.layout.Dir())
	return nil
}

func (m *Manager) clearArtifacts() error {
	entries, err := os.ReadDir(m.layout.ArchivesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &IOError{Op: "reading", Path: m.layout.ArchivesDir(), Err: err}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(m.layout.ArchivesDir(), e.Name())
		if err := os.Remove(p); err != nil {
			m.log.Debug("could not remove artifact", "path", p, "error", err)
		}
	}
	return nil
}

// Archive converts the tabular file at path into a parquet artifact,
// verifies the artifact round-trips, and records the new version. The
// source file is left untouched. Verification failure removes the artifact
// and returns an IntegrityError without writing a record.
func (m *Manager) Archive(ctx context.Context, path string, progress ProgressFunc) (*model.ArchiveSummary, error) {
	start := m.clock.Now()

	src, err := fileutil.NormalizePath(path)
	if err != nil {
		return nil, &IOError{Op: "resolving", Path: path, Err: err}
	}
	info, err := os.Stat(src)
	if err != nil {
		return nil, &IOError{Op: "reading", Path: src, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &IOError{Op: "reading", Path: src, Err: errors.New("not a regular file")}
	}
	if !Supported(src) {
		return nil, &FormatError{
			Path:   src,
			Detail: fmt.Sprintf("unsupported source format %q (supported: %s)", filepath.Ext(src), strings.Join(SupportedExtensions(), ", ")),
		}
	}

	size := info.Size()
	if size >= largeFileThreshold {
		m.log.Info("archiving a large file, conversion may take a while",
			"path", src, "size", fileutil.FormatSize(size))
	}

	hash, err := fileutil.Hash(src)
	if err != nil {
		return nil, err
	}

	// Schema extraction is fail-soft: a degenerate document still archives.
	doc := m.ex.Extract(src)
	if doc.Error != "" {
		m.log.Warn("schema extraction failed", "path", src, "error", doc.Error)
	}

	version, err := m.store.NextVersion(src)
	if err != nil {
		return nil, err
	}
	artifact := m.layout.ArtifactPath(src, version)

	m.log.Debug("converting", "path", src, "version", version, "artifact", artifact)
	rows, err := m.codec.Compress(ctx, src, artifact, progress)
	if err != nil {
		return nil, err
	}

	artifactSize, err := fileutil.Size(artifact)
	if err != nil {
		os.Remove(artifact)
		return nil, err
	}
	ratio := compressionRatio(size, artifactSize)

	if err := m.verifyArtifact(ctx, src, artifact, version, hash, rows); err != nil {
		os.Remove(artifact)
		return nil, err
	}

	rec := &model.ArchiveRecord{
		ID:                m.ids.New(),
		OriginalPath:      src,
		Version:           version,
		CreatedAt:         start,
		ContentHash:       hash,
		RowCount:          rows,
		Schema:            doc,
		CompressionRatio:  ratio,
		StoragePath:       artifact,
		OriginalExtension: strings.ToLower(filepath.Ext(src)),
	}
	if err := m.store.Add(rec, model.StatsFromSchema(rec.ID, doc)); err != nil {
		os.Remove(artifact)
		return nil, fmt.Errorf("recording archive: %w", err)
	}

	m.log.Info("archived", "path", src, "version", version, "rows", rows,
		"ratio", fmt.Sprintf("%.1f%%", ratio))

	return &model.ArchiveSummary{
		OriginalPath:        src,
		Version:             version,
		OriginalSizeBytes:   size,
		CompressedSizeBytes: artifactSize,
		CompressionRatio:    ratio,
		RowCount:            rows,
		Elapsed:             m.clock.Now().Sub(start),
	}, nil
}

// verifyArtifact round-trips the freshly written artifact into a scratch
// directory and checks it reproduces the source. Delimited text and
// columnar sources must hash identically to the original; spreadsheet
// containers never round-trip byte for byte, so they gate on row-count
// parity instead.
func (m *Manager) verifyArtifact(ctx context.Context, src, artifact string, version int, srcHash string, rows int64) error {
	scratch, err := os.MkdirTemp("", "frostbyte-verify-*")
	if err != nil {
		return &IOError{Op: "creating", Path: scratch, Err: err}
	}
	defer os.RemoveAll(scratch)

	ext := strings.ToLower(filepath.Ext(src))
	restored := filepath.Join(scratch, "roundtrip"+ext)
	if err := m.codec.Decompress(ctx, artifact, restored, nil); err != nil {
		return &IntegrityError{Path: src, Version: version,
			Detail: fmt.Sprintf("artifact failed to decompress: %v", err)}
	}

	switch ext {
	case ".xls", ".xlsx", ".xlsm":
		sheetRows, err := dataset.ReadSheetRows(restored)
		if err != nil {
			return &IntegrityError{Path: src, Version: version,
				Detail: fmt.Sprintf("round-trip workbook unreadable: %v", err)}
		}
		data := int64(len(sheetRows)) - 1
		if data < 0 {
			data = 0
		}
		if data != rows {
			return &IntegrityError{Path: src, Version: version,
				Detail: fmt.Sprintf("round-trip row count mismatch: got %d, want %d", data, rows)}
		}
	default:
		got, err := fileutil.Hash(restored)
		if err != nil {
			return err
		}
		if got != srcHash {
			return &IntegrityError{Path: src, Version: version,
				Detail: "round-trip content hash mismatch"}
		}
	}
	return nil
}

// compressionRatio returns the percent of the original size the artifact
// saved. Negative when the artifact is larger than the source.
func compressionRatio(originalSize, artifactSize int64) float64 {
	if originalSize <= 0 {
		return 0
	}
	return (1 - float64(artifactSize)/float64(originalSize)) * 100
}

// estimateSizes derives display sizes for a stored archive from its schema
// document, falling back to the artifact's actual size when the document
// carries none. A 100% ratio cannot be inverted, so the artifact size then
// stands in for the original.
func (m *Manager) estimateSizes(rec *model.ArchiveRecord) (original, compressed int64) {
	original = rec.Schema.OriginalSizeBytes()
	if original > 0 {
		compressed = int64(math.Round(float64(original) * (1 - rec.CompressionRatio/100)))
		return original, compressed
	}
	artifactSize, err := fileutil.Size(rec.StoragePath)
	if err != nil {
		return 0, 0
	}
	if rec.CompressionRatio < 100 {
		original = int64(math.Round(float64(artifactSize) / (1 - rec.CompressionRatio/100)))
	} else {
		original = artifactSize
	}
	return original, artifactSize
}
