package frost_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"frostbyte/internal/codec"
	"frostbyte/internal/frost"
	"frostbyte/internal/model"
	"frostbyte/internal/repo"
	"frostbyte/internal/testutil"
)

// fixture bundles a manager over a temporary repository with a data
// directory for source files.
type fixture struct {
	m      *frost.Manager
	layout *repo.Layout
	clock  *testutil.StubClock
	dir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := t.TempDir()
	layout := repo.New(root)
	if err := layout.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}

	c, err := codec.New(codec.Config{}, nil)
	if err != nil {
		t.Fatalf("codec.New() error = %v", err)
	}

	clock := testutil.FixedClock()
	m := frost.NewManager(layout, testutil.NewTestStore(t), c, frost.ManagerOptions{
		Clock:       clock,
		IDGenerator: testutil.NewStubIDGenerator(),
	})

	dir := filepath.Join(root, "data")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating data dir: %v", err)
	}
	return &fixture{m: m, layout: layout, clock: clock, dir: dir}
}

// archiveCSV writes a CSV fixture and archives it, advancing the clock so
// successive versions carry distinct timestamps.
func (f *fixture) archiveCSV(t *testing.T, name string, lines ...string) (*model.ArchiveSummary, string) {
	t.Helper()

	path := testutil.WriteCSV(t, f.dir, name, lines...)
	sum, err := f.m.Archive(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Archive(%s) error = %v", path, err)
	}
	f.clock.Advance(time.Minute)
	return sum, path
}

var salesV1 = []string{"id,name,value", "1,A,10", "2,B,20", "3,C,30"}

func TestManager_Archive(t *testing.T) {
	t.Run("first archive is version 1", func(t *testing.T) {
		f := newFixture(t)

		sum, path := f.archiveCSV(t, "sales.csv", salesV1...)

		if sum.Version != 1 {
			t.Errorf("Version = %d, want 1", sum.Version)
		}
		if sum.RowCount != 3 {
			t.Errorf("RowCount = %d, want 3", sum.RowCount)
		}
		if sum.OriginalPath != path {
			t.Errorf("OriginalPath = %q, want %q", sum.OriginalPath, path)
		}
		info, err := os.Stat(f.layout.ArtifactPath(path, 1))
		if err != nil {
			t.Fatalf("artifact missing: %v", err)
		}
		if info.Size() != sum.CompressedSizeBytes {
			t.Errorf("CompressedSizeBytes = %d, want artifact size %d", sum.CompressedSizeBytes, info.Size())
		}
	})

	t.Run("re-archiving increments the version", func(t *testing.T) {
		f := newFixture(t)

		_, path := f.archiveCSV(t, "sales.csv", salesV1...)
		sum, _ := f.archiveCSV(t, "sales.csv", append(salesV1, "4,D,40")...)

		if sum.Version != 2 {
			t.Errorf("second Version = %d, want 2", sum.Version)
		}
		for v := 1; v <= 2; v++ {
			if _, err := os.Stat(f.layout.ArtifactPath(path, v)); err != nil {
				t.Errorf("artifact for version %d missing: %v", v, err)
			}
		}
	})

	t.Run("source file stays in place", func(t *testing.T) {
		f := newFixture(t)

		_, path := f.archiveCSV(t, "sales.csv", salesV1...)

		if _, err := os.Stat(path); err != nil {
			t.Errorf("source file gone after archive: %v", err)
		}
	})

	t.Run("rejects unsupported formats", func(t *testing.T) {
		f := newFixture(t)
		path := testutil.WriteFile(t, f.dir, "notes.txt", "not tabular\n")

		_, err := f.m.Archive(context.Background(), path, nil)
		var fmtErr *frost.FormatError
		if !errors.As(err, &fmtErr) {
			t.Fatalf("Archive(.txt) error = %v, want FormatError", err)
		}
	})

	t.Run("rejects a missing source", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.m.Archive(context.Background(), filepath.Join(f.dir, "absent.csv"), nil)
		var ioErr *frost.IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("Archive(missing) error = %v, want IOError", err)
		}
	})

	t.Run("archives a parquet source byte for byte", func(t *testing.T) {
		f := newFixture(t)

		_, path := f.archiveCSV(t, "sales.csv", salesV1...)
		src, err := os.ReadFile(f.layout.ArtifactPath(path, 1))
		if err != nil {
			t.Fatalf("reading artifact: %v", err)
		}
		snapshot := filepath.Join(f.dir, "snapshot.parquet")
		if err := os.WriteFile(snapshot, src, 0644); err != nil {
			t.Fatalf("writing parquet source: %v", err)
		}

		sum, err := f.m.Archive(context.Background(), snapshot, nil)
		if err != nil {
			t.Fatalf("Archive(parquet) error = %v", err)
		}
		if sum.RowCount != 3 {
			t.Errorf("RowCount = %d, want 3", sum.RowCount)
		}

		// Corrupt the source, restore, and expect the exact original bytes.
		if err := os.WriteFile(snapshot, []byte("garbage"), 0644); err != nil {
			t.Fatalf("overwriting source: %v", err)
		}
		if _, err := f.m.Restore(context.Background(), "snapshot.parquet", 0, nil); err != nil {
			t.Fatalf("Restore(parquet) error = %v", err)
		}
		restored, err := os.ReadFile(snapshot)
		if err != nil {
			t.Fatalf("reading restored file: %v", err)
		}
		if string(restored) != string(src) {
			t.Error("restored parquet differs from the archived source")
		}
	})

	t.Run("archives a workbook by row parity", func(t *testing.T) {
		f := newFixture(t)
		path := testutil.WriteWorkbook(t, f.dir, "metrics.xlsx", [][]string{
			{"region", "total"},
			{"north", "12"},
			{"south", "7"},
		})

		sum, err := f.m.Archive(context.Background(), path, nil)
		if err != nil {
			t.Fatalf("Archive(xlsx) error = %v", err)
		}
		if sum.Version != 1 || sum.RowCount != 2 {
			t.Errorf("summary = v%d %d rows, want v1 2 rows", sum.Version, sum.RowCount)
		}
	})

	t.Run("reports progress up to completion", func(t *testing.T) {
		f := newFixture(t)
		path := testutil.WriteCSV(t, f.dir, "sales.csv", salesV1...)

		var last float64
		calls := 0
		_, err := f.m.Archive(context.Background(), path, func(fr float64) {
			if fr < last {
				t.Errorf("progress went backwards: %v after %v", fr, last)
			}
			last = fr
			calls++
		})
		if err != nil {
			t.Fatalf("Archive() error = %v", err)
		}
		if calls == 0 || last != 1 {
			t.Errorf("progress calls = %d ending at %v, want at least one ending at 1", calls, last)
		}
	})
}

// corruptingCodec wraps a real codec and tampers with every decompressed
// file, so archive-time verification must fail.
type corruptingCodec struct {
	frost.Codec
}

func (c corruptingCodec) Decompress(ctx context.Context, src, dst string, progress frost.ProgressFunc) error {
	if err := c.Codec.Decompress(ctx, src, dst, progress); err != nil {
		return err
	}
	fh, err := os.OpenFile(dst, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer fh.Close()
	_, err = fh.WriteString("tampered\n")
	return err
}

func TestManager_Archive_VerificationFailure(t *testing.T) {
	root := t.TempDir()
	layout := repo.New(root)
	if err := layout.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs() error = %v", err)
	}
	real, err := codec.New(codec.Config{}, nil)
	if err != nil {
		t.Fatalf("codec.New() error = %v", err)
	}
	m := frost.NewManager(layout, testutil.NewTestStore(t), corruptingCodec{real}, frost.ManagerOptions{})

	path := testutil.WriteCSV(t, root, "sales.csv", salesV1...)
	_, err = m.Archive(context.Background(), path, nil)

	var intErr *frost.IntegrityError
	if !errors.As(err, &intErr) {
		t.Fatalf("Archive() error = %v, want IntegrityError", err)
	}
	if _, err := os.Stat(layout.ArtifactPath(path, 1)); !os.IsNotExist(err) {
		t.Error("failed archive left its artifact behind")
	}
	rows, err := m.ListVersions("")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("failed archive left %d records behind, want 0", len(rows))
	}
}

func TestManager_Restore(t *testing.T) {
	v1Content := strings.Join(salesV1, "\n") + "\n"

	seed := func(t *testing.T) (*fixture, string) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)
		f.archiveCSV(t, "sales.csv", append(salesV1, "4,D,40")...)
		return f, path
	}

	t.Run("restores an old version byte for byte", func(t *testing.T) {
		f, path := seed(t)

		sum, err := f.m.Restore(context.Background(), path, 1, nil)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if sum.Version != 1 || sum.RowCount != 3 {
			t.Errorf("summary = v%d %d rows, want v1 3 rows", sum.Version, sum.RowCount)
		}
		if !sum.ArchivedAt.Equal(testutil.FixedClock().Now()) {
			t.Errorf("ArchivedAt = %v, want the archive timestamp", sum.ArchivedAt)
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("reading restored file: %v", err)
		}
		if string(got) != v1Content {
			t.Errorf("restored content = %q, want original v1 bytes", got)
		}
	})

	t.Run("defaults to the latest version", func(t *testing.T) {
		f, path := seed(t)
		if err := os.Remove(path); err != nil {
			t.Fatalf("removing source: %v", err)
		}

		sum, err := f.m.Restore(context.Background(), path, 0, nil)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if sum.Version != 2 || sum.RowCount != 4 {
			t.Errorf("summary = v%d %d rows, want v2 4 rows", sum.Version, sum.RowCount)
		}
	})

	t.Run("resolves a bare filename", func(t *testing.T) {
		f, _ := seed(t)

		sum, err := f.m.Restore(context.Background(), "sales.csv", 0, nil)
		if err != nil {
			t.Fatalf("Restore(bare name) error = %v", err)
		}
		if sum.Version != 2 {
			t.Errorf("Version = %d, want latest", sum.Version)
		}
	})

	t.Run("version suffix in the spec", func(t *testing.T) {
		f, path := seed(t)

		sum, err := f.m.Restore(context.Background(), path+"@1", 0, nil)
		if err != nil {
			t.Fatalf("Restore(@1) error = %v", err)
		}
		if sum.Version != 1 {
			t.Errorf("Version = %d, want 1", sum.Version)
		}
	})

	t.Run("artifact filename restores the version it names", func(t *testing.T) {
		f, path := seed(t)

		sum, err := f.m.Restore(context.Background(), "sales_v1.parquet", 0, nil)
		if err != nil {
			t.Fatalf("Restore(artifact name) error = %v", err)
		}
		if sum.Version != 1 {
			t.Fatalf("Version = %d, want the version embedded in the name", sum.Version)
		}
		got, _ := os.ReadFile(path)
		if string(got) != v1Content {
			t.Error("restored content is not version 1")
		}
	})

	t.Run("explicit version overrides the artifact suffix", func(t *testing.T) {
		f, _ := seed(t)

		sum, err := f.m.Restore(context.Background(), "sales_v1.parquet", 2, nil)
		if err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if sum.Version != 2 {
			t.Errorf("Version = %d, want 2", sum.Version)
		}
	})

	t.Run("recreates a missing parent directory", func(t *testing.T) {
		f, path := seed(t)
		if err := os.RemoveAll(filepath.Dir(path)); err != nil {
			t.Fatalf("removing data dir: %v", err)
		}

		if _, err := f.m.Restore(context.Background(), path, 0, nil); err != nil {
			t.Fatalf("Restore() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("restored file missing: %v", err)
		}
	})

	t.Run("unknown spec is not found", func(t *testing.T) {
		f, _ := seed(t)

		_, err := f.m.Restore(context.Background(), "absent.csv", 0, nil)
		var nfErr *frost.NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("Restore(absent) error = %v, want NotFoundError", err)
		}
	})

	t.Run("unknown version is not found", func(t *testing.T) {
		f, path := seed(t)

		_, err := f.m.Restore(context.Background(), path, 9, nil)
		var nfErr *frost.NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("Restore(v9) error = %v, want NotFoundError", err)
		}
		if nfErr.Version != 9 {
			t.Errorf("NotFoundError.Version = %d, want 9", nfErr.Version)
		}
	})

	t.Run("ambiguous basename lists candidates", func(t *testing.T) {
		f := newFixture(t)
		for _, sub := range []string{"a", "b"} {
			dir := filepath.Join(f.dir, sub)
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatalf("creating %s: %v", dir, err)
			}
			p := testutil.WriteCSV(t, dir, "data.csv", "id,v", "1,x")
			if _, err := f.m.Archive(context.Background(), p, nil); err != nil {
				t.Fatalf("Archive(%s) error = %v", p, err)
			}
		}

		_, err := f.m.Restore(context.Background(), "data.csv", 0, nil)
		var ambErr *frost.AmbiguousMatchError
		if !errors.As(err, &ambErr) {
			t.Fatalf("Restore(ambiguous) error = %v, want AmbiguousMatchError", err)
		}
		if len(ambErr.Candidates) != 2 {
			t.Errorf("Candidates = %v, want both archived paths", ambErr.Candidates)
		}
	})

	t.Run("missing artifact file", func(t *testing.T) {
		f, path := seed(t)
		if err := os.Remove(f.layout.ArtifactPath(path, 2)); err != nil {
			t.Fatalf("removing artifact: %v", err)
		}

		_, err := f.m.Restore(context.Background(), path, 2, nil)
		var ioErr *frost.IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("Restore() error = %v, want IOError", err)
		}
	})
}

func TestManager_Restore_CorruptionDetected(t *testing.T) {
	f := newFixture(t)
	_, pathA := f.archiveCSV(t, "a.csv", "id,v", "1,x", "2,y")
	_, pathB := f.archiveCSV(t, "b.csv", "id,v", "1,x")

	// Swap b's artifact in behind a's record: the decompressed row count no
	// longer matches a's record.
	swapped, err := os.ReadFile(f.layout.ArtifactPath(pathB, 1))
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	if err := os.WriteFile(f.layout.ArtifactPath(pathA, 1), swapped, 0644); err != nil {
		t.Fatalf("overwriting artifact: %v", err)
	}

	_, err = f.m.Restore(context.Background(), pathA, 1, nil)
	var corErr *frost.CorruptionError
	if !errors.As(err, &corErr) {
		t.Fatalf("Restore() error = %v, want CorruptionError", err)
	}
	if _, err := os.Stat(pathA); !os.IsNotExist(err) {
		t.Error("corrupt restore left the restored file behind")
	}
}

func TestManager_Purge(t *testing.T) {
	seed := func(t *testing.T) (*fixture, string) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)
		f.archiveCSV(t, "sales.csv", append(salesV1, "4,D,40")...)
		f.archiveCSV(t, "sales.csv", append(salesV1, "4,D,40", "5,E,50")...)
		return f, path
	}

	versionsOf := func(t *testing.T, f *fixture) []int {
		t.Helper()
		rows, err := f.m.ListVersions("")
		if err != nil {
			t.Fatalf("ListVersions() error = %v", err)
		}
		var vs []int
		for _, r := range rows {
			vs = append(vs, r.Version)
		}
		return vs
	}

	t.Run("default removes only the latest", func(t *testing.T) {
		f, path := seed(t)

		res, err := f.m.Purge(path, 0, false)
		if err != nil {
			t.Fatalf("Purge() error = %v", err)
		}
		if res.Count != 1 {
			t.Errorf("Count = %d, want 1", res.Count)
		}
		if got := versionsOf(t, f); len(got) != 2 || got[0] != 1 || got[1] != 2 {
			t.Errorf("remaining versions = %v, want [1 2]", got)
		}
		if _, err := os.Stat(f.layout.ArtifactPath(path, 3)); !os.IsNotExist(err) {
			t.Error("purged artifact still on disk")
		}
		if _, err := os.Stat(f.layout.ArtifactPath(path, 1)); err != nil {
			t.Error("purge removed an artifact it should have kept")
		}
	})

	t.Run("specific version leaves its neighbors", func(t *testing.T) {
		f, path := seed(t)

		res, err := f.m.Purge(path, 2, false)
		if err != nil {
			t.Fatalf("Purge() error = %v", err)
		}
		if res.Count != 1 || len(res.RemovedPaths) != 1 {
			t.Errorf("result = %+v, want one removal", res)
		}
		if got := versionsOf(t, f); len(got) != 2 || got[0] != 1 || got[1] != 3 {
			t.Errorf("remaining versions = %v, want [1 3]", got)
		}
	})

	t.Run("all versions", func(t *testing.T) {
		f, path := seed(t)

		res, err := f.m.Purge(path, 0, true)
		if err != nil {
			t.Fatalf("Purge() error = %v", err)
		}
		if res.Count != 3 {
			t.Errorf("Count = %d, want 3", res.Count)
		}
		if got := versionsOf(t, f); len(got) != 0 {
			t.Errorf("remaining versions = %v, want none", got)
		}
		for v := 1; v <= 3; v++ {
			if _, err := os.Stat(f.layout.ArtifactPath(path, v)); !os.IsNotExist(err) {
				t.Errorf("artifact v%d still on disk", v)
			}
		}
	})

	t.Run("version allocation stays max plus one", func(t *testing.T) {
		f, path := seed(t)

		// Purging an interior version never frees its number.
		if _, err := f.m.Purge(path, 2, false); err != nil {
			t.Fatalf("Purge(v2) error = %v", err)
		}
		sum, err := f.m.Archive(context.Background(), path, nil)
		if err != nil {
			t.Fatalf("Archive() error = %v", err)
		}
		if sum.Version != 4 {
			t.Errorf("Version after interior purge = %d, want 4", sum.Version)
		}
	})

	t.Run("unknown path is not found", func(t *testing.T) {
		f, _ := seed(t)

		_, err := f.m.Purge("absent.csv", 0, false)
		var nfErr *frost.NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("Purge(absent) error = %v, want NotFoundError", err)
		}
	})
}

func TestManager_Diff(t *testing.T) {
	t.Run("archived versions compare without restoring", func(t *testing.T) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)
		f.archiveCSV(t, "sales.csv", append(salesV1, "4,D,40")...)

		res, err := f.m.Diff(path+"@1", path+"@2", nil)
		if err != nil {
			t.Fatalf("Diff() error = %v", err)
		}
		if res.Positional {
			t.Error("expected keyed comparison on the id column")
		}
		if res.RowsAdded != 1 || res.RowsRemoved != 0 || res.RowsModified != 0 {
			t.Errorf("counts = (%d, %d, %d), want (1, 0, 0)",
				res.RowsAdded, res.RowsRemoved, res.RowsModified)
		}
	})

	t.Run("on-disk file against an archive", func(t *testing.T) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)

		// Change one cell in the working copy.
		testutil.WriteCSV(t, f.dir, "sales.csv", "id,name,value", "1,A,10", "2,B,25", "3,C,30")

		res, err := f.m.Diff(path+"@1", path, nil)
		if err != nil {
			t.Fatalf("Diff() error = %v", err)
		}
		if res.RowsModified != 1 || res.ColumnDiffCounts["value"] != 1 {
			t.Errorf("diff = %d modified %v, want one changed value cell",
				res.RowsModified, res.ColumnDiffCounts)
		}
	})

	t.Run("rejects a key column missing from either side", func(t *testing.T) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)

		_, err := f.m.Diff(path+"@1", path+"@1", []string{"absent"})
		if err == nil || !strings.Contains(err.Error(), "key column") {
			t.Fatalf("Diff() error = %v, want key column complaint", err)
		}
	})

	t.Run("unknown spec is not found", func(t *testing.T) {
		f := newFixture(t)
		f.archiveCSV(t, "sales.csv", salesV1...)

		_, err := f.m.Diff("absent.csv", "sales.csv", nil)
		var nfErr *frost.NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("Diff(absent) error = %v, want NotFoundError", err)
		}
	})
}

func TestManager_Verify(t *testing.T) {
	t.Run("clean archive passes", func(t *testing.T) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)

		res, err := f.m.Verify(context.Background(), path, 0)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !res.Passed || len(res.Issues) != 0 {
			t.Errorf("result = %+v, want a pass", res)
		}
	})

	t.Run("truncated artifact fails", func(t *testing.T) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)

		if err := os.Truncate(f.layout.ArtifactPath(path, 1), 10); err != nil {
			t.Fatalf("truncating artifact: %v", err)
		}
		res, err := f.m.Verify(context.Background(), path, 0)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if res.Passed || len(res.Issues) == 0 {
			t.Errorf("result = %+v, want failure with issues", res)
		}
	})

	t.Run("missing artifact fails", func(t *testing.T) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sales.csv", salesV1...)

		if err := os.Remove(f.layout.ArtifactPath(path, 1)); err != nil {
			t.Fatalf("removing artifact: %v", err)
		}
		res, err := f.m.Verify(context.Background(), path, 0)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if res.Passed {
			t.Error("verification passed with the artifact missing")
		}
	})

	t.Run("null-heavy columns warn without failing", func(t *testing.T) {
		f := newFixture(t)
		_, path := f.archiveCSV(t, "sparse.csv", "id,note", "1,", "2,", "3,")

		res, err := f.m.Verify(context.Background(), path, 0)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !res.Passed {
			t.Fatalf("result = %+v, want a pass (warnings only)", res)
		}
		found := false
		for _, w := range res.Warnings {
			if strings.Contains(w, "note") && strings.Contains(w, "null") {
				found = true
			}
		}
		if !found {
			t.Errorf("Warnings = %v, want an all-null note column warning", res.Warnings)
		}
	})

	t.Run("verify all covers every record", func(t *testing.T) {
		f := newFixture(t)
		_, pathA := f.archiveCSV(t, "a.csv", "id,v", "1,x")
		f.archiveCSV(t, "b.csv", "id,v", "1,x", "2,y")

		if err := os.Truncate(f.layout.ArtifactPath(pathA, 1), 4); err != nil {
			t.Fatalf("truncating artifact: %v", err)
		}

		results, err := f.m.VerifyAll(context.Background())
		if err != nil {
			t.Fatalf("VerifyAll() error = %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("VerifyAll() returned %d results, want 2", len(results))
		}
		failed := 0
		for _, r := range results {
			if !r.Passed {
				failed++
			}
		}
		if failed != 1 {
			t.Errorf("failed results = %d, want exactly the truncated one", failed)
		}
	})
}

func TestManager_Listings(t *testing.T) {
	f := newFixture(t)
	_, path := f.archiveCSV(t, "sales.csv", salesV1...)
	f.archiveCSV(t, "sales.csv", append(salesV1, "4,D,40")...)
	f.archiveCSV(t, "daily.csv", "day,total", "mon,5")

	t.Run("summaries fold versions per path", func(t *testing.T) {
		sums, err := f.m.ListSummaries()
		if err != nil {
			t.Fatalf("ListSummaries() error = %v", err)
		}
		if len(sums) != 2 {
			t.Fatalf("ListSummaries() = %d rows, want 2", len(sums))
		}
		for _, s := range sums {
			if filepath.Base(s.OriginalPath) == "sales.csv" && s.VersionCount != 2 {
				t.Errorf("sales VersionCount = %d, want 2", s.VersionCount)
			}
		}
	})

	t.Run("stats aggregate the repository", func(t *testing.T) {
		stats, err := f.m.Stats()
		if err != nil {
			t.Fatalf("Stats() error = %v", err)
		}
		if stats.TotalArchives != 3 {
			t.Errorf("TotalArchives = %d, want 3", stats.TotalArchives)
		}
	})

	t.Run("path stats resolve a bare name", func(t *testing.T) {
		stats, err := f.m.PathStats("sales.csv")
		if err != nil {
			t.Fatalf("PathStats() error = %v", err)
		}
		if stats.OriginalPath != path || stats.VersionCount != 2 || stats.LatestVersion != 2 {
			t.Errorf("PathStats() = %+v, want 2 versions of %s", stats, path)
		}
	})

	t.Run("find by fragment", func(t *testing.T) {
		cands, err := f.m.FindByName("sales")
		if err != nil {
			t.Fatalf("FindByName() error = %v", err)
		}
		if len(cands) != 1 || cands[0].LatestVersion != 2 {
			t.Errorf("FindByName(sales) = %v, want one candidate at v2", cands)
		}
	})
}

func TestManager_Initialize(t *testing.T) {
	f := newFixture(t)
	_, path := f.archiveCSV(t, "sales.csv", salesV1...)

	if err := f.m.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	rows, err := f.m.ListVersions("")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("records after Initialize = %d, want 0", len(rows))
	}
	if _, err := os.Stat(f.layout.ArtifactPath(path, 1)); !os.IsNotExist(err) {
		t.Error("artifact survived Initialize")
	}

	// Idempotent, and the repository is immediately usable again.
	if err := f.m.Initialize(); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	sum, err := f.m.Archive(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Archive() after Initialize error = %v", err)
	}
	if sum.Version != 1 {
		t.Errorf("Version after Initialize = %d, want a fresh 1", sum.Version)
	}
}

// TestManager_VersionLifecycle walks the documented three-version scenario
// end to end: archive, evolve, diff, purge.
func TestManager_VersionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// v1: three rows.
	_, path := f.archiveCSV(t, "sales.csv", "id,name,value", "1,A,10", "2,B,20", "3,C,30")
	// v2: one appended row.
	f.archiveCSV(t, "sales.csv", "id,name,value", "1,A,10", "2,B,20", "3,C,30", "4,D,40")
	// v3: name column dropped, one value changed.
	f.archiveCSV(t, "sales.csv", "id,value", "1,10", "2,25", "3,30", "4,40")

	d12, err := f.m.Diff(path+"@1", path+"@2", nil)
	if err != nil {
		t.Fatalf("Diff(v1, v2) error = %v", err)
	}
	if d12.RowsAdded != 1 || d12.RowsRemoved != 0 || d12.RowsModified != 0 {
		t.Errorf("v1->v2 = (%d, %d, %d), want one added row",
			d12.RowsAdded, d12.RowsRemoved, d12.RowsModified)
	}
	if len(d12.SchemaChanges) != 0 {
		t.Errorf("v1->v2 SchemaChanges = %v, want none", d12.SchemaChanges)
	}

	d23, err := f.m.Diff(path+"@2", path+"@3", nil)
	if err != nil {
		t.Fatalf("Diff(v2, v3) error = %v", err)
	}
	if len(d23.SchemaChanges) != 1 || !strings.Contains(d23.SchemaChanges[0], "Removed column: name") {
		t.Errorf("v2->v3 SchemaChanges = %v, want the removed name column", d23.SchemaChanges)
	}
	if d23.RowsModified != 1 || d23.ColumnDiffCounts["value"] != 1 || d23.TotalCellsChanged != 1 {
		t.Errorf("v2->v3 = %d modified, %v, %d cells, want exactly one changed value",
			d23.RowsModified, d23.ColumnDiffCounts, d23.TotalCellsChanged)
	}

	if _, err := f.m.Purge(path, 2, false); err != nil {
		t.Fatalf("Purge(v2) error = %v", err)
	}
	rows, err := f.m.ListVersions("")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	var remaining []int
	for _, r := range rows {
		remaining = append(remaining, r.Version)
	}
	if len(remaining) != 2 || remaining[0] != 1 || remaining[1] != 3 {
		t.Fatalf("versions after purge = %v, want [1 3]", remaining)
	}

	if _, err := f.m.Restore(ctx, path, 2, nil); err == nil {
		t.Error("Restore(v2) after purge succeeded, want not found")
	}

	// v1 and v3 still restore cleanly.
	if _, err := f.m.Restore(ctx, path, 1, nil); err != nil {
		t.Errorf("Restore(v1) error = %v", err)
	}
	if _, err := f.m.Restore(ctx, path, 3, nil); err != nil {
		t.Errorf("Restore(v3) error = %v", err)
	}
}
