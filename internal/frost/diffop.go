package frost

import (
	"fmt"
	"os"
	"path/filepath"

	"frostbyte/internal/dataset"
	"frostbyte/internal/diff"
)

// Diff compares two dataset specs without touching the working tree. A
// spec naming a readable file on disk loads directly; anything else
// resolves through the archive (path, bare name, artifact filename, or
// path@version) and reads the stored artifact in place.
func (m *Manager) Diff(specA, specB string, keyColumns []string) (*diff.Result, error) {
	a, err := m.loadDiffSource(specA)
	if err != nil {
		return nil, err
	}
	b, err := m.loadDiffSource(specB)
	if err != nil {
		return nil, err
	}

	for _, k := range keyColumns {
		if a.Column(k) == nil || b.Column(k) == nil {
			return nil, fmt.Errorf("key column %q is not present in both datasets", k)
		}
	}

	return diff.Diff(a, b, diff.Options{KeyColumns: keyColumns}), nil
}

func (m *Manager) loadDiffSource(spec string) (*dataset.Dataset, error) {
	if info, err := os.Stat(spec); err == nil && info.Mode().IsRegular() {
		if !Supported(spec) {
			return nil, &FormatError{Path: spec,
				Detail: fmt.Sprintf("unsupported source format %q", filepath.Ext(spec))}
		}
		return dataset.Load(spec)
	}

	path, version := ParsePathSpec(spec)
	rec, err := m.resolveRecord(path, version)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(rec.StoragePath); err != nil {
		return nil, &IOError{Op: "locating artifact", Path: rec.StoragePath, Err: err}
	}
	return dataset.FromParquet(rec.StoragePath)
}
