package frost

import (
	"os"

	"frostbyte/internal/model"
)

// Purge removes archived versions and their artifacts. By default only the
// latest version of the resolved path goes; an explicit version removes
// exactly that one, and all removes every version. Artifact unlinking is
// best effort: the metadata rows are gone either way.
func (m *Manager) Purge(spec string, version int, all bool) (*model.PurgeResult, error) {
	path, v := ParsePathSpec(spec)
	if version == 0 {
		version = v
	}

	resolveVersion := version
	if all {
		resolveVersion = 0
	}
	rec, err := m.resolveRecord(path, resolveVersion)
	if err != nil {
		return nil, err
	}

	res, err := m.store.Remove(rec.OriginalPath, version, all)
	if err != nil {
		return nil, err
	}

	removed := make([]string, 0, len(res.StoragePaths))
	for _, p := range res.StoragePaths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			m.log.Debug("could not remove artifact", "path", p, "error", err)
		}
		removed = append(removed, p)
	}

	m.log.Info("purged", "path", rec.OriginalPath, "count", res.Count)
	return &model.PurgeResult{Count: res.Count, RemovedPaths: removed}, nil
}
