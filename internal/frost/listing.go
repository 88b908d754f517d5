package frost

import "frostbyte/internal/model"

// ListSummaries returns one aggregate row per archived path.
func (m *Manager) ListSummaries() ([]model.PathSummary, error) {
	return m.store.ListSummaries()
}

// ListVersions returns one row per archived version, optionally filtered by
// a case-insensitive filename fragment.
func (m *Manager) ListVersions(filter string) ([]model.VersionDetail, error) {
	return m.store.ListVersions(filter)
}

// Stats aggregates across the whole repository.
func (m *Manager) Stats() (*model.RepoStats, error) {
	return m.store.Stats()
}

// PathStats aggregates across all versions of one path, resolved through
// the usual spec cascade.
func (m *Manager) PathStats(spec string) (*model.PathStats, error) {
	path, _ := ParsePathSpec(spec)
	rec, err := m.resolveRecord(path, 0)
	if err != nil {
		return nil, err
	}
	return m.store.PathStats(rec.OriginalPath)
}

// FindByName searches archived paths by name fragment.
func (m *Manager) FindByName(fragment string) ([]model.Candidate, error) {
	return m.store.FindByName(fragment)
}
