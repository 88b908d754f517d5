package frost

import (
	"frostbyte/internal/fileutil"
	"frostbyte/internal/model"
)

// resolveRecord maps a user-supplied spec to exactly one archive record.
// The cascade, most specific first:
//
//  1. An artifact filename ("report_v3.parquet") names both the file and
//     its version; the version embedded in the name wins unless the caller
//     passed one explicitly.
//  2. An exact original path, or a bare filename matching one archived
//     path's basename (the store's fallback), at the requested version or
//     the latest.
//  3. With no version constraint, a fuzzy name search as a last resort.
//
// Anything matching no record returns NotFoundError; anything matching
// more than one path returns AmbiguousMatchError.
func (m *Manager) resolveRecord(spec string, version int) (*model.ArchiveRecord, error) {
	if _, v, ok := ParseArtifactName(spec); ok {
		if version == 0 {
			version = v
		}
		return m.resolveByName(spec, version)
	}

	// Relative paths resolve against the working directory, same as when
	// they were archived.
	path, err := fileutil.NormalizePath(spec)
	if err != nil {
		return nil, &IOError{Op: "resolving", Path: spec, Err: err}
	}
	rec, err := m.store.Get(path, version)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	if version > 0 {
		return nil, &NotFoundError{Spec: spec, Version: version}
	}
	return m.resolveByName(spec, 0)
}

// resolveByName resolves a spec through the store's tiered name search,
// requiring a unique hit.
func (m *Manager) resolveByName(spec string, version int) (*model.ArchiveRecord, error) {
	cands, err := m.store.FindByName(spec)
	if err != nil {
		return nil, err
	}
	switch len(cands) {
	case 0:
		return nil, &NotFoundError{Spec: spec, Version: version}
	case 1:
		rec, err := m.store.Get(cands[0].OriginalPath, version)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, &NotFoundError{Spec: spec, Version: version}
		}
		return rec, nil
	}
	paths := make([]string, len(cands))
	for i, c := range cands {
		paths[i] = c.OriginalPath
	}
	return nil, &AmbiguousMatchError{Spec: spec, Candidates: paths}
}
