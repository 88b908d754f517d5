package frost

import "frostbyte/internal/model"

// MetadataStore provides an interface for archive metadata operations.
// All methods should be implemented with appropriate transaction handling.
type MetadataStore interface {
	// Record operations

	// Add inserts an archive record together with its column statistics
	// rows in a single transaction (all-or-nothing).
	Add(rec *model.ArchiveRecord, stats []model.ColumnStat) error

	// NextVersion returns the version number the next archive of path
	// should receive: one past the highest recorded version, or 1 for an
	// untracked path.
	NextVersion(path string) (int, error)

	// Get returns the record for path at version, or the latest version
	// when version is not positive. If no exact path matches, it retries
	// treating path as a bare filename; more than one match that way
	// yields an AmbiguousMatchError. A clean miss returns (nil, nil).
	Get(path string, version int) (*model.ArchiveRecord, error)

	// FindByName is a tiered fuzzy search: exact basename equality first,
	// then substring of the full path, then substring of the artifact
	// filename. The first tier with hits wins. Candidates carry each
	// matching path's latest version.
	FindByName(fragment string) ([]model.Candidate, error)

	// Remove deletes records for path: the given version when positive,
	// every version when all is set, otherwise only the latest. Returns
	// the artifact paths backing exactly the rows that were deleted.
	Remove(path string, version int, all bool) (*model.RemoveResult, error)

	// Listing operations

	// ListSummaries returns one row per archived path with all versions
	// folded into aggregate figures, ordered by path.
	ListSummaries() ([]model.PathSummary, error)

	// ListVersions returns one row per archived version whose basename
	// contains filter (every version when filter is empty), ordered by
	// path then version.
	ListVersions(filter string) ([]model.VersionDetail, error)

	// All returns every archive record across all paths and versions.
	All() ([]*model.ArchiveRecord, error)

	// Statistics operations

	// Stats aggregates repository-wide totals.
	Stats() (*model.RepoStats, error)

	// PathStats aggregates totals across all versions of one path.
	// A path with no archives returns (nil, nil).
	PathStats(path string) (*model.PathStats, error)

	// Lifecycle operations

	// Initialize resets the store to an empty state, dropping all
	// recorded archives.
	Initialize() error

	// Close closes the underlying database connection.
	Close() error
}
