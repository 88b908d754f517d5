package frost

import (
	"fmt"
	"strings"
)

// FormatError reports a source or archive file that cannot be read as a
// supported tabular format. Legacy marks artifacts written by the old
// zstd-based archive layout, which this version no longer reads.
type FormatError struct {
	Path   string
	Detail string
	Legacy bool
}

func (e *FormatError) Error() string {
	if e.Legacy {
		return fmt.Sprintf("%s: legacy zstd archive from an older release; re-archive the source file", e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Detail)
}

// NotFoundError reports a path spec that matches no archived record.
type NotFoundError struct {
	Spec    string
	Version int
}

func (e *NotFoundError) Error() string {
	if e.Version > 0 {
		return fmt.Sprintf("no archive found for %q at version %d", e.Spec, e.Version)
	}
	return fmt.Sprintf("no archive found for %q", e.Spec)
}

// AmbiguousMatchError reports a bare filename spec that matches more than
// one archived path. Candidates holds the full paths so the caller can
// disambiguate.
type AmbiguousMatchError struct {
	Spec       string
	Candidates []string
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%q matches %d archived paths: %s", e.Spec, len(e.Candidates), strings.Join(e.Candidates, ", "))
}

// IntegrityError reports an archive whose artifact failed verification
// against the source file before the record was committed.
type IntegrityError struct {
	Path    string
	Version int
	Detail  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("verification failed for %s (version %d): %s", e.Path, e.Version, e.Detail)
}

// CorruptionError reports a restored file that failed validation against
// the stored record. The restored copy is removed before this is returned.
type CorruptionError struct {
	Path    string
	Version int
	Detail  string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("restored copy of %s (version %d) failed validation: %s", e.Path, e.Version, e.Detail)
}

// IOError wraps a filesystem failure with the operation and path for
// context. It unwraps to the underlying error.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
