// Package repo manages the on-disk layout of a frostbyte repository:
// a .frostbyte directory holding the manifest database, archived parquet
// artifacts, the configuration file, and the operation log.
//
//	<root>/
//	  .frostbyte/
//	    manifest.db      (archive metadata, SQLite)
//	    config.yaml      (repository configuration)
//	    frostbyte.log    (operation log)
//	    archives/
//	      <stem>_v<n>.parquet
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DirName is the repository directory created under the working root.
	DirName = ".frostbyte"

	databaseName = "manifest.db"
	archivesName = "archives"
	configName   = "config.yaml"
	logName      = "frostbyte.log"
)

// Layout resolves the paths of a repository rooted at a working directory.
type Layout struct {
	root string
}

// New returns the layout for a repository rooted at root.
func New(root string) *Layout {
	return &Layout{root: filepath.Clean(root)}
}

// Root returns the working directory the repository lives under.
func (l *Layout) Root() string { return l.root }

// Dir returns the repository directory.
func (l *Layout) Dir() string { return filepath.Join(l.root, DirName) }

// DatabasePath returns the path of the manifest database.
func (l *Layout) DatabasePath() string { return filepath.Join(l.Dir(), databaseName) }

// ArchivesDir returns the directory holding parquet artifacts.
func (l *Layout) ArchivesDir() string { return filepath.Join(l.Dir(), archivesName) }

// ConfigPath returns the path of the repository configuration file.
func (l *Layout) ConfigPath() string { return filepath.Join(l.Dir(), configName) }

// LogPath returns the path of the operation log file.
func (l *Layout) LogPath() string { return filepath.Join(l.Dir(), logName) }

// Exists reports whether the repository directory is present.
func (l *Layout) Exists() bool {
	info, err := os.Stat(l.Dir())
	return err == nil && info.IsDir()
}

// EnsureDirs creates the repository directory structure if missing.
func (l *Layout) EnsureDirs() error {
	if err := os.MkdirAll(l.ArchivesDir(), 0755); err != nil {
		return fmt.Errorf("creating archives directory: %w", err)
	}
	return nil
}

// Remove deletes the repository directory and everything under it.
func (l *Layout) Remove() error {
	if err := os.RemoveAll(l.Dir()); err != nil {
		return fmt.Errorf("removing repository directory: %w", err)
	}
	return nil
}

// ArtifactPath returns where the artifact for a source path at the given
// version is stored: archives/<stem>_v<version>.parquet, where stem is the
// source filename without its extension.
func (l *Layout) ArtifactPath(originalPath string, version int) string {
	base := filepath.Base(originalPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(l.ArchivesDir(), fmt.Sprintf("%s_v%d.parquet", stem, version))
}
