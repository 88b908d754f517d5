// Package migrations embeds the manifest schema as golang-migrate SQL files
// and brings manifest databases up to the schema version built into the
// binary. migrate's Up silently accepts a database that is already ahead of
// the binary, so callers follow MigrateUp with CheckDBMigrationStatus to
// refuse manifests written by newer releases.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var schemaFS embed.FS

// MigrateUp applies every schema migration the binary embeds. A manifest
// already at the newest version is left as is.
func MigrateUp(db *sql.DB) error {
	m, err := migrator(db)
	if err != nil {
		return err
	}
	// m shares db with the caller and is deliberately not closed.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying schema migrations: %w", err)
	}
	return nil
}

// CheckDBMigrationStatus compares the manifest's schema version against the
// newest embedded migration and returns nil only when they match exactly.
func CheckDBMigrationStatus(db *sql.DB) error {
	m, err := migrator(db)
	if err != nil {
		return err
	}

	current, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return errors.New("manifest has no schema version (needs migration)")
	case err != nil:
		return fmt.Errorf("reading manifest schema version: %w", err)
	case dirty:
		return fmt.Errorf("manifest schema is dirty at version %d (a migration failed previously)", current)
	}

	newest, err := newestSchemaVersion()
	if err != nil {
		return err
	}
	switch {
	case current < newest:
		return fmt.Errorf("manifest schema at version %d is %d migrations behind the binary (latest %d)",
			current, newest-current, newest)
	case current > newest:
		return fmt.Errorf("manifest schema version %d is newer than this binary supports (%d); update frostbyte",
			current, newest)
	}
	return nil
}

// migrator wires the embedded schema files and the caller's connection into
// a migrate instance. The instance must not be closed: closing it would
// close db, which the caller owns.
func migrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(schemaFS, "files")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema files: %w", err)
	}

	drv, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("preparing sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", drv)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}
	return m, nil
}

// newestSchemaVersion reports the highest version among the embedded
// migration files, whose names follow migrate's NNN_name.up.sql convention.
func newestSchemaVersion() (uint, error) {
	entries, err := fs.ReadDir(schemaFS, "files")
	if err != nil {
		return 0, fmt.Errorf("reading embedded schema files: %w", err)
	}

	var newest uint64
	for _, entry := range entries {
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			continue
		}
		if v > newest {
			newest = v
		}
	}
	if newest == 0 {
		return 0, errors.New("no embedded schema files")
	}
	return uint(newest), nil
}
