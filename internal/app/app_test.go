package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frostbyte/internal/config"
	"frostbyte/internal/repo"
)

func TestOpen_RequiresRepository(t *testing.T) {
	_, err := Open(t.TempDir(), "ls", false)
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("Open() error = %v, want ErrNotRepository", err)
	}
}

func TestInit_CreatesRepository(t *testing.T) {
	root := t.TempDir()

	a, err := Init(root, "init", false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer a.Close()

	if err := a.Manager().Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	layout := repo.New(root)
	if !layout.Exists() {
		t.Error("repository directory not created")
	}
	if _, err := os.Stat(layout.ConfigPath()); err != nil {
		t.Errorf("config file not created: %v", err)
	}
	if _, err := os.Stat(layout.DatabasePath()); err != nil {
		t.Errorf("manifest database not created: %v", err)
	}
	if _, err := os.Stat(layout.ArchivesDir()); err != nil {
		t.Errorf("archives directory not created: %v", err)
	}
}

func TestInit_KeepsExistingConfig(t *testing.T) {
	root := t.TempDir()

	a, err := Init(root, "init", false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	a.Close()

	// Edit the config and re-init: user settings must survive.
	layout := repo.New(root)
	cfg := config.Default()
	cfg.Logging.Level = "debug"
	if err := config.WriteFile(layout.ConfigPath(), cfg); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	b, err := Init(root, "init", false)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer b.Close()

	if b.Config().Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug (edited config replaced)", b.Config().Logging.Level)
	}
}

func TestOpen_ArchiveThroughWiring(t *testing.T) {
	root := t.TempDir()

	a, err := Init(root, "init", false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := a.Manager().Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	a.Close()

	src := filepath.Join(root, "sales.csv")
	if err := os.WriteFile(src, []byte("id,name\n1,A\n2,B\n"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	b, err := Open(root, "archive", false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	summary, err := b.Manager().Archive(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if summary.Version != 1 {
		t.Errorf("Version = %d, want 1", summary.Version)
	}
	if summary.RowCount != 2 {
		t.Errorf("RowCount = %d, want 2", summary.RowCount)
	}

	// The operation log should have recorded the archive.
	data, err := os.ReadFile(b.Layout().LogPath())
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "archive") {
		t.Errorf("operation log missing archive entry: %q", string(data))
	}
}

func TestOpen_RelativeDatabasePath(t *testing.T) {
	root := t.TempDir()

	a, err := Init(root, "init", false)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	a.Close()

	// Point the config at a custom relative database path.
	layout := repo.New(root)
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(repo.DirName, "alt.db")
	if err := config.WriteFile(layout.ConfigPath(), cfg); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	b, err := Open(root, "ls", false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer b.Close()

	if _, err := os.Stat(filepath.Join(root, repo.DirName, "alt.db")); err != nil {
		t.Errorf("database not created at the configured path: %v", err)
	}
}
