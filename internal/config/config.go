// Package config reads and writes the repository configuration file,
// .frostbyte/config.yaml.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath, when set, overrides where the configuration file is read
// from.
const EnvConfigPath = "FROSTBYTE_CONFIG"

// Config is the repository configuration.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig controls how artifacts are encoded.
type StorageConfig struct {
	Codec        string `yaml:"codec"`          // snappy, zstd, gzip, or uncompressed
	RowGroupSize int64  `yaml:"row_group_size"` // rows per parquet row group
	ChunkSize    int    `yaml:"chunk_size"`     // read-buffer bytes for line counting
}

// DatabaseConfig locates the manifest database. A relative path resolves
// against the repository root.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls operation log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, or error
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Codec:        "snappy",
			RowGroupSize: 100_000,
			ChunkSize:    1 << 20,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(".frostbyte", "manifest.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Read decodes a Config from the provided reader. Missing keys keep their
// default values.
func Read(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

// Load reads the configuration at path. A missing file is not an error:
// defaults apply.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// WriteFile writes a Config to the specified path, creating parent
// directories as needed.
func WriteFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	if err := Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file at path, refusing to overwrite one that
// already exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	return WriteFile(path, cfg)
}

// Path returns the effective config file location: the EnvConfigPath
// override when set, the given fallback otherwise.
func Path(fallback string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return fallback
}
