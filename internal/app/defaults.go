package app

import (
	"fmt"
	"os"
)

// EnvRoot overrides the repository root directory.
const EnvRoot = "FROSTBYTE_ROOT"

// Root returns the directory the repository lives under, checking the
// FROSTBYTE_ROOT environment variable first and falling back to the
// current working directory.
func Root() (string, error) {
	if path := os.Getenv(EnvRoot); path != "" {
		return path, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	return wd, nil
}
