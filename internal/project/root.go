package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ManifestName is the project file FindManifest looks for.
const ManifestName = "fasmgo.toml"

// FindManifest returns the nearest fasmgo.toml in startDir or one of its
// parents. A missing manifest is not an error.
func FindManifest(startDir string) (string, bool, error) {
	dir, err := filepath.Abs(orDot(startDir))
	if err != nil {
		return "", false, fmt.Errorf("project: %w", err)
	}
	for prev := ""; dir != prev; prev, dir = dir, filepath.Dir(dir) {
		candidate := filepath.Join(dir, ManifestName)
		_, err := os.Stat(candidate)
		switch {
		case err == nil:
			return candidate, true, nil
		case !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("project: %w", err)
		}
	}
	return "", false, nil
}

func orDot(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
