package cache

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const appName = "stacklicense"

// ProjectKey derives a stable file-name-safe key for a project directory.
func ProjectKey(manifestDir string) string {
	if abs, err := filepath.Abs(manifestDir); err == nil {
		manifestDir = abs
	}
	return strconv.FormatUint(xxhash.Sum64String(filepath.Clean(manifestDir)), 16)
}

// DefaultDir returns the user-level cache directory:
// $XDG_CACHE_HOME/stacklicense, falling back to ~/.cache/stacklicense.
func DefaultDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
