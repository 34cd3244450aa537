package license

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// CargoHome returns the cargo home directory: $CARGO_HOME when set,
// otherwise ~/.cargo. The directory must exist.
func CargoHome() (string, error) {
	dir := os.Getenv("CARGO_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeSourceRoot, err, "locate home directory")
		}
		dir = filepath.Join(home, ".cargo")
	}
	if err := requireDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// RegistryRoots lists the registry source roots under cargoHome
// (registry/src/*), sorted by name. A missing or non-directory
// registry/src fails with ErrCodeSourceRoot; an empty one yields no roots.
func RegistryRoots(cargoHome string) ([]string, error) {
	src := filepath.Join(cargoHome, "registry", "src")
	if err := requireDir(src); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSourceRoot, err, "read %s", src)
	}

	var roots []string
	for _, e := range entries {
		if e.IsDir() {
			roots = append(roots, filepath.Join(src, e.Name()))
		}
	}
	return roots, nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.New(errors.ErrCodeSourceRoot, "%s does not exist", path)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeSourceRoot, err, "stat %s", path)
	}
	if !info.IsDir() {
		return errors.New(errors.ErrCodeSourceRoot, "%s is not a directory", path)
	}
	return nil
}
