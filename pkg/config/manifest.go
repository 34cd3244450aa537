package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// ManifestName is the file name of a cargo manifest.
const ManifestName = "Cargo.toml"

type cargoFile struct {
	Package *struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"`
	} `toml:"package"`
}

// FindManifest resolves path, which may be a Cargo.toml file or a
// directory containing one, to the manifest file path.
func FindManifest(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidManifest, err, "manifest path %s", path)
	}
	if info.IsDir() {
		path = filepath.Join(path, ManifestName)
		info, err = os.Stat(path)
		if err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidManifest, err, "no %s in directory", ManifestName)
		}
	}
	if filepath.Base(path) != ManifestName || !info.Mode().IsRegular() {
		return "", errors.New(errors.ErrCodeInvalidManifest, "%s is not a %s file", path, ManifestName)
	}
	return path, nil
}

// ReadPackageName reads [package].name from a Cargo.toml.
func ReadPackageName(manifest string) (string, error) {
	data, err := os.ReadFile(manifest)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidManifest, err, "read %s", manifest)
	}
	var cf cargoFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", manifest)
	}
	if cf.Package == nil || cf.Package.Name == "" {
		return "", errors.New(errors.ErrCodeInvalidManifest, "%s has no [package] name (virtual workspace manifest?)", manifest)
	}
	return cf.Package.Name, nil
}

// FromManifest returns a builder for the crate whose manifest is at path
// (a Cargo.toml or its directory). OUT_DIR, CARGO_HOME and the
// STACKLICENSE_* variables are still honored from the environment.
func FromManifest(path string) (*Builder, error) {
	manifest, err := FindManifest(path)
	if err != nil {
		return nil, err
	}
	name, err := ReadPackageName(manifest)
	if err != nil {
		return nil, err
	}

	return applyEnv(Custom(name, filepath.Dir(manifest), ""), newEnvViper()), nil
}
