// Package config assembles the settings of a resolution run.
//
// A [Config] is normally created in one of two ways:
//
//	// Inside a cargo build (build.rs wrapper, CI step): read the
//	// environment variables cargo exports.
//	cfg, err := config.FromEnv().Build()
//
//	// From a project on disk, e.g. for the CLI.
//	b, err := config.FromManifest("path/to/Cargo.toml")
//	cfg, err := b.Directives(cargo.PreferLocked()).Build()
//
// Unset fields get defaults in [Builder.Build]; the result is validated
// before it is returned.
package config

import (
	"runtime"
	"strings"

	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/license"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Config holds everything a resolution run needs.
type Config struct {
	// PackageName is the crate being built. It selects the root package.
	PackageName string
	// ManifestDir is the directory holding the crate's Cargo.toml.
	ManifestDir string
	// CargoCommand is the argv prefix used to run cargo.
	CargoCommand []string
	// CargoHome is the cargo home holding registry/src.
	CargoHome string
	// OutDir is the build output directory (OUT_DIR), if any.
	OutDir string
	// CacheDir is the user-level cache directory for the global store.
	CacheDir string

	Directives    cargo.DirectiveList
	CacheBehavior cache.Behavior
	SaveLocation  cache.SaveLocation
	RedisURL      string

	// ScanWorkers bounds concurrent registry reads.
	ScanWorkers int
	// Compression is the artifact codec. The zero value stores the list
	// uncompressed; [NewBuilder] starts from flate.
	Compression pkglist.Compression

	// GitHubFallback enables fetching missing licenses from GitHub.
	GitHubFallback bool
	GitHubToken    string

	// Extra packages are appended to the result as is, for dependencies
	// cargo does not know about (vendored C code, system libraries).
	Extra pkglist.PackageList
}

// SetDefaults fills unset fields. CargoHome is inferred with
// [license.CargoHome] and left empty when that fails; the registry is only
// needed once a scan has packages left to find.
func (c *Config) SetDefaults() error {
	if len(c.CargoCommand) == 0 {
		c.CargoCommand = []string{"cargo"}
	}
	if len(c.Directives) == 0 {
		c.Directives = cargo.DefaultDirectives()
	}
	if c.CacheBehavior == "" {
		c.CacheBehavior = cache.CheckAll
	}
	if c.SaveLocation == "" {
		c.SaveLocation = cache.SaveGlobal
	}
	if c.ScanWorkers <= 0 {
		c.ScanWorkers = runtime.NumCPU()
	}
	if c.CacheDir == "" {
		if dir, err := cache.DefaultDir(); err == nil {
			c.CacheDir = dir
		}
	}
	if c.CargoHome == "" {
		if home, err := license.CargoHome(); err == nil {
			c.CargoHome = home
		}
	}
	return nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.PackageName == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "package name is required")
	}
	if err := errors.ValidateCratesPackageName(c.PackageName); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid package name")
	}
	if c.ManifestDir == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "manifest directory is required")
	}
	if len(c.CargoCommand) == 0 || c.CargoCommand[0] == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cargo command is empty")
	}
	if c.SaveLocation == cache.SaveRedis && c.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "cache save location is redis but no redis url is set")
	}
	seen := make(map[string]bool, len(c.Extra))
	for _, p := range c.Extra {
		if err := errors.ValidatePackageName(p.Name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid extra package")
		}
		if seen[p.NameVersion()] {
			return errors.New(errors.ErrCodeInvalidConfig, "extra package %s listed twice", p.NameVersion())
		}
		seen[p.NameVersion()] = true
	}
	return nil
}

// CacheLocations returns the store locations for this project. When a
// Redis URL is configured a client is opened for the shared store, keyed
// by package name.
func (c *Config) CacheLocations() (cache.Locations, error) {
	loc := cache.Locations{
		ManifestDir: c.ManifestDir,
		OutDir:      c.OutDir,
		GlobalDir:   c.CacheDir,
	}
	if c.RedisURL != "" {
		client, err := cache.OpenRedis(c.RedisURL)
		if err != nil {
			return loc, err
		}
		loc.Redis = cache.NewRedisStore(client, c.PackageName, 0)
	}
	return loc, nil
}

// IsRootName reports whether name refers to the configured package.
// Cargo treats '-' and '_' in crate names as equivalent.
func (c *Config) IsRootName(name string) bool {
	return NormalizeName(name) == NormalizeName(c.PackageName)
}

// NormalizeName maps a crate name to the form used for comparisons.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
