package config

import (
	"path/filepath"

	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Builder constructs a Config step by step. Setters that parse their
// input record failures, which [Builder.Build] reports together.
type Builder struct {
	cfg  Config
	errs []error
}

// NewBuilder returns a builder with flate compression and otherwise
// empty settings.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{Compression: pkglist.CompressionFlate}}
}

// Custom returns a builder for an explicit package name and manifest
// directory. cargoCmd may be empty to use "cargo" from PATH.
func Custom(packageName, manifestDir, cargoCmd string) *Builder {
	b := NewBuilder().PackageName(packageName).ManifestDir(manifestDir)
	if cargoCmd != "" {
		b.CargoCommand(cargoCmd)
	}
	return b
}

func (b *Builder) fail(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// PackageName sets the root crate name.
func (b *Builder) PackageName(name string) *Builder {
	b.cfg.PackageName = name
	return b
}

// ManifestDir sets the project directory. Relative paths are made
// absolute.
func (b *Builder) ManifestDir(dir string) *Builder {
	if dir == "" {
		b.cfg.ManifestDir = ""
		return b
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return b.fail(errors.Wrap(errors.ErrCodeInvalidConfig, err, "resolve manifest dir %q", dir))
	}
	b.cfg.ManifestDir = abs
	return b
}

// CargoCommand sets the cargo command line, split with shell rules
// (e.g. "cargo +nightly").
func (b *Builder) CargoCommand(line string) *Builder {
	argv, err := cargo.SplitCommand(line)
	if err != nil {
		return b.fail(err)
	}
	b.cfg.CargoCommand = argv
	return b
}

// CargoPath sets the cargo executable path verbatim, without splitting.
func (b *Builder) CargoPath(path string) *Builder {
	if path != "" {
		b.cfg.CargoCommand = []string{path}
	}
	return b
}

// CargoHome sets the cargo home directory.
func (b *Builder) CargoHome(dir string) *Builder {
	b.cfg.CargoHome = dir
	return b
}

// OutDir sets the build output directory.
func (b *Builder) OutDir(dir string) *Builder {
	b.cfg.OutDir = dir
	return b
}

// CacheDir sets the global cache directory.
func (b *Builder) CacheDir(dir string) *Builder {
	b.cfg.CacheDir = dir
	return b
}

// Directives sets the cargo directive order.
func (b *Builder) Directives(d cargo.DirectiveList) *Builder {
	b.cfg.Directives = d
	return b
}

// DirectivesString parses a directive list such as "prefer-locked" or
// "frozen,locked,default".
func (b *Builder) DirectivesString(s string) *Builder {
	d, err := cargo.ParseDirectives(s)
	if err != nil {
		return b.fail(err)
	}
	b.cfg.Directives = d
	return b
}

// CacheBehavior sets which stores are read.
func (b *Builder) CacheBehavior(s string) *Builder {
	v, err := cache.ParseBehavior(s)
	if err != nil {
		return b.fail(err)
	}
	b.cfg.CacheBehavior = v
	return b
}

// SaveLocation sets where the finalized list is cached.
func (b *Builder) SaveLocation(s string) *Builder {
	v, err := cache.ParseSaveLocation(s)
	if err != nil {
		return b.fail(err)
	}
	b.cfg.SaveLocation = v
	return b
}

// RedisURL enables the shared Redis store.
func (b *Builder) RedisURL(url string) *Builder {
	b.cfg.RedisURL = url
	return b
}

// ScanWorkers bounds concurrent registry reads.
func (b *Builder) ScanWorkers(n int) *Builder {
	b.cfg.ScanWorkers = n
	return b
}

// Compression sets the artifact codec by name ("flate", "zstd", "none").
func (b *Builder) Compression(s string) *Builder {
	c, err := pkglist.ParseCompression(s)
	if err != nil {
		return b.fail(err)
	}
	b.cfg.Compression = c
	return b
}

// GitHubFallback enables fetching licenses from GitHub for packages whose
// sources carry none. token may be empty for unauthenticated access.
func (b *Builder) GitHubFallback(enabled bool, token string) *Builder {
	b.cfg.GitHubFallback = enabled
	b.cfg.GitHubToken = token
	return b
}

// Extra appends packages that are added to the result verbatim.
func (b *Builder) Extra(pkgs ...pkglist.Package) *Builder {
	b.cfg.Extra = append(b.cfg.Extra, pkgs...)
	return b
}

// Build applies defaults, validates and returns the configuration.
// Every error recorded by a setter is reported.
func (b *Builder) Build() (*Config, error) {
	if err := errors.Join(errors.ErrCodeInvalidConfig, "invalid configuration", b.errs...); err != nil {
		return nil, err
	}
	cfg := b.cfg
	cfg.Extra = append(pkglist.PackageList(nil), b.cfg.Extra...)
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
