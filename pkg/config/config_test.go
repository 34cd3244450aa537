package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// isolateEnv points CARGO_HOME and XDG_CACHE_HOME at temporary
// directories and clears the variables FromEnv reads.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(EnvCargoHome, home)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	for _, env := range []string{
		EnvPackageName, EnvManifestDir, EnvCargo, EnvOutDir,
		EnvDirectives, EnvCache, EnvSave, EnvRedisURL,
		EnvCompression, EnvScanWorkers, EnvGitHub, EnvGitHubToken,
	} {
		t.Setenv(env, "")
	}
	return home
}

func TestBuildDefaults(t *testing.T) {
	home := isolateEnv(t)

	cfg, err := Custom("my-app", "/work/app", "").Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !slices.Equal(cfg.CargoCommand, []string{"cargo"}) {
		t.Errorf("CargoCommand = %v", cfg.CargoCommand)
	}
	if !slices.Equal(cfg.Directives, cargo.DefaultDirectives()) {
		t.Errorf("Directives = %v", cfg.Directives)
	}
	if cfg.CacheBehavior != cache.CheckAll || cfg.SaveLocation != cache.SaveGlobal {
		t.Errorf("cache = %s / %s", cfg.CacheBehavior, cfg.SaveLocation)
	}
	if cfg.CargoHome != home {
		t.Errorf("CargoHome = %q, want %q", cfg.CargoHome, home)
	}
	if cfg.Compression != pkglist.CompressionFlate {
		t.Errorf("Compression = %s", cfg.Compression)
	}
	if cfg.ScanWorkers < 1 {
		t.Errorf("ScanWorkers = %d", cfg.ScanWorkers)
	}
	if cfg.CacheDir == "" {
		t.Error("CacheDir should default to the user cache dir")
	}
}

func TestBuildSetters(t *testing.T) {
	isolateEnv(t)

	cfg, err := Custom("app", "/work/app", "cargo +nightly").
		DirectivesString("prefer-frozen").
		CacheBehavior("global").
		SaveLocation("repository").
		Compression("zstd").
		ScanWorkers(3).
		Extra(pkglist.Package{Name: "sqlite", Version: "3.45.0"}).
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if !slices.Equal(cfg.CargoCommand, []string{"cargo", "+nightly"}) {
		t.Errorf("CargoCommand = %v", cfg.CargoCommand)
	}
	if !slices.Equal(cfg.Directives, cargo.PreferFrozen()) {
		t.Errorf("Directives = %v", cfg.Directives)
	}
	if cfg.CacheBehavior != cache.GlobalOnly || cfg.SaveLocation != cache.SaveRepository {
		t.Errorf("cache = %s / %s", cfg.CacheBehavior, cfg.SaveLocation)
	}
	if cfg.Compression != pkglist.CompressionZstd || cfg.ScanWorkers != 3 || len(cfg.Extra) != 1 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestBuildReportsEveryError(t *testing.T) {
	isolateEnv(t)

	_, err := Custom("app", "/work/app", "").
		DirectivesString("sometimes").
		CacheBehavior("maybe").
		Build()
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("Build() error = %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"sometimes", "maybe"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %q", msg, want)
		}
	}
}

func TestValidate(t *testing.T) {
	isolateEnv(t)

	tests := []struct {
		name string
		b    *Builder
	}{
		{"missing name", Custom("", "/work/app", "")},
		{"bad name", Custom("../etc", "/work/app", "")},
		{"missing dir", Custom("app", "", "")},
		{"redis without url", Custom("app", "/work/app", "").SaveLocation("redis")},
		{"duplicate extra", Custom("app", "/work/app", "").Extra(
			pkglist.Package{Name: "zlib", Version: "1.3"},
			pkglist.Package{Name: "zlib", Version: "1.3"},
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.b.Build(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("Build() error = %v, want %s", err, errors.ErrCodeInvalidConfig)
			}
		})
	}
}

func TestBuildMissingCargoHome(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvCargoHome, filepath.Join(t.TempDir(), "missing"))

	cfg, err := Custom("app", "/work/app", "").Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if cfg.CargoHome != "" {
		t.Errorf("CargoHome = %q, want empty", cfg.CargoHome)
	}
}

func TestFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvPackageName, "my_app")
	t.Setenv(EnvManifestDir, "/work/my-app")
	t.Setenv(EnvCargo, "/opt/rust/bin/cargo")
	t.Setenv(EnvOutDir, "/work/my-app/target/debug/build/out")
	t.Setenv(EnvDirectives, "prefer-locked")
	t.Setenv(EnvSave, "local")
	t.Setenv(EnvGitHub, "true")
	t.Setenv(EnvGitHubToken, "ghp_test")

	cfg, err := FromEnv().Build()
	if err != nil {
		t.Fatalf("FromEnv().Build() error: %v", err)
	}
	if cfg.PackageName != "my_app" || cfg.ManifestDir != "/work/my-app" {
		t.Errorf("identity = %q %q", cfg.PackageName, cfg.ManifestDir)
	}
	if !slices.Equal(cfg.CargoCommand, []string{"/opt/rust/bin/cargo"}) {
		t.Errorf("CargoCommand = %v", cfg.CargoCommand)
	}
	if cfg.OutDir != "/work/my-app/target/debug/build/out" {
		t.Errorf("OutDir = %q", cfg.OutDir)
	}
	if !slices.Equal(cfg.Directives, cargo.PreferLocked()) || cfg.SaveLocation != cache.SaveLocal {
		t.Errorf("directives %v, save %s", cfg.Directives, cfg.SaveLocation)
	}
	if !cfg.GitHubFallback || cfg.GitHubToken != "ghp_test" {
		t.Errorf("github = %v %q", cfg.GitHubFallback, cfg.GitHubToken)
	}
}

func TestFromEnvMissing(t *testing.T) {
	isolateEnv(t)
	if _, err := FromEnv().Build(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("Build() error = %v", err)
	}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestFromManifest(t *testing.T) {
	isolateEnv(t)
	dir := writeManifest(t, `
[package]
name = "flicense"
version.workspace = true

[dependencies]
serde = "1"
`)

	for _, path := range []string{dir, filepath.Join(dir, ManifestName)} {
		b, err := FromManifest(path)
		if err != nil {
			t.Fatalf("FromManifest(%s) error: %v", path, err)
		}
		cfg, err := b.Build()
		if err != nil {
			t.Fatalf("Build() error: %v", err)
		}
		if cfg.PackageName != "flicense" || cfg.ManifestDir != dir {
			t.Errorf("FromManifest(%s) = %q in %q", path, cfg.PackageName, cfg.ManifestDir)
		}
	}
}

func TestFromManifestErrors(t *testing.T) {
	isolateEnv(t)

	workspace := writeManifest(t, "[workspace]\nmembers = [\"a\"]\n")
	broken := writeManifest(t, "[package\nname = ")
	other := t.TempDir()
	notManifest := filepath.Join(other, "README.md")
	if err := os.WriteFile(notManifest, []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	for name, path := range map[string]string{
		"virtual workspace": workspace,
		"invalid toml":      broken,
		"no manifest":       other,
		"wrong file":        notManifest,
		"missing path":      filepath.Join(other, "nope"),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := FromManifest(path); !errors.Is(err, errors.ErrCodeInvalidManifest) {
				t.Errorf("FromManifest() error = %v, want %s", err, errors.ErrCodeInvalidManifest)
			}
		})
	}
}

func TestIsRootName(t *testing.T) {
	cfg := &Config{PackageName: "my-crate"}
	if !cfg.IsRootName("my_crate") || !cfg.IsRootName("my-crate") {
		t.Error("'-' and '_' should be equivalent")
	}
	if cfg.IsRootName("license") {
		t.Error("prefix must not match")
	}
}

func TestCacheLocations(t *testing.T) {
	cfg := &Config{PackageName: "app", ManifestDir: "/work/app", OutDir: "/out", CacheDir: "/cache"}
	loc, err := cfg.CacheLocations()
	if err != nil {
		t.Fatal(err)
	}
	if loc.Redis != nil || loc.OutDir != "/out" || loc.GlobalDir != "/cache" {
		t.Errorf("CacheLocations() = %+v", loc)
	}

	cfg.RedisURL = "redis://localhost:6379/0"
	loc, err = cfg.CacheLocations()
	if err != nil {
		t.Fatal(err)
	}
	if loc.Redis == nil || loc.Redis.Key() != "stacklicense:licenses:app" {
		t.Errorf("Redis store = %+v", loc.Redis)
	}

	cfg.RedisURL = "://bad"
	if _, err := cfg.CacheLocations(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("CacheLocations() with bad url: %v", err)
	}
}
