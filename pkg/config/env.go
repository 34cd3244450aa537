package config

import (
	"github.com/spf13/viper"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// Environment variables read by FromEnv. The CARGO* and OUT_DIR
// variables are set by cargo for build scripts.
const (
	EnvPackageName = "CARGO_PKG_NAME"
	EnvManifestDir = "CARGO_MANIFEST_DIR"
	EnvCargo       = "CARGO"
	EnvOutDir      = "OUT_DIR"
	EnvCargoHome   = "CARGO_HOME"

	EnvDirectives  = "STACKLICENSE_DIRECTIVES"
	EnvCache       = "STACKLICENSE_CACHE"
	EnvSave        = "STACKLICENSE_SAVE"
	EnvRedisURL    = "STACKLICENSE_REDIS_URL"
	EnvCompression = "STACKLICENSE_COMPRESSION"
	EnvScanWorkers = "STACKLICENSE_SCAN_WORKERS"
	EnvGitHub      = "STACKLICENSE_GITHUB"
	EnvGitHubToken = "GITHUB_TOKEN"
)

// newEnvViper binds every supported variable to a config key.
func newEnvViper() *viper.Viper {
	v := viper.New()
	bindings := map[string]string{
		"package_name": EnvPackageName,
		"manifest_dir": EnvManifestDir,
		"cargo":        EnvCargo,
		"out_dir":      EnvOutDir,
		"cargo_home":   EnvCargoHome,
		"directives":   EnvDirectives,
		"cache":        EnvCache,
		"save":         EnvSave,
		"redis_url":    EnvRedisURL,
		"compression":  EnvCompression,
		"scan_workers": EnvScanWorkers,
		"github":       EnvGitHub,
		"github_token": EnvGitHubToken,
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault("compression", "flate")
	v.SetDefault("scan_workers", 0)
	v.SetDefault("github", false)
	return v
}

// FromEnv returns a builder populated from the environment cargo provides
// to build scripts. CARGO_PKG_NAME and CARGO_MANIFEST_DIR are required;
// their absence is reported by Build.
func FromEnv() *Builder {
	v := newEnvViper()
	b := NewBuilder()
	for _, req := range [][2]string{{"package_name", EnvPackageName}, {"manifest_dir", EnvManifestDir}} {
		if v.GetString(req[0]) == "" {
			b.fail(errors.New(errors.ErrCodeInvalidConfig, "environment variable %s is not set (not running under cargo?)", req[1]))
		}
	}
	b.PackageName(v.GetString("package_name")).
		ManifestDir(v.GetString("manifest_dir")).
		CargoPath(v.GetString("cargo"))
	return applyEnv(b, v)
}

// applyEnv copies the optional settings from v into b.
func applyEnv(b *Builder, v *viper.Viper) *Builder {
	b.OutDir(v.GetString("out_dir")).
		CargoHome(v.GetString("cargo_home")).
		RedisURL(v.GetString("redis_url")).
		ScanWorkers(v.GetInt("scan_workers")).
		Compression(v.GetString("compression")).
		GitHubFallback(v.GetBool("github"), v.GetString("github_token"))

	if s := v.GetString("directives"); s != "" {
		b.DirectivesString(s)
	}
	if s := v.GetString("cache"); s != "" {
		b.CacheBehavior(s)
	}
	if s := v.GetString("save"); s != "" {
		b.SaveLocation(s)
	}
	return b
}
