// Package cli implements the stacklicense command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklicense/pkg/buildinfo"
	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/config"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
	"github.com/matzehuels/stacklicense/pkg/resolve"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "stacklicense"

	// artifactExt marks files that are decoded instead of resolved.
	artifactExt = ".bin"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// newRunner is swapped in tests to avoid spawning cargo.
	newRunner func() cargo.Runner
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:    newLogger(w, level),
		newRunner: func() cargo.Runner { return cargo.ExecRunner{} },
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Stacklicense collects the licenses of every crate compiled into a build",
		Long: `Stacklicense resolves the third-party crates that end up in a cargo build,
attaches their license text from the local registry sources and writes a
compressed artifact a program can embed and print at runtime.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Project Options
// =============================================================================

// projectFlags are the resolution settings shared by commands that run cargo.
type projectFlags struct {
	directives string
	cacheMode  string
	save       string
	redisURL   string
	github     bool
	noCache    bool
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.directives, "directives", "", "cargo flag fallback order, e.g. locked,default")
	cmd.Flags().StringVar(&f.cacheMode, "cache", "", "license cache behavior: all, global or disabled")
	cmd.Flags().StringVar(&f.save, "save", "", "where to save the license cache: global, local, repository, redis or none")
	cmd.Flags().StringVar(&f.redisURL, "redis", "", "redis URL of a shared license cache")
	cmd.Flags().BoolVar(&f.github, "github", false, "fetch licenses missing from the registry sources from GitHub")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "neither read nor write the license cache")
}

// loadConfig builds the configuration for the crate at path (a directory or
// Cargo.toml). Flags override the environment.
func (f *projectFlags) loadConfig(path string) (*config.Config, error) {
	b, err := config.FromManifest(path)
	if err != nil {
		return nil, err
	}
	if f.directives != "" {
		b = b.DirectivesString(f.directives)
	}
	if f.cacheMode != "" {
		b = b.CacheBehavior(f.cacheMode)
	}
	if f.save != "" {
		b = b.SaveLocation(f.save)
	}
	if f.redisURL != "" {
		b = b.RedisURL(f.redisURL)
	}
	if f.github {
		b = b.GitHubFallback(true, os.Getenv("GITHUB_TOKEN"))
	}
	if f.noCache {
		b = b.CacheBehavior(string(cache.Disabled)).SaveLocation(string(cache.SaveNone))
	}
	return b.Build()
}

// resolver creates a resolver wired to the CLI logger.
func (c *CLI) resolver(cfg *config.Config) (*resolve.Resolver, error) {
	return resolve.New(cfg,
		resolve.WithRunner(c.newRunner()),
		resolve.WithLogger(c.Logger),
	)
}

// resolveProject runs a full resolution for the crate at path.
func (c *CLI) resolveProject(ctx context.Context, flags *projectFlags, path string) (*resolve.Result, *config.Config, error) {
	cfg, err := flags.loadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	r, err := c.resolver(cfg)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	spin := newSpinnerWithContext(ctx, "Resolving "+cfg.PackageName)
	spin.Start()
	defer spin.Stop()
	restore := spin.trackStages()
	defer restore()

	res, err := r.Resolve(ctx)
	if err != nil {
		return nil, nil, err
	}
	return res, cfg, nil
}

// loadList returns the package list for target: a decoded artifact when
// target is a .bin file, a fresh resolution otherwise.
func (c *CLI) loadList(ctx context.Context, flags *projectFlags, target string) (pkglist.PackageList, error) {
	if isArtifact(target) {
		return readArtifact(target)
	}
	res, _, err := c.resolveProject(ctx, flags, target)
	if err != nil {
		return nil, err
	}
	return res.Packages, nil
}

func isArtifact(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), artifactExt) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readArtifact(path string) (pkglist.PackageList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read artifact %s", path)
	}
	return pkglist.Decode(data)
}

// =============================================================================
// Paths
// =============================================================================

// targetArg returns the first positional argument, defaulting to the
// working directory.
func targetArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return "."
}

// cacheDir returns the user cache directory (~/.cache/stacklicense/).
func cacheDir() (string, error) {
	return cache.DefaultDir()
}
