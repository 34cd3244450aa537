package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
	"github.com/matzehuels/stacklicense/pkg/resolve"
)

type generateOpts struct {
	project projectFlags
	out     string
	watch   bool
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "Resolve a crate and write its license artifact",
		Long: `Generate resolves the crates compiled into the build of the crate at path
(default: the current directory), attaches their license text and writes the
compressed package list.

The artifact goes to --out, else $OUT_DIR/LICENSE-3RD-PARTY.bin, else
./LICENSE-3RD-PARTY.bin. With --watch, generation reruns whenever
Cargo.toml or Cargo.lock changes.`,
		Example: `  # Inside a build script wrapper
  stacklicense generate

  # Prefer the lockfile, fall back to a plain resolve
  stacklicense generate ./my-crate --directives locked,default -o licenses.bin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := targetArg(args)
			if !opts.watch {
				path, err := c.runGenerate(cmd.Context(), &opts, target)
				if err != nil {
					return err
				}
				printNewline()
				printNextStep("Inspect", appName+" show "+path+" --short")
				return nil
			}
			return c.watchGenerate(cmd.Context(), &opts, target)
		},
	}

	opts.project.register(cmd)
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "artifact path")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "regenerate when Cargo.toml or Cargo.lock changes")

	return cmd
}

// runGenerate resolves target, writes the artifact and saves the cache.
// It returns the artifact path.
func (c *CLI) runGenerate(ctx context.Context, opts *generateOpts, target string) (string, error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	cfg, err := opts.project.loadConfig(target)
	if err != nil {
		return "", err
	}
	r, err := c.resolver(cfg)
	if err != nil {
		return "", err
	}
	defer r.Close()

	spin := newSpinnerWithContext(ctx, "Resolving "+cfg.PackageName)
	spin.Start()
	restore := spin.trackStages()
	res, err := r.Resolve(ctx)
	restore()
	if err != nil {
		spin.StopWithError("Resolution failed: " + errors.UserMessage(err))
		return "", err
	}
	spin.Stop()

	if res.TreeErr != nil {
		printWarning("cargo tree failed, the list may include crates that are not compiled")
		printDetail("%v", res.TreeErr)
	}

	data, err := pkglist.EncodeWith(res.Packages, cfg.Compression)
	if err != nil {
		return "", err
	}

	path := artifactPath(opts.out, cfg.OutDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidPath, err, "create output directory")
	}
	if err := cache.WriteFileAtomic(path, data); err != nil {
		return "", err
	}

	if err := r.Save(ctx, res.Packages); err != nil {
		// The artifact is already written; a failed save only costs a rescan.
		printWarning("license cache not saved: %s", errors.UserMessage(err))
	}

	prog.done("Generated license list for " + cfg.PackageName)
	printListStats(res.Packages.Stats(), res.FallbackHits)
	raw := rawSize(res.Packages)
	printSuccess("Wrote %s", path)
	printDetail("%s %s, %s uncompressed", formatBytes(len(data)), cfg.Compression, formatBytes(raw))
	logger.Debug("artifact written",
		"path", path,
		"compressed", len(data),
		"raw", raw,
		"cache_outcome", res.CacheOutcome,
		"cache_hits", res.CacheHits,
		"scanned", res.Scan.Found,
	)
	warnMissing(res)
	return path, nil
}

// artifactPath picks the output file: the flag, then OUT_DIR, then the
// working directory.
func artifactPath(out, outDir string) string {
	switch {
	case out != "":
		return out
	case outDir != "":
		return filepath.Join(outDir, cache.ArtifactName)
	}
	return cache.ArtifactName
}

// rawSize is the size of the uncompressed artifact, for reporting.
func rawSize(list pkglist.PackageList) int {
	data, err := pkglist.EncodeWith(list, pkglist.CompressionNone)
	if err != nil {
		return 0
	}
	return len(data)
}

func warnMissing(res *resolve.Result) {
	var missing []string
	for _, p := range res.Packages.Dependencies() {
		if !p.HasLicenseText() {
			missing = append(missing, p.NameVersion())
		}
	}
	if len(missing) == 0 {
		return
	}
	printWarning("%d packages have no license text", len(missing))
	for _, nv := range missing {
		printDetail("%s", nv)
	}
}
