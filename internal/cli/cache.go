package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/config"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/httputil"
)

// Subdirectories of the user cache directory.
const (
	licenseCacheDir = "licenses"
	httpCacheDir    = "http"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the license and HTTP caches",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var (
		repository bool
		redisURL   string
	)

	cmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Clear cached licenses and HTTP responses",
		Long: `Without a path, clear removes every cached license list and HTTP response
from the user cache directory. With a path, only the caches of that crate are
cleared: its global entry, its repository cache with --repository and its
Redis entry with --redis.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if len(args) == 0 {
				return clearAll(dir)
			}

			manifest, err := config.FindManifest(args[0])
			if err != nil {
				return err
			}
			project := filepath.Dir(manifest)

			stores := []*cache.FileStore{cache.GlobalStore(dir, project)}
			if repository {
				stores = append(stores, cache.RepositoryStore(project))
			}
			for _, s := range stores {
				if err := s.Clear(); err != nil {
					return errors.Wrap(errors.ErrCodeCacheWrite, err, "clear %s cache", s.Name())
				}
				printSuccess("Cleared %s cache", s.Name())
				printDetail("%s", s.Path())
			}

			if redisURL != "" {
				name, err := config.ReadPackageName(manifest)
				if err != nil {
					return err
				}
				client, err := cache.OpenRedis(redisURL)
				if err != nil {
					return err
				}
				store := cache.NewRedisStore(client, name, 0)
				defer store.Close()
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
				printSuccess("Cleared redis cache")
				printDetail("%s", store.Key())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repository, "repository", false, "also remove the committed repository cache")
	cmd.Flags().StringVar(&redisURL, "redis", "", "also clear the crate's entry in this redis")

	return cmd
}

// clearAll removes the cached license lists and HTTP responses under dir.
func clearAll(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is empty")
		return nil
	}

	licenses, err := filepath.Glob(filepath.Join(dir, licenseCacheDir, "*.bin"))
	if err != nil {
		return err
	}
	for _, path := range licenses {
		if err := os.Remove(path); err != nil {
			return errors.Wrap(errors.ErrCodeCacheWrite, err, "remove %s", path)
		}
	}

	responses, _ := filepath.Glob(filepath.Join(dir, httpCacheDir, "*.json"))
	hc, err := httputil.NewCache(filepath.Join(dir, httpCacheDir), 0)
	if err != nil {
		return err
	}
	if err := hc.Clear(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeCacheWrite, err, "clear http cache")
	}

	printSuccess("Cleared %d license lists and %d HTTP responses", len(licenses), len(responses))
	printDetail("Directory: %s", dir)
	return nil
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path [path]",
		Short: "Print the cache directory, or the cache files of a crate",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			if len(args) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), dir)
				return nil
			}

			manifest, err := config.FindManifest(args[0])
			if err != nil {
				return err
			}
			project := filepath.Dir(manifest)
			printKeyValue("global", cache.GlobalStore(dir, project).Path())
			printKeyValue("repository", cache.RepositoryStore(project).Path())
			printKeyValue("http", filepath.Join(dir, httpCacheDir))
			return nil
		},
	}
}
