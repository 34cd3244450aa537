package cli

import (
	"context"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/stacklicense/pkg/config"
	"github.com/matzehuels/stacklicense/pkg/errors"
)

// watchDebounce is how long a burst of writes must settle before a rerun.
const watchDebounce = 300 * time.Millisecond

// watchedFiles are the files whose changes can alter the resolved set.
var watchedFiles = map[string]bool{
	config.ManifestName: true,
	"Cargo.lock":        true,
}

// watchGenerate runs generate once, then again after every manifest or
// lockfile change until ctx is cancelled. Failed runs are reported and
// watching continues.
func (c *CLI) watchGenerate(ctx context.Context, opts *generateOpts, target string) error {
	manifest, err := config.FindManifest(target)
	if err != nil {
		return err
	}
	dir := filepath.Dir(manifest)

	if _, err := c.runGenerate(ctx, opts, target); err != nil {
		printError("%s", errors.UserMessage(err))
	}
	printInfo("Watching %s for changes (ctrl+c to stop)", dir)

	return watchDir(ctx, dir, watchDebounce, loggerFromContext(ctx), func(ctx context.Context, changed []string) error {
		printNewline()
		printInfo("Changed: %v", changed)
		_, err := c.runGenerate(ctx, opts, target)
		return err
	})
}

// watchDir calls onChange with the base names of watched files in dir that
// changed, once per debounced burst. It returns nil when ctx is done.
func watchDir(ctx context.Context, dir string, debounce time.Duration, logger *log.Logger, onChange func(context.Context, []string) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create file watcher")
	}
	defer w.Close()

	// Editors replace files by rename, so the directory is watched rather
	// than the files themselves.
	if err := w.Add(dir); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "watch %s", dir)
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(evt.Name)
			if !watchedFiles[name] || evt.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("file changed", "file", name, "op", evt.Op)
			pending[name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "err", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if err := onChange(ctx, changed); err != nil {
				printError("%s", errors.UserMessage(err))
			}
		}
	}
}
