package license

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// RootError reports a registry root that could not be listed.
type RootError struct {
	Root string
	Err  error
}

func (e *RootError) Error() string { return fmt.Sprintf("registry root %s: %v", e.Root, e.Err) }

func (e *RootError) Unwrap() error { return e.Err }

// Report summarizes a [Locator.Locate] run.
type Report struct {
	Found      int          // packages that received license text
	Missing    []string     // name_version keys left without license text
	RootErrors []*RootError // roots that could not be read
}

// Locator attaches license text from registry source roots.
type Locator struct {
	roots   []string
	workers int
	logger  *log.Logger
}

// Option configures a Locator.
type Option func(*Locator)

// WithWorkers bounds the number of roots and folders read concurrently.
// Values below 1 mean runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(l *Locator) { l.workers = n }
}

// WithLogger sets the logger used for per-package diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocator creates a Locator over the given registry roots. Roots are
// searched in name order; when a crate is unpacked in several roots the
// first one wins.
func NewLocator(roots []string, opts ...Option) *Locator {
	l := &Locator{
		roots:  slices.Sorted(slices.Values(roots)),
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.workers < 1 {
		l.workers = runtime.NumCPU()
	}
	return l
}

// Roots returns the registry roots in search order.
func (l *Locator) Roots() []string { return l.roots }

// Locate fills LicenseText for every package in pkgs that has none yet,
// updating the slice in place. Packages already carrying text (for example
// restored from cache) are not touched.
//
// A root that cannot be listed is recorded in the report and the search
// continues with the remaining roots. Only when every root fails is an
// ErrCodeSourceRoot error returned, wrapping each failure.
func (l *Locator) Locate(ctx context.Context, pkgs pkglist.PackageList) (Report, error) {
	var report Report

	pending := make(map[string]int)
	for i, p := range pkgs {
		if !p.HasLicenseText() {
			pending[p.NameVersion()] = i
		}
	}
	if len(pending) == 0 {
		return report, nil
	}

	matches, rootErrs := l.scanRoots(ctx, pending)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	for _, err := range rootErrs {
		if err != nil {
			report.RootErrors = append(report.RootErrors, err)
			l.logger.Warn("cannot read registry root", "root", err.Root, "err", err.Err)
		}
	}
	if len(l.roots) > 0 && len(report.RootErrors) == len(l.roots) {
		errs := make([]error, len(report.RootErrors))
		for i, e := range report.RootErrors {
			errs[i] = e
		}
		return report, errors.Join(errors.ErrCodeSourceRoot, "no registry source root could be read", errs...)
	}

	dirs := make(map[string]string, len(pending))
	for _, m := range matches {
		for nv, dir := range m {
			if _, ok := dirs[nv]; !ok {
				dirs[nv] = dir
			}
		}
	}

	keys := slices.Sorted(maps.Keys(dirs))
	texts := make([]*string, len(keys))

	var g errgroup.Group
	g.SetLimit(l.workers)
	for i, nv := range keys {
		g.Go(func() error {
			if text, ok := FromDir(dirs[nv]); ok {
				texts[i] = &text
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, nv := range keys {
		if texts[i] == nil {
			l.logger.Warn("no license files found", "package", nv, "dir", dirs[nv])
			continue
		}
		pkgs[pending[nv]].LicenseText = texts[i]
		report.Found++
	}

	for nv := range pending {
		if p := pkgs[pending[nv]]; !p.HasLicenseText() {
			report.Missing = append(report.Missing, nv)
		}
	}
	slices.Sort(report.Missing)
	return report, nil
}

// scanRoots lists every root concurrently and returns, per root, the
// pending packages whose folder it contains.
func (l *Locator) scanRoots(ctx context.Context, pending map[string]int) ([]map[string]string, []*RootError) {
	matches := make([]map[string]string, len(l.roots))
	errs := make([]*RootError, len(l.roots))

	var g errgroup.Group
	g.SetLimit(l.workers)
	for i, root := range l.roots {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			entries, err := os.ReadDir(root)
			if err != nil {
				errs[i] = &RootError{Root: root, Err: err}
				return nil
			}
			found := make(map[string]string)
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				if _, ok := pending[e.Name()]; ok {
					found[e.Name()] = filepath.Join(root, e.Name())
				}
			}
			l.logger.Debug("scanned registry root", "root", root, "matches", len(found))
			matches[i] = found
			return nil
		})
	}
	_ = g.Wait()
	return matches, errs
}
