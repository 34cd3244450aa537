package resolve

import (
	"context"
	"io"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/config"
	"github.com/matzehuels/stacklicense/pkg/dag"
	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/httputil"
	"github.com/matzehuels/stacklicense/pkg/integrations/crates"
	"github.com/matzehuels/stacklicense/pkg/integrations/github"
	"github.com/matzehuels/stacklicense/pkg/license"
	"github.com/matzehuels/stacklicense/pkg/observability"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Stage names reported through [observability.ResolveHooks].
const (
	StageFetch     = "fetch"
	StageReconcile = "reconcile"
	StageCache     = "cache"
	StageScan      = "scan"
	StageFallback  = "fallback"
	StageFinalize  = "finalize"
)

// FallbackCacheTTL is how long GitHub and crates.io lookups are reused.
const FallbackCacheTTL = 7 * 24 * time.Hour

// LicenseFetcher supplies license text for a package the registry sources
// did not cover. ok is false when the fetcher has nothing for pkg.
type LicenseFetcher interface {
	FetchLicense(ctx context.Context, pkg pkglist.Package) (text string, ok bool, err error)
}

// Result is the outcome of a resolution run.
type Result struct {
	RunID    string
	Packages pkglist.PackageList

	// Graph holds the kept packages and the normal edges between them.
	Graph *dag.DAG

	CacheHits    int
	FallbackHits int
	Scan         license.Report
	CacheOutcome cache.Outcome
	Duration     time.Duration

	// TreeErr is set when the compiled-set query failed and the result was
	// not reconciled against it.
	TreeErr error
}

// Resolver turns a cargo project into its license list.
//
// A Resolver is safe to reuse for several runs but not for concurrent
// runs sharing one [cache.Store] that is not itself safe for concurrent use.
type Resolver struct {
	cfg      *config.Config
	runner   cargo.Runner
	store    cache.Store
	locs     cache.Locations
	roots    []string
	rootsSet bool
	fallback LicenseFetcher
	logger   *log.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRunner replaces the process runner used for cargo.
func WithRunner(r cargo.Runner) Option {
	return func(rs *Resolver) { rs.runner = r }
}

// WithStore replaces the cache store selected by the config.
func WithStore(s cache.Store) Option {
	return func(rs *Resolver) { rs.store = s }
}

// WithRegistryRoots fixes the registry source roots instead of listing
// CARGO_HOME/registry/src.
func WithRegistryRoots(roots ...string) Option {
	return func(rs *Resolver) {
		rs.roots = roots
		rs.rootsSet = true
	}
}

// WithFallback sets the fetcher consulted for packages still missing
// license text after the registry scan.
func WithFallback(f LicenseFetcher) Option {
	return func(rs *Resolver) { rs.fallback = f }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *log.Logger) Option {
	return func(rs *Resolver) { rs.logger = l }
}

// New creates a Resolver for cfg. Unless [WithStore] is given, the cache
// store is chosen from cfg.CacheBehavior; this may open a Redis client,
// which [Resolver.Close] releases.
func New(cfg *config.Config, opts ...Option) (*Resolver, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "nil config")
	}
	r := &Resolver{cfg: cfg, runner: cargo.ExecRunner{}}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}

	locs, err := cfg.CacheLocations()
	if err != nil {
		return nil, err
	}
	r.locs = locs
	if r.store == nil {
		r.store = locs.Reader(cfg.CacheBehavior)
	}
	if r.fallback == nil && cfg.GitHubFallback {
		f, err := GitHubFallback(cfg)
		if err != nil {
			return nil, err
		}
		r.fallback = f
	}
	return r, nil
}

// GitHubFallback builds the GitHub license fetcher for cfg. Lookups are
// cached for [FallbackCacheTTL] under cfg.CacheDir and crates without a
// repository URL are looked up on crates.io.
func GitHubFallback(cfg *config.Config) (*github.Client, error) {
	dir := ""
	if cfg.CacheDir != "" {
		dir = filepath.Join(cfg.CacheDir, "http")
	}
	hc, err := httputil.NewCache(dir, FallbackCacheTTL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "open http cache")
	}
	return github.NewClient(cfg.GitHubToken, hc).WithCrates(crates.NewClient(hc)), nil
}

// Config returns the resolver's configuration.
func (r *Resolver) Config() *config.Config { return r.cfg }

// Close releases the Redis client opened by [New], if any.
func (r *Resolver) Close() error {
	if r.locs.Redis != nil {
		return r.locs.Redis.Close()
	}
	return nil
}

// Resolve runs both cargo queries, walks the production graph and attaches
// license text from cache, registry sources and the fallback, in that
// order. The returned list has the root at index 0 and the remaining
// packages sorted by name and version.
//
// Nothing is written: persisting the list is up to the caller, see
// [Resolver.Save].
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	logger := r.logger.With("run", res.RunID[:8])

	err := r.resolve(ctx, res, logger)
	res.Duration = time.Since(start)
	observability.Resolve().OnResolveComplete(ctx, res.RunID, len(res.Packages), res.Duration, err)
	if err != nil {
		logger.Debug("resolution failed", "err", err)
		return nil, err
	}
	logger.Debug("resolution done", "packages", len(res.Packages), "duration", res.Duration)
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, res *Result, logger *log.Logger) error {
	hooks := observability.Resolve()
	stage := func(name string, t time.Time) {
		hooks.OnStageComplete(ctx, res.RunID, name, time.Since(t))
	}

	t := time.Now()
	q, err := r.fetch(ctx, res.RunID, logger)
	if err != nil {
		return err
	}
	stage(StageFetch, t)

	t = time.Now()
	meta := q.meta
	g := BuildGraph(meta)
	rootID := meta.RootID()
	ids := Walk(g, rootID)
	if len(ids) == 0 {
		return errors.New(errors.ErrCodeInvariant, "resolve root %q is not in the dependency graph", rootID)
	}
	pkgs, dups := Collect(meta, ids)
	for _, id := range dups {
		logger.Warn("duplicate package name and version, keeping the first", "id", id)
		delete(ids, id)
	}
	if q.treeErr != nil {
		res.TreeErr = q.treeErr
		logger.Warn("cargo tree failed, keeping every crate reachable over normal edges", "err", q.treeErr)
	} else {
		before := len(pkgs)
		pkgs = Reconcile(pkgs, q.compiled)
		ids = reconcileIDs(g, ids, q.compiled)
		logger.Debug("reconciled with compiled set", "walked", before, "kept", len(pkgs))
	}
	res.Graph = g.Subgraph(ids, NormalEdge)

	if err := r.pinRoot(pkgs, meta, rootID); err != nil {
		return err
	}
	stage(StageReconcile, t)

	t = time.Now()
	if err := r.applyCache(ctx, res, pkgs[1:], logger); err != nil {
		return err
	}
	stage(StageCache, t)

	t = time.Now()
	if err := r.scan(ctx, res, pkgs[1:], logger); err != nil {
		return err
	}
	stage(StageScan, t)

	if r.fallback != nil {
		t = time.Now()
		res.FallbackHits = r.runFallback(ctx, pkgs[1:], logger)
		stage(StageFallback, t)
	}

	t = time.Now()
	if text, ok := license.FromDir(r.cfg.ManifestDir); ok {
		pkgs[0].LicenseText = &text
	} else {
		logger.Warn("no license files for root package", "dir", r.cfg.ManifestDir)
	}

	pkgs = r.appendExtra(pkgs, logger)
	pkgs.SortDependencies()
	if err := pkgs.Validate(); err != nil {
		return err
	}
	stage(StageFinalize, t)

	res.Packages = pkgs
	return nil
}

// queries holds the outcome of both cargo queries. A failed tree query is
// tolerated and kept in treeErr.
type queries struct {
	meta     *cargo.Metadata
	compiled cargo.NameSet
	treeErr  error
}

// fetch runs the metadata and compiled-set queries concurrently.
func (r *Resolver) fetch(ctx context.Context, runID string, logger *log.Logger) (*queries, error) {
	exec := cargo.NewExecutor(r.runner, r.cfg.CargoCommand, r.cfg.ManifestDir, r.cfg.Directives, logger)
	hooks := observability.Resolve()

	var (
		wg       sync.WaitGroup
		meta     *cargo.Metadata
		compiled cargo.NameSet
		metaErr  error
		treeErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		t := time.Now()
		meta, metaErr = exec.Metadata(ctx)
		hooks.OnFetchComplete(ctx, runID, "metadata", time.Since(t), metaErr)
	}()
	go func() {
		defer wg.Done()
		t := time.Now()
		compiled, treeErr = exec.Tree(ctx)
		hooks.OnFetchComplete(ctx, runID, "tree", time.Since(t), treeErr)
	}()
	wg.Wait()

	switch {
	case metaErr != nil && treeErr != nil:
		return nil, errors.Join(errors.ErrCodeResolution, "both cargo queries failed", metaErr, treeErr)
	case metaErr != nil:
		return nil, metaErr
	}
	logger.Debug("cargo queries done", "packages", len(meta.Packages), "compiled", len(compiled))
	return &queries{meta: meta, compiled: compiled, treeErr: treeErr}, nil
}

// pinRoot flags the root package and moves it to index 0. The root is the
// package named like the configured crate, or the resolve root when no
// kept package has that name.
func (r *Resolver) pinRoot(pkgs pkglist.PackageList, meta *cargo.Metadata, rootID string) error {
	idx := slices.IndexFunc(pkgs, func(p pkglist.Package) bool { return r.cfg.IsRootName(p.Name) })
	if idx < 0 {
		if rp, ok := meta.Package(rootID); ok {
			idx = slices.IndexFunc(pkgs, func(p pkglist.Package) bool {
				return p.Name == rp.Name && p.Version == rp.Version
			})
		}
	}
	if idx < 0 {
		return errors.New(errors.ErrCodeInvariant, "root package %q not found among resolved packages", r.cfg.PackageName)
	}
	pkgs[idx].IsRootPkg = true
	pkgs.PinRoot()
	return nil
}

func (r *Resolver) applyCache(ctx context.Context, res *Result, deps pkglist.PackageList, logger *log.Logger) error {
	hooks := observability.Cache()

	entries, err := r.store.Load(ctx)
	res.CacheOutcome = cache.Classify(err)
	hooks.OnCacheLoad(ctx, r.store.Name(), res.CacheOutcome.String(), len(entries))

	switch res.CacheOutcome {
	case cache.ReadFailed:
		return err
	case cache.NotApplicable, cache.Invalid:
		logger.Debug("license cache skipped", "store", r.store.Name(), "outcome", res.CacheOutcome, "err", err)
		return nil
	}

	res.CacheHits = cache.Apply(entries, deps)
	hooks.OnCacheApply(ctx, res.CacheHits, len(deps)-res.CacheHits)
	logger.Debug("license cache applied", "store", r.store.Name(), "hits", res.CacheHits, "packages", len(deps))
	return nil
}

// scan reads license files for packages the cache did not cover. Registry
// roots are only listed when something is left to find.
func (r *Resolver) scan(ctx context.Context, res *Result, deps pkglist.PackageList, logger *log.Logger) error {
	if !slices.ContainsFunc(deps, func(p pkglist.Package) bool { return !p.HasLicenseText() }) {
		return nil
	}

	roots := r.roots
	if !r.rootsSet {
		var err error
		home := r.cfg.CargoHome
		if home == "" {
			if home, err = license.CargoHome(); err != nil {
				return err
			}
		}
		if roots, err = license.RegistryRoots(home); err != nil {
			return err
		}
	}

	loc := license.NewLocator(roots, license.WithWorkers(r.cfg.ScanWorkers), license.WithLogger(logger))
	report, err := loc.Locate(ctx, deps)
	res.Scan = report
	if err != nil {
		return err
	}
	logger.Debug("registry scan done", "roots", len(roots), "found", report.Found, "missing", len(report.Missing))
	return nil
}

// runFallback asks the fallback fetcher for every package still missing
// text. Failures are logged and do not fail the run.
func (r *Resolver) runFallback(ctx context.Context, deps pkglist.PackageList, logger *log.Logger) int {
	hits := 0
	for i := range deps {
		if deps[i].HasLicenseText() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		text, ok, err := r.fallback.FetchLicense(ctx, deps[i])
		if err != nil {
			logger.Warn("license fallback failed", "package", deps[i].NameVersion(), "err", err)
			continue
		}
		if ok {
			deps[i].LicenseText = &text
			hits++
		}
	}
	return hits
}

func (r *Resolver) appendExtra(pkgs pkglist.PackageList, logger *log.Logger) pkglist.PackageList {
	for _, p := range r.cfg.Extra {
		if _, dup := pkgs.Find(p.NameVersion()); dup {
			logger.Warn("extra package already resolved, skipping", "package", p.NameVersion())
			continue
		}
		p.IsRootPkg = false
		pkgs = append(pkgs, p)
	}
	return pkgs
}

// Save persists list to the store selected by cfg.SaveLocation.
func (r *Resolver) Save(ctx context.Context, list pkglist.PackageList) error {
	w, err := r.locs.Writer(r.cfg.SaveLocation)
	if err != nil {
		return err
	}
	err = w.Save(ctx, list)
	observability.Cache().OnCacheSave(ctx, w.Name(), len(list), err)
	if cache.Classify(err) == cache.NotApplicable {
		r.logger.Debug("license cache not saved", "store", w.Name(), "err", err)
		return nil
	}
	return err
}
