// Package resolve computes the license list of a cargo build.
//
// A [Resolver] asks cargo two questions at once: the full dependency
// metadata and the list of crates actually compiled with normal edges.
// The metadata graph is walked from the root package over normal edges,
// the result is narrowed to the compiled set, and license text is attached
// from the cache, the unpacked registry sources and, optionally, a
// [LicenseFetcher].
//
//	cfg, err := config.FromEnv().Build()
//	r, err := resolve.New(cfg, resolve.WithLogger(logger))
//	defer r.Close()
//
//	res, err := r.Resolve(ctx)
//	data, err := pkglist.EncodeWith(res.Packages, cfg.Compression)
//	err = r.Save(ctx, res.Packages)
//
// # Failure modes
//
// The compiled-set query is advisory: if it fails, every crate reachable
// over normal edges is kept and [Result.TreeErr] records why. A failed
// metadata query fails the run; if both fail the error carries code
// RESOLUTION_FAILED and both causes.
package resolve
