// Package pkg provides the libraries behind stacklicense.
//
// # Overview
//
// Stacklicense determines which third-party crates are compiled into a cargo
// build, attaches each crate's license text and encodes the result as a
// compact artifact a program can embed. The pkg directory is organized as:
//
//  1. [cargo] - Running cargo metadata / cargo tree with flag fallback
//  2. [dag] - The dependency graph and its reachability walk
//  3. [resolve] - The resolution pipeline that ties everything together
//  4. [license] - Locating license files in the registry source cache
//  5. [cache] - License text reuse across runs (file, repository, Redis)
//  6. [pkglist] - Package lists and the artifact codec
//  7. [config] - Settings from the cargo environment or a manifest
//  8. [integrations] - crates.io and GitHub clients for the license fallback
//
// # Architecture
//
// The data flow of one run:
//
//	cargo metadata ──┐
//	                 ├─ [resolve] walk normal edges, reconcile with cargo tree
//	cargo tree ──────┘
//	         ↓
//	    [cache] restore license text from a previous run
//	         ↓
//	    [license] scan ~/.cargo/registry/src for the rest
//	         ↓
//	    [integrations/github] optional network fallback
//	         ↓
//	    [pkglist] encode LICENSE-3RD-PARTY.bin
//
// # Quick Start
//
//	cfg, err := config.FromEnv().Build()
//	if err != nil {
//	    return err
//	}
//	r, err := resolve.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	res, err := r.Resolve(ctx)
//	if err != nil {
//	    return err
//	}
//	data, err := pkglist.Encode(res.Packages)
//	...
//	_ = r.Save(ctx, res.Packages)
//
// At runtime the embedded artifact is decoded and printed:
//
//	list, err := pkglist.Decode(artifact)
//	fmt.Print(list)
//
// # Observability
//
// [observability] exposes hooks for resolution stages, cache operations and
// HTTP requests. They default to no-ops.
//
// [cargo]: github.com/matzehuels/stacklicense/pkg/cargo
// [dag]: github.com/matzehuels/stacklicense/pkg/dag
// [resolve]: github.com/matzehuels/stacklicense/pkg/resolve
// [license]: github.com/matzehuels/stacklicense/pkg/license
// [cache]: github.com/matzehuels/stacklicense/pkg/cache
// [pkglist]: github.com/matzehuels/stacklicense/pkg/pkglist
// [config]: github.com/matzehuels/stacklicense/pkg/config
// [integrations]: github.com/matzehuels/stacklicense/pkg/integrations
// [integrations/github]: github.com/matzehuels/stacklicense/pkg/integrations/github
// [observability]: github.com/matzehuels/stacklicense/pkg/observability
package pkg
