// Package github downloads license files from the GitHub API.
//
// It backs the optional license fallback: when a crate's unpacked sources
// contain no license file, the crate's GitHub repository often does.
// [Client.FetchLicense] satisfies resolve.LicenseFetcher.
//
//	gh := github.NewClient(os.Getenv("GITHUB_TOKEN"), cache).
//	    WithCrates(crates.NewClient(cache))
//	text, ok, err := gh.FetchLicense(ctx, pkg)
//
// # Repository discovery
//
// The repository is read from the package's repository URL, then its
// homepage. With [Client.WithCrates] set, crates.io is asked for crates
// that declare neither.
//
// # Authentication
//
// A token is optional. Unauthenticated clients get 60 requests per hour;
// exhausting the quota yields an error wrapping
// integrations.ErrRateLimited.
//
// # Caching
//
// Lookups, including negative ones, are cached under the "github:"
// namespace of the [httputil.Cache] passed to [NewClient].
//
// [httputil.Cache]: github.com/matzehuels/stacklicense/pkg/httputil.Cache
package github
