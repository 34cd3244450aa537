// Package integrations provides HTTP clients for the remote sources the
// license fallback consults.
//
// Subpackages:
//
//   - [crates]: crates.io, to find the repository of a crate whose
//     metadata has none
//   - [github]: GitHub, to download the license file of a repository
//
// Both build on [Client], which adds default headers, a file cache
// ([httputil.Cache]), retries for transient failures and the HTTP hooks
// from the observability package.
//
//	c, err := httputil.NewCache("", 7*24*time.Hour)
//	gh := github.NewClient(token, c)
//	text, ok, err := gh.FetchLicense(ctx, pkg)
//
// [crates]: github.com/matzehuels/stacklicense/pkg/integrations/crates
// [github]: github.com/matzehuels/stacklicense/pkg/integrations/github
// [httputil.Cache]: github.com/matzehuels/stacklicense/pkg/httputil.Cache
package integrations
