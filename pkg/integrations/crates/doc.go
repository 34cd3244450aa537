// Package crates provides an HTTP client for the crates.io API.
//
// The license fallback uses it for one thing: finding the repository of a
// crate whose cargo metadata declares neither a repository nor a homepage.
//
//	client := crates.NewClient(cache)
//	info, err := client.FetchCrate(ctx, "serde", false)
//	fmt.Println(info.Repository) // https://github.com/serde-rs/serde
//
// Responses are cached under the "crates:" namespace of the given
// [httputil.Cache].
//
// [httputil.Cache]: github.com/matzehuels/stacklicense/pkg/httputil.Cache
package crates
