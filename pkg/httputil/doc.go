// Package httputil provides the HTTP plumbing behind the license fallback.
//
//   - [Cache]: file-based cache for decoded API responses
//   - [Retry]: retry with exponential backoff for transient failures
//
// # Caching
//
// [Cache] stores one JSON file per key under a directory, by default
// <cache dir>/http (see cache.DefaultDir). Entries expire after a TTL based
// on the file modification time, so a crate whose upstream license was
// looked up once is not requested again on every build.
//
//	c, err := httputil.NewCache("", 7*24*time.Hour)
//	gh := c.Namespace("github:")
//	if ok, _ := gh.Get("serde-rs/serde", &lic); !ok {
//	    lic = fetch()
//	    _ = gh.Set("serde-rs/serde", lic)
//	}
//
// # Retry
//
// [Retry] only retries errors wrapped in [RetryableError]: network
// failures and 5xx responses. A 404 or a rate limit is final.
package httputil
