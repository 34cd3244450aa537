package cargo

import (
	"path"
	"strings"
)

// ParsePackageID extracts a best-effort name and version from a cargo
// package id. Two formats are in use:
//
//	serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)
//	registry+https://github.com/rust-lang/crates.io-index#serde@1.0.200
//
// In the second form a path dependency may omit the name
// ("path+file:///work/app#0.1.0"), in which case the last path segment is
// used. The resolver never relies on this for matching; package records
// are matched by id and name. It is used for labels and diagnostics.
func ParsePackageID(id string) (name, version string) {
	if fields := strings.Fields(id); len(fields) >= 2 && !strings.Contains(fields[0], "://") {
		return fields[0], fields[1]
	}

	src, frag, ok := strings.Cut(id, "#")
	if !ok {
		return "", ""
	}
	if n, v, ok := strings.Cut(frag, "@"); ok {
		return n, v
	}

	if _, rest, ok := strings.Cut(src, "://"); ok {
		src = rest
	}
	if i := strings.IndexByte(src, '?'); i >= 0 {
		src = src[:i]
	}
	return path.Base(strings.TrimSuffix(src, "/")), frag
}

// Label returns "name version" for an id, falling back to the raw id.
func Label(id string) string {
	name, version := ParsePackageID(id)
	if name == "" {
		return id
	}
	return name + " " + version
}
