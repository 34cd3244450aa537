package pkglist

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// PackageList is an ordered list of packages. In a finalized list the
// root package sits at index 0 and the remaining entries are sorted by
// (name, version).
type PackageList []Package

// Root returns the root package and true, or false if the list has no
// root at index 0.
func (l PackageList) Root() (Package, bool) {
	if len(l) == 0 || !l[0].IsRootPkg {
		return Package{}, false
	}
	return l[0], true
}

// Find returns the package with the given "{name}-{version}" key.
func (l PackageList) Find(nameVersion string) (Package, bool) {
	for _, p := range l {
		if p.NameVersion() == nameVersion {
			return p, true
		}
	}
	return Package{}, false
}

// Dependencies returns every entry except the root.
func (l PackageList) Dependencies() PackageList {
	if _, ok := l.Root(); ok {
		return l[1:]
	}
	return l
}

// SortDependencies sorts everything after the root in place. If the list
// has no root at index 0 the whole list is sorted.
func (l PackageList) SortDependencies() {
	slices.SortStableFunc(l.Dependencies(), Compare)
}

// PinRoot moves the first package flagged as root to index 0, keeping the
// relative order of the others. It reports false if no entry is flagged.
func (l PackageList) PinRoot() bool {
	idx := slices.IndexFunc(l, func(p Package) bool { return p.IsRootPkg })
	if idx < 0 {
		return false
	}
	root := l[idx]
	copy(l[1:idx+1], l[:idx])
	l[0] = root
	return true
}

// Compare orders packages by name, then by version. Versions are compared
// as semantic versions when both parse and lexically otherwise.
func Compare(a, b Package) int {
	if c := strings.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return CompareVersions(a.Version, b.Version)
}

// CompareVersions compares two version strings.
func CompareVersions(a, b string) int {
	va, errA := semver.StrictNewVersion(a)
	vb, errB := semver.StrictNewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return cmp.Compare(a, b)
}

// Validate checks the structural invariants of a finalized list:
// exactly one root, positioned at index 0, unique name-version keys, and
// sorted dependencies. An empty list is valid.
func (l PackageList) Validate() error {
	if len(l) == 0 {
		return nil
	}
	if !l[0].IsRootPkg {
		return errors.New(errors.ErrCodeInvariant, "root package is not at index 0")
	}
	seen := make(map[string]struct{}, len(l))
	for i, p := range l {
		if i > 0 && p.IsRootPkg {
			return errors.New(errors.ErrCodeInvariant, "more than one root package: %s", p.NameVersion())
		}
		key := p.NameVersion()
		if _, dup := seen[key]; dup {
			return errors.New(errors.ErrCodeInvariant, "duplicate package %s", key)
		}
		seen[key] = struct{}{}
		if i > 1 && Compare(l[i-1], p) > 0 {
			return errors.New(errors.ErrCodeInvariant, "packages out of order: %s before %s", l[i-1].NameVersion(), key)
		}
	}
	return nil
}

// LicenseGroup lists the crates published under one license identifier.
type LicenseGroup struct {
	License  string   `json:"license" yaml:"license"`
	Packages []string `json:"packages" yaml:"packages"`
}

// Summary groups package names by license identifier. Groups are sorted by
// identifier; crates without an identifier are left out.
func (l PackageList) Summary() []LicenseGroup {
	index := make(map[string]int)
	var groups []LicenseGroup
	for _, p := range l {
		id := p.License()
		if id == "" {
			continue
		}
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, LicenseGroup{License: id})
		}
		groups[i].Packages = append(groups[i].Packages, p.Name)
	}
	slices.SortFunc(groups, func(a, b LicenseGroup) int { return strings.Compare(a.License, b.License) })
	return groups
}

// Stats counts how license text was obtained across the list.
type Stats struct {
	Total      int
	Cached     int
	Scanned    int
	Unlicensed int
}

// Stats returns license text coverage counts.
func (l PackageList) Stats() Stats {
	s := Stats{Total: len(l)}
	for _, p := range l {
		switch {
		case !p.HasLicenseText():
			s.Unlicensed++
		case p.RestoredFromCache:
			s.Cached++
		default:
			s.Scanned++
		}
	}
	return s
}
