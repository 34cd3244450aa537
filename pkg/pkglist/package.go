// Package pkglist holds the resolved package list and its binary artifact
// encoding.
//
// A [PackageList] is the single product of a resolution run: the root crate
// at index 0 followed by every third-party crate compiled into the build,
// ordered by name and version. It is written to disk with [Encode] at build
// time and read back at runtime with [Decode].
//
//	data, err := pkglist.Encode(list)
//	...
//	list, err := pkglist.Decode(data)
//	fmt.Print(list)
package pkglist

// Package describes one crate together with its license information.
//
// Optional metadata fields are pointers so that "absent" survives a round
// trip through the artifact unchanged. LicenseText stays nil until it is
// restored from cache or read from the crate sources.
type Package struct {
	Name              string   `bson:"name" json:"name" yaml:"name"`
	Version           string   `bson:"version" json:"version" yaml:"version"`
	Authors           []string `bson:"authors" json:"authors" yaml:"authors"`
	Description       *string  `bson:"description,omitempty" json:"description,omitempty" yaml:"description,omitempty"`
	Homepage          *string  `bson:"homepage,omitempty" json:"homepage,omitempty" yaml:"homepage,omitempty"`
	Repository        *string  `bson:"repository,omitempty" json:"repository,omitempty" yaml:"repository,omitempty"`
	LicenseIdentifier *string  `bson:"license_identifier,omitempty" json:"license_identifier,omitempty" yaml:"license_identifier,omitempty"`
	LicenseText       *string  `bson:"license_text,omitempty" json:"license_text,omitempty" yaml:"license_text,omitempty"`
	IsRootPkg         bool     `bson:"is_root_pkg" json:"is_root_pkg" yaml:"is_root_pkg"`
	RestoredFromCache bool     `bson:"restored_from_cache" json:"restored_from_cache" yaml:"restored_from_cache"`
}

// NameVersion returns the "{name}-{version}" key. It matches the folder
// name cargo uses when it unpacks a crate into the registry source cache.
func (p Package) NameVersion() string {
	return p.Name + "-" + p.Version
}

// HasLicenseText reports whether license text has been attached.
func (p Package) HasLicenseText() bool {
	return p.LicenseText != nil
}

// License returns the SPDX identifier, or "" when the crate declares none.
func (p Package) License() string {
	return deref(p.LicenseIdentifier)
}

// Optional converts s to an optional field value: nil when s is empty.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
