package cargo

import (
	"encoding/json"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Metadata is the subset of `cargo metadata --format-version 1` output
// used for license resolution.
type Metadata struct {
	Packages      []MetadataPackage `json:"packages"`
	Resolve       *Resolve          `json:"resolve"`
	WorkspaceRoot string            `json:"workspace_root"`
}

// MetadataPackage is one entry of the metadata "packages" array.
type MetadataPackage struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	ID           string   `json:"id"`
	License      *string  `json:"license"`
	Description  *string  `json:"description"`
	Authors      []string `json:"authors"`
	Repository   *string  `json:"repository"`
	Homepage     *string  `json:"homepage"`
	ManifestPath string   `json:"manifest_path"`
}

// Resolve is the resolved dependency graph.
type Resolve struct {
	Root  *string       `json:"root"`
	Nodes []ResolveNode `json:"nodes"`
}

// ResolveNode is a package in the resolved graph together with its
// outgoing dependency edges.
type ResolveNode struct {
	ID   string    `json:"id"`
	Deps []NodeDep `json:"deps"`
}

// NodeDep is one edge of the resolved graph. An edge can carry several
// kinds, for example when a crate is both a normal and a build dependency.
type NodeDep struct {
	Name     string    `json:"name"`
	Pkg      string    `json:"pkg"`
	DepKinds []DepKind `json:"dep_kinds"`
}

// DepKind classifies an edge. A nil Kind marks a normal dependency; other
// values are "dev" and "build".
type DepKind struct {
	Kind   *string `json:"kind"`
	Target *string `json:"target"`
}

// IsNormal reports whether any kind of the edge is a normal dependency.
// Only normal edges are compiled into the final artifact.
func (d NodeDep) IsNormal() bool {
	for _, k := range d.DepKinds {
		if k.Kind == nil {
			return true
		}
	}
	return false
}

// ParseMetadata decodes metadata output. It fails with ErrCodeParse when
// the JSON is malformed, when there is no resolve graph (cargo was run
// with --no-deps), or when the root is missing from the graph.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode cargo metadata")
	}
	if m.Resolve == nil {
		return nil, errors.New(errors.ErrCodeParse, "cargo metadata has no resolve graph")
	}
	root := m.RootID()
	if root == "" {
		return nil, errors.New(errors.ErrCodeParse, "cargo metadata has no root package (virtual workspace?)")
	}
	if _, ok := m.Node(root); !ok {
		return nil, errors.New(errors.ErrCodeParse, "root %q is not a node of the resolve graph", root)
	}
	return &m, nil
}

// RootID returns the id of the resolve root, or "".
func (m *Metadata) RootID() string {
	if m.Resolve == nil || m.Resolve.Root == nil {
		return ""
	}
	return *m.Resolve.Root
}

// Node returns the resolve node with the given id.
func (m *Metadata) Node(id string) (ResolveNode, bool) {
	if m.Resolve == nil {
		return ResolveNode{}, false
	}
	for _, n := range m.Resolve.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return ResolveNode{}, false
}

// Package returns the package record with the given id.
func (m *Metadata) Package(id string) (MetadataPackage, bool) {
	for _, p := range m.Packages {
		if p.ID == id {
			return p, true
		}
	}
	return MetadataPackage{}, false
}

// ToPackage converts the record to a list entry without license text.
func (p MetadataPackage) ToPackage() pkglist.Package {
	return pkglist.Package{
		Name:              p.Name,
		Version:           p.Version,
		Authors:           p.Authors,
		Description:       nonEmpty(p.Description),
		Homepage:          nonEmpty(p.Homepage),
		Repository:        nonEmpty(p.Repository),
		LicenseIdentifier: nonEmpty(p.License),
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
