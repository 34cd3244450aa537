package resolve

import (
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/dag"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Edge metadata keys set by BuildGraph.
const (
	metaNormal = "normal"
	metaKinds  = "kinds"
)

// BuildGraph loads the metadata resolve graph into a DAG. Every resolve
// node becomes a node; every dependency becomes an edge tagged with its
// kinds. Edges to ids that are not resolve nodes are dropped.
func BuildGraph(m *cargo.Metadata) *dag.DAG {
	g := dag.New(dag.Metadata{"workspace_root": m.WorkspaceRoot})
	if m.Resolve == nil {
		return g
	}

	for _, n := range m.Resolve.Nodes {
		meta := dag.Metadata{"label": cargo.Label(n.ID)}
		if p, ok := m.Package(n.ID); ok {
			meta["name"] = p.Name
			meta["version"] = p.Version
			meta["label"] = p.Name + " " + p.Version
			if p.License != nil {
				meta["license"] = *p.License
			}
		}
		_ = g.AddNode(dag.Node{ID: n.ID, Meta: meta})
	}
	for _, n := range m.Resolve.Nodes {
		for _, d := range n.Deps {
			kinds := make([]string, 0, len(d.DepKinds))
			for _, k := range d.DepKinds {
				if k.Kind == nil {
					kinds = append(kinds, "normal")
				} else {
					kinds = append(kinds, *k.Kind)
				}
			}
			_ = g.AddEdge(dag.Edge{
				From: n.ID,
				To:   d.Pkg,
				Meta: dag.Metadata{metaNormal: d.IsNormal(), metaKinds: kinds},
			})
		}
	}
	return g
}

// NormalEdge reports whether e is a production dependency edge.
func NormalEdge(e dag.Edge) bool {
	normal, _ := e.Meta[metaNormal].(bool)
	return normal
}

// Walk returns the ids reachable from root over normal edges, root
// included. Dev-only and build-only dependencies, and everything reachable
// only through them, are excluded. An unknown root yields an empty set.
func Walk(g *dag.DAG, root string) map[string]struct{} {
	return g.Reachable(root, NormalEdge)
}

// Collect returns the package records whose id is in ids, in metadata
// order, converted to list entries. A later package with the same
// name-version as an earlier one (a git and a registry copy, say) is
// dropped and its id returned in dups.
func Collect(m *cargo.Metadata, ids map[string]struct{}) (pkgs pkglist.PackageList, dups []string) {
	seen := make(map[string]struct{}, len(ids))
	for _, p := range m.Packages {
		if _, ok := ids[p.ID]; !ok {
			continue
		}
		pkg := p.ToPackage()
		if _, ok := seen[pkg.NameVersion()]; ok {
			dups = append(dups, p.ID)
			continue
		}
		seen[pkg.NameVersion()] = struct{}{}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, dups
}
