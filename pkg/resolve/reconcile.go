package resolve

import (
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/dag"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Reconcile keeps the packages whose name appears in compiled, the crate
// names listed by `cargo tree -e normal`. The metadata walk keeps crates
// that are disabled for the current platform or feature set; the tree
// listing does not.
func Reconcile(pkgs pkglist.PackageList, compiled cargo.NameSet) pkglist.PackageList {
	var kept pkglist.PackageList
	for _, p := range pkgs {
		if compiled.Has(p.Name) {
			kept = append(kept, p)
		}
	}
	return kept
}

// reconcileIDs applies the same filter to walked node ids, using the
// "name" metadata set by BuildGraph.
func reconcileIDs(g *dag.DAG, ids map[string]struct{}, compiled cargo.NameSet) map[string]struct{} {
	kept := make(map[string]struct{}, len(ids))
	for id := range ids {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		if name, _ := n.Meta["name"].(string); compiled.Has(name) {
			kept[id] = struct{}{}
		}
	}
	return kept
}
