// Package nodelink renders the production dependency graph as a
// node-link diagram.
//
//	dot := nodelink.ToDOT(res.Graph, nodelink.Options{Root: rootID})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Each node is a crate that ends up in the build; each edge a normal
// dependency between two of them. Crates that declare no license
// identifier are highlighted.
//
// [ToDOT] output can be rendered in-process with [RenderSVG], which uses
// [github.com/goccy/go-graphviz], or saved and fed to the dot tool.
package nodelink
