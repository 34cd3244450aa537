// Package render holds the visual output formats for resolved dependency
// graphs.
//
// The [nodelink] subpackage draws the graph with Graphviz.
//
// [nodelink]: github.com/matzehuels/stacklicense/pkg/render/nodelink
package render
