package dag

import (
	"errors"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")
)

// Metadata stores arbitrary key-value pairs attached to nodes, edges or the
// graph. Metadata maps are never nil once added to a DAG.
type Metadata map[string]any

// Node is a vertex of the dependency graph, identified by a cargo package id.
type Node struct {
	ID   string   // Unique identifier (cargo package id)
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Label returns the "label" metadata entry, or the ID when none is set.
func (n Node) Label() string {
	if s, ok := n.Meta["label"].(string); ok && s != "" {
		return s
	}
	return n.ID
}

// Edge is a directed dependency from one package to another.
type Edge struct {
	From string   // Dependent node ID
	To   string   // Dependency node ID
	Meta Metadata // Arbitrary key-value metadata (never nil after AddEdge)
}

// DAG is a directed dependency graph with an ID-indexed node arena.
//
// Despite the name the graph may contain cycles: cargo permits them through
// dev-dependencies, and traversals in this package tolerate them.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]int // nodeID -> indices into edges
	incoming map[string][]string
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]int),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, or ErrDuplicateNodeID
// if a node with the same ID already exists.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode if the From node doesn't exist, or
// ErrUnknownTargetNode if the To node doesn't exist.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.outgoing[e.From] = append(d.outgoing[e.From], len(d.edges))
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	d.edges = append(d.edges, e)
	return nil
}

// Nodes returns all nodes sorted by ID. The returned slice contains
// pointers to the actual node structs, so modifications affect the graph.
func (d *DAG) Nodes() []*Node {
	ids := slices.Sorted(maps.Keys(d.nodes))
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = d.nodes[id]
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// OutEdges returns the edges leaving the node, in insertion order.
func (d *DAG) OutEdges(id string) []Edge {
	idx := d.outgoing[id]
	out := make([]Edge, len(idx))
	for i, j := range idx {
		out[i] = d.edges[j]
	}
	return out
}

// Children returns the IDs of nodes that this node has edges to.
func (d *DAG) Children(id string) []string {
	var out []string
	for _, j := range d.outgoing[id] {
		out = append(out, d.edges[j].To)
	}
	return out
}

// Parents returns the IDs of nodes that have edges to this node.
// The returned slice should not be modified.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// OutDegree returns the number of outgoing edges from the node.
func (d *DAG) OutDegree(id string) int { return len(d.outgoing[id]) }

// InDegree returns the number of incoming edges to the node.
func (d *DAG) InDegree(id string) int { return len(d.incoming[id]) }

// Sources returns nodes with no incoming edges, sorted by ID.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, n := range d.Nodes() {
		if len(d.incoming[n.ID]) == 0 {
			sources = append(sources, n)
		}
	}
	return sources
}

// Sinks returns nodes with no outgoing edges, sorted by ID.
func (d *DAG) Sinks() []*Node {
	var sinks []*Node
	for _, n := range d.Nodes() {
		if len(d.outgoing[n.ID]) == 0 {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

// Reachable returns the set of node IDs reachable from root, root included,
// following only edges for which follow returns true (all edges when follow
// is nil). Each node is marked before its edges are expanded, so cycles
// terminate. If root is not in the graph the result is empty.
func (d *DAG) Reachable(root string, follow func(Edge) bool) map[string]struct{} {
	seen := make(map[string]struct{})
	if _, ok := d.nodes[root]; !ok {
		return seen
	}

	seen[root] = struct{}{}
	stack := []string{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range d.outgoing[id] {
			e := d.edges[j]
			if follow != nil && !follow(e) {
				continue
			}
			if _, ok := seen[e.To]; ok {
				continue
			}
			if _, ok := d.nodes[e.To]; !ok {
				continue
			}
			seen[e.To] = struct{}{}
			stack = append(stack, e.To)
		}
	}
	return seen
}

// Subgraph returns a new graph holding only the nodes in keep and the
// edges between them for which follow returns true (all when nil).
// Node and edge metadata maps are shared with the receiver.
func (d *DAG) Subgraph(keep map[string]struct{}, follow func(Edge) bool) *DAG {
	sub := New(d.meta)
	for _, n := range d.Nodes() {
		if _, ok := keep[n.ID]; ok {
			_ = sub.AddNode(Node{ID: n.ID, Meta: n.Meta})
		}
	}
	for _, e := range d.edges {
		if follow != nil && !follow(e) {
			continue
		}
		_, okFrom := keep[e.From]
		_, okTo := keep[e.To]
		if okFrom && okTo {
			_ = sub.AddEdge(e)
		}
	}
	return sub
}
