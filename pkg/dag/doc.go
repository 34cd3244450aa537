// Package dag provides the directed dependency graph used to decide which
// crates end up in a build.
//
// # Overview
//
// Cargo's resolve graph lists every package id together with its outgoing
// dependency edges, each tagged with one or more kinds (normal, dev,
// build). This package stores that graph in an ID-indexed arena and answers
// one question efficiently: which nodes are reachable from the root when
// only some edges are followed?
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "app"})
//	g.AddNode(dag.Node{ID: "serde"})
//	g.AddEdge(dag.Edge{From: "app", To: "serde", Meta: dag.Metadata{"normal": true}})
//
//	prod := g.Reachable("app", func(e dag.Edge) bool { return e.Meta["normal"] == true })
//
// # Cycles
//
// Dev-dependencies let crates depend on each other in cycles. [DAG.Reachable]
// marks a node as visited before expanding it, so traversals terminate
// regardless of graph shape.
//
// # Metadata
//
// Nodes, edges and the graph carry [Metadata] maps. The resolver stores the
// package name, version and license identifier on nodes, which the CLI uses
// when rendering the graph with Graphviz.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. The resolver builds a graph,
// walks it once, and discards it.
package dag
