// Package pipeline implements the pipeline controller: DAG validation,
// predecessor/successor wiring, topological launch, and reverse-order
// terminate.
//
// Grounded on original_source/anacostia_pipeline/engine/pipeline.py
// (networkx DiGraph, InvalidNodeDependencyError, launch_nodes/
// terminate_nodes) and the cycle-detection/topological-sort algorithms of
// smilemakc-mbflow/internal/application/executor/graph.go (HasCycles/
// hasCyclesDFS, TopologicalSort via Kahn's algorithm), adapted from
// string-ID graph nodes to *node.Node pointers.
package pipeline

import (
	"sort"

	"github.com/smilemakc/anacostia/internal/logging"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/perr"
	"github.com/smilemakc/anacostia/internal/resource"
)

// Pipeline is immutable after construction: an ordered list of nodes in
// topological order, plus the underlying DAG.
type Pipeline struct {
	nodes    []*node.Node
	byName   map[string]*node.Node
	topoOrder []*node.Node
	log      logging.Sink
}

// New validates nodes (each already configured with its predecessors via
// node.SetPredecessors) and constructs a Pipeline: duplicate-name and
// cycle checks, then topological ordering and successor wiring.
func New(nodes []*node.Node, log logging.Sink) (*Pipeline, error) {
	if log == nil {
		log = logging.Noop
	}
	byName := make(map[string]*node.Node, len(nodes))
	for _, n := range nodes {
		if _, dup := byName[n.Name]; dup {
			return nil, perr.DuplicateName(n.Name)
		}
		byName[n.Name] = n
	}

	// Step 1: build edges p -> n for every p in n.predecessors. Step 2:
	// reject cycles.
	if cyc := findCycle(nodes); cyc != "" {
		return nil, perr.InvalidNodeDependency("cycle detected involving node " + cyc)
	}

	// Step 3: topological order.
	order, err := topologicalSort(nodes)
	if err != nil {
		return nil, err
	}

	// Step 4: successors = graph-derived outgoing neighbors, ordered by
	// name for determinism.
	successorsOf := make(map[string][]*node.Node, len(nodes))
	for _, n := range nodes {
		for predName := range n.Predecessors() {
			successorsOf[predName] = append(successorsOf[predName], n)
		}
	}
	for _, list := range successorsOf {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	for _, n := range nodes {
		n.SetSuccessors(successorsOf[n.Name])
	}

	// Step 5: the Pipeline does not rebind the nodes' logging sinks.
	// node.Node has no post-construction log setter, so each node keeps
	// the sink given through WithLogSink at node.New time (logging.Noop
	// otherwise); log is used only for the Pipeline's own lifecycle
	// logging.
	p := &Pipeline{
		nodes:     nodes,
		byName:    byName,
		topoOrder: order,
		log:       log,
	}
	return p, nil
}

// WireResourceReaders sets rn's expected-reader count to the number of
// its graph-derived successors, closing the premature-drain hazard: call
// this once per resource.ResourceNode after New has populated successors
// for the pipeline it belongs to.
func WireResourceReaders(rn *resource.ResourceNode) {
	rn.ExpectedReaders(len(rn.Successors()))
}

// WireBarrierBackAck appends barrier to each consumer's own successor
// list: a consumer's completion message must land in the barrier's inbox
// so barrierHooks.Execute can observe the back-ack, but the edge can't be
// derived the normal predecessor-implies-successor way New uses, since
// that would require the barrier to list the consumer as one of its own
// predecessors too and findCycle would reject producer -> barrier ->
// consumer -> barrier as a cycle. Call this once per barrier, after New
// has populated every node's graph-derived successors, passing the same
// consumer group the barrier fans out to.
func WireBarrierBackAck(barrier *node.Node, consumers []*node.Node) {
	for _, c := range consumers {
		c.SetSuccessors(append(c.Successors(), barrier))
	}
}

// findCycle runs a DFS cycle check (adapted from graph.go's
// hasCyclesDFS), returning the name of a node involved in a cycle, or ""
// if the graph is acyclic.
func findCycle(nodes []*node.Node) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	for _, n := range nodes {
		color[n.Name] = white
	}

	var dfs func(n *node.Node) string
	dfs = func(n *node.Node) string {
		color[n.Name] = gray
		for _, succName := range successorNames(n, nodes) {
			switch color[succName] {
			case gray:
				return succName
			case white:
				if cyc := dfs(byNameIn(nodes, succName)); cyc != "" {
					return cyc
				}
			}
		}
		color[n.Name] = black
		return ""
	}

	for _, n := range nodes {
		if color[n.Name] == white {
			if cyc := dfs(n); cyc != "" {
				return cyc
			}
		}
	}
	return ""
}

// successorNames computes n's outgoing edges (nodes that list n as a
// predecessor) without relying on n.Successors(), which isn't populated
// until after cycle detection succeeds.
func successorNames(n *node.Node, all []*node.Node) []string {
	var out []string
	for _, candidate := range all {
		if _, ok := candidate.Predecessors()[n.Name]; ok {
			out = append(out, candidate.Name)
		}
	}
	return out
}

func byNameIn(nodes []*node.Node, name string) *node.Node {
	for _, n := range nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// topologicalSort computes a topological order via Kahn's algorithm
// (adapted from graph.go's TopologicalSort), breaking ties by name for
// determinism.
func topologicalSort(nodes []*node.Node) ([]*node.Node, error) {
	inDegree := make(map[string]int, len(nodes))
	for _, n := range nodes {
		inDegree[n.Name] = len(n.Predecessors())
	}

	var ready []*node.Node
	for _, n := range nodes {
		if inDegree[n.Name] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].Name < ready[j].Name })

	var order []*node.Node
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)

		var unlocked []*node.Node
		for _, succName := range successorNames(n, nodes) {
			inDegree[succName]--
			if inDegree[succName] == 0 {
				unlocked = append(unlocked, byNameIn(nodes, succName))
			}
		}
		sort.Slice(unlocked, func(i, j int) bool { return unlocked[i].Name < unlocked[j].Name })
		ready = append(ready, unlocked...)
		sort.Slice(ready, func(i, j int) bool { return ready[i].Name < ready[j].Name })
	}

	if len(order) != len(nodes) {
		return nil, perr.InvalidNodeDependency("topological sort did not cover all nodes; graph contains a cycle")
	}
	return order, nil
}

// Launch starts nodes in topological order.
func (p *Pipeline) Launch() {
	for _, n := range p.topoOrder {
		p.log.Info("launching node", logging.F("node", n.Name))
		n.Start()
	}
}

// Terminate signals STOPPING to nodes in reverse topological order,
// joining each before proceeding to its predecessors.
func (p *Pipeline) Terminate() {
	for i := len(p.topoOrder) - 1; i >= 0; i-- {
		n := p.topoOrder[i]
		p.log.Info("stopping node", logging.F("node", n.Name))
		n.Stop()
		n.Join()
	}
}

// Pause fans out Pause() to every node.
func (p *Pipeline) Pause() {
	for _, n := range p.nodes {
		n.Pause()
	}
}

// Resume fans out Resume() to every node.
func (p *Pipeline) Resume() {
	for _, n := range p.nodes {
		n.Resume()
	}
}

// Status returns the current lifecycle status of every node, keyed by
// name.
func (p *Pipeline) Status() map[string]node.Status {
	out := make(map[string]node.Status, len(p.nodes))
	for _, n := range p.nodes {
		out[n.Name] = n.Status()
	}
	return out
}

// Node looks up a node by name.
func (p *Pipeline) Node(name string) (*node.Node, bool) {
	n, ok := p.byName[name]
	return n, ok
}

// TopologicalOrder returns the pipeline's fixed launch order.
func (p *Pipeline) TopologicalOrder() []*node.Node {
	return p.topoOrder
}
