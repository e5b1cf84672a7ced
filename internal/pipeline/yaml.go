package pipeline

import (
	"fmt"

	"github.com/smilemakc/anacostia/internal/barrier"
	"github.com/smilemakc/anacostia/internal/config"
	"github.com/smilemakc/anacostia/internal/logging"
	"github.com/smilemakc/anacostia/internal/node"
)

// NodeFactory builds the concrete *node.Node for one YAML node
// declaration, letting callers supply their own Hooks per kind (e.g.
// "action" nodes need a real Execute function the YAML file cannot
// express). kind/condition are passed through from config.NodeDef so
// the factory can dispatch on them.
type NodeFactory func(def config.NodeDef) (*node.Node, error)

// FromYAML builds a Pipeline from a parsed pipeline topology document:
// each NodeDef is turned into a *node.Node via factory, predecessors are
// wired from ListenTo, and the result is validated exactly as New does.
func FromYAML(def *config.PipelineDef, factory NodeFactory, log logging.Sink) (*Pipeline, error) {
	built := make(map[string]*node.Node, len(def.Nodes))
	for _, nd := range def.Nodes {
		n, err := factory(nd)
		if err != nil {
			return nil, fmt.Errorf("building node %q: %w", nd.Name, err)
		}
		built[nd.Name] = n
	}

	nodes := make([]*node.Node, 0, len(def.Nodes))
	for _, nd := range def.Nodes {
		n := built[nd.Name]
		preds := make([]*node.Node, 0, len(nd.ListenTo))
		for _, predName := range nd.ListenTo {
			pn, ok := built[predName]
			if !ok {
				return nil, fmt.Errorf("node %q listens to unknown node %q", nd.Name, predName)
			}
			preds = append(preds, pn)
		}
		n.SetPredecessors(preds, false)
		nodes = append(nodes, n)
	}

	barriers := make(map[string]*node.Node, len(def.Barriers))
	for _, bd := range def.Barriers {
		preds, err := resolveAll(built, bd.ListenTo)
		if err != nil {
			return nil, fmt.Errorf("barrier %q: %w", bd.Name, err)
		}
		consumers, err := resolveAll(built, bd.Consumers)
		if err != nil {
			return nil, fmt.Errorf("barrier %q: %w", bd.Name, err)
		}

		b := barrier.New(bd.Name, preds, barrierSide(bd.FanIn), barrierSide(bd.BackAck))
		built[bd.Name] = b
		barriers[bd.Name] = b
		nodes = append(nodes, b)

		// A barrier's consumers wait only on the barrier, not on whatever
		// ListenTo the YAML document gave them as an ordinary node: the
		// barrier is a control gate between producers and this group.
		for _, c := range consumers {
			c.SetPredecessors([]*node.Node{b}, false)
		}
	}

	p, err := New(nodes, log)
	if err != nil {
		return nil, err
	}

	for _, bd := range def.Barriers {
		consumers, err := resolveAll(built, bd.Consumers)
		if err != nil {
			return nil, fmt.Errorf("barrier %q: %w", bd.Name, err)
		}
		WireBarrierBackAck(barriers[bd.Name], consumers)
	}

	return p, nil
}

// resolveAll looks up each name in built, failing on the first unknown
// reference.
func resolveAll(built map[string]*node.Node, names []string) ([]*node.Node, error) {
	out := make([]*node.Node, 0, len(names))
	for _, name := range names {
		n, ok := built[name]
		if !ok {
			return nil, fmt.Errorf("unknown node %q", name)
		}
		out = append(out, n)
	}
	return out, nil
}

// barrierSide maps a BarrierDef's "and"/"or" string (default "and") to a
// barrier.Side.
func barrierSide(s string) barrier.Side {
	if s == "or" {
		return barrier.Disjunction
	}
	return barrier.Conjunction
}
