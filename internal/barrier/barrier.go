// Package barrier implements synchronization barrier nodes: AndAnd
// performs a four-phase rendezvous (fan-in, fan-out, back-ack, release)
// between a producer group and a consumer group; AndOr/OrAnd/OrOr
// substitute disjunction for conjunction on one side of the rendezvous,
// fleshing out the empty stub classes in
// original_source/anacostia_pipeline/engine/logic.py.
package barrier

import (
	"context"
	"time"

	"github.com/smilemakc/anacostia/internal/mailbox"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/signal"
)

// ackPollInterval is how often Execute re-checks the back-ack inbox while
// waiting for successors to acknowledge fan-out, mirroring node's own
// main-loop yield interval.
const ackPollInterval = 10 * time.Millisecond

// Side selects which half of the rendezvous a barrier variant relaxes
// from "all" to "any".
type Side int

const (
	// Conjunction requires all members on that side to agree.
	Conjunction Side = iota
	// Disjunction requires only one member on that side to agree.
	Disjunction
)

// New builds a barrier node named name, predecessors preds (the producer
// group), gated for fan-in by fanInSide and for back-ack by backAckSide.
// AndAnd is New(name, preds, Conjunction, Conjunction); AndOr relaxes the
// back-ack side, OrAnd relaxes the fan-in side, OrOr relaxes both.
func New(name string, preds []*node.Node, fanInSide, backAckSide Side, opts ...node.Option) *node.Node {
	leaves := make([]*signal.Expr, 0, len(preds))
	for _, p := range preds {
		leaves = append(leaves, signal.Leaf(p.Name))
	}
	var fanInGate *signal.Expr
	if fanInSide == Conjunction {
		fanInGate = signal.And(leaves...)
	} else {
		fanInGate = signal.Or(leaves...)
	}

	b := &barrierHooks{backAckSide: backAckSide}
	opts = append([]node.Option{
		node.WithGate(fanInGate),
		node.WithAutoTrigger(true),
		node.WithHooks(b),
	}, opts...)
	n := node.New(name, node.KindBarrier, opts...)
	// SetPredecessors after WithGate so explicitGate=true keeps fanInGate
	// rather than recomputing a plain AND; recording preds is still needed
	// so the main loop's len(predecessors) > 0 check actually evaluates the
	// fan-in gate against the barrier's inbox instead of skipping it.
	n.SetPredecessors(preds, true)
	return n
}

// AndAnd is the fully-specified four-phase barrier: all predecessors must
// succeed to fan out, and all successors must back-ack to release.
func AndAnd(name string, preds []*node.Node, opts ...node.Option) *node.Node {
	return New(name, preds, Conjunction, Conjunction, opts...)
}

// AndOr relaxes the back-ack phase: the barrier releases predecessors as
// soon as any one successor acknowledges, rather than waiting for all.
func AndOr(name string, preds []*node.Node, opts ...node.Option) *node.Node {
	return New(name, preds, Conjunction, Disjunction, opts...)
}

// OrAnd relaxes the fan-in phase: the barrier fans out as soon as any one
// predecessor succeeds, rather than waiting for all.
func OrAnd(name string, preds []*node.Node, opts ...node.Option) *node.Node {
	return New(name, preds, Disjunction, Conjunction, opts...)
}

// OrOr relaxes both phases.
func OrOr(name string, preds []*node.Node, opts ...node.Option) *node.Node {
	return New(name, preds, Disjunction, Disjunction, opts...)
}

// barrierHooks implements the four-phase rendezvous as the barrier
// node's Execute hook: by the time Execute runs, the node's own gate
// (fan-in) has already passed, so Execute does phases 2-4 (fan-out,
// back-ack, release).
type barrierHooks struct {
	node.BaseHooks
	backAckSide Side
}

// Execute runs phases 2-4 of the rendezvous: by the time Execute is
// invoked, the node's own gate (fan-in, phase 1) has already passed.
// Once the back-ack is satisfied, Execute performs the release (phase 4)
// itself by putting a SUCCESS message from the barrier into each
// predecessor's inbox. Its true return then makes the node main loop emit
// the usual SUCCESS to the barrier's successors as well.
//
// The back-ack signal is delivered as an ordinary signal emission whose
// destination is the barrier itself: the Pipeline controller wires each
// consumer's successor list to include the barrier node, so a consumer's
// completion message lands in the barrier's own inbox alongside whatever
// it sends its real successors.
func (b *barrierHooks) Execute(ctx context.Context, n *node.Node) (bool, error) {
	msg := mailbox.NewMessage(n.Name, mailbox.Success)
	succ := n.Successors()
	for _, s := range succ {
		s.Inbox().Put(msg)
	}
	for len(succ) > 0 {
		n.Inbox().TryDrain()
		if b.backAckSatisfied(succ, n) {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(ackPollInterval):
		}
	}

	release := mailbox.NewMessage(n.Name, mailbox.Success)
	for _, p := range n.Predecessors() {
		p.Inbox().Put(release)
	}
	return true, nil
}

// backAckSatisfied inspects the barrier's own inbox for SUCCESS messages
// from each successor (all, or any, depending on this variant's back-ack
// side).
func (b *barrierHooks) backAckSatisfied(succ []*node.Node, n *node.Node) bool {
	if b.backAckSide == Conjunction {
		for _, s := range succ {
			if !n.Inbox().Succeeded(s.Name) {
				return false
			}
		}
		return true
	}
	for _, s := range succ {
		if n.Inbox().Succeeded(s.Name) {
			return true
		}
	}
	return false
}
