// Package signal implements the signal expression language: a small
// tagged tree of boolean combinators (AND, OR, XOR, NOT) over node
// identities, evaluated against a node's received-message map.
//
// Grounded on original_source/anacostia_pipeline/engine/node.py's SignalAST,
// Not/And/Or/XOr constructors, and evaluate(). The XOR evaluator there
// reduces with a constant expression (x^x) rather than parity across
// children; this implementation fixes that.
package signal

import (
	"fmt"

	"github.com/smilemakc/anacostia/internal/perr"
)

// Op is the tag of an internal expression node.
type Op int

const (
	OpLeaf Op = iota
	OpAnd
	OpOr
	OpXor
	OpNot
)

func (o Op) String() string {
	switch o {
	case OpLeaf:
		return "LEAF"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpXor:
		return "XOR"
	case OpNot:
		return "NOT"
	default:
		return "UNKNOWN"
	}
}

// Sender identifies the node a leaf expression refers to. Nodes hold a
// stable name; the evaluator only ever needs that name plus a lookup of
// the latest received message, passed in as a Receiver at Evaluate time.
// This avoids an ownership cycle between Node and its gate expression:
// the expression stores names, not Node pointers.
type Sender = string

// Receiver is the minimal view of a node's mailbox state an expression
// needs to evaluate a leaf: was a message received from sender, and did it
// succeed.
type Receiver interface {
	// Succeeded reports whether the latest received message from sender
	// exists and has outcome SUCCESS.
	Succeeded(sender Sender) bool
}

// Expr is an immutable node of the signal-expression tree. Trees are built
// once via the constructors below and never mutated afterward.
type Expr struct {
	op       Op
	sender   Sender  // valid only when op == OpLeaf
	children []*Expr // valid only when op != OpLeaf
}

// Leaf builds a leaf expression referring to the given node name.
func Leaf(nodeName string) *Expr {
	return &Expr{op: OpLeaf, sender: nodeName}
}

// Not builds a NOT expression. Arity is fixed at one child, enforced here
// at construction time.
func Not(x *Expr) *Expr {
	return &Expr{op: OpNot, children: []*Expr{x}}
}

// And builds an AND expression over zero or more children. An empty AND
// evaluates to true.
func And(xs ...*Expr) *Expr {
	return &Expr{op: OpAnd, children: xs}
}

// Or builds an OR expression over zero or more children. An empty OR
// evaluates to false.
func Or(xs ...*Expr) *Expr {
	return &Expr{op: OpOr, children: xs}
}

// XOr builds an XOR expression: true iff an odd number of children
// evaluate true.
func XOr(xs ...*Expr) *Expr {
	return &Expr{op: OpXor, children: xs}
}

// Validate checks the construction-time arity invariant (NOT must have
// exactly one child) recursively, returning a *perr.ConfigurationError on
// violation. Malformed trees are rejected at construction.
func (e *Expr) Validate() error {
	if e == nil {
		return nil
	}
	if e.op == OpNot && len(e.children) != 1 {
		return perr.MalformedGate(fmt.Sprintf("NOT requires exactly 1 child, got %d", len(e.children)))
	}
	for _, c := range e.children {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate walks the tree against the given Receiver:
//   - leaf p: true iff the receiver has a SUCCESS message from p.
//   - AND/OR: conjunction/disjunction; empty AND is true, empty OR is false.
//   - XOR: parity (odd count of true children).
//   - NOT: complement of its single child.
//
// Evaluation never fails; malformed arity is rejected by Validate at
// construction time, not here.
func (e *Expr) Evaluate(r Receiver) bool {
	if e == nil {
		return true
	}
	switch e.op {
	case OpLeaf:
		return r.Succeeded(e.sender)
	case OpAnd:
		for _, c := range e.children {
			if !c.Evaluate(r) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range e.children {
			if c.Evaluate(r) {
				return true
			}
		}
		return false
	case OpXor:
		parity := false
		for _, c := range e.children {
			if c.Evaluate(r) {
				parity = !parity
			}
		}
		return parity
	case OpNot:
		return !e.children[0].Evaluate(r)
	default:
		return false
	}
}

// Nodes returns the set of distinct node names (leaves) reachable from e,
// used by the runtime to derive a node's predecessor set from a
// user-supplied gate.
func (e *Expr) Nodes() map[string]struct{} {
	out := make(map[string]struct{})
	e.collect(out)
	return out
}

func (e *Expr) collect(out map[string]struct{}) {
	if e == nil {
		return
	}
	if e.op == OpLeaf {
		out[e.sender] = struct{}{}
		return
	}
	for _, c := range e.children {
		c.collect(out)
	}
}

// String renders a debug form of the expression tree, useful for logging.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.op == OpLeaf {
		return e.sender
	}
	s := e.op.String() + "("
	for i, c := range e.children {
		if i > 0 {
			s += ", "
		}
		s += c.String()
	}
	return s + ")"
}
