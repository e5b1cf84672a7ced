package node

import (
	"context"

	"github.com/smilemakc/anacostia/internal/mailbox"
)

// NewTrivialNode builds a node whose Execute hook unconditionally reports
// outcome, mirroring original_source's TrueNode/FalseNode convenience
// subclasses.
func NewTrivialNode(name string, outcome mailbox.Outcome, opts ...Option) *Node {
	opts = append([]Option{WithHooks(&BaseHooks{
		ExecuteFunc: func(ctx context.Context, n *Node) (bool, error) {
			return outcome == mailbox.Success, nil
		},
	})}, opts...)
	return New(name, KindTrivial, opts...)
}

// NewActionNode builds a node whose Execute hook is exec, the common case
// for a node whose only custom behavior is its unit of work.
func NewActionNode(name string, exec func(ctx context.Context, n *Node) (bool, error), opts ...Option) *Node {
	opts = append([]Option{WithHooks(&BaseHooks{ExecuteFunc: exec})}, opts...)
	return New(name, KindAction, opts...)
}
