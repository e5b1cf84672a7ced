package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smilemakc/anacostia/internal/signal"
)

type fakeReceiver map[string]bool

func (f fakeReceiver) Succeeded(sender signal.Sender) bool {
	return f[sender]
}

func TestExpr_NotValidates(t *testing.T) {
	require.NoError(t, signal.Not(signal.Leaf("a")).Validate())
	require.NoError(t, signal.And(signal.Not(signal.Leaf("a")), signal.Leaf("b")).Validate())
}

func TestExpr_EmptyAndOr(t *testing.T) {
	r := fakeReceiver{}
	assert.True(t, signal.And().Evaluate(r))
	assert.False(t, signal.Or().Evaluate(r))
}

func TestExpr_XorParity(t *testing.T) {
	r := fakeReceiver{"a": true, "b": true, "c": true}

	// Odd number of true children -> true.
	assert.True(t, signal.XOr(signal.Leaf("a"), signal.Leaf("b"), signal.Leaf("c")).Evaluate(r))

	// Even number of true children -> false.
	assert.False(t, signal.XOr(signal.Leaf("a"), signal.Leaf("b")).Evaluate(r))

	r2 := fakeReceiver{"a": true, "b": false}
	assert.True(t, signal.XOr(signal.Leaf("a"), signal.Leaf("b")).Evaluate(r2))
}

func TestExpr_NotComplement(t *testing.T) {
	r := fakeReceiver{"a": true}
	assert.False(t, signal.Not(signal.Leaf("a")).Evaluate(r))
	assert.True(t, signal.Not(signal.Leaf("b")).Evaluate(r))
}

// B listens to And(A1, Or(A2, Not(A3))).
func TestExpr_CompositeGateScenario(t *testing.T) {
	gate := signal.And(
		signal.Leaf("A1"),
		signal.Or(signal.Leaf("A2"), signal.Not(signal.Leaf("A3"))),
	)

	cases := []struct {
		name string
		r    fakeReceiver
		want bool
	}{
		{"A1 true, A2 true, A3 true", fakeReceiver{"A1": true, "A2": true, "A3": true}, true},
		{"A1 true, A2 false, A3 false", fakeReceiver{"A1": true, "A2": false, "A3": false}, true},
		{"A1 true, A2 false, A3 true", fakeReceiver{"A1": true, "A2": false, "A3": true}, false},
		{"A1 false, A2 true, A3 false", fakeReceiver{"A1": false, "A2": true, "A3": false}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gate.Evaluate(tc.r))
		})
	}
}

func TestExpr_NodesCollectsLeaves(t *testing.T) {
	gate := signal.And(
		signal.Leaf("A1"),
		signal.Or(signal.Leaf("A2"), signal.Not(signal.Leaf("A3"))),
	)
	nodes := gate.Nodes()
	require.Len(t, nodes, 3)
	assert.Contains(t, nodes, "A1")
	assert.Contains(t, nodes, "A2")
	assert.Contains(t, nodes, "A3")
}

func TestExpr_String(t *testing.T) {
	gate := signal.And(signal.Leaf("a"), signal.Not(signal.Leaf("b")))
	assert.Equal(t, "AND(a, NOT(b))", gate.String())
}
