package barrier_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smilemakc/anacostia/internal/barrier"
	"github.com/smilemakc/anacostia/internal/mailbox"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAndAnd_GateShape(t *testing.T) {
	p1 := node.New("p1", node.KindTrivial)
	p2 := node.New("p2", node.KindTrivial)
	b := barrier.AndAnd("gate", []*node.Node{p1, p2})

	assert.Equal(t, "AND(p1, p2)", b.Gate().String())
}

func TestOrAnd_RelaxesFanIn(t *testing.T) {
	p1 := node.New("p1", node.KindTrivial)
	p2 := node.New("p2", node.KindTrivial)
	b := barrier.OrAnd("gate", []*node.Node{p1, p2})

	assert.Equal(t, "OR(p1, p2)", b.Gate().String())
}

func TestAndAnd_FourPhaseRendezvous(t *testing.T) {
	var c1Runs, c2Runs int32

	p1 := node.NewTrivialNode("p1", mailbox.Success, node.WithAutoTrigger(true))
	p2 := node.NewTrivialNode("p2", mailbox.Success, node.WithAutoTrigger(true))

	b := barrier.AndAnd("barrier", []*node.Node{p1, p2})

	c1 := node.NewActionNode("c1", func(ctx context.Context, n *node.Node) (bool, error) {
		atomic.AddInt32(&c1Runs, 1)
		return true, nil
	}, node.WithAutoTrigger(true))
	c2 := node.NewActionNode("c2", func(ctx context.Context, n *node.Node) (bool, error) {
		atomic.AddInt32(&c2Runs, 1)
		return true, nil
	}, node.WithAutoTrigger(true))

	c1.SetPredecessors([]*node.Node{b}, false)
	c2.SetPredecessors([]*node.Node{b}, false)

	p1.SetSuccessors([]*node.Node{b})
	p2.SetSuccessors([]*node.Node{b})
	b.SetSuccessors([]*node.Node{c1, c2})
	// c1/c2 back-ack the barrier by listing it as a successor too.
	c1.SetSuccessors([]*node.Node{b})
	c2.SetSuccessors([]*node.Node{b})

	p1.Start()
	p2.Start()
	b.Start()
	c1.Start()
	c2.Start()
	defer func() {
		p1.ForceStop()
		p2.ForceStop()
		b.ForceStop()
		c1.ForceStop()
		c2.ForceStop()
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&c1Runs) > 0 && atomic.LoadInt32(&c2Runs) > 0
	}, 2*time.Second, 5*time.Millisecond, "barrier never fanned out to both consumers")
	require.Eventually(t, func() bool {
		return b.Inbox().Succeeded("c1") && b.Inbox().Succeeded("c2")
	}, 2*time.Second, 5*time.Millisecond, "barrier never received both consumers' back-acks")
	require.Eventually(t, func() bool {
		return p1.Inbox().Succeeded("barrier") && p2.Inbox().Succeeded("barrier")
	}, 2*time.Second, 5*time.Millisecond, "barrier never released its producers")
}

func TestAndOr_ReleasesOnFirstBackAck(t *testing.T) {
	p1 := node.NewTrivialNode("p1", mailbox.Success, node.WithAutoTrigger(true))
	b := barrier.AndOr("barrier", []*node.Node{p1})

	c1 := node.NewTrivialNode("c1", mailbox.Success, node.WithAutoTrigger(true))
	c2 := node.NewTrivialNode("c2", mailbox.Success, node.WithAutoTrigger(true))
	c1.SetPredecessors([]*node.Node{b}, false)
	c2.SetPredecessors([]*node.Node{b}, false)

	p1.SetSuccessors([]*node.Node{b})
	b.SetSuccessors([]*node.Node{c1, c2})
	c1.SetSuccessors([]*node.Node{b})
	// c2 deliberately never starts, so only c1 ever acks back.

	p1.Start()
	b.Start()
	c1.Start()
	defer func() {
		p1.ForceStop()
		b.ForceStop()
		c1.ForceStop()
	}()

	require.Eventually(t, func() bool {
		return b.Inbox().Succeeded("c1")
	}, 2*time.Second, 5*time.Millisecond, "barrier never received c1's back-ack")
	require.Eventually(t, func() bool {
		return p1.Inbox().Succeeded("barrier")
	}, 2*time.Second, 5*time.Millisecond, "barrier never released p1 after c1's back-ack")
}
