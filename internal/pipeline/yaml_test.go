package pipeline_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smilemakc/anacostia/internal/config"
	"github.com/smilemakc/anacostia/internal/logging"
	"github.com/smilemakc/anacostia/internal/mailbox"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// TestFromYAML_WiresBarrierRendezvous exercises the production
// construction path (config.PipelineDef.Barriers -> pipeline.FromYAML)
// end to end: two auto-triggering producers fan in to a barrier, which
// fans out to two consumers and waits for both to back-ack before it
// would release again.
func TestFromYAML_WiresBarrierRendezvous(t *testing.T) {
	var c1Runs, c2Runs int32
	execByName := map[string]func(ctx context.Context, n *node.Node) (bool, error){
		"c1": func(ctx context.Context, n *node.Node) (bool, error) {
			atomic.AddInt32(&c1Runs, 1)
			return true, nil
		},
		"c2": func(ctx context.Context, n *node.Node) (bool, error) {
			atomic.AddInt32(&c2Runs, 1)
			return true, nil
		},
	}

	factory := func(def config.NodeDef) (*node.Node, error) {
		switch def.Kind {
		case "trivial":
			return node.NewTrivialNode(def.Name, mailbox.Success, node.WithAutoTrigger(def.AutoTrigger)), nil
		case "action":
			return node.NewActionNode(def.Name, execByName[def.Name], node.WithAutoTrigger(def.AutoTrigger)), nil
		default:
			return nil, fmt.Errorf("node %q: unexpected kind %q", def.Name, def.Kind)
		}
	}

	def := &config.PipelineDef{
		Name: "barrier-demo",
		Nodes: []config.NodeDef{
			{Name: "p1", Kind: "trivial", AutoTrigger: true},
			{Name: "p2", Kind: "trivial", AutoTrigger: true},
			{Name: "c1", Kind: "action", AutoTrigger: true},
			{Name: "c2", Kind: "action", AutoTrigger: true},
		},
		Barriers: []config.BarrierDef{
			{Name: "barrier", ListenTo: []string{"p1", "p2"}, Consumers: []string{"c1", "c2"}},
		},
	}

	p, err := pipeline.FromYAML(def, factory, logging.Noop)
	require.NoError(t, err)

	b, ok := p.Node("barrier")
	require.True(t, ok)
	require.Equal(t, "AND(p1, p2)", b.Gate().String())

	p.Launch()
	defer p.Terminate()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&c1Runs) > 0 && atomic.LoadInt32(&c2Runs) > 0
	}, 2*time.Second, 5*time.Millisecond, "barrier built via FromYAML never fanned out to both consumers")
}

func TestFromYAML_BarrierUnknownConsumerRejected(t *testing.T) {
	factory := func(def config.NodeDef) (*node.Node, error) {
		return node.NewTrivialNode(def.Name, mailbox.Success, node.WithAutoTrigger(def.AutoTrigger)), nil
	}
	def := &config.PipelineDef{
		Nodes: []config.NodeDef{{Name: "p1", Kind: "trivial"}},
		Barriers: []config.BarrierDef{
			{Name: "barrier", ListenTo: []string{"p1"}, Consumers: []string{"ghost"}},
		},
	}
	_, err := pipeline.FromYAML(def, factory, logging.Noop)
	require.Error(t, err)
}
