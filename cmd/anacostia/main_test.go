package main

import (
	"context"
	"testing"
	"time"

	"github.com/smilemakc/anacostia/internal/config"
	"github.com/smilemakc/anacostia/internal/gate"
	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildNodeFactory_TrivialAndAction(t *testing.T) {
	var resources []*resource.ResourceNode
	factory := buildNodeFactory(gate.NewEvaluator(), nil, &resources)

	n, err := factory(config.NodeDef{Name: "A", Kind: "trivial", AutoTrigger: true})
	require.NoError(t, err)
	assert.Equal(t, node.KindTrivial, n.Kind)

	n, err = factory(config.NodeDef{Name: "B", Kind: "action", Condition: "count > 0"})
	require.NoError(t, err)
	assert.Equal(t, node.KindAction, n.Kind)
}

func TestBuildNodeFactory_ResourceWired(t *testing.T) {
	var resources []*resource.ResourceNode
	factory := buildNodeFactory(gate.NewEvaluator(), nil, &resources)

	n, err := factory(config.NodeDef{Name: "R", Kind: "resource"})
	require.NoError(t, err)
	assert.Equal(t, node.KindResource, n.Kind)
	require.Len(t, resources, 1)
	assert.Same(t, n, resources[0].Node)
}

func TestBuildNodeFactory_AutoTriggerWired(t *testing.T) {
	var resources []*resource.ResourceNode
	factory := buildNodeFactory(gate.NewEvaluator(), nil, &resources)

	triggered, err := factory(config.NodeDef{Name: "A", Kind: "trivial", AutoTrigger: true})
	require.NoError(t, err)

	manual, err := factory(config.NodeDef{Name: "B", Kind: "trivial", AutoTrigger: false})
	require.NoError(t, err)

	// Each node's outcome message lands in its own sink's inbox, so a
	// non-empty sink inbox shows that its node has executed.
	triggeredSink := node.New("A-sink", node.KindAction)
	manualSink := node.New("B-sink", node.KindAction)
	triggered.SetSuccessors([]*node.Node{triggeredSink})
	manual.SetSuccessors([]*node.Node{manualSink})

	triggered.Start()
	manual.Start()
	defer func() {
		triggered.ForceStop()
		manual.ForceStop()
	}()

	require.Eventually(t, func() bool {
		return triggeredSink.Inbox().Len() > 0
	}, time.Second, 5*time.Millisecond, "auto_trigger: true node never executed")
	require.Eventually(t, func() bool {
		return manual.Status() == node.Running
	}, time.Second, 5*time.Millisecond)

	// A manually-triggered node must not run without an external Trigger().
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, node.Running, manual.Status())
	assert.Equal(t, 0, manualSink.Inbox().Len(), "auto_trigger: false node executed without Trigger()")
}

func TestBuildNodeFactory_BarrierRejected(t *testing.T) {
	var resources []*resource.ResourceNode
	factory := buildNodeFactory(gate.NewEvaluator(), nil, &resources)
	_, err := factory(config.NodeDef{Name: "barrier1", Kind: "barrier"})
	assert.Error(t, err)
}

func TestBuildNodeFactory_UnknownKindRejected(t *testing.T) {
	var resources []*resource.ResourceNode
	factory := buildNodeFactory(gate.NewEvaluator(), nil, &resources)
	_, err := factory(config.NodeDef{Name: "x", Kind: "mystery"})
	assert.Error(t, err)
}

func TestBuildMetadataStore_MemoryAndEmpty(t *testing.T) {
	for _, dsn := range []string{"", "memory"} {
		store, err := buildMetadataStore(dsn)
		require.NoError(t, err)
		_, err = store.StartRun(context.Background())
		assert.NoError(t, err)
	}
}

func TestConditionExecute_EvaluatesOverNodeVariables(t *testing.T) {
	exec := conditionExecute(gate.NewEvaluator(), "count > 0", nil, "n")
	n := node.New("n", node.KindAction)
	n.SetVariable("count", 1)

	ok, err := exec(context.Background(), n)
	require.NoError(t, err)
	assert.True(t, ok)

	n.SetVariable("count", 0)
	ok, err = exec(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, ok)
}
