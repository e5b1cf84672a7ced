package resource_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smilemakc/anacostia/internal/node"
	"github.com/smilemakc/anacostia/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResourceNode(t *testing.T) *resource.ResourceNode {
	t.Helper()
	return resource.New(node.New("res", node.KindResource))
}

func TestResourceNode_ResourceAccessor_SetupSkipsMutex(t *testing.T) {
	r := newResourceNode(t)
	var ran bool
	r.ResourceAccessor(true, func() { ran = true })
	assert.True(t, ran)
}

func TestResourceNode_Mutate_SerializesAgainstReaders(t *testing.T) {
	r := newResourceNode(t)
	r.ExpectedReaders(1)

	readerEntered := make(chan struct{})
	readerCanExit := make(chan struct{})
	go r.ExternallyAccessible("reader-a", func() {
		close(readerEntered)
		<-readerCanExit
	})
	<-readerEntered

	mutated := make(chan struct{})
	go func() {
		r.Mutate(context.Background(), func() {})
		close(mutated)
	}()

	// Mutate must block while the reader is still inside the accessor.
	select {
	case <-mutated:
		t.Fatal("Mutate returned before the active reader exited")
	case <-time.After(30 * time.Millisecond):
	}

	close(readerCanExit)
	require.Eventually(t, func() bool {
		select {
		case <-mutated:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestResourceNode_AwaitDrained_WaitsForAllExpectedReaders(t *testing.T) {
	r := newResourceNode(t)
	r.ExpectedReaders(2)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.ExternallyAccessible("reader-a", func() {})
	}()
	wg.Wait()

	drained := make(chan struct{})
	go func() {
		r.AwaitDrained(context.Background())
		close(drained)
	}()

	// Only one of two expected readers has cycled through; the latch must
	// not release yet.
	select {
	case <-drained:
		t.Fatal("AwaitDrained released with only one of two expected readers seen")
	case <-time.After(30 * time.Millisecond):
	}

	r.ExternallyAccessible("reader-b", func() {})
	require.Eventually(t, func() bool {
		select {
		case <-drained:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestResourceNode_NoExpectedReaders_FallsBackToZeroCrossing(t *testing.T) {
	r := newResourceNode(t)

	var entered int32
	r.ExternallyAccessible("solo", func() {
		atomic.AddInt32(&entered, 1)
	})

	drained := make(chan struct{})
	go func() {
		r.AwaitDrained(context.Background())
		close(drained)
	}()

	require.Eventually(t, func() bool {
		select {
		case <-drained:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&entered))
}
