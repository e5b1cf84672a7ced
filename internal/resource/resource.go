// Package resource implements a readers/writer coordination protocol
// layered on top of a node.Node, so that many downstream action nodes can
// read a consistent snapshot of a resource while mutation is deferred
// until every reader has released it.
//
// Grounded on original_source/anacostia_pipeline/engine/node.py's
// ResourceNode (resource_lock, event, reference_lock, reference_count),
// exeternally_accessible/resource_accessor/await_references decorators.
// The source's own comments flag a premature-drain hazard in
// exeternally_accessible: reference_count can transiently hit zero between
// one reader's exit and a sibling's entry, releasing a waiting mutator
// before every expected reader has had a turn. This implementation
// resolves that with an expected-reader latch: the Pipeline tells the
// ResourceNode how many distinct readers to expect per round via
// ExpectedReaders, and AwaitDrained blocks until that many readers have
// both entered and exited since the last drain.
package resource

import (
	"context"
	"sync"

	"github.com/smilemakc/anacostia/internal/node"
)

// ResourceNode wraps a node.Node with the reader/writer protocol. The
// embedded *node.Node still drives the normal lifecycle/main-loop
// machinery; ResourceNode only adds the payload-mutation guard.
type ResourceNode struct {
	*node.Node

	mu             sync.Mutex
	cond           *sync.Cond
	activeReaders  int
	expectedTotal  int // 0 means "no latch configured": fall back to plain zero-crossing
	enteredThisRound map[string]struct{}
	exitedThisRound  int
}

// New wraps an existing node.Node (typically constructed via node.New
// with KindResource) as a ResourceNode.
func New(n *node.Node) *ResourceNode {
	r := &ResourceNode{Node: n, enteredThisRound: make(map[string]struct{})}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// ExpectedReaders configures the latch: AwaitDrained will not release a
// waiting mutator until this many distinct readers have entered and
// exited the externally-accessible section since the last drain.
// pipeline.WireResourceReaders calls this with the number of the node's
// graph-derived successors, whatever their kind.
func (r *ResourceNode) ExpectedReaders(n int) {
	r.mu.Lock()
	r.expectedTotal = n
	r.mu.Unlock()
}

// ExternallyAccessible wraps a reader method: it atomically increments
// activeReaders before invoking fn, and atomically decrements on return,
// broadcasting when the relevant drain condition is reached. readerID
// distinguishes one caller from another for the expected-reader latch
// (e.g. the calling successor node's name); pass "" if callers are
// indistinguishable. An anonymous reader is not recorded as a distinct
// reader: without an ExpectedReaders count the drain check is a plain
// zero-crossing, and with one only named readers count toward it.
func (r *ResourceNode) ExternallyAccessible(readerID string, fn func()) {
	r.mu.Lock()
	r.activeReaders++
	if readerID != "" {
		r.enteredThisRound[readerID] = struct{}{}
	}
	r.mu.Unlock()

	fn()

	r.mu.Lock()
	r.activeReaders--
	r.exitedThisRound++
	if r.drainedLocked() {
		r.cond.Broadcast()
	}
	r.mu.Unlock()
}

// drainedLocked reports whether the resource is safe to mutate. With an
// expected-reader count configured, it requires that every expected
// reader has both entered and exited since the last drain, closing the
// hazard where a transient zero-crossing between sibling readers would
// otherwise release the mutator early. Without a configured count it
// falls back to the source's plain reader_count == 0 check.
func (r *ResourceNode) drainedLocked() bool {
	if r.activeReaders != 0 {
		return false
	}
	if r.expectedTotal > 0 {
		return len(r.enteredThisRound) >= r.expectedTotal && r.exitedThisRound >= r.expectedTotal
	}
	return true
}

// AwaitDrained blocks until drainedLocked holds, then resets the round's
// bookkeeping so the next cycle of readers must arrive afresh before the
// latch releases again.
func (r *ResourceNode) AwaitDrained(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.drainedLocked() {
		r.cond.Wait()
	}
	r.enteredThisRound = make(map[string]struct{})
	r.exitedThisRound = 0
}

// ResourceAccessor wraps a method that reads or mutates the resource
// payload itself. isSetup callers run fn unconditionally, without taking
// the resource mutex: the node's Setup hook runs during INIT, before any
// reader or mutator could possibly contend for it. Every other caller
// takes the mutex exclusively for the duration of fn.
func (r *ResourceNode) ResourceAccessor(isSetup bool, fn func()) {
	if isSetup {
		fn()
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// Mutate is the common case of a resource accessor that also needs the
// drained guard: it awaits drained state exactly as AwaitDrained does and
// then runs fn without releasing the resource mutex in between, so no
// reader can enter before fn returns and payload mutation is never
// concurrent with any externally-accessible reader.
func (r *ResourceNode) Mutate(ctx context.Context, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.drainedLocked() {
		r.cond.Wait()
	}
	r.enteredThisRound = make(map[string]struct{})
	r.exitedThisRound = 0
	fn()
}
