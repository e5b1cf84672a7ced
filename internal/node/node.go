// Package node implements the per-worker state machine: a long-lived
// goroutine per Node that gates execution on predecessor signals, runs
// user hooks, and emits outcome messages to its successors.
//
// Grounded on original_source/anacostia_pipeline/engine/node.py's BaseNode
// (run loop, pausable decorator, status property) and
// smilemakc-mbflow/internal/domain/node_state.go (status/lifecycle field
// naming, node-local variables map).
package node

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smilemakc/anacostia/internal/logging"
	"github.com/smilemakc/anacostia/internal/mailbox"
	"github.com/smilemakc/anacostia/internal/signal"
)

// yieldInterval is how long the main loop sleeps at each retry point
// (pre-trigger not satisfied, trigger not set, gate false). Mirrors the
// source's time.sleep(0.1) poll in the pausable decorator and main loop.
const yieldInterval = 10 * time.Millisecond

// MetadataClient is the minimal metadata-store view a Node can use to
// record its own run; kept narrow here to avoid internal/node depending
// on internal/metadata.
// internal/metadata.Store satisfies this interface structurally.
type MetadataClient interface {
	StartRun(ctx context.Context) (int64, error)
	EndRun(ctx context.Context, runID int64) error
}

// Node is a single DAG vertex: a named worker with a gate over predecessor
// signals and a set of overridable hooks.
type Node struct {
	Name string
	Kind Kind

	predecessors map[string]*Node
	successors   []*Node
	gate         *signal.Expr
	autoTrigger  bool

	hooks Hooks
	log   logging.Sink

	Metadata MetadataClient

	inbox *mailbox.Mailbox

	mu        sync.Mutex
	cond      *sync.Cond
	status    Status
	triggered bool

	varsMu    sync.RWMutex
	Variables map[string]any

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Node at construction.
type Option func(*Node)

// WithGate overrides the default AND-over-predecessors gate.
func WithGate(expr *signal.Expr) Option {
	return func(n *Node) { n.gate = expr }
}

// WithAutoTrigger sets the auto_trigger flag consulted at each main-loop
// pass: true skips the manual Trigger() latch entirely.
func WithAutoTrigger(auto bool) Option {
	return func(n *Node) { n.autoTrigger = auto }
}

// WithHooks installs the user hook implementation. Defaults to an
// all-no-op BaseHooks if omitted.
func WithHooks(h Hooks) Option {
	return func(n *Node) { n.hooks = h }
}

// WithLogSink installs a logging sink; defaults to logging.Noop.
func WithLogSink(sink logging.Sink) Option {
	return func(n *Node) { n.log = sink }
}

// WithMetadata attaches the optional metadata-store collaborator.
func WithMetadata(m MetadataClient) Option {
	return func(n *Node) { n.Metadata = m }
}

// New constructs a Node in status OFF. Predecessors/successors are wired
// afterward via SetPredecessors/SetSuccessors (typically by a Pipeline).
func New(name string, kind Kind, opts ...Option) *Node {
	n := &Node{
		Name:         name,
		Kind:         kind,
		predecessors: make(map[string]*Node),
		hooks:        &BaseHooks{},
		log:          logging.Noop,
		inbox:        mailbox.New(),
		Variables:    make(map[string]any),
		status:       Off,
		done:         make(chan struct{}),
	}
	n.cond = sync.NewCond(&n.mu)
	for _, opt := range opts {
		opt(n)
	}
	if n.gate == nil {
		n.gate = signal.And()
	}
	return n
}

// SetPredecessors records the node's predecessor set. If no explicit gate
// was installed via WithGate, the default gate becomes AND over the
// given predecessors' names.
func (n *Node) SetPredecessors(preds []*Node, explicitGate bool) {
	n.predecessors = make(map[string]*Node, len(preds))
	for _, p := range preds {
		n.predecessors[p.Name] = p
	}
	if !explicitGate {
		leaves := make([]*signal.Expr, 0, len(preds))
		for _, p := range preds {
			leaves = append(leaves, signal.Leaf(p.Name))
		}
		n.gate = signal.And(leaves...)
	}
}

// SetSuccessors records the node's successor list, ordered deterministically
// by the Pipeline controller.
func (n *Node) SetSuccessors(succ []*Node) {
	n.successors = succ
}

// Successors returns the node's successor list.
func (n *Node) Successors() []*Node { return n.successors }

// Predecessors returns the node's predecessor set.
func (n *Node) Predecessors() map[string]*Node { return n.predecessors }

// Gate returns the node's signal expression.
func (n *Node) Gate() *signal.Expr { return n.gate }

// Inbox returns the node's mailbox, used by the Pipeline and by tests to
// inspect queued messages.
func (n *Node) Inbox() *mailbox.Mailbox { return n.inbox }

// Status returns the node's current lifecycle phase.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

func (n *Node) setStatus(s Status) {
	n.mu.Lock()
	n.status = s
	n.mu.Unlock()
	n.cond.Broadcast()
}

// GetVariable reads a node-local variable.
func (n *Node) GetVariable(key string) (any, bool) {
	n.varsMu.RLock()
	defer n.varsMu.RUnlock()
	v, ok := n.Variables[key]
	return v, ok
}

// SetVariable writes a node-local variable, usable by hooks and by
// internal/gate condition evaluation.
func (n *Node) SetVariable(key string, value any) {
	n.varsMu.Lock()
	n.Variables[key] = value
	n.varsMu.Unlock()
}

// SnapshotVariables returns a shallow copy of the node's variables, used by
// callers (such as internal/gate condition evaluation) that need a plain
// map without holding varsMu for the duration of their own work.
func (n *Node) SnapshotVariables() map[string]any {
	n.varsMu.RLock()
	defer n.varsMu.RUnlock()
	out := make(map[string]any, len(n.Variables))
	for k, v := range n.Variables {
		out[k] = v
	}
	return out
}

// Trigger sets the external trigger latch consulted each main-loop pass.
func (n *Node) Trigger() {
	n.mu.Lock()
	n.triggered = true
	n.mu.Unlock()
}

func (n *Node) consumeTrigger() bool {
	if n.autoTrigger {
		return true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.triggered
}

func (n *Node) clearTriggerIfManual() {
	if n.autoTrigger {
		return
	}
	n.mu.Lock()
	n.triggered = false
	n.mu.Unlock()
}

// Pause moves a RUNNING node to PAUSED. No-op otherwise.
func (n *Node) Pause() {
	n.mu.Lock()
	if n.status == Running {
		n.status = Paused
	}
	n.mu.Unlock()
	n.cond.Broadcast()
}

// Resume moves a PAUSED node back to RUNNING. No-op otherwise.
func (n *Node) Resume() {
	n.mu.Lock()
	if n.status == Paused {
		n.status = Running
	}
	n.mu.Unlock()
	n.cond.Broadcast()
}

// Stop requests an orderly shutdown: the node finishes any in-flight
// execute phase, then transitions STOPPING -> EXITED via OnExit/Teardown.
func (n *Node) Stop() {
	n.mu.Lock()
	if n.status == Running || n.status == Paused {
		n.status = Stopping
	}
	n.mu.Unlock()
	n.cond.Broadcast()
}

// ForceStop is a best-effort hard cancel: it requests STOPPING and
// cancels the node's internal context immediately, without waiting for
// the in-flight hook to return.
// Hooks that do not observe ctx.Done() are unaffected and still run to
// completion; calling ForceStop on a ResourceNode mid-accessor does not
// interrupt the held resource_mutex and is documented as unsafe for that
// case.
func (n *Node) ForceStop() {
	n.mu.Lock()
	if n.status == Running || n.status == Paused {
		n.status = Stopping
	}
	n.mu.Unlock()
	n.cond.Broadcast()
	if n.cancel != nil {
		n.cancel()
	}
}

// Join blocks until the node reaches EXITED or ERROR.
func (n *Node) Join() {
	<-n.done
}

// Start launches the node's main loop on its own goroutine: one
// long-lived worker per node.
func (n *Node) Start() {
	n.ctx, n.cancel = context.WithCancel(context.Background())
	go n.run()
}

func (n *Node) run() {
	defer close(n.done)

	n.setStatus(Init)
	if err := n.hooks.Setup(n.ctx, n); err != nil {
		n.log.Error("setup failed", err, logging.F("node", n.Name))
		n.setStatus(Error)
		return
	}
	n.setStatus(Running)

	for {
		if n.Status() == Stopping {
			n.finish()
			return
		}

		n.waitWhilePaused()

		if n.Status() == Stopping {
			n.finish()
			return
		}

		if !n.hooks.PreTrigger(n.ctx, n) {
			time.Sleep(yieldInterval)
			continue
		}

		if !n.consumeTrigger() {
			time.Sleep(yieldInterval)
			continue
		}

		n.waitWhilePaused()

		if len(n.predecessors) > 0 {
			n.inbox.TryDrain()
			if !n.gate.Evaluate(n.inbox) {
				time.Sleep(yieldInterval)
				continue
			}
		}

		n.waitWhilePaused()
		n.hooks.PreExecution(n.ctx, n)

		n.waitWhilePaused()
		ok, err := n.callExecute()

		n.waitWhilePaused()
		switch {
		case err != nil:
			n.hooks.OnFailure(n.ctx, n, err)
			n.hooks.PostExecution(n.ctx, n)
			n.emit(mailbox.Failure)
		case ok:
			n.hooks.OnSuccess(n.ctx, n)
			n.hooks.PostExecution(n.ctx, n)
			n.emit(mailbox.Success)
		default:
			n.hooks.OnFailure(n.ctx, n, nil)
			n.hooks.PostExecution(n.ctx, n)
			n.emit(mailbox.Failure)
		}

		n.clearTriggerIfManual()
	}
}

// callExecute runs the Execute hook, containing a panic the way the
// source contains a raised exception: the worker does not terminate.
func (n *Node) callExecute() (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in execute: %v", r)
		}
	}()
	return n.hooks.Execute(n.ctx, n)
}

func (n *Node) finish() {
	if err := n.hooks.OnExit(n.ctx, n); err != nil {
		n.log.Error("on_exit failed", err, logging.F("node", n.Name))
	}
	n.hooks.Teardown(n.ctx, n)
	n.setStatus(Exited)
}

// waitWhilePaused implements the pause discipline: the next hook entry
// blocks until PAUSED clears, whether by Resume (-> RUNNING) or Stop
// (-> STOPPING).
func (n *Node) waitWhilePaused() {
	n.mu.Lock()
	for n.status == Paused {
		n.cond.Wait()
	}
	n.mu.Unlock()
}

// emit sends an outcome message to every successor's mailbox: emission is
// total, a failure is sent exactly as a success would be.
func (n *Node) emit(outcome mailbox.Outcome) {
	msg := mailbox.NewMessage(n.Name, outcome)
	for _, s := range n.successors {
		s.inbox.Put(msg)
	}
}
