package node

import "context"

// Hooks is the overridable user-code contract a Node drives through its
// main loop. Every hook has a documented default no-op behavior so
// implementations only override what they need.
type Hooks interface {
	// Setup runs once while the node is INIT. Returning an error moves the
	// node to ERROR and it never runs again.
	Setup(ctx context.Context, n *Node) error

	// PreTrigger gates advancing past the trigger check. Returning false
	// causes the main loop to yield and retry.
	PreTrigger(ctx context.Context, n *Node) bool

	// PreExecution runs immediately before Execute, after the signal gate
	// has passed.
	PreExecution(ctx context.Context, n *Node)

	// Execute is the node's unit of work. true emits SUCCESS to successors,
	// false emits FAILURE; a returned error is treated the same as a false
	// result but additionally passed to OnFailure.
	Execute(ctx context.Context, n *Node) (bool, error)

	// PostExecution runs after Execute and its On{Success,Failure} hook,
	// regardless of outcome.
	PostExecution(ctx context.Context, n *Node)

	OnSuccess(ctx context.Context, n *Node)
	OnFailure(ctx context.Context, n *Node, err error)

	// OnExit runs once while transitioning STOPPING -> EXITED.
	OnExit(ctx context.Context, n *Node) error

	// Teardown runs after OnExit, regardless of whether OnExit errored.
	Teardown(ctx context.Context, n *Node)
}

// BaseHooks is an embeddable Hooks implementation where every method is a
// no-op (Execute returns true, PreTrigger returns true), following
// original_source's BaseNode hook stubs. Callers override individual
// behavior either by embedding BaseHooks and shadowing methods, or by
// setting the Func fields for simple one-off nodes (see NewTrivialNode,
// NewActionNode).
type BaseHooks struct {
	SetupFunc        func(ctx context.Context, n *Node) error
	PreTriggerFunc   func(ctx context.Context, n *Node) bool
	PreExecutionFunc func(ctx context.Context, n *Node)
	ExecuteFunc      func(ctx context.Context, n *Node) (bool, error)
	PostExecutionFunc func(ctx context.Context, n *Node)
	OnSuccessFunc    func(ctx context.Context, n *Node)
	OnFailureFunc    func(ctx context.Context, n *Node, err error)
	OnExitFunc       func(ctx context.Context, n *Node) error
	TeardownFunc     func(ctx context.Context, n *Node)
}

func (h *BaseHooks) Setup(ctx context.Context, n *Node) error {
	if h.SetupFunc != nil {
		return h.SetupFunc(ctx, n)
	}
	return nil
}

func (h *BaseHooks) PreTrigger(ctx context.Context, n *Node) bool {
	if h.PreTriggerFunc != nil {
		return h.PreTriggerFunc(ctx, n)
	}
	return true
}

func (h *BaseHooks) PreExecution(ctx context.Context, n *Node) {
	if h.PreExecutionFunc != nil {
		h.PreExecutionFunc(ctx, n)
	}
}

func (h *BaseHooks) Execute(ctx context.Context, n *Node) (bool, error) {
	if h.ExecuteFunc != nil {
		return h.ExecuteFunc(ctx, n)
	}
	return true, nil
}

func (h *BaseHooks) PostExecution(ctx context.Context, n *Node) {
	if h.PostExecutionFunc != nil {
		h.PostExecutionFunc(ctx, n)
	}
}

func (h *BaseHooks) OnSuccess(ctx context.Context, n *Node) {
	if h.OnSuccessFunc != nil {
		h.OnSuccessFunc(ctx, n)
	}
}

func (h *BaseHooks) OnFailure(ctx context.Context, n *Node, err error) {
	if h.OnFailureFunc != nil {
		h.OnFailureFunc(ctx, n, err)
	}
}

func (h *BaseHooks) OnExit(ctx context.Context, n *Node) error {
	if h.OnExitFunc != nil {
		return h.OnExitFunc(ctx, n)
	}
	return nil
}

func (h *BaseHooks) Teardown(ctx context.Context, n *Node) {
	if h.TeardownFunc != nil {
		h.TeardownFunc(ctx, n)
	}
}
