// Package gate evaluates auxiliary string conditions over a node's local
// variables, letting a ResourceNode's trigger_condition (recovered from
// original_source/.../artifact_store.py) or any node's supplementary
// predicate be expressed as a string like "new_file_count > 0" rather
// than only Go code.
//
// Grounded on smilemakc-mbflow/internal/application/executor/graph.go's
// evaluateCondition, which compiles and caches github.com/expr-lang/expr
// programs keyed by the condition text.
package gate

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Evaluator compiles and caches expr programs so that repeated
// evaluation of the same condition string (a node evaluates its own
// condition every main-loop iteration) doesn't pay recompilation cost.
type Evaluator struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

// NewEvaluator builds an empty, ready-to-use Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]*vm.Program)}
}

// Eval compiles condition (if not already cached) against vars' inferred
// shape and runs it, expecting a boolean result. vars is typically a
// node's Variables map merged with any message-derived metadata.
func (e *Evaluator) Eval(condition string, vars map[string]any) (bool, error) {
	if condition == "" {
		return true, nil
	}
	program, err := e.compile(condition, vars)
	if err != nil {
		return false, fmt.Errorf("compiling condition %q: %w", condition, err)
	}
	out, err := expr.Run(program, vars)
	if err != nil {
		return false, fmt.Errorf("evaluating condition %q: %w", condition, err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean, got %T", condition, out)
	}
	return b, nil
}

func (e *Evaluator) compile(condition string, vars map[string]any) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.cache[condition]; ok {
		return p, nil
	}
	p, err := expr.Compile(condition, expr.Env(vars), expr.AsBool())
	if err != nil {
		return nil, err
	}
	e.cache[condition] = p
	return p, nil
}
