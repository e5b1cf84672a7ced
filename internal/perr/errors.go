// Package perr defines the configuration-error taxonomy for pipeline
// construction: cyclic DAGs, malformed gate expressions, duplicate node
// names, and other errors raised synchronously from construction. These
// are terminal; they never arise from a running worker.
package perr

import "fmt"

// ConfigurationError is returned when a Pipeline or Node is misconfigured:
// a cyclic DAG, a malformed gate expression, or an invalid initial status.
type ConfigurationError struct {
	// Kind classifies the error for callers that want to branch on it
	// (e.g. InvalidNodeDependency).
	Kind    string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Well-known configuration error kinds.
const (
	KindInvalidNodeDependency = "InvalidNodeDependency"
	KindMalformedGate         = "MalformedGate"
	KindInvalidStatus         = "InvalidStatus"
	KindDuplicateName         = "DuplicateNodeName"
)

// InvalidNodeDependency reports a cycle in the node dependency graph.
func InvalidNodeDependency(msg string) error {
	return &ConfigurationError{Kind: KindInvalidNodeDependency, Message: msg}
}

// MalformedGate reports a signal-expression arity violation (e.g. NOT with
// other than exactly one child).
func MalformedGate(msg string) error {
	return &ConfigurationError{Kind: KindMalformedGate, Message: msg}
}

// DuplicateName reports two nodes registered with the same name.
func DuplicateName(name string) error {
	return &ConfigurationError{Kind: KindDuplicateName, Message: fmt.Sprintf("duplicate node name %q", name)}
}

// IsConfigurationError reports whether err is a *ConfigurationError.
func IsConfigurationError(err error) bool {
	_, ok := err.(*ConfigurationError)
	return ok
}
