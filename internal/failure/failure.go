// Package failure classifies task execution errors and decides the
// next action: retry, resume from checkpoint, reassign, or escalate.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the closed classification of execution errors consumed by
// the policy table. New kinds must be added here, not matched by string.
type Kind int

const (
	// KindTimeout is a transient failure caused by an expired deadline.
	KindTimeout Kind = iota
	// KindRateLimit is a transient failure caused by upstream throttling.
	KindRateLimit
	// KindUnsuitableTool indicates the assigned worker or tool cannot
	// perform the task and a different candidate should be selected.
	KindUnsuitableTool
	// KindUnrecoverable is a permanent failure requiring escalation.
	KindUnrecoverable
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindRateLimit:
		return "rate_limit"
	case KindUnsuitableTool:
		return "unsuitable_tool"
	case KindUnrecoverable:
		return "unrecoverable"
	default:
		return "unknown"
	}
}

// Transient returns true for error kinds that are safe to retry.
func (k Kind) Transient() bool {
	return k == KindTimeout || k == KindRateLimit
}

// ExecError is an execution failure tagged with its classification.
// Executors wrap their errors in ExecError so the handler never has to
// inspect error text.
type ExecError struct {
	// Kind is the failure classification.
	Kind Kind
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Wrap tags err with the given kind. Returns nil if err is nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ExecError{Kind: kind, Err: err}
}

// Classify returns the kind for an arbitrary error. Tagged errors keep
// their kind; an expired context deadline is a timeout; everything else
// is unrecoverable.
func Classify(err error) Kind {
	var execErr *ExecError
	if errors.As(err, &execErr) {
		return execErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnrecoverable
}
