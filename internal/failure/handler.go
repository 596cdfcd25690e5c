package failure

import (
	"math/rand"
	"sync"
	"time"
)

// Action is the handler's decision for a failed task.
type Action int

const (
	// ActionRetry re-executes the task from the beginning after backoff.
	ActionRetry Action = iota
	// ActionResume replays execution from the highest checkpoint.
	ActionResume
	// ActionReassign hands the task to a different worker via the
	// assignment engine. Reassignment does not count against the
	// task's revision ceiling.
	ActionReassign
	// ActionEscalate marks the task failed and raises a human escalation.
	ActionEscalate
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionResume:
		return "resume_from_checkpoint"
	case ActionReassign:
		return "reassign"
	case ActionEscalate:
		return "escalate"
	default:
		return "unknown"
	}
}

const (
	// DefaultMaxAttempts is the retry ceiling before escalation.
	DefaultMaxAttempts = 3
	// DefaultBackoffBase is the base delay for exponential backoff.
	DefaultBackoffBase = 1 * time.Second
	// DefaultBackoffCap is the maximum backoff delay.
	DefaultBackoffCap = 30 * time.Second
)

// CheckpointSource reports whether a task has any durable checkpoint.
// The state store satisfies this.
type CheckpointSource interface {
	HasCheckpoint(taskID string) (bool, error)
}

// Handler decides the next action for a failed task. The policy table
// is evaluated in order:
//
//  1. checkpoint exists and error is transient -> resume from checkpoint
//  2. error is transient and attempts < max   -> retry after backoff
//  3. unsuitable tool                         -> reassign
//  4. otherwise                               -> escalate
type Handler struct {
	checkpoints CheckpointSource
	maxAttempts int
	base        time.Duration
	cap         time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHandler creates a Handler backed by the given checkpoint source.
func NewHandler(checkpoints CheckpointSource) *Handler {
	return &Handler{
		checkpoints: checkpoints,
		maxAttempts: DefaultMaxAttempts,
		base:        DefaultBackoffBase,
		cap:         DefaultBackoffCap,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetMaxAttempts overrides the retry ceiling. Values below 1 are clamped.
func (h *Handler) SetMaxAttempts(max int) {
	if max < 1 {
		max = 1
	}
	h.maxAttempts = max
}

// SetBackoff overrides the backoff base and cap.
func (h *Handler) SetBackoff(base, cap time.Duration) {
	if base > 0 {
		h.base = base
	}
	if cap > 0 {
		h.cap = cap
	}
}

// Handle evaluates the policy table for a failed task and returns the
// next action. attempt is the number of attempts already made.
func (h *Handler) Handle(taskID string, err error, attempt int) Action {
	kind := Classify(err)

	if kind.Transient() {
		has, cpErr := h.checkpoints.HasCheckpoint(taskID)
		if cpErr == nil && has {
			return ActionResume
		}
		if attempt < h.maxAttempts {
			return ActionRetry
		}
		return ActionEscalate
	}

	if kind == KindUnsuitableTool {
		return ActionReassign
	}

	return ActionEscalate
}

// Backoff returns the delay before retry attempt number attempt
// (0-indexed): base * 2^attempt, capped, plus up to 25% jitter.
// The jittered delay never exceeds the cap.
func (h *Handler) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := h.base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= h.cap {
			delay = h.cap
			break
		}
	}

	h.mu.Lock()
	jitter := time.Duration(h.rng.Int63n(int64(delay)/4 + 1))
	h.mu.Unlock()

	if delay+jitter > h.cap {
		return h.cap
	}
	return delay + jitter
}
