package models

import "time"

// DefaultMaxConcurrent is the concurrency ceiling applied to workers
// that do not specify one.
const DefaultMaxConcurrent = 3

// WorkerRole distinguishes the manager slot from executing workers.
type WorkerRole string

const (
	// RoleManager is the coordinating slot that reviews worker output.
	RoleManager WorkerRole = "manager"
	// RoleWorker is an executing slot.
	RoleWorker WorkerRole = "worker"
)

// Valid returns true if the role is a known value.
func (r WorkerRole) Valid() bool {
	return r == RoleManager || r == RoleWorker
}

// Worker represents a role slot within a team. Workers are owned by
// their team and are logically destroyed when the team archives.
type Worker struct {
	// ID is the unique identifier for this worker.
	ID string `json:"id"`
	// TeamID is the team this worker belongs to.
	TeamID string `json:"team_id"`
	// Role is manager or worker.
	Role WorkerRole `json:"role"`
	// Specialization is the worker's specialization label (e.g. "coder").
	Specialization string `json:"specialization"`
	// Skills lists the skill tags this worker carries.
	Skills []string `json:"skills,omitempty"`
	// CurrentWorkload is the number of tasks currently assigned.
	CurrentWorkload int `json:"current_workload"`
	// MaxConcurrent is the maximum number of tasks this worker may hold at once.
	MaxConcurrent int `json:"max_concurrent"`
	// CreatedAt is when the worker slot was created.
	CreatedAt time.Time `json:"created_at"`
}

// EffectiveMaxConcurrent returns the worker's concurrency ceiling,
// applying the default when unset.
func (w *Worker) EffectiveMaxConcurrent() int {
	if w.MaxConcurrent <= 0 {
		return DefaultMaxConcurrent
	}
	return w.MaxConcurrent
}

// Available returns true if the worker has a free concurrency slot.
func (w *Worker) Available() bool {
	return w.CurrentWorkload < w.EffectiveMaxConcurrent()
}

// HasSkill reports whether the worker carries the given skill tag.
// Matching is exact and case-sensitive; decomposition and role
// templates share the same tag vocabulary.
func (w *Worker) HasSkill(tag string) bool {
	for _, s := range w.Skills {
		if s == tag {
			return true
		}
	}
	return false
}
