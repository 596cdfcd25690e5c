package models

import "time"

// DefaultMaxRevisions is the revision ceiling applied to tasks that do
// not specify one.
const DefaultMaxRevisions = 3

// TaskStatus represents the current state of a task in the
// review/revision state machine.
type TaskStatus string

const (
	// TaskStatusPending indicates the task has not been assigned.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusAssigned indicates a worker has been selected but execution has not begun.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusInProgress indicates the task is being executed.
	TaskStatusInProgress TaskStatus = "in_progress"
	// TaskStatusReview indicates the output is awaiting a review verdict.
	TaskStatusReview TaskStatus = "review"
	// TaskStatusRevisionRequested indicates the reviewer asked for changes.
	TaskStatusRevisionRequested TaskStatus = "revision_requested"
	// TaskStatusCompleted indicates the task was approved.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the task failed permanently.
	TaskStatusFailed TaskStatus = "failed"
	// TaskStatusObsolete indicates the task was invalidated by a failed
	// prerequisite or a team abort and will never run.
	TaskStatusObsolete TaskStatus = "obsolete"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusAssigned, TaskStatusInProgress,
		TaskStatusReview, TaskStatusRevisionRequested,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusObsolete:
		return true
	default:
		return false
	}
}

// Terminal returns true if the task can never change status again.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed || s == TaskStatusObsolete
}

// CanTransitionTo reports whether moving from s to next is a legal
// task transition.
//
//	pending -> assigned -> in_progress -> review -> {completed | revision_requested | failed}
//	revision_requested -> in_progress (loops until approval or the revision ceiling)
//
// Any non-terminal state may move to obsolete when a prerequisite fails
// or the team aborts. A pending task may fail directly when assignment
// is impossible, and an assigned or in_progress task may fail directly
// on escalation.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == TaskStatusObsolete {
		return true
	}
	switch s {
	case TaskStatusPending:
		return next == TaskStatusAssigned || next == TaskStatusFailed
	case TaskStatusAssigned:
		return next == TaskStatusInProgress || next == TaskStatusFailed
	case TaskStatusInProgress:
		return next == TaskStatusReview || next == TaskStatusFailed
	case TaskStatusReview:
		return next == TaskStatusCompleted || next == TaskStatusRevisionRequested || next == TaskStatusFailed
	case TaskStatusRevisionRequested:
		return next == TaskStatusInProgress || next == TaskStatusFailed
	default:
		return false
	}
}

// Task represents a unit of decomposed work within a team.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// TeamID is the team this task belongs to.
	TeamID string `json:"team_id"`
	// ParentID is the ID of the parent task in the decomposition tree, if any.
	ParentID string `json:"parent_id,omitempty"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description"`
	// AcceptanceCriteria lists the conditions the output must satisfy.
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	// RequiredSkills lists the skill tags a worker should have for this task.
	RequiredSkills []string `json:"required_skills,omitempty"`
	// DependsOn lists task IDs that must complete before this task may run.
	DependsOn []string `json:"depends_on,omitempty"`
	// AssignedTo is the ID of the worker executing this task, once assigned.
	AssignedTo string `json:"assigned_to,omitempty"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// RevisionCount is the number of revisions requested so far.
	RevisionCount int `json:"revision_count"`
	// MaxRevisions is the revision ceiling before the task fails.
	MaxRevisions int `json:"max_revisions"`
	// Input is the opaque payload handed to the worker.
	Input string `json:"input,omitempty"`
	// Output is the opaque result produced by the worker, if any.
	Output string `json:"output,omitempty"`
	// Error contains the error message if the task failed.
	Error string `json:"error,omitempty"`
	// CreatedAt is when the task was created by decomposition.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when execution first began, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the task reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// RevisionsExhausted returns true if the task has consumed its revision budget.
func (t *Task) RevisionsExhausted() bool {
	return t.RevisionCount >= t.EffectiveMaxRevisions()
}

// EffectiveMaxRevisions returns the task's revision ceiling, applying
// the default when unset.
func (t *Task) EffectiveMaxRevisions() int {
	if t.MaxRevisions <= 0 {
		return DefaultMaxRevisions
	}
	return t.MaxRevisions
}

// Revision records one round of review feedback on a task. Revisions
// are appended, never edited.
type Revision struct {
	// TaskID is the task this revision belongs to.
	TaskID string `json:"task_id"`
	// Number is the 1-based revision number.
	Number int `json:"number"`
	// Feedback is the reviewer's free-text feedback.
	Feedback string `json:"feedback"`
	// CreatedAt is when the revision was requested.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the revised output was resubmitted, if it was.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
