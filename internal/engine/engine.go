// Package engine defines the reasoning-engine contract: goal analysis
// producing a task decomposition, and review verdicts on task output.
// The Anthropic-backed implementation lives in client.go; the
// orchestrator only depends on the Engine interface.
package engine

import (
	"context"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

// Subtask is one decomposed unit of work proposed by the engine.
// Refs are decomposition-local identifiers used for dependency wiring;
// the orchestrator replaces them with real task IDs.
type Subtask struct {
	// Ref is the decomposition-local identifier (e.g. "t1").
	Ref string `json:"ref"`
	// Title is the short description of the task.
	Title string `json:"title"`
	// Description provides detailed information about the task.
	Description string `json:"description"`
	// AcceptanceCriteria lists the conditions the output must satisfy.
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	// RequiredSkills lists skill tags the assigned worker should carry.
	RequiredSkills []string `json:"required_skills"`
	// DependsOn lists refs of subtasks that must complete first.
	DependsOn []string `json:"depends_on"`
	// ParentRef is the ref of the parent subtask in the tree, if any.
	ParentRef string `json:"parent_ref"`
}

// GoalAnalysis is the engine's structured understanding of a goal.
type GoalAnalysis struct {
	// CoreObjective is the engine's restatement of the goal.
	CoreObjective string `json:"core_objective"`
	// Subtasks is the proposed task decomposition.
	Subtasks []Subtask `json:"subtasks"`
	// RequiredSpecializations lists the worker specializations the
	// mission needs (e.g. "researcher", "coder", "tester").
	RequiredSpecializations []string `json:"required_specializations"`
	// EstimatedHours is the engine's timeline estimate.
	EstimatedHours float64 `json:"estimated_timeline_hours"`
	// PotentialBlockers lists risks the engine identified.
	PotentialBlockers []string `json:"potential_blockers"`
	// SuccessCriteria lists mission-level success conditions.
	SuccessCriteria []string `json:"success_criteria"`
}

// Verdict is the review decision for a task's output.
type Verdict string

const (
	// VerdictApproved accepts the output as-is.
	VerdictApproved Verdict = "approved"
	// VerdictRevisionRequested asks the worker to revise with feedback.
	VerdictRevisionRequested Verdict = "revision_requested"
	// VerdictRejected rejects the output permanently.
	VerdictRejected Verdict = "rejected"
)

// Valid returns true if the verdict is a known value.
func (v Verdict) Valid() bool {
	return v == VerdictApproved || v == VerdictRevisionRequested || v == VerdictRejected
}

// ReviewResult is the engine's verdict plus feedback for revisions.
type ReviewResult struct {
	// Verdict is the decision.
	Verdict Verdict `json:"verdict"`
	// Feedback is required for revision_requested and rejected verdicts.
	Feedback string `json:"feedback"`
}

// Usage is the token and cost accounting for one engine call.
type Usage struct {
	// InputTokens consumed by the call.
	InputTokens int64
	// OutputTokens produced by the call.
	OutputTokens int64
	// Cost is the estimated USD cost of the call.
	Cost float64
}

// Engine is the reasoning-engine contract. Both calls are synchronous
// request/response with a mandatory per-call timeout enforced by the
// implementation; a timed-out call is reported as a transient failure.
type Engine interface {
	// Analyze decomposes a goal into subtasks with team requirements.
	Analyze(ctx context.Context, goal string) (*GoalAnalysis, Usage, error)
	// Review judges a task's output against its acceptance criteria.
	Review(ctx context.Context, task *models.Task) (*ReviewResult, Usage, error)
}
