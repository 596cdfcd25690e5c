// Package orchestrator coordinates teams of workers against a goal:
// planning, assignment, execution, review, and failure recovery.
package orchestrator

import (
	"time"
)

// EventType represents the type of orchestrator event.
type EventType string

const (
	// EventTeamCreated indicates a team was created for a goal.
	EventTeamCreated EventType = "team_created"
	// EventPlanningStarted indicates goal analysis has begun.
	EventPlanningStarted EventType = "planning_started"
	// EventPlanReady indicates the goal was decomposed into tasks.
	EventPlanReady EventType = "plan_ready"
	// EventTeamActive indicates the team has started executing.
	EventTeamActive EventType = "team_active"
	// EventTaskQueued indicates a task is ready but no worker has capacity.
	EventTaskQueued EventType = "task_queued"
	// EventTaskAssigned indicates a task was assigned to a worker.
	EventTaskAssigned EventType = "task_assigned"
	// EventTaskStarted indicates a worker began executing a task.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task passed review and completed.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed terminally.
	EventTaskFailed EventType = "task_failed"
	// EventTaskObsolete indicates a task was made obsolete.
	EventTaskObsolete EventType = "task_obsolete"
	// EventRevisionRequested indicates review sent a task back for rework.
	EventRevisionRequested EventType = "revision_requested"
	// EventWorkerAvailable indicates a worker regained capacity.
	EventWorkerAvailable EventType = "worker_available"
	// EventBudgetWarning indicates spend crossed the warning threshold.
	EventBudgetWarning EventType = "budget_warning"
	// EventBudgetExhausted indicates the team's cost ceiling was reached.
	EventBudgetExhausted EventType = "budget_exhausted"
	// EventEscalationRaised indicates a failure needs human attention.
	EventEscalationRaised EventType = "escalation_raised"
	// EventTeamCompleted indicates every task finished and the team completed.
	EventTeamCompleted EventType = "team_completed"
	// EventTeamFailed indicates the team failed.
	EventTeamFailed EventType = "team_failed"
	// EventTeamArchived indicates the team was archived.
	EventTeamArchived EventType = "team_archived"
)

// Event represents an event emitted by the orchestrator. Events feed
// the CLI status view and the audit trail.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TeamID is the ID of the related team.
	TeamID string
	// TaskID is the ID of the related task, if applicable.
	TaskID string
	// WorkerID is the ID of the related worker, if applicable.
	WorkerID string
	// Message provides additional context about the event.
	Message string
	// Error contains error details for failure events.
	Error error
	// Timestamp is when the event occurred.
	Timestamp time.Time
	// Cost is the team's accumulated engine spend in dollars, when known.
	Cost float64
}
