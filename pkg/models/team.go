// Package models defines the shared data model for Flotilla missions:
// teams, tasks, workers, checkpoints, and revisions.
package models

import "time"

// TeamStatus represents the lifecycle state of a team.
type TeamStatus string

const (
	// TeamStatusPending indicates the team was created but the mission has not started.
	TeamStatusPending TeamStatus = "pending"
	// TeamStatusPlanning indicates goal decomposition is in progress.
	TeamStatusPlanning TeamStatus = "planning"
	// TeamStatusActive indicates tasks are being executed.
	TeamStatusActive TeamStatus = "active"
	// TeamStatusCompleted indicates every task reached completed.
	TeamStatusCompleted TeamStatus = "completed"
	// TeamStatusFailed indicates the mission failed before completion.
	TeamStatusFailed TeamStatus = "failed"
	// TeamStatusArchived indicates the team is immutable and retained for history only.
	TeamStatusArchived TeamStatus = "archived"
)

// Valid returns true if the status is a known value.
func (s TeamStatus) Valid() bool {
	switch s {
	case TeamStatusPending, TeamStatusPlanning, TeamStatusActive,
		TeamStatusCompleted, TeamStatusFailed, TeamStatusArchived:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further status change is permitted except archival.
func (s TeamStatus) Terminal() bool {
	return s == TeamStatusCompleted || s == TeamStatusFailed || s == TeamStatusArchived
}

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle transition. Transitions are monotonic: there is no path
// back out of a terminal state, and archived teams never change.
func (s TeamStatus) CanTransitionTo(next TeamStatus) bool {
	switch s {
	case TeamStatusPending:
		return next == TeamStatusPlanning
	case TeamStatusPlanning:
		return next == TeamStatusActive || next == TeamStatusFailed
	case TeamStatusActive:
		return next == TeamStatusCompleted || next == TeamStatusFailed
	case TeamStatusCompleted, TeamStatusFailed:
		return next == TeamStatusArchived
	default:
		return false
	}
}

// Team represents one mission: a goal plus the workers and tasks
// created to accomplish it.
type Team struct {
	// ID is the unique identifier for this team.
	ID string `json:"id"`
	// Goal is the user-supplied objective for the mission.
	Goal string `json:"goal"`
	// Status is the current lifecycle state.
	Status TeamStatus `json:"status"`
	// BudgetLimit is the optional cost ceiling in USD. Zero means unlimited.
	BudgetLimit float64 `json:"budget_limit,omitempty"`
	// CreatedAt is when the team was created.
	CreatedAt time.Time `json:"created_at"`
	// StartedAt is when the mission started, if it has.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// CompletedAt is when the mission reached a terminal state, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
