package orchestrator

import (
	"time"

	"github.com/ShayCichocki/flotilla/internal/assign"
	"github.com/ShayCichocki/flotilla/internal/config"
	"github.com/ShayCichocki/flotilla/internal/failure"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEmitter sets the event emitter. The orchestrator creates a
// buffered one by default.
func WithEmitter(emitter *EventEmitter) Option {
	return func(o *Orchestrator) {
		o.emitter = emitter
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger *DebugLogger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithBudget sets the team's engine-spend ceiling in dollars.
func WithBudget(ceiling float64) Option {
	return func(o *Orchestrator) {
		o.budget = NewBudgetHandler(ceiling)
	}
}

// WithRoleTemplates sets the role catalog used for team formation.
func WithRoleTemplates(roles []config.RoleTemplate) Option {
	return func(o *Orchestrator) {
		o.roles = roles
	}
}

// WithAssigner substitutes the assignment engine, e.g. to share an
// outcome history across orchestrators.
func WithAssigner(a *assign.Assigner) Option {
	return func(o *Orchestrator) {
		o.assigner = a
	}
}

// WithFailureHandler substitutes the failure policy handler.
func WithFailureHandler(h *failure.Handler) Option {
	return func(o *Orchestrator) {
		o.failures = h
	}
}

// WithSleepFunc substitutes the sleep used between retry attempts.
// Tests use this to avoid real backoff delays.
func WithSleepFunc(sleep func(time.Duration)) Option {
	return func(o *Orchestrator) {
		o.sleep = sleep
	}
}
