package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Escalation records a failure the orchestrator could not recover from
// on its own and is holding for a human decision.
type Escalation struct {
	// TeamID is the team the failing task belongs to.
	TeamID string
	// TaskID is the failing task.
	TaskID string
	// Reason describes why automatic recovery gave up.
	Reason string
	// RaisedAt is when the escalation was raised.
	RaisedAt time.Time
}

// EscalationDecision is a human's answer to an escalation.
type EscalationDecision struct {
	// TaskID identifies the escalation being answered.
	TaskID string
	// Retry restarts the task; false fails it terminally.
	Retry bool
	// Note is an optional operator comment.
	Note string
}

// EscalationManager holds escalations pending human decisions.
type EscalationManager struct {
	mu      sync.Mutex
	pending map[string]*Escalation
	waiters map[string]chan EscalationDecision
}

// NewEscalationManager creates an empty escalation manager.
func NewEscalationManager() *EscalationManager {
	return &EscalationManager{
		pending: make(map[string]*Escalation),
		waiters: make(map[string]chan EscalationDecision),
	}
}

// Raise records an escalation for the task. Raising twice for the same
// task keeps the original.
func (m *EscalationManager) Raise(teamID, taskID, reason string) *Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.pending[taskID]; ok {
		return existing
	}

	esc := &Escalation{
		TeamID:   teamID,
		TaskID:   taskID,
		Reason:   reason,
		RaisedAt: time.Now(),
	}
	m.pending[taskID] = esc
	m.waiters[taskID] = make(chan EscalationDecision, 1)
	return esc
}

// Pending returns the escalation for a task, or nil.
func (m *EscalationManager) Pending(taskID string) *Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[taskID]
}

// List returns all pending escalations.
func (m *EscalationManager) List() []*Escalation {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]*Escalation, 0, len(m.pending))
	for _, esc := range m.pending {
		result = append(result, esc)
	}
	return result
}

// Resolve submits a human decision for a pending escalation.
func (m *EscalationManager) Resolve(decision EscalationDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.waiters[decision.TaskID]
	if !ok {
		return fmt.Errorf("no pending escalation for task %s", decision.TaskID)
	}

	delete(m.pending, decision.TaskID)
	delete(m.waiters, decision.TaskID)
	ch <- decision
	close(ch)
	return nil
}

// WaitForDecision blocks until the escalation is resolved or the
// context ends.
func (m *EscalationManager) WaitForDecision(ctx context.Context, taskID string) (EscalationDecision, error) {
	m.mu.Lock()
	ch, ok := m.waiters[taskID]
	m.mu.Unlock()

	if !ok {
		return EscalationDecision{}, fmt.Errorf("no pending escalation for task %s", taskID)
	}

	select {
	case decision := <-ch:
		return decision, nil
	case <-ctx.Done():
		return EscalationDecision{}, ctx.Err()
	}
}
