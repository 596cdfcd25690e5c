// Package review drives the review and revision loop for submitted
// task work. Every piece of worker output passes review before the
// task completes, and revision requests are bounded by the task's
// revision ceiling.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/flotilla/internal/engine"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// ErrRevisionLimitExceeded indicates a revision was requested for a
// task that has already consumed its revision ceiling.
var ErrRevisionLimitExceeded = errors.New("revision limit exceeded")

// ErrNotInReview indicates a review decision was applied to a task
// that has no work awaiting review.
var ErrNotInReview = errors.New("task is not in review")

// Outcome is the result of applying one review decision.
type Outcome string

const (
	// OutcomeApproved means the work was accepted and the task completed.
	OutcomeApproved Outcome = "approved"
	// OutcomeRevision means the task was sent back for another revision.
	OutcomeRevision Outcome = "revision_requested"
	// OutcomeRejected means the work was rejected and the task failed.
	OutcomeRejected Outcome = "rejected"
	// OutcomeExhausted means a revision was requested past the ceiling
	// and the task failed instead.
	OutcomeExhausted Outcome = "revisions_exhausted"
)

// Store is the slice of the state store the reviewer needs.
type Store interface {
	GetTask(id string) (*models.Task, error)
	UpdateTask(task *models.Task) error
	AppendRevision(rev *models.Revision) error
	CompleteRevision(taskID string, number int) error
	AppendAudit(teamID, taskID, event, detail string) error
}

// Reviewer applies review decisions, from the reasoning engine or from
// a human, to tasks awaiting review.
type Reviewer struct {
	engine engine.Engine
	store  Store
}

// New creates a Reviewer. The engine may be nil when only manual
// decisions are applied.
func New(eng engine.Engine, store Store) *Reviewer {
	return &Reviewer{engine: eng, store: store}
}

// Review asks the reasoning engine to judge the task's output and
// applies the resulting verdict.
func (r *Reviewer) Review(ctx context.Context, taskID string) (Outcome, engine.Usage, error) {
	if r.engine == nil {
		return "", engine.Usage{}, errors.New("no reasoning engine configured")
	}

	task, err := r.store.GetTask(taskID)
	if err != nil {
		return "", engine.Usage{}, fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status != models.TaskStatusReview {
		return "", engine.Usage{}, fmt.Errorf("task %s in status %s: %w", taskID, task.Status, ErrNotInReview)
	}

	result, usage, err := r.engine.Review(ctx, task)
	if err != nil {
		return "", usage, fmt.Errorf("review task %s: %w", taskID, err)
	}

	outcome, err := r.Apply(taskID, result.Verdict, result.Feedback)
	return outcome, usage, err
}

// Apply applies one review verdict to a task in review. An approval
// completes the task; a rejection fails it; a revision request sends
// it back for rework, or fails it when the ceiling is already spent.
func (r *Reviewer) Apply(taskID string, verdict engine.Verdict, feedback string) (Outcome, error) {
	task, err := r.store.GetTask(taskID)
	if err != nil {
		return "", fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status != models.TaskStatusReview {
		return "", fmt.Errorf("task %s in status %s: %w", taskID, task.Status, ErrNotInReview)
	}

	switch verdict {
	case engine.VerdictApproved:
		return r.approve(task)
	case engine.VerdictRevisionRequested:
		return r.requestRevision(task, feedback)
	case engine.VerdictRejected:
		return r.reject(task, feedback)
	default:
		return "", fmt.Errorf("unknown verdict %q for task %s", verdict, taskID)
	}
}

func (r *Reviewer) approve(task *models.Task) (Outcome, error) {
	now := time.Now()
	task.Status = models.TaskStatusCompleted
	task.CompletedAt = &now
	if err := r.store.UpdateTask(task); err != nil {
		return "", fmt.Errorf("complete task %s: %w", task.ID, err)
	}

	r.audit(task, "task_approved", "")
	return OutcomeApproved, nil
}

func (r *Reviewer) requestRevision(task *models.Task, feedback string) (Outcome, error) {
	if feedback == "" {
		return "", fmt.Errorf("revision request for task %s carries no feedback", task.ID)
	}

	// The request that brings the count to the ceiling fails the task;
	// a task with max_revisions=3 fails on the third revision request,
	// it does not get a fourth work cycle.
	task.RevisionCount++
	if task.RevisionsExhausted() {
		task.Status = models.TaskStatusFailed
		task.Error = fmt.Sprintf("revision limit of %d exceeded", task.EffectiveMaxRevisions())
		if err := r.store.UpdateTask(task); err != nil {
			return "", fmt.Errorf("fail task %s: %w", task.ID, err)
		}
		r.audit(task, "task_failed", task.Error)
		return OutcomeExhausted, fmt.Errorf("task %s: %w", task.ID, ErrRevisionLimitExceeded)
	}

	task.Status = models.TaskStatusRevisionRequested
	if err := r.store.UpdateTask(task); err != nil {
		return "", fmt.Errorf("request revision on task %s: %w", task.ID, err)
	}

	err := r.store.AppendRevision(&models.Revision{
		TaskID:    task.ID,
		Number:    task.RevisionCount,
		Feedback:  feedback,
		CreatedAt: time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("record revision %d for task %s: %w", task.RevisionCount, task.ID, err)
	}

	r.audit(task, "revision_requested", feedback)
	return OutcomeRevision, nil
}

func (r *Reviewer) reject(task *models.Task, reason string) (Outcome, error) {
	if reason == "" {
		reason = "work rejected by reviewer"
	}
	task.Status = models.TaskStatusFailed
	task.Error = reason
	if err := r.store.UpdateTask(task); err != nil {
		return "", fmt.Errorf("reject task %s: %w", task.ID, err)
	}

	r.audit(task, "task_rejected", reason)
	return OutcomeRejected, nil
}

// StartRevision moves a task from revision_requested back to
// in_progress when its worker picks the rework up.
func (r *Reviewer) StartRevision(taskID string) error {
	task, err := r.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status != models.TaskStatusRevisionRequested {
		return fmt.Errorf("task %s in status %s cannot start a revision", taskID, task.Status)
	}

	task.Status = models.TaskStatusInProgress
	if err := r.store.UpdateTask(task); err != nil {
		return fmt.Errorf("start revision on task %s: %w", taskID, err)
	}

	r.audit(task, "revision_started", fmt.Sprintf("revision %d", task.RevisionCount))
	return nil
}

// SubmitForReview moves an in-progress task into review with the given
// output, closing the open revision if one exists.
func (r *Reviewer) SubmitForReview(taskID, output string) error {
	task, err := r.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status != models.TaskStatusInProgress {
		return fmt.Errorf("task %s in status %s cannot be submitted", taskID, task.Status)
	}

	task.Status = models.TaskStatusReview
	task.Output = output
	if err := r.store.UpdateTask(task); err != nil {
		return fmt.Errorf("submit task %s: %w", taskID, err)
	}

	if task.RevisionCount > 0 {
		if err := r.store.CompleteRevision(taskID, task.RevisionCount); err != nil {
			return fmt.Errorf("close revision %d for task %s: %w", task.RevisionCount, taskID, err)
		}
	}

	r.audit(task, "review_submitted", "")
	return nil
}

// audit records a review event. Audit failures are swallowed so they
// never block the state machine.
func (r *Reviewer) audit(task *models.Task, event, detail string) {
	_ = r.store.AppendAudit(task.TeamID, task.ID, event, detail)
}
