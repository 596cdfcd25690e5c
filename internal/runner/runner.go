// Package runner executes tasks as a sequence of steps against the
// tool-execution contract, emitting a durable checkpoint after every
// completed step. A failed task resumes from its highest checkpoint
// and never re-runs completed steps.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/flotilla/internal/state"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// StepResult is the outcome of one executed step.
type StepResult struct {
	// Output is the step's contribution to the task output.
	Output string
	// Context is the opaque payload checkpointed after this step and
	// handed to the next step (and to resumption).
	Context string
}

// Executor is the tool-execution contract. The orchestrator is blind
// to what a step actually does; it only classifies failures, which
// executors signal by tagging errors with failure kinds.
type Executor interface {
	// NumSteps returns how many steps the task requires.
	NumSteps(ctx context.Context, task *models.Task) (int, error)
	// ExecuteStep runs one 1-based step. prior is the checkpoint
	// context of the preceding step, or empty for step 1.
	ExecuteStep(ctx context.Context, task *models.Task, step int, prior string) (*StepResult, error)
}

// CheckpointStore is the slice of the state store the runner needs.
type CheckpointStore interface {
	AppendCheckpoint(cp *models.Checkpoint) error
	LatestCheckpoint(taskID string) (*models.Checkpoint, error)
}

// Result summarizes one run or resumption of a task.
type Result struct {
	// Output is the concatenated output of the steps executed in this
	// run. On resumption it covers only the replayed tail.
	Output string
	// StepsRun is the number of steps executed in this run.
	StepsRun int
	// FinalStep is the highest step completed for the task overall.
	FinalStep int
}

// Runner drives step execution with checkpointing.
type Runner struct {
	exec  Executor
	store CheckpointStore
}

// New creates a Runner over the given executor and checkpoint store.
func New(exec Executor, store CheckpointStore) *Runner {
	return &Runner{exec: exec, store: store}
}

// Run executes a task from the beginning.
func (r *Runner) Run(ctx context.Context, task *models.Task) (*Result, error) {
	return r.run(ctx, task, 1, "")
}

// Resume continues a task from its highest checkpoint. If the task has
// no checkpoint, this is equivalent to Run.
func (r *Runner) Resume(ctx context.Context, task *models.Task) (*Result, error) {
	cp, err := r.store.LatestCheckpoint(task.ID)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return r.run(ctx, task, 1, "")
		}
		return nil, fmt.Errorf("load checkpoint for task %s: %w", task.ID, err)
	}
	return r.run(ctx, task, cp.Step+1, cp.Context)
}

// run executes steps startStep..n, checkpointing after each one.
func (r *Runner) run(ctx context.Context, task *models.Task, startStep int, prior string) (*Result, error) {
	total, err := r.exec.NumSteps(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("plan steps for task %s: %w", task.ID, err)
	}
	if total < 1 {
		return nil, fmt.Errorf("task %s plans %d steps", task.ID, total)
	}

	result := &Result{FinalStep: startStep - 1}
	var output strings.Builder

	// Output covers every step completed in this run, including runs
	// that end in an error partway through.
	defer func() { result.Output = output.String() }()

	for step := startStep; step <= total; step++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		stepResult, err := r.exec.ExecuteStep(ctx, task, step, prior)
		if err != nil {
			return result, fmt.Errorf("execute step %d of task %s: %w", step, task.ID, err)
		}

		err = r.store.AppendCheckpoint(&models.Checkpoint{
			TaskID:    task.ID,
			Step:      step,
			Context:   stepResult.Context,
			CreatedAt: time.Now(),
		})
		if err != nil {
			// A racing resume may have checkpointed this step already;
			// the unique constraint makes the replay a no-op.
			if !errors.Is(err, state.ErrDuplicateCheckpoint) {
				return result, fmt.Errorf("checkpoint step %d of task %s: %w", step, task.ID, err)
			}
		}

		output.WriteString(stepResult.Output)
		prior = stepResult.Context
		result.StepsRun++
		result.FinalStep = step
	}

	return result, nil
}
