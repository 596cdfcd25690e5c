package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/flotilla/internal/assign"
	"github.com/ShayCichocki/flotilla/internal/config"
	"github.com/ShayCichocki/flotilla/internal/engine"
	"github.com/ShayCichocki/flotilla/internal/failure"
	"github.com/ShayCichocki/flotilla/internal/review"
	"github.com/ShayCichocki/flotilla/internal/runner"
	"github.com/ShayCichocki/flotilla/internal/state"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// Reworker is implemented by executors that can revise prior output
// against review feedback. Executors without it resubmit the previous
// output unchanged.
type Reworker interface {
	Rework(ctx context.Context, task *models.Task, feedback string) (string, error)
}

// resumeGuardFactor bounds repeated resume attempts: past
// maxAttempts * resumeGuardFactor failures the task escalates even
// when a checkpoint exists, so a persistently failing step cannot
// loop forever.
const resumeGuardFactor = 2

// Orchestrator drives one team from goal to terminal state: planning,
// dispatch, execution, review, and failure recovery. It is the single
// writer for the team's task statuses.
type Orchestrator struct {
	teamID string

	store    state.Store
	eng      engine.Engine
	exec     runner.Executor
	run      *runner.Runner
	assigner *assign.Assigner
	reviewer *review.Reviewer
	failures *failure.Handler
	planner  *Planner

	emitter     *EventEmitter
	logger      *DebugLogger
	budget      *BudgetHandler
	roles       []config.RoleTemplate
	escalations *EscalationManager
	queue       *pendingQueue
	sleep       func(time.Duration)

	mu       sync.Mutex
	graph    *DependencyGraph
	attempts map[string]int
	warned   bool
}

// New creates an Orchestrator for an existing team.
func New(teamID string, store state.Store, eng engine.Engine, exec runner.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		teamID:      teamID,
		store:       store,
		eng:         eng,
		exec:        exec,
		run:         runner.New(exec, store),
		assigner:    assign.New(nil),
		failures:    failure.NewHandler(store),
		emitter:     NewEventEmitter(64),
		logger:      NopLogger(),
		budget:      NewBudgetHandler(0),
		escalations: NewEscalationManager(),
		queue:       newPendingQueue(),
		sleep:       time.Sleep,
		attempts:    make(map[string]int),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.reviewer = review.New(eng, store)
	o.planner = NewPlanner(eng, o.logger, o.roles)
	return o
}

// CreateTeam persists a new team in pending state for the given goal.
func CreateTeam(store state.Store, goal string, budgetLimit float64) (*models.Team, error) {
	if goal == "" {
		return nil, errors.New("team goal is empty")
	}
	team := &models.Team{
		ID:          uuid.New().String(),
		Goal:        goal,
		Status:      models.TeamStatusPending,
		BudgetLimit: budgetLimit,
		CreatedAt:   time.Now(),
	}
	if err := store.CreateTeam(team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	_ = store.AppendAudit(team.ID, "", "team_created", goal)
	return team, nil
}

// Events returns the orchestrator's event stream.
func (o *Orchestrator) Events() <-chan Event {
	return o.emitter.Events()
}

// Escalations returns the escalation manager for human decisions.
func (o *Orchestrator) Escalations() *EscalationManager {
	return o.escalations
}

// Budget returns the team's budget handler.
func (o *Orchestrator) Budget() *BudgetHandler {
	return o.budget
}

// RecordSpend meters engine spend incurred outside the orchestrator's
// own calls, such as worker step execution and rework. It feeds the
// same budget ceiling and warning threshold as planning and review
// spend.
func (o *Orchestrator) RecordSpend(cost float64) {
	o.addSpend(cost)
}

// Plan decomposes the team goal into tasks and staffs the team, moving
// it from pending through planning to active. A planning failure moves
// the team to failed.
func (o *Orchestrator) Plan(ctx context.Context) error {
	team, err := o.store.GetTeam(o.teamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team.Status != models.TeamStatusPending {
		return fmt.Errorf("team %s in status %s cannot start planning", o.teamID, team.Status)
	}

	if err := o.store.UpdateTeamStatus(o.teamID, models.TeamStatusPlanning); err != nil {
		return fmt.Errorf("enter planning: %w", err)
	}
	o.emit(Event{Type: EventPlanningStarted, TeamID: o.teamID, Message: team.Goal})
	o.logger.Log("team %s planning goal: %s", o.teamID, team.Goal)

	analysis, tasks, usage, err := o.planner.Plan(ctx, team)
	o.addSpend(usage.Cost)
	if err != nil {
		o.failTeam(fmt.Sprintf("planning failed: %v", err))
		return err
	}

	for _, task := range tasks {
		task.MaxRevisions = o.defaultMaxRevisions(team)
		if err := o.store.CreateTask(task); err != nil {
			o.failTeam(fmt.Sprintf("persist tasks: %v", err))
			return fmt.Errorf("persist task %s: %w", task.ID, err)
		}
	}

	workers, err := FormTeam(o.teamID, analysis.RequiredSpecializations, o.roles)
	if err != nil {
		o.failTeam(fmt.Sprintf("team formation failed: %v", err))
		return err
	}
	for _, w := range workers {
		if err := o.store.CreateWorker(w); err != nil {
			o.failTeam(fmt.Sprintf("persist workers: %v", err))
			return fmt.Errorf("persist worker %s: %w", w.ID, err)
		}
	}

	o.mu.Lock()
	o.graph = NewDependencyGraph()
	buildErr := o.graph.Build(tasks)
	o.mu.Unlock()
	if buildErr != nil {
		o.failTeam(fmt.Sprintf("task graph invalid: %v", buildErr))
		return buildErr
	}

	if err := o.store.UpdateTeamStatus(o.teamID, models.TeamStatusActive); err != nil {
		return fmt.Errorf("activate team: %w", err)
	}
	_ = o.store.AppendAudit(o.teamID, "", "team_planned", analysis.CoreObjective)
	o.emit(Event{Type: EventPlanReady, TeamID: o.teamID, Message: fmt.Sprintf("%d tasks, %d workers", len(tasks), len(workers))})
	o.emit(Event{Type: EventTeamActive, TeamID: o.teamID})
	return nil
}

// defaultMaxRevisions keeps the models default; teams with tight
// budgets could lower it here later.
func (o *Orchestrator) defaultMaxRevisions(team *models.Team) int {
	return models.DefaultMaxRevisions
}

// ensureGraph rebuilds the dependency graph from the store, used when
// an orchestrator attaches to an already-planned team.
func (o *Orchestrator) ensureGraph() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.graph != nil {
		return nil
	}
	tasks, err := o.store.ListTasks(o.teamID)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	g := NewDependencyGraph()
	if err := g.Build(tasks); err != nil {
		return err
	}
	o.graph = g
	return nil
}

// DispatchReady assigns every ready task a worker, queueing tasks for
// which no worker has capacity. Queued tasks drain first, in FIFO
// order, when capacity returns.
func (o *Orchestrator) DispatchReady(ctx context.Context) error {
	if err := o.ensureGraph(); err != nil {
		return err
	}

	if !o.budget.CanStartNew() {
		o.emitBudgetExhausted()
		return nil
	}

	// Drain the capacity queue first. The head stays in place until it
	// actually assigns, so queued tasks keep their arrival order.
	for {
		id, ok := o.queue.Peek()
		if !ok {
			break
		}
		assigned, err := o.tryAssign(id)
		if err != nil {
			return err
		}
		if !assigned {
			break
		}
		o.queue.Remove(id)
	}

	o.mu.Lock()
	ready := o.graph.GetReady()
	o.mu.Unlock()

	// Map order is random; dispatch in creation order.
	tasks := make([]*models.Task, 0, len(ready))
	for _, id := range ready {
		if o.queue.Contains(id) {
			continue
		}
		task, err := o.store.GetTask(id)
		if err != nil {
			return fmt.Errorf("load ready task %s: %w", id, err)
		}
		if task.Status != models.TaskStatusPending {
			continue
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})

	for _, task := range tasks {
		if !o.budget.CanStartNew() {
			o.emitBudgetExhausted()
			return nil
		}
		if _, err := o.tryAssign(task.ID); err != nil {
			return err
		}
	}
	return nil
}

// tryAssign assigns one task, returning false when every eligible
// worker is at capacity (the task is then queued).
func (o *Orchestrator) tryAssign(taskID string) (bool, error) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		return false, fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status != models.TaskStatusPending {
		return true, nil
	}

	workers, err := o.store.ListWorkers(o.teamID)
	if err != nil {
		return false, fmt.Errorf("list workers: %w", err)
	}

	workerID, err := o.assigner.Assign(task, workers)
	if err != nil {
		if errors.Is(err, assign.ErrNoEligibleWorker) {
			if o.queue.Enqueue(taskID) {
				o.emit(Event{Type: EventTaskQueued, TeamID: o.teamID, TaskID: taskID, Message: task.Title})
				_ = o.store.AppendAudit(o.teamID, taskID, "task_queued", "no worker capacity")
				o.logger.Log("task %s queued: no worker capacity", taskID)
			}
			return false, nil
		}
		return false, fmt.Errorf("assign task %s: %w", taskID, err)
	}

	task.AssignedTo = workerID
	task.Status = models.TaskStatusAssigned
	if err := o.store.UpdateTask(task); err != nil {
		return false, fmt.Errorf("persist assignment of %s: %w", taskID, err)
	}
	if err := o.store.AdjustWorkload(workerID, +1); err != nil {
		return false, fmt.Errorf("bump workload of %s: %w", workerID, err)
	}

	o.emit(Event{Type: EventTaskAssigned, TeamID: o.teamID, TaskID: taskID, WorkerID: workerID})
	_ = o.store.AppendAudit(o.teamID, taskID, "task_assigned", workerID)
	return true, nil
}

// ExecuteTask drives one assigned task to a terminal state: execution
// with failure recovery, then the review loop.
func (o *Orchestrator) ExecuteTask(ctx context.Context, taskID string) error {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}
	if task.Status != models.TaskStatusAssigned {
		return fmt.Errorf("task %s in status %s cannot execute", taskID, task.Status)
	}

	now := time.Now()
	task.Status = models.TaskStatusInProgress
	task.StartedAt = &now
	if err := o.store.UpdateTask(task); err != nil {
		return fmt.Errorf("start task %s: %w", taskID, err)
	}
	o.emit(Event{Type: EventTaskStarted, TeamID: o.teamID, TaskID: taskID, WorkerID: task.AssignedTo})
	_ = o.store.AppendAudit(o.teamID, taskID, "task_started", "")

	output, err := o.executeWithRecovery(ctx, task)
	if err != nil {
		o.failTask(task, err)
		return nil
	}

	return o.reviewLoop(ctx, taskID, output)
}

// executeWithRecovery runs the task, applying the failure policy until
// the task produces output or fails terminally.
func (o *Orchestrator) executeWithRecovery(ctx context.Context, task *models.Task) (string, error) {
	var output string

	for {
		res, err := o.runOrResume(ctx, task)
		if res != nil {
			output += res.Output
		}
		if err == nil {
			return output, nil
		}
		if ctx.Err() != nil {
			return "", err
		}

		o.mu.Lock()
		o.attempts[task.ID]++
		attempt := o.attempts[task.ID]
		o.mu.Unlock()

		action := o.failures.Handle(task.ID, err, attempt)
		if action == failure.ActionResume && attempt >= o.failureMaxAttempts()*resumeGuardFactor {
			action = failure.ActionEscalate
		}

		o.logger.Log("task %s attempt %d failed (%s): %v", task.ID, attempt, action, err)
		_ = o.store.AppendAudit(o.teamID, task.ID, "task_failure", fmt.Sprintf("%s: %v", action, err))

		switch action {
		case failure.ActionRetry:
			o.sleep(o.failures.Backoff(attempt - 1))
		case failure.ActionResume:
			o.sleep(o.failures.Backoff(attempt - 1))
		case failure.ActionReassign:
			if rerr := o.reassign(task); rerr != nil {
				retry, eerr := o.awaitEscalation(ctx, task, fmt.Errorf("reassign failed: %w", rerr))
				if !retry {
					return "", eerr
				}
			}
		case failure.ActionEscalate:
			retry, eerr := o.awaitEscalation(ctx, task, err)
			if !retry {
				return "", eerr
			}
		}
	}
}

// failureMaxAttempts mirrors the handler's retry ceiling for the
// resume guard.
func (o *Orchestrator) failureMaxAttempts() int {
	return failure.DefaultMaxAttempts
}

// runOrResume resumes from the latest checkpoint when one exists,
// otherwise runs from the start.
func (o *Orchestrator) runOrResume(ctx context.Context, task *models.Task) (*runner.Result, error) {
	has, err := o.store.HasCheckpoint(task.ID)
	if err != nil {
		return nil, fmt.Errorf("check checkpoints for %s: %w", task.ID, err)
	}
	if has {
		return o.run.Resume(ctx, task)
	}
	return o.run.Run(ctx, task)
}

// reassign hands the task to a different worker. The old worker's slot
// is released and the outcome recorded as a failure for them.
func (o *Orchestrator) reassign(task *models.Task) error {
	oldWorker := task.AssignedTo
	if oldWorker != "" {
		if err := o.store.AdjustWorkload(oldWorker, -1); err != nil {
			return fmt.Errorf("release worker %s: %w", oldWorker, err)
		}
		o.assigner.History().Record(oldWorker, false)
	}

	workers, err := o.store.ListWorkers(o.teamID)
	if err != nil {
		return fmt.Errorf("list workers: %w", err)
	}
	candidates := make([]*models.Worker, 0, len(workers))
	for _, w := range workers {
		if w.ID != oldWorker {
			candidates = append(candidates, w)
		}
	}

	workerID, err := o.assigner.Assign(task, candidates)
	if err != nil {
		return fmt.Errorf("reassign task %s: %w", task.ID, err)
	}

	task.AssignedTo = workerID
	if err := o.store.UpdateTask(task); err != nil {
		return fmt.Errorf("persist reassignment of %s: %w", task.ID, err)
	}
	if err := o.store.AdjustWorkload(workerID, +1); err != nil {
		return fmt.Errorf("bump workload of %s: %w", workerID, err)
	}

	o.emit(Event{Type: EventTaskAssigned, TeamID: o.teamID, TaskID: task.ID, WorkerID: workerID, Message: "reassigned"})
	_ = o.store.AppendAudit(o.teamID, task.ID, "task_reassigned", workerID)
	return nil
}

// awaitEscalation raises a human escalation and blocks for the
// decision. A retry decision resets the attempt counter.
func (o *Orchestrator) awaitEscalation(ctx context.Context, task *models.Task, cause error) (bool, error) {
	o.escalations.Raise(o.teamID, task.ID, cause.Error())
	o.emit(Event{Type: EventEscalationRaised, TeamID: o.teamID, TaskID: task.ID, Error: cause})
	_ = o.store.AppendAudit(o.teamID, task.ID, "escalation_raised", cause.Error())

	decision, err := o.escalations.WaitForDecision(ctx, task.ID)
	if err != nil {
		return false, cause
	}

	_ = o.store.AppendAudit(o.teamID, task.ID, "escalation_resolved", decision.Note)
	if decision.Retry {
		o.mu.Lock()
		o.attempts[task.ID] = 0
		o.mu.Unlock()
		return true, nil
	}
	return false, cause
}

// reviewLoop submits output for review and applies verdicts until the
// task completes, fails, or exhausts its revision ceiling.
func (o *Orchestrator) reviewLoop(ctx context.Context, taskID, output string) error {
	if err := o.reviewer.SubmitForReview(taskID, output); err != nil {
		return err
	}

	for {
		outcome, usage, err := o.reviewer.Review(ctx, taskID)
		o.addSpend(usage.Cost)
		if err != nil {
			if errors.Is(err, review.ErrRevisionLimitExceeded) {
				o.onTaskFailed(taskID)
				return nil
			}
			return err
		}

		switch outcome {
		case review.OutcomeApproved:
			o.onTaskCompleted(taskID)
			return nil
		case review.OutcomeRejected:
			o.onTaskFailed(taskID)
			return nil
		case review.OutcomeRevision:
			o.emit(Event{Type: EventRevisionRequested, TeamID: o.teamID, TaskID: taskID})
			if err := o.rework(ctx, taskID); err != nil {
				task, gerr := o.store.GetTask(taskID)
				if gerr != nil {
					return gerr
				}
				o.failTask(task, err)
				return nil
			}
		default:
			return fmt.Errorf("unexpected review outcome %q for task %s", outcome, taskID)
		}
	}
}

// rework drives one revision cycle: start the revision, produce a
// revised output, and resubmit for review.
func (o *Orchestrator) rework(ctx context.Context, taskID string) error {
	if err := o.reviewer.StartRevision(taskID); err != nil {
		return err
	}

	task, err := o.store.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("load task %s: %w", taskID, err)
	}

	output := task.Output
	if rw, ok := o.exec.(Reworker); ok {
		revs, err := o.store.ListRevisions(taskID)
		if err != nil {
			return fmt.Errorf("load revisions for %s: %w", taskID, err)
		}
		feedback := ""
		if len(revs) > 0 {
			feedback = revs[len(revs)-1].Feedback
		}
		output, err = rw.Rework(ctx, task, feedback)
		if err != nil {
			return fmt.Errorf("rework task %s: %w", taskID, err)
		}
	}

	return o.reviewer.SubmitForReview(taskID, output)
}

// onTaskCompleted releases the worker, unlocks dependents, and drains
// the capacity queue.
func (o *Orchestrator) onTaskCompleted(taskID string) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		o.logger.Log("load completed task %s: %v", taskID, err)
		return
	}

	o.releaseWorker(task, true)

	o.mu.Lock()
	if o.graph != nil {
		o.graph.MarkComplete(taskID)
		if node := o.graph.GetTask(taskID); node != nil {
			node.Status = models.TaskStatusCompleted
		}
	}
	o.mu.Unlock()

	o.emit(Event{Type: EventTaskCompleted, TeamID: o.teamID, TaskID: taskID})
	o.logger.Log("task %s completed", taskID)
}

// failTask marks a task failed after unrecoverable execution failure.
func (o *Orchestrator) failTask(task *models.Task, cause error) {
	now := time.Now()
	task.Status = models.TaskStatusFailed
	task.Error = cause.Error()
	task.CompletedAt = &now
	if err := o.store.UpdateTask(task); err != nil {
		o.logger.Log("persist failure of task %s: %v", task.ID, err)
	}
	_ = o.store.AppendAudit(o.teamID, task.ID, "task_failed", cause.Error())
	o.onTaskFailed(task.ID)
}

// onTaskFailed releases the worker and cascades obsolescence to every
// task that transitively depends on the failed one.
func (o *Orchestrator) onTaskFailed(taskID string) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		o.logger.Log("load failed task %s: %v", taskID, err)
		return
	}

	o.releaseWorker(task, false)
	o.emit(Event{Type: EventTaskFailed, TeamID: o.teamID, TaskID: taskID, Message: task.Error})

	o.mu.Lock()
	var dependents []string
	if o.graph != nil {
		if node := o.graph.GetTask(taskID); node != nil {
			node.Status = models.TaskStatusFailed
		}
		dependents = o.graph.TransitiveDependents(taskID)
	}
	o.mu.Unlock()

	for _, depID := range dependents {
		o.MarkObsolete(depID, fmt.Sprintf("dependency %s failed", taskID))
	}
}

// MarkObsolete marks a non-terminal task obsolete, e.g. when its
// dependency failed or the goal changed.
func (o *Orchestrator) MarkObsolete(taskID, reason string) {
	task, err := o.store.GetTask(taskID)
	if err != nil {
		o.logger.Log("load task %s for obsolescence: %v", taskID, err)
		return
	}
	if task.Status.Terminal() {
		return
	}

	if task.Status == models.TaskStatusAssigned || task.Status == models.TaskStatusInProgress {
		o.releaseWorker(task, false)
	}
	o.queue.Remove(taskID)

	now := time.Now()
	task.Status = models.TaskStatusObsolete
	task.CompletedAt = &now
	if err := o.store.UpdateTask(task); err != nil {
		o.logger.Log("persist obsolescence of %s: %v", taskID, err)
		return
	}

	o.mu.Lock()
	if o.graph != nil {
		if node := o.graph.GetTask(taskID); node != nil {
			node.Status = models.TaskStatusObsolete
		}
	}
	o.mu.Unlock()

	o.emit(Event{Type: EventTaskObsolete, TeamID: o.teamID, TaskID: taskID, Message: reason})
	_ = o.store.AppendAudit(o.teamID, taskID, "task_obsolete", reason)
}

// releaseWorker frees the worker's slot and records the outcome in the
// assignment history.
func (o *Orchestrator) releaseWorker(task *models.Task, success bool) {
	if task.AssignedTo == "" {
		return
	}
	if err := o.store.AdjustWorkload(task.AssignedTo, -1); err != nil {
		o.logger.Log("release worker %s: %v", task.AssignedTo, err)
		return
	}
	o.assigner.History().Record(task.AssignedTo, success)
	o.emit(Event{Type: EventWorkerAvailable, TeamID: o.teamID, WorkerID: task.AssignedTo})
}

// RunToCompletion plans the team if needed, then dispatches and
// executes tasks until every task reaches a terminal state, finally
// settling the team status.
func (o *Orchestrator) RunToCompletion(ctx context.Context) error {
	team, err := o.store.GetTeam(o.teamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}

	if team.Status == models.TeamStatusPending {
		if err := o.Plan(ctx); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := o.DispatchReady(ctx); err != nil {
			return err
		}

		assigned, err := o.assignedTasks()
		if err != nil {
			return err
		}
		if len(assigned) == 0 {
			break
		}

		for _, task := range assigned {
			if err := o.ExecuteTask(ctx, task.ID); err != nil {
				return err
			}
		}
	}

	return o.Finalize()
}

// assignedTasks returns the team's assigned tasks in creation order.
func (o *Orchestrator) assignedTasks() ([]*models.Task, error) {
	tasks, err := o.store.ListTasks(o.teamID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var assigned []*models.Task
	for _, task := range tasks {
		if task.Status == models.TaskStatusAssigned {
			assigned = append(assigned, task)
		}
	}
	sort.Slice(assigned, func(i, j int) bool {
		if !assigned[i].CreatedAt.Equal(assigned[j].CreatedAt) {
			return assigned[i].CreatedAt.Before(assigned[j].CreatedAt)
		}
		return assigned[i].ID < assigned[j].ID
	})
	return assigned, nil
}

// Finalize settles the team status once no more work can proceed:
// completed when every task completed (or went obsolete with no
// failures), failed otherwise.
func (o *Orchestrator) Finalize() error {
	team, err := o.store.GetTeam(o.teamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team.Status.Terminal() {
		return nil
	}

	tasks, err := o.store.ListTasks(o.teamID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	anyFailed := false
	allSettled := true
	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusCompleted:
		case models.TaskStatusObsolete:
			anyFailed = true
		case models.TaskStatusFailed:
			anyFailed = true
		default:
			allSettled = false
		}
	}

	if !allSettled {
		// Work remains (queued without capacity, or mid-flight in
		// another driver); leave the team active.
		return nil
	}

	next := models.TeamStatusCompleted
	eventType := EventTeamCompleted
	if anyFailed || len(tasks) == 0 {
		next = models.TeamStatusFailed
		eventType = EventTeamFailed
	}
	if err := o.store.UpdateTeamStatus(o.teamID, next); err != nil {
		return fmt.Errorf("settle team: %w", err)
	}

	_ = o.store.AppendAudit(o.teamID, "", "team_"+string(next), "")
	spent, _, _ := o.budget.Usage()
	o.emit(Event{Type: eventType, TeamID: o.teamID, Cost: spent})
	return nil
}

// Abort fails the team and marks all non-terminal tasks obsolete.
func (o *Orchestrator) Abort(reason string) error {
	team, err := o.store.GetTeam(o.teamID)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	if team.Status.Terminal() {
		return fmt.Errorf("team %s already %s", o.teamID, team.Status)
	}

	tasks, err := o.store.ListTasks(o.teamID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	for _, task := range tasks {
		if !task.Status.Terminal() {
			o.MarkObsolete(task.ID, "team aborted: "+reason)
		}
	}

	// A pending team has to pass through planning to reach failed.
	if team.Status == models.TeamStatusPending {
		if err := o.store.UpdateTeamStatus(o.teamID, models.TeamStatusPlanning); err != nil {
			return fmt.Errorf("abort pending team: %w", err)
		}
	}
	if err := o.store.UpdateTeamStatus(o.teamID, models.TeamStatusFailed); err != nil {
		return fmt.Errorf("abort team: %w", err)
	}

	_ = o.store.AppendAudit(o.teamID, "", "team_aborted", reason)
	o.emit(Event{Type: EventTeamFailed, TeamID: o.teamID, Message: reason})
	return nil
}

// Archive moves a terminal team to archived and purges its
// checkpoints; the audit trail is retained.
func (o *Orchestrator) Archive() error {
	if err := o.store.UpdateTeamStatus(o.teamID, models.TeamStatusArchived); err != nil {
		return fmt.Errorf("archive team: %w", err)
	}

	purged, err := o.store.PurgeTeamCheckpoints(o.teamID)
	if err != nil {
		return fmt.Errorf("purge checkpoints: %w", err)
	}

	_ = o.store.AppendAudit(o.teamID, "", "team_archived", fmt.Sprintf("purged %d checkpoints", purged))
	o.emit(Event{Type: EventTeamArchived, TeamID: o.teamID})
	return nil
}

// failTeam moves the team to failed after a planning-stage error.
func (o *Orchestrator) failTeam(reason string) {
	if err := o.store.UpdateTeamStatus(o.teamID, models.TeamStatusFailed); err != nil {
		o.logger.Log("fail team %s: %v", o.teamID, err)
		return
	}
	_ = o.store.AppendAudit(o.teamID, "", "team_failed", reason)
	o.emit(Event{Type: EventTeamFailed, TeamID: o.teamID, Message: reason})
}

// addSpend records engine spend against the budget and emits threshold
// events.
func (o *Orchestrator) addSpend(cost float64) {
	if cost == 0 {
		return
	}
	switch o.budget.Add(cost) {
	case BudgetWarning:
		spent, ceiling, _ := o.budget.Usage()
		o.emit(Event{Type: EventBudgetWarning, TeamID: o.teamID, Cost: spent,
			Message: fmt.Sprintf("spent %.2f of %.2f", spent, ceiling)})
	case BudgetExhausted:
		o.emitBudgetExhausted()
	}
}

// emitBudgetExhausted emits the exhaustion event once.
func (o *Orchestrator) emitBudgetExhausted() {
	o.mu.Lock()
	already := o.warned
	o.warned = true
	o.mu.Unlock()
	if already {
		return
	}
	spent, _, _ := o.budget.Usage()
	o.emit(Event{Type: EventBudgetExhausted, TeamID: o.teamID, Cost: spent})
	_ = o.store.AppendAudit(o.teamID, "", "budget_exhausted", fmt.Sprintf("%.2f", spent))
}

func (o *Orchestrator) emit(event Event) {
	event.Timestamp = time.Now()
	o.emitter.Emit(event)
}
