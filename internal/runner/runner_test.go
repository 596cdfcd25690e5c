package runner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ShayCichocki/flotilla/internal/failure"
	"github.com/ShayCichocki/flotilla/internal/state"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// scriptedExecutor runs a fixed number of steps and can be told to fail
// at a specific step on its first attempt.
type scriptedExecutor struct {
	steps     int
	failAt    int
	failKind  failure.Kind
	failed    bool
	executed  []int
	lastPrior map[int]string
}

func newScriptedExecutor(steps, failAt int) *scriptedExecutor {
	return &scriptedExecutor{
		steps:     steps,
		failAt:    failAt,
		failKind:  failure.KindTimeout,
		lastPrior: make(map[int]string),
	}
}

func (e *scriptedExecutor) NumSteps(ctx context.Context, task *models.Task) (int, error) {
	return e.steps, nil
}

func (e *scriptedExecutor) ExecuteStep(ctx context.Context, task *models.Task, step int, prior string) (*StepResult, error) {
	if step == e.failAt && !e.failed {
		e.failed = true
		return nil, failure.Wrap(e.failKind, errors.New("tool timed out"))
	}
	e.executed = append(e.executed, step)
	e.lastPrior[step] = prior
	return &StepResult{
		Output:  fmt.Sprintf("step %d done\n", step),
		Context: fmt.Sprintf("after-step-%d", step),
	}, nil
}

func openTestStore(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(t.TempDir() + "/runner.db")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedRunnerTask(t *testing.T, db *state.DB) *models.Task {
	t.Helper()
	team := &models.Team{ID: "team-1", Goal: "test goal", Status: models.TeamStatusPending}
	if err := db.CreateTeam(team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	task := &models.Task{
		ID:          "task-1",
		TeamID:      team.ID,
		Title:       "compile report",
		Description: "gather and compile",
		Status:      models.TaskStatusInProgress,
	}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestRunCheckpointsEveryStep(t *testing.T) {
	db := openTestStore(t)
	task := seedRunnerTask(t, db)
	exec := newScriptedExecutor(3, 0)

	result, err := New(exec, db).Run(context.Background(), task)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.StepsRun != 3 || result.FinalStep != 3 {
		t.Errorf("result = %d steps, final %d", result.StepsRun, result.FinalStep)
	}

	cps, err := db.ListCheckpoints(task.ID)
	if err != nil {
		t.Fatalf("list checkpoints: %v", err)
	}
	if len(cps) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(cps))
	}
	for i, cp := range cps {
		if cp.Step != i+1 {
			t.Errorf("checkpoint %d has step %d", i, cp.Step)
		}
	}
}

func TestResumeSkipsCompletedSteps(t *testing.T) {
	db := openTestStore(t)
	task := seedRunnerTask(t, db)

	// First run fails at step 3 of 4; steps 1 and 2 are checkpointed.
	exec := newScriptedExecutor(4, 3)
	r := New(exec, db)

	_, err := r.Run(context.Background(), task)
	if err == nil {
		t.Fatal("expected step 3 failure")
	}
	if !failure.Classify(err).Transient() {
		t.Fatalf("expected transient failure, got %v", err)
	}

	cp, err := db.LatestCheckpoint(task.ID)
	if err != nil {
		t.Fatalf("latest checkpoint: %v", err)
	}
	if cp.Step != 2 {
		t.Fatalf("latest checkpoint step = %d, want 2", cp.Step)
	}

	// Resume picks up at step 3 with step 2's context.
	result, err := r.Resume(context.Background(), task)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if result.StepsRun != 2 || result.FinalStep != 4 {
		t.Errorf("resume ran %d steps, final %d; want 2 and 4", result.StepsRun, result.FinalStep)
	}
	if exec.lastPrior[3] != "after-step-2" {
		t.Errorf("step 3 resumed with prior %q", exec.lastPrior[3])
	}

	// Steps 1 and 2 never re-ran.
	for _, step := range exec.executed {
		count := 0
		for _, s := range exec.executed {
			if s == step {
				count++
			}
		}
		if count > 1 {
			t.Errorf("step %d executed %d times", step, count)
		}
	}
}

func TestResumeWithoutCheckpointRunsFromStart(t *testing.T) {
	db := openTestStore(t)
	task := seedRunnerTask(t, db)
	exec := newScriptedExecutor(2, 0)

	result, err := New(exec, db).Resume(context.Background(), task)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if result.StepsRun != 2 {
		t.Errorf("steps run = %d, want 2", result.StepsRun)
	}
}

func TestResumeTwiceIsIdempotent(t *testing.T) {
	db := openTestStore(t)
	task := seedRunnerTask(t, db)

	exec := newScriptedExecutor(3, 2)
	r := New(exec, db)

	if _, err := r.Run(context.Background(), task); err == nil {
		t.Fatal("expected step 2 failure")
	}
	if _, err := r.Resume(context.Background(), task); err != nil {
		t.Fatalf("first resume: %v", err)
	}

	// The task is already complete; a second resume finds the final
	// checkpoint and executes nothing.
	result, err := r.Resume(context.Background(), task)
	if err != nil {
		t.Fatalf("second resume: %v", err)
	}
	if result.StepsRun != 0 {
		t.Errorf("second resume ran %d steps, want 0", result.StepsRun)
	}

	cps, err := db.ListCheckpoints(task.ID)
	if err != nil {
		t.Fatalf("list checkpoints: %v", err)
	}
	if len(cps) != 3 {
		t.Errorf("expected 3 checkpoints, got %d", len(cps))
	}
}

func TestRunCancelledContext(t *testing.T) {
	db := openTestStore(t)
	task := seedRunnerTask(t, db)
	exec := newScriptedExecutor(3, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(exec, db).Run(ctx, task)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(exec.executed) != 0 {
		t.Errorf("executed %d steps under cancelled context", len(exec.executed))
	}
}
