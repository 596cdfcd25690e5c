package main

import (
	"context"
	"strings"
	"testing"

	"github.com/ShayCichocki/flotilla/internal/engine"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// fakePerformer scripts engine responses with a fixed per-call cost.
type fakePerformer struct {
	output string
	cost   float64
	calls  int
}

func (f *fakePerformer) Perform(ctx context.Context, task *models.Task, step, totalSteps int, prior string) (string, engine.Usage, error) {
	f.calls++
	return f.output, engine.Usage{InputTokens: 100, OutputTokens: 50, Cost: f.cost}, nil
}

func (f *fakePerformer) Rework(ctx context.Context, task *models.Task, feedback string) (string, engine.Usage, error) {
	f.calls++
	return f.output + " (revised)", engine.Usage{InputTokens: 80, OutputTokens: 40, Cost: f.cost}, nil
}

func TestExecutorReportsStepAndReworkSpend(t *testing.T) {
	perf := &fakePerformer{output: "findings", cost: 0.01}
	exec := newEngineExecutor(perf)

	var recorded float64
	exec.recordCost = func(cost float64) { recorded += cost }

	task := &models.Task{ID: "t1", Title: "collect data"}
	ctx := context.Background()

	for step := 1; step <= defaultTaskSteps; step++ {
		if _, err := exec.ExecuteStep(ctx, task, step, ""); err != nil {
			t.Fatalf("step %d: %v", step, err)
		}
	}
	if _, err := exec.Rework(ctx, task, "add sources"); err != nil {
		t.Fatalf("rework: %v", err)
	}

	want := float64(defaultTaskSteps+1) * perf.cost
	if recorded != want {
		t.Errorf("recorded spend = %.4f, want %.4f", recorded, want)
	}
	if perf.calls != defaultTaskSteps+1 {
		t.Errorf("engine calls = %d, want %d", perf.calls, defaultTaskSteps+1)
	}
}

func TestExecutorWithoutCostSink(t *testing.T) {
	exec := newEngineExecutor(&fakePerformer{output: "ok"})

	res, err := exec.ExecuteStep(context.Background(), &models.Task{ID: "t1"}, 1, "")
	if err != nil {
		t.Fatalf("execute step: %v", err)
	}
	if !strings.Contains(res.Output, "ok") {
		t.Errorf("output = %q", res.Output)
	}
}

func TestExecutorCarriesBoundedContext(t *testing.T) {
	long := strings.Repeat("x", checkpointContextLimit+500)
	exec := newEngineExecutor(&fakePerformer{output: long})

	res, err := exec.ExecuteStep(context.Background(), &models.Task{ID: "t1"}, 2, "prior")
	if err != nil {
		t.Fatalf("execute step: %v", err)
	}
	if len(res.Context) != checkpointContextLimit {
		t.Errorf("context length = %d, want %d", len(res.Context), checkpointContextLimit)
	}
}
