package main

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/flotilla/internal/config"
	"github.com/ShayCichocki/flotilla/internal/engine"
	"github.com/ShayCichocki/flotilla/internal/runner"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// defaultTaskSteps is how many engine calls one task execution makes.
// Each step checkpoints, so a failed task resumes mid-flight instead
// of repeating earlier calls.
const defaultTaskSteps = 3

// checkpointContextLimit bounds the per-step context payload carried
// between steps and into checkpoints.
const checkpointContextLimit = 4000

// newEngineClient builds the reasoning engine client from configuration.
func newEngineClient(cfg *config.Config) (*engine.Client, error) {
	apiKey := ""
	if !cfg.Engine.UseAWSBedrock {
		key, err := config.GetAPIKey(cfg)
		if err != nil {
			return nil, err
		}
		apiKey = key
	}

	return engine.NewClient(engine.ClientConfig{
		Model:         anthropic.Model(cfg.Engine.Model),
		APIKey:        apiKey,
		CallTimeout:   cfg.Engine.CallTimeout,
		UseAWSBedrock: cfg.Engine.UseAWSBedrock,
		AWSRegion:     cfg.Engine.AWSRegion,
		AWSProfile:    cfg.Engine.AWSProfile,
	})
}

// performer is the slice of the engine client the executor prompts.
type performer interface {
	Perform(ctx context.Context, task *models.Task, step, totalSteps int, prior string) (string, engine.Usage, error)
	Rework(ctx context.Context, task *models.Task, feedback string) (string, engine.Usage, error)
}

// engineExecutor executes task steps by prompting the engine as a
// worker. It also revises output against review feedback. Step and
// rework spend is reported through recordCost so the team budget
// meters execution, not just planning and review.
type engineExecutor struct {
	client     performer
	recordCost func(float64)
}

func newEngineExecutor(client performer) *engineExecutor {
	return &engineExecutor{client: client}
}

func (e *engineExecutor) spend(usage engine.Usage) {
	if e.recordCost != nil {
		e.recordCost(usage.Cost)
	}
}

func (e *engineExecutor) NumSteps(ctx context.Context, task *models.Task) (int, error) {
	return defaultTaskSteps, nil
}

func (e *engineExecutor) ExecuteStep(ctx context.Context, task *models.Task, step int, prior string) (*runner.StepResult, error) {
	output, usage, err := e.client.Perform(ctx, task, step, defaultTaskSteps, prior)
	e.spend(usage)
	if err != nil {
		return nil, err
	}

	carry := output
	if len(carry) > checkpointContextLimit {
		carry = carry[len(carry)-checkpointContextLimit:]
	}

	return &runner.StepResult{
		Output:  fmt.Sprintf("--- step %d ---\n%s\n", step, output),
		Context: carry,
	}, nil
}

func (e *engineExecutor) Rework(ctx context.Context, task *models.Task, feedback string) (string, error) {
	output, usage, err := e.client.Rework(ctx, task, feedback)
	e.spend(usage)
	if err != nil {
		return "", err
	}
	return output, nil
}
