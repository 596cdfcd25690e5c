package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/ShayCichocki/flotilla/internal/failure"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

// DefaultCallTimeout is the per-call deadline applied when the
// configuration does not specify one. The timeout is per call, not per
// task, so a stalled call can never block its owning task indefinitely.
const DefaultCallTimeout = 120 * time.Second

// Client is the Anthropic-backed Engine implementation.
type Client struct {
	inner   anthropic.Client
	model   anthropic.Model
	timeout time.Duration
	tracker *TokenTracker
}

// ClientConfig contains configuration for creating a new Client.
type ClientConfig struct {
	// Model is the Claude model to use.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY env var.
	APIKey string
	// CallTimeout is the per-call deadline. Zero uses DefaultCallTimeout.
	CallTimeout time.Duration
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// NewClient creates a new Anthropic-backed engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	inner := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	return &Client{
		inner:   inner,
		model:   model,
		timeout: timeout,
		tracker: NewTokenTracker(),
	}, nil
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaudeSonnet4_5_20250929: "us.anthropic.claude-sonnet-4-5-20250929-v1:0",
		anthropic.ModelClaudeHaiku4_5_20251001:  "us.anthropic.claude-haiku-4-5-20251001-v1:0",
		anthropic.ModelClaudeOpus4_1_20250805:   "us.anthropic.claude-opus-4-1-20250805-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	return model
}

// Tracker returns the cumulative token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// Analyze decomposes a goal into subtasks with team requirements.
func (c *Client) Analyze(ctx context.Context, goal string) (*GoalAnalysis, Usage, error) {
	prompt := fmt.Sprintf(analyzePrompt, goal)
	text, usage, err := c.complete(ctx, analyzeSystemPrompt, prompt)
	if err != nil {
		return nil, usage, fmt.Errorf("analyze goal: %w", err)
	}

	analysis, err := ParseAnalysis(text)
	if err != nil {
		return nil, usage, fmt.Errorf("parse analysis: %w", err)
	}
	return analysis, usage, nil
}

// Review judges a task's output against its acceptance criteria.
func (c *Client) Review(ctx context.Context, task *models.Task) (*ReviewResult, Usage, error) {
	criteria := "- " + strings.Join(task.AcceptanceCriteria, "\n- ")
	prompt := fmt.Sprintf(reviewPrompt, task.Title, task.Description, criteria, task.Output)

	text, usage, err := c.complete(ctx, reviewSystemPrompt, prompt)
	if err != nil {
		return nil, usage, fmt.Errorf("review task %s: %w", task.ID, err)
	}

	result, err := ParseReview(text)
	if err != nil {
		return nil, usage, fmt.Errorf("parse review: %w", err)
	}
	return result, usage, nil
}

// Perform executes one step of a task as a worker, returning the step's
// work product. prior is the checkpoint context from the previous step.
func (c *Client) Perform(ctx context.Context, task *models.Task, step, totalSteps int, prior string) (string, Usage, error) {
	criteria := "- " + strings.Join(task.AcceptanceCriteria, "\n- ")
	if prior == "" {
		prior = "(none)"
	}
	prompt := fmt.Sprintf(workPrompt, task.Title, task.Description, criteria, step, totalSteps, prior)

	text, usage, err := c.complete(ctx, workSystemPrompt, prompt)
	if err != nil {
		return "", usage, fmt.Errorf("perform step %d of task %s: %w", step, task.ID, err)
	}
	return text, usage, nil
}

// Rework revises a task's previous output against review feedback.
func (c *Client) Rework(ctx context.Context, task *models.Task, feedback string) (string, Usage, error) {
	prompt := fmt.Sprintf(reworkPrompt, task.Title, task.Description, task.Output, feedback)

	text, usage, err := c.complete(ctx, workSystemPrompt, prompt)
	if err != nil {
		return "", usage, fmt.Errorf("rework task %s: %w", task.ID, err)
	}
	return text, usage, nil
}

// classifyCallError tags transient transport failures so the failure
// policy retries or resumes instead of escalating. Deadline expiry and
// throttling (429) or overload (529) responses are transient.
func classifyCallError(callCtx context.Context, err error) error {
	if callCtx.Err() == context.DeadlineExceeded {
		return failure.Wrap(failure.KindTimeout, err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, 529:
			return failure.Wrap(failure.KindRateLimit, err)
		}
	}
	return fmt.Errorf("messages request: %w", err)
}

// complete performs one request/response round trip with the per-call
// timeout and returns the concatenated text content.
func (c *Client) complete(ctx context.Context, system, prompt string) (string, Usage, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.inner.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", Usage{}, classifyCallError(callCtx, err)
	}

	c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
	usage := Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Cost:         estimateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(variant.Text)
		}
	}
	return text.String(), usage, nil
}
