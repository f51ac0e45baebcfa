package ai

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

// Model constants. The default is a mid-tier model; itinerary chunks
// and provider recommendations are short, structured completions that
// do not need the high-end tier.
//
// Environment variable override:
// - TRIPFLOW_MODEL: Override default model
const (
	// ModelDefault is the model used for all generation calls
	ModelDefault = "claude-sonnet-4-5-20250929"
)

// GetDefaultModel returns the default model, checking TRIPFLOW_MODEL env var first
func GetDefaultModel() string {
	if model := os.Getenv("TRIPFLOW_MODEL"); model != "" {
		return model
	}
	return ModelDefault
}

// Client wraps the Anthropic API with retry and rate limiting. It is
// the single generation capability used by the research executors and
// the chunked itinerary generator.
type Client struct {
	client  *anthropic.Client
	model   string
	retry   RetryConfig
	limiter *rate.Limiter
}

// Config holds client configuration
type Config struct {
	APIKey string      // Defaults to ANTHROPIC_API_KEY env var
	Model  string      // Defaults to GetDefaultModel()
	Retry  RetryConfig // Defaults to DefaultRetryConfig()

	// RequestsPerSecond bounds the call rate to the provider. The
	// chunked itinerary generator issues one request per day window,
	// so a burst of small requests is the normal case.
	// Default: 1 req/s with a burst of 2.
	RequestsPerSecond float64
	Burst             int
}

// NewClient creates a generation client. Returns an error if no API key
// is available; callers that can run degraded should treat that as a
// missing-credential condition, not a fatal one.
func NewClient(cfg Config) (*Client, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = GetDefaultModel()
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = DefaultRetryConfig()
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 2
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Client{
		client:  &client,
		model:   model,
		retry:   retryCfg,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}, nil
}

// Model returns the model the client generates with.
func (c *Client) Model() string {
	return c.model
}

// Generate makes a generation call with the given system and user
// prompts, retrying transient failures with exponential backoff.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	var response *anthropic.Message
	err := c.retryWithBackoff(ctx, "generate", func(attemptCtx context.Context) error {
		resp, apiErr := c.client.Messages.New(attemptCtx, params)
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}
