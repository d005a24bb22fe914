// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"github.com/bobmcallan/fihub/internal/common"
	"github.com/bobmcallan/fihub/internal/interfaces"
)

const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 10 * time.Second
)

// generateFunc performs one generation attempt
type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// Client implements the AnalysisClient interface
type Client struct {
	generate    generateFunc
	model       string
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *common.Logger
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the model to use
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithMaxAttempts bounds the number of generation attempts
func WithMaxAttempts(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoff sets the first retry delay and its ceiling
func WithBackoff(base, max time.Duration) ClientOption {
	return func(c *Client) {
		c.baseDelay = base
		c.maxDelay = max
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	generate := func(ctx context.Context, model, prompt string) (string, error) {
		result, err := genaiClient.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return extractTextFromResponse(result)
	}

	return newClient(generate, opts...), nil
}

func newClient(generate generateFunc, opts ...ClientOption) *Client {
	c := &Client{
		generate:    generate,
		model:       DefaultModel,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		sleep:       sleepContext,
		logger:      common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Close closes the client
func (c *Client) Close() error {
	// The genai client doesn't have a Close method
	return nil
}

// GenerateContent generates text from a prompt. Failed attempts are
// retried with exponential backoff up to the configured attempt limit.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	delay := c.baseDelay
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.logger.Debug().Str("model", c.model).Int("attempt", attempt).Msg("Generating content")

		text, err := c.generate(ctx, c.model, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.maxAttempts {
			break
		}
		c.logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("Content generation failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
	}

	return "", fmt.Errorf("%w: failed to generate content after %d attempts: %v", common.ErrUpstream, c.maxAttempts, lastErr)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Ensure Client implements AnalysisClient
var _ interfaces.AnalysisClient = (*Client)(nil)
