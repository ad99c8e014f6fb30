package detector

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// GeneratorConfig holds Anthropic generator construction parameters.
type GeneratorConfig struct {
	APIKey    string        // if empty, reads from ANTHROPIC_API_KEY
	Model     string        // required
	MaxTokens int64         // default 1024; verdicts are short
	Timeout   time.Duration // per-request timeout, default 60s
}

// AnthropicGenerator is the production TextGenerator: a single-turn,
// non-streaming message at default sampling temperature. Failures
// propagate to the caller; the runner isolates them per question.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicGenerator creates a generator from the given config.
func NewAnthropicGenerator(cfg GeneratorConfig) (*AnthropicGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicGenerator{
		client:    &client,
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}, nil
}

// Generate submits one user-role prompt and returns the text reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	startTime := time.Now()
	response, err := g.client.Messages.New(reqCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	var replyText string
	for _, block := range response.Content {
		if block.Type == "text" {
			replyText += block.Text
		}
	}

	fmt.Printf("Change detection call: input=%d tokens, output=%d tokens, duration=%v\n",
		response.Usage.InputTokens, response.Usage.OutputTokens, time.Since(startTime))

	return replyText, nil
}
