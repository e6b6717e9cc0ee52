package llmclient

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// AnthropicClient is the stub implementation of Chat and Vision backing
// this repo's llm/llm_fast/vlm config sections: a thin wrapper over the
// Messages API with a short bounded retry on transient failures. It
// satisfies the interfaces this repo depends on; the prompt templates and
// model selection strategy a production deployment would add are outside
// this repo's scope.
type AnthropicClient struct {
	log        *zap.Logger
	client     anthropic.Client
	model      anthropic.Model
	maxRetries uint64
}

// NewAnthropicClient returns a client using model, reading the API key
// from apiKey or (if empty) the ANTHROPIC_API_KEY environment variable.
func NewAnthropicClient(log *zap.Logger, apiKey, model string) (*AnthropicClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("llmclient: no API key provided and ANTHROPIC_API_KEY is unset")
	}
	return &AnthropicClient{
		log:        log,
		client:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:      anthropic.Model(model),
		maxRetries: 3,
	}, nil
}

// Chat sends prompt as a single user message and returns the first text
// block of the reply.
func (c *AnthropicClient) Chat(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
}

// Vision sends prompt alongside a base64-encoded image (PNG) as a single
// user message and returns the first text block of the reply.
func (c *AnthropicClient) Vision(ctx context.Context, prompt, imageBase64 string) (string, error) {
	return c.complete(ctx, anthropic.NewUserMessage(
		anthropic.NewImageBlockBase64("image/png", imageBase64),
		anthropic.NewTextBlock(prompt),
	))
}

func (c *AnthropicClient) complete(ctx context.Context, message anthropic.MessageParam) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		Messages:  []anthropic.MessageParam{message},
	}

	var reply string
	operation := func() error {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return err
		}
		if len(resp.Content) == 0 {
			return backoff.Permanent(fmt.Errorf("llmclient: empty response content"))
		}
		block := resp.Content[0]
		if block.Type != "text" {
			return backoff.Permanent(fmt.Errorf("llmclient: unexpected content block type %q", block.Type))
		}
		reply = block.Text
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		c.log.Warn("anthropic completion failed", zap.Error(err))
		return "", fmt.Errorf("llmclient: completion failed: %w", err)
	}
	return reply, nil
}
