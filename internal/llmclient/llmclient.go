// Package llmclient declares the client seam to the text and vision models
// the agent calls for decision-making, negotiation, and scene description,
// plus a stub implementation (AnthropicClient) sufficient to wire a
// composition root against.
package llmclient

import "context"

// Chat is a text completion client: prompt in, reply text out.
type Chat interface {
	Chat(ctx context.Context, prompt string) (string, error)
}

// Vision is an image+prompt completion client, used for scene description
// over the environment's overview screenshot.
type Vision interface {
	Vision(ctx context.Context, prompt string, imageBase64 string) (string, error)
}

var (
	_ Chat   = (*AnthropicClient)(nil)
	_ Vision = (*AnthropicClient)(nil)
)
