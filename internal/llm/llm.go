// Package llm provides interfaces and implementations for Large Language Model clients.
package llm

import (
	"context"
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a chat exchange.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions configures the LLM chat request.
type ChatOptions struct {
	// Model specifies the LLM model to use (e.g., "llama3.2", "qwen2.5").
	Model string

	// Temperature controls randomness in generation (0.0 = deterministic, 1.0 = creative).
	Temperature float32

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int
}

// Client defines the interface for Large Language Model clients.
//
// The pipeline uses the same client at three call sites with different
// settings: classification (low temperature, tiny token budget), query
// expansion (moderate temperature), and answer generation (higher
// temperature, large token budget).
type Client interface {
	// Chat sends an ordered message list to the LLM and returns the complete
	// response text. It blocks until the full response is received or an
	// error occurs; any timeout must be imposed through ctx.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}
