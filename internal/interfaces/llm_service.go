package interfaces

import "context"

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for language model completions used by
// the relevance judge and the answer synthesizer. Implementations may use
// Anthropic Claude or Google Gemini; the pipeline never depends on which.
type LLMService interface {
	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full context including system
	// prompts, in chronological order.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ModelName returns the identifier of the underlying model, for audit
	// and response metadata.
	ModelName() string

	// Close releases resources held by the provider client.
	Close() error
}
