// Package llm defines the completion capability the chat engine depends on:
// an ordered, role-tagged message list in, generated text and token usage
// out. Transport details live in the provider subpackages.
package llm

import "context"

// Message roles. The prompt builder only ever emits these three.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged message in a completion prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// Usage contains token counts reported by the completion provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the result of a single completion call.
type Completion struct {
	// Text is the generated assistant text.
	Text string

	// Usage is the provider-reported token usage, nil when unavailable.
	Usage *Usage
}

// Client is the completion capability. Implementations return ProviderError
// for transport, auth, and rate-limit failures; callers treat those as
// non-retriable within a single request.
type Client interface {
	Complete(ctx context.Context, messages []Message, maxTokens int, temperature float64) (*Completion, error)
}
