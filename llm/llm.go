// Package llm is a small provider-agnostic layer over chat-completion
// backends. Providers register a factory under a name; callers build one
// from Config and ask it for plain text or for JSON that matches a schema
// reflected from a Go type.
package llm

import "context"

// Roles used in Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input shared by every provider.
type CompletionRequest struct {
	// Model overrides the provider's configured model.
	Model        string    `json:"model,omitempty"`
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`
	Temperature  float64   `json:"temperature,omitempty"`
	// MaxTokens of 0 leaves the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`
}

// CompletionResponse is the output shared by every provider.
type CompletionResponse struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider is implemented by every backend.
type Provider interface {
	Name() string
	// Complete returns free-form text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// CompleteStructured asks for a JSON document matching schema.
	CompleteStructured(ctx context.Context, req CompletionRequest, schema map[string]any) (*CompletionResponse, error)
}

// UserPrompt builds a request holding a single user message.
func UserPrompt(prompt string) CompletionRequest {
	return CompletionRequest{Messages: []Message{{Role: RoleUser, Content: prompt}}}
}
