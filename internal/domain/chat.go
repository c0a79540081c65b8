package domain

import "context"

// ChatMessage is the provider-agnostic chat message shape used by the handler
// and LLM integrations.
type ChatMessage struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a binary payload carried on a chat message. Providers encode
// recognized image types into their wire model and drop the rest.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Bytes     []byte `json:"bytes"`
}

// ChatRequest is the neutral request given to a provider adapter.
type ChatRequest struct {
	ModelID      string
	Messages     []ChatMessage
	SystemPrompt string
	MaxTokens    int
	Temperature  *float64
}

// Usage carries the token counts reported by a provider.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// ChatResponse is the neutral provider response.
// Usage is nil when the vendor did not report token counts.
type ChatResponse struct {
	Content     string
	ModelID     string
	ProviderTag string
	Usage       *Usage
}

// Invoker is the uniform contract every provider adapter implements.
type Invoker interface {
	Invoke(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
