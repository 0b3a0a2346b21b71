package llmadapter

import (
	"context"
)

// Role constants for message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// LLMRequest represents a request to the LLM, independent of provider
type LLMRequest struct {
	SystemPrompt string
	Messages     []Message
	Options      CallOptions
}

// Message represents a conversation message
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// CallOptions represents options for the LLM call
type CallOptions struct {
	Temperature float64
	MaxTokens   int32
	UseJSONMode bool
}

// LLMResponse represents the response from the LLM
type LLMResponse struct {
	Content string
}

// LLMClient is the main interface for LLM interactions
type LLMClient interface {
	// GenerateContent sends a request to the LLM and returns a response
	GenerateContent(ctx context.Context, req *LLMRequest) (*LLMResponse, error)
}

// ObjectRequest asks for one JSON object conforming to Schema.
type ObjectRequest struct {
	SystemPrompt string
	Prompt       string
	// Schema is a JSON schema document for the expected object.
	Schema map[string]any
}

// ObjectGenerator produces structured output. Implementations return a
// *GenerationError when the model answered but the answer is unusable.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, req *ObjectRequest) (map[string]any, error)
}
