// Package providers defines the boundary contract between the resilience
// core and concrete LLM provider clients. The clients themselves live with
// the host application; this core only classifies and records their
// outcomes.
package providers

import (
	"context"
	"time"
)

// ChatRequest represents a normalized internal request to a provider.
type ChatRequest struct {
	Model   string         // provider-specific model name
	Payload map[string]any // OpenAI-style payload as generic JSON
}

// ChatResponse is a normalized provider response.
type ChatResponse struct {
	StatusCode      int
	Body            []byte
	ProviderLatency time.Duration
	CostUSD         float64
	// Usage information extracted from the response
	InputTokens         int
	OutputTokens        int
	CachedTokens        int
	CacheCreationTokens int
	// ServedModel is the model the provider reports having used, which may
	// differ from the requested one when the provider routes internally.
	ServedModel string
}

// Provider is implemented by each concrete LLM provider client.
type Provider interface {
	// ID returns the unique identifier for this provider instance
	ID() string

	// Name returns the display name of this provider
	Name() string

	// Chat sends a chat completion request to the provider
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Close performs cleanup when the provider is no longer needed
	Close() error
}
