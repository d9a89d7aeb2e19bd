// Package llm talks to chat-completion backends.
package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends one non-streaming completion request.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}
