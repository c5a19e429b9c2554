// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"errors"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// ErrNoProvider is returned when no API key is configured.
var ErrNoProvider = errors.New("no LLM provider configured")

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewAnthropicClient(apiKey)
	}
}

// NewClientFromKeys picks Anthropic when its key is set, then OpenAI.
func NewClientFromKeys(anthropicKey, openaiKey string) (Client, error) {
	switch {
	case anthropicKey != "":
		return NewClient(ProviderAnthropic, anthropicKey)
	case openaiKey != "":
		return NewClient(ProviderOpenAI, openaiKey)
	}
	return nil, ErrNoProvider
}
