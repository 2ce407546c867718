// Package agent abstracts language-model providers behind a single chat
// completion client. The exchange runtime and the reflection judge both talk
// to models exclusively through ModelClient.
package agent

import (
	"context"
	"fmt"
)

// ChatMessage is one role-tagged message of a model conversation.
type ChatMessage struct {
	Role       string     `json:"role"` // user, assistant, tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a structured tool invocation carried by a message.
type ToolCall struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ChatRequest contains the request parameters for a model call
type ChatRequest struct {
	Model        string
	Messages     []ChatMessage
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
}

// ChatResponse contains the response from a model call. Content is empty when
// the model answered with tool calls instead of text.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ModelClient is the interface consumed by the exchange runtime and the
// termination judge.
type ModelClient interface {
	// Create makes one chat completion call
	Create(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// Provider returns the provider name
	Provider() string
}

// AuthProfile represents authentication credentials for a model provider
type AuthProfile struct {
	ID       string `json:"id"`
	Provider string `json:"provider"` // "anthropic", "openai"
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	Priority int    `json:"priority"`
}

// ClientFactory creates model clients from auth profiles
type ClientFactory struct{}

// NewClient creates a new model client based on the auth profile
func (f *ClientFactory) NewClient(profile AuthProfile) (ModelClient, error) {
	switch profile.Provider {
	case "anthropic":
		return NewAnthropicClient(profile.APIKey), nil
	case "openai":
		return NewOpenAIClient(profile.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}

// ClientCreator creates model clients from auth profiles.
type ClientCreator interface {
	NewClient(profile AuthProfile) (ModelClient, error)
}

// DefaultModel returns the model used when a profile does not pin one.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	default:
		return "claude-3-5-sonnet-20241022"
	}
}
