// Package llm is the boundary to the language-model provider. The rest of the
// program speaks these provider-neutral types; provider SDKs stay in this package.
package llm

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of a completion request.
type Message struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall

	// Set on tool result messages.
	ToolCallID string
	Name       string
}

// ToolCall is a tool invocation requested by the model. Arguments is the raw
// JSON the model produced; it is not guaranteed to be valid.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolSpec advertises a tool to the model. Parameters is a JSON Schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Usage counts tokens for one or more provider rounds.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Request is a single provider round.
type Request struct {
	Model       string
	Messages    []Message
	Tools       []ToolSpec
	Temperature float32
	MaxTokens   int
}

// Response is the model's reply for one round: either final text or tool calls.
type Response struct {
	Message      Message
	Usage        Usage
	FinishReason string
}

// Provider completes one round of a conversation.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
