// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// UserMessage returns a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant turn.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request is a provider-independent completion request.
type Request struct {
	// Model names the backend model.
	Model string

	// System is the system prompt. Empty means none.
	System string

	// Messages is the conversation so far, oldest first.
	Messages []Message

	// MaxTokens bounds the reply length. Zero uses the backend default.
	MaxTokens int

	// Temperature overrides the backend's sampling temperature when
	// non-nil.
	Temperature *float64
}

// StopReason describes why generation ended.
type StopReason string

const (
	StopReasonEndTurn   StopReason = "end_turn"
	StopReasonMaxTokens StopReason = "max_tokens"
)

// Usage reports token counts for one completion.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is a completed reply.
type Response struct {
	Model      string
	Content    string
	StopReason StopReason
	Usage      Usage
}
