// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"net/http"
	"strings"
)

// Compile-time interface check.
var _ Provider = (*Ollama)(nil)

// DefaultOllamaURL is where a local Ollama listens by default.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama implements [Provider] for the Ollama chat API. Requests are
// non-streaming: one POST to /api/chat per completion.
type Ollama struct {
	httpClient *http.Client
	baseURL    string
}

// NewOllama creates an Ollama provider for the server at baseURL
// (e.g. "http://localhost:11434"). A trailing "/api/chat" is accepted
// and stripped. A nil httpClient means http.DefaultClient.
func NewOllama(httpClient *http.Client, baseURL string) *Ollama {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api/chat")
	return &Ollama{httpClient: httpClient, baseURL: baseURL}
}

// Complete sends a non-streaming chat request.
func (provider *Ollama) Complete(ctx context.Context, request Request) (*Response, error) {
	var wireResponse ollamaResponse
	if err := doProviderRequest(ctx, provider.httpClient, provider.baseURL+"/api/chat",
		buildOllamaRequest(request), &wireResponse, "llm/ollama"); err != nil {
		return nil, err
	}
	return wireResponse.toResponse(), nil
}

func buildOllamaRequest(request Request) ollamaRequest {
	wireRequest := ollamaRequest{
		Model:  request.Model,
		Stream: false,
	}
	if request.System != "" {
		wireRequest.Messages = append(wireRequest.Messages, ollamaMessage{Role: "system", Content: request.System})
	}
	for _, message := range request.Messages {
		wireRequest.Messages = append(wireRequest.Messages, ollamaMessage{Role: string(message.Role), Content: message.Content})
	}
	if request.Temperature != nil || request.MaxTokens > 0 {
		wireRequest.Options = &ollamaOptions{Temperature: request.Temperature}
		if request.MaxTokens > 0 {
			wireRequest.Options.NumPredict = request.MaxTokens
		}
	}
	return wireRequest
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason"`
	PromptEvalCount int64         `json:"prompt_eval_count"`
	EvalCount       int64         `json:"eval_count"`
}

func (wire *ollamaResponse) toResponse() *Response {
	stopReason := StopReasonEndTurn
	if wire.DoneReason == "length" {
		stopReason = StopReasonMaxTokens
	}
	return &Response{
		Model:      wire.Model,
		Content:    strings.TrimSpace(wire.Message.Content),
		StopReason: stopReason,
		Usage: Usage{
			InputTokens:  wire.PromptEvalCount,
			OutputTokens: wire.EvalCount,
		},
	}
}
