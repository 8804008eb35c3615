// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bureau-foundation/ghost/lib/netutil"
)

// Provider is the interface for completion backends.
type Provider interface {
	// Complete sends a request and blocks until the full reply is
	// available.
	Complete(ctx context.Context, request Request) (*Response, error)
}

// ProviderError is returned when a backend responds with an error.
type ProviderError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the backend's error description, or the raw body
	// when it could not be parsed.
	Message string
}

func (err *ProviderError) Error() string {
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsModelMissing reports whether the backend rejected the request
// because the model is not available (HTTP 404).
func (err *ProviderError) IsModelMissing() bool {
	return err.StatusCode == http.StatusNotFound
}

// doProviderRequest marshals wireRequest as JSON, POSTs it to
// endpoint, and decodes a 200 response into wireResponse. Any other
// status becomes a ProviderError.
func doProviderRequest(ctx context.Context, httpClient *http.Client, endpoint string, wireRequest, wireResponse any, prefix string) error {
	body, err := json.Marshal(wireRequest)
	if err != nil {
		return fmt.Errorf("%s: marshaling request: %w", prefix, err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", prefix, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("%s: sending request: %w", prefix, err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return readProviderError(httpResponse)
	}
	if err := netutil.DecodeResponse(httpResponse.Body, wireResponse); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

// readProviderError parses an error body of the form {"error":"..."}
// (Ollama) or {"error":{"message":"..."}} (OpenAI-compatible servers).
func readProviderError(httpResponse *http.Response) error {
	body := netutil.ErrorBody(httpResponse.Body)

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(body), &flat) == nil && flat.Error != "" {
		return &ProviderError{StatusCode: httpResponse.StatusCode, Message: flat.Error}
	}
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &nested) == nil && nested.Error.Message != "" {
		return &ProviderError{StatusCode: httpResponse.StatusCode, Message: nested.Error.Message}
	}

	message := strings.TrimSpace(body)
	if len(message) > 512 {
		message = message[:512] + "..."
	}
	return &ProviderError{StatusCode: httpResponse.StatusCode, Message: message}
}
