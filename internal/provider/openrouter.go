// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/model"
	"golang.org/x/time/rate"
)

// =============================================================================
// OPENROUTER CONSTANTS
// =============================================================================

const (
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	openRouterKeyPrefix = "sk-or-"

	openRouterDefaultModel = "openrouter/auto"

	// Attribution headers OpenRouter uses for rate-limit categorization.
	openRouterSiteURL  = "https://github.com/jeranaias/relay-tui"
	openRouterSiteName = "relay"
)

// =============================================================================
// OPENROUTER PROVIDER
// =============================================================================

// OpenRouter talks to the OpenRouter chat completions API with an API key.
type OpenRouter struct {
	baseURL string
	limiter *rate.Limiter
}

// NewOpenRouter creates the OpenRouter provider.
func NewOpenRouter() *OpenRouter {
	return &OpenRouter{
		baseURL: openRouterBaseURL,
		limiter: newRequestLimiter(),
	}
}

// WithBaseURL overrides the API base URL.
func (o *OpenRouter) WithBaseURL(url string) *OpenRouter {
	o.baseURL = strings.TrimSuffix(url, "/")
	return o
}

// ID returns the provider identifier.
func (o *OpenRouter) ID() auth.ProviderID { return auth.ProviderOpenRouter }

// DisplayName returns the human-readable name.
func (o *OpenRouter) DisplayName() string { return "OpenRouter" }

// SupportsOAuth reports OAuth capability.
func (o *OpenRouter) SupportsOAuth() bool { return false }

// OAuthConfig returns ErrNoOAuth; OpenRouter connections are key-only.
func (o *OpenRouter) OAuthConfig() (auth.OAuthConfig, error) {
	return auth.OAuthConfig{}, ErrNoOAuth
}

// RequiresKey reports whether a credential is needed.
func (o *OpenRouter) RequiresKey() bool { return true }

// CheckKeyFormat validates an OpenRouter key's shape.
// SECURITY: Entropy check catches obvious placeholder keys before any
// request carries them.
func (o *OpenRouter) CheckKeyFormat(key string) error {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, openRouterKeyPrefix) {
		return fmt.Errorf("%w: expected %s prefix", ErrBadKeyFormat, openRouterKeyPrefix)
	}
	if len(key) < len(openRouterKeyPrefix)+32 {
		return fmt.Errorf("%w: key too short", ErrBadKeyFormat)
	}

	unique := make(map[rune]bool)
	for _, c := range key[len(openRouterKeyPrefix):] {
		unique[c] = true
	}
	if len(unique) < 10 {
		return fmt.Errorf("%w: key entropy too low", ErrBadKeyFormat)
	}
	return nil
}

// AuthHeaders attaches the bearer key and attribution headers.
func (o *OpenRouter) AuthHeaders(cred auth.Credential, h http.Header) {
	h.Set("Authorization", "Bearer "+cred.Secret)
	h.Set("HTTP-Referer", openRouterSiteURL)
	h.Set("X-Title", openRouterSiteName)
}

// Validate probes the authenticated key endpoint.
func (o *OpenRouter) Validate(ctx context.Context, cred auth.Credential) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/auth/key", nil)
	if err != nil {
		return err
	}
	o.AuthHeaders(cred, req.Header)
	req.Header.Set("User-Agent", userAgent)

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpErrorFrom(resp)
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseSize))
	return nil
}

// =============================================================================
// STREAMING
// =============================================================================

// openRouterRequest is the chat completions request body.
type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []model.ChatMessage `json:"messages"`
	Stream      bool                `json:"stream"`
	Temperature float64             `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// openRouterChunk is one SSE data payload in the OpenAI delta format.
type openRouterChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// ChatStream runs a streaming chat completions call.
func (o *OpenRouter) ChatStream(ctx context.Context, cred auth.Credential, req ChatRequest, cb StreamCallback) error {
	if err := o.limiter.Wait(ctx); err != nil {
		return err
	}

	modelID := req.Model
	if modelID == "" {
		modelID = openRouterDefaultModel
	}

	payload, err := json.Marshal(openRouterRequest{
		Model:       modelID,
		Messages:    req.Messages,
		Stream:      true,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	o.AuthHeaders(cred, httpReq.Header)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpErrorFrom(resp)
	}

	return o.processStream(ctx, resp.Body, cb)
}

// processStream consumes the OpenAI-style SSE stream until [DONE] or a
// finish reason.
func (o *OpenRouter) processStream(ctx context.Context, body io.Reader, cb StreamCallback) error {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if bytes.Equal(data, []byte("[DONE]")) {
			cb(StreamChunk{Done: true})
			return nil
		}

		var chunk openRouterChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			continue
		}

		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		if choice.Delta.Content != "" {
			cb(StreamChunk{Content: choice.Delta.Content, Model: chunk.Model})
		}
		if choice.FinishReason != "" {
			cb(StreamChunk{Done: true, Model: chunk.Model})
			return nil
		}
	}
}
