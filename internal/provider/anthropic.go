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
	"golang.org/x/time/rate"
)

// =============================================================================
// ANTHROPIC CONSTANTS
// =============================================================================

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"

	// anthropicOAuthBeta is required when authenticating with an OAuth
	// bearer token instead of an API key.
	anthropicOAuthBeta = "oauth-2025-04-20"

	anthropicKeyPrefix = "sk-ant-"

	anthropicDefaultModel = "claude-sonnet-4-20250514"
	anthropicMaxTokens    = 4096
)

// anthropicOAuth is the PKCE configuration for console.anthropic.com.
var anthropicOAuth = auth.OAuthConfig{
	ClientID:     "9d1c250a-e61b-44d9-88ed-5944d1962f5e",
	AuthorizeURL: "https://claude.ai/oauth/authorize",
	TokenURL:     "https://console.anthropic.com/v1/oauth/token",
	RedirectURI:  "https://console.anthropic.com/oauth/code/callback",
	Scopes:       []string{"org:create_api_key", "user:profile", "user:inference"},
}

// =============================================================================
// ANTHROPIC PROVIDER
// =============================================================================

// Anthropic talks to the Anthropic Messages API, authenticating with either
// an API key or an OAuth bearer token.
type Anthropic struct {
	baseURL string
	limiter *rate.Limiter
}

// NewAnthropic creates the Anthropic provider.
func NewAnthropic() *Anthropic {
	return &Anthropic{
		baseURL: anthropicBaseURL,
		limiter: newRequestLimiter(),
	}
}

// WithBaseURL overrides the API base URL.
func (a *Anthropic) WithBaseURL(url string) *Anthropic {
	a.baseURL = strings.TrimSuffix(url, "/")
	return a
}

// ID returns the provider identifier.
func (a *Anthropic) ID() auth.ProviderID { return auth.ProviderAnthropic }

// DisplayName returns the human-readable name.
func (a *Anthropic) DisplayName() string { return "Anthropic" }

// SupportsOAuth reports OAuth capability.
func (a *Anthropic) SupportsOAuth() bool { return true }

// OAuthConfig returns the PKCE endpoints.
func (a *Anthropic) OAuthConfig() (auth.OAuthConfig, error) {
	return anthropicOAuth, nil
}

// RequiresKey reports whether a credential is needed.
func (a *Anthropic) RequiresKey() bool { return true }

// CheckKeyFormat validates an Anthropic API key's shape.
// SECURITY: Format check only - the key is never logged or echoed.
func (a *Anthropic) CheckKeyFormat(key string) error {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, anthropicKeyPrefix) {
		return fmt.Errorf("%w: expected %s prefix", ErrBadKeyFormat, anthropicKeyPrefix)
	}
	if len(key) < len(anthropicKeyPrefix)+32 {
		return fmt.Errorf("%w: key too short", ErrBadKeyFormat)
	}
	return nil
}

// AuthHeaders attaches the credential. API keys use x-api-key; OAuth
// bearers use Authorization plus the OAuth beta header.
func (a *Anthropic) AuthHeaders(cred auth.Credential, h http.Header) {
	h.Set("anthropic-version", anthropicVersion)
	switch cred.Kind {
	case auth.KindOAuthBearer:
		h.Set("Authorization", "Bearer "+cred.Secret)
		h.Set("anthropic-beta", anthropicOAuthBeta)
	default:
		h.Set("x-api-key", cred.Secret)
	}
}

// Validate probes the models endpoint with the credential.
func (a *Anthropic) Validate(ctx context.Context, cred auth.Credential) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v1/models", nil)
	if err != nil {
		return err
	}
	a.AuthHeaders(cred, req.Header)
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

// anthropicRequest is the Messages API request body.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicEvent covers the SSE event payloads relay cares about.
type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Message struct {
		Model string `json:"model"`
	} `json:"message"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ChatStream runs a streaming Messages API call.
func (a *Anthropic) ChatStream(ctx context.Context, cred auth.Credential, req ChatRequest, cb StreamCallback) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	modelID := req.Model
	if modelID == "" {
		modelID = anthropicDefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicMaxTokens
	}

	// The Messages API takes the system prompt as a top-level field.
	body := anthropicRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		Stream:    true,
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			body.System = m.Content
			continue
		}
		body.Messages = append(body.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	a.AuthHeaders(cred, httpReq.Header)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := sharedStreamingClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpErrorFrom(resp)
	}

	return a.processStream(ctx, resp.Body, modelID, cb)
}

// processStream consumes the Messages API SSE stream, forwarding text
// deltas until message_stop.
func (a *Anthropic) processStream(ctx context.Context, body io.Reader, modelID string, cb StreamCallback) error {
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

		var ev anthropicEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// Skip malformed events
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Text != "" {
				cb(StreamChunk{Content: ev.Delta.Text, Model: modelID})
			}
		case "message_stop":
			cb(StreamChunk{Done: true, Model: modelID})
			return nil
		case "error":
			return fmt.Errorf("stream error from provider: %s: %s", ev.Error.Type, ev.Error.Message)
		}
	}
}
