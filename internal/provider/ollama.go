// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/model"
)

// =============================================================================
// OLLAMA CONSTANTS
// =============================================================================

const (
	ollamaBaseURL = "http://localhost:11434"

	ollamaDefaultModel = "llama3.2"
)

// =============================================================================
// OLLAMA PROVIDER
// =============================================================================

// Ollama talks to a local Ollama daemon. No credential is required; the
// response stream is line-delimited JSON rather than SSE.
type Ollama struct {
	baseURL string
}

// NewOllama creates the Ollama provider.
func NewOllama() *Ollama {
	return &Ollama{baseURL: ollamaBaseURL}
}

// WithBaseURL overrides the daemon address.
func (o *Ollama) WithBaseURL(url string) *Ollama {
	o.baseURL = strings.TrimSuffix(url, "/")
	return o
}

// ID returns the provider identifier.
func (o *Ollama) ID() auth.ProviderID { return auth.ProviderOllama }

// DisplayName returns the human-readable name.
func (o *Ollama) DisplayName() string { return "Ollama (local)" }

// SupportsOAuth reports OAuth capability.
func (o *Ollama) SupportsOAuth() bool { return false }

// OAuthConfig returns ErrNoOAuth.
func (o *Ollama) OAuthConfig() (auth.OAuthConfig, error) {
	return auth.OAuthConfig{}, ErrNoOAuth
}

// RequiresKey reports whether a credential is needed. Local daemons take
// none.
func (o *Ollama) RequiresKey() bool { return false }

// CheckKeyFormat accepts anything; Ollama ignores credentials.
func (o *Ollama) CheckKeyFormat(string) error { return nil }

// AuthHeaders is a no-op for the local daemon.
func (o *Ollama) AuthHeaders(auth.Credential, http.Header) {}

// Validate probes daemon reachability via the tags endpoint.
func (o *Ollama) Validate(ctx context.Context, _ auth.Credential) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := sharedHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
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

// ollamaRequest is the /api/chat request body.
type ollamaRequest struct {
	Model    string              `json:"model"`
	Messages []model.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

// ollamaChunk is one line of the line-delimited JSON stream.
type ollamaChunk struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// ChatStream runs a streaming /api/chat call.
func (o *Ollama) ChatStream(ctx context.Context, _ auth.Credential, req ChatRequest, cb StreamCallback) error {
	modelID := req.Model
	if modelID == "" {
		modelID = ollamaDefaultModel
	}

	payload, err := json.Marshal(ollamaRequest{
		Model:    modelID,
		Messages: req.Messages,
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

// processStream reads line-delimited JSON chunks until done.
func (o *Ollama) processStream(ctx context.Context, body io.Reader, cb StreamCallback) error {
	reader := bufio.NewReader(body)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(bytes.TrimSpace(line)) == 0 {
				return nil
			}
			if err != io.EOF {
				return err
			}
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			// Skip malformed lines
			continue
		}

		if chunk.Message.Content != "" {
			cb(StreamChunk{Content: chunk.Message.Content, Model: chunk.Model})
		}
		if chunk.Done {
			cb(StreamChunk{Done: true, Model: chunk.Model})
			return nil
		}
	}
}
