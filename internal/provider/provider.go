// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/model"
)

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatRequest is one streaming chat call against a provider.
type ChatRequest struct {
	Model       string
	Messages    []model.ChatMessage
	MaxTokens   int
	Temperature float64
}

// StreamChunk is one unit of streamed output, provider-neutral.
type StreamChunk struct {
	Content string
	Done    bool
	Model   string
}

// StreamCallback receives each chunk as it arrives.
type StreamCallback func(chunk StreamChunk)

// =============================================================================
// PROVIDER INTERFACE
// =============================================================================

// ErrNoOAuth is returned when an OAuth flow is requested from a provider
// that only takes API keys.
var ErrNoOAuth = errors.New("provider does not support oauth")

// ErrBadKeyFormat indicates an entered API key fails the provider's shape
// check before any network call.
var ErrBadKeyFormat = errors.New("api key format invalid")

// Provider is one LLM backend.
//
// Validate is the cheap liveness probe used by token validation: a nil
// error means the credential authenticated; an *HTTPError carries the
// status for classification; anything else is a transport failure and says
// nothing about the credential.
type Provider interface {
	ID() auth.ProviderID
	DisplayName() string

	// SupportsOAuth reports whether OAuthConfig returns a usable config.
	SupportsOAuth() bool
	// OAuthConfig returns the PKCE endpoints, or ErrNoOAuth.
	OAuthConfig() (auth.OAuthConfig, error)

	// CheckKeyFormat validates an API key's shape without any network call.
	CheckKeyFormat(key string) error
	// RequiresKey reports whether a credential is needed at all.
	RequiresKey() bool

	// AuthHeaders attaches the credential to an outbound request.
	AuthHeaders(cred auth.Credential, h http.Header)

	// Validate probes the provider with the credential.
	Validate(ctx context.Context, cred auth.Credential) error

	// ChatStream runs one streaming chat call, invoking the callback per
	// chunk. It returns after the stream ends or fails.
	ChatStream(ctx context.Context, cred auth.Credential, req ChatRequest, cb StreamCallback) error
}

// =============================================================================
// REGISTRY
// =============================================================================

// ErrUnknownProvider is returned for a provider ID nothing registered.
var ErrUnknownProvider = errors.New("unknown provider")

// Registry holds the available providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[auth.ProviderID]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[auth.ProviderID]Provider)}
}

// DefaultRegistry returns a registry with all built-in providers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewAnthropic())
	r.Register(NewOpenRouter())
	r.Register(NewOllama())
	return r
}

// Register adds a provider, replacing any previous one with the same ID.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Get returns the provider for an ID.
func (r *Registry) Get(id auth.ProviderID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

// IDs returns the registered provider IDs, sorted.
func (r *Registry) IDs() []auth.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]auth.ProviderID, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
