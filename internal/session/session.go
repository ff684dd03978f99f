// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/provider"
)

// =============================================================================
// SESSION ERRORS
// =============================================================================

var (
	// ErrNotConnected indicates no usable credential exists for the
	// provider; the user is routed to the connect flow.
	ErrNotConnected = errors.New("not connected")

	// ErrReconnectRequired indicates the stored credential was
	// definitively rejected and has been cleared.
	ErrReconnectRequired = errors.New("credential rejected; reconnect required")
)

// =============================================================================
// SESSION
// =============================================================================

// Session is the per-run context object owning validation and retry state.
// It is constructed at startup and torn down at exit; its cache is never
// persisted, so every run starts with no credential presumed valid.
type Session struct {
	registry *provider.Registry
	store    auth.Store
	cache    *ValidationCache
	coord    *Coordinator
}

// New creates a session over a credential store and provider registry.
func New(store auth.Store, registry *provider.Registry) *Session {
	cache := NewValidationCache()
	return &Session{
		registry: registry,
		store:    store,
		cache:    cache,
		coord:    NewCoordinator(store, cache),
	}
}

// WithSleeper overrides the retry backoff delay implementation.
func (s *Session) WithSleeper(sl Sleeper) *Session {
	s.coord.WithSleeper(sl)
	return s
}

// Provider resolves a provider ID.
func (s *Session) Provider(id auth.ProviderID) (provider.Provider, error) {
	return s.registry.Get(id)
}

// =============================================================================
// CONNECTING
// =============================================================================

// ConnectAPIKey validates an entered key's shape and persists it. A
// malformed key fails fast with ErrProviderRejected and is never saved.
func (s *Session) ConnectAPIKey(id auth.ProviderID, key string) error {
	p, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if err := p.CheckKeyFormat(key); err != nil {
		return fmt.Errorf("%w: %v", auth.ErrProviderRejected, err)
	}

	cred := auth.Credential{
		Provider:  id,
		Kind:      auth.KindAPIKey,
		Secret:    key,
		CreatedAt: time.Now(),
	}
	if err := s.store.Save(cred); err != nil {
		return err
	}
	// A fresh key has not been proven against the network yet.
	s.cache.Invalidate(cred.StorageKey())
	return nil
}

// BeginOAuth starts a PKCE negotiation for an OAuth-capable provider.
func (s *Session) BeginOAuth(id auth.ProviderID) (*auth.Flow, error) {
	p, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	cfg, err := p.OAuthConfig()
	if err != nil {
		return nil, err
	}
	return auth.Begin(id, cfg)
}

// CompleteOAuth submits the pasted authorization response and persists the
// resulting credential. The flow is terminal afterwards either way.
func (s *Session) CompleteOAuth(ctx context.Context, flow *auth.Flow, pasted string) error {
	cred, err := flow.SubmitCode(ctx, pasted)
	if err != nil {
		return err
	}
	if err := s.store.Save(cred); err != nil {
		return err
	}
	// The exchange itself proved the token; no separate probe needed.
	s.cache.MarkValidated(cred.StorageKey())
	return nil
}

// Disconnect clears the provider's credential and cache entry.
func (s *Session) Disconnect(id auth.ProviderID) error {
	key := auth.StorageKeyFor(id)
	s.cache.Invalidate(key)
	return s.store.Clear(key)
}

// =============================================================================
// VALIDATION
// =============================================================================

// EnsureValidated confirms the provider's stored credential is usable,
// consulting the cache first so a still-good credential costs no network
// round trip within one run.
//
// Invalid clears the credential and returns ErrReconnectRequired.
// Inconclusive changes nothing and succeeds: the real request will surface
// its own error if the credential truly is bad.
func (s *Session) EnsureValidated(ctx context.Context, id auth.ProviderID) error {
	p, err := s.registry.Get(id)
	if err != nil {
		return err
	}
	if !p.RequiresKey() {
		return nil
	}

	key := auth.StorageKeyFor(id)
	if validated, known := s.cache.IsValidated(key); known && validated {
		return nil
	}

	cred, err := s.store.Load(key)
	if err != nil {
		// Load failures degrade to "no credential": route to connect.
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	switch Validate(ctx, p, cred) {
	case OutcomeValid:
		s.cache.MarkValidated(key)
		return nil
	case OutcomeInvalid:
		s.cache.Invalidate(key)
		_ = s.store.Clear(key)
		return ErrReconnectRequired
	default:
		// Inconclusive: do not downgrade the cache; fall through to the
		// real request.
		return nil
	}
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream runs one chat request through the retry coordinator, delivering
// events to the sink.
func (s *Session) Stream(ctx context.Context, id auth.ProviderID, req provider.ChatRequest, sink Sink) error {
	p, err := s.registry.Get(id)
	if err != nil {
		return err
	}

	var cred auth.Credential
	if p.RequiresKey() {
		cred, err = s.store.Load(auth.StorageKeyFor(id))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNotConnected, err)
		}
	}

	return s.coord.Stream(ctx, p, cred, req, sink)
}

// Connected reports whether a credential is stored for the provider.
// Providers that need no key are always connected.
func (s *Session) Connected(id auth.ProviderID) bool {
	p, err := s.registry.Get(id)
	if err != nil {
		return false
	}
	if !p.RequiresKey() {
		return true
	}
	_, err = s.store.Load(auth.StorageKeyFor(id))
	return err == nil
}
