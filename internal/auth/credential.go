// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// =============================================================================
// PROVIDER IDENTITY
// =============================================================================

// ProviderID identifies an LLM provider. The set is extensible; adding a
// provider means adding a provider implementation, not touching this package.
type ProviderID string

const (
	ProviderAnthropic  ProviderID = "anthropic"
	ProviderOpenRouter ProviderID = "openrouter"
	ProviderOllama     ProviderID = "ollama"
)

// String returns the string form of the provider ID.
func (p ProviderID) String() string {
	return string(p)
}

// =============================================================================
// CREDENTIAL
// =============================================================================

// Kind describes how a credential authenticates: a manually entered API key
// or a bearer token obtained through an OAuth exchange.
type Kind string

const (
	KindAPIKey      Kind = "api_key"
	KindOAuthBearer Kind = "oauth"
)

// Credential identifies one provider connection.
//
// RefreshToken is stored when the token endpoint returns one, but automatic
// refresh is out of scope: the only recovery path for a dead token is
// clear-and-reconnect.
type Credential struct {
	Provider     ProviderID `json:"provider"`
	Kind         Kind       `json:"kind"`
	Secret       string     `json:"secret"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// StorageKey returns the stable key under which this credential is cached
// and persisted. At most one live credential exists per storage key.
func (c Credential) StorageKey() string {
	return StorageKeyFor(c.Provider)
}

// StorageKeyFor derives the storage key for a provider.
func StorageKeyFor(provider ProviderID) string {
	return string(provider)
}

// IsZero reports whether the credential carries no secret material.
func (c Credential) IsZero() bool {
	return c.Secret == ""
}

// Fingerprint returns a short SHA-256 fingerprint of the secret for logging.
// SECURITY: Never log key fragments - use the fingerprint instead.
func (c Credential) Fingerprint() string {
	if c.Secret == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.Secret))
	return hex.EncodeToString(h[:4])
}
