// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE (RFC 7636) primitives. The verifier is a high-entropy secret kept
// local; only its one-way challenge travels in the authorize URL, so an
// intercepted authorization code cannot be redeemed without the verifier.

const (
	// verifierBytes is the number of random bytes in a code verifier.
	// base64url encoding of 64 bytes yields 86 characters, inside the
	// RFC 7636 mandated range of 43-128.
	verifierBytes = 64

	// stateBytes is the number of random bytes in a state nonce.
	stateBytes = 32

	// ChallengeMethod is the challenge derivation identifier sent to the
	// authorization endpoint.
	ChallengeMethod = "S256"
)

// GenerateVerifier returns a new PKCE code verifier from a cryptographically
// secure random source. The result uses only base64url characters, a subset
// of the unreserved URI character set.
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Challenge derives the code challenge for a verifier:
// base64url(SHA-256(verifier)), no padding. Deterministic so the token
// endpoint recomputes the identical value from the verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns a random nonce binding one authorization response to
// its negotiation instance. It is generated independently of the verifier so
// a leaked state reveals nothing about the PKCE secret.
func GenerateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
