// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGenerateVerifierLength(t *testing.T) {
	v, err := GenerateVerifier()
	if err != nil {
		t.Fatalf("GenerateVerifier failed: %v", err)
	}

	// 64 random bytes base64url-encode to 86 characters, inside the
	// RFC 7636 range of 43-128.
	if len(v) != 86 {
		t.Errorf("verifier length = %d, want 86", len(v))
	}
	if len(v) < 43 || len(v) > 128 {
		t.Errorf("verifier length %d outside RFC 7636 range", len(v))
	}
}

func TestGenerateVerifierCharset(t *testing.T) {
	v, err := GenerateVerifier()
	if err != nil {
		t.Fatalf("GenerateVerifier failed: %v", err)
	}

	for _, c := range v {
		ok := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_'
		if !ok {
			t.Errorf("verifier contains non-base64url character %q", c)
		}
	}
}

func TestGenerateVerifierUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v, err := GenerateVerifier()
		if err != nil {
			t.Fatalf("GenerateVerifier failed: %v", err)
		}
		if seen[v] {
			t.Fatal("duplicate verifier generated")
		}
		seen[v] = true
	}
}

func TestChallengeDerivation(t *testing.T) {
	verifier := "test-verifier-value"

	sum := sha256.Sum256([]byte(verifier))
	want := base64.RawURLEncoding.EncodeToString(sum[:])

	if got := Challenge(verifier); got != want {
		t.Errorf("Challenge = %q, want %q", got, want)
	}
}

func TestChallengeDeterministic(t *testing.T) {
	v, err := GenerateVerifier()
	if err != nil {
		t.Fatalf("GenerateVerifier failed: %v", err)
	}
	if Challenge(v) != Challenge(v) {
		t.Error("challenge not deterministic for the same verifier")
	}
}

func TestChallengeNotVerifier(t *testing.T) {
	v, err := GenerateVerifier()
	if err != nil {
		t.Fatalf("GenerateVerifier failed: %v", err)
	}
	if Challenge(v) == v {
		t.Error("challenge equals verifier")
	}
}

func TestGenerateStateIndependent(t *testing.T) {
	// The state nonce must not be derived from the verifier. With both
	// generated randomly, they can never coincide.
	v, err := GenerateVerifier()
	if err != nil {
		t.Fatalf("GenerateVerifier failed: %v", err)
	}
	s, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}
	if s == v {
		t.Error("state equals verifier")
	}
	if s == Challenge(v) {
		t.Error("state equals challenge")
	}
	if s == "" {
		t.Error("empty state")
	}
}
