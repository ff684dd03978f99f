// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testOAuthConfig(tokenURL string) OAuthConfig {
	return OAuthConfig{
		ClientID:     "test-client",
		AuthorizeURL: "https://provider.example/oauth/authorize",
		TokenURL:     tokenURL,
		RedirectURI:  "https://provider.example/oauth/callback",
		Scopes:       []string{"user:profile", "user:inference"},
	}
}

func TestBeginStage(t *testing.T) {
	f, err := Begin(ProviderAnthropic, testOAuthConfig("https://provider.example/token"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if f.Stage() != StageAwaitingAuthorizationCode {
		t.Errorf("stage = %v, want %v", f.Stage(), StageAwaitingAuthorizationCode)
	}
	if f.Stage().Terminal() {
		t.Error("fresh flow reported terminal")
	}
}

func TestAuthorizeURL(t *testing.T) {
	f, err := Begin(ProviderAnthropic, testOAuthConfig("https://provider.example/token"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	u, err := url.Parse(f.AuthorizeURL())
	if err != nil {
		t.Fatalf("authorize URL does not parse: %v", err)
	}

	q := u.Query()
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("client_id") != "test-client" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q", q.Get("code_challenge_method"))
	}
	if q.Get("code_challenge") == "" {
		t.Error("missing code_challenge")
	}
	if q.Get("state") == "" {
		t.Error("missing state")
	}
	if q.Get("scope") != "user:profile user:inference" {
		t.Errorf("scope = %q", q.Get("scope"))
	}

	// SECURITY: The verifier itself never appears in the URL. The
	// challenge is 43 chars of base64url SHA-256, the verifier 86.
	if len(q.Get("code_challenge")) != 43 {
		t.Errorf("code_challenge length = %d, want 43", len(q.Get("code_challenge")))
	}
}

func TestParsePastedCode(t *testing.T) {
	tests := []struct {
		input     string
		wantCode  string
		wantState string
		wantErr   bool
	}{
		{"abc123#state456", "abc123", "state456", false},
		{"  abc123#state456  ", "abc123", "state456", false},
		{"abc123", "", "", true},
		{"#state456", "", "", true},
		{"abc123#", "", "", true},
		{"", "", "", true},
		{"   ", "", "", true},
	}

	for _, tt := range tests {
		code, state, err := ParsePastedCode(tt.input)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCode) {
				t.Errorf("ParsePastedCode(%q) err = %v, want ErrInvalidCode", tt.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePastedCode(%q) failed: %v", tt.input, err)
			continue
		}
		if code != tt.wantCode || state != tt.wantState {
			t.Errorf("ParsePastedCode(%q) = %q, %q", tt.input, code, state)
		}
	}
}

func TestSubmitCodeStateMismatch(t *testing.T) {
	exchanged := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanged = true
	}))
	defer srv.Close()

	f, err := Begin(ProviderAnthropic, testOAuthConfig(srv.URL))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	_, err = f.SubmitCode(context.Background(), "somecode#wrong-state")
	if !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("err = %v, want ErrStateMismatch", err)
	}
	if exchanged {
		t.Error("token exchange attempted despite state mismatch")
	}
	if f.Stage() != StageFailed {
		t.Errorf("stage = %v, want %v", f.Stage(), StageFailed)
	}
}

func TestSubmitCodeExchange(t *testing.T) {
	var gotBody tokenRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("bad exchange body: %v", err)
		}
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken:  "access-token-value",
			RefreshToken: "refresh-token-value",
		})
	}))
	defer srv.Close()

	f, err := Begin(ProviderAnthropic, testOAuthConfig(srv.URL))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// Recover the real state from the authorize URL, as a browser would.
	u, _ := url.Parse(f.AuthorizeURL())
	state := u.Query().Get("state")

	cred, err := f.SubmitCode(context.Background(), "authcode#"+state)
	if err != nil {
		t.Fatalf("SubmitCode failed: %v", err)
	}

	if f.Stage() != StageComplete {
		t.Errorf("stage = %v, want %v", f.Stage(), StageComplete)
	}
	if cred.Kind != KindOAuthBearer {
		t.Errorf("kind = %v, want %v", cred.Kind, KindOAuthBearer)
	}
	if cred.Secret != "access-token-value" {
		t.Errorf("secret = %q", cred.Secret)
	}
	if cred.RefreshToken != "refresh-token-value" {
		t.Errorf("refresh token = %q", cred.RefreshToken)
	}
	if cred.Provider != ProviderAnthropic {
		t.Errorf("provider = %q", cred.Provider)
	}

	if gotBody.GrantType != "authorization_code" {
		t.Errorf("grant_type = %q", gotBody.GrantType)
	}
	if gotBody.Code != "authcode" {
		t.Errorf("code = %q", gotBody.Code)
	}
	if gotBody.CodeVerifier == "" {
		t.Error("exchange missing code_verifier")
	}
	if Challenge(gotBody.CodeVerifier) != u.Query().Get("code_challenge") {
		t.Error("verifier does not hash to the advertised challenge")
	}
}

func TestSubmitCodeProviderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	f, err := Begin(ProviderAnthropic, testOAuthConfig(srv.URL))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	u, _ := url.Parse(f.AuthorizeURL())

	_, err = f.SubmitCode(context.Background(), "badcode#"+u.Query().Get("state"))
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
	if f.Stage() != StageFailed {
		t.Errorf("stage = %v, want %v", f.Stage(), StageFailed)
	}
}

func TestSubmitCodeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately: connection refused

	f, err := Begin(ProviderAnthropic, testOAuthConfig(srv.URL))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	u, _ := url.Parse(f.AuthorizeURL())

	_, err = f.SubmitCode(context.Background(), "code#"+u.Query().Get("state"))
	var netErr *OAuthNetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want OAuthNetworkError", err)
	}
}

func TestSubmitCodeTerminalFlow(t *testing.T) {
	f, err := Begin(ProviderAnthropic, testOAuthConfig("https://provider.example/token"))
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	f.Cancel()

	if f.Stage() != StageFailed {
		t.Fatalf("stage = %v after cancel", f.Stage())
	}

	_, err = f.SubmitCode(context.Background(), "code#state")
	if !errors.Is(err, ErrFlowState) {
		t.Errorf("err = %v, want ErrFlowState", err)
	}
}

func TestStageString(t *testing.T) {
	stages := []Stage{
		StageAwaitingMethodChoice,
		StageAwaitingAuthorizationCode,
		StageExchangingCode,
		StageComplete,
		StageFailed,
	}
	seen := make(map[string]bool)
	for _, s := range stages {
		name := s.String()
		if name == "unknown" || name == "" {
			t.Errorf("stage %d has no name", s)
		}
		if seen[name] {
			t.Errorf("duplicate stage name %q", name)
		}
		seen[name] = true
	}
	if !strings.Contains(Stage(99).String(), "unknown") {
		t.Error("out-of-range stage should stringify as unknown")
	}
}
