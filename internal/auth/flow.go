// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// OAUTH CONFIG
// =============================================================================

// OAuthConfig holds the provider-specific endpoints and identifiers for an
// authorization-code-with-PKCE negotiation. Providers that support OAuth
// expose one of these; everything else in the flow is provider-neutral.
type OAuthConfig struct {
	ClientID     string
	AuthorizeURL string
	TokenURL     string
	RedirectURI  string
	Scopes       []string
}

// =============================================================================
// FLOW STAGES
// =============================================================================

// Stage is the lifecycle position of one OAuth negotiation.
type Stage int

const (
	// StageAwaitingMethodChoice: flow created, user has not yet committed
	// to browser-based authorization.
	StageAwaitingMethodChoice Stage = iota
	// StageAwaitingAuthorizationCode: authorize URL handed to the browser
	// opener, waiting for the pasted response.
	StageAwaitingAuthorizationCode
	// StageExchangingCode: state verified, token exchange in flight.
	StageExchangingCode
	// StageComplete: exchange succeeded, credential produced. Terminal.
	StageComplete
	// StageFailed: negotiation failed or was cancelled. Terminal.
	StageFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageAwaitingMethodChoice:
		return "awaiting-method-choice"
	case StageAwaitingAuthorizationCode:
		return "awaiting-authorization-code"
	case StageExchangingCode:
		return "exchanging-code"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the stage is final. Terminal flows are discarded;
// a retry requires a fresh Begin.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// =============================================================================
// FLOW
// =============================================================================

// defaultExchangeTimeout bounds the token exchange request.
const defaultExchangeTimeout = 30 * time.Second

// Flow is one in-progress PKCE negotiation. It is transient: never
// persisted, destroyed on success (replaced by a Credential) or on
// cancellation/failure.
type Flow struct {
	provider ProviderID
	config   OAuthConfig

	verifier string
	state    string
	stage    Stage

	httpClient *http.Client
}

// Begin creates a flow for an OAuth-capable provider: generates the code
// verifier and state nonce and moves to AwaitingAuthorizationCode. The
// caller hands AuthorizeURL() to the browser-opening collaborator.
func Begin(provider ProviderID, cfg OAuthConfig) (*Flow, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return nil, err
	}
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	return &Flow{
		provider:   provider,
		config:     cfg,
		verifier:   verifier,
		state:      state,
		stage:      StageAwaitingAuthorizationCode,
		httpClient: &http.Client{Timeout: defaultExchangeTimeout},
	}, nil
}

// WithHTTPClient overrides the HTTP client used for the token exchange.
func (f *Flow) WithHTTPClient(client *http.Client) *Flow {
	f.httpClient = client
	return f
}

// Provider returns the provider this flow negotiates for.
func (f *Flow) Provider() ProviderID {
	return f.provider
}

// Stage returns the current lifecycle position.
func (f *Flow) Stage() Stage {
	return f.stage
}

// AuthorizeURL constructs the provider's authorization URL embedding the
// code challenge (never the verifier), the challenge method, and the state
// nonce.
func (f *Flow) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", f.config.ClientID)
	q.Set("code_challenge", Challenge(f.verifier))
	q.Set("code_challenge_method", ChallengeMethod)
	q.Set("state", f.state)
	q.Set("redirect_uri", f.config.RedirectURI)
	if len(f.config.Scopes) > 0 {
		q.Set("scope", strings.Join(f.config.Scopes, " "))
	}
	return f.config.AuthorizeURL + "?" + q.Encode()
}

// Cancel moves the flow to Failed. Safe to call in any stage.
func (f *Flow) Cancel() {
	f.stage = StageFailed
}

// =============================================================================
// CODE SUBMISSION
// =============================================================================

// ParsePastedCode splits a user-pasted authorization response of the form
// "code#state" into its parts.
func ParsePastedCode(pasted string) (code, state string, err error) {
	pasted = strings.TrimSpace(pasted)
	if pasted == "" {
		return "", "", ErrInvalidCode
	}

	code, state, found := strings.Cut(pasted, "#")
	if !found || code == "" || state == "" {
		return "", "", ErrInvalidCode
	}
	return code, state, nil
}

// SubmitCode verifies the pasted authorization response and exchanges the
// code for an access token.
//
// The state nonce comparison is exact; a mismatch fails with
// ErrStateMismatch and the exchange is never attempted. On success the flow
// is Complete and the returned Credential carries kind OAuthBearer. Any
// failure leaves the flow Failed.
func (f *Flow) SubmitCode(ctx context.Context, pasted string) (Credential, error) {
	if f.stage != StageAwaitingAuthorizationCode {
		return Credential{}, fmt.Errorf("%w: %s", ErrFlowState, f.stage)
	}

	code, state, err := ParsePastedCode(pasted)
	if err != nil {
		f.stage = StageFailed
		return Credential{}, err
	}

	// Constant-time, full-length comparison. No partial matches.
	if subtle.ConstantTimeCompare([]byte(state), []byte(f.state)) != 1 {
		f.stage = StageFailed
		return Credential{}, ErrStateMismatch
	}

	f.stage = StageExchangingCode

	cred, err := f.exchange(ctx, code, state)
	if err != nil {
		f.stage = StageFailed
		return Credential{}, err
	}

	f.stage = StageComplete
	return cred, nil
}

// tokenRequest is the JSON body sent to the token endpoint. The verifier is
// disclosed here, over TLS, for the first and only time.
type tokenRequest struct {
	Code         string `json:"code"`
	State        string `json:"state"`
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri"`
	CodeVerifier string `json:"code_verifier"`
}

// tokenResponse is the token endpoint's success payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// exchange calls the provider's token endpoint with the authorization code
// and the code verifier.
func (f *Flow) exchange(ctx context.Context, code, state string) (Credential, error) {
	body, err := json.Marshal(tokenRequest{
		Code:         code,
		State:        state,
		GrantType:    "authorization_code",
		ClientID:     f.config.ClientID,
		RedirectURI:  f.config.RedirectURI,
		CodeVerifier: f.verifier,
	})
	if err != nil {
		return Credential{}, fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.TokenURL, bytes.NewReader(body))
	if err != nil {
		return Credential{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Credential{}, &OAuthNetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Credential{}, &OAuthNetworkError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return Credential{}, fmt.Errorf("%w: token endpoint returned %d", ErrProviderRejected, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return Credential{}, fmt.Errorf("%w: malformed token response", ErrProviderRejected)
	}
	if tok.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: token response missing access token", ErrProviderRejected)
	}

	return Credential{
		Provider:     f.provider,
		Kind:         KindOAuthBearer,
		Secret:       tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		CreatedAt:    time.Now(),
	}, nil
}
