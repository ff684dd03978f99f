// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
)

// =============================================================================
// OAUTH ERRORS
// =============================================================================

// Sentinel errors for OAuth flow failures. All of them terminate the flow
// session; recovering requires a fresh Begin.
var (
	// ErrInvalidCode indicates the pasted authorization response could not
	// be parsed into a code and state.
	ErrInvalidCode = errors.New("invalid authorization code")

	// ErrStateMismatch indicates the state nonce in the authorization
	// response does not exactly match this negotiation's nonce. The code is
	// never exchanged in this case.
	ErrStateMismatch = errors.New("authorization state mismatch")

	// ErrProviderRejected indicates the provider refused the exchange or
	// the key format check failed.
	ErrProviderRejected = errors.New("provider rejected credentials")

	// ErrFlowState indicates an operation was invoked in the wrong flow
	// stage (for example, submitting a code to a terminal session).
	ErrFlowState = errors.New("oauth flow in wrong state")
)

// OAuthNetworkError wraps a transport failure during the token exchange.
type OAuthNetworkError struct {
	Err error
}

// Error implements the error interface.
func (e *OAuthNetworkError) Error() string {
	return fmt.Sprintf("oauth network error: %v", e.Err)
}

// Unwrap returns the underlying transport error.
func (e *OAuthNetworkError) Unwrap() error {
	return e.Err
}

// =============================================================================
// STORAGE ERRORS
// =============================================================================

// ErrNotFound is returned by Store.Load when no credential exists for the
// storage key. Callers treat it as "no usable credential" and route the
// user to the connect flow.
var ErrNotFound = errors.New("credential not found")

// StorageFailure classifies what went wrong inside the credential store.
type StorageFailure int

const (
	// IOFailure is a filesystem-level problem (read, write, rename).
	IOFailure StorageFailure = iota
	// ParseFailure means the persisted data is malformed.
	ParseFailure
)

// String returns the failure class name.
func (f StorageFailure) String() string {
	switch f {
	case IOFailure:
		return "io"
	case ParseFailure:
		return "parse"
	default:
		return "unknown"
	}
}

// StorageError wraps a credential store failure with its operation and
// failure class. Never fatal to the process: load failures degrade to "no
// credential", save/clear failures surface as notifications.
type StorageError struct {
	Op      string // "load", "save", "clear"
	Key     string
	Failure StorageFailure
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("credential store %s %q (%s): %v", e.Op, e.Key, e.Failure, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is matches two StorageErrors by failure class.
func (e *StorageError) Is(target error) bool {
	var other *StorageError
	if errors.As(target, &other) {
		return e.Failure == other.Failure
	}
	return false
}
