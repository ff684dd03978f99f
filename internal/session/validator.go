// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/provider"
)

// =============================================================================
// VALIDATION OUTCOME
// =============================================================================

// Outcome classifies a credential probe. It is an internal classification,
// not a propagated error.
type Outcome int

const (
	// OutcomeValid: the credential authenticated.
	OutcomeValid Outcome = iota
	// OutcomeInvalid: the provider definitively rejected the credential.
	OutcomeInvalid
	// OutcomeInconclusive: the probe says nothing about the credential
	// (transport failure, provider-side error). Callers must not downgrade
	// a previously-valid cache entry on this outcome.
	OutcomeInconclusive
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeInconclusive:
		return "inconclusive"
	default:
		return "unknown"
	}
}

// =============================================================================
// TOKEN VALIDATOR
// =============================================================================

// Validate probes the provider with the credential and classifies the
// result:
//
//   - success: Valid
//   - 401/403: Invalid
//   - 429: Valid (the credential authenticated; throttling is a separate
//     concern handled by the transport's rate limiter)
//   - transport failure or provider-side 5xx: Inconclusive
func Validate(ctx context.Context, p provider.Provider, cred auth.Credential) Outcome {
	return ClassifyProbe(p.Validate(ctx, cred))
}

// ClassifyProbe maps a probe error to an Outcome.
func ClassifyProbe(err error) Outcome {
	if err == nil {
		return OutcomeValid
	}

	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.IsAuthRejection():
			return OutcomeInvalid
		case httpErr.IsRateLimit():
			return OutcomeValid
		default:
			return OutcomeInconclusive
		}
	}

	// DNS, timeout, connection reset: the credential was never judged.
	return OutcomeInconclusive
}
