// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"net/http"
	"testing"

	"github.com/jeranaias/relay-tui/internal/provider"
)

func TestClassifyProbe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"success", nil, OutcomeValid},
		{"unauthorized", &provider.HTTPError{Status: http.StatusUnauthorized}, OutcomeInvalid},
		{"forbidden", &provider.HTTPError{Status: http.StatusForbidden}, OutcomeInvalid},
		// Rate limiting means the credential authenticated; throttling is
		// the transport's concern, not the validator's.
		{"rate limited", &provider.HTTPError{Status: http.StatusTooManyRequests}, OutcomeValid},
		{"server error", &provider.HTTPError{Status: http.StatusInternalServerError}, OutcomeInconclusive},
		{"bad gateway", &provider.HTTPError{Status: http.StatusBadGateway}, OutcomeInconclusive},
		{"transport failure", errors.New("dial tcp: connection refused"), OutcomeInconclusive},
	}

	for _, tt := range tests {
		if got := ClassifyProbe(tt.err); got != tt.want {
			t.Errorf("%s: ClassifyProbe = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if OutcomeValid.String() != "valid" || OutcomeInvalid.String() != "invalid" || OutcomeInconclusive.String() != "inconclusive" {
		t.Error("outcome names wrong")
	}
}
