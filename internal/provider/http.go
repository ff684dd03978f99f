// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// TRANSPORT CONSTANTS
// =============================================================================

const (
	// DefaultTimeout bounds non-streaming API requests.
	DefaultTimeout = 60 * time.Second

	// MaxResponseSize caps response bodies.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024

	userAgent = "relay/0.1.0"
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for request/response calls.
	sharedHTTPClient = &http.Client{
		Transport: newPooledTransport(),
		Timeout:   DefaultTimeout,
	}

	// sharedStreamingClient has no timeout; streaming lifetime is
	// controlled through the request context.
	sharedStreamingClient = &http.Client{
		Transport: newPooledTransport(),
	}
)

func newPooledTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// =============================================================================
// RATE LIMITING
// =============================================================================

// newRequestLimiter returns the client-side limiter applied before each
// outbound API call, keeping relay polite toward provider quotas.
func newRequestLimiter() *rate.Limiter {
	// 5 req/s sustained with a burst of 10.
	return rate.NewLimiter(rate.Limit(5), 10)
}

// =============================================================================
// HTTP ERRORS
// =============================================================================

// HTTPError is a non-2xx response from a provider API. The status code is
// what token validation classifies on.
type HTTPError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider returned HTTP %d", e.Status)
}

// IsAuthRejection reports whether the status is a definitive credential
// rejection.
func (e *HTTPError) IsAuthRejection() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsRateLimit reports whether the status is throttling. A rate-limited
// credential authenticated successfully.
func (e *HTTPError) IsRateLimit() bool {
	return e.Status == http.StatusTooManyRequests
}

// =============================================================================
// RESPONSE READING
// =============================================================================

// readResponse reads a response body under the size cap.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", int64(MaxResponseSize))
	}
	return body, nil
}

// httpErrorFrom drains an error response into an HTTPError, keeping at most
// a short message fragment for diagnostics.
func httpErrorFrom(resp *http.Response) *HTTPError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := string(body)
	if len(msg) > 256 {
		msg = msg[:256]
	}
	return &HTTPError{Status: resp.StatusCode, Message: msg}
}
