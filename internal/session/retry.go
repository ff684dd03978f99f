// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/relay-tui/internal/auth"
	"github.com/jeranaias/relay-tui/internal/provider"
)

// =============================================================================
// RETRY CONSTANTS
// =============================================================================

// MaxAttempts is the number of retries after the initial stream attempt.
const MaxAttempts = 3

// backoffDelays is keyed by retry index: 2s before the first retry, 4s
// before the second, 8s before the third.
var backoffDelays = [MaxAttempts]time.Duration{
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
}

// ErrAuthExhausted is returned when every retry failed on authorization.
// The credential has been cleared; the session needs a reconnect.
var ErrAuthExhausted = errors.New("authorization failed after retries")

// =============================================================================
// SLEEPER
// =============================================================================

// Sleeper is the injectable delay used between retries, so tests can
// fast-forward simulated time and cancellation stays straightforward.
type Sleeper interface {
	// Sleep blocks for d or until the context is cancelled, returning the
	// context's error in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// clockSleeper is the wall-clock Sleeper.
type clockSleeper struct{}

func (clockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// =============================================================================
// STREAM RETRY COORDINATOR
// =============================================================================

// Coordinator wraps one logical chat stream and retries authorization
// failures with bounded backoff. Retries are strictly sequential: cache
// invalidation precedes the wait, the wait precedes the next attempt, and a
// new attempt never starts before the previous failure is fully processed.
//
// The coordinator never touches conversation history. Retrying re-sends the
// full prompt context from scratch; there is no partial-response
// resumption.
type Coordinator struct {
	store   auth.Store
	cache   *ValidationCache
	sleeper Sleeper
}

// NewCoordinator creates a coordinator over a credential store and
// validation cache.
func NewCoordinator(store auth.Store, cache *ValidationCache) *Coordinator {
	return &Coordinator{
		store:   store,
		cache:   cache,
		sleeper: clockSleeper{},
	}
}

// WithSleeper overrides the backoff delay implementation.
func (c *Coordinator) WithSleeper(s Sleeper) *Coordinator {
	c.sleeper = s
	return c
}

// Stream runs one logical chat request against the provider, forwarding
// output to the sink as events.
//
// Authorization failures invalidate the cache entry, back off, re-fetch the
// credential (an external exchange may have refreshed it), and retry up to
// MaxAttempts times. Exhaustion emits AuthError, clears the credential, and
// returns ErrAuthExhausted. Any non-authorization failure is surfaced once
// as StreamError and never retried. Cancellation during a backoff wait
// emits nothing and leaves store and cache exactly as they were.
func (c *Coordinator) Stream(ctx context.Context, p provider.Provider, cred auth.Credential, req provider.ChatRequest, sink Sink) error {
	key := auth.StorageKeyFor(p.ID())

	for attempt := 0; ; attempt++ {
		err := c.attempt(ctx, p, cred, req, sink)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isAuthRejection(err) {
			sink(StreamError{Message: err.Error()})
			return err
		}

		// RELIABILITY: Invalidate before waiting so a concurrent reconnect
		// observes the unknown state, not a stale "valid".
		c.cache.Invalidate(key)

		if attempt >= MaxAttempts {
			sink(AuthError{
				Provider: p.ID(),
				Message:  "authorization failed; reconnect required",
			})
			// Terminal teardown: the credential is dead, only a fresh
			// connect can recover.
			_ = c.store.Clear(key)
			c.cache.Invalidate(key)
			return ErrAuthExhausted
		}

		if err := c.sleeper.Sleep(ctx, backoffDelays[attempt]); err != nil {
			// Cancelled mid-backoff: no AuthError, no credential clear, no
			// cache writes beyond the invalidation already performed for
			// the observed failure.
			return err
		}

		// Re-fetch: an external exchange may have replaced the stored
		// credential while we were backing off.
		if fresh, loadErr := c.store.Load(key); loadErr == nil {
			cred = fresh
		}
	}
}

// attempt runs a single stream attempt, translating provider chunks into
// events. StreamDone is emitted exactly once per successful attempt.
func (c *Coordinator) attempt(ctx context.Context, p provider.Provider, cred auth.Credential, req provider.ChatRequest, sink Sink) error {
	done := false
	err := p.ChatStream(ctx, cred, req, func(chunk provider.StreamChunk) {
		if chunk.Content != "" {
			sink(TokenChunk{Text: chunk.Content})
		}
		if chunk.Done && !done {
			done = true
			sink(StreamDone{})
		}
	})
	if err != nil {
		return err
	}
	if !done {
		sink(StreamDone{})
	}
	return nil
}

// isAuthRejection reports whether a stream failure is a 401/403-equivalent.
func isAuthRejection(err error) bool {
	var httpErr *provider.HTTPError
	return errors.As(err, &httpErr) && httpErr.IsAuthRejection()
}
