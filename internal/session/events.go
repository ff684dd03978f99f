// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "github.com/jeranaias/relay-tui/internal/auth"

// =============================================================================
// STREAM EVENTS
// =============================================================================

// Event is the tagged stream surface exposed to the UI layer. The UI reacts
// only to these; internal retry and backoff state never leaks upward.
type Event interface {
	isEvent()
}

// TokenChunk carries one unit of streamed assistant output.
type TokenChunk struct {
	Text string
}

// StreamDone signals the stream completed normally.
type StreamDone struct{}

// AuthError is the terminal authorization failure after retry exhaustion.
// The owning session is disconnected; the user must reconnect.
type AuthError struct {
	Provider auth.ProviderID
	Message  string
}

// StreamError is a non-authorization stream failure, surfaced exactly once
// and never retried by the coordinator.
type StreamError struct {
	Message string
}

func (TokenChunk) isEvent()  {}
func (StreamDone) isEvent()  {}
func (AuthError) isEvent()   {}
func (StreamError) isEvent() {}

// Sink receives stream events in arrival order.
type Sink func(Event)
