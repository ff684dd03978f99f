// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/relay-tui/internal/session"
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches tokens for flicker-free rendering. Tokens arrive
// from the stream goroutine far faster than the terminal should repaint;
// the buffer accumulates them and releases batches at a capped frame rate.
//
// Thread-safety: writes happen in the stream goroutine while flushes happen
// in the Bubble Tea loop.
type StreamingBuffer struct {
	mu         sync.Mutex
	buffer     strings.Builder
	tokenCount int
	lastFlush  time.Time

	batchSize int
	minFlush  time.Duration
}

const (
	defaultBatchSize = 15
	// ~30fps repaint cap.
	defaultMinFlush = 33 * time.Millisecond
)

// NewStreamingBuffer creates a buffer with default batching.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize: defaultBatchSize,
		minFlush:  defaultMinFlush,
		lastFlush: time.Now(),
	}
}

// Write adds a token to the buffer. Called from the stream goroutine.
func (sb *StreamingBuffer) Write(token string) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.WriteString(token)
	sb.tokenCount++
}

// Flush returns accumulated content when a batch or time threshold has been
// reached, or ("", false) when nothing should render yet.
func (sb *StreamingBuffer) Flush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	if sb.tokenCount < sb.batchSize && time.Since(sb.lastFlush) < sb.minFlush {
		return "", false
	}
	return sb.drainLocked(), true
}

// ForceFlush immediately returns all buffered content regardless of
// thresholds. Use when a stream completes.
func (sb *StreamingBuffer) ForceFlush() (string, bool) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.buffer.Len() == 0 {
		return "", false
	}
	return sb.drainLocked(), true
}

// Reset clears the buffer without flushing. Use when cancelling a stream.
func (sb *StreamingBuffer) Reset() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
}

// Pending returns the number of buffered tokens.
func (sb *StreamingBuffer) Pending() int {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.tokenCount
}

func (sb *StreamingBuffer) drainLocked() string {
	content := sb.buffer.String()
	sb.buffer.Reset()
	sb.tokenCount = 0
	sb.lastFlush = time.Now()
	return content
}

// =============================================================================
// STREAM MESSAGES AND COMMANDS
// =============================================================================

// streamEventMsg carries one session event into the Bubble Tea loop.
type streamEventMsg struct {
	event session.Event
}

// streamFinishedMsg signals the stream goroutine has returned.
type streamFinishedMsg struct {
	err error
}

// streamTickMsg drives buffer flushes during streaming.
type streamTickMsg struct {
	time time.Time
}

// validatedMsg carries the result of an async credential check.
type validatedMsg struct {
	err error
}

// waitForEvent blocks on the event channel. A closed channel means the
// stream goroutine finished; its error is read from done.
func waitForEvent(events <-chan session.Event, done <-chan error) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamFinishedMsg{err: <-done}
		}
		return streamEventMsg{event: ev}
	}
}

// streamTickCmd schedules the next buffer flush at the repaint cap.
func streamTickCmd() tea.Cmd {
	return tea.Tick(defaultMinFlush, func(t time.Time) tea.Msg {
		return streamTickMsg{time: t}
	})
}
