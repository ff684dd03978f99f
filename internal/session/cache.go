// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import "sync"

// =============================================================================
// VALIDATION CACHE
// =============================================================================

// ValidationCache records which storage keys have been confirmed usable
// this process lifetime. It is never written to durable storage: credentials
// can expire or be revoked out of band, so every run starts cold, but
// revalidating on every reconnect within one run would waste a network
// round trip on a still-good credential.
type ValidationCache struct {
	mu      sync.Mutex
	entries map[string]bool
}

// NewValidationCache returns an empty cache.
func NewValidationCache() *ValidationCache {
	return &ValidationCache{entries: make(map[string]bool)}
}

// IsValidated reports the cached state for a storage key. known is false
// when the key has never been checked this run.
func (c *ValidationCache) IsValidated(key string) (validated, known bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	validated, known = c.entries[key]
	return validated, known
}

// MarkValidated records a confirmed-usable credential.
func (c *ValidationCache) MarkValidated(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = true
}

// Invalidate removes the entry entirely. Removal, not false: the next check
// must re-validate from the network rather than assume the credential is
// unusable.
func (c *ValidationCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}
