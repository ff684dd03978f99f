// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"os"
	"path/filepath"
)

// =============================================================================
// KEYSTORE INTERFACE
// =============================================================================

// KeyStore stores the sealing key that encrypts credentials at rest.
// Implementations are platform-specific:
// - Windows: DPAPI, bound to the logged-in user
// - Unix: permission-restricted key file
type KeyStore interface {
	// Store persists the sealing key.
	Store(key []byte) error
	// Retrieve loads the sealing key.
	Retrieve() ([]byte, error)
	// Delete removes the sealing key.
	Delete() error
	// Exists reports whether a sealing key is stored.
	Exists() bool
}

// defaultKeyPath returns the sealing key location (~/.relay/sealing.key).
func defaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".relay", "sealing.key")
	}
	return filepath.Join(home, ".relay", "sealing.key")
}
