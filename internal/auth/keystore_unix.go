// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build !windows
// +build !windows

package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// UNIX KEY STORE
// =============================================================================

// unixKeyStore stores the sealing key in a permission-restricted file.
// SECURITY: 0600 file inside a 0700 directory; both are verified on read so
// a loosened mode is caught before the key is used.
type unixKeyStore struct {
	path string
}

// NewKeyStore returns the platform key store.
func NewKeyStore() KeyStore {
	return &unixKeyStore{path: defaultKeyPath()}
}

// Store writes the sealing key with restricted permissions.
func (u *unixKeyStore) Store(key []byte) error {
	if err := util.AtomicWriteFilePrivate(u.path, key, 0600); err != nil {
		return fmt.Errorf("failed to write sealing key: %w", err)
	}
	return nil
}

// Retrieve reads the sealing key, refusing if permissions have been loosened.
func (u *unixKeyStore) Retrieve() ([]byte, error) {
	dir := filepath.Dir(u.path)
	if err := checkPrivate(dir, "key directory"); err != nil {
		return nil, err
	}
	if err := checkPrivate(u.path, "key file"); err != nil {
		return nil, err
	}

	key, err := os.ReadFile(u.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sealing key: %w", err)
	}
	return key, nil
}

// Delete overwrites the key file with zeros, then removes it.
func (u *unixKeyStore) Delete() error {
	info, err := os.Stat(u.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat sealing key: %w", err)
	}

	if size := info.Size(); size > 0 {
		zeros := make([]byte, size)
		if f, err := os.OpenFile(u.path, os.O_WRONLY, 0600); err == nil {
			_, _ = f.Write(zeros)
			_ = f.Sync()
			_ = f.Close()
		}
	}

	if err := os.Remove(u.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete sealing key: %w", err)
	}
	return nil
}

// Exists reports whether the key file exists.
func (u *unixKeyStore) Exists() bool {
	_, err := os.Stat(u.path)
	return err == nil
}

// checkPrivate fails when a path grants any group/world permissions.
func checkPrivate(path, what string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", what, err)
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return fmt.Errorf("%s has insecure permissions (%o); fix with chmod and retry", what, mode)
	}
	return nil
}
