// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the durable credential map: one live credential per storage key.
//
// Implementations must make Save an overwrite (connecting twice to the same
// provider keeps only the newer credential) and Clear a no-op when the key
// is absent.
type Store interface {
	// Load returns the credential for a storage key, or ErrNotFound.
	Load(key string) (Credential, error)
	// Save persists a credential, replacing any existing one for its key.
	Save(cred Credential) error
	// Clear removes the credential for a storage key.
	Clear(key string) error
	// List returns the storage keys with a saved credential, sorted.
	List() ([]string, error)
}

// =============================================================================
// FILE STORE
// =============================================================================

// credentialsFileName is the store file under the relay config directory.
const credentialsFileName = "credentials.json"

// FileStore persists credentials as a single JSON object keyed by storage
// key. Secrets are sealed before hitting disk when a Sealer is attached.
//
// RELIABILITY: Every save rewrites the whole file atomically, so a crashed
// write never leaves a torn credential map behind.
type FileStore struct {
	mu     sync.Mutex
	path   string
	sealer *Sealer
}

// NewFileStore creates a store at the default location (~/.relay/credentials.json).
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, &StorageError{Op: "init", Failure: IOFailure, Err: err}
	}
	return NewFileStoreAt(filepath.Join(home, ".relay", credentialsFileName)), nil
}

// NewFileStoreAt creates a store backed by an explicit file path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// WithSealer attaches at-rest encryption for credential secrets.
func (s *FileStore) WithSealer(sealer *Sealer) *FileStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sealer = sealer
	return s
}

// Load returns the credential for a storage key.
func (s *FileStore) Load(key string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.read()
	if err != nil {
		return Credential{}, err
	}

	cred, ok := creds[key]
	if !ok {
		return Credential{}, ErrNotFound
	}

	if s.sealer != nil {
		if cred.Secret, err = s.sealer.Open(cred.Secret); err != nil {
			return Credential{}, &StorageError{Op: "load", Key: key, Failure: ParseFailure, Err: err}
		}
		if cred.RefreshToken, err = s.sealer.Open(cred.RefreshToken); err != nil {
			return Credential{}, &StorageError{Op: "load", Key: key, Failure: ParseFailure, Err: err}
		}
	}
	return cred, nil
}

// Save persists a credential, replacing any existing one for its key.
func (s *FileStore) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cred.StorageKey()

	creds, err := s.read()
	if err != nil {
		return err
	}

	if s.sealer != nil {
		if cred.Secret, err = s.sealer.Seal(cred.Secret); err != nil {
			return &StorageError{Op: "save", Key: key, Failure: IOFailure, Err: err}
		}
		if cred.RefreshToken != "" {
			if cred.RefreshToken, err = s.sealer.Seal(cred.RefreshToken); err != nil {
				return &StorageError{Op: "save", Key: key, Failure: IOFailure, Err: err}
			}
		}
	}

	creds[key] = cred
	return s.write("save", key, creds)
}

// Clear removes the credential for a storage key. Clearing an absent key
// succeeds without touching the file.
func (s *FileStore) Clear(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.read()
	if err != nil {
		return err
	}

	if _, ok := creds[key]; !ok {
		return nil
	}

	delete(creds, key)
	return s.write("clear", key, creds)
}

// List returns the storage keys with a saved credential, sorted.
func (s *FileStore) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.read()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(creds))
	for k := range creds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// read loads the credential map. A missing file is an empty store, not an
// error.
func (s *FileStore) read() (map[string]Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Credential{}, nil
		}
		return nil, &StorageError{Op: "load", Key: s.path, Failure: IOFailure, Err: err}
	}

	var creds map[string]Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, &StorageError{Op: "load", Key: s.path, Failure: ParseFailure, Err: err}
	}
	if creds == nil {
		creds = map[string]Credential{}
	}
	return creds, nil
}

// write persists the credential map atomically with private permissions.
func (s *FileStore) write(op, key string, creds map[string]Credential) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return &StorageError{Op: op, Key: key, Failure: ParseFailure, Err: err}
	}

	// SECURITY: 0600 file in a 0700 directory; credentials are never
	// world-readable even before sealing is enabled.
	if err := util.AtomicWriteFilePrivate(s.path, data, 0600); err != nil {
		return &StorageError{Op: op, Key: key, Failure: IOFailure, Err: err}
	}
	return nil
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore is an in-memory Store for tests and ephemeral sessions.
type MemoryStore struct {
	mu    sync.Mutex
	creds map[string]Credential
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: map[string]Credential{}}
}

// Load returns the credential for a storage key, or ErrNotFound.
func (m *MemoryStore) Load(key string) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.creds[key]
	if !ok {
		return Credential{}, ErrNotFound
	}
	return cred, nil
}

// Save persists a credential, replacing any existing one for its key.
func (m *MemoryStore) Save(cred Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.StorageKey()] = cred
	return nil
}

// Clear removes the credential for a storage key.
func (m *MemoryStore) Clear(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.creds, key)
	return nil
}

// List returns the storage keys with a saved credential, sorted.
func (m *MemoryStore) List() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.creds))
	for k := range m.creds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
