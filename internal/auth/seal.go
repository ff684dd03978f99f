// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// SealedPrefix marks a stored secret as sealed (format: ENC:base64(nonce|ciphertext|tag)).
const SealedPrefix = "ENC:"

// nonceSize is the AES-GCM nonce size (96 bits).
const nonceSize = 12

// keySize is the AES-256 key size.
const keySize = 32

// saltSize is the salt size for password-based key derivation.
const saltSize = 32

// pbkdf2Iterations follows the OWASP recommendation for PBKDF2-SHA-256.
const pbkdf2Iterations = 600000

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSealedCorrupt indicates a sealed value could not be decoded.
	ErrSealedCorrupt = errors.New("sealed value corrupt")
	// ErrUnsealFailed indicates authentication failed (wrong key or tampering).
	ErrUnsealFailed = errors.New("unseal failed: authentication tag mismatch")
)

// =============================================================================
// SEALER
// =============================================================================

// Sealer encrypts credential secrets at rest with AES-256-GCM. The sealing
// key comes from the platform KeyStore and is generated on first use.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer loads the sealing key from the key store, generating and
// persisting a fresh one when none exists.
func NewSealer(ks KeyStore) (*Sealer, error) {
	var key []byte
	var err error

	if ks.Exists() {
		key, err = ks.Retrieve()
		if err != nil {
			return nil, err
		}
	} else {
		key = make([]byte, keySize)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("failed to generate sealing key: %w", err)
		}
		if err := ks.Store(key); err != nil {
			return nil, err
		}
	}
	// SECURITY: Zero key material to prevent memory disclosure.
	defer zeroBytes(key)

	return newSealerWithKey(key)
}

// NewSealerFromPassword derives the sealing key from a password and salt
// using PBKDF2-SHA-256, for stores protected by a passphrase instead of the
// platform key store.
func NewSealerFromPassword(password string, salt []byte) (*Sealer, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keySize, sha256.New)
	defer zeroBytes(key)
	return newSealerWithKey(key)
}

// GenerateSalt returns a random salt for password-based derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

func newSealerWithKey(key []byte) (*Sealer, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts a secret and returns it with the sealed prefix.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed secret. Unsealed input passes through unchanged so
// a store written before sealing was enabled stays readable.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSealedCorrupt, err)
	}
	if len(data) < nonceSize {
		return "", ErrSealedCorrupt
	}

	plaintext, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", ErrUnsealFailed
	}
	return string(plaintext), nil
}

// IsSealed reports whether a value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}

// zeroBytes overwrites sensitive byte slices.
// SECURITY: Zero key material to prevent memory disclosure via crash dumps.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
