// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows
// +build windows

package auth

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/jeranaias/relay-tui/internal/util"
)

// =============================================================================
// WINDOWS DPAPI KEY STORE
// =============================================================================

// windowsKeyStore wraps the sealing key with DPAPI before writing it to disk.
// DPAPI binds the ciphertext to the logged-in user's credentials, so the key
// file is useless when copied to another account or machine.
type windowsKeyStore struct {
	path string
}

// NewKeyStore returns the platform key store.
func NewKeyStore() KeyStore {
	return &windowsKeyStore{path: defaultKeyPath()}
}

// Store encrypts the sealing key with DPAPI and writes it to disk.
func (w *windowsKeyStore) Store(key []byte) error {
	sealed, err := dpapiProtect(key)
	if err != nil {
		return fmt.Errorf("DPAPI encryption failed: %w", err)
	}
	if err := util.AtomicWriteFilePrivate(w.path, sealed, 0600); err != nil {
		return fmt.Errorf("failed to write sealing key: %w", err)
	}
	return nil
}

// Retrieve reads the key file and unwraps it with DPAPI.
func (w *windowsKeyStore) Retrieve() ([]byte, error) {
	sealed, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sealing key: %w", err)
	}
	key, err := dpapiUnprotect(sealed)
	if err != nil {
		return nil, fmt.Errorf("DPAPI decryption failed: %w", err)
	}
	return key, nil
}

// Delete removes the key file.
func (w *windowsKeyStore) Delete() error {
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete sealing key: %w", err)
	}
	return nil
}

// Exists reports whether the key file exists.
func (w *windowsKeyStore) Exists() bool {
	_, err := os.Stat(w.path)
	return err == nil
}

// =============================================================================
// DPAPI CALLS
// =============================================================================

type dpapiBlob struct {
	cbData uint32
	pbData *byte
}

var (
	crypt32                = windows.NewLazySystemDLL("crypt32.dll")
	procCryptProtectData   = crypt32.NewProc("CryptProtectData")
	procCryptUnprotectData = crypt32.NewProc("CryptUnprotectData")
	kernel32               = windows.NewLazySystemDLL("kernel32.dll")
	procLocalFree          = kernel32.NewProc("LocalFree")
)

// CRYPTPROTECT_UI_FORBIDDEN suppresses interactive prompts.
const dpapiNoUI = 0x01

func dpapiProtect(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	in := dpapiBlob{cbData: uint32(len(data)), pbData: &data[0]}
	var out dpapiBlob

	ret, _, err := procCryptProtectData.Call(
		uintptr(unsafe.Pointer(&in)),
		0, 0, 0, 0,
		dpapiNoUI,
		uintptr(unsafe.Pointer(&out)),
	)
	if ret == 0 {
		return nil, fmt.Errorf("CryptProtectData failed: %w", err)
	}

	sealed := make([]byte, out.cbData)
	copy(sealed, unsafe.Slice(out.pbData, out.cbData))
	procLocalFree.Call(uintptr(unsafe.Pointer(out.pbData)))

	return sealed, nil
}

func dpapiUnprotect(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	in := dpapiBlob{cbData: uint32(len(data)), pbData: &data[0]}
	var out dpapiBlob

	ret, _, err := procCryptUnprotectData.Call(
		uintptr(unsafe.Pointer(&in)),
		0, 0, 0, 0,
		dpapiNoUI,
		uintptr(unsafe.Pointer(&out)),
	)
	if ret == 0 {
		return nil, fmt.Errorf("CryptUnprotectData failed: %w", err)
	}

	key := make([]byte, out.cbData)
	copy(key, unsafe.Slice(out.pbData, out.cbData))
	procLocalFree.Call(uintptr(unsafe.Pointer(out.pbData)))

	return key, nil
}
