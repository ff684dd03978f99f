// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	ks := &unixKeyStoreForTest{path: filepath.Join(t.TempDir(), "sealing.key")}
	sealer, err := NewSealer(ks)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	return sealer
}

func TestSealRoundTrip(t *testing.T) {
	sealer := newTestSealer(t)

	sealed, err := sealer.Seal("sk-ant-secret")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if !IsSealed(sealed) {
		t.Errorf("sealed value missing prefix: %q", sealed)
	}

	opened, err := sealer.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "sk-ant-secret" {
		t.Errorf("opened = %q", opened)
	}
}

func TestSealNonceVariance(t *testing.T) {
	sealer := newTestSealer(t)

	a, _ := sealer.Seal("same-plaintext")
	b, _ := sealer.Seal("same-plaintext")
	if a == b {
		t.Error("two seals of the same plaintext produced identical ciphertext")
	}
}

func TestOpenPassthrough(t *testing.T) {
	sealer := newTestSealer(t)

	// Pre-sealing stores carry plaintext secrets; those pass through.
	got, err := sealer.Open("plain-api-key")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got != "plain-api-key" {
		t.Errorf("got %q", got)
	}
}

func TestOpenCorrupt(t *testing.T) {
	sealer := newTestSealer(t)

	if _, err := sealer.Open(SealedPrefix + "!!!not-base64!!!"); !errors.Is(err, ErrSealedCorrupt) {
		t.Errorf("err = %v, want ErrSealedCorrupt", err)
	}
	if _, err := sealer.Open(SealedPrefix + "AAAA"); !errors.Is(err, ErrSealedCorrupt) {
		t.Errorf("short ciphertext err = %v, want ErrSealedCorrupt", err)
	}
}

func TestOpenWrongKey(t *testing.T) {
	a := newTestSealer(t)
	b := newTestSealer(t)

	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, err := b.Open(sealed); !errors.Is(err, ErrUnsealFailed) {
		t.Errorf("err = %v, want ErrUnsealFailed", err)
	}
}

func TestSealerKeyPersistence(t *testing.T) {
	ks := &unixKeyStoreForTest{path: filepath.Join(t.TempDir(), "sealing.key")}

	first, err := NewSealer(ks)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	sealed, err := first.Seal("secret")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// A second sealer over the same key store unseals the first's output.
	second, err := NewSealer(ks)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	opened, err := second.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "secret" {
		t.Errorf("opened = %q", opened)
	}
}

func TestPasswordDerivedSealer(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}

	a, err := NewSealerFromPassword("hunter2", salt)
	if err != nil {
		t.Fatalf("NewSealerFromPassword failed: %v", err)
	}
	sealed, err := a.Seal("secret")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	// Same password and salt derive the same key.
	b, err := NewSealerFromPassword("hunter2", salt)
	if err != nil {
		t.Fatalf("NewSealerFromPassword failed: %v", err)
	}
	opened, err := b.Open(sealed)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "secret" {
		t.Errorf("opened = %q", opened)
	}

	// Wrong password fails authentication.
	c, err := NewSealerFromPassword("wrong", salt)
	if err != nil {
		t.Fatalf("NewSealerFromPassword failed: %v", err)
	}
	if _, err := c.Open(sealed); !errors.Is(err, ErrUnsealFailed) {
		t.Errorf("err = %v, want ErrUnsealFailed", err)
	}
}
