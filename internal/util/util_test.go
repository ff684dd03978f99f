// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "data.json")

	if err := AtomicWriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", data, "hello")
	}
}

func TestAtomicWriteFile_Overwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")

	if err := AtomicWriteFile(path, []byte("old"), 0644); err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if err := AtomicWriteFile(path, []byte("new"), 0644); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("content = %q, want %q", data, "new")
	}

	// No temp file left behind
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected 1 entry in dir, got %d", len(entries))
	}
}

func TestAtomicWriteFilePrivate_Permissions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets", "cred.json")

	if err := AtomicWriteFilePrivate(path, []byte("secret"), 0600); err != nil {
		t.Fatalf("AtomicWriteFilePrivate failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		t.Errorf("file has group/world permissions: %o", perm)
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"héllo wörld", 8, "héllo..."},
		{"ab", 1, "a"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := TruncateRunes(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestTruncateWidth_CJK(t *testing.T) {
	// Each CJK rune occupies two cells.
	s := "日本語テキスト"
	got := TruncateWidth(s, 6)
	if StringWidth(got) > 6 {
		t.Errorf("TruncateWidth produced width %d, want <= 6", StringWidth(got))
	}
}

func TestIntToString(t *testing.T) {
	if got := IntToString(-42); got != "-42" {
		t.Errorf("IntToString(-42) = %q", got)
	}
	if got := IntToString(0); got != "0" {
		t.Errorf("IntToString(0) = %q", got)
	}
}
