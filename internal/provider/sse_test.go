// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"io"
	"strings"
	"testing"
)

func TestSSEReaderBasic(t *testing.T) {
	input := "data: hello\n\ndata: world\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}

	_, data, err = reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if string(data) != "world" {
		t.Errorf("data = %q", data)
	}

	_, _, err = reader.ReadEvent()
	if err != io.EOF {
		t.Errorf("err = %v, want EOF", err)
	}
}

func TestSSEReaderEventType(t *testing.T) {
	input := "event: message_stop\ndata: {}\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	eventType, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if eventType != "message_stop" {
		t.Errorf("event type = %q", eventType)
	}
	if string(data) != "{}" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReaderMultilineData(t *testing.T) {
	input := "data: line1\ndata: line2\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if string(data) != "line1\nline2" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReaderIgnoresComments(t *testing.T) {
	input := ": keepalive\nid: 42\nretry: 1000\ndata: payload\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReaderCRLF(t *testing.T) {
	input := "data: payload\r\n\r\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReaderDataAtEOF(t *testing.T) {
	// Stream cut mid-event: the pending data is still delivered.
	input := "data: trailing"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent failed: %v", err)
	}
	if string(data) != "trailing" {
		t.Errorf("data = %q", data)
	}
}
