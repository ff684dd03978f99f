// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for relay: atomic file writes
// used by the credential store and config, and rune/width-safe string
// handling used by the terminal UI.
package util
