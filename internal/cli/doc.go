// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the relay command line: connect/disconnect/status
// for credential management and a plain-mode chat REPL for terminals where
// the full-screen UI is unwanted or unavailable.
package cli
