// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data structures shared across
// relay: messages with streaming accumulation, conversations with token
// tracking and pruning, and the provider-neutral wire format.
package model
