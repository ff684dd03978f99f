// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages connection state for one relay run: which
// credentials have been confirmed usable, how a live chat stream survives
// transient authorization failures, and when a connection is declared dead.
//
// The moving parts:
//
//   - ValidationCache: process-lifetime record of confirmed credentials.
//     Never persisted; every run starts cold.
//   - Validator: classifies a cheap authenticated probe as Valid, Invalid,
//     or Inconclusive.
//   - Coordinator: wraps one logical chat stream, retrying authorization
//     failures with bounded backoff and tearing the session down when
//     retries are exhausted.
//   - Session: the per-run context object tying cache, store, and
//     coordinator together for the UI layer.
//
// The UI observes only Event values; credentials and retry state never
// cross that boundary.
package session
