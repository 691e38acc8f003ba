// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package auth contains the authentication domain core: the account entity,
// the step abstraction with its factory registry, the authenticating-account
// bucket, and the progression engine that moves an account through the
// configured step pipeline.
//
// # Lifecycle
//
// A connecting player either loads an existing Account from the store or
// gets a fresh unregistered one. While mid-authentication the account is
// tracked by the Bucket; the Progression engine owns every mutation of the
// account's current step and step index. On pipeline completion, disconnect,
// or timeout the bucket entry is removed and the account object is released.
//
// # Concurrency
//
// The bucket is safe for concurrent use. The progression engine serializes
// transitions per player identity with a keyed lock; transitions for
// different accounts run concurrently.
package auth
