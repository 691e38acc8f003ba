// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package link

import (
	"crypto/subtle"
	"sync"
	"time"
)

// Entry is one pending external confirmation: the player has been sent a
// code over the linked messenger and the pipeline is waiting for them to
// enter it.
type Entry struct {
	PlayerID string
	Type     Type
	Code     string
	IssuedAt time.Time
}

// EntryBucket tracks pending confirmations keyed by player identifier.
// Entries exist only while a link step is waiting; they are dropped on
// confirmation, disconnect, or timeout.
type EntryBucket struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewEntryBucket creates an empty bucket.
func NewEntryBucket() *EntryBucket {
	return &EntryBucket{entries: make(map[string][]Entry)}
}

// Add records a pending confirmation. A second entry for the same
// (player, type) pair replaces the first; re-sending a code must not
// leave the old one valid.
func (b *EntryBucket) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.entries[e.PlayerID]
	for i, old := range existing {
		if old.Type == e.Type {
			existing[i] = e
			return
		}
	}
	b.entries[e.PlayerID] = append(existing, e)
}

// For returns a copy of the pending entries for a player.
func (b *EntryBucket) For(playerID string) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := b.entries[playerID]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Confirm checks code against the player's pending entry of the given
// type. On match the entry is consumed. Comparison is constant-time.
func (b *EntryBucket) Confirm(playerID string, t Type, code string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.entries[playerID]
	for i, e := range entries {
		if e.Type != t {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(e.Code), []byte(code)) != 1 {
			return false
		}
		b.entries[playerID] = append(entries[:i], entries[i+1:]...)
		if len(b.entries[playerID]) == 0 {
			delete(b.entries, playerID)
		}
		return true
	}
	return false
}

// Drop removes every pending entry for a player. Idempotent.
func (b *EntryBucket) Drop(playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.entries, playerID)
}
