// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/playgate/playgate/internal/bus"
)

// AuthState binds an authenticating account to the wall-clock instant it
// entered the pipeline, plus the IP it connected from.
type AuthState struct {
	Account   *Account
	IP        string
	EnteredAt time.Time
}

// Bucket is the registry of accounts currently mid-authentication, keyed
// by player identity. It is the single source of truth for "is this player
// going through authentication"; every gating decision consults it.
type Bucket struct {
	mu     sync.RWMutex
	states map[string]*AuthState
	bus    *bus.Bus
	clock  func() time.Time
}

// NewBucket creates an empty bucket publishing on b.
func NewBucket(b *bus.Bus) *Bucket {
	return &Bucket{
		states: make(map[string]*AuthState),
		bus:    b,
		clock:  time.Now,
	}
}

// Add registers an account as authenticating. Insert-if-absent: when an
// entry for the same player identity already exists the call is a no-op
// and false is returned, leaving the original enter timestamp intact.
func (b *Bucket) Add(account *Account, ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.states[account.PlayerID]; exists {
		return false
	}
	b.states[account.PlayerID] = &AuthState{
		Account:   account,
		IP:        ip,
		EnteredAt: b.clock(),
	}
	return true
}

// Remove clears a player's authenticating state. When an entry existed, a
// StateClearedEvent carrying the removed account is published; removing an
// absent identity is a silent no-op. The entry is claimed and deleted in
// one critical section, so concurrent removers race for a single claim:
// exactly one publishes, and a fresh entry re-added for the same identity
// mid-publish is never clobbered.
func (b *Bucket) Remove(ctx context.Context, playerID string) {
	b.mu.Lock()
	state, exists := b.states[playerID]
	if exists {
		delete(b.states, playerID)
	}
	b.mu.Unlock()

	if !exists {
		return
	}

	b.bus.Publish(ctx, &StateClearedEvent{Account: state.Account, PlayerID: playerID})
}

// IsAuthenticating reports whether the player identity is mid-pipeline.
func (b *Bucket) IsAuthenticating(playerID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.states[playerID]
	return ok
}

// Account returns the authenticating account for a player identity.
func (b *Bucket) Account(playerID string) (*Account, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state, ok := b.states[playerID]
	if !ok {
		return nil, false
	}
	return state.Account, true
}

// EnteredAtOrZero returns the enter timestamp, or the zero time when the
// identity is not tracked. Timeout math can subtract without a presence
// check.
func (b *Bucket) EnteredAtOrZero(playerID string) time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if state, ok := b.states[playerID]; ok {
		return state.EnteredAt
	}
	return time.Time{}
}

// Identifiers returns a snapshot of tracked player identities, safe to
// iterate while entries are concurrently removed.
func (b *Bucket) Identifiers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.states))
	for id := range b.states {
		ids = append(ids, id)
	}
	return ids
}

// CountByIP returns how many tracked entries connected from ip.
func (b *Bucket) CountByIP(ip string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, state := range b.states {
		if state.IP == ip {
			n++
		}
	}
	return n
}

// Len returns the number of tracked entries.
func (b *Bucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.states)
}
