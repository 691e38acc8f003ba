// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package crypto provides pluggable password hashing strategies.
package crypto

import (
	"sort"
	"sync"

	"github.com/samber/oops"
)

// HashedPassword is a stored credential: the encoded hash, an optional
// out-of-band salt (legacy schemes only; modern providers embed the salt
// in the encoded form), and the identifier of the provider that produced it.
type HashedPassword struct {
	Hash       string
	Salt       string
	ProviderID string
}

// Provider is a named password hashing strategy. Implementations must be
// safe for concurrent use: Hash and Matches hold no shared mutable state.
type Provider interface {
	// ID returns the stable identifier the provider is registered under.
	ID() string

	// Hash derives a stored credential from a raw password.
	Hash(raw string) (HashedPassword, error)

	// Matches reports whether raw verifies against the stored credential.
	// It never panics for well-formed stored hashes; malformed hashes
	// simply fail to match.
	Matches(raw string, stored HashedPassword) bool
}

// Registry holds providers keyed by identifier.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider. Identifiers are unique; registering a second
// provider under an already-taken identifier is an error.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[p.ID()]; exists {
		return oops.Code("CRYPTO_DUPLICATE_PROVIDER").
			With("id", p.ID()).
			Errorf("crypto provider %q already registered", p.ID())
	}
	r.providers[p.ID()] = p
	return nil
}

// Find returns the provider registered under id.
func (r *Registry) Find(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[id]
	return p, ok
}

// Resolve returns the provider registered under id, or an error naming the
// known identifiers. Used on configuration-load paths where an unknown
// provider is fatal.
func (r *Registry) Resolve(id string) (Provider, error) {
	if p, ok := r.Find(id); ok {
		return p, nil
	}
	return nil, oops.Code("CRYPTO_UNKNOWN_PROVIDER").
		With("id", id).
		With("known", r.IDs()).
		Errorf("unknown crypto provider %q", id)
}

// IDs returns the sorted identifiers of all registered providers.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry returns a registry with every built-in provider.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, p := range []Provider{
		NewArgon2idProvider(),
		NewScryptProvider(),
		NewBcryptProvider(),
		NewSHA256Provider(),
		NewSHA512Provider(),
		NewMD5Provider(),
	} {
		// Built-in identifiers are distinct constants; registration
		// cannot collide here.
		_ = r.Register(p) //nolint:errcheck
	}
	return r
}
