// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package crypto

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is above the library default; adaptive schemes should track
// hardware, and the default has not moved in years.
const bcryptCost = 12

// BcryptProvider is the salted adaptive provider. The salt is embedded in
// the encoded hash, so HashedPassword.Salt stays empty.
type BcryptProvider struct{}

// NewBcryptProvider creates the bcrypt provider.
func NewBcryptProvider() *BcryptProvider {
	return &BcryptProvider{}
}

// ID returns the registry identifier.
func (p *BcryptProvider) ID() string { return "BCRYPT" }

// Hash derives a bcrypt credential from a raw password.
func (p *BcryptProvider) Hash(raw string) (HashedPassword, error) {
	if raw == "" {
		return HashedPassword{}, ErrEmptyPassword
	}

	encoded, err := bcrypt.GenerateFromPassword([]byte(raw), bcryptCost)
	if err != nil {
		return HashedPassword{}, oops.Code("CRYPTO_HASH_FAILED").Wrap(err)
	}
	return HashedPassword{Hash: string(encoded), ProviderID: p.ID()}, nil
}

// Matches reports whether raw verifies against the stored credential.
func (p *BcryptProvider) Matches(raw string, stored HashedPassword) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored.Hash), []byte(raw)) == nil
}
