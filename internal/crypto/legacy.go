// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package crypto

import (
	"crypto/md5"  //nolint:gosec // migration compatibility with legacy account databases
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
)

// digestProvider implements the unsalted legacy digest schemes kept for
// migration compatibility. New registrations never use these; accounts
// imported from older databases are re-hashed on their next successful
// login.
type digestProvider struct {
	id  string
	sum func() hash.Hash
}

// NewSHA256Provider creates the legacy unsalted SHA-256 provider.
func NewSHA256Provider() Provider { return &digestProvider{id: "SHA256", sum: sha256.New} }

// NewSHA512Provider creates the legacy unsalted SHA-512 provider.
func NewSHA512Provider() Provider { return &digestProvider{id: "SHA512", sum: sha512.New} }

// NewMD5Provider creates the legacy unsalted MD5 provider.
func NewMD5Provider() Provider { return &digestProvider{id: "MD5", sum: md5.New} }

func (p *digestProvider) ID() string { return p.id }

func (p *digestProvider) Hash(raw string) (HashedPassword, error) {
	if raw == "" {
		return HashedPassword{}, ErrEmptyPassword
	}
	return HashedPassword{Hash: p.digest(raw), ProviderID: p.id}, nil
}

func (p *digestProvider) Matches(raw string, stored HashedPassword) bool {
	computed := p.digest(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored.Hash)) == 1
}

func (p *digestProvider) digest(raw string) string {
	h := p.sum()
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}
