// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/scrypt"
)

// Memory-hard KDF parameters (OWASP-recommended for argon2id; interactive
// parameters for scrypt).
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	kdfSaltLen = 16
	kdfKeyLen  = 32
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("CRYPTO_EMPTY_PASSWORD").Errorf("password cannot be empty")

// kdfProvider is the shared template for memory-hard providers. Each scheme
// supplies two strategies: buildHash encodes a fresh (salt, password) pair
// into a PHC-style string, and buildVerifier parses a stored string into a
// closure that derives and compares a candidate password.
type kdfProvider struct {
	id            string
	buildHash     func(raw string, salt []byte) (string, error)
	buildVerifier func(encoded string) (func(raw string) bool, error)
}

func (p *kdfProvider) ID() string { return p.id }

func (p *kdfProvider) Hash(raw string) (HashedPassword, error) {
	if raw == "" {
		return HashedPassword{}, ErrEmptyPassword
	}

	salt := make([]byte, kdfSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return HashedPassword{}, oops.Code("CRYPTO_SALT_FAILED").Wrap(err)
	}

	encoded, err := p.buildHash(raw, salt)
	if err != nil {
		return HashedPassword{}, err
	}
	return HashedPassword{Hash: encoded, ProviderID: p.id}, nil
}

func (p *kdfProvider) Matches(raw string, stored HashedPassword) bool {
	verify, err := p.buildVerifier(stored.Hash)
	if err != nil {
		return false
	}
	return verify(raw)
}

// NewArgon2idProvider creates the argon2id provider. Hashes use the PHC
// string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>.
func NewArgon2idProvider() Provider {
	return &kdfProvider{
		id: "ARGON2ID",
		buildHash: func(raw string, salt []byte) (string, error) {
			key := argon2.IDKey([]byte(raw), salt, argon2Time, argon2Memory, argon2Threads, kdfKeyLen)
			return fmt.Sprintf(
				"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
				argon2.Version,
				argon2Memory,
				argon2Time,
				argon2Threads,
				base64.RawStdEncoding.EncodeToString(salt),
				base64.RawStdEncoding.EncodeToString(key),
			), nil
		},
		buildVerifier: buildArgon2idVerifier,
	}
}

func buildArgon2idVerifier(encoded string) (func(raw string) bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Errorf("not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Errorf("threads value %d out of range", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Wrap(err)
	}
	if len(expected) == 0 || len(expected) > 1<<10 {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Errorf("invalid key length: %d", len(expected))
	}

	return func(raw string) bool {
		computed := argon2.IDKey([]byte(raw), salt, time, memory, uint8(threads), uint32(len(expected)))
		return subtle.ConstantTimeCompare(computed, expected) == 1
	}, nil
}

// NewScryptProvider creates the scrypt provider. Hashes use a PHC-style
// format: $scrypt$ln=15,r=8,p=1$<salt>$<hash>.
func NewScryptProvider() Provider {
	return &kdfProvider{
		id: "SCRYPT",
		buildHash: func(raw string, salt []byte) (string, error) {
			key, err := scrypt.Key([]byte(raw), salt, scryptN, scryptR, scryptP, kdfKeyLen)
			if err != nil {
				return "", oops.Code("CRYPTO_HASH_FAILED").Wrap(err)
			}
			return fmt.Sprintf(
				"$scrypt$ln=%d,r=%d,p=%d$%s$%s",
				15,
				scryptR,
				scryptP,
				base64.RawStdEncoding.EncodeToString(salt),
				base64.RawStdEncoding.EncodeToString(key),
			), nil
		},
		buildVerifier: buildScryptVerifier,
	}
}

func buildScryptVerifier(encoded string) (func(raw string) bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[1] != "scrypt" {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Errorf("not a scrypt hash")
	}

	var ln, r, pp int
	if _, err := fmt.Sscanf(parts[2], "ln=%d,r=%d,p=%d", &ln, &r, &pp); err != nil {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Wrap(err)
	}
	if ln <= 0 || ln > 24 || r <= 0 || pp <= 0 {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Errorf("scrypt parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Wrap(err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Wrap(err)
	}
	if len(expected) == 0 || len(expected) > 1<<10 {
		return nil, oops.Code("CRYPTO_INVALID_HASH").Errorf("invalid key length: %d", len(expected))
	}

	return func(raw string) bool {
		computed, err := scrypt.Key([]byte(raw), salt, 1<<ln, r, pp, len(expected))
		if err != nil {
			return false
		}
		return subtle.ConstantTimeCompare(computed, expected) == 1
	}, nil
}
