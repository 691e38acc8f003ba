// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package link defines external-identity link types and the pending
// confirmation registry used while a player waits on an out-of-band code.
package link

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/samber/oops"
)

// Type identifies an external identity platform an account can be linked to.
type Type uint8

const (
	Telegram Type = iota
	Discord
	VK
	TOTP
)

// Types lists every link type, in declaration order.
var Types = []Type{Telegram, Discord, VK, TOTP}

func (t Type) String() string {
	switch t {
	case Telegram:
		return "TELEGRAM"
	case Discord:
		return "DISCORD"
	case VK:
		return "VK"
	case TOTP:
		return "TOTP"
	default:
		return "UNKNOWN"
	}
}

// ParseType resolves a link type from its configuration name.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, oops.Code("LINK_UNKNOWN_TYPE").
		With("name", s).
		Errorf("unknown link type %q", s)
}

// Transport delivers confirmation codes to a linked external identity.
// Implemented by the messenger integrations; the core only sends.
type Transport interface {
	// SendCode delivers code to the external user identified by target.
	SendCode(ctx context.Context, target, code string) error
}

// CodeLength is the number of digits in a confirmation code.
const CodeLength = 6

// GenerateCode produces a random numeric confirmation code.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for range CodeLength {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", oops.Code("LINK_CODE_FAILED").Wrap(err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n), nil
}
