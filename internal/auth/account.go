// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth

import (
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/link"
	"github.com/playgate/playgate/internal/platform"
)

// IdentifierKind selects how a player identity is derived.
type IdentifierKind uint8

const (
	// ByName keys accounts by lowercased nickname.
	ByName IdentifierKind = iota
	// ByUUID keys accounts by the platform's stable unique id.
	ByUUID
)

func (k IdentifierKind) String() string {
	if k == ByUUID {
		return "uuid"
	}
	return "name"
}

// LinkUser associates an account with one external identity. At most one
// link exists per (account, type) pair.
type LinkUser struct {
	Type       link.Type
	ExternalID string
	LinkedAt   time.Time
}

// Account is one player's persistent identity and credential state, plus
// the transient authentication position while the player is mid-pipeline.
type Account struct {
	// DatabaseID is the store's surrogate key. Zero until first persisted.
	DatabaseID int64

	// PlayerID is the identity key derived from Kind: lowercased Name
	// for ByName, UniqueID for ByUUID.
	PlayerID string
	Kind     IdentifierKind

	Name     string
	UniqueID string

	// PasswordHash is nil for unregistered accounts.
	PasswordHash *crypto.HashedPassword

	// TOTPSecret is the enrolled TOTP secret; empty when not enrolled.
	TOTPSecret string

	LastIP             string
	LastQuitAt         time.Time
	LastSessionStartAt time.Time

	// StepIndex is the persisted position in the configured pipeline.
	StepIndex int

	// CurrentStep is transient, never persisted, and mutated only by
	// the progression engine. Defaults to the null step.
	CurrentStep Step

	// Player is the live connection handle, transient, set by the gate
	// while the player is online.
	Player platform.Player

	// Authenticated is set once a credential check passed during this
	// connection. Transient; lets a freshly registered player bypass the
	// login step in the same pipeline run.
	Authenticated bool

	Links []LinkUser
}

// DeriveID computes the identity key for a name/uuid pair under a kind.
func DeriveID(kind IdentifierKind, name, uniqueID string) string {
	if kind == ByUUID {
		return uniqueID
	}
	return strings.ToLower(name)
}

// NewAccount creates an in-memory unregistered account.
func NewAccount(kind IdentifierKind, name, uniqueID string) *Account {
	return &Account{
		PlayerID:    DeriveID(kind, name, uniqueID),
		Kind:        kind,
		Name:        name,
		UniqueID:    uniqueID,
		CurrentStep: NullStep{},
	}
}

// IsRegistered reports whether the account has a password hash. This is
// the registration invariant: registered iff hash is non-nil.
func (a *Account) IsRegistered() bool {
	return a.PasswordHash != nil
}

// SetPassword replaces the stored credential.
func (a *Account) SetPassword(hp crypto.HashedPassword) {
	a.PasswordHash = &hp
}

// ClearPassword removes the credential, returning the account to the
// unregistered state.
func (a *Account) ClearPassword() {
	a.PasswordHash = nil
}

// CryptoProviderID returns the identifier of the provider that produced
// the stored hash, or empty for unregistered accounts.
func (a *Account) CryptoProviderID() string {
	if a.PasswordHash == nil {
		return ""
	}
	return a.PasswordHash.ProviderID
}

// IsSessionActive reports whether the account quit recently enough, within
// durability, for a same-IP reconnect to skip re-authentication.
func (a *Account) IsSessionActive(durability time.Duration, now time.Time) bool {
	if durability <= 0 || a.LastQuitAt.IsZero() {
		return false
	}
	if a.LastSessionStartAt.IsZero() || a.LastQuitAt.Before(a.LastSessionStartAt) {
		// Quit before the session ever started means the player never
		// completed authentication in that session.
		return false
	}
	return now.Sub(a.LastQuitAt) <= durability
}

// Link returns the account's link of the given type.
func (a *Account) Link(t link.Type) (LinkUser, bool) {
	for _, l := range a.Links {
		if l.Type == t {
			return l, true
		}
	}
	return LinkUser{}, false
}

// HasLink reports whether the account is linked to the given platform.
func (a *Account) HasLink(t link.Type) bool {
	_, ok := a.Link(t)
	return ok
}

// AddLink attaches an external identity. A second link of the same type
// is rejected.
func (a *Account) AddLink(l LinkUser) error {
	if a.HasLink(l.Type) {
		return oops.Code("AUTH_DUPLICATE_LINK").
			With("player", a.PlayerID).
			With("type", l.Type.String()).
			Errorf("account already linked to %s", l.Type)
	}
	a.Links = append(a.Links, l)
	return nil
}

// RemoveLink detaches the external identity of the given type. Idempotent.
func (a *Account) RemoveLink(t link.Type) {
	for i, l := range a.Links {
		if l.Type == t {
			a.Links = append(a.Links[:i], a.Links[i+1:]...)
			return
		}
	}
}
