// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth

import "context"

// AccountRepository is the persistent account store contract. Absence is
// signalled by an error wrapping ErrNotFound, never by (nil, nil); callers
// must treat store failure distinctly from absence.
type AccountRepository interface {
	// GetByPlayerID retrieves an account by identity key.
	GetByPlayerID(ctx context.Context, playerID string) (*Account, error)

	// Create persists a new account and fills in its DatabaseID.
	Create(ctx context.Context, account *Account) error

	// SaveOrUpdate flushes the account's persistent fields.
	SaveOrUpdate(ctx context.Context, account *Account) error

	// UpdateLastQuit records the quit timestamp without a full save.
	UpdateLastQuit(ctx context.Context, playerID string) error

	// AddLink persists a new external-identity link.
	AddLink(ctx context.Context, account *Account, l LinkUser) error

	// RemoveLink deletes an external-identity link.
	RemoveLink(ctx context.Context, account *Account, l LinkUser) error
}
