// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package authtest provides in-memory test doubles for the auth domain.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/playgate/playgate/internal/auth"
)

// Repo is an in-memory auth.AccountRepository. A non-nil Err makes every
// operation fail with it, for store-failure paths.
type Repo struct {
	mu       sync.Mutex
	accounts map[string]*auth.Account
	nextID   int64

	Err error

	// Saves counts SaveOrUpdate calls.
	Saves int
	// QuitUpdates counts UpdateLastQuit calls.
	QuitUpdates int
}

// NewRepo creates an empty repository.
func NewRepo() *Repo {
	return &Repo{accounts: make(map[string]*auth.Account), nextID: 1}
}

// Seed stores an account directly, bypassing error injection.
func (r *Repo) Seed(account *auth.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.DatabaseID == 0 {
		account.DatabaseID = r.nextID
		r.nextID++
	}
	r.accounts[account.PlayerID] = account
}

func (r *Repo) GetByPlayerID(_ context.Context, playerID string) (*auth.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return nil, r.Err
	}
	account, ok := r.accounts[playerID]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("player", playerID).
			Wrap(auth.ErrNotFound)
	}
	return account, nil
}

func (r *Repo) Create(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	account.DatabaseID = r.nextID
	r.nextID++
	r.accounts[account.PlayerID] = account
	return nil
}

func (r *Repo) SaveOrUpdate(_ context.Context, account *auth.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.Saves++
	r.accounts[account.PlayerID] = account
	return nil
}

func (r *Repo) UpdateLastQuit(_ context.Context, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.QuitUpdates++
	if account, ok := r.accounts[playerID]; ok {
		account.LastQuitAt = time.Now()
	}
	return nil
}

func (r *Repo) AddLink(_ context.Context, _ *auth.Account, _ auth.LinkUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Err
}

func (r *Repo) RemoveLink(_ context.Context, _ *auth.Account, _ auth.LinkUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Err
}
