// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package steps

import (
	"context"
	"fmt"
	"sync"
)

// registerStep collects a new player's password. It completes, and lets
// the pipeline move on, once a valid password has been hashed and saved.
type registerStep struct {
	ctx  stepBase
	deps Deps

	mu        sync.Mutex
	completed bool
}

func newRegisterStep(sc stepCtx, d Deps) *registerStep {
	return &registerStep{ctx: newStepBase(sc), deps: d}
}

func (s *registerStep) Name() string { return RegisterStepName }

// ShouldSkip bypasses registration for accounts that already have a
// credential.
func (s *registerStep) ShouldSkip() bool {
	return s.ctx.account.IsRegistered()
}

func (s *registerStep) ShouldPassToNextStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

func (s *registerStep) OnActivate() {
	s.ctx.send(s.deps.Snapshot().Messages.RegisterPrompt)
}

func (s *registerStep) SendPeriodicMessage() {
	s.mu.Lock()
	done := s.completed
	s.mu.Unlock()
	if !done {
		s.ctx.send(s.deps.Snapshot().Messages.RegisterPrompt)
	}
}

// HandleChatInput treats the input as the chosen password.
func (s *registerStep) HandleChatInput(ctx context.Context, input string) {
	cfg := s.deps.Snapshot()

	if len(input) < cfg.Auth.PasswordMinLength {
		s.ctx.send(fmt.Sprintf(cfg.Messages.PasswordTooShort, cfg.Auth.PasswordMinLength))
		return
	}
	if len(input) > cfg.Auth.PasswordMaxLength {
		s.ctx.send(fmt.Sprintf(cfg.Messages.PasswordTooLong, cfg.Auth.PasswordMaxLength))
		return
	}

	provider, err := s.deps.Providers.Resolve(cfg.Auth.CryptoProvider)
	if err != nil {
		// Config is validated at load; reaching this means a reload
		// slipped in an unknown provider.
		s.deps.logger().Error("configured crypto provider missing", "err", err)
		s.ctx.send(cfg.Messages.StoreErrorKick)
		return
	}

	hashed, err := provider.Hash(input)
	if err != nil {
		s.deps.logger().Error("password hashing failed",
			"player", s.ctx.account.PlayerID, "err", err)
		s.ctx.send(cfg.Messages.StoreErrorKick)
		return
	}

	account := s.ctx.account
	account.SetPassword(hashed)
	account.LastIP = s.ctx.playerIP()

	if account.DatabaseID == 0 {
		err = s.deps.Repo.Create(ctx, account)
	} else {
		err = s.deps.Repo.SaveOrUpdate(ctx, account)
	}
	if err != nil {
		// Roll back the in-memory credential so the invariant holds:
		// registered means persisted.
		account.ClearPassword()
		s.deps.logger().Error("account save failed",
			"player", account.PlayerID, "err", err)
		s.ctx.send(cfg.Messages.StoreErrorKick)
		return
	}

	s.mu.Lock()
	s.completed = true
	s.mu.Unlock()

	account.Authenticated = true
	s.ctx.send(cfg.Messages.RegisterSuccess)
	s.deps.Engine.Advance(ctx, account)
}
