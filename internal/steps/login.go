// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package steps

import (
	"context"
	"sync"
)

// loginStep verifies a returning player's password. Wrong attempts are
// counted 1-indexed against auth.max-password-attempts: with a limit of
// three, the third wrong password kicks the player.
type loginStep struct {
	ctx  stepBase
	deps Deps

	mu       sync.Mutex
	attempts int
	authed   bool
}

func newLoginStep(sc stepCtx, d Deps) *loginStep {
	return &loginStep{ctx: newStepBase(sc), deps: d}
}

func (s *loginStep) Name() string { return LoginStepName }

// ShouldSkip bypasses login for accounts with no credential yet (the
// register step owns those) and for accounts that already passed a
// credential check on this connection.
func (s *loginStep) ShouldSkip() bool {
	return !s.ctx.account.IsRegistered() || s.ctx.account.Authenticated
}

func (s *loginStep) ShouldPassToNextStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *loginStep) OnActivate() {
	s.ctx.send(s.deps.Snapshot().Messages.LoginPrompt)
}

func (s *loginStep) SendPeriodicMessage() {
	s.mu.Lock()
	done := s.authed
	s.mu.Unlock()
	if !done {
		s.ctx.send(s.deps.Snapshot().Messages.LoginPrompt)
	}
}

// HandleChatInput treats the input as a password attempt.
func (s *loginStep) HandleChatInput(ctx context.Context, input string) {
	cfg := s.deps.Snapshot()
	account := s.ctx.account

	stored := account.PasswordHash
	if stored == nil {
		// Raced with an admin unregister. Advance would stop on this
		// step's unpassed state, so reposition to the start and let the
		// register step take over.
		if err := s.deps.Engine.SetStepByIndex(account, 0); err != nil {
			s.deps.logger().Error("pipeline restart failed",
				"player", account.PlayerID, "err", err)
		}
		return
	}

	provider, ok := s.deps.Providers.Find(stored.ProviderID)
	if !ok {
		// Hash from a removed provider. Verification is impossible;
		// treat as wrong rather than crash, loudly.
		s.deps.logger().Error("stored hash references unknown crypto provider",
			"player", account.PlayerID, "provider", stored.ProviderID)
		s.fail(cfg.Messages.WrongPassword, cfg.Messages.AttemptLimitKick, cfg.Auth.MaxPasswordAttempts)
		return
	}

	if !provider.Matches(input, *stored) {
		s.fail(cfg.Messages.WrongPassword, cfg.Messages.AttemptLimitKick, cfg.Auth.MaxPasswordAttempts)
		return
	}

	// Legacy hash upgrade: re-hash with the configured provider on the
	// next successful login.
	if stored.ProviderID != cfg.Auth.CryptoProvider {
		if upgraded, err := s.upgradeHash(input, cfg.Auth.CryptoProvider); err == nil && upgraded {
			if err := s.deps.Repo.SaveOrUpdate(ctx, account); err != nil {
				s.deps.logger().Warn("hash upgrade save failed",
					"player", account.PlayerID, "err", err)
			}
		}
	}

	account.LastIP = s.ctx.playerIP()
	account.Authenticated = true

	s.mu.Lock()
	s.authed = true
	s.mu.Unlock()

	s.ctx.send(cfg.Messages.LoginSuccess)
	s.deps.Engine.Advance(ctx, account)
}

// fail counts a wrong attempt and kicks at the limit. The comparison is
// >= after incrementing: the attempt that reaches the limit is the one
// that disconnects.
func (s *loginStep) fail(wrongMsg, kickMsg string, maxAttempts int) {
	s.mu.Lock()
	s.attempts++
	over := s.attempts >= maxAttempts
	s.mu.Unlock()

	if over {
		s.ctx.kick(kickMsg)
		return
	}
	s.ctx.send(wrongMsg)
}

func (s *loginStep) upgradeHash(raw, providerID string) (bool, error) {
	provider, ok := s.deps.Providers.Find(providerID)
	if !ok {
		return false, nil
	}
	hashed, err := provider.Hash(raw)
	if err != nil {
		return false, err
	}
	s.ctx.account.SetPassword(hashed)
	return true, nil
}
