// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package steps

import (
	"context"
	"sync"

	"github.com/pquerna/otp/totp"
)

// totpStep verifies a time-based one-time code against the account's
// enrolled secret.
type totpStep struct {
	ctx  stepBase
	deps Deps

	mu     sync.Mutex
	passed bool
}

func newTOTPStep(sc stepCtx, d Deps) *totpStep {
	return &totpStep{ctx: newStepBase(sc), deps: d}
}

func (s *totpStep) Name() string { return TOTPStepName }

// ShouldSkip bypasses the step when TOTP is disabled or the account has
// no enrolled secret.
func (s *totpStep) ShouldSkip() bool {
	if !s.deps.Snapshot().Links.TOTP.Enabled {
		return true
	}
	return s.ctx.account.TOTPSecret == ""
}

func (s *totpStep) ShouldPassToNextStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passed
}

func (s *totpStep) OnActivate() {
	s.ctx.send(s.deps.Snapshot().Messages.TOTPPrompt)
}

func (s *totpStep) SendPeriodicMessage() {
	s.mu.Lock()
	done := s.passed
	s.mu.Unlock()
	if !done {
		s.ctx.send(s.deps.Snapshot().Messages.TOTPPrompt)
	}
}

// HandleChatInput treats the input as the one-time code.
func (s *totpStep) HandleChatInput(ctx context.Context, input string) {
	cfg := s.deps.Snapshot()

	if !totp.Validate(input, s.ctx.account.TOTPSecret) {
		s.ctx.send(cfg.Messages.TOTPWrong)
		return
	}

	s.mu.Lock()
	s.passed = true
	s.mu.Unlock()

	s.deps.Engine.Advance(ctx, s.ctx.account)
}
