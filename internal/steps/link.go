// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package steps

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playgate/playgate/internal/link"
)

// linkStep confirms the player's identity through a linked messenger
// account: a one-time code goes out over the transport and the pipeline
// waits for the player to type it back.
type linkStep struct {
	ctx      stepBase
	deps     Deps
	linkType link.Type
	name     string

	mu        sync.Mutex
	confirmed bool
}

func newLinkStep(sc stepCtx, d Deps, t link.Type, name string) *linkStep {
	return &linkStep{ctx: newStepBase(sc), deps: d, linkType: t, name: name}
}

func (s *linkStep) Name() string { return s.name }

// ShouldSkip bypasses the step unless all of: the link type is enabled and
// requires confirmation, the account is linked, and a transport exists.
func (s *linkStep) ShouldSkip() bool {
	cfg := s.deps.Snapshot().Links.Link(s.linkType)
	if !cfg.Enabled || !cfg.ConfirmationRequired {
		return true
	}
	if !s.ctx.account.HasLink(s.linkType) {
		return true
	}
	_, ok := s.deps.Transports[s.linkType]
	return !ok
}

func (s *linkStep) ShouldPassToNextStep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// OnActivate issues the confirmation code and registers the pending entry
// that extends the player's auth-time budget.
func (s *linkStep) OnActivate() {
	cfg := s.deps.Snapshot()
	account := s.ctx.account

	linked, ok := account.Link(s.linkType)
	if !ok {
		return
	}
	transport, ok := s.deps.Transports[s.linkType]
	if !ok {
		return
	}

	code, err := link.GenerateCode()
	if err != nil {
		s.deps.logger().Error("confirmation code generation failed",
			"player", account.PlayerID, "err", err)
		s.ctx.send(cfg.Messages.LinkSendError)
		return
	}

	s.deps.Entries.Add(link.Entry{
		PlayerID: account.PlayerID,
		Type:     s.linkType,
		Code:     code,
		IssuedAt: time.Now(),
	})

	if err := transport.SendCode(context.Background(), linked.ExternalID, code); err != nil {
		s.deps.logger().Warn("confirmation code delivery failed",
			"player", account.PlayerID,
			"link", s.linkType.String(),
			"err", err)
		s.ctx.send(cfg.Messages.LinkSendError)
		return
	}

	s.ctx.send(fmt.Sprintf(cfg.Messages.LinkPrompt, s.linkType))
}

func (s *linkStep) SendPeriodicMessage() {
	s.mu.Lock()
	done := s.confirmed
	s.mu.Unlock()
	if !done {
		cfg := s.deps.Snapshot()
		s.ctx.send(fmt.Sprintf(cfg.Messages.LinkPrompt, s.linkType))
	}
}

// HandleChatInput treats the input as the confirmation code.
func (s *linkStep) HandleChatInput(ctx context.Context, input string) {
	cfg := s.deps.Snapshot()
	account := s.ctx.account

	if !s.deps.Entries.Confirm(account.PlayerID, s.linkType, input) {
		s.ctx.send(cfg.Messages.LinkCodeWrong)
		return
	}

	s.mu.Lock()
	s.confirmed = true
	s.mu.Unlock()

	s.ctx.send(fmt.Sprintf(cfg.Messages.LinkSuccess, s.linkType))
	s.deps.Engine.Advance(ctx, account)
}
