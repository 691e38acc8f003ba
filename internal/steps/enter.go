// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package steps

import (
	"context"
	"time"
)

// enterServerStep is the terminal gate: the player has passed every prior
// step, so the account leaves the bucket, the session start is recorded,
// and the platform pushes the player into gameplay.
type enterServerStep struct {
	ctx  stepBase
	deps Deps
}

func newEnterServerStep(sc stepCtx, d Deps) *enterServerStep {
	return &enterServerStep{ctx: newStepBase(sc), deps: d}
}

func (s *enterServerStep) Name() string { return EnterServerStepName }

func (s *enterServerStep) ShouldSkip() bool { return false }

func (s *enterServerStep) ShouldPassToNextStep() bool { return true }

func (s *enterServerStep) OnActivate() {
	ctx := context.Background()
	cfg := s.deps.Snapshot()
	account := s.ctx.account

	account.LastSessionStartAt = time.Now()
	account.LastIP = s.ctx.playerIP()

	if err := s.deps.Repo.SaveOrUpdate(ctx, account); err != nil {
		// Entering with a stale session record beats kicking a player
		// who already proved their identity.
		s.deps.logger().Warn("session start save failed",
			"player", account.PlayerID, "err", err)
	}

	s.deps.Bucket.Remove(ctx, account.PlayerID)
	s.ctx.send(cfg.Messages.Welcome)

	if s.deps.Connect != nil {
		s.deps.Connect(ctx, account)
	}
}
