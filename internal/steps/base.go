// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package steps

import (
	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/platform"
)

type stepCtx = auth.StepContext

// stepBase carries the per-account context shared by all step variants.
// The player handle may be nil when the connection is already gone; sends
// and kicks degrade to no-ops then.
type stepBase struct {
	account *auth.Account
	player  platform.Player
}

func newStepBase(sc stepCtx) stepBase {
	return stepBase{account: sc.Account, player: sc.Player}
}

func (b stepBase) send(msg string) {
	if b.player != nil {
		b.player.SendMessage(msg)
	}
}

func (b stepBase) kick(reason string) {
	if b.player != nil {
		b.player.Disconnect(reason)
	}
}

func (b stepBase) playerIP() string {
	if b.player != nil {
		return b.player.IP()
	}
	return b.account.LastIP
}
