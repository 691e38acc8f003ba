// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package steps implements the configurable authentication pipeline steps
// and registers their factories.
package steps

import (
	"context"
	"log/slog"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/link"
)

// Step names registered by this package.
const (
	RegisterStepName    = "REGISTER"
	LoginStepName       = "LOGIN"
	TelegramStepName    = "LINK_TELEGRAM"
	DiscordStepName     = "LINK_DISCORD"
	VKStepName          = "LINK_VK"
	TOTPStepName        = "TOTP"
	EnterServerStepName = "ENTER_SERVER"
)

// Deps holds the collaborators the step factories close over.
type Deps struct {
	Repo      auth.AccountRepository
	Providers *crypto.Registry

	// Snapshot returns the current configuration. Steps call it once
	// per operation.
	Snapshot func() *config.Config

	Engine  *auth.Progression
	Bucket  *auth.Bucket
	Entries *link.EntryBucket

	// Transports delivers confirmation codes, keyed by link type.
	// Missing types disable the corresponding link step.
	Transports map[link.Type]link.Transport

	// Connect pushes a fully authenticated player into gameplay.
	// Optional; the platform adapter supplies it.
	Connect func(ctx context.Context, account *auth.Account)

	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// RegisterAll binds every built-in step factory into the registry.
func RegisterAll(r *auth.FactoryRegistry, d Deps) {
	r.Register(RegisterStepName, func(sc auth.StepContext) auth.Step {
		return newRegisterStep(sc, d)
	})
	r.Register(LoginStepName, func(sc auth.StepContext) auth.Step {
		return newLoginStep(sc, d)
	})
	r.Register(TelegramStepName, func(sc auth.StepContext) auth.Step {
		return newLinkStep(sc, d, link.Telegram, TelegramStepName)
	})
	r.Register(DiscordStepName, func(sc auth.StepContext) auth.Step {
		return newLinkStep(sc, d, link.Discord, DiscordStepName)
	})
	r.Register(VKStepName, func(sc auth.StepContext) auth.Step {
		return newLinkStep(sc, d, link.VK, VKStepName)
	})
	r.Register(TOTPStepName, func(sc auth.StepContext) auth.Step {
		return newTOTPStep(sc, d)
	})
	r.Register(EnterServerStepName, func(sc auth.StepContext) auth.Step {
		return newEnterServerStep(sc, d)
	})
}
