// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package gate is the external-facing edge of the authentication core. It
// receives platform events (connect, disconnect, chat, commands), decides
// whether a player must authenticate, and hands accounts to the
// step-progression engine. The background tasks that police the bucket
// live here too.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/bus"
	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/link"
	"github.com/playgate/playgate/internal/platform"
	"github.com/playgate/playgate/internal/steps"
)

// Options wires a Gate's collaborators.
type Options struct {
	Repo      auth.AccountRepository
	Bucket    *auth.Bucket
	Engine    *auth.Progression
	Entries   *link.EntryBucket
	Bus       *bus.Bus
	Scheduler platform.Scheduler

	// Snapshot returns the current configuration. Called once per
	// operation so a single connect observes one coherent snapshot.
	Snapshot func() *config.Config

	// Kind selects how player identities are derived. Defaults to
	// name-based identity.
	Kind auth.IdentifierKind

	// Connect pushes a player into gameplay after a session resume.
	// Optional.
	Connect func(ctx context.Context, account *auth.Account)

	Logger *slog.Logger
}

// Gate orchestrates the login flow around the bucket and the engine.
type Gate struct {
	repo     auth.AccountRepository
	bucket   *auth.Bucket
	engine   *auth.Progression
	entries  *link.EntryBucket
	bus      *bus.Bus
	sched    platform.Scheduler
	snapshot func() *config.Config
	kind     auth.IdentifierKind
	connect  func(ctx context.Context, account *auth.Account)
	logger   *slog.Logger
	clock    func() time.Time
}

// New creates the login gate.
func New(o Options) (*Gate, error) {
	switch {
	case o.Repo == nil:
		return nil, oops.Code("GATE_INVALID_DEPS").Errorf("account repository is required")
	case o.Bucket == nil:
		return nil, oops.Code("GATE_INVALID_DEPS").Errorf("bucket is required")
	case o.Engine == nil:
		return nil, oops.Code("GATE_INVALID_DEPS").Errorf("progression engine is required")
	case o.Entries == nil:
		return nil, oops.Code("GATE_INVALID_DEPS").Errorf("link entry bucket is required")
	case o.Bus == nil:
		return nil, oops.Code("GATE_INVALID_DEPS").Errorf("bus is required")
	case o.Scheduler == nil:
		return nil, oops.Code("GATE_INVALID_DEPS").Errorf("scheduler is required")
	case o.Snapshot == nil:
		return nil, oops.Code("GATE_INVALID_DEPS").Errorf("config snapshot source is required")
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Gate{
		repo:     o.Repo,
		bucket:   o.Bucket,
		engine:   o.Engine,
		entries:  o.Entries,
		bus:      o.Bus,
		sched:    o.Scheduler,
		snapshot: o.Snapshot,
		kind:     o.Kind,
		connect:  o.Connect,
		logger:   logger,
		clock:    time.Now,
	}, nil
}

// OnConnect admits, resumes, or starts authenticating a freshly connected
// player. Rejections kick the player with a localized reason and return
// nil; the returned error is reserved for store failures and the
// duplicate-registration logic fault.
func (g *Gate) OnConnect(ctx context.Context, player platform.Player) error {
	cfg := g.snapshot()
	name := player.Name()

	if !cfg.NameRegexp().MatchString(name) {
		RecordRejection(ReasonNamePattern)
		player.Disconnect(cfg.Messages.NamePatternKick)
		return nil
	}

	if limit := cfg.Auth.MaxIPConcurrentAuth; limit > 0 && g.bucket.CountByIP(player.IP()) >= limit {
		RecordRejection(ReasonIPLimit)
		player.Disconnect(cfg.Messages.IPLimitKick)
		return nil
	}

	playerID := auth.DeriveID(g.kind, name, player.ID())

	account, err := g.repo.GetByPlayerID(ctx, playerID)
	switch {
	case errors.Is(err, auth.ErrNotFound):
		account = auth.NewAccount(g.kind, name, player.ID())
	case err != nil:
		// Fetch failure is not absence. Creating a fresh unregistered
		// account here could shadow an existing credential.
		RecordRejection(ReasonStoreError)
		player.Disconnect(cfg.Messages.StoreErrorKick)
		return oops.Code("STORE_LOOKUP_FAILED").
			With("player", playerID).
			Wrap(err)
	default:
		if cfg.Auth.CheckNameCase && account.Name != name {
			RecordRejection(ReasonCaseMismatch)
			player.Disconnect(fmt.Sprintf(cfg.Messages.NameCaseKick, account.Name))
			return nil
		}
	}

	account.Player = player

	if err == nil && g.tryResume(ctx, cfg, account, player) {
		return nil
	}

	if g.bucket.IsAuthenticating(playerID) {
		fault := oops.Code("DUPLICATE_AUTH").
			With("player", playerID).
			With("ip", player.IP()).
			Wrap(auth.ErrDuplicateAuth)
		g.logger.Error("duplicate authenticating-account registration",
			"player", playerID,
			"error", fault)
		return fault
	}

	g.bucket.Add(account, player.IP())
	g.engine.Advance(ctx, account)
	return nil
}

// tryResume handles the auto-reconnect path: an unexpired session from
// the same IP skips re-authentication entirely. Listeners may cancel the
// session-enter notification to force the full pipeline.
func (g *Gate) tryResume(ctx context.Context, cfg *config.Config, account *auth.Account, player platform.Player) bool {
	if !account.IsSessionActive(cfg.Auth.SessionDurability, g.clock()) {
		return false
	}
	if account.LastIP == "" || account.LastIP != player.IP() {
		return false
	}

	ev := &auth.SessionEnterEvent{Account: account, Player: player}
	if g.bus.Publish(ctx, ev).IsCancelled() {
		return false
	}

	RecordSessionResume()
	g.sched.Once(cfg.Auth.JoinDelay, func() {
		if !player.IsOnline() {
			return
		}
		account.LastSessionStartAt = g.clock()
		account.LastIP = player.IP()
		if err := g.repo.SaveOrUpdate(context.Background(), account); err != nil {
			g.logger.Warn("session-resume persist failed",
				"player", account.PlayerID,
				"error", err)
		}
		player.SendMessage(cfg.Messages.SessionResumed)
		if g.connect != nil {
			g.connect(context.Background(), account)
		}
	})
	return true
}

// OnDisconnect cleans up after a connection closes. A mid-authentication
// disconnect only clears transient state; a post-authentication one
// records the quit timestamp for the session-durability window.
func (g *Gate) OnDisconnect(ctx context.Context, player platform.Player) {
	playerID := auth.DeriveID(g.kind, player.Name(), player.ID())

	g.entries.Drop(playerID)

	if g.bucket.IsAuthenticating(playerID) {
		g.bucket.Remove(ctx, playerID)
		return
	}

	if err := g.repo.UpdateLastQuit(ctx, playerID); err != nil && !errors.Is(err, auth.ErrNotFound) {
		g.logger.Warn("last-quit update failed",
			"player", playerID,
			"error", err)
	}
}

// OnChat intercepts a mid-authentication player's chat and feeds it to the
// current step. Reports whether the message was consumed; consumed
// messages must never reach game chat, passwords travel through here.
func (g *Gate) OnChat(ctx context.Context, player platform.Player, text string) bool {
	playerID := auth.DeriveID(g.kind, player.Name(), player.ID())

	account, ok := g.bucket.Account(playerID)
	if !ok {
		return false
	}

	if handler, ok := account.CurrentStep.(auth.ChatInputHandler); ok {
		handler.HandleChatInput(ctx, text)
	}
	return true
}

// commandSteps maps authentication commands to the step allowed to run
// them. Everything else is blocked while the player is in the bucket.
var commandSteps = map[string]string{
	"register": steps.RegisterStepName,
	"reg":      steps.RegisterStepName,
	"login":    steps.LoginStepName,
	"l":        steps.LoginStepName,
}

// AllowCommand reports whether the player may run cmd right now. Players
// outside the bucket are unrestricted; mid-authentication only the
// command belonging to the current step passes. Blocked players get a
// localized notice.
func (g *Gate) AllowCommand(player platform.Player, cmd string) bool {
	playerID := auth.DeriveID(g.kind, player.Name(), player.ID())

	account, ok := g.bucket.Account(playerID)
	if !ok {
		return true
	}

	if want, ok := commandSteps[strings.ToLower(cmd)]; ok && want == account.CurrentStep.Name() {
		return true
	}

	player.SendMessage(g.snapshot().Messages.CommandBlocked)
	return false
}

// OnCommand routes an authentication command's argument into the current
// step, e.g. "/login hunter2". Reports whether the command was consumed
// by authentication (including the blocked case).
func (g *Gate) OnCommand(ctx context.Context, player platform.Player, cmd, args string) bool {
	playerID := auth.DeriveID(g.kind, player.Name(), player.ID())

	account, ok := g.bucket.Account(playerID)
	if !ok {
		return false
	}

	if !g.AllowCommand(player, cmd) {
		return true
	}

	if handler, ok := account.CurrentStep.(auth.ChatInputHandler); ok {
		handler.HandleChatInput(ctx, args)
	}
	return true
}
