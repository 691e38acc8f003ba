// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package steps_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/auth/authtest"
	"github.com/playgate/playgate/internal/bus"
	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/link"
	"github.com/playgate/playgate/internal/platform/platformtest"
	"github.com/playgate/playgate/internal/steps"
)

type sentCode struct {
	target string
	code   string
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []sentCode
	err  error
}

func (t *fakeTransport) SendCode(_ context.Context, target, code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, sentCode{target: target, code: code})
	return nil
}

func (t *fakeTransport) last() (sentCode, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return sentCode{}, false
	}
	return t.sent[len(t.sent)-1], true
}

// harness wires a full pipeline around an in-memory repo and fake player.
type harness struct {
	cfg       *config.Config
	repo      *authtest.Repo
	bucket    *auth.Bucket
	engine    *auth.Progression
	entries   *link.EntryBucket
	transport *fakeTransport
	factories *auth.FactoryRegistry
}

func newHarness(t *testing.T, stepNames []string, mutate func(*config.Config)) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.Steps = stepNames
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate(crypto.DefaultRegistry()))

	b := bus.New(nil)
	h := &harness{
		cfg:       cfg,
		repo:      authtest.NewRepo(),
		bucket:    auth.NewBucket(b),
		entries:   link.NewEntryBucket(),
		transport: &fakeTransport{},
		factories: auth.NewFactoryRegistry(),
	}
	h.engine = auth.NewProgression(b, h.factories, func() []string { return h.cfg.Auth.Steps }, nil)

	steps.RegisterAll(h.factories, steps.Deps{
		Repo:      h.repo,
		Providers: crypto.DefaultRegistry(),
		Snapshot:  func() *config.Config { return h.cfg },
		Engine:    h.engine,
		Bucket:    h.bucket,
		Entries:   h.entries,
		Transports: map[link.Type]link.Transport{
			link.Telegram: h.transport,
			link.Discord:  h.transport,
			link.VK:       h.transport,
		},
	})
	return h
}

func (h *harness) enter(player *platformtest.Player) *auth.Account {
	account := auth.NewAccount(auth.ByName, player.Name(), player.ID())
	account.Player = player
	h.bucket.Add(account, player.IP())
	h.engine.Advance(context.Background(), account)
	return account
}

func chatHandler(t *testing.T, account *auth.Account) auth.ChatInputHandler {
	t.Helper()
	handler, ok := account.CurrentStep.(auth.ChatInputHandler)
	require.True(t, ok, "step %s must accept chat input", account.CurrentStep.Name())
	return handler
}

func TestRegisterStep(t *testing.T) {
	t.Run("full registration flow", func(t *testing.T) {
		h := newHarness(t, []string{"REGISTER", "ENTER_SERVER"}, nil)
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := h.enter(player)

		require.Equal(t, "REGISTER", account.CurrentStep.Name())
		require.Equal(t, 1, account.StepIndex)

		chatHandler(t, account).HandleChatInput(context.Background(), "Secret123")

		assert.True(t, account.IsRegistered())
		assert.Equal(t, 2, account.StepIndex)
		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
		assert.False(t, h.bucket.IsAuthenticating("alice"), "terminal step clears the bucket")
		assert.NotZero(t, account.DatabaseID, "account persisted")
	})

	t.Run("fresh registration bypasses login", func(t *testing.T) {
		h := newHarness(t, []string{"REGISTER", "LOGIN", "ENTER_SERVER"}, nil)
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := h.enter(player)

		chatHandler(t, account).HandleChatInput(context.Background(), "Secret123")

		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
		assert.Equal(t, 3, account.StepIndex)
		kicked, _ := player.Kicked()
		assert.False(t, kicked)
	})

	t.Run("password length bounds", func(t *testing.T) {
		h := newHarness(t, []string{"REGISTER"}, func(c *config.Config) {
			c.Auth.PasswordMinLength = 6
			c.Auth.PasswordMaxLength = 8
		})
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := h.enter(player)
		handler := chatHandler(t, account)

		handler.HandleChatInput(context.Background(), "short")
		assert.False(t, account.IsRegistered())

		handler.HandleChatInput(context.Background(), "waytoolongpassword")
		assert.False(t, account.IsRegistered())
	})

	t.Run("store failure rolls back the credential", func(t *testing.T) {
		h := newHarness(t, []string{"REGISTER"}, nil)
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := h.enter(player)

		h.repo.Err = assert.AnError
		chatHandler(t, account).HandleChatInput(context.Background(), "Secret123")

		assert.False(t, account.IsRegistered(), "registered iff persisted")
		assert.Equal(t, "REGISTER", account.CurrentStep.Name())
	})

	t.Run("skipped for registered accounts", func(t *testing.T) {
		h := newHarness(t, []string{"REGISTER", "LOGIN"}, nil)
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")

		provider := crypto.NewBcryptProvider()
		hashed, err := provider.Hash("Secret123")
		require.NoError(t, err)

		account := auth.NewAccount(auth.ByName, player.Name(), player.ID())
		account.SetPassword(hashed)
		account.Player = player
		h.repo.Seed(account)
		h.bucket.Add(account, player.IP())
		h.engine.Advance(context.Background(), account)

		assert.Equal(t, "LOGIN", account.CurrentStep.Name())
		assert.Equal(t, 2, account.StepIndex, "register skipped, index moved past both")
	})
}

func TestLoginStep(t *testing.T) {
	registered := func(t *testing.T, h *harness, providerID string) (*auth.Account, *platformtest.Player) {
		t.Helper()
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		provider, err := crypto.DefaultRegistry().Resolve(providerID)
		require.NoError(t, err)
		hashed, err := provider.Hash("Secret123")
		require.NoError(t, err)

		account := auth.NewAccount(auth.ByName, player.Name(), player.ID())
		account.SetPassword(hashed)
		account.Player = player
		h.repo.Seed(account)
		h.bucket.Add(account, player.IP())
		h.engine.Advance(context.Background(), account)
		require.Equal(t, "LOGIN", account.CurrentStep.Name())
		return account, player
	}

	t.Run("correct password advances", func(t *testing.T) {
		h := newHarness(t, []string{"LOGIN", "ENTER_SERVER"}, nil)
		account, _ := registered(t, h, "ARGON2ID")

		chatHandler(t, account).HandleChatInput(context.Background(), "Secret123")

		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
		assert.False(t, h.bucket.IsAuthenticating("alice"))
	})

	t.Run("attempt limit boundary", func(t *testing.T) {
		h := newHarness(t, []string{"LOGIN"}, func(c *config.Config) {
			c.Auth.MaxPasswordAttempts = 3
		})
		account, player := registered(t, h, "ARGON2ID")
		handler := chatHandler(t, account)

		handler.HandleChatInput(context.Background(), "wrong-1")
		kicked, _ := player.Kicked()
		assert.False(t, kicked, "first wrong attempt only warns")

		handler.HandleChatInput(context.Background(), "wrong-2")
		kicked, _ = player.Kicked()
		assert.False(t, kicked, "second wrong attempt only warns")

		handler.HandleChatInput(context.Background(), "wrong-3")
		kicked, reason := player.Kicked()
		assert.True(t, kicked, "third wrong attempt of three kicks")
		assert.Equal(t, h.cfg.Messages.AttemptLimitKick, reason)
	})

	t.Run("legacy hash upgraded on success", func(t *testing.T) {
		h := newHarness(t, []string{"LOGIN"}, func(c *config.Config) {
			c.Auth.CryptoProvider = "ARGON2ID"
		})
		account, _ := registered(t, h, "SHA256")

		chatHandler(t, account).HandleChatInput(context.Background(), "Secret123")

		require.True(t, account.IsRegistered())
		assert.Equal(t, "ARGON2ID", account.CryptoProviderID())
		assert.Positive(t, h.repo.Saves, "upgraded hash persisted")
	})

	t.Run("skipped for unregistered accounts", func(t *testing.T) {
		h := newHarness(t, []string{"LOGIN", "REGISTER"}, nil)
		player := platformtest.NewPlayer("Bob", "u-2", "10.0.0.2")
		account := h.enter(player)

		assert.Equal(t, "REGISTER", account.CurrentStep.Name())
	})

	t.Run("credential vanishing mid-step restarts the pipeline", func(t *testing.T) {
		h := newHarness(t, []string{"REGISTER", "LOGIN"}, nil)
		account, player := registered(t, h, "ARGON2ID")

		// Admin unregister between the prompt and the reply.
		account.ClearPassword()
		chatHandler(t, account).HandleChatInput(context.Background(), "Secret123")

		assert.Equal(t, "REGISTER", account.CurrentStep.Name())
		assert.Equal(t, 0, account.StepIndex)
		assert.Contains(t, player.Messages(), h.cfg.Messages.RegisterPrompt)

		// The restarted pipeline accepts a fresh registration.
		chatHandler(t, account).HandleChatInput(context.Background(), "NewSecret1")
		assert.True(t, account.IsRegistered())
	})
}

func TestLinkStep(t *testing.T) {
	telegramLinked := func(t *testing.T, h *harness) (*auth.Account, *platformtest.Player) {
		t.Helper()
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := auth.NewAccount(auth.ByName, player.Name(), player.ID())
		account.Player = player
		require.NoError(t, account.AddLink(auth.LinkUser{Type: link.Telegram, ExternalID: "tg-42"}))
		h.repo.Seed(account)
		h.bucket.Add(account, player.IP())
		h.engine.Advance(context.Background(), account)
		return account, player
	}

	enabledTelegram := func(c *config.Config) {
		c.Links.Telegram.Enabled = true
		c.Links.Telegram.ConfirmationRequired = true
	}

	t.Run("code sent on activation and confirmed from chat", func(t *testing.T) {
		h := newHarness(t, []string{"LINK_TELEGRAM", "ENTER_SERVER"}, enabledTelegram)
		account, _ := telegramLinked(t, h)

		require.Equal(t, "LINK_TELEGRAM", account.CurrentStep.Name())
		sent, ok := h.transport.last()
		require.True(t, ok, "code delivered on activation")
		assert.Equal(t, "tg-42", sent.target)
		require.Len(t, h.entries.For("alice"), 1)

		chatHandler(t, account).HandleChatInput(context.Background(), sent.code)

		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
		assert.Empty(t, h.entries.For("alice"), "pending entry consumed")
	})

	t.Run("wrong code keeps the step", func(t *testing.T) {
		h := newHarness(t, []string{"LINK_TELEGRAM"}, enabledTelegram)
		account, _ := telegramLinked(t, h)

		chatHandler(t, account).HandleChatInput(context.Background(), "000000")

		assert.Equal(t, "LINK_TELEGRAM", account.CurrentStep.Name())
		assert.Len(t, h.entries.For("alice"), 1)
	})

	t.Run("skipped when link type disabled", func(t *testing.T) {
		h := newHarness(t, []string{"LINK_TELEGRAM", "ENTER_SERVER"}, nil)
		account, _ := telegramLinked(t, h)
		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
	})

	t.Run("skipped when account has no link", func(t *testing.T) {
		h := newHarness(t, []string{"LINK_TELEGRAM", "ENTER_SERVER"}, enabledTelegram)
		player := platformtest.NewPlayer("Bob", "u-2", "10.0.0.2")
		account := h.enter(player)
		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
	})
}

func TestTOTPStep(t *testing.T) {
	enrolled := func(t *testing.T, h *harness, secret string) *auth.Account {
		t.Helper()
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := auth.NewAccount(auth.ByName, player.Name(), player.ID())
		account.Player = player
		account.TOTPSecret = secret
		h.repo.Seed(account)
		h.bucket.Add(account, player.IP())
		h.engine.Advance(context.Background(), account)
		return account
	}

	enabledTOTP := func(c *config.Config) { c.Links.TOTP.Enabled = true }

	t.Run("valid code passes", func(t *testing.T) {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "playgate", AccountName: "alice"})
		require.NoError(t, err)

		h := newHarness(t, []string{"TOTP", "ENTER_SERVER"}, enabledTOTP)
		account := enrolled(t, h, key.Secret())
		require.Equal(t, "TOTP", account.CurrentStep.Name())

		code, err := totp.GenerateCode(key.Secret(), time.Now())
		require.NoError(t, err)

		chatHandler(t, account).HandleChatInput(context.Background(), code)
		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
	})

	t.Run("invalid code stays", func(t *testing.T) {
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "playgate", AccountName: "alice"})
		require.NoError(t, err)

		h := newHarness(t, []string{"TOTP"}, enabledTOTP)
		account := enrolled(t, h, key.Secret())

		chatHandler(t, account).HandleChatInput(context.Background(), "000000")
		assert.Equal(t, "TOTP", account.CurrentStep.Name())
	})

	t.Run("skipped without enrolled secret", func(t *testing.T) {
		h := newHarness(t, []string{"TOTP", "ENTER_SERVER"}, enabledTOTP)
		account := enrolled(t, h, "")
		assert.Equal(t, "ENTER_SERVER", account.CurrentStep.Name())
	})
}

func TestEnterServerStep(t *testing.T) {
	h := newHarness(t, []string{"ENTER_SERVER"}, nil)

	var connected []string
	stepsDepsConnect(h, func(_ context.Context, account *auth.Account) {
		connected = append(connected, account.PlayerID)
	})

	player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
	account := h.enter(player)

	assert.False(t, account.LastSessionStartAt.IsZero(), "session start recorded")
	assert.Equal(t, "10.0.0.1", account.LastIP)
	assert.False(t, h.bucket.IsAuthenticating("alice"))
	assert.Equal(t, []string{"alice"}, connected)
	assert.Contains(t, player.Messages(), h.cfg.Messages.Welcome)
}

// stepsDepsConnect re-registers the factories with a connect callback.
func stepsDepsConnect(h *harness, connect func(context.Context, *auth.Account)) {
	steps.RegisterAll(h.factories, steps.Deps{
		Repo:      h.repo,
		Providers: crypto.DefaultRegistry(),
		Snapshot:  func() *config.Config { return h.cfg },
		Engine:    h.engine,
		Bucket:    h.bucket,
		Entries:   h.entries,
		Connect:   connect,
	})
}
