// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package gate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/bus"
	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/link"
	"github.com/playgate/playgate/internal/platform/platformtest"
)

type taskFixture struct {
	cfg     *config.Config
	bucket  *auth.Bucket
	entries *link.EntryBucket
	sched   *platformtest.Scheduler
	tasks   *Tasks
	now     time.Time
}

func newTaskFixture(t *testing.T, mutate func(*config.Config)) *taskFixture {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate(crypto.DefaultRegistry()))

	f := &taskFixture{
		cfg:     cfg,
		bucket:  auth.NewBucket(bus.New(nil)),
		entries: link.NewEntryBucket(),
		sched:   platformtest.NewScheduler(),
	}
	f.tasks = NewTasks(f.bucket, f.entries, f.sched, func() *config.Config { return f.cfg }, nil)
	f.tasks.clock = func() time.Time { return f.now }
	f.tasks.Start()
	t.Cleanup(f.tasks.Stop)
	return f
}

// track puts a player into the bucket on a stub step and returns the
// account. The fixture clock is positioned at the enter timestamp.
func (f *taskFixture) track(player *platformtest.Player) *auth.Account {
	account := auth.NewAccount(auth.ByName, player.Name(), player.ID())
	account.Player = player
	f.bucket.Add(account, player.IP())
	f.now = f.bucket.EnteredAtOrZero(account.PlayerID)
	return account
}

func (f *taskFixture) elapse(account *auth.Account, d time.Duration) {
	f.now = f.bucket.EnteredAtOrZero(account.PlayerID).Add(d)
}

func TestTimeoutTask(t *testing.T) {
	t.Run("kick boundary", func(t *testing.T) {
		f := newTaskFixture(t, func(c *config.Config) {
			c.Auth.AuthTime = 60 * time.Second
		})
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := f.track(player)

		f.elapse(account, 59999*time.Millisecond)
		f.sched.Tick()
		kicked, _ := player.Kicked()
		assert.False(t, kicked, "one millisecond under budget stays")

		f.elapse(account, 60000*time.Millisecond)
		f.sched.Tick()
		kicked, reason := player.Kicked()
		assert.True(t, kicked, "elapsed equal to budget kicks")
		assert.Equal(t, f.cfg.Messages.TimeoutKick, reason)
	})

	t.Run("kick leaves bucket removal to the disconnect handler", func(t *testing.T) {
		f := newTaskFixture(t, nil)
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := f.track(player)

		f.elapse(account, f.cfg.Auth.AuthTime)
		f.sched.Tick()

		kicked, _ := player.Kicked()
		require.True(t, kicked)
		assert.True(t, f.bucket.IsAuthenticating("alice"))
	})

	t.Run("pending link confirmation extends the budget", func(t *testing.T) {
		f := newTaskFixture(t, func(c *config.Config) {
			c.Auth.AuthTime = 60 * time.Second
			c.Links.Telegram.EnterDelay = 30 * time.Second
		})
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := f.track(player)
		f.entries.Add(link.Entry{PlayerID: "alice", Type: link.Telegram, Code: "123456"})

		f.elapse(account, 89*time.Second)
		f.sched.Tick()
		kicked, _ := player.Kicked()
		assert.False(t, kicked, "within the extended budget")

		f.elapse(account, 90*time.Second)
		f.sched.Tick()
		kicked, _ = player.Kicked()
		assert.True(t, kicked)
	})

	t.Run("stale entry dropped silently", func(t *testing.T) {
		f := newTaskFixture(t, nil)
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		f.track(player)
		player.SetOnline(false)

		f.sched.Tick()

		assert.False(t, f.bucket.IsAuthenticating("alice"))
		kicked, _ := player.Kicked()
		assert.False(t, kicked, "stale cleanup is not a timeout")
	})
}

type promptStep struct {
	auth.NullStep
	sent int
}

func (s *promptStep) SendPeriodicMessage() { s.sent++ }

func TestPromptTask(t *testing.T) {
	f := newTaskFixture(t, func(c *config.Config) {
		c.Auth.RepromptInterval = 10 * time.Second
	})
	player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
	account := f.track(player)
	step := &promptStep{}
	account.CurrentStep = step

	f.sched.Tick()
	assert.Zero(t, step.sent, "first sight only arms the interval")

	f.elapse(account, 9*time.Second)
	f.sched.Tick()
	assert.Zero(t, step.sent)

	f.elapse(account, 10*time.Second)
	f.sched.Tick()
	assert.Equal(t, 1, step.sent)

	f.elapse(account, 15*time.Second)
	f.sched.Tick()
	assert.Equal(t, 1, step.sent, "next reprompt waits a full interval")

	f.elapse(account, 20*time.Second)
	f.sched.Tick()
	assert.Equal(t, 2, step.sent)
}

func TestProgressTask(t *testing.T) {
	t.Run("countdown rendered and cleared on completion", func(t *testing.T) {
		f := newTaskFixture(t, func(c *config.Config) {
			c.Auth.AuthTime = 60 * time.Second
		})
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		account := f.track(player)

		f.elapse(account, 15*time.Second)
		f.sched.Tick()

		text, shown := player.Progress()
		require.True(t, shown)
		assert.Equal(t, fmt.Sprintf(f.cfg.Messages.ProgressBar, 45), text)

		f.bucket.Remove(t.Context(), "alice")
		f.sched.Tick()

		_, shown = player.Progress()
		assert.False(t, shown, "indicator cleared once the player leaves the bucket")
	})

	t.Run("stop clears displayed indicators", func(t *testing.T) {
		f := newTaskFixture(t, nil)
		player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
		f.track(player)

		f.sched.Tick()
		_, shown := player.Progress()
		require.True(t, shown)

		f.tasks.Stop()

		_, shown = player.Progress()
		assert.False(t, shown)
	})
}

func TestTasksStartIdempotent(t *testing.T) {
	f := newTaskFixture(t, nil)
	f.tasks.Start()
	f.tasks.Start()

	player := platformtest.NewPlayer("Alice", "u-1", "10.0.0.1")
	account := f.track(player)
	step := &promptStep{}
	account.CurrentStep = step

	f.sched.Tick()
	f.elapse(account, f.cfg.Auth.RepromptInterval)
	f.sched.Tick()

	assert.Equal(t, 1, step.sent, "duplicate Start must not double-schedule")
}
