// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/link"
	"github.com/playgate/playgate/internal/platform"
)

// tickPeriod is how often the background tasks scan the bucket.
const tickPeriod = time.Second

// Tasks owns the background work that polices the bucket: the timeout
// enforcer, the periodic prompt re-sender, and the progress indicator.
// All three run on a one-second tick from the platform scheduler.
type Tasks struct {
	bucket   *auth.Bucket
	entries  *link.EntryBucket
	sched    platform.Scheduler
	snapshot func() *config.Config
	logger   *slog.Logger
	clock    func() time.Time

	mu       sync.Mutex
	handles  []platform.Task
	prompted map[string]time.Time
	shown    map[string]platform.ProgressDisplay
}

// NewTasks creates the background task set. Start must be called to
// schedule it.
func NewTasks(bucket *auth.Bucket, entries *link.EntryBucket, sched platform.Scheduler, snapshot func() *config.Config, logger *slog.Logger) *Tasks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tasks{
		bucket:   bucket,
		entries:  entries,
		sched:    sched,
		snapshot: snapshot,
		logger:   logger,
		clock:    time.Now,
		prompted: make(map[string]time.Time),
		shown:    make(map[string]platform.ProgressDisplay),
	}
}

// Start schedules the three ticking tasks. Calling Start on running tasks
// is a no-op.
func (t *Tasks) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handles != nil {
		return
	}
	t.handles = []platform.Task{
		t.sched.Repeat(tickPeriod, tickPeriod, t.timeoutTick),
		t.sched.Repeat(tickPeriod, tickPeriod, t.promptTick),
		t.sched.Repeat(tickPeriod, tickPeriod, t.progressTick),
	}
}

// Stop cancels all scheduled work and proactively clears any progress
// indicator still on a player's screen.
func (t *Tasks) Stop() {
	t.mu.Lock()
	handles := t.handles
	t.handles = nil
	shown := t.shown
	t.shown = make(map[string]platform.ProgressDisplay)
	t.prompted = make(map[string]time.Time)
	t.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	for _, display := range shown {
		display.ClearProgress()
	}
}

// budget is the effective auth-time allowance for one account: the base
// budget plus the enter-delay grace of every pending link confirmation.
func (t *Tasks) budget(cfg *config.Config, playerID string) time.Duration {
	budget := cfg.Auth.AuthTime
	for _, e := range t.entries.For(playerID) {
		budget += cfg.Links.Link(e.Type).EnterDelay
	}
	return budget
}

// timeoutTick kicks every tracked player whose elapsed time reached the
// effective budget. Kicked players stay in the bucket; the disconnect
// handler owns the removal, which keeps this task out of a double-removal
// race with it. Entries whose connection vanished without a disconnect
// event are dropped silently.
func (t *Tasks) timeoutTick() {
	cfg := t.snapshot()
	now := t.clock()
	ctx := context.Background()

	for _, id := range t.bucket.Identifiers() {
		account, ok := t.bucket.Account(id)
		if !ok {
			continue
		}

		player := account.Player
		if player == nil || !player.IsOnline() {
			t.bucket.Remove(ctx, id)
			t.forget(id)
			continue
		}

		entered := t.bucket.EnteredAtOrZero(id)
		if entered.IsZero() {
			continue
		}

		if now.Sub(entered) >= t.budget(cfg, id) {
			RecordTimeout()
			t.logger.Info("authentication timed out",
				"player", id,
				"elapsed", now.Sub(entered))
			player.Disconnect(cfg.Messages.TimeoutKick)
		}
	}
}

// promptTick re-sends the current step's prompt to players who have been
// waiting on it for at least the configured reprompt interval. The first
// prompt is the step's own OnActivate; this task only repeats it.
func (t *Tasks) promptTick() {
	cfg := t.snapshot()
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	live := make(map[string]time.Time, len(t.prompted))
	for _, id := range t.bucket.Identifiers() {
		account, ok := t.bucket.Account(id)
		if !ok {
			continue
		}

		messenger, ok := account.CurrentStep.(auth.PeriodicMessenger)
		if !ok {
			continue
		}

		last, seen := t.prompted[id]
		if !seen {
			live[id] = now
			continue
		}
		if now.Sub(last) < cfg.Auth.RepromptInterval {
			live[id] = last
			continue
		}

		messenger.SendPeriodicMessage()
		live[id] = now
	}
	t.prompted = live
}

// progressTick paints the remaining-time countdown on every tracked
// player whose handle can display one, and clears it as soon as the
// player leaves the bucket.
func (t *Tasks) progressTick() {
	cfg := t.snapshot()
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	live := make(map[string]platform.ProgressDisplay, len(t.shown))
	for _, id := range t.bucket.Identifiers() {
		account, ok := t.bucket.Account(id)
		if !ok {
			continue
		}

		display, ok := account.Player.(platform.ProgressDisplay)
		if !ok {
			continue
		}

		entered := t.bucket.EnteredAtOrZero(id)
		if entered.IsZero() {
			continue
		}

		remaining := t.budget(cfg, id) - now.Sub(entered)
		if remaining < 0 {
			remaining = 0
		}

		display.ShowProgress(fmt.Sprintf(cfg.Messages.ProgressBar, int(remaining/time.Second)))
		live[id] = display
	}

	for id, display := range t.shown {
		if _, still := live[id]; !still {
			display.ClearProgress()
		}
	}
	t.shown = live
}

// forget drops per-player task state after a stale-entry cleanup.
func (t *Tasks) forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.prompted, id)
	if display, ok := t.shown[id]; ok {
		display.ClearProgress()
		delete(t.shown, id)
	}
}
