// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package platformtest provides in-memory platform fakes for tests.
package platformtest

import (
	"sync"
	"time"

	"github.com/playgate/playgate/internal/platform"
)

// Player is a recording platform.Player fake.
type Player struct {
	mu sync.Mutex

	PlayerName string
	PlayerID   string
	Addr       string
	Online     bool

	messages   []string
	kickReason string
	kicked     bool
	progress   string
	hasBar     bool
}

// NewPlayer creates an online fake player.
func NewPlayer(name, id, ip string) *Player {
	return &Player{PlayerName: name, PlayerID: id, Addr: ip, Online: true}
}

func (p *Player) Name() string { return p.PlayerName }
func (p *Player) ID() string   { return p.PlayerID }
func (p *Player) IP() string   { return p.Addr }

func (p *Player) SendMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, text)
}

func (p *Player) Disconnect(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kicked = true
	p.kickReason = reason
	p.Online = false
}

func (p *Player) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Online
}

// SetOnline overrides the presence flag.
func (p *Player) SetOnline(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Online = online
}

// Messages returns a copy of everything sent to the player.
func (p *Player) Messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	copy(out, p.messages)
	return out
}

// ShowProgress records the indicator text.
func (p *Player) ShowProgress(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = text
	p.hasBar = true
}

// ClearProgress removes the indicator.
func (p *Player) ClearProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = ""
	p.hasBar = false
}

// Progress returns the indicator text and whether one is displayed.
func (p *Player) Progress() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.progress, p.hasBar
}

// Kicked reports whether Disconnect was called, and with what reason.
func (p *Player) Kicked() (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kicked, p.kickReason
}

type fakeTask struct {
	mu        sync.Mutex
	fn        func()
	cancelled bool
}

func (t *fakeTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelled = true
}

func (t *fakeTask) run() {
	t.mu.Lock()
	fn, cancelled := t.fn, t.cancelled
	t.mu.Unlock()
	if !cancelled {
		fn()
	}
}

// Scheduler is a manually driven platform.Scheduler fake. Nothing runs
// until the test calls Tick or FirePending.
type Scheduler struct {
	mu      sync.Mutex
	repeats []*fakeTask
	onces   []*fakeTask
}

// NewScheduler creates an empty fake scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Once(_ time.Duration, fn func()) platform.Task {
	t := &fakeTask{fn: fn}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onces = append(s.onces, t)
	return t
}

func (s *Scheduler) Repeat(_, _ time.Duration, fn func()) platform.Task {
	t := &fakeTask{fn: fn}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeats = append(s.repeats, t)
	return t
}

// Async runs fn immediately on the caller's goroutine. Tests stay
// deterministic that way.
func (s *Scheduler) Async(fn func()) platform.Task {
	t := &fakeTask{fn: fn}
	t.run()
	return t
}

// Tick runs every live repeating task once.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	tasks := make([]*fakeTask, len(s.repeats))
	copy(tasks, s.repeats)
	s.mu.Unlock()

	for _, t := range tasks {
		t.run()
	}
}

// FirePending runs and clears all pending one-shot tasks.
func (s *Scheduler) FirePending() {
	s.mu.Lock()
	tasks := s.onces
	s.onces = nil
	s.mu.Unlock()

	for _, t := range tasks {
		t.run()
	}
}
