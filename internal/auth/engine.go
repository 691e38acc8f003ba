// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/playgate/playgate/internal/bus"
)

// StepsSource returns the configured step-name pipeline. It is called once
// per engine operation, so a single Advance always observes one coherent
// configuration snapshot even across reloads.
type StepsSource func() []string

// Progression owns every transition of an account's current step and step
// index. Transitions for one player identity are serialized; different
// accounts advance concurrently.
type Progression struct {
	bus       *bus.Bus
	factories *FactoryRegistry
	steps     StepsSource
	logger    *slog.Logger
	locks     keyedMutex
}

// NewProgression creates the step-progression engine.
func NewProgression(b *bus.Bus, factories *FactoryRegistry, steps StepsSource, logger *slog.Logger) *Progression {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Progression{
		bus:       b,
		factories: factories,
		steps:     steps,
		logger:    logger,
	}
}

// Advance moves the account from its current step to the next configured
// one. The whole call is atomic per transition attempt: a cancelled
// notification leaves the step and index exactly as they were. Skippable
// steps are bypassed synchronously within the same call, so one Advance
// can move past several configured steps at once.
func (p *Progression) Advance(ctx context.Context, account *Account) {
	unlock := p.locks.lock(account.PlayerID)
	defer unlock()

	for {
		res := p.bus.Publish(ctx, &StepRequestedEvent{Account: account})
		if res.IsCancelled() {
			return
		}

		if !account.CurrentStep.ShouldPassToNextStep() {
			return
		}

		names := p.steps()
		if len(names) <= account.StepIndex {
			// Pipeline exhausted without reaching a terminal step.
			// Stay put rather than fail a connected player, but this
			// usually means the configured step list is too short.
			p.logger.Warn("step pipeline exhausted, resetting index",
				"player", account.PlayerID,
				"index", account.StepIndex,
				"steps", len(names))
			account.StepIndex = 0
			return
		}

		next := p.buildStep(names[account.StepIndex], account)

		changed := &StepChangedEvent{Account: account, Old: account.CurrentStep, New: next}
		if p.bus.Publish(ctx, changed).IsCancelled() {
			return
		}

		account.CurrentStep = next
		account.StepIndex++

		if !next.ShouldSkip() {
			if act, ok := next.(Activatable); ok {
				act.OnActivate()
			}
			return
		}
		// The new step bowed out; park on the null step and run the
		// transition again on this same call stack.
		account.CurrentStep = NullStep{}
	}
}

// SetStepByIndex repositions the account directly, bypassing the
// cancellable notification pipeline. Administrative override, not a
// pipeline transition.
func (p *Progression) SetStepByIndex(account *Account, index int) error {
	if index < 0 {
		return oops.Code("STEP_INVALID_INDEX").
			With("index", index).
			Errorf("step index cannot be negative")
	}

	unlock := p.locks.lock(account.PlayerID)
	defer unlock()

	names := p.steps()
	name := NullStepName
	if index < len(names) {
		name = names[index]
	}

	step := p.buildStep(name, account)
	account.CurrentStep = step
	account.StepIndex = index
	if act, ok := step.(Activatable); ok {
		act.OnActivate()
	}
	return nil
}

// buildStep resolves the factory for name, falling back to the null step
// when none is registered. A missing factory is a configuration typo, not
// a reason to crash a connected player's session.
func (p *Progression) buildStep(name string, account *Account) Step {
	factory, ok := p.factories.Find(name)
	if !ok {
		p.logger.Warn("no factory for configured step, using null step",
			"step", name,
			"player", account.PlayerID)
		factory, _ = p.factories.Find(NullStepName)
	}
	return factory(NewStepContext(account))
}

// keyedMutex serializes work per string key. Entries are reference counted
// and removed once the last holder unlocks, so the map does not grow with
// the total identity population.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
