// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth

import (
	"context"
	"sync"

	"github.com/playgate/playgate/internal/platform"
)

// NullStepName is the name of the terminal no-op step. It is the default
// current step for never-authenticated accounts, the parking state after
// pipeline completion, and the fallback when a configured step name has no
// registered factory.
const NullStepName = "NULL"

// Step is one stage of the authentication pipeline. Instances are built
// fresh by their factory on every transition and replaced, never mutated.
type Step interface {
	// Name returns the stable step name used in configuration.
	Name() string

	// ShouldSkip reports that the step is inapplicable for its account
	// and the engine should bypass it.
	ShouldSkip() bool

	// ShouldPassToNextStep reports whether the engine may move past
	// this step. A step still waiting on player input returns false.
	ShouldPassToNextStep() bool
}

// PeriodicMessenger is implemented by steps that re-prompt the player
// while they remain on the step.
type PeriodicMessenger interface {
	// SendPeriodicMessage delivers the step's repeated prompt.
	SendPeriodicMessage()
}

// Activatable is implemented by steps that perform work once they become
// the account's current step: sending the initial prompt, issuing a
// confirmation code. The engine invokes it after the transition commits,
// never for steps that are skipped.
type Activatable interface {
	OnActivate()
}

// ChatInputHandler is implemented by steps that consume chat input
// (passwords, confirmation codes). The gate routes a mid-authentication
// player's chat to the current step.
type ChatInputHandler interface {
	HandleChatInput(ctx context.Context, input string)
}

// StepContext is the per-account context a factory builds a step from.
type StepContext struct {
	Account *Account
	Player  platform.Player
}

// NewStepContext builds a fresh context for an account.
func NewStepContext(account *Account) StepContext {
	return StepContext{Account: account, Player: account.Player}
}

// StepFactory constructs a step instance for a context.
type StepFactory func(sc StepContext) Step

// FactoryRegistry maps configured step names to factories.
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]StepFactory
}

// NewFactoryRegistry creates a registry pre-populated with the null step.
func NewFactoryRegistry() *FactoryRegistry {
	r := &FactoryRegistry{factories: make(map[string]StepFactory)}
	r.Register(NullStepName, func(StepContext) Step { return NullStep{} })
	return r
}

// Register binds a factory to a step name, replacing any previous binding.
func (r *FactoryRegistry) Register(name string, f StepFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Find returns the factory bound to name.
func (r *FactoryRegistry) Find(name string) (StepFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// NullStep is the terminal no-op step.
type NullStep struct{}

func (NullStep) Name() string               { return NullStepName }
func (NullStep) ShouldSkip() bool           { return false }
func (NullStep) ShouldPassToNextStep() bool { return true }
