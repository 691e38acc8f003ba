// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package auth

import (
	"github.com/playgate/playgate/internal/bus"
	"github.com/playgate/playgate/internal/platform"
)

// Event names published by the authentication core.
const (
	EventStepRequested = "auth.step.requested"
	EventStepChanged   = "auth.step.changed"
	EventStateCleared  = "auth.state.cleared"
	EventSessionEnter  = "auth.session.enter"
)

// StepRequestedEvent is published before a transition is attempted.
// Cancelling it aborts the transition with no state change.
type StepRequestedEvent struct {
	bus.CancelState
	Account *Account
}

func (*StepRequestedEvent) EventName() string { return EventStepRequested }

// StepChangedEvent is published after the next step has been constructed
// but before it is committed. Cancelling it discards the new step and
// leaves the account untouched.
type StepChangedEvent struct {
	bus.CancelState
	Account *Account
	Old     Step
	New     Step
}

func (*StepChangedEvent) EventName() string { return EventStepChanged }

// StateClearedEvent is published when an authenticating account is removed
// from the bucket, before the removal takes effect. Not cancellable.
type StateClearedEvent struct {
	Account  *Account
	PlayerID string
}

func (*StateClearedEvent) EventName() string { return EventStateCleared }

// SessionEnterEvent is published when a returning player qualifies for a
// session auto-reconnect. Cancelling it forces full re-authentication.
type SessionEnterEvent struct {
	bus.CancelState
	Account *Account
	Player  platform.Player
}

func (*SessionEnterEvent) EventName() string { return EventSessionEnter }
