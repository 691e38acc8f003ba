// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package platform declares the contracts the hosting game-server platform
// implements. The authentication core never reaches for platform state
// directly; everything it needs from the server arrives through these
// interfaces.
package platform

import "time"

// Player is a connected player's handle.
type Player interface {
	// Name returns the player's nickname as presented on connect.
	Name() string

	// ID returns the platform's stable player identifier.
	ID() string

	// IP returns the player's remote address, without port.
	IP() string

	// SendMessage delivers a chat message to the player.
	SendMessage(text string)

	// Disconnect kicks the player with a localized reason.
	Disconnect(reason string)

	// IsOnline reports whether the connection is still present.
	IsOnline() bool
}

// ProgressDisplay is implemented by player handles that can render a
// transient progress indicator (action bar, boss bar, title). Handles
// without it simply get no countdown display.
type ProgressDisplay interface {
	// ShowProgress renders or replaces the indicator text.
	ShowProgress(text string)

	// ClearProgress removes the indicator.
	ClearProgress()
}

// Task is a cancellable handle for scheduled work.
type Task interface {
	Cancel()
}

// Scheduler provides periodic and delayed callbacks. Owned by the platform;
// the core only holds cancel handles.
type Scheduler interface {
	// Once runs fn after delay.
	Once(delay time.Duration, fn func()) Task

	// Repeat runs fn every period after an initial delay.
	Repeat(delay, period time.Duration, fn func()) Task

	// Async runs fn off the caller's goroutine.
	Async(fn func()) Task
}
