// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

// Package bus provides the synchronous domain notification bus.
//
// Publishers observe the outcome of every subscriber before proceeding:
// Publish returns only after all handlers for the event name have run, and
// the returned Result reports whether any of them cancelled the event.
// Cancellation is control flow, not an error.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Event is a domain notification. Names are stable strings; subscribers
// register against them.
type Event interface {
	EventName() string
}

// Cancellable is implemented by events whose effect listeners may veto.
type Cancellable interface {
	Event
	Cancel()
	Cancelled() bool
}

// CancelState is embedded by cancellable event types.
type CancelState struct {
	cancelled atomic.Bool
}

// Cancel marks the event as cancelled. Irreversible.
func (c *CancelState) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether any handler cancelled the event.
func (c *CancelState) Cancelled() bool { return c.cancelled.Load() }

// Result is the observed outcome of a publish.
type Result struct {
	event Event
}

// IsCancelled reports whether the published event was cancelled by a
// subscriber. Always false for non-cancellable events.
func (r Result) IsCancelled() bool {
	if c, ok := r.event.(Cancellable); ok {
		return c.Cancelled()
	}
	return false
}

// Handler receives a published event. Handlers run synchronously on the
// publisher's goroutine and must not block indefinitely.
type Handler func(ctx context.Context, e Event)

// Bus dispatches events to subscribers registered by event name.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]Handler
	logger *slog.Logger
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Bus{
		subs:   make(map[string][]Handler),
		logger: logger,
	}
}

// Subscribe registers a handler for an event name. Registration is
// synchronous; the handler receives every event published afterwards.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], h)
}

// Publish runs all handlers for the event in registration order and
// returns the result. A cancelled event still reaches the remaining
// handlers so every listener observes the full notification.
func (b *Bus) Publish(ctx context.Context, e Event) Result {
	b.mu.RLock()
	handlers := b.subs[e.EventName()]
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}

	if c, ok := e.(Cancellable); ok && c.Cancelled() {
		b.logger.Debug("event cancelled by subscriber", "event", e.EventName())
	}
	return Result{event: e}
}
