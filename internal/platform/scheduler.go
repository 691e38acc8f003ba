// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package platform

import (
	"sync"
	"time"
)

// TimerScheduler is a timer-backed Scheduler for hosts without a native
// task system. Stop cancels every outstanding task.
type TimerScheduler struct {
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewTimerScheduler creates a running scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{done: make(chan struct{})}
}

// Once runs fn after delay unless cancelled or stopped first.
func (s *TimerScheduler) Once(delay time.Duration, fn func()) Task {
	stop := make(chan struct{})
	timer := time.AfterFunc(delay, func() {
		select {
		case <-s.done:
		case <-stop:
		default:
			fn()
		}
	})
	return &timerTask{timer: timer, stop: stop}
}

// Repeat runs fn every period after an initial delay.
func (s *TimerScheduler) Repeat(delay, period time.Duration, fn func()) Task {
	stop := make(chan struct{})
	go func() {
		initial := time.NewTimer(delay)
		defer initial.Stop()

		select {
		case <-initial.C:
		case <-stop:
			return
		case <-s.done:
			return
		}
		fn()

		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			case <-s.done:
				return
			}
		}
	}()
	return &chanTask{stop: stop}
}

// Async runs fn on its own goroutine. Cancel is a no-op once fn has
// started.
func (s *TimerScheduler) Async(fn func()) Task {
	stop := make(chan struct{})
	go func() {
		select {
		case <-stop:
		case <-s.done:
		default:
			fn()
		}
	}()
	return &chanTask{stop: stop}
}

// Stop cancels all outstanding tasks. The scheduler is unusable afterwards.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

type timerTask struct {
	timer *time.Timer
	once  sync.Once
	stop  chan struct{}
}

func (t *timerTask) Cancel() {
	t.once.Do(func() {
		close(t.stop)
		t.timer.Stop()
	})
}

type chanTask struct {
	once sync.Once
	stop chan struct{}
}

func (t *chanTask) Cancel() {
	t.once.Do(func() { close(t.stop) })
}
