// Copyright 2024 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ktime

import (
	"time"

	"gvisor.dev/sigcore/pkg/sync"
)

// ManualClock is a Clock whose time only moves when Advance is called. It is
// used to drive timers deterministically in tests.
type ManualClock struct {
	mu     sync.Mutex
	now    Time
	timers map[*manualTimer]struct{}
}

// NewManualClock returns a ManualClock at ZeroTime.
func NewManualClock() *ManualClock {
	return &ManualClock{timers: make(map[*manualTimer]struct{})}
}

// Now implements Clock.Now.
func (c *ManualClock) Now() Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NewTimer implements Clock.NewTimer.
func (c *ManualClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{
		clock:    c,
		deadline: c.now.Add(d),
		ch:       make(chan struct{}, 1),
	}
	if d <= 0 {
		t.ch <- struct{}{}
		return t
	}
	c.timers[t] = struct{}{}
	return t
}

// Advance moves the clock forward by d and fires every timer whose deadline
// has been reached.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for t := range c.timers {
		if !t.deadline.After(c.now) {
			delete(c.timers, t)
			t.ch <- struct{}{}
		}
	}
}

// PendingTimers returns the number of timers that have not fired or been
// stopped.
func (c *ManualClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

type manualTimer struct {
	clock    *ManualClock
	deadline Time
	ch       chan struct{}
}

// C implements Timer.C.
func (t *manualTimer) C() <-chan struct{} {
	return t.ch
}

// Stop implements Timer.Stop.
func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if _, ok := t.clock.timers[t]; !ok {
		return false
	}
	delete(t.clock.timers, t)
	return true
}
