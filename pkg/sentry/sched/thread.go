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

package sched

import (
	"context"
	"errors"
	"fmt"

	"gvisor.dev/sigcore/pkg/atomicbitops"
	"gvisor.dev/sigcore/pkg/sync"
)

// ErrExiting is returned by WaitUntil when the thread has been killed.
var ErrExiting = errors.New("thread is exiting")

// ThreadID is a thread identifier, unique within a Scheduler.
type ThreadID int32

// String returns a decimal representation of the ThreadID.
func (tid ThreadID) String() string {
	return fmt.Sprintf("%d", tid)
}

// Thread is a schedulable unit of execution.
type Thread struct {
	s    *Scheduler
	id   ThreadID
	name string
	fn   func(*Thread)

	// wakeCh holds at most one pending wakeup, so a Wake that races with
	// the predicate check in WaitUntil is never lost.
	wakeCh chan struct{}

	// ctx is cancelled by Kill.
	ctx    context.Context
	cancel context.CancelFunc

	// interrupted is set when a handler has been dispatched on behalf of
	// this thread.
	interrupted atomicbitops.Bool

	started    atomicbitops.Bool
	exited     atomicbitops.Bool
	exitOnce   sync.Once
	exitedChan chan struct{}
}

func newThread(s *Scheduler, name string, fn func(*Thread)) *Thread {
	ctx, cancel := context.WithCancel(context.Background())
	return &Thread{
		s:          s,
		name:       name,
		fn:         fn,
		wakeCh:     make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		exitedChan: make(chan struct{}),
	}
}

// ID returns the thread's ID.
func (t *Thread) ID() ThreadID {
	return t.id
}

// Name returns the name the thread was created with.
func (t *Thread) Name() string {
	return t.name
}

// String implements fmt.Stringer.
func (t *Thread) String() string {
	return fmt.Sprintf("%s[%v]", t.name, t.id)
}

// Scheduler returns the Scheduler that owns t.
func (t *Thread) Scheduler() *Scheduler {
	return t.s
}

// Context returns a context that is cancelled when the thread is killed.
func (t *Thread) Context() context.Context {
	return t.ctx
}

// Start runs the thread body on a new goroutine. The thread exits when the
// body returns. Start panics if called twice or on an adopted thread.
func (t *Thread) Start() {
	if t.started.Swap(true) {
		panic(fmt.Sprintf("thread %v started twice", t))
	}
	go func() {
		defer t.Exit()
		t.fn(t)
	}()
}

// Wake causes a concurrent or future WaitUntil on t to re-evaluate its
// predicate. Waking an exited thread is a no-op.
func (t *Thread) Wake() {
	select {
	case t.wakeCh <- struct{}{}:
	default:
	}
}

// WaitUntil blocks until pred returns true. pred is evaluated on t, first
// immediately and then after every Wake. It returns ErrExiting if t is killed
// before pred is satisfied.
//
// Preconditions: t is the calling thread.
func (t *Thread) WaitUntil(pred func() bool) error {
	for {
		if pred() {
			return nil
		}
		select {
		case <-t.wakeCh:
		case <-t.ctx.Done():
			return ErrExiting
		}
	}
}

// Kill asks the thread to exit. Blocking waits return ErrExiting; the thread
// body is expected to return promptly afterwards.
func (t *Thread) Kill() {
	t.cancel()
}

// Killed returns true if Kill has been called.
func (t *Thread) Killed() bool {
	return t.ctx.Err() != nil
}

// Exit tears the thread down: it is removed from the scheduler, exit
// notifiers run, and Exited becomes true. Exit is idempotent. Threads created
// by NewThread exit automatically when their body returns.
func (t *Thread) Exit() {
	t.exitOnce.Do(func() {
		t.exited.Store(true)
		t.cancel()
		t.s.exit(t)
		close(t.exitedChan)
	})
}

// Exited returns true once Exit has begun.
func (t *Thread) Exited() bool {
	return t.exited.Load()
}

// Done returns a channel that is closed once the thread has fully exited.
func (t *Thread) Done() <-chan struct{} {
	return t.exitedChan
}

// SetInterrupted marks the thread interrupted and wakes it.
func (t *Thread) SetInterrupted() {
	t.interrupted.Store(true)
	t.Wake()
}

// ClearInterrupted clears the interrupted mark and returns its old value.
func (t *Thread) ClearInterrupted() bool {
	return t.interrupted.Swap(false)
}

// Interrupted returns true if the thread is marked interrupted.
func (t *Thread) Interrupted() bool {
	return t.interrupted.Load()
}
