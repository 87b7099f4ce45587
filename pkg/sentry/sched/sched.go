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

// Package sched provides the cooperative threads that the signal core
// delivers to.
//
// A Thread is a goroutine with an identity. Since goroutines carry no ambient
// identity, callers always pass the *Thread they are running on explicitly.
// Threads block with WaitUntil, which re-evaluates a predicate every time the
// thread is woken, and exit either by returning from their body or, for
// adopted goroutines, by calling Exit.
package sched

import (
	"sort"

	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/sync"
)

// Scheduler tracks live threads and the callbacks run when they exit.
type Scheduler struct {
	// mu protects the fields below.
	mu sync.Mutex

	// nextID is the ID assigned to the next thread.
	nextID ThreadID

	// threads contains all live threads, keyed by ID.
	threads map[ThreadID]*Thread

	// notifiers are invoked, in registration order, on every thread exit.
	notifiers []func(*Thread)
}

// New returns an empty Scheduler.
func New() *Scheduler {
	return &Scheduler{
		nextID:  1,
		threads: make(map[ThreadID]*Thread),
	}
}

// NewThread creates a thread that will run fn once started. The thread is
// visible to ForEachThread from the moment NewThread returns, so that signal
// state can be configured before it runs.
func (s *Scheduler) NewThread(name string, fn func(t *Thread)) *Thread {
	t := newThread(s, name, fn)
	s.register(t)
	return t
}

// Adopt registers the calling goroutine as a thread. The caller must call
// Exit on the returned thread once it is done.
func (s *Scheduler) Adopt(name string) *Thread {
	t := newThread(s, name, nil)
	t.started.Store(true)
	s.register(t)
	return t
}

func (s *Scheduler) register(t *Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.id = s.nextID
	s.nextID++
	s.threads[t.id] = t
	log.Debugf("Thread %v (%s) created", t.id, t.name)
}

// RegisterExitNotifier adds f to the callbacks run on every thread exit. f
// runs on the exiting thread after it has been removed from the thread table.
func (s *Scheduler) RegisterExitNotifier(f func(t *Thread)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, f)
}

// Threads returns a snapshot of all live threads, ordered by ID.
func (s *Scheduler) Threads() []*Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := make([]*Thread, 0, len(s.threads))
	for _, t := range s.threads {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].id < ts[j].id })
	return ts
}

// ForEachThread calls f for every live thread until f returns false. The
// enumeration works on a snapshot and f may call back into the Scheduler.
func (s *Scheduler) ForEachThread(f func(t *Thread) bool) {
	for _, t := range s.Threads() {
		if !f(t) {
			return
		}
	}
}

// ThreadWithID returns the live thread with the given ID, or nil.
func (s *Scheduler) ThreadWithID(id ThreadID) *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threads[id]
}

// Count returns the number of live threads.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// exit removes t from the thread table and runs the exit notifiers.
func (s *Scheduler) exit(t *Thread) {
	s.mu.Lock()
	delete(s.threads, t.id)
	notifiers := append(([]func(*Thread))(nil), s.notifiers...)
	s.mu.Unlock()

	for _, f := range notifiers {
		f(t)
	}
	log.Debugf("Thread %v (%s) exited", t.id, t.name)
}
