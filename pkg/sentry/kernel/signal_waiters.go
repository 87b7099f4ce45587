// Copyright 2018 The gVisor Authors.
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

package kernel

import (
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/sync"
)

// signalWaiters tracks which threads are blocked in Sigwait, per signal.
type signalWaiters struct {
	// mu protects waiters.
	mu sync.Mutex

	// waiters holds, for each signal, the waiting threads with the most
	// recently registered first. A thread may wait on several signals.
	waiters [linux.SignalMaximum][]*sched.Thread
}

// add registers t as waiting for sig.
func (w *signalWaiters) add(sig linux.Signal, t *sched.Thread) {
	w.mu.Lock()
	defer w.mu.Unlock()
	l := w.waiters[sig.Index()]
	l = append(l, nil)
	copy(l[1:], l)
	l[0] = t
	w.waiters[sig.Index()] = l
}

// remove unregisters t from sig. Removing a thread that is not registered is
// a no-op.
func (w *signalWaiters) remove(sig linux.Signal, t *sched.Thread) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.removeLocked(sig.Index(), t)
}

// +checklocks:w.mu
func (w *signalWaiters) removeLocked(idx int, t *sched.Thread) {
	l := w.waiters[idx]
	for i, wt := range l {
		if wt == t {
			w.waiters[idx] = append(l[:i], l[i+1:]...)
			return
		}
	}
}

// first returns the most recently registered waiter for sig, or nil.
func (w *signalWaiters) first(sig linux.Signal) *sched.Thread {
	w.mu.Lock()
	defer w.mu.Unlock()
	if l := w.waiters[sig.Index()]; len(l) > 0 {
		return l[0]
	}
	return nil
}

// isWaiting returns true if t is registered as waiting for sig.
func (w *signalWaiters) isWaiting(t *sched.Thread, sig linux.Signal) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.containsLocked(sig.Index(), t)
}

// removeAll unregisters t from every signal.
func (w *signalWaiters) removeAll(t *sched.Thread) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for idx := range w.waiters {
		for w.containsLocked(idx, t) {
			w.removeLocked(idx, t)
		}
	}
}

// +checklocks:w.mu
func (w *signalWaiters) containsLocked(idx int, t *sched.Thread) bool {
	for _, wt := range w.waiters[idx] {
		if wt == t {
			return true
		}
	}
	return false
}

// waitingOn returns the signals t is registered for.
func (w *signalWaiters) waitingOn(t *sched.Thread) linux.SignalSet {
	w.mu.Lock()
	defer w.mu.Unlock()
	var set linux.SignalSet
	for idx := range w.waiters {
		if w.containsLocked(idx, t) {
			set |= linux.SignalSetOf(linux.Signal(idx + 1))
		}
	}
	return set
}
