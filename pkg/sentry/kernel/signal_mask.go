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
	"gvisor.dev/sigcore/pkg/atomicbitops"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/sync"
)

// threadSignals holds the signal state of a single thread. Every operation
// is an independent atomic bit operation and may be called from any thread.
type threadSignals struct {
	blocked atomicbitops.Uint64
	pending atomicbitops.Uint64

	// codes records the si_code of the most recent raise of each signal.
	codes [linux.SignalMaximum]atomicbitops.Int32
}

func (ts *threadSignals) blockedSet() linux.SignalSet {
	return linux.SignalSet(ts.blocked.Load())
}

func (ts *threadSignals) pendingSet() linux.SignalSet {
	return linux.SignalSet(ts.pending.Load())
}

func (ts *threadSignals) isBlocked(sig linux.Signal) bool {
	return ts.blockedSet().Has(sig)
}

func (ts *threadSignals) isPending(sig linux.Signal) bool {
	return ts.pendingSet().Has(sig)
}

func (ts *threadSignals) block(set linux.SignalSet) {
	ts.blocked.Or(uint64(set))
}

func (ts *threadSignals) unblock(set linux.SignalSet) {
	ts.blocked.And(^uint64(set))
}

// setPending marks sig pending. Setting an already pending signal only
// updates its code.
func (ts *threadSignals) setPending(sig linux.Signal, code int32) {
	ts.codes[sig.Index()].Store(code)
	ts.pending.Or(uint64(linux.SignalSetOf(sig)))
}

// testAndClearPending clears sig's pending bit. It returns false if the bit
// was already clear, in which case another caller owns the delivery.
func (ts *threadSignals) testAndClearPending(sig linux.Signal) (code int32, ok bool) {
	if ts.pending.TestAndClear(uint64(linux.SignalSetOf(sig))) == 0 {
		return 0, false
	}
	return ts.codes[sig.Index()].Load(), true
}

// takeFirstPending clears and returns the lowest-numbered signal that is
// pending and in set, or 0 if there is none.
func (ts *threadSignals) takeFirstPending(set linux.SignalSet) linux.Signal {
	for {
		sig := (ts.pendingSet() & set).Lowest()
		if sig == 0 {
			return 0
		}
		if _, ok := ts.testAndClearPending(sig); ok {
			return sig
		}
		// Lost a race with another consumer; look again.
	}
}

// signalMasks is the side table mapping threads to their signal state.
type signalMasks struct {
	// mu protects membership of threads, not the state itself.
	mu      sync.Mutex
	threads map[*sched.Thread]*threadSignals
}

func (m *signalMasks) init() {
	m.threads = make(map[*sched.Thread]*threadSignals)
}

// get returns t's signal state, creating it on first use. Exited threads get
// a detached state that is discarded, so an entry dropped on exit is never
// recreated.
func (m *signalMasks) get(t *sched.Thread) *threadSignals {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ts, ok := m.threads[t]; ok {
		return ts
	}
	ts := &threadSignals{}
	if !t.Exited() {
		m.threads[t] = ts
	}
	return ts
}

// drop forgets t's signal state.
func (m *signalMasks) drop(t *sched.Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.threads, t)
}

// len returns the number of threads with signal state.
func (m *signalMasks) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.threads)
}
