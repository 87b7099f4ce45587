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

// Package kernel implements signal delivery for threads scheduled by package
// sched, together with the interval timers that raise SIGALRM and SIGVTALRM.
//
// Lock order (outermost locks must be taken first):
//
//	IntervalTimer.mu
//	  signalWaiters.mu
//	  sched.Scheduler.mu
//	  signalMasks.mu
//
// signalWaiters.mu, sched.Scheduler.mu and signalMasks.mu are leaf locks:
// none is held while another is acquired. Per-thread blocked and pending
// sets are atomic and require no lock.
package kernel

import (
	"os"
	"time"

	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/sentry/ktime"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/sync"
)

// DefaultPID is the process ID reported by Getpid when Options.PID is unset.
const DefaultPID = 1

// blockedLogInterval bounds how often the "blocked by every thread"
// diagnostic is emitted.
const blockedLogInterval = time.Second

// Options configures a Kernel. The zero value is usable.
type Options struct {
	// Scheduler owns the threads signals are delivered to. If nil, a new
	// Scheduler is created.
	Scheduler *sched.Scheduler

	// PID is the ID of the single process. If zero, DefaultPID is used.
	PID int32

	// Clock drives interval timers. If nil, a ktime.MonotonicClock is used.
	Clock ktime.Clock

	// Executor runs handler work items. If nil, every item runs on a new
	// detached thread.
	Executor Executor

	// Abort is called for a fatal default action. If nil, the process
	// exits with status 128+sig.
	Abort func(sig linux.Signal)
}

// Kernel is the signal core of a single process.
type Kernel struct {
	sched    *sched.Scheduler
	pid      int32
	clock    ktime.Clock
	executor Executor
	abort    func(sig linux.Signal)

	// masks holds the per-thread blocked and pending sets.
	masks signalMasks

	// actions is the process-wide disposition table.
	actions sigactions

	// waiters tracks threads blocked in Sigwait.
	waiters signalWaiters

	// realTimer and virtualTimer implement ITIMER_REAL and ITIMER_VIRTUAL.
	realTimer    *IntervalTimer
	virtualTimer *IntervalTimer

	// blockedLog rate limits the diagnostic emitted when no thread accepts
	// a signal.
	blockedLog log.Logger

	// externalOnce guards creation of external.
	externalOnce sync.Once

	// external is the thread on whose behalf host signals are raised.
	external *sched.Thread
}

// New returns a Kernel configured by opts. It registers the thread-exit hook
// with the scheduler.
func New(opts Options) *Kernel {
	k := &Kernel{
		sched:      opts.Scheduler,
		pid:        opts.PID,
		clock:      opts.Clock,
		executor:   opts.Executor,
		abort:      opts.Abort,
		blockedLog: log.BasicRateLimitedLogger(blockedLogInterval),
	}
	if k.sched == nil {
		k.sched = sched.New()
	}
	if k.pid == 0 {
		k.pid = DefaultPID
	}
	if k.clock == nil {
		k.clock = ktime.NewMonotonicClock()
	}
	if k.executor == nil {
		k.executor = &threadExecutor{k: k}
	}
	if k.abort == nil {
		k.abort = abortProcess
	}
	k.masks.init()
	k.realTimer = newIntervalTimer(k, linux.SIGALRM, "itimer-real")
	k.virtualTimer = newIntervalTimer(k, linux.SIGVTALRM, "itimer-virt")
	k.sched.RegisterExitNotifier(k.threadExited)
	return k
}

// Scheduler returns the scheduler whose threads k delivers signals to.
func (k *Kernel) Scheduler() *sched.Scheduler {
	return k.sched
}

// Clock returns the clock that drives interval timers.
func (k *Kernel) Clock() ktime.Clock {
	return k.clock
}

// Getpid returns the ID of the single process.
func (k *Kernel) Getpid() int32 {
	return k.pid
}

// threadExited is the scheduler exit hook. It purges t from the waiter
// registry, disarms timers t owns and drops its signal masks.
func (k *Kernel) threadExited(t *sched.Thread) {
	k.waiters.removeAll(t)
	k.realTimer.CancelThread(t)
	k.virtualTimer.CancelThread(t)
	k.masks.drop(t)
}

// abortProcess is the default fatal action.
func abortProcess(sig linux.Signal) {
	os.Exit(128 + int(sig))
}
