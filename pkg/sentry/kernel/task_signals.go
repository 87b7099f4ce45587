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
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/sentry/arch"
	"gvisor.dev/sigcore/pkg/sentry/sched"
)

// SendSignal raises sig on behalf of caller. If target is nil the signal is
// directed at any thread: a thread blocked in Sigwait on sig is preferred,
// then any thread that does not block sig. Which thread is chosen among
// several candidates is unspecified. If every thread blocks sig, it is left
// pending on caller.
//
// An unblocked signal is dispatched before SendSignal returns, although a
// handler body runs asynchronously.
func (k *Kernel) SendSignal(caller, target *sched.Thread, sig linux.Signal) error {
	return k.sendSignal(caller, target, sig, arch.SignalInfoUser)
}

func (k *Kernel) sendSignal(caller, target *sched.Thread, sig linux.Signal, code int32) error {
	if !sig.IsValid() || caller == nil {
		return linuxerr.EINVAL
	}
	waiting := false
	if target == nil {
		if w := k.waiters.first(sig); w != nil {
			target = w
			waiting = true
		} else {
			target = k.findUnblocked(sig)
		}
		if target == nil {
			blockedGloballyCount.Increment()
			k.blockedLog.Warningf("Signal %v is blocked by every thread; leaving it pending on %v", sig, caller)
			target = caller
		}
	} else {
		if target.Exited() {
			return linuxerr.ESRCH
		}
		waiting = target != caller && k.waiters.isWaiting(target, sig)
	}
	sentCount.Increment()

	ts := k.masks.get(target)
	ts.setPending(sig, code)
	switch {
	case waiting:
		target.Wake()
	case !ts.isBlocked(sig):
		k.completeSignal(target, sig)
	}
	return nil
}

// findUnblocked returns a live thread that does not block sig, or nil.
func (k *Kernel) findUnblocked(sig linux.Signal) *sched.Thread {
	var found *sched.Thread
	k.sched.ForEachThread(func(t *sched.Thread) bool {
		if t.Exited() || k.masks.get(t).isBlocked(sig) {
			return true
		}
		found = t
		return false
	})
	return found
}

// SetSignalMask changes t's blocked set as sigprocmask(2) does and returns the
// previous set. Unblocking a pending signal dispatches it before
// SetSignalMask returns.
func (k *Kernel) SetSignalMask(t *sched.Thread, how int, set linux.SignalSet) (linux.SignalSet, error) {
	if t == nil {
		return 0, linuxerr.EINVAL
	}
	ts := k.masks.get(t)
	old := ts.blockedSet()
	switch how {
	case linux.SIG_BLOCK:
		ts.block(set)
	case linux.SIG_UNBLOCK:
		k.unblock(t, ts, set)
	case linux.SIG_SETMASK:
		ts.block(set)
		k.unblock(t, ts, ^set)
	default:
		return 0, linuxerr.EINVAL
	}
	return old, nil
}

// unblock removes set from t's blocked set, completing every signal that was
// blocked and is pending.
func (k *Kernel) unblock(t *sched.Thread, ts *threadSignals, set linux.SignalSet) {
	linux.ForEachSignal(set, func(sig linux.Signal) {
		if !ts.isBlocked(sig) {
			return
		}
		ts.unblock(linux.SignalSetOf(sig))
		if ts.isPending(sig) {
			k.completeSignal(t, sig)
		}
	})
}

// SignalMask returns t's blocked set, or an empty set if t is nil.
func (k *Kernel) SignalMask(t *sched.Thread) linux.SignalSet {
	if t == nil {
		return 0
	}
	return k.masks.get(t).blockedSet()
}

// PendingSignals returns t's pending set, or an empty set if t is nil.
func (k *Kernel) PendingSignals(t *sched.Thread) linux.SignalSet {
	if t == nil {
		return 0
	}
	return k.masks.get(t).pendingSet()
}

// Sigwait blocks t until a signal in set is pending for it, clears that
// signal and returns it. If several are pending, the lowest-numbered one is
// returned. An empty set or a nil t returns EINVAL. If t is killed while waiting,
// Sigwait returns sched.ErrExiting.
//
// Preconditions: t is the calling thread.
func (k *Kernel) Sigwait(t *sched.Thread, set linux.SignalSet) (linux.Signal, error) {
	if t == nil || set == 0 {
		return 0, linuxerr.EINVAL
	}
	ts := k.masks.get(t)
	if sig := ts.takeFirstPending(set); sig != 0 {
		return sig, nil
	}

	linux.ForEachSignal(set, func(sig linux.Signal) {
		k.waiters.add(sig, t)
	})
	defer linux.ForEachSignal(set, func(sig linux.Signal) {
		k.waiters.remove(sig, t)
	})

	var got linux.Signal
	if err := t.WaitUntil(func() bool {
		got = ts.takeFirstPending(set)
		return got != 0
	}); err != nil {
		return 0, err
	}
	sigwaitWakeups.Increment()
	return got, nil
}

// Pause blocks t until a handler is dispatched on its behalf, then returns
// EINTR.
//
// Preconditions: t is the calling thread.
func (k *Kernel) Pause(t *sched.Thread) error {
	if t == nil {
		return linuxerr.EINVAL
	}
	t.ClearInterrupted()
	if err := t.WaitUntil(t.Interrupted); err != nil {
		return err
	}
	return linuxerr.EINTR
}
