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
	"time"

	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/sentry/arch"
	"gvisor.dev/sigcore/pkg/sentry/ktime"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/sync"
)

// noAlarm is the deadline of a disarmed timer.
var noAlarm = ktime.MaxTime

// IntervalTimer implements one setitimer(2) timer. A dedicated worker thread,
// started on first use, sleeps until the deadline and raises the timer's
// signal at the thread that armed it.
type IntervalTimer struct {
	k *Kernel

	// sig is raised on expiry.
	sig linux.Signal

	// name names the worker thread.
	name string

	// label is the metric field value for this timer.
	label string

	// kick wakes the worker after the state below changes.
	kick chan struct{}

	// mu protects the fields below.
	mu sync.Mutex

	// due is the next expiration, or noAlarm when disarmed.
	//
	// +checklocks:mu
	due ktime.Time

	// interval is the period of a repeating timer; zero for one-shot.
	//
	// +checklocks:mu
	interval time.Duration

	// owner is the thread that armed the timer and receives its signal.
	//
	// +checklocks:mu
	owner *sched.Thread

	// gen is incremented every time the timer is disarmed, so that the
	// worker can tell a genuine expiry from a wakeup for a stale setting.
	//
	// +checklocks:mu
	gen uint64

	// worker is the thread that raises the signal, or nil before first use.
	//
	// +checklocks:mu
	worker *sched.Thread
}

func newIntervalTimer(k *Kernel, sig linux.Signal, name string) *IntervalTimer {
	label := "real"
	if sig == linux.SIGVTALRM {
		label = "virtual"
	}
	return &IntervalTimer{
		k:     k,
		sig:   sig,
		name:  name,
		label: label,
		kick:  make(chan struct{}, 1),
		due:   noAlarm,
	}
}

// Signal returns the signal raised on expiry.
func (it *IntervalTimer) Signal() linux.Signal {
	return it.sig
}

// Set arms the timer on behalf of caller with val, or disarms it if
// val.Value is zero, and returns the previous setting.
func (it *IntervalTimer) Set(caller *sched.Thread, val linux.ItimerVal) (linux.ItimerVal, error) {
	if caller == nil || !val.Value.Valid() || !val.Interval.Valid() {
		return linux.ItimerVal{}, linuxerr.EINVAL
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	now := it.k.clock.Now()
	old := it.getLocked(now)
	it.cancelLocked()
	if !val.Value.IsZero() {
		it.interval = val.Interval.ToDuration()
		it.due = now.Add(val.Value.ToDuration())
		it.owner = caller
		it.startWorkerLocked()
	}
	it.kickLocked()
	return old, nil
}

// Get returns the current setting. A disarmed timer reports zero.
func (it *IntervalTimer) Get() linux.ItimerVal {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.getLocked(it.k.clock.Now())
}

// +checklocks:it.mu
func (it *IntervalTimer) getLocked(now ktime.Time) linux.ItimerVal {
	if it.due == noAlarm {
		return linux.ItimerVal{}
	}
	remaining := it.due.Sub(now)
	if remaining <= 0 {
		// Expired, but the worker has not run yet. Report the smallest
		// non-zero value so that the timer still reads as armed.
		remaining = time.Microsecond
	}
	return linux.ItimerVal{
		Interval: linux.DurationToTimeval(it.interval),
		Value:    linux.DurationToTimeval(remaining),
	}
}

// CancelThread disarms the timer if t armed it. It is called when t exits so
// that a dead thread's alarm cannot fire.
func (it *IntervalTimer) CancelThread(t *sched.Thread) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.owner == t {
		it.cancelLocked()
		it.kickLocked()
	}
}

// +checklocks:it.mu
func (it *IntervalTimer) cancelLocked() {
	it.due = noAlarm
	it.interval = 0
	it.owner = nil
	it.gen++
}

// +checklocks:it.mu
func (it *IntervalTimer) kickLocked() {
	select {
	case it.kick <- struct{}{}:
	default:
	}
}

// +checklocks:it.mu
func (it *IntervalTimer) startWorkerLocked() {
	if it.worker != nil {
		return
	}
	it.worker = it.k.sched.NewThread(it.name, it.work)
	it.k.masks.get(it.worker).block(^linux.SignalSet(0))
	it.worker.Start()
}

// stop kills the worker, if any.
func (it *IntervalTimer) stop() {
	it.mu.Lock()
	w := it.worker
	it.mu.Unlock()
	if w != nil {
		w.Kill()
		<-w.Done()
	}
}

// work is the body of the worker thread.
func (it *IntervalTimer) work(t *sched.Thread) {
	done := t.Context().Done()
	it.mu.Lock()
	defer it.mu.Unlock()
	for {
		if it.due == noAlarm {
			it.mu.Unlock()
			select {
			case <-it.kick:
			case <-done:
				it.mu.Lock()
				return
			}
			it.mu.Lock()
			continue
		}

		gen := it.gen
		if d := it.due.Sub(it.k.clock.Now()); d > 0 {
			timer := it.k.clock.NewTimer(d)
			it.mu.Unlock()
			select {
			case <-timer.C():
			case <-it.kick:
				timer.Stop()
			case <-done:
				timer.Stop()
				it.mu.Lock()
				return
			}
			it.mu.Lock()
			if it.gen != gen {
				// Set or cancelled while we slept.
				continue
			}
			if it.k.clock.Now().Before(it.due) {
				// Stale kick.
				continue
			}
		}

		owner := it.owner
		if it.interval > 0 {
			it.due = it.k.clock.Now().Add(it.interval)
		} else {
			it.due = noAlarm
		}
		itimerExpirations.Increment(it.label)
		if err := it.k.sendSignal(t, owner, it.sig, arch.SignalInfoTimer); err != nil {
			log.Debugf("%s: failed to send %v to %v: %v", it.name, it.sig, owner, err)
		}
	}
}

// timer returns the IntervalTimer selected by which.
func (k *Kernel) timer(which int32) (*IntervalTimer, error) {
	switch which {
	case linux.ITIMER_REAL:
		return k.realTimer, nil
	case linux.ITIMER_VIRTUAL:
		return k.virtualTimer, nil
	default:
		return nil, linuxerr.EINVAL
	}
}

// Setitimer implements setitimer(2). ITIMER_REAL and ITIMER_VIRTUAL are
// supported, and both count time on the kernel's clock.
func (k *Kernel) Setitimer(caller *sched.Thread, which int32, val linux.ItimerVal) (linux.ItimerVal, error) {
	it, err := k.timer(which)
	if err != nil {
		return linux.ItimerVal{}, err
	}
	return it.Set(caller, val)
}

// Getitimer implements getitimer(2).
func (k *Kernel) Getitimer(which int32) (linux.ItimerVal, error) {
	it, err := k.timer(which)
	if err != nil {
		return linux.ItimerVal{}, err
	}
	return it.Get(), nil
}

// Release stops the interval timer workers. The Kernel must not be used
// afterwards.
func (k *Kernel) Release() {
	k.realTimer.stop()
	k.virtualTimer.stop()
}
