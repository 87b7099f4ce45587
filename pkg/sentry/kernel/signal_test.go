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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/sentry/arch"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/test/testutil"
)

func TestBlockedSignalStaysPending(t *testing.T) {
	for _, sig := range []linux.Signal{linux.SIGUSR1, linux.SIGTERM, linux.SIGCHLD, linux.Signal(linux.SignalMaximum)} {
		t.Run(sig.String(), func(t *testing.T) {
			k := newTestKernel(t)
			n, h := counter()
			mustSetHandler(t, k.Kernel, sig, SigAction{Kind: SigActionHandler, Handler: h})
			mustBlock(t, k.Kernel, k.main, sig)

			if err := k.SendSignal(k.main, k.main, sig); err != nil {
				t.Fatalf("SendSignal failed: %v", err)
			}
			if got, want := k.PendingSignals(k.main), linux.SignalSetOf(sig); got != want {
				t.Errorf("PendingSignals = %#x, want %#x", got, want)
			}
			time.Sleep(10 * time.Millisecond)
			if got := n.Load(); got != 0 {
				t.Errorf("handler ran %d times while blocked", got)
			}
		})
	}
}

func TestUnblockDispatchesOnce(t *testing.T) {
	k := newTestKernel(t)
	n, h := counter()
	mustSetHandler(t, k.Kernel, linux.SIGUSR1, SigAction{Kind: SigActionHandler, Handler: h})
	mustBlock(t, k.Kernel, k.main, linux.SIGUSR1)
	if err := k.SendSignal(k.main, k.main, linux.SIGUSR1); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}

	set := linux.SignalSetOf(linux.SIGUSR1)
	old, err := k.SetSignalMask(k.main, linux.SIG_UNBLOCK, set)
	if err != nil {
		t.Fatalf("SetSignalMask(SIG_UNBLOCK) failed: %v", err)
	}
	if old != set {
		t.Errorf("old mask = %#x, want %#x", old, set)
	}
	if got := k.PendingSignals(k.main); got != 0 {
		t.Errorf("PendingSignals after unblock = %#x, want 0", got)
	}
	waitForCount(t, n, 1)

	// Unblocking again is a no-op.
	if _, err := k.SetSignalMask(k.main, linux.SIG_UNBLOCK, set); err != nil {
		t.Fatalf("SetSignalMask(SIG_UNBLOCK) failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Errorf("handler ran %d times, want 1", got)
	}
}

func TestSetSignalMask(t *testing.T) {
	k := newTestKernel(t)
	a := linux.MakeSignalSet(linux.SIGUSR1, linux.SIGUSR2)
	b := linux.MakeSignalSet(linux.SIGUSR2, linux.SIGHUP)

	for _, tc := range []struct {
		name    string
		how     int
		set     linux.SignalSet
		wantOld linux.SignalSet
		want    linux.SignalSet
	}{
		{"block", linux.SIG_BLOCK, a, 0, a},
		{"block more", linux.SIG_BLOCK, b, a, a | b},
		{"unblock", linux.SIG_UNBLOCK, linux.SignalSetOf(linux.SIGUSR2), a | b, linux.MakeSignalSet(linux.SIGUSR1, linux.SIGHUP)},
		{"setmask", linux.SIG_SETMASK, b, linux.MakeSignalSet(linux.SIGUSR1, linux.SIGHUP), b},
		{"setmask empty", linux.SIG_SETMASK, 0, b, 0},
	} {
		old, err := k.SetSignalMask(k.main, tc.how, tc.set)
		if err != nil {
			t.Fatalf("%s: SetSignalMask failed: %v", tc.name, err)
		}
		if old != tc.wantOld {
			t.Errorf("%s: old = %#x, want %#x", tc.name, old, tc.wantOld)
		}
		if got := k.SignalMask(k.main); got != tc.want {
			t.Errorf("%s: mask = %#x, want %#x", tc.name, got, tc.want)
		}
	}

	if _, err := k.SetSignalMask(k.main, 3, a); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SetSignalMask(how=3) = %v, want EINVAL", err)
	}
}

func TestSetMaskDispatchesNewlyUnblocked(t *testing.T) {
	k := newTestKernel(t)
	n, h := counter()
	mustSetHandler(t, k.Kernel, linux.SIGUSR2, SigAction{Kind: SigActionHandler, Handler: h})
	mustBlock(t, k.Kernel, k.main, linux.SIGUSR1, linux.SIGUSR2)
	if err := k.SendSignal(k.main, k.main, linux.SIGUSR2); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	if _, err := k.SetSignalMask(k.main, linux.SIG_SETMASK, linux.SignalSetOf(linux.SIGUSR1)); err != nil {
		t.Fatalf("SetSignalMask failed: %v", err)
	}
	waitForCount(t, n, 1)
}

func TestDispositions(t *testing.T) {
	for _, tc := range []struct {
		name      string
		sig       linux.Signal
		act       *SigAction
		wantAbort []linux.Signal
	}{
		{name: "default ignored", sig: linux.SIGCHLD},
		{name: "default ignored winch", sig: linux.SIGWINCH},
		{name: "default fatal", sig: linux.SIGTERM, wantAbort: []linux.Signal{linux.SIGTERM}},
		{name: "ignore", sig: linux.SIGTERM, act: &SigAction{Kind: SigActionIgnore}},
		{name: "explicit default", sig: linux.SIGHUP, act: &SigAction{Kind: SigActionDefault}, wantAbort: []linux.Signal{linux.SIGHUP}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			k := newTestKernel(t)
			if tc.act != nil {
				mustSetHandler(t, k.Kernel, tc.sig, *tc.act)
			}
			if err := k.SendSignal(k.main, k.main, tc.sig); err != nil {
				t.Fatalf("SendSignal failed: %v", err)
			}
			if diff := cmp.Diff(tc.wantAbort, k.abortedWith()); diff != "" {
				t.Errorf("aborts mismatch (-want +got):\n%s", diff)
			}
			if got := k.PendingSignals(k.main); got != 0 {
				t.Errorf("PendingSignals = %#x, want 0", got)
			}
		})
	}
}

func TestSetSigAction(t *testing.T) {
	k := newTestKernel(t)
	_, h := counter()

	if _, err := k.SetSigAction(0, &SigAction{Kind: SigActionIgnore}); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SetSigAction(0) = %v, want EINVAL", err)
	}
	if _, err := k.SetSigAction(linux.SignalMaximum+1, &SigAction{Kind: SigActionIgnore}); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SetSigAction(65) = %v, want EINVAL", err)
	}
	if _, err := k.SetSigAction(linux.SIGUSR1, &SigAction{Kind: SigActionHandler}); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SetSigAction without a handler = %v, want EINVAL", err)
	}
	if _, err := k.SetSigAction(linux.SIGUSR1, &SigAction{Kind: SigActionHandler, Flags: linux.SA_SIGINFO, Handler: h}); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SetSigAction(SA_SIGINFO) with a classic handler = %v, want EINVAL", err)
	}

	act := SigAction{Kind: SigActionHandler, Handler: h, Flags: linux.SA_RESTART, Mask: linux.SignalSetOf(linux.SIGUSR2)}
	old, err := k.SetSigAction(linux.SIGUSR1, &act)
	if err != nil {
		t.Fatalf("SetSigAction failed: %v", err)
	}
	if old.Kind != SigActionDefault {
		t.Errorf("old disposition = %v, want default", old)
	}

	// A nil action only queries.
	got, err := k.SetSigAction(linux.SIGUSR1, nil)
	if err != nil {
		t.Fatalf("SetSigAction(nil) failed: %v", err)
	}
	if got.Kind != SigActionHandler || got.Flags != act.Flags || got.Mask != act.Mask || !got.IsRestart() {
		t.Errorf("SetSigAction(nil) = %v, want %v", got, act)
	}

	old, err = k.SetSigAction(linux.SIGUSR1, &SigAction{Kind: SigActionIgnore})
	if err != nil {
		t.Fatalf("SetSigAction failed: %v", err)
	}
	if old.Kind != SigActionHandler {
		t.Errorf("old disposition = %v, want handler", old)
	}
	if got := k.SigAction(linux.SIGUSR1).Kind; got != SigActionIgnore {
		t.Errorf("SigAction = %v, want ignore", got)
	}
}

func TestResetHandler(t *testing.T) {
	k := newTestKernel(t)
	n, h := counter()
	mustSetHandler(t, k.Kernel, linux.SIGUSR1, SigAction{Kind: SigActionHandler, Handler: h, Flags: linux.SA_RESETHAND})

	if err := k.SendSignal(k.main, k.main, linux.SIGUSR1); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	if got := k.SigAction(linux.SIGUSR1).Kind; got != SigActionDefault {
		t.Errorf("disposition after first delivery = %v, want default", got)
	}
	if err := k.SendSignal(k.main, k.main, linux.SIGUSR1); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	waitForCount(t, n, 1)
	if diff := cmp.Diff([]linux.Signal{linux.SIGUSR1}, k.abortedWith()); diff != "" {
		t.Errorf("aborts mismatch (-want +got):\n%s", diff)
	}
}

func TestHandlerInfo(t *testing.T) {
	k := newTestKernel(t)
	type call struct {
		Thread  string
		Signo   int32
		Code    int32
		PID     int32
		Oldmask linux.SignalSet
		Mask    linux.SignalSet
	}
	calls := make(chan call, 1)
	mustSetHandler(t, k.Kernel, linux.SIGUSR1, SigAction{
		Kind:  SigActionHandler,
		Flags: linux.SA_SIGINFO,
		Mask:  linux.SignalSetOf(linux.SIGHUP),
		SigInfoHandler: func(t *sched.Thread, info *arch.SignalInfo, ctx *arch.SignalContext) {
			calls <- call{
				Thread:  t.Name(),
				Signo:   info.Signo,
				Code:    info.Code,
				PID:     info.PID(),
				Oldmask: ctx.Oldmask,
				Mask:    k.SignalMask(t),
			}
		},
	})
	mustBlock(t, k.Kernel, k.main, linux.SIGUSR2)

	if err := k.SendSignal(k.main, k.main, linux.SIGUSR1); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	want := call{
		Thread:  "signal_handler",
		Signo:   int32(linux.SIGUSR1),
		Code:    arch.SignalInfoUser,
		PID:     DefaultPID,
		Oldmask: linux.SignalSetOf(linux.SIGUSR2),
		Mask:    linux.MakeSignalSet(linux.SIGHUP, linux.SIGUSR1),
	}
	select {
	case got := <-calls:
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("handler call mismatch (-want +got):\n%s", diff)
		}
	case <-time.After(pollTimeout):
		t.Fatal("handler did not run")
	}
}

func TestNoDeferHandlerMask(t *testing.T) {
	w := &HandlerWork{
		Signal: linux.SIGUSR1,
		Action: SigAction{Kind: SigActionHandler, Flags: linux.SA_NODEFER, Mask: linux.SignalSetOf(linux.SIGHUP)},
	}
	if got, want := w.HandlerMask(), linux.SignalSetOf(linux.SIGHUP); got != want {
		t.Errorf("HandlerMask with SA_NODEFER = %#x, want %#x", got, want)
	}
	w.Action.Flags = 0
	if got, want := w.HandlerMask(), linux.MakeSignalSet(linux.SIGHUP, linux.SIGUSR1); got != want {
		t.Errorf("HandlerMask = %#x, want %#x", got, want)
	}
}

type recordingExecutor struct {
	work chan *HandlerWork
}

func (e *recordingExecutor) Submit(w *HandlerWork) {
	e.work <- w
}

func TestCustomExecutor(t *testing.T) {
	e := &recordingExecutor{work: make(chan *HandlerWork, 1)}
	k := New(Options{Executor: e, PID: 42})
	main := k.Scheduler().Adopt("main")
	defer main.Exit()

	_, h := counter()
	mustSetHandler(t, k, linux.SIGUSR1, SigAction{Kind: SigActionHandler, Handler: h})
	if err := k.Kill(main, 42, linux.SIGUSR1); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}
	w := <-e.work
	if w.Target != main || w.Signal != linux.SIGUSR1 || w.Info.PID() != 42 {
		t.Errorf("got work {target %v, signal %v, pid %d}, want {%v, %v, 42}", w.Target, w.Signal, w.Info.PID(), main, linux.SIGUSR1)
	}
	if !main.Interrupted() {
		t.Errorf("target not marked interrupted")
	}
}

func TestAnyThreadPrefersUnblocked(t *testing.T) {
	k := newTestKernel(t)
	mustBlock(t, k.Kernel, k.main, linux.SIGUSR1)

	got := make(chan string, 1)
	mustSetHandler(t, k.Kernel, linux.SIGUSR1, SigAction{
		Kind:  SigActionHandler,
		Flags: linux.SA_SIGINFO,
		SigInfoHandler: func(_ *sched.Thread, _ *arch.SignalInfo, _ *arch.SignalContext) {
			got <- "ran"
		},
	})

	other := k.Scheduler().NewThread("other", func(t *sched.Thread) {
		<-t.Context().Done()
	})
	other.Start()
	defer func() {
		other.Kill()
		<-other.Done()
	}()

	if err := k.SendSignal(k.main, nil, linux.SIGUSR1); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	select {
	case <-got:
	case <-time.After(pollTimeout):
		t.Fatal("handler did not run")
	}
	if p := k.PendingSignals(k.main); p != 0 {
		t.Errorf("signal left pending on blocking thread: %#x", p)
	}
}

func TestBlockedEverywhereFallsBackToCaller(t *testing.T) {
	k := newTestKernel(t)
	mustBlock(t, k.Kernel, k.main, linux.SIGUSR2)
	before := blockedGloballyCount.Value()

	if err := k.SendSignal(k.main, nil, linux.SIGUSR2); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	if got, want := k.PendingSignals(k.main), linux.SignalSetOf(linux.SIGUSR2); got != want {
		t.Errorf("PendingSignals = %#x, want %#x", got, want)
	}
	if got := blockedGloballyCount.Value() - before; got != 1 {
		t.Errorf("blocked_globally increased by %d, want 1", got)
	}
}

func TestSendSignalErrors(t *testing.T) {
	k := newTestKernel(t)
	if err := k.SendSignal(k.main, k.main, 0); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SendSignal(0) = %v, want EINVAL", err)
	}
	if err := k.SendSignal(nil, k.main, linux.SIGUSR1); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SendSignal(nil caller) = %v, want EINVAL", err)
	}

	dead := k.Scheduler().NewThread("dead", func(*sched.Thread) {})
	dead.Start()
	<-dead.Done()
	if err := k.SendSignal(k.main, dead, linux.SIGUSR1); !linuxerr.Equals(linuxerr.ESRCH, err) {
		t.Errorf("SendSignal(exited target) = %v, want ESRCH", err)
	}
}

func TestNilThreadRejected(t *testing.T) {
	k := newTestKernel(t)
	set := linux.MakeSignalSet(linux.SIGUSR1)
	if _, err := k.SetSignalMask(nil, linux.SIG_BLOCK, set); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SetSignalMask(nil) = %v, want EINVAL", err)
	}
	if _, err := k.Sigwait(nil, set); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("Sigwait(nil) = %v, want EINVAL", err)
	}
	if err := k.Pause(nil); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("Pause(nil) = %v, want EINVAL", err)
	}
	if got := k.SignalMask(nil); got != 0 {
		t.Errorf("SignalMask(nil) = %#x, want 0", got)
	}
	if got := k.PendingSignals(nil); got != 0 {
		t.Errorf("PendingSignals(nil) = %#x, want 0", got)
	}
}

func TestDefaultIgnoredSignals(t *testing.T) {
	want := linux.MakeSignalSet(linux.SIGCHLD, linux.SIGCONT, linux.SIGURG, linux.SIGWINCH)
	if DefaultIgnoredSignals != want {
		t.Errorf("DefaultIgnoredSignals = %#x, want %#x", uint64(DefaultIgnoredSignals), uint64(want))
	}
}

func TestSigwaitPending(t *testing.T) {
	k := newTestKernel(t)
	mustBlock(t, k.Kernel, k.main, linux.SIGUSR1, linux.SIGUSR2, linux.SIGHUP)
	for _, sig := range []linux.Signal{linux.SIGUSR2, linux.SIGUSR1, linux.SIGHUP} {
		if err := k.SendSignal(k.main, k.main, sig); err != nil {
			t.Fatalf("SendSignal(%v) failed: %v", sig, err)
		}
	}

	// SIGHUP (1) < SIGUSR1 (10) < SIGUSR2 (12), but SIGHUP is not waited on.
	got, err := k.Sigwait(k.main, linux.MakeSignalSet(linux.SIGUSR1, linux.SIGUSR2))
	if err != nil {
		t.Fatalf("Sigwait failed: %v", err)
	}
	if got != linux.SIGUSR1 {
		t.Errorf("Sigwait = %v, want %v", got, linux.SIGUSR1)
	}
	if got, want := k.PendingSignals(k.main), linux.MakeSignalSet(linux.SIGUSR2, linux.SIGHUP); got != want {
		t.Errorf("PendingSignals = %#x, want %#x", got, want)
	}

	got, err = k.Sigwait(k.main, linux.MakeSignalSet(linux.SIGUSR2, linux.SIGHUP))
	if err != nil {
		t.Fatalf("Sigwait failed: %v", err)
	}
	if got != linux.SIGHUP {
		t.Errorf("Sigwait = %v, want %v", got, linux.SIGHUP)
	}

	if _, err := k.Sigwait(k.main, 0); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("Sigwait(empty) = %v, want EINVAL", err)
	}
}

func TestSigwaitWakeup(t *testing.T) {
	k := newTestKernel(t)
	before := sigwaitWakeups.Value()

	type result struct {
		sig linux.Signal
		err error
	}
	results := make(chan result, 1)
	waiter := k.Scheduler().NewThread("waiter", func(t *sched.Thread) {
		sig, err := k.Sigwait(t, linux.SignalSetOf(linux.SIGUSR1))
		results <- result{sig, err}
	})
	mustBlock(t, k.Kernel, waiter, linux.SIGUSR1)
	waiter.Start()

	if err := testutil.Eventually(func() bool {
		return k.waiters.isWaiting(waiter, linux.SIGUSR1)
	}, pollTimeout, "waiter registered"); err != nil {
		t.Fatal(err)
	}
	// The main thread does not block SIGUSR1, but the waiter is preferred.
	if err := k.SendSignal(k.main, nil, linux.SIGUSR1); err != nil {
		t.Fatalf("SendSignal failed: %v", err)
	}
	select {
	case r := <-results:
		if r.err != nil || r.sig != linux.SIGUSR1 {
			t.Errorf("Sigwait = (%v, %v), want (%v, nil)", r.sig, r.err, linux.SIGUSR1)
		}
	case <-time.After(pollTimeout):
		t.Fatal("Sigwait did not return")
	}
	<-waiter.Done()
	if diff := cmp.Diff([]linux.Signal(nil), k.abortedWith()); diff != "" {
		t.Errorf("aborts mismatch (-want +got):\n%s", diff)
	}
	if got := sigwaitWakeups.Value() - before; got != 1 {
		t.Errorf("sigwait_wakeups increased by %d, want 1", got)
	}
}

func TestSigwaitExitCleanup(t *testing.T) {
	k := newTestKernel(t)
	masks := k.masks.len()
	set := linux.MakeSignalSet(linux.SIGUSR1, linux.SIGUSR2)
	errs := make(chan error, 1)
	waiter := k.Scheduler().NewThread("waiter", func(t *sched.Thread) {
		_, err := k.Sigwait(t, set)
		errs <- err
	})
	mustBlock(t, k.Kernel, waiter, linux.SIGUSR1, linux.SIGUSR2)
	waiter.Start()

	if err := testutil.Eventually(func() bool {
		return k.waiters.waitingOn(waiter) == set
	}, pollTimeout, "waiter registered"); err != nil {
		t.Fatal(err)
	}
	waiter.Kill()
	<-waiter.Done()

	if err := <-errs; err != sched.ErrExiting {
		t.Errorf("Sigwait = %v, want %v", err, sched.ErrExiting)
	}
	for _, sig := range set.Signals() {
		if w := k.waiters.first(sig); w != nil {
			t.Errorf("waiter for %v still registered: %v", sig, w)
		}
	}
	if got := k.waiters.waitingOn(waiter); got != 0 {
		t.Errorf("waitingOn(exited) = %#x, want 0", got)
	}
	if got := k.masks.len(); got != masks {
		t.Errorf("mask store holds %d threads after exit, want %d", got, masks)
	}
}

func TestWaiterRegistryPurge(t *testing.T) {
	s := sched.New()
	a := s.Adopt("a")
	b := s.Adopt("b")
	defer a.Exit()
	defer b.Exit()

	var w signalWaiters
	w.add(linux.SIGUSR1, a)
	w.add(linux.SIGUSR1, a)
	w.add(linux.SIGUSR1, b)
	w.add(linux.SIGUSR2, a)

	if got := w.first(linux.SIGUSR1); got != b {
		t.Errorf("first(SIGUSR1) = %v, want %v", got, b)
	}
	w.removeAll(a)
	if got := w.waitingOn(a); got != 0 {
		t.Errorf("waitingOn(a) after removeAll = %#x, want 0", got)
	}
	if got := w.first(linux.SIGUSR1); got != b {
		t.Errorf("first(SIGUSR1) = %v, want %v", got, b)
	}
	w.remove(linux.SIGUSR1, b)
	if got := w.first(linux.SIGUSR1); got != nil {
		t.Errorf("first(SIGUSR1) = %v, want nil", got)
	}
}

func TestKill(t *testing.T) {
	k := newTestKernel(t)
	n, h := counter()
	mustSetHandler(t, k.Kernel, linux.SIGUSR1, SigAction{Kind: SigActionHandler, Handler: h})
	before := sentCount.Value()

	for _, pid := range []int32{k.Getpid(), 0, -1} {
		if err := k.Kill(k.main, pid, 0); err != nil {
			t.Errorf("Kill(%d, 0) = %v, want nil", pid, err)
		}
	}
	if got := sentCount.Value() - before; got != 0 {
		t.Errorf("signal 0 raised %d signals", got)
	}
	if got := k.PendingSignals(k.main); got != 0 {
		t.Errorf("PendingSignals = %#x, want 0", got)
	}

	if err := k.Kill(k.main, k.Getpid()+1, linux.SIGUSR1); !linuxerr.Equals(linuxerr.ESRCH, err) {
		t.Errorf("Kill(other pid) = %v, want ESRCH", err)
	}
	if err := k.Kill(k.main, 0, linux.SignalMaximum+1); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("Kill(invalid signal) = %v, want EINVAL", err)
	}
	if err := k.Kill(k.main, k.Getpid(), linux.SIGUSR1); err != nil {
		t.Fatalf("Kill failed: %v", err)
	}
	waitForCount(t, n, 1)
	if diff := cmp.Diff([]linux.Signal(nil), k.abortedWith()); diff != "" {
		t.Errorf("aborts mismatch (-want +got):\n%s", diff)
	}
}

func TestPause(t *testing.T) {
	k := newTestKernel(t)
	_, h := counter()
	mustSetHandler(t, k.Kernel, linux.SIGUSR1, SigAction{Kind: SigActionHandler, Handler: h})

	errs := make(chan error, 1)
	sleeper := k.Scheduler().NewThread("sleeper", func(t *sched.Thread) {
		errs <- k.Pause(t)
	})
	sleeper.Start()

	// Retry until the raise lands after Pause has cleared the flag.
	if err := testutil.Poll(func() error {
		if err := k.SendSignal(k.main, sleeper, linux.SIGUSR1); err != nil {
			return err
		}
		select {
		case err := <-errs:
			errs <- err
			return nil
		case <-time.After(10 * time.Millisecond):
			return linuxerr.EINTR
		}
	}, pollTimeout); err != nil {
		t.Fatalf("Pause did not return: %v", err)
	}
	if err := <-errs; !linuxerr.Equals(linuxerr.EINTR, err) {
		t.Errorf("Pause = %v, want EINTR", err)
	}
}

func TestSendExternalSignal(t *testing.T) {
	k := newTestKernel(t)
	n, h := counter()
	mustSetHandler(t, k.Kernel, linux.SIGHUP, SigAction{Kind: SigActionHandler, Handler: h})
	if err := k.SendExternalSignal(linux.SIGHUP); err != nil {
		t.Fatalf("SendExternalSignal failed: %v", err)
	}
	waitForCount(t, n, 1)
	if err := k.SendExternalSignal(0); !linuxerr.Equals(linuxerr.EINVAL, err) {
		t.Errorf("SendExternalSignal(0) = %v, want EINVAL", err)
	}
}

func TestDispatchMetrics(t *testing.T) {
	k := newTestKernel(t)
	mustSetHandler(t, k.Kernel, linux.SIGTERM, SigAction{Kind: SigActionIgnore})
	ignored := dispatchedCount.Value(dispatchIgnore)
	defaultIgnored := dispatchedCount.Value(dispatchDefaultIgnore)
	fatal := dispatchedCount.Value(dispatchFatal)

	for _, sig := range []linux.Signal{linux.SIGTERM, linux.SIGURG, linux.SIGINT} {
		if err := k.SendSignal(k.main, k.main, sig); err != nil {
			t.Fatalf("SendSignal(%v) failed: %v", sig, err)
		}
	}
	for _, tc := range []struct {
		action string
		before uint64
	}{
		{dispatchIgnore, ignored},
		{dispatchDefaultIgnore, defaultIgnored},
		{dispatchFatal, fatal},
	} {
		if got := dispatchedCount.Value(tc.action) - tc.before; got != 1 {
			t.Errorf("dispatched{%s} increased by %d, want 1", tc.action, got)
		}
	}
}
