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

package scenario

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/sentry/kernel"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/sentry/sighandling"
	slinux "gvisor.dev/sigcore/pkg/sentry/syscalls/linux"
	"gvisor.dev/sigcore/pkg/sync"
)

// Report summarizes a run.
type Report struct {
	// Name is the scenario name.
	Name string

	// Handled counts handler invocations per signal.
	Handled map[linux.Signal]int

	// Waited lists, per waiter, the signals its sigwait calls returned.
	Waited map[string][]linux.Signal

	// Fatal is the signal whose default action terminated the run, or 0.
	Fatal linux.Signal

	// Elapsed is the wall time of the run.
	Elapsed time.Duration
}

// ExitStatus returns the status a shell would report for the run.
func (r *Report) ExitStatus() int {
	if r.Fatal != 0 {
		return 128 + int(r.Fatal)
	}
	return 0
}

// WriteTo writes a human readable summary of r to w.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var n int64
	printf := func(format string, v ...any) error {
		m, err := fmt.Fprintf(w, format, v...)
		n += int64(m)
		return err
	}
	if err := printf("scenario %q finished in %v\n", r.Name, r.Elapsed.Round(time.Millisecond)); err != nil {
		return n, err
	}
	sigs := make([]linux.Signal, 0, len(r.Handled))
	for sig := range r.Handled {
		sigs = append(sigs, sig)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	for _, sig := range sigs {
		if err := printf("handled %-10v %d\n", sig, r.Handled[sig]); err != nil {
			return n, err
		}
	}
	names := make([]string, 0, len(r.Waited))
	for name := range r.Waited {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := printf("waiter %s received %v\n", name, r.Waited[name]); err != nil {
			return n, err
		}
	}
	if r.Fatal != 0 {
		if err := printf("terminated by %v\n", r.Fatal); err != nil {
			return n, err
		}
	}
	return n, nil
}

// runner holds the state of one run.
type runner struct {
	s    *Scenario
	k    *kernel.Kernel
	main *sched.Thread

	// cancel stops the run when a fatal default action is taken.
	cancel context.CancelFunc

	mu      sync.Mutex
	handled map[linux.Signal]int
	waited  map[string][]linux.Signal
	fatal   linux.Signal
}

func (r *runner) handle(_ *sched.Thread, sig linux.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled[sig]++
	log.Debugf("Handled %v (%d so far)", sig, r.handled[sig])
}

func (r *runner) handledCount(sig linux.Signal) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handled[sig]
}

func (r *runner) abort(sig linux.Signal) {
	r.mu.Lock()
	if r.fatal == 0 {
		r.fatal = sig
	}
	r.mu.Unlock()
	r.cancel()
}

// Options configures Run.
type Options struct {
	// PID is the process ID of the kernel. Zero means kernel.DefaultPID.
	PID int32

	// ForwardSignals forwards signals sent to this process into the
	// kernel for the duration of the run.
	ForwardSignals bool
}

// Run executes s on a new kernel and returns its report. A fatal default
// action ends the run early and is reported, not returned as an error.
func Run(ctx context.Context, s *Scenario, opts Options) (*Report, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	timeout := s.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := &runner{
		s:       s,
		cancel:  cancel,
		handled: make(map[linux.Signal]int),
		waited:  make(map[string][]linux.Signal),
	}
	r.k = kernel.New(kernel.Options{PID: opts.PID, Abort: r.abort})
	defer r.k.Release()
	r.main = r.k.Scheduler().Adopt("main")
	defer r.main.Exit()
	if opts.ForwardSignals {
		stopForwarding := sighandling.PrepareForwarding(r.k)()
		defer stopForwarding()
	}

	start := time.Now()
	err := r.run(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	rep := &Report{
		Name:    s.Name,
		Handled: make(map[linux.Signal]int, len(r.handled)),
		Waited:  make(map[string][]linux.Signal, len(r.waited)),
		Fatal:   r.fatal,
		Elapsed: time.Since(start),
	}
	for sig, n := range r.handled {
		rep.Handled[sig] = n
	}
	for name, sigs := range r.waited {
		rep.Waited[name] = append([]linux.Signal(nil), sigs...)
	}
	if rep.Fatal != 0 {
		return rep, nil
	}
	return rep, err
}

func (r *runner) run(ctx context.Context) error {
	haveAlarm := false
	for _, h := range r.s.Handlers {
		act, err := h.action(r.handle)
		if err != nil {
			return err
		}
		sig, _ := ParseSignal(h.Signal)
		haveAlarm = haveAlarm || sig == linux.SIGALRM
		if err := slinux.Sigaction(r.k, sig, &act, nil); err != nil {
			return fmt.Errorf("sigaction(%v): %w", sig, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	waiters := make(map[string]*sched.Thread)
	for _, w := range r.s.Waiters {
		th, err := r.startWaiter(g, w)
		if err != nil {
			return err
		}
		waiters[w.Name] = th
	}
	// Kill every waiter once the run is over or has failed.
	stop := context.AfterFunc(gctx, func() {
		for _, th := range waiters {
			th.Kill()
		}
	})
	defer stop()

	if t := r.s.Timer; t != nil {
		if !haveAlarm {
			if _, err := slinux.Signal(r.k, linux.SIGALRM, kernel.SigAction{Kind: kernel.SigActionHandler, Handler: r.handle}); err != nil {
				return err
			}
		}
		val := linux.ItimerVal{
			Value:    linux.DurationToTimeval(t.Value),
			Interval: linux.DurationToTimeval(t.Interval),
		}
		if err := slinux.Setitimer(r.k, r.main, linux.ITIMER_REAL, &val, nil); err != nil {
			return fmt.Errorf("setitimer: %w", err)
		}
		g.Go(func() error {
			return r.awaitTimer(gctx, t.Expirations)
		})
	}

	g.Go(func() error {
		return r.raise(gctx, waiters)
	})

	err := g.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("scenario timed out: %w", ctx.Err())
	}
	return err
}

// startWaiter creates and starts the thread for w. The thread's result is
// collected by g.
func (r *runner) startWaiter(g *errgroup.Group, w Waiter) (*sched.Thread, error) {
	set, err := ParseSignalSet(w.Signals)
	if err != nil {
		return nil, err
	}
	errc := make(chan error, 1)
	th := r.k.Scheduler().NewThread(w.Name, func(t *sched.Thread) {
		errc <- r.wait(t, w.Name, set, w.Count)
	})
	if err := slinux.Sigprocmask(r.k, th, linux.SIG_BLOCK, &set, nil); err != nil {
		return nil, err
	}
	th.Start()
	g.Go(func() error {
		return <-errc
	})
	return th, nil
}

func (r *runner) wait(t *sched.Thread, name string, set linux.SignalSet, count int) error {
	for i := 0; i < count; i++ {
		var sig linux.Signal
		if err := slinux.Sigwait(r.k, t, &set, &sig); err != nil {
			return fmt.Errorf("waiter %s: %w", name, err)
		}
		log.Debugf("Waiter %s received %v", name, sig)
		r.mu.Lock()
		r.waited[name] = append(r.waited[name], sig)
		r.mu.Unlock()
	}
	return nil
}

func (r *runner) raise(ctx context.Context, waiters map[string]*sched.Thread) error {
	for _, rs := range r.s.Raises {
		sig, _ := ParseSignal(rs.Signal)
		count := rs.Count
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			if rs.Delay > 0 {
				select {
				case <-time.After(rs.Delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			var err error
			if rs.Target == "" {
				err = slinux.Kill(r.k, r.main, r.k.Getpid(), sig)
			} else {
				// Pending signals coalesce: let the waiter take the
				// previous occurrence first.
				th := waiters[rs.Target]
				if err := r.awaitConsumed(ctx, th, sig); err != nil {
					return err
				}
				err = r.k.SendSignal(r.main, th, sig)
			}
			if err != nil {
				return fmt.Errorf("raising %v: %w", sig, err)
			}
		}
	}
	return nil
}

// awaitConsumed waits until sig is no longer pending for t.
func (r *runner) awaitConsumed(ctx context.Context, t *sched.Thread, sig linux.Signal) error {
	return r.poll(ctx, func() bool {
		return !r.k.PendingSignals(t).Has(sig)
	})
}

func (r *runner) poll(ctx context.Context, cond func() bool) error {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for !cond() {
		select {
		case <-tick.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// awaitTimer waits until n SIGALRMs have been handled, then disarms the
// timer.
func (r *runner) awaitTimer(ctx context.Context, n int) error {
	if err := r.poll(ctx, func() bool {
		return r.handledCount(linux.SIGALRM) >= n
	}); err != nil {
		return err
	}
	return slinux.Setitimer(r.k, r.main, linux.ITIMER_REAL, &linux.ItimerVal{}, nil)
}
