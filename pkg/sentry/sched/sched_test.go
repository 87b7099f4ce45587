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
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/sigcore/pkg/test/testutil"
)

func TestWaitUntilWake(t *testing.T) {
	s := New()
	var flag atomic.Bool
	var woken atomic.Bool
	th := s.NewThread("waiter", func(t *Thread) {
		if err := t.WaitUntil(flag.Load); err == nil {
			woken.Store(true)
		}
	})
	th.Start()

	flag.Store(true)
	th.Wake()
	select {
	case <-th.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("waiter did not exit")
	}
	if !woken.Load() {
		t.Errorf("WaitUntil returned an error after wake")
	}
}

func TestWakeBeforeWaitNotLost(t *testing.T) {
	s := New()
	th := s.Adopt("main")
	defer th.Exit()

	var flag atomic.Bool
	flag.Store(true)
	th.Wake()
	th.Wake() // Coalesced.
	if err := th.WaitUntil(flag.Load); err != nil {
		t.Fatalf("WaitUntil: %v", err)
	}
}

func TestKillReturnsErrExiting(t *testing.T) {
	s := New()
	errCh := make(chan error, 1)
	th := s.NewThread("victim", func(t *Thread) {
		errCh <- t.WaitUntil(func() bool { return false })
	})
	th.Start()
	th.Kill()
	select {
	case err := <-errCh:
		if err != ErrExiting {
			t.Errorf("WaitUntil got %v, want %v", err, ErrExiting)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("killed thread did not return")
	}
	<-th.Done()
	if !th.Exited() {
		t.Errorf("Exited() = false after Done")
	}
}

func TestExitNotifiers(t *testing.T) {
	s := New()
	var got []string
	s.RegisterExitNotifier(func(t *Thread) { got = append(got, "first:"+t.Name()) })
	s.RegisterExitNotifier(func(t *Thread) {
		if s.ThreadWithID(t.ID()) != nil {
			got = append(got, "still registered")
		}
		got = append(got, "second:"+t.Name())
	})

	th := s.Adopt("worker")
	th.Exit()
	th.Exit() // Idempotent.

	if diff := cmp.Diff([]string{"first:worker", "second:worker"}, got); diff != "" {
		t.Errorf("notifier calls mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumeration(t *testing.T) {
	s := New()
	a := s.Adopt("a")
	b := s.Adopt("b")
	c := s.Adopt("c")
	defer a.Exit()
	defer c.Exit()
	b.Exit()

	var names []string
	s.ForEachThread(func(t *Thread) bool {
		names = append(names, t.Name())
		return true
	})
	if diff := cmp.Diff([]string{"a", "c"}, names); diff != "" {
		t.Errorf("ForEachThread mismatch (-want +got):\n%s", diff)
	}

	n := 0
	s.ForEachThread(func(*Thread) bool {
		n++
		return false
	})
	if n != 1 {
		t.Errorf("ForEachThread did not stop early: visited %d", n)
	}
	if got := s.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestInterrupted(t *testing.T) {
	s := New()
	th := s.NewThread("sleeper", func(t *Thread) {
		t.WaitUntil(t.Interrupted)
	})
	th.Start()
	th.SetInterrupted()
	if err := testutil.Eventually(th.Exited, 5*time.Second, "interrupted thread to exit"); err != nil {
		t.Fatal(err)
	}
	if !th.ClearInterrupted() {
		t.Errorf("ClearInterrupted returned false after SetInterrupted")
	}
	if th.Interrupted() {
		t.Errorf("Interrupted() true after clear")
	}
}

func TestStartTwicePanics(t *testing.T) {
	s := New()
	th := s.Adopt("adopted")
	defer th.Exit()
	defer func() {
		if recover() == nil {
			t.Errorf("Start on adopted thread did not panic")
		}
	}()
	th.Start()
}
