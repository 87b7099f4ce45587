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
	"fmt"
	"testing"
	"time"

	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/atomicbitops"
	"gvisor.dev/sigcore/pkg/sentry/ktime"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/sync"
	"gvisor.dev/sigcore/pkg/test/testutil"
)

const pollTimeout = 5 * time.Second

// testKernel is a Kernel with a recording abort hook and an adopted main
// thread.
type testKernel struct {
	*Kernel
	clock *ktime.ManualClock
	main  *sched.Thread

	mu     sync.Mutex
	aborts []linux.Signal
}

func newTestKernel(t *testing.T) *testKernel {
	t.Helper()
	tk := &testKernel{clock: ktime.NewManualClock()}
	tk.Kernel = New(Options{
		Clock: tk.clock,
		Abort: func(sig linux.Signal) {
			tk.mu.Lock()
			defer tk.mu.Unlock()
			tk.aborts = append(tk.aborts, sig)
		},
	})
	tk.main = tk.Scheduler().Adopt("main")
	t.Cleanup(func() {
		tk.Release()
		tk.main.Exit()
	})
	return tk
}

func (tk *testKernel) abortedWith() []linux.Signal {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return append([]linux.Signal(nil), tk.aborts...)
}

// counter returns a handler that counts its invocations.
func counter() (*atomicbitops.Int32, HandlerFunc) {
	var n atomicbitops.Int32
	return &n, func(*sched.Thread, linux.Signal) {
		n.Add(1)
	}
}

func waitForCount(t *testing.T, n *atomicbitops.Int32, want int32) {
	t.Helper()
	if err := testutil.Poll(func() error {
		if got := n.Load(); got != want {
			return fmt.Errorf("got %d invocations, want %d", got, want)
		}
		return nil
	}, pollTimeout); err != nil {
		t.Fatal(err)
	}
}

func mustBlock(t *testing.T, k *Kernel, th *sched.Thread, sigs ...linux.Signal) {
	t.Helper()
	if _, err := k.SetSignalMask(th, linux.SIG_BLOCK, linux.MakeSignalSet(sigs...)); err != nil {
		t.Fatalf("SetSignalMask(SIG_BLOCK, %v) failed: %v", sigs, err)
	}
}

func mustSetHandler(t *testing.T, k *Kernel, sig linux.Signal, act SigAction) {
	t.Helper()
	if _, err := k.SetSigAction(sig, &act); err != nil {
		t.Fatalf("SetSigAction(%v, %v) failed: %v", sig, act, err)
	}
}
