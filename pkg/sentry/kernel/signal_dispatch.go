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
	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/sentry/arch"
	"gvisor.dev/sigcore/pkg/sentry/sched"
)

// HandlerWork is one handler invocation, submitted to an Executor when a
// signal with a handler disposition is dispatched.
type HandlerWork struct {
	// Signal is the dispatched signal.
	Signal linux.Signal

	// Target is the thread the signal was delivered to.
	Target *sched.Thread

	// Action is the disposition as it was when the signal was dispatched.
	Action SigAction

	// Info describes the signal.
	Info arch.SignalInfo

	// Oldmask is Target's blocked set at dispatch.
	Oldmask linux.SignalSet
}

// HandlerMask returns the signals to block while the handler runs.
func (w *HandlerWork) HandlerMask() linux.SignalSet {
	mask := w.Action.Mask
	if !w.Action.IsNoDefer() {
		mask |= linux.SignalSetOf(w.Signal)
	}
	return mask
}

// Run invokes the handler on t.
func (w *HandlerWork) Run(t *sched.Thread) {
	info := w.Info
	w.Action.invoke(t, &info, &arch.SignalContext{Oldmask: w.Oldmask})
}

// Executor runs handler work. Submit must not wait for the handler to run.
type Executor interface {
	Submit(w *HandlerWork)
}

// threadExecutor runs every work item on a new detached thread.
type threadExecutor struct {
	k *Kernel
}

// Submit implements Executor.Submit.
func (e *threadExecutor) Submit(w *HandlerWork) {
	t := e.k.sched.NewThread("signal_handler", w.Run)
	e.k.masks.get(t).block(w.HandlerMask())
	t.Start()
}

// completeSignal dispatches sig on t. It claims the pending bit first; if the
// bit is already clear another caller has dispatched the signal and
// completeSignal does nothing.
func (k *Kernel) completeSignal(t *sched.Thread, sig linux.Signal) {
	code, ok := k.masks.get(t).testAndClearPending(sig)
	if !ok {
		return
	}

	act := k.actions.load(sig)
	switch {
	case act == nil || act.Kind == SigActionDefault:
		k.defaultAction(sig)

	case act.Kind == SigActionIgnore:
		dispatchedCount.Increment(dispatchIgnore)

	default:
		if act.IsResetHandler() {
			k.actions.resetHandler(sig, act)
		}
		w := &HandlerWork{
			Signal:  sig,
			Target:  t,
			Action:  *act,
			Info:    arch.SignalInfo{Signo: int32(sig), Code: code},
			Oldmask: k.masks.get(t).blockedSet(),
		}
		if code == arch.SignalInfoUser {
			w.Info.SetPID(k.pid)
		}
		t.SetInterrupted()
		dispatchedCount.Increment(dispatchHandler)
		k.executor.Submit(w)
	}
}

// defaultAction takes sig's default action: nothing for default-ignored
// signals, process termination otherwise.
func (k *Kernel) defaultAction(sig linux.Signal) {
	if DefaultIgnoredSignals.Has(sig) {
		dispatchedCount.Increment(dispatchDefaultIgnore)
		return
	}
	dispatchedCount.Increment(dispatchFatal)
	log.Warningf("received signal %d (%q). Aborting.", int(sig), sig.String())
	k.abort(sig)
}
