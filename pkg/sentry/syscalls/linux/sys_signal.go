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

// Package linux provides libc-shaped entry points to the signal core. Each
// takes the kernel and, where the call acts on the caller, the calling
// thread. Output arguments are pointers; a nil required pointer returns
// EINVAL.
package linux

import (
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/sentry/kernel"
	"gvisor.dev/sigcore/pkg/sentry/sched"
	"gvisor.dev/sigcore/pkg/sentry/syscalls"
)

// Kill implements kill(2).
func Kill(k *kernel.Kernel, t *sched.Thread, pid int32, sig linux.Signal) error {
	return k.Kill(t, pid, sig)
}

// Sigprocmask implements sigprocmask(2). If oldset is non-nil it receives the
// mask in effect before the call. If set is nil the mask is not changed and
// how is ignored.
func Sigprocmask(k *kernel.Kernel, t *sched.Thread, how int, set, oldset *linux.SignalSet) error {
	if t == nil {
		return linuxerr.EINVAL
	}
	if oldset != nil {
		*oldset = k.SignalMask(t)
	}
	if set == nil {
		return nil
	}
	_, err := k.SetSignalMask(t, how, *set)
	return err
}

// Sigaction implements sigaction(2). Only sig 1 through linux.SignalMaximum
// may be queried or changed.
func Sigaction(k *kernel.Kernel, sig linux.Signal, act, oldact *kernel.SigAction) error {
	old, err := k.SetSigAction(sig, act)
	if err != nil {
		return err
	}
	if oldact != nil {
		*oldact = old
	}
	return nil
}

// signal installs act with flags and returns the previous disposition. An
// informational handler cannot be returned through the classic interface, so
// it is reported as a handler disposition with no Handler.
func signal(k *kernel.Kernel, sig linux.Signal, act kernel.SigAction, flags uint64) (kernel.SigAction, error) {
	act.Flags = flags
	act.Mask = 0
	act.SigInfoHandler = nil
	var old kernel.SigAction
	if err := Sigaction(k, sig, &act, &old); err != nil {
		return kernel.SigAction{}, err
	}
	if old.IsSigInfo() {
		return kernel.SigAction{Kind: kernel.SigActionHandler}, nil
	}
	return old, nil
}

// Signal implements signal(2) with BSD semantics: the handler stays
// installed and SA_RESTART is set. act.Kind selects SIG_DFL, SIG_IGN or
// act.Handler; act's flags and mask are ignored.
func Signal(k *kernel.Kernel, sig linux.Signal, act kernel.SigAction) (kernel.SigAction, error) {
	return signal(k, sig, act, linux.SA_RESTART)
}

// SysvSignal implements __sysv_signal: the handler is reset to the default
// when it is invoked and is not blocked while it runs.
func SysvSignal(k *kernel.Kernel, sig linux.Signal, act kernel.SigAction) (kernel.SigAction, error) {
	return signal(k, sig, act, linux.SA_RESETHAND|linux.SA_NODEFER)
}

// Sigignore implements sigignore(3).
func Sigignore(k *kernel.Kernel, sig linux.Signal) error {
	return Sigaction(k, sig, &kernel.SigAction{Kind: kernel.SigActionIgnore}, nil)
}

// Sigwait implements sigwait(3).
func Sigwait(k *kernel.Kernel, t *sched.Thread, set *linux.SignalSet, sig *linux.Signal) error {
	if set == nil || sig == nil {
		return linuxerr.EINVAL
	}
	got, err := k.Sigwait(t, *set)
	if err != nil {
		return err
	}
	*sig = got
	return nil
}

// Sigpending implements sigpending(2).
func Sigpending(k *kernel.Kernel, t *sched.Thread, set *linux.SignalSet) error {
	if t == nil || set == nil {
		return linuxerr.EINVAL
	}
	*set = k.PendingSignals(t)
	return nil
}

// Pause implements pause(2). It returns EINTR once a handler has been
// dispatched on t's behalf.
func Pause(k *kernel.Kernel, t *sched.Thread) error {
	return k.Pause(t)
}

// Sigaltstack implements sigaltstack(2). Handlers never run on the
// interrupted thread's stack, so alternate stacks are accepted and ignored.
// oss, if non-nil, reports a disabled stack.
func Sigaltstack(ss, oss *linux.SignalStack) error {
	syscalls.Stubbed("sigaltstack")
	if oss != nil {
		*oss = linux.SignalStack{Flags: linux.SS_DISABLE}
	}
	return nil
}
