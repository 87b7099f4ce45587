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
	"reflect"

	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/sentry/arch"
	"gvisor.dev/sigcore/pkg/sentry/sched"
)

// faultCode returns the si_code reported for a synchronous sig.
func faultCode(sig linux.Signal) int32 {
	switch sig {
	case linux.SIGSEGV:
		return linux.SEGV_MAPERR
	case linux.SIGFPE:
		return linux.FPE_INTDIV
	default:
		return arch.SignalInfoKernel
	}
}

// DeliverSynchronous turns a fault taken by t at addr into sig, delivered to
// t alone. If sig has a handler, a signal frame is built on ef and the
// handler runs when the trap returns (see arch.ExceptionFrame.ReturnFromTrap).
// A fatal default action aborts immediately. The waiter registry and the
// pending set are not involved.
//
// Preconditions: t is the thread that took the fault.
func (k *Kernel) DeliverSynchronous(t *sched.Thread, sig linux.Signal, addr uint64, ef *arch.ExceptionFrame) error {
	if t == nil || ef == nil || !sig.IsValid() {
		return linuxerr.EINVAL
	}
	act := k.actions.load(sig)
	switch {
	case act == nil || act.Kind == SigActionDefault:
		k.defaultAction(sig)
		return nil

	case act.Kind == SigActionIgnore:
		dispatchedCount.Increment(dispatchIgnore)
		return nil
	}

	if act.IsResetHandler() {
		k.actions.resetHandler(sig, act)
	}
	info := &arch.SignalInfo{
		Signo: int32(sig),
		Code:  faultCode(sig),
	}
	info.SetAddr(addr)
	a := *act
	if err := ef.BuildSignalFrame(info, k.masks.get(t).blockedSet(), handlerPC(&a), func(info *arch.SignalInfo, ctx *arch.SignalContext) {
		a.invoke(t, info, ctx)
	}); err != nil {
		// No room for a frame: fall back to the default action, as Linux
		// does with force_sigsegv.
		k.defaultAction(sig)
		return err
	}
	dispatchedCount.Increment(dispatchSynchronous)
	return nil
}

// handlerPC returns the entry address of a's handler.
func handlerPC(a *SigAction) uint64 {
	if a.IsSigInfo() {
		return uint64(reflect.ValueOf(a.SigInfoHandler).Pointer())
	}
	return uint64(reflect.ValueOf(a.Handler).Pointer())
}
