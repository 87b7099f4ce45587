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
	"sync/atomic"

	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/sentry/arch"
	"gvisor.dev/sigcore/pkg/sentry/sched"
)

// DefaultIgnoredSignals are the signals whose default action is to do
// nothing. Every other signal terminates the process by default.
const DefaultIgnoredSignals = linux.SignalSet(1)<<(linux.SIGCHLD-1) |
	linux.SignalSet(1)<<(linux.SIGCONT-1) |
	linux.SignalSet(1)<<(linux.SIGURG-1) |
	linux.SignalSet(1)<<(linux.SIGWINCH-1)

// SigActionKind selects what happens when a signal is dispatched.
type SigActionKind int

const (
	// SigActionDefault takes the signal's default action.
	SigActionDefault SigActionKind = iota

	// SigActionIgnore discards the signal.
	SigActionIgnore

	// SigActionHandler runs a registered handler.
	SigActionHandler
)

// String implements fmt.Stringer.
func (k SigActionKind) String() string {
	switch k {
	case SigActionDefault:
		return "default"
	case SigActionIgnore:
		return "ignore"
	case SigActionHandler:
		return "handler"
	default:
		return fmt.Sprintf("SigActionKind(%d)", int(k))
	}
}

// HandlerFunc is the classic handler form. t is the thread the handler runs
// on, which may be used to raise further signals.
type HandlerFunc func(t *sched.Thread, sig linux.Signal)

// SigInfoHandlerFunc is the SA_SIGINFO handler form.
type SigInfoHandlerFunc func(t *sched.Thread, info *arch.SignalInfo, ctx *arch.SignalContext)

// SigAction is a disposition, equivalent to struct sigaction.
type SigAction struct {
	Kind SigActionKind

	// Handler is called when Kind is SigActionHandler and SA_SIGINFO is
	// not set.
	Handler HandlerFunc

	// SigInfoHandler is called when Kind is SigActionHandler and SA_SIGINFO
	// is set.
	SigInfoHandler SigInfoHandlerFunc

	// Flags holds SA_* flags.
	Flags uint64

	// Mask is added to the blocked set of the thread running the handler.
	Mask linux.SignalSet
}

// IsSigInfo returns true iff this handler expects siginfo.
func (a SigAction) IsSigInfo() bool {
	return a.Flags&linux.SA_SIGINFO != 0
}

// IsNoDefer returns true iff this SigAction has SA_NODEFER set.
func (a SigAction) IsNoDefer() bool {
	return a.Flags&linux.SA_NODEFER != 0
}

// IsRestart returns true iff this SigAction has SA_RESTART set.
func (a SigAction) IsRestart() bool {
	return a.Flags&linux.SA_RESTART != 0
}

// IsResetHandler returns true iff this SigAction has SA_RESETHAND set.
func (a SigAction) IsResetHandler() bool {
	return a.Flags&linux.SA_RESETHAND != 0
}

// String implements fmt.Stringer.
func (a SigAction) String() string {
	if a.Kind != SigActionHandler {
		return a.Kind.String()
	}
	return fmt.Sprintf("handler{flags=%#x, mask=%#x}", a.Flags, uint64(a.Mask))
}

// validate checks that a handler disposition carries the callback its form
// requires.
func (a *SigAction) validate() error {
	switch a.Kind {
	case SigActionDefault, SigActionIgnore:
		return nil
	case SigActionHandler:
		if a.IsSigInfo() && a.SigInfoHandler == nil || !a.IsSigInfo() && a.Handler == nil {
			return linuxerr.EINVAL
		}
		return nil
	default:
		return linuxerr.EINVAL
	}
}

// invoke runs the handler on t.
func (a *SigAction) invoke(t *sched.Thread, info *arch.SignalInfo, ctx *arch.SignalContext) {
	if a.IsSigInfo() {
		a.SigInfoHandler(t, info, ctx)
		return
	}
	a.Handler(t, linux.Signal(info.Signo))
}

// sigactions is the disposition table. A nil slot means SigActionDefault.
//
// Slots are replaced wholesale, so a delivery in flight observes either the
// old or the new disposition, never a mix.
type sigactions struct {
	slots [linux.SignalMaximum]atomic.Pointer[SigAction]
}

// load returns the current disposition of sig, or nil for the default.
func (s *sigactions) load(sig linux.Signal) *SigAction {
	return s.slots[sig.Index()].Load()
}

// swap installs act, nil meaning default, and returns the previous
// disposition.
func (s *sigactions) swap(sig linux.Signal, act *SigAction) SigAction {
	if act != nil && act.Kind == SigActionDefault {
		act = nil
	}
	if old := s.slots[sig.Index()].Swap(act); old != nil {
		return *old
	}
	return SigAction{}
}

// resetHandler restores the default disposition of sig if it is still act.
// A registration that raced in after act was loaded is kept.
func (s *sigactions) resetHandler(sig linux.Signal, act *SigAction) {
	s.slots[sig.Index()].CompareAndSwap(act, nil)
}

// SetSigAction installs act as the disposition of sig and returns the
// previous one. A nil act only queries. Out-of-range signals return EINVAL.
func (k *Kernel) SetSigAction(sig linux.Signal, act *SigAction) (SigAction, error) {
	if !sig.IsValid() {
		return SigAction{}, linuxerr.EINVAL
	}
	if act == nil {
		return k.SigAction(sig), nil
	}
	if err := act.validate(); err != nil {
		return SigAction{}, err
	}
	a := *act
	return k.actions.swap(sig, &a), nil
}

// SigAction returns the disposition of sig. Invalid signals report the
// default action.
func (k *Kernel) SigAction(sig linux.Signal) SigAction {
	if !sig.IsValid() {
		return SigAction{}
	}
	if act := k.actions.load(sig); act != nil {
		return *act
	}
	return SigAction{}
}
