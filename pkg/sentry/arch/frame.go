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

package arch

import (
	"fmt"

	"gvisor.dev/sigcore/pkg/abi/linux"
)

// UContext is the state saved when a signal frame is built, and restored
// when the handler returns.
type UContext struct {
	Regs   Registers
	Sigset linux.SignalSet
}

// ucontextSize is the size of UContext as laid out in a signal frame.
const ucontextSize = registersSize + 8

// signalFrame is one handler invocation installed on an ExceptionFrame.
type signalFrame struct {
	uc       UContext
	info     SignalInfo
	infoAddr uint64
	ucAddr   uint64
	invoke   func(info *SignalInfo, ctx *SignalContext)
}

// ExceptionFrame is the trap state of a thread that took a synchronous
// fault. Signal frames built on it run, innermost first, when the trap
// returns.
type ExceptionFrame struct {
	// Regs is the live register state. BuildSignalFrame redirects it to
	// the handler; ReturnFromTrap restores it.
	Regs Registers

	frames []signalFrame
}

// NewExceptionFrame returns an ExceptionFrame for a trap taken with the
// given registers.
func NewExceptionFrame(regs Registers) *ExceptionFrame {
	return &ExceptionFrame{Regs: regs}
}

// BuildSignalFrame pushes a signal frame below the interrupted stack pointer
// and redirects the trap return to handlerPC. The frame holds the siginfo
// and the saved context; invoke is called with both when the trap returns.
func (ef *ExceptionFrame) BuildSignalFrame(info *SignalInfo, sigset linux.SignalSet, handlerPC uint64, invoke func(info *SignalInfo, ctx *SignalContext)) error {
	if invoke == nil {
		return fmt.Errorf("no handler for signal %d", info.Signo)
	}
	// Width of the return address, plus the ucontext and siginfo.
	frameSize := uint64(8 + ucontextSize + SignalInfoSize)
	if ef.Regs.Rsp < redZoneSize+frameSize+16 {
		return fmt.Errorf("stack pointer %#x too low for a signal frame", ef.Regs.Rsp)
	}
	sp := ef.Regs.Rsp - redZoneSize
	frameBottom := (sp-frameSize)&^15 - 8

	f := signalFrame{
		uc:       UContext{Regs: ef.Regs, Sigset: sigset},
		info:     *info,
		ucAddr:   frameBottom + 8,
		infoAddr: frameBottom + 8 + ucontextSize,
		invoke:   invoke,
	}
	ef.frames = append(ef.frames, f)

	// Set up registers.
	ef.Regs.Rsp = frameBottom
	ef.Regs.Rip = handlerPC
	ef.Regs.Rdi = uint64(info.Signo)
	ef.Regs.Rsi = f.infoAddr
	ef.Regs.Rdx = f.ucAddr
	return nil
}

// PendingFrames returns the number of signal frames that will run on trap
// return.
func (ef *ExceptionFrame) PendingFrames() int {
	return len(ef.frames)
}

// ReturnFromTrap runs the installed handlers, innermost first, each followed
// by a sigreturn that restores the registers saved in its frame. It returns
// the signal mask saved by the outermost frame, or 0 if no frame was
// installed.
func (ef *ExceptionFrame) ReturnFromTrap() linux.SignalSet {
	var mask linux.SignalSet
	for len(ef.frames) > 0 {
		f := ef.frames[len(ef.frames)-1]
		ef.frames = ef.frames[:len(ef.frames)-1]

		// The handler may edit the saved registers, as with a real
		// ucontext.
		f.invoke(&f.info, &SignalContext{Oldmask: f.uc.Sigset, Regs: &f.uc.Regs})

		// sigreturn.
		ef.Regs = f.uc.Regs
		mask = f.uc.Sigset
	}
	return mask
}
