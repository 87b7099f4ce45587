// Copyright 2020 The gVisor Authors.
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
	"encoding/binary"

	"gvisor.dev/sigcore/pkg/abi/linux"
)

// byteOrder is the byte order of SignalInfo fields.
var byteOrder = binary.LittleEndian

// SignalInfoSize is the size of a SignalInfo, matching struct siginfo.
const SignalInfoSize = 128

// Possible values for SignalInfo.Code. These values originate from the Linux
// kernel's include/uapi/asm-generic/siginfo.h.
const (
	// SignalInfoUser (properly SI_USER) indicates that a signal was sent from
	// a kill() or raise() syscall.
	SignalInfoUser = 0

	// SignalInfoKernel (properly SI_KERNEL) indicates that the signal was sent
	// by the kernel.
	SignalInfoKernel = 0x80

	// SignalInfoTimer (properly SI_TIMER) indicates that the signal was sent
	// by an expired timer.
	SignalInfoTimer = -2

	// SignalInfoTkill (properly SI_TKILL) indicates that the signal was sent
	// from a tkill() or tgkill() syscall.
	SignalInfoTkill = -6
)

// SignalInfo represents information about a signal being delivered, and is
// equivalent to struct siginfo in linux kernel(linux/include/uapi/asm-generic/siginfo.h).
type SignalInfo struct {
	Signo int32 // Signal number
	Errno int32 // Errno value
	Code  int32 // Signal code
	_     uint32

	// struct siginfo::_sifields is a union. In SignalInfo, fields in the union
	// are accessed through methods. Only the _kill, _timer and _sigfault
	// members are used here:
	//
	//	struct { pid_t _pid; uid_t _uid; } _kill;
	//	struct { timer_t _tid; int _overrun; ... } _timer;
	//	struct { void *_addr; short _addr_lsb; } _sigfault;
	//
	// _sifields is padded so that the size of siginfo is SI_MAX_SIZE = 128
	// bytes.
	Fields [SignalInfoSize - 16]byte
}

// Signal returns the signal number carried by s.
func (s *SignalInfo) Signal() linux.Signal {
	return linux.Signal(s.Signo)
}

// PID returns the si_pid field.
func (s *SignalInfo) PID() int32 {
	return int32(byteOrder.Uint32(s.Fields[0:4]))
}

// SetPID mutates the si_pid field.
func (s *SignalInfo) SetPID(val int32) {
	byteOrder.PutUint32(s.Fields[0:4], uint32(val))
}

// TimerID returns the si_timerid field.
func (s *SignalInfo) TimerID() int32 {
	return int32(byteOrder.Uint32(s.Fields[0:4]))
}

// SetTimerID sets the si_timerid field.
func (s *SignalInfo) SetTimerID(val int32) {
	byteOrder.PutUint32(s.Fields[0:4], uint32(val))
}

// Addr returns the si_addr field.
func (s *SignalInfo) Addr() uint64 {
	return byteOrder.Uint64(s.Fields[0:8])
}

// SetAddr sets the si_addr field.
func (s *SignalInfo) SetAddr(val uint64) {
	byteOrder.PutUint64(s.Fields[0:8], val)
}

// SignalContext is the extra context passed to handlers installed with
// SA_SIGINFO.
type SignalContext struct {
	// Oldmask is the blocked set of the thread the handler runs on, as it
	// was before the handler's own mask was applied.
	Oldmask linux.SignalSet

	// Regs is the interrupted register state. It is nil for asynchronous
	// delivery, which does not interrupt the target thread.
	Regs *Registers
}
