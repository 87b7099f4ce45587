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

// Package arch describes the register state and signal frames used when a
// synchronous fault is turned into a signal.
package arch

import (
	"fmt"
)

// Registers is the general purpose register state of a thread interrupted
// by a trap.
type Registers struct {
	Rax    uint64
	Rbx    uint64
	Rcx    uint64
	Rdx    uint64
	Rsi    uint64
	Rdi    uint64
	Rbp    uint64
	Rsp    uint64
	Rip    uint64
	Eflags uint64
}

// String implements fmt.Stringer.
func (r Registers) String() string {
	return fmt.Sprintf("rip=%#x rsp=%#x rax=%#x rdi=%#x rsi=%#x rdx=%#x", r.Rip, r.Rsp, r.Rax, r.Rdi, r.Rsi, r.Rdx)
}

// registersSize is the size of Registers as laid out in a signal frame.
const registersSize = 10 * 8

// redZoneSize is the area below the stack pointer that a signal frame must
// not clobber.
const redZoneSize = 128
