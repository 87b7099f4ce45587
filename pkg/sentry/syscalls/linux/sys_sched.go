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

package linux

import (
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/sentry/syscalls"
)

// SchedRRGetInterval implements sched_rr_get_interval(2). Threads have no
// scheduling class, so there is no round-robin quantum to report.
func SchedRRGetInterval(pid int32, ts *linux.Timespec) error {
	syscalls.Stubbed("sched_rr_get_interval")
	return linuxerr.ENOSYS
}
