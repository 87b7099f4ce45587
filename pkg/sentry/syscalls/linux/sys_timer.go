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
	"gvisor.dev/sigcore/pkg/sentry/kernel"
	"gvisor.dev/sigcore/pkg/sentry/sched"
)

// Getitimer implements getitimer(2).
func Getitimer(k *kernel.Kernel, which int32, curr *linux.ItimerVal) error {
	if curr == nil {
		return linuxerr.EINVAL
	}
	v, err := k.Getitimer(which)
	if err != nil {
		return err
	}
	*curr = v
	return nil
}

// Setitimer implements setitimer(2). old may be nil.
func Setitimer(k *kernel.Kernel, t *sched.Thread, which int32, newVal, old *linux.ItimerVal) error {
	if newVal == nil {
		return linuxerr.EINVAL
	}
	v, err := k.Setitimer(t, which, *newVal)
	if err != nil {
		return err
	}
	if old != nil {
		*old = v
	}
	return nil
}

// Alarm implements alarm(2). It arms ITIMER_REAL for seconds, or disarms it
// if seconds is zero, and returns the seconds remaining on the previous
// alarm. A remainder of half a second or more rounds up, as does any
// non-zero remainder under one second.
func Alarm(k *kernel.Kernel, t *sched.Thread, seconds uint32) uint32 {
	var old linux.ItimerVal
	newVal := linux.ItimerVal{Value: linux.Timeval{Sec: int64(seconds)}}
	if err := Setitimer(k, t, linux.ITIMER_REAL, &newVal, &old); err != nil {
		return 0
	}
	return alarmSeconds(old.Value)
}

func alarmSeconds(tv linux.Timeval) uint32 {
	ret := uint32(tv.Sec)
	if (ret == 0 && tv.Usec != 0) || tv.Usec >= 500000 {
		ret++
	}
	return ret
}
