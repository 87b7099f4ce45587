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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/sentry/ktime"
)

func TestAlarmSeconds(t *testing.T) {
	for _, tc := range []struct {
		tv   linux.Timeval
		want uint32
	}{
		{linux.Timeval{}, 0},
		{linux.Timeval{Usec: 1}, 1},
		{linux.Timeval{Usec: 499999}, 1},
		{linux.Timeval{Sec: 3}, 3},
		{linux.Timeval{Sec: 3, Usec: 499999}, 3},
		{linux.Timeval{Sec: 3, Usec: 500000}, 4},
		{linux.Timeval{Sec: 3, Usec: 999999}, 4},
	} {
		if got := alarmSeconds(tc.tv); got != tc.want {
			t.Errorf("alarmSeconds(%+v) = %d, want %d", tc.tv, got, tc.want)
		}
	}
}

func TestAlarm(t *testing.T) {
	clock := ktime.NewManualClock()
	k, main := newKernel(t, clock)

	if got := Alarm(k, main, 10); got != 0 {
		t.Errorf("first Alarm = %d, want 0", got)
	}
	clock.Advance(2400 * time.Millisecond)
	// 7.6s remain.
	if got := Alarm(k, main, 5); got != 8 {
		t.Errorf("Alarm = %d, want 8", got)
	}
	clock.Advance(4800 * time.Millisecond)
	// 0.2s remain.
	if got := Alarm(k, main, 0); got != 1 {
		t.Errorf("Alarm = %d, want 1", got)
	}
	var curr linux.ItimerVal
	if err := Getitimer(k, linux.ITIMER_REAL, &curr); err != nil {
		t.Fatalf("Getitimer failed: %v", err)
	}
	if diff := cmp.Diff(linux.ItimerVal{}, curr); diff != "" {
		t.Errorf("Getitimer after Alarm(0) mismatch (-want +got):\n%s", diff)
	}
}

func TestItimerWrappers(t *testing.T) {
	clock := ktime.NewManualClock()
	k, main := newKernel(t, clock)

	val := linux.ItimerVal{
		Interval: linux.Timeval{Sec: 1},
		Value:    linux.Timeval{Sec: 2},
	}
	if err := Setitimer(k, main, linux.ITIMER_VIRTUAL, &val, nil); err != nil {
		t.Fatalf("Setitimer failed: %v", err)
	}
	var old linux.ItimerVal
	if err := Setitimer(k, main, linux.ITIMER_VIRTUAL, &linux.ItimerVal{}, &old); err != nil {
		t.Fatalf("Setitimer failed: %v", err)
	}
	if diff := cmp.Diff(val, old); diff != "" {
		t.Errorf("old value mismatch (-want +got):\n%s", diff)
	}

	for _, tc := range []struct {
		name string
		err  error
	}{
		{"nil new", Setitimer(k, main, linux.ITIMER_REAL, nil, &old)},
		{"prof", Setitimer(k, main, linux.ITIMER_PROF, &val, nil)},
		{"nil curr", Getitimer(k, linux.ITIMER_REAL, nil)},
		{"get prof", Getitimer(k, linux.ITIMER_PROF, &old)},
	} {
		if !linuxerr.Equals(linuxerr.EINVAL, tc.err) {
			t.Errorf("%s: got %v, want EINVAL", tc.name, tc.err)
		}
	}
}
