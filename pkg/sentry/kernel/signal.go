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
	"gvisor.dev/sigcore/pkg/errors/linuxerr"
	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/metric"
	"gvisor.dev/sigcore/pkg/sentry/arch"
	"gvisor.dev/sigcore/pkg/sentry/sched"
)

// Values of the action field of /signal/dispatched.
const (
	dispatchDefaultIgnore = "default_ignore"
	dispatchFatal         = "fatal"
	dispatchIgnore        = "ignore"
	dispatchHandler       = "handler"
	dispatchSynchronous   = "synchronous"
)

var (
	sentCount = metric.MustCreateNewUint64Metric("/signal/sent", "Number of signals raised.")

	dispatchedCount = metric.MustCreateNewUint64Metric("/signal/dispatched", "Number of signals dispatched, by the action taken.",
		metric.NewField("action", dispatchDefaultIgnore, dispatchFatal, dispatchIgnore, dispatchHandler, dispatchSynchronous))

	blockedGloballyCount = metric.MustCreateNewUint64Metric("/signal/blocked_globally", "Number of signals raised to any thread while every thread blocked them.")

	sigwaitWakeups = metric.MustCreateNewUint64Metric("/signal/sigwait_wakeups", "Number of sigwait calls satisfied after blocking.")

	itimerExpirations = metric.MustCreateNewUint64Metric("/signal/itimer_expirations", "Number of interval timer expirations.",
		metric.NewField("timer", "real", "virtual"))
)

// Kill implements kill(2) for the single process. pid must name the process:
// its ID, 0 or -1; anything else returns ESRCH. Signal 0 only checks the pid.
func (k *Kernel) Kill(caller *sched.Thread, pid int32, sig linux.Signal) error {
	if pid != k.pid && pid != 0 && pid != -1 {
		return linuxerr.ESRCH
	}
	if sig == 0 {
		return nil
	}
	if !sig.IsValid() {
		return linuxerr.EINVAL
	}
	return k.sendSignal(caller, nil, sig, arch.SignalInfoUser)
}

// externalThread returns the thread on whose behalf external signals are
// raised. It blocks every signal, so it is never chosen as a target while
// another thread accepts the signal.
func (k *Kernel) externalThread() *sched.Thread {
	k.externalOnce.Do(func() {
		k.external = k.sched.Adopt("external")
		k.masks.get(k.external).block(^linux.SignalSet(0))
	})
	return k.external
}

// SendExternalSignal raises sig from outside the kernel, e.g. in response to
// a host signal, directed at any thread.
func (k *Kernel) SendExternalSignal(sig linux.Signal) error {
	if !sig.IsValid() {
		return linuxerr.EINVAL
	}
	log.Infof("Received external signal %d (%v)", int(sig), sig)
	return k.sendSignal(k.externalThread(), nil, sig, arch.SignalInfoKernel)
}
