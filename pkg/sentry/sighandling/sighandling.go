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

// Package sighandling forwards signals sent to the host process into the
// signal core, where they are raised at any thread.
package sighandling

import (
	"os"
	"os/signal"
	"reflect"

	"golang.org/x/sys/unix"
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/log"
)

// numSignals is the number of standard (non-realtime) signals forwarded.
const numSignals = linux.LastStdSignal

// Receiver accepts forwarded signals. *kernel.Kernel implements it.
type Receiver interface {
	SendExternalSignal(sig linux.Signal) error
}

// forwardSignals listens for incoming signals and delivers them to r.
//
// It starts when the start channel is closed, stops when the stop channel
// is closed, and closes done once it will no longer deliver signals to r.
func forwardSignals(r Receiver, sigchans []chan os.Signal, start, stop, done chan struct{}) {
	// Case 0 is the start channel, then the stop channel. Case N is signal N.
	sc := []reflect.SelectCase{{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(start)}}
	for _, sigchan := range sigchans {
		sc = append(sc, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(sigchan)})
	}

	started := false
	for {
		index, _, ok := reflect.Select(sc)

		if index == 0 {
			if ok {
				continue
			}
			if !started {
				started = true
				sc[0] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(stop)}
				continue
			}
			close(done)
			return
		}

		if !ok {
			panic("signal channel closed unexpectedly")
		}

		sig := linux.Signal(index)
		if !started {
			// The kernel cannot take signals yet. Die from the signals
			// that would have killed the process before forwarding was
			// prepared, and drop the rest.
			switch sig {
			case linux.SIGHUP, linux.SIGINT, linux.SIGTERM:
				dieFromSignal(sig)
			default:
				log.Debugf("Dropping host signal %v before forwarding started", sig)
			}
			continue
		}

		if err := r.SendExternalSignal(sig); err != nil {
			log.Warningf("Failed to forward host signal %v: %v", sig, err)
		}
	}
}

// dieFromSignal restores the default action of sig and raises it on the
// host process.
func dieFromSignal(sig linux.Signal) {
	signal.Reset(unix.Signal(sig))
	if err := unix.Kill(os.Getpid(), unix.Signal(sig)); err != nil {
		log.Warningf("Failed to raise %v: %v", sig, err)
	}
	select {}
}

// PrepareForwarding starts listening for host signals, except skip and those
// the Go runtime needs, and returns a callback that starts delivering them to
// r. That callback returns one that stops forwarding.
//
// Until forwarding starts, SIGHUP, SIGINT and SIGTERM still kill the process.
// After it stops, signals revert to the default Go runtime behavior.
func PrepareForwarding(r Receiver, skip ...linux.Signal) func() func() {
	start := make(chan struct{})
	stop := make(chan struct{})
	done := make(chan struct{})

	skipped := linux.MakeSignalSet(skip...) | runtimeSignals

	// One channel per signal: signal.Notify does not block and may drop
	// signals, and standard signals may be coalesced, so a buffer of one
	// is enough.
	var sigchans []chan os.Signal
	for sig := linux.Signal(1); sig <= numSignals; sig++ {
		sigchan := make(chan os.Signal, 1)
		sigchans = append(sigchans, sigchan)
		if skipped.Has(sig) {
			continue
		}
		signal.Notify(sigchan, unix.Signal(sig))
	}
	go forwardSignals(r, sigchans, start, stop, done)

	return func() func() {
		close(start)
		return func() {
			for _, sigchan := range sigchans {
				signal.Stop(sigchan)
			}
			close(stop)
			<-done
		}
	}
}

// runtimeSignals are never forwarded. SIGKILL and SIGSTOP cannot be caught.
// Synchronous faults become Go panics, SIGURG drives goroutine preemption, and
// SIGCHLD, SIGPIPE and SIGPROF concern only the host process.
var runtimeSignals = linux.MakeSignalSet(
	linux.SIGKILL,
	linux.SIGSTOP,
	linux.SIGSEGV,
	linux.SIGBUS,
	linux.SIGFPE,
	linux.SIGILL,
	linux.SIGURG,
	linux.SIGCHLD,
	linux.SIGPIPE,
	linux.SIGPROF,
)
