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

// Package scenario describes and runs sigrun scenarios: a set of threads and
// dispositions, the signals raised at them, and an optional interval timer.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/sentry/kernel"
)

// DefaultTimeout bounds a scenario that does not set Timeout.
const DefaultTimeout = 10 * time.Second

// Scenario is the top level of a scenario file.
type Scenario struct {
	// Name is printed in the run summary.
	Name string `toml:"name" yaml:"name"`

	// Flags overrides sigrun flags, keyed by flag name without dashes.
	Flags map[string]string `toml:"flags" yaml:"flags"`

	// Timeout bounds the whole run.
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`

	// Handlers are installed before any thread starts.
	Handlers []Handler `toml:"handler" yaml:"handlers"`

	// Waiters are threads that block their signals and sigwait for them.
	Waiters []Waiter `toml:"waiter" yaml:"waiters"`

	// Raises are sent in order from the main thread once every waiter has
	// started.
	Raises []Raise `toml:"raise" yaml:"raises"`

	// Timer, if set, arms ITIMER_REAL from the main thread.
	Timer *Timer `toml:"timer" yaml:"timer"`
}

// Handler sets the disposition of a signal.
type Handler struct {
	Signal string `toml:"signal" yaml:"signal"`

	// Action is "handler" (the default), "ignore" or "default". A handler
	// counts its invocations in the run summary.
	Action string `toml:"action" yaml:"action"`

	// Flags are SA_* names, e.g. "SA_RESETHAND".
	Flags []string `toml:"flags" yaml:"flags"`

	// Mask lists signals blocked while the handler runs.
	Mask []string `toml:"mask" yaml:"mask"`
}

// Waiter is a thread that waits for Count signals from Signals.
type Waiter struct {
	Name    string   `toml:"name" yaml:"name"`
	Signals []string `toml:"signals" yaml:"signals"`
	Count   int      `toml:"count" yaml:"count"`
}

// Raise sends a signal. An empty Target raises at any thread through
// kill(2); otherwise Target names a waiter.
type Raise struct {
	Signal string        `toml:"signal" yaml:"signal"`
	Target string        `toml:"target" yaml:"target"`
	Count  int           `toml:"count" yaml:"count"`
	Delay  time.Duration `toml:"delay" yaml:"delay"`
}

// Timer arms ITIMER_REAL and runs until Expirations SIGALRMs have been
// handled. A SIGALRM handler is installed unless Handlers sets one.
type Timer struct {
	Value       time.Duration `toml:"value" yaml:"value"`
	Interval    time.Duration `toml:"interval" yaml:"interval"`
	Expirations int           `toml:"expirations" yaml:"expirations"`
}

// Load reads a scenario file. The format is chosen by extension: .toml, or
// .yaml and .yml.
func Load(path string) (*Scenario, error) {
	var s Scenario
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		md, err := toml.DecodeFile(path, &s)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("decoding %q: unknown keys %v", path, undecoded)
		}
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("decoding %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unknown scenario format %q, must be .toml, .yaml or .yml", ext)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", path, err)
	}
	return &s, nil
}

// Default returns the scenario run when no file is given: a waiter that
// collects SIGUSR1 twice, a counting SIGUSR2 handler, and a repeating timer.
func Default() *Scenario {
	return &Scenario{
		Name:     "default",
		Handlers: []Handler{{Signal: "SIGUSR2"}},
		Waiters:  []Waiter{{Name: "waiter", Signals: []string{"SIGUSR1"}, Count: 2}},
		Raises: []Raise{
			{Signal: "SIGUSR1", Target: "waiter", Count: 2},
			{Signal: "SIGUSR2", Count: 3},
		},
		Timer: &Timer{Value: 10 * time.Millisecond, Interval: 10 * time.Millisecond, Expirations: 3},
	}
}

// Validate checks that every name in s resolves.
func (s *Scenario) Validate() error {
	if s.Timeout < 0 {
		return fmt.Errorf("negative timeout %v", s.Timeout)
	}
	for _, h := range s.Handlers {
		if _, err := h.action(nil); err != nil {
			return err
		}
	}
	waiters := make(map[string]bool)
	for _, w := range s.Waiters {
		if w.Name == "" {
			return fmt.Errorf("waiter with no name")
		}
		if waiters[w.Name] {
			return fmt.Errorf("duplicate waiter %q", w.Name)
		}
		waiters[w.Name] = true
		set, err := ParseSignalSet(w.Signals)
		if err != nil {
			return fmt.Errorf("waiter %q: %w", w.Name, err)
		}
		if set == 0 {
			return fmt.Errorf("waiter %q waits for no signal", w.Name)
		}
		if w.Count < 0 {
			return fmt.Errorf("waiter %q: negative count", w.Name)
		}
	}
	for _, r := range s.Raises {
		if _, err := ParseSignal(r.Signal); err != nil {
			return err
		}
		if r.Target != "" && !waiters[r.Target] {
			return fmt.Errorf("raise of %s targets unknown waiter %q", r.Signal, r.Target)
		}
		if r.Count < 0 || r.Delay < 0 {
			return fmt.Errorf("raise of %s: negative count or delay", r.Signal)
		}
	}
	if t := s.Timer; t != nil {
		if t.Value <= 0 || t.Interval < 0 {
			return fmt.Errorf("timer needs a positive value and a non-negative interval")
		}
		if t.Expirations > 1 && t.Interval == 0 {
			return fmt.Errorf("one-shot timer cannot expire %d times", t.Expirations)
		}
	}
	return nil
}

// action converts h into a SigAction. fn is used as the classic handler.
func (h Handler) action(fn kernel.HandlerFunc) (kernel.SigAction, error) {
	sig, err := ParseSignal(h.Signal)
	if err != nil {
		return kernel.SigAction{}, err
	}
	act := kernel.SigAction{}
	switch h.Action {
	case "", "handler":
		act.Kind = kernel.SigActionHandler
		act.Handler = fn
	case "ignore":
		act.Kind = kernel.SigActionIgnore
	case "default":
		act.Kind = kernel.SigActionDefault
	default:
		return kernel.SigAction{}, fmt.Errorf("%v: unknown action %q", sig, h.Action)
	}
	for _, name := range h.Flags {
		flag, ok := saFlags[strings.ToUpper(name)]
		if !ok {
			return kernel.SigAction{}, fmt.Errorf("%v: unknown flag %q", sig, name)
		}
		act.Flags |= flag
	}
	if act.IsSigInfo() {
		return kernel.SigAction{}, fmt.Errorf("%v: SA_SIGINFO handlers cannot be configured", sig)
	}
	if act.Mask, err = ParseSignalSet(h.Mask); err != nil {
		return kernel.SigAction{}, err
	}
	return act, nil
}

var saFlags = map[string]uint64{
	"SA_SIGINFO":   linux.SA_SIGINFO,
	"SA_RESTART":   linux.SA_RESTART,
	"SA_NODEFER":   linux.SA_NODEFER,
	"SA_RESETHAND": linux.SA_RESETHAND,
	"SA_ONSTACK":   linux.SA_ONSTACK,
}

// ParseSignal parses a signal name ("SIGUSR1", "USR1") or number.
func ParseSignal(s string) (linux.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil {
		sig := linux.Signal(n)
		if !sig.IsValid() {
			return 0, fmt.Errorf("invalid signal number %d", n)
		}
		return sig, nil
	}
	sig := linux.SignalByName(strings.ToUpper(s))
	if sig == 0 {
		return 0, fmt.Errorf("unknown signal %q", s)
	}
	return sig, nil
}

// ParseSignalSet parses a list of signals.
func ParseSignalSet(names []string) (linux.SignalSet, error) {
	var set linux.SignalSet
	for _, name := range names {
		sig, err := ParseSignal(name)
		if err != nil {
			return 0, err
		}
		set |= linux.SignalSetOf(sig)
	}
	return set, nil
}
