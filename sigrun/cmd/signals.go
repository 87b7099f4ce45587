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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/google/subcommands"
	"gvisor.dev/sigcore/pkg/abi/linux"
	"gvisor.dev/sigcore/pkg/sentry/kernel"
)

// Signals implements subcommands.Command for the "signals" command.
type Signals struct {
	all bool
}

// Name implements subcommands.Command.Name.
func (*Signals) Name() string {
	return "signals"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Signals) Synopsis() string {
	return "list signals and their default actions"
}

// Usage implements subcommands.Command.Usage.
func (*Signals) Usage() string {
	return `signals [-all] - lists standard signals, or all of them with -all.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Signals) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.all, "all", false, "include realtime signals.")
}

// Execute implements subcommands.Command.Execute.
func (s *Signals) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if err := writeSignals(os.Stdout, s.all); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeSignals writes one line per signal: number, name and default action.
func writeSignals(w io.Writer, all bool) error {
	last := linux.Signal(linux.LastStdSignal)
	if all {
		last = linux.SignalMaximum
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "NUM\tNAME\tDEFAULT\n")
	for sig := linux.Signal(1); sig <= last; sig++ {
		action := "terminate"
		if kernel.DefaultIgnoredSignals.Has(sig) {
			action = "ignore"
		}
		fmt.Fprintf(tw, "%d\t%v\t%s\n", int(sig), sig, action)
	}
	return tw.Flush()
}
