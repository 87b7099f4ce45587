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

// Package cmd holds implementations of the sigrun commands.
package cmd

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/metric"
	"gvisor.dev/sigcore/pkg/prometheus"
	"gvisor.dev/sigcore/sigrun/cmd/util"
	"gvisor.dev/sigcore/sigrun/config"
	"gvisor.dev/sigcore/sigrun/scenario"
)

// Run implements subcommands.Command for the "run" command.
type Run struct {
	// scenarioPath is the scenario file to run. If empty, the default
	// scenario is run.
	scenarioPath string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string {
	return "run"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "run a signal scenario and print a summary"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] - runs the scenario given by --scenario, or a built-in one.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.scenarioPath, "scenario", "", "scenario file (.toml, .yaml or .yml).")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)
	status := args[1].(*int)

	s := scenario.Default()
	if r.scenarioPath != "" {
		var err error
		if s, err = scenario.Load(r.scenarioPath); err != nil {
			util.Fatalf("loading scenario: %v", err)
		}
	}
	conf, err := conf.WithOverrides(s.Flags)
	if err != nil {
		util.Fatalf("applying scenario flags: %v", err)
	}
	if conf.Debug {
		log.SetLevel(log.Debug)
	}
	log.Infof("Running scenario %q", s.Name)

	rep, err := scenario.Run(ctx, s, scenario.Options{
		PID:            int32(conf.PID),
		ForwardSignals: conf.ForwardSignals,
	})
	if err != nil {
		util.Fatalf("running scenario %q: %v", s.Name, err)
	}
	if _, err := rep.WriteTo(os.Stdout); err != nil {
		util.Fatalf("writing summary: %v", err)
	}
	if conf.Metrics {
		if _, err := prometheus.Write(os.Stdout, prometheus.ExportOptions{ExporterPrefix: conf.MetricsPrefix}, metric.GetSnapshot()); err != nil {
			util.Fatalf("writing metrics: %v", err)
		}
	}
	*status = rep.ExitStatus()
	return subcommands.ExitSuccess
}
