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

// Package config provides basic infrastructure to set configuration settings
// for sigrun. Each setting is a command line flag, and scenario files may
// override them.
package config

import (
	"fmt"

	"gvisor.dev/sigcore/pkg/log"
)

// Config holds configuration that is not part of the scenario itself.
// Every field carries the name of the flag that sets it.
type Config struct {
	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log"`

	// LogFormat is the log format: text, json or logrus.
	LogFormat string `flag:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// PID is the process ID the kernel reports.
	PID int `flag:"pid"`

	// ForwardSignals forwards signals sent to sigrun into the kernel.
	ForwardSignals bool `flag:"forward-signals"`

	// Metrics prints the signal metrics after a run, in Prometheus text
	// format.
	Metrics bool `flag:"metrics"`

	// MetricsPrefix is prepended to every exported metric name.
	MetricsPrefix string `flag:"metrics-prefix"`

	// AllowFlagOverride lets scenario files override any flag, not only
	// the allowlisted ones.
	AllowFlagOverride bool `flag:"allow-flag-override"`
}

func (c *Config) validate() error {
	switch c.LogFormat {
	case "text", "json", "logrus":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json' or 'logrus'", c.LogFormat)
	}
	if c.PID <= 0 {
		return fmt.Errorf("pid must be positive: %d", c.PID)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	for _, f := range c.ToFlags() {
		log.Infof("\t%s", f)
	}
}
