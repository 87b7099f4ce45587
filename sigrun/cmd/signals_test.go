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
	"bytes"
	"strings"
	"testing"
)

func TestWriteSignals(t *testing.T) {
	var buf bytes.Buffer
	if err := writeSignals(&buf, false); err != nil {
		t.Fatalf("writeSignals failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if got, want := len(lines), 32; got != want {
		t.Fatalf("got %d lines, want %d:\n%s", got, want, buf.String())
	}
	for _, tc := range []struct {
		line   int
		fields []string
	}{
		{0, []string{"NUM", "NAME", "DEFAULT"}},
		{1, []string{"1", "SIGHUP", "terminate"}},
		{17, []string{"17", "SIGCHLD", "ignore"}},
		{28, []string{"28", "SIGWINCH", "ignore"}},
	} {
		got := strings.Fields(lines[tc.line])
		if strings.Join(got, " ") != strings.Join(tc.fields, " ") {
			t.Errorf("line %d = %q, want %q", tc.line, got, tc.fields)
		}
	}

	buf.Reset()
	if err := writeSignals(&buf, true); err != nil {
		t.Fatalf("writeSignals failed: %v", err)
	}
	if !strings.Contains(buf.String(), "SIGRTMIN+32") {
		t.Errorf("realtime signals missing:\n%s", buf.String())
	}
}
