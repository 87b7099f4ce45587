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

package log

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
)

type testWriter struct {
	lines []string
	fail  bool
	limit int
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	if w.limit > 0 && len(w.lines) >= w.limit {
		return len(bytes), nil
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	want := []string{
		"line 1\n",
		"line 2\n",
		"\n*** Dropped 2 log messages ***\n",
	}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("Writer lines mismatch (-want +got):\n%s", diff)
	}
}

func TestWriterAddsNewline(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}
	if diff := cmp.Diff([]string{"no newline", "\n"}, tw.lines); diff != "" {
		t.Errorf("Writer lines mismatch (-want +got):\n%s", diff)
	}
}

func TestCaller(t *testing.T) {
	tw := &testWriter{}
	e := GoogleEmitter{Writer: &Writer{Next: tw}}
	bl := &BasicLogger{
		Emitter: e,
		Level:   Debug,
	}
	bl.Debugf("testing...\n") // Just for file/line.
	if len(tw.lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(tw.lines))
	}
	if !strings.Contains(tw.lines[0], "log_test.go") {
		t.Errorf("expected log_test.go, got %q", tw.lines[0])
	}
	if !strings.HasPrefix(tw.lines[0], "D") {
		t.Errorf("expected debug prefix, got %q", tw.lines[0])
	}
}

func TestLevelFiltering(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: &Writer{Next: tw},
		Level:   Info,
	}
	bl.Debugf("hidden")
	bl.Infof("shown %d", 1)
	bl.Warningf("shown %d", 2)
	bl.SetLevel(Warning)
	bl.Infof("hidden")
	want := []string{"shown 1", "\n", "shown 2", "\n"}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("logged lines mismatch (-want +got):\n%s", diff)
	}
}

func TestRateLimited(t *testing.T) {
	tw := &testWriter{}
	bl := &BasicLogger{
		Emitter: &Writer{Next: tw},
		Level:   Debug,
	}
	rl := RateLimitedLogger(bl, time.Hour)
	for i := 0; i < 5; i++ {
		rl.Warningf("blocked %d", i)
	}
	want := []string{"blocked 0", "\n"}
	if diff := cmp.Diff(want, tw.lines); diff != "" {
		t.Errorf("rate limited lines mismatch (-want +got):\n%s", diff)
	}
}

func TestLogrusEmitter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})

	bl := &BasicLogger{
		Emitter: NewLogrusEmitter(l),
		Level:   Debug,
	}
	bl.Warningf("received signal %d", 6)
	out := buf.String()
	for _, want := range []string{"level=warning", `msg="received signal 6"`, `caller="log_test.go:`} {
		if !strings.Contains(out, want) {
			t.Errorf("logrus output %q missing %q", out, want)
		}
	}
}

func TestTestEmitter(t *testing.T) {
	bl := &BasicLogger{
		Emitter: &TestEmitter{t},
		Level:   Debug,
	}
	bl.Infof("routed through %s", "testing.T")
}
