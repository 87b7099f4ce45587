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

// Package util groups a bunch of common helper functions used by commands.
package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gvisor.dev/sigcore/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages are
// consumed by the caller of sigrun, in addition to the debug log.
var ErrorLogger io.Writer

// Writer writes to log and stdout.
type Writer struct{}

// Write implements io.Writer.
func (i *Writer) Write(data []byte) (n int, err error) {
	log.Infof("%s", data)
	return os.Stdout.Write(data)
}

// Infof writes message to log and stdout.
func Infof(format string, args ...any) {
	log.Infof(format, args...)
	fmt.Printf(format+"\n", args...)
}

// Errorf logs error to the debug log and to ErrorLogger.
func Errorf(format string, args ...any) {
	log.Warningf(format, args...)
	writeError(format, args...)
}

// Fatalf logs the same way as Errorf and exits the process with status 128.
func Fatalf(format string, args ...any) {
	Errorf(format, args...)
	os.Exit(128)
}

func writeError(format string, args ...any) {
	if ErrorLogger == nil {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
		return
	}
	// Marshal the error the way the rest of the logs are written, so that
	// it can be picked out of the log by its level.
	j := struct {
		Msg   string    `json:"msg"`
		Level string    `json:"level"`
		Time  time.Time `json:"time"`
	}{
		Msg:   fmt.Sprintf(format, args...),
		Level: "error",
		Time:  time.Now(),
	}
	b, err := json.Marshal(j)
	if err != nil {
		panic(err)
	}
	_, _ = ErrorLogger.Write(b)
}
