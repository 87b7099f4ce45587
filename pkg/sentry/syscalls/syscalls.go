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

// Package syscalls is the interface from the application to the kernel. The
// entry points themselves live in package linux and keep libc's calling
// convention: pointer arguments, errno-shaped errors.
//
// Note that some entry points in package linux merely provide the interface,
// not the actual implementation. This package keeps track of those.
package syscalls

import (
	"gvisor.dev/sigcore/pkg/log"
	"gvisor.dev/sigcore/pkg/metric"
	"gvisor.dev/sigcore/pkg/sync"
)

var stubbedCount = metric.MustCreateNewUint64Metric("/syscalls/stubbed", "Number of calls to entry points that are not implemented.")

// warned records the stubs that have been reported.
var warned sync.Map

// Stubbed records a call to the stubbed entry point name. A warning is logged
// the first time each name is seen.
func Stubbed(name string) {
	stubbedCount.Increment()
	if _, loaded := warned.LoadOrStore(name, struct{}{}); !loaded {
		log.Warningf("%s() stubbed", name)
	}
}

// StubbedCount returns the number of calls to stubbed entry points so far.
func StubbedCount() uint64 {
	return stubbedCount.Value()
}
