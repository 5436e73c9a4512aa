// Copyright 2011 Google Inc. All Rights Reserved.
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

package nin

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// GetTimeMillis returns the current time in milliseconds since an
// unspecified epoch; only differences between two calls are meaningful.
// Used to timestamp build log entries and status output.
func GetTimeMillis() int64 { return time.Now().UnixNano() / int64(time.Millisecond) }

// metric is a single named counter, like "depfile load time".
type metric struct {
	name  string
	count int
	sum   time.Duration
}

// metrics is the process-wide registry enabled by the -d stats debug flag.
// manifest parsing runs its concurrent variant from multiple goroutines, so
// the registry is guarded by a mutex; metricRecord is cheap enough (one map
// lookup plus a deferred closure) that contention is not a concern.
type metrics struct {
	mu sync.Mutex
	m  map[string]*metric
}

var globalMetrics *metrics

// EnableMetrics turns on collection for metricRecord; call Report to print a
// summary. Metrics collection is off (a no-op) until this is called, mirroring
// the original's "g_metrics == nil means don't bother" fast path.
func EnableMetrics() {
	globalMetrics = &metrics{m: map[string]*metric{}}
}

// metricRecord starts timing a named code path and returns a function to
// call (typically via defer) when it completes. It is a no-op unless
// EnableMetrics has been called.
func metricRecord(name string) func() {
	if globalMetrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		globalMetrics.mu.Lock()
		defer globalMetrics.mu.Unlock()
		m := globalMetrics.m[name]
		if m == nil {
			m = &metric{name: name}
			globalMetrics.m[name] = m
		}
		m.count++
		m.sum += time.Since(start)
	}
}

// Report prints a summary of all recorded metrics to w, widest name first
// column aligned, matching the original's tab-separated "metric / count /
// avg (us) / total (ms)" table.
func Report(w io.Writer) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	names := make([]string, 0, len(globalMetrics.m))
	width := 0
	for name := range globalMetrics.m {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	fmt.Fprintf(w, "%-*s\t%-6s\t%-9s\t%s\n", width, "metric", "count", "avg (us)", "total (ms)")
	for _, name := range names {
		m := globalMetrics.m[name]
		avgUs := float64(m.sum.Microseconds()) / float64(m.count)
		totalMs := float64(m.sum.Microseconds()) / 1000
		fmt.Fprintf(w, "%-*s\t%-6d\t%-8.1f\t%.1f\n", width, m.name, m.count, avgUs, totalMs)
	}
}
