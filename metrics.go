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

package wilco

import (
	"fmt"
	"sync"
	"time"
)

// metric is a single named timing bucket: how many times a code path ran,
// and the accumulated time spent in it.
type metric struct {
	name  string
	count int
	sum   time.Duration
}

// metrics is the process-wide timing report, used with --verbose to show
// where a build spent its wall time (database load/save, dirtiness
// filtering, command execution).
type metrics struct {
	mu      sync.Mutex
	entries []*metric
	byName  map[string]*metric
}

var globalMetrics = &metrics{byName: map[string]*metric{}}

// record returns a stop function that, when called, adds the elapsed time
// since record was called to the named metric. Typical use:
//
//	stop := globalMetrics.record("database.load")
//	defer stop()
func (m *metrics) record(name string) func() {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		m.mu.Lock()
		defer m.mu.Unlock()
		e, ok := m.byName[name]
		if !ok {
			e = &metric{name: name}
			m.byName[name] = e
			m.entries = append(m.entries, e)
		}
		e.count++
		e.sum += elapsed
	}
}

// Report renders a summary table of every recorded metric: count, average
// duration, and total duration.
func (m *metrics) Report() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	width := len("metric")
	for _, e := range m.entries {
		if len(e.name) > width {
			width = len(e.name)
		}
	}

	out := fmt.Sprintf("%-*s\t%-6s\t%-10s\t%s\n", width, "metric", "count", "avg (us)", "total (ms)")
	for _, e := range m.entries {
		avgMicros := float64(e.sum.Microseconds()) / float64(e.count)
		totalMillis := float64(e.sum.Microseconds()) / 1000
		out += fmt.Sprintf("%-*s\t%-6d\t%-10.1f\t%.1f\n", width, e.name, e.count, avgMicros, totalMillis)
	}
	return out
}

// MetricsReport renders the process-wide timing report gathered so far.
// The `build` subcommand prints it under --verbose, mirroring the
// teacher's `-d stats` summary.
func MetricsReport() string {
	return globalMetrics.Report()
}
