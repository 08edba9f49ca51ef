// Copyright 2016 Google Inc. All Rights Reserved.
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
	"io"

	"github.com/charmbracelet/lipgloss"
)

var failedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

// statusPrinter renders the executor's progress, one line per command
// started, and a colorized FAILED: line for the one command that halts
// the build. It replaces the teacher's status.go (which tracked Ninja's
// Edge/slidingRateInfo ETA model) with the plain running-count the
// simpler CommandEntry graph calls for.
type statusPrinter struct {
	w       io.Writer
	total   int
	started int
}

func newStatusPrinter(w io.Writer, total int) *statusPrinter {
	return &statusPrinter{w: w, total: total}
}

// CommandStarted announces that a command has been admitted to run.
func (s *statusPrinter) CommandStarted(description string) {
	s.started++
	fmt.Fprintf(s.w, "[%d/%d] %s\n", s.started, s.total, description)
}

// CommandOutput prints a command's captured stdout/stderr, if any.
func (s *statusPrinter) CommandOutput(output string) {
	if output == "" {
		return
	}
	fmt.Fprintln(s.w, output)
}

// CommandFailed prints the colorized failure line that halts the build.
func (s *statusPrinter) CommandFailed(description string, exitCode int) {
	fmt.Fprintln(s.w, failedStyle.Render(fmt.Sprintf("FAILED: %s (exit code %d)", description, exitCode)))
}
