// Copyright 2012 Google Inc. All Rights Reserved.
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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRunCommandPhonyIsNoOp(t *testing.T) {
	result := runCommand(context.Background(), &CommandEntry{Description: "phony group"})
	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", result.ExitCode)
	}
}

func TestRunCommandCreatesOutputDirectories(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "nested", "deep", "out")

	c := &CommandEntry{
		Command: "touch " + out,
		Outputs: []string{out},
	}
	result := runCommand(context.Background(), c)
	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, output = %q", result.ExitCode, result.Output)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("expected %q to exist: %v", out, err)
	}
}

func TestRunCommandUsesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	c := &CommandEntry{
		Command:          "pwd",
		WorkingDirectory: dir,
	}
	result := runCommand(context.Background(), c)
	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, output = %q", result.ExitCode, result.Output)
	}
	if strings.TrimSpace(result.Output) != dir {
		t.Fatalf("pwd output = %q, want %q", strings.TrimSpace(result.Output), dir)
	}
}

func TestRunCommandWritesRspFile(t *testing.T) {
	dir := t.TempDir()
	rsp := filepath.Join(dir, "args.rsp")
	c := &CommandEntry{
		Command:     "cat " + rsp,
		RspFile:     rsp,
		RspContents: "-DFOO -DBAR",
	}
	result := runCommand(context.Background(), c)
	if result.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, output = %q", result.ExitCode, result.Output)
	}
	if strings.TrimSpace(result.Output) != "-DFOO -DBAR" {
		t.Fatalf("output = %q, want rsp contents echoed", result.Output)
	}
	if _, err := os.Stat(rsp); !os.IsNotExist(err) {
		t.Fatalf("expected rsp file to be removed after the command ran")
	}
}

func TestRunCommandCapturesExitCode(t *testing.T) {
	c := &CommandEntry{Command: "exit 7"}
	result := runCommand(context.Background(), c)
	if result.ExitCode != 7 {
		t.Fatalf("ExitCode = %d, want 7", result.ExitCode)
	}
}

// TestRunCommandDrainsOnCancel verifies spec.md's "in-flight child
// processes are not forcibly killed" guarantee: cancelling ctx while a
// command is already running must not kill it. The command sleeps past the
// cancellation, then writes a recognizable marker and exits with a specific
// code; both must still come through untouched.
func TestRunCommandDrainsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	c := &CommandEntry{Command: "sleep 0.2; echo still-here; exit 9"}

	done := make(chan processResult, 1)
	go func() {
		done <- runCommand(ctx, c)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		if result.ExitCode != 9 {
			t.Fatalf("ExitCode = %d, want 9 (command must run to completion, not be killed)", result.ExitCode)
		}
		if !strings.Contains(result.Output, "still-here") {
			t.Fatalf("Output = %q, want it to contain the marker the command printed after cancellation", result.Output)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runCommand did not return; cancellation may have killed or hung the child")
	}
}
