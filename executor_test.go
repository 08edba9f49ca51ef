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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestDatabase(t *testing.T, commands []CommandEntry) *Database {
	t.Helper()
	db := NewDatabase()
	if err := db.SetCommands(commands, t.TempDir()); err != nil {
		t.Fatalf("SetCommands: %v", err)
	}
	return db
}

func TestRunCommandsChain(t *testing.T) {
	dir := t.TempDir()
	mid := filepath.Join(dir, "mid")
	out := filepath.Join(dir, "out")

	commands := []CommandEntry{
		{
			Command:     "echo from-in > " + mid,
			Inputs:      []string{},
			Outputs:     []string{mid},
			Description: "generate mid",
		},
		{
			Command:     "cat " + mid + " > " + out,
			Inputs:      []string{mid},
			Outputs:     []string{out},
			Description: "generate out",
		},
	}

	db := newTestDatabase(t, commands)

	pending := make([]PendingCommand, len(db.Commands))
	for i := range db.Commands {
		pending[i] = PendingCommand{Id: CommandId(i), Command: &db.Commands[i]}
	}

	var buf bytes.Buffer
	completed, err := RunCommands(context.Background(), db, pending, 2, false, &buf)
	if err != nil {
		t.Fatalf("RunCommands: %v", err)
	}
	if completed != 2 {
		t.Fatalf("completed = %d, want 2", completed)
	}

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile(out): %v", err)
	}
	if string(content) != "from-in\n" {
		t.Fatalf("out contents = %q, want %q", content, "from-in\n")
	}

	for _, sig := range db.CommandSignatures {
		if sig == EmptySignature {
			t.Fatalf("expected every command signature to be recorded after a successful run")
		}
	}
}

func TestRunCommandsStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")

	commands := []CommandEntry{
		{
			Command:     "exit 3",
			Outputs:     []string{filepath.Join(dir, "never")},
			Description: "always fails",
		},
		{
			Command:     "echo unreachable > " + out,
			Inputs:      []string{filepath.Join(dir, "never")},
			Outputs:     []string{out},
			Description: "depends on the failing command",
		},
	}

	db := newTestDatabase(t, commands)
	pending := make([]PendingCommand, len(db.Commands))
	for i := range db.Commands {
		pending[i] = PendingCommand{Id: CommandId(i), Command: &db.Commands[i]}
	}

	var buf bytes.Buffer
	completed, err := RunCommands(context.Background(), db, pending, 2, false, &buf)
	if err == nil {
		t.Fatal("expected a CommandFailedError, got nil")
	}
	failedErr, ok := err.(*CommandFailedError)
	if !ok {
		t.Fatalf("err = %T, want *CommandFailedError", err)
	}
	if failedErr.ExitCode != 3 {
		t.Fatalf("ExitCode = %d, want 3", failedErr.ExitCode)
	}
	if completed != 0 {
		t.Fatalf("completed = %d, want 0", completed)
	}
	if _, err := os.Stat(out); err == nil {
		t.Fatal("dependent command should never have run")
	}
}

func TestRunCommandsRespectsConcurrencyLimit(t *testing.T) {
	dir := t.TempDir()
	// Each command holds a lock directory while it runs; a second command
	// running at the same time fails to create it and exits non-zero.
	lock := filepath.Join(dir, "lock")
	var commands []CommandEntry
	for i := 0; i < 5; i++ {
		commands = append(commands, CommandEntry{
			Command:     "mkdir " + lock + " && sleep 0.05 && rmdir " + lock,
			Outputs:     []string{filepath.Join(dir, "out", string(rune('a'+i)))},
			Description: "independent leaf",
		})
	}

	db := newTestDatabase(t, commands)
	pending := make([]PendingCommand, len(db.Commands))
	for i := range db.Commands {
		pending[i] = PendingCommand{Id: CommandId(i), Command: &db.Commands[i]}
	}

	var buf bytes.Buffer
	completed, err := RunCommands(context.Background(), db, pending, 1, false, &buf)
	if err != nil {
		t.Fatalf("RunCommands: %v", err)
	}
	if completed != len(commands) {
		t.Fatalf("completed = %d, want %d", completed, len(commands))
	}
}

// TestRunCommandsDrainsInFlightOnCancel covers spec.md's "drain in-flight"
// requirement at the driver-loop level: a command already started when ctx
// is cancelled must still run to completion and be recorded as completed,
// not killed and discarded, while no new command gets admitted afterward.
func TestRunCommandsDrainsInFlightOnCancel(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	neverOut := filepath.Join(dir, "never")

	commands := []CommandEntry{
		{
			Command:     "sleep 0.2; echo done > " + out,
			Outputs:     []string{out},
			Description: "in-flight when cancelled",
		},
		{
			Command:     "echo should-not-run > " + neverOut,
			Outputs:     []string{neverOut},
			Description: "never admitted after cancellation",
		},
	}

	db := newTestDatabase(t, commands)
	pending := make([]PendingCommand, len(db.Commands))
	for i := range db.Commands {
		pending[i] = PendingCommand{Id: CommandId(i), Command: &db.Commands[i]}
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	var buf bytes.Buffer
	completed, err := RunCommands(ctx, db, pending, 1, false, &buf)
	if err == nil {
		t.Fatal("expected RunCommands to return ctx.Err(), got nil")
	}
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if completed != 1 {
		t.Fatalf("completed = %d, want 1 (the in-flight command must be drained, not killed)", completed)
	}

	content, readErr := os.ReadFile(out)
	if readErr != nil {
		t.Fatalf("the in-flight command's output file is missing, meaning it was killed rather than drained: %v", readErr)
	}
	if string(content) != "done\n" {
		t.Fatalf("out contents = %q, want %q", content, "done\n")
	}
	if _, statErr := os.Stat(neverOut); statErr == nil {
		t.Fatal("a second command was admitted after cancellation; only admission of new work should stop")
	}
}
