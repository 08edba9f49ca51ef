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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ExitRestart is the distinguished exit code a self-rebuild sub-invocation
// returns to tell its parent "I rebuilt myself, please re-exec and loop
// again" (spec.md §4.6 step 5, `original_source/wilco/src/
// internalbuild.cpp`'s EXIT_RESTART).
const ExitRestart = 10

// maxSelfRebuildIterations bounds the parent's restart loop: if the
// rebuilt binary still reports itself dirty after this many iterations,
// something is wrong with the configuration and looping forever would
// hide it.
const maxSelfRebuildIterations = 10

// RebuildSelf runs wilco's own self-rebuild protocol: it loads a private
// database at wilcoCachePath/tmp/.build_db, diffs it against
// selfCommands (the synthetic project whose sources are the configuration
// program plus wilco's own source tree, output = the running executable),
// and if anything is dirty, stages the running binary aside, rebuilds,
// and reports whether the caller should re-exec the new binary.
//
// It returns (rebuilt, err). rebuilt is true only when a new binary was
// successfully produced and staged into place at executablePath; the
// caller (cmd/wilco's root command) is responsible for the actual re-exec
// loop, since only it knows the original argv.
func RebuildSelf(ctx context.Context, wilcoCachePath, executablePath string, selfCommands []CommandEntry, out io.Writer) (bool, error) {
	tmpDir := filepath.Join(wilcoCachePath, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return false, fmt.Errorf("creating self-rebuild directory: %w", err)
	}
	databasePath := filepath.Join(tmpDir, ".build_db")

	db := NewDatabase()
	if _, err := db.Load(databasePath); err != nil {
		return false, err
	}
	if err := db.SetCommands(selfCommands, filepath.Dir(executablePath)); err != nil {
		return false, err
	}

	pending, err := FilterCommands(db, filepath.Dir(executablePath), nil)
	if err != nil {
		return false, err
	}
	if len(pending) == 0 {
		return false, nil
	}

	fmt.Fprintln(out, "Rebuilding wilco.")

	runningAside := executablePath + ".running"
	if err := os.Rename(executablePath, runningAside); err != nil {
		return false, fmt.Errorf("staging the running binary aside: %w", err)
	}

	completed, runErr := RunCommands(ctx, db, pending, maxParallelCommands(), false, out)
	if saveErr := db.Save(databasePath); saveErr != nil && runErr == nil {
		runErr = saveErr
	}

	if runErr != nil || completed < len(pending) {
		// Something went wrong producing a working new binary: put the
		// one that was running back so the user isn't left without a
		// binary to invoke.
		os.Rename(runningAside, executablePath)
		if runErr == nil {
			runErr = errors.New("some self-rebuild commands were not completed")
		}
		return false, runErr
	}

	return true, nil
}

// RestartLoop re-execs binaryPath with args plus the internal-restart
// marker, bounded at maxSelfRebuildIterations, stopping the first time the
// sub-invocation exits 0 (meaning it found nothing further to rebuild) or
// any code other than ExitRestart (meaning it ran the real command and
// this is the final result). It returns the final exit code.
func RestartLoop(ctx context.Context, binaryPath string, args []string) (int, error) {
	for i := 0; i < maxSelfRebuildIterations; i++ {
		cmd := createShellCmd(ctx, fmt.Sprintf("%q %s --internal-restart", binaryPath, joinQuoted(args)))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err := cmd.Run()
		exitCode := exitCodeOf(err)

		if exitCode == 0 {
			return 0, nil
		}
		if exitCode != ExitRestart {
			return exitCode, nil
		}
	}
	return 0, fmt.Errorf("stuck rebuilding the build configuration more than %d times", maxSelfRebuildIterations)
}

func maxParallelCommands() int {
	n := shardCount()
	if n < 1 {
		return 1
	}
	return n
}

func joinQuoted(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%q", a)
	}
	return out
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	type exitCoder interface {
		ExitCode() int
	}
	var ec exitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return 1
}
