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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// commandOutcome is what one goroutine reports back on doneCh when its
// command finishes, whatever the result.
type commandOutcome struct {
	id     CommandId
	result processResult
}

// RunCommands executes every pending command, respecting the dependency
// order already established by FilterCommands and never running more than
// maxConcurrentCommands at once. It grounds on the teacher's build.go
// driver loop and, more closely, the original's commandprocessor.cpp
// runCommands: a single admission pass that starts every command whose
// dependencies are already complete, bounded by the concurrency budget,
// repeated as commands finish. Where the original polls a mutex-protected
// done list every 10ms, this version blocks on a channel instead — the
// natural Go replacement for a busy-wait, with identical admission
// semantics (the firstPending/skipped bookkeeping is preserved exactly so
// a command blocked on a dependency never stalls the scan past runnable
// work behind it).
//
// It returns the number of commands it completed and, if a command
// failed, the *CommandFailedError for the first one that did. A context
// cancellation (e.g. from an interrupt signal) stops admitting new
// commands but lets already-running ones finish; RunCommands returns
// ctx.Err() in that case.
func RunCommands(ctx context.Context, db *Database, pending []PendingCommand, maxConcurrentCommands int, verbose bool, out io.Writer) (int, error) {
	defer globalMetrics.record("executor.run")()

	if maxConcurrentCommands <= 0 {
		maxConcurrentCommands = 1
	}

	// commandCompleted is sized to the whole database, not just the
	// filtered list, because CommandDependencies indexes into the full
	// command array: a dependency outside the pending set (already
	// up-to-date) must read as already completed.
	commandCompleted := make([]bool, len(db.Commands))
	for i := range commandCompleted {
		commandCompleted[i] = true
	}
	for _, p := range pending {
		commandCompleted[p.Id] = false
	}

	printer := newStatusPrinter(out, len(pending))
	newInputSignatures := make(map[string]SignaturePair)
	rebuildDependencies := false

	doneCh := make(chan commandOutcome, len(pending))
	running := make(map[CommandId]struct{})
	firstPending := 0
	halted := false
	completed := 0
	var failure *CommandFailedError

	for (!halted && firstPending < len(pending)) || len(running) > 0 {
		if !halted {
			skipped := false
			for i := firstPending; i < len(pending) && len(running) < maxConcurrentCommands; i++ {
				p := pending[i]

				if commandCompleted[p.Id] {
					if !skipped {
						firstPending = i + 1
					}
					continue
				}
				if _, already := running[p.Id]; already {
					if !skipped {
						firstPending = i + 1
					}
					continue
				}

				ready := true
				for _, dep := range db.CommandDependencies[p.Id] {
					if !commandCompleted[dep] {
						ready = false
						break
					}
				}
				if !ready {
					skipped = true
					continue
				}

				printer.CommandStarted(p.Command.Description)
				if verbose {
					printer.CommandOutput(verboseCommandText(p.Command))
				}

				running[p.Id] = struct{}{}
				id, cmd := p.Id, p.Command
				go func() {
					doneCh <- commandOutcome{id: id, result: runCommand(ctx, cmd)}
				}()

				if !skipped {
					firstPending = i + 1
				}
			}
		}

		if len(running) == 0 {
			break
		}

		outcome := <-doneCh
		delete(running, outcome.id)
		cmd := &db.Commands[outcome.id]

		output := strings.TrimSpace(outcome.result.Output)
		if len(cmd.Inputs) > 0 && output == filepath.Base(cmd.Inputs[0]) {
			output = ""
		}
		printer.CommandOutput(output)

		// A command already running when ctx was cancelled is never killed
		// (createShellCmd disables exec.CommandContext's kill-on-cancel), so
		// its outcome here is always its genuine exit code and output: it is
		// recorded exactly as it would be without cancellation. ctx.Err()
		// only stops the admission pass above from starting anything new.
		switch {
		case outcome.result.ExitCode != 0:
			printer.CommandFailed(cmd.Description, outcome.result.ExitCode)
			if failure == nil {
				failure = &CommandFailedError{Description: cmd.Description, ExitCode: outcome.result.ExitCode, Output: output}
			}
			halted = true
		default:
			if cmd.DepFile.Path != "" {
				harvestDepFile(cmd, outcome.id, db, newInputSignatures, &rebuildDependencies)
			}
			db.CommandSignatures[outcome.id] = computeCommandSignature(cmd)
			commandCompleted[outcome.id] = true
			completed++
		}
		if ctx.Err() != nil {
			halted = true
		}
	}

	fmt.Fprintln(out)

	if rebuildDependencies {
		mergeHarvestedSignatures(db, newInputSignatures)
		logger().Info("updating dependency graph")
		db.RebuildFileDependencies()
	}

	if failure != nil {
		return completed, failure
	}
	if ctx.Err() != nil {
		return completed, ctx.Err()
	}
	return completed, nil
}

// harvestDepFile reads a just-finished command's depfile, and if its
// content differs from what was recorded on the last pass, parses it and
// folds every newly discovered path into newInputSignatures. The hash
// comparison avoids re-parsing a depfile a command rewrote with identical
// contents (common for incremental compilers that touch the file every
// run regardless of whether its contents changed).
func harvestDepFile(cmd *CommandEntry, id CommandId, db *Database, newInputSignatures map[string]SignaturePair, rebuildDependencies *bool) {
	content, err := os.ReadFile(cmd.DepFile.Path)
	if err != nil {
		return
	}
	sig := md5Sum(content)
	if sig == db.DepFileSignatures[id] {
		return
	}

	var paths []string
	switch cmd.DepFile.Format {
	case DepFileFormatGCC:
		paths, _ = parseGCCDepfile(content)
	case DepFileFormatMSVC:
		paths, _ = parseMSVCDepfile(content)
	}
	for _, path := range paths {
		if _, ok := newInputSignatures[path]; ok {
			continue
		}
		var pair SignaturePair
		updatePathSignature(&pair, filepath.Clean(path))
		newInputSignatures[path] = pair
	}
	*rebuildDependencies = true

	if !keepDepfile {
		os.Remove(cmd.DepFile.Path)
	}
}

// mergeHarvestedSignatures folds freshly computed depfile signatures into
// the database's existing FileDependencies, updating entries that already
// exist and appending ones that don't. The dependency *graph* (which
// commands depend on which path) is rebuilt afterward by
// RebuildFileDependencies; this only seeds the signature so that rebuild
// does not treat the path as never-seen.
func mergeHarvestedSignatures(db *Database, newInputSignatures map[string]SignaturePair) {
	if len(newInputSignatures) == 0 {
		return
	}
	for i := range db.FileDependencies {
		if pair, ok := newInputSignatures[db.FileDependencies[i].Path]; ok {
			db.FileDependencies[i].SignaturePair = pair
			delete(newInputSignatures, db.FileDependencies[i].Path)
		}
	}
	for path, pair := range newInputSignatures {
		db.FileDependencies = append(db.FileDependencies, FileDependencies{Path: path, SignaturePair: pair})
	}
}

// verboseCommandText renders the command line (and rsp file contents, if
// any) for --verbose output, shown right after the [n/total] line.
func verboseCommandText(c *CommandEntry) string {
	if c.RspFile == "" {
		return c.Command
	}
	return c.Command + "\nrsp:\n" + c.RspContents
}
