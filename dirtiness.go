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
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

// FilterCommands computes which commands in db need to run, restricted to
// the commands reachable (via dependency edges) from targets. An empty
// targets list includes every command. A target may name a command's
// Description exactly, or any of its Inputs/Outputs once resolved against
// invocationDir.
//
// The analysis runs in four phases: target selection (serial, transitive),
// file-signature refresh (parallel, sharded across FileDependencies),
// output-existence check (parallel, sharded across Commands), and
// signature validation (serial, single topological pass so that dirtiness
// propagates to every descendant in one go).
func FilterCommands(db *Database, invocationDir string, targets []string) ([]PendingCommand, error) {
	defer globalMetrics.record("dirtiness.filter")()

	included := make([]bool, len(db.Commands))
	allIncluded := len(targets) == 0
	for i := range included {
		included[i] = allIncluded
	}

	markIncluded := func(start CommandId) {
		stack := []CommandId{start}
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			included[id] = true
			stack = append(stack, db.CommandDependencies[id]...)
		}
	}

	for _, target := range targets {
		expanded := canonicalizePath(target, invocationDir)
		found := false
		for idx := range db.Commands {
			c := &db.Commands[idx]
			if target == c.Description {
				markIncluded(CommandId(idx))
				found = true
			}
			for _, in := range c.Inputs {
				if expanded == in {
					markIncluded(CommandId(idx))
					found = true
					break
				}
			}
			for _, out := range c.Outputs {
				if expanded == out {
					markIncluded(CommandId(idx))
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			if suggestion := suggestTarget(target, knownTargetNames(db)); suggestion != "" {
				return nil, fmt.Errorf("the specified target could not be found:\n  %s (%s)\ndid you mean %q?", target, expanded, suggestion)
			}
			return nil, fmt.Errorf("the specified target could not be found:\n  %s (%s)", target, expanded)
		}
	}

	shardedFileSignatureRefresh(db)
	shardedOutputExistenceCheck(db)

	for index := range db.Commands {
		sig := &db.CommandSignatures[index]
		if *sig == EmptySignature {
			continue
		}
		if *sig != computeCommandSignature(&db.Commands[index]) {
			explain("%s: command line changed", db.Commands[index].Description)
			*sig = EmptySignature
			continue
		}
		for _, dep := range db.CommandDependencies[index] {
			if db.CommandSignatures[dep] == EmptySignature {
				explain("%s: dependency %s is dirty", db.Commands[index].Description, db.Commands[dep].Description)
				*sig = EmptySignature
				break
			}
		}
	}

	result := make([]PendingCommand, 0, len(db.Commands))
	for index := range db.Commands {
		if db.Commands[index].IsPhony() {
			continue
		}
		if db.CommandSignatures[index] != EmptySignature {
			continue
		}
		if !included[index] {
			continue
		}
		result = append(result, PendingCommand{Id: CommandId(index), Command: &db.Commands[index]})
	}
	return result, nil
}

// knownTargetNames collects every description and output path in db, the
// same universe FilterCommands matches a target string against, so a
// failed lookup can suggest the closest near-miss.
func knownTargetNames(db *Database) []string {
	names := make([]string, 0, len(db.Commands))
	for _, c := range db.Commands {
		if c.Description != "" {
			names = append(names, c.Description)
		}
		names = append(names, c.Outputs...)
	}
	return names
}

func shardCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	return n
}

// shardedFileSignatureRefresh partitions db.FileDependencies across a
// static set of worker goroutines that join before this function returns.
// Each shard only ever writes to its own slice of FileDependencies and to
// db.CommandSignatures entries it clears to EmptySignature, both of which
// are safe without locking: a cleared signature is idempotent regardless
// of which worker clears it first.
func shardedFileSignatureRefresh(db *Database) {
	numEntries := len(db.FileDependencies)
	shards := shardCount()
	var wg sync.WaitGroup
	for i := 0; i < shards; i++ {
		start := i * numEntries / shards
		end := (i + 1) * numEntries / shards
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for idx := start; idx < end; idx++ {
				fd := &db.FileDependencies[idx]
				if updatePathSignature(&fd.SignaturePair, fd.Path) {
					explain("%s: file signature changed", fd.Path)
					for _, cid := range fd.DependentCommands {
						db.CommandSignatures[cid] = EmptySignature
					}
				}
			}
		}(start, end)
	}
	wg.Wait()
}

// shardedOutputExistenceCheck partitions db.Commands across worker
// goroutines; a command whose signature is already EMPTY is skipped, and a
// command any of whose outputs is missing is cleared to EMPTY. This only
// checks existence, not content — an output's content is covered by the
// command's own signature once it next runs.
func shardedOutputExistenceCheck(db *Database) {
	numEntries := len(db.Commands)
	shards := shardCount()
	var wg sync.WaitGroup
	for i := 0; i < shards; i++ {
		start := i * numEntries / shards
		end := (i + 1) * numEntries / shards
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for idx := start; idx < end; idx++ {
				if db.CommandSignatures[idx] == EmptySignature {
					continue
				}
				for _, output := range db.Commands[idx].Outputs {
					if _, err := os.Stat(output); err != nil {
						db.CommandSignatures[idx] = EmptySignature
						explain("%s: output %s is missing", db.Commands[idx].Description, output)
						break
					}
				}
			}
		}(start, end)
	}
	wg.Wait()
}

// resolveTarget is a small helper kept for callers (the CLI's query
// command) that need the same target-to-path expansion FilterCommands
// uses internally, without running a full filter pass.
func resolveTarget(invocationDir, target string) string {
	return filepath.Clean(canonicalizePath(target, invocationDir))
}

// ResolveTarget exposes resolveTarget to callers outside the package, such
// as the query subcommand, which needs to expand a target the same way
// FilterCommands does before looking it up.
func ResolveTarget(invocationDir, target string) string {
	return resolveTarget(invocationDir, target)
}
