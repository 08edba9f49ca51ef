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
	"bytes"
	"fmt"
	"os"
)

// Database is the in-memory root of one build's persisted state: the
// command graph in topological order, each command's dependency ids, the
// last-known-good signatures, and the inverted file-dependency index.
//
// Commands is stored in topological order: command_dependencies[i] only
// ever names ids strictly less than i.
type Database struct {
	Commands            []CommandEntry
	CommandDependencies [][]CommandId
	CommandSignatures   []Signature
	DepFileSignatures   []Signature
	FileDependencies    []FileDependencies
}

// NewDatabase returns an empty database, as if Load found nothing on disk.
func NewDatabase() *Database {
	return &Database{}
}

// Load reads path+".commands" and path+".deps". Corruption or a header
// mismatch in either file is non-fatal: that file's contents are discarded
// and, for ".deps", rebuilt from the commands that did load successfully.
// Load reports whether any prior command state was found.
func (db *Database) Load(path string) (bool, error) {
	defer globalMetrics.record("database.load")()

	*db = Database{}

	commandData, err := os.ReadFile(path + ".commands")
	if err != nil || len(commandData) == 0 {
		return false, nil
	}

	if ok := db.loadCommands(commandData); !ok {
		*db = Database{}
		return false, nil
	}

	depData, err := os.ReadFile(path + ".deps")
	if err != nil || len(depData) == 0 {
		db.RebuildFileDependencies()
		return true, nil
	}

	if !db.loadDeps(depData) {
		db.RebuildFileDependencies()
	}

	return true, nil
}

func (db *Database) loadCommands(data []byte) bool {
	d := &decoder{data: data}
	if err := d.readHeader(); err != nil {
		logger().Warn("existing build database incompatible or corrupted", "file", ".commands", "err", err)
		return false
	}

	numCommands, err := d.readUint()
	if err != nil {
		logger().Warn("existing build database incompatible or corrupted", "err", err)
		return false
	}

	commands := make([]CommandEntry, 0, numCommands)
	commandDependencies := make([][]CommandId, numCommands)
	commandSignatures := make([]Signature, 0, numCommands)
	depFileSignatures := make([]Signature, 0, numCommands)

	for index := uint32(0); index < numCommands; index++ {
		var c CommandEntry
		var ferr error
		if c.Command, ferr = d.readString(); ferr == nil {
			if c.Description, ferr = d.readString(); ferr == nil {
				if c.WorkingDirectory, ferr = d.readString(); ferr == nil {
					if c.DepFile, ferr = d.readDepFile(); ferr == nil {
						if c.RspFile, ferr = d.readString(); ferr == nil {
							if c.RspContents, ferr = d.readString(); ferr == nil {
								if c.Inputs, ferr = d.readStringList(); ferr == nil {
									c.Outputs, ferr = d.readStringList()
								}
							}
						}
					}
				}
			}
		}
		if ferr != nil {
			logger().Warn("existing build database incompatible or corrupted", "err", ferr)
			return false
		}

		sig, err := d.readSignature()
		if err != nil {
			logger().Warn("existing build database incompatible or corrupted", "err", err)
			return false
		}
		depSig, err := d.readSignature()
		if err != nil {
			logger().Warn("existing build database incompatible or corrupted", "err", err)
			return false
		}
		deps, err := d.readIdList()
		if err != nil {
			logger().Warn("existing build database incompatible or corrupted", "err", err)
			return false
		}
		if uint32(len(deps)) > numCommands {
			logger().Warn("existing build database incompatible or corrupted", "err", "dependency count out of bounds")
			return false
		}
		for _, dep := range deps {
			if dep >= index {
				logger().Warn("existing build database incompatible or corrupted", "err", "dependency index out of bounds")
				return false
			}
		}

		commands = append(commands, c)
		commandSignatures = append(commandSignatures, sig)
		depFileSignatures = append(depFileSignatures, depSig)
		commandDependencies[index] = deps
	}

	db.Commands = commands
	db.CommandDependencies = commandDependencies
	db.CommandSignatures = commandSignatures
	db.DepFileSignatures = depFileSignatures
	return true
}

func (db *Database) loadDeps(data []byte) bool {
	d := &decoder{data: data}
	if err := d.readHeader(); err != nil {
		logger().Warn("existing dependency database incompatible or corrupted", "err", err)
		return false
	}

	numDeps, err := d.readUint()
	if err != nil {
		logger().Warn("existing dependency database incompatible or corrupted", "err", err)
		return false
	}

	result := make([]FileDependencies, 0, numDeps)
	for index := uint32(0); index < numDeps; index++ {
		var fd FileDependencies
		var ferr error
		if fd.Path, ferr = d.readString(); ferr == nil {
			fd.DependentCommands, ferr = d.readIdList()
		}
		if ferr != nil {
			logger().Warn("existing dependency database incompatible or corrupted", "err", ferr)
			return false
		}
		for _, dep := range fd.DependentCommands {
			if int(dep) >= len(db.Commands) {
				logger().Warn("existing dependency database incompatible or corrupted", "err", "dependency index out of bounds")
				return false
			}
		}
		fileSig, err := d.readSignature()
		if err != nil {
			logger().Warn("existing dependency database incompatible or corrupted", "err", err)
			return false
		}
		dirSig, err := d.readSignature()
		if err != nil {
			logger().Warn("existing dependency database incompatible or corrupted", "err", err)
			return false
		}
		fd.SignaturePair = SignaturePair{File: fileSig, Dir: dirSig}
		result = append(result, fd)
	}

	db.FileDependencies = result
	return true
}

// Save writes path+".commands" and path+".deps", overwriting any prior
// contents.
func (db *Database) Save(path string) error {
	defer globalMetrics.record("database.save")()

	var commandFile bytes.Buffer
	writeHeader(&commandFile)
	writeUint(&commandFile, uint32(len(db.Commands)))
	for index, c := range db.Commands {
		writeString(&commandFile, c.Command)
		writeString(&commandFile, c.Description)
		writeString(&commandFile, c.WorkingDirectory)
		writeDepFile(&commandFile, c.DepFile)
		writeString(&commandFile, c.RspFile)
		writeString(&commandFile, c.RspContents)
		writeStringList(&commandFile, c.Inputs)
		writeStringList(&commandFile, c.Outputs)
		writeSignatureBytes(&commandFile, db.CommandSignatures[index])
		writeSignatureBytes(&commandFile, db.DepFileSignatures[index])
		writeIdList(&commandFile, db.CommandDependencies[index])
	}
	if err := os.WriteFile(path+".commands", commandFile.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing command database: %w", err)
	}

	var depFile bytes.Buffer
	writeHeader(&depFile)
	writeUint(&depFile, uint32(len(db.FileDependencies)))
	for _, fd := range db.FileDependencies {
		writeString(&depFile, fd.Path)
		writeIdList(&depFile, fd.DependentCommands)
		writeSignatureBytes(&depFile, fd.SignaturePair.File)
		writeSignatureBytes(&depFile, fd.SignaturePair.Dir)
	}
	if err := os.WriteFile(path+".deps", depFile.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing dependency database: %w", err)
	}
	return nil
}

// commandSortProxy carries a command through the topological sort: its
// original id, the dependency ids computed from the output-ownership map,
// and the depth used to order it.
type commandSortProxy struct {
	id           CommandId
	depth        int
	dependencies []CommandId
}

// SetCommands replaces the database's command list: it canonicalizes every
// path, resolves each command's dependencies from the output-ownership
// map, topologically sorts by descending depth (dependencies end up
// earlier in the array than their dependents), remaps dependency ids to
// the new order, preserves command signatures whose value is unchanged,
// and finally rebuilds the file-dependency index.
//
// base is the directory relative paths in commands are resolved against.
func (db *Database) SetCommands(commands []CommandEntry, base string) error {
	for i := range commands {
		for j := range commands[i].Outputs {
			commands[i].Outputs[j] = canonicalizePath(commands[i].Outputs[j], base)
		}
		for j := range commands[i].Inputs {
			commands[i].Inputs[j] = canonicalizePath(commands[i].Inputs[j], base)
		}
	}

	commandMap := make(map[string]CommandId, len(commands))
	for i := range commands {
		for _, output := range commands[i].Outputs {
			if owner, ok := commandMap[output]; ok {
				return &DuplicateOutputError{
					Path:   output,
					First:  commands[owner].Description,
					Second: commands[i].Description,
				}
			}
			commandMap[output] = CommandId(i)
		}
	}

	proxies := make([]commandSortProxy, len(commands))
	for i := range commands {
		proxies[i].id = CommandId(i)
		deps := make([]CommandId, 0, len(commands[i].Inputs))
		for _, input := range commands[i].Inputs {
			if owner, ok := commandMap[input]; ok {
				deps = append(deps, owner)
			}
		}
		proxies[i].dependencies = deps
	}

	// Iterative depth-first depth assignment. A dependency is pushed only
	// when its recorded depth is below the one proposed for it, but a popped
	// entry overwrites the node's depth unconditionally, and a node may sit
	// on the stack several times: a known superlinear edge case under large
	// fan-in, not optimized here.
	var stack []commandSortProxy
	next := 0
	for next < len(proxies) || len(stack) > 0 {
		var id CommandId
		var depth int
		if len(stack) == 0 {
			id = proxies[next].id
			depth = proxies[id].depth
			next++
		} else {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			id, depth = top.id, top.depth
		}

		proxies[id].depth = depth

		for _, dep := range proxies[id].dependencies {
			if proxies[dep].depth < depth+1 {
				// No acyclic dependency chain is as long as the command
				// count, so reaching it means the walk is going round a cycle.
				if depth+1 >= len(proxies) {
					return &CycleError{
						CommandA: commands[id].Description,
						CommandB: commands[dep].Description,
					}
				}
				stack = append(stack, commandSortProxy{id: dep, depth: depth + 1})
			}
		}
	}

	sortOrder := make([]int, len(proxies))
	for i := range sortOrder {
		sortOrder[i] = i
	}
	sortStableDescByDepth(sortOrder, proxies)

	idRemap := make([]CommandId, len(commands))
	newCommands := make([]CommandEntry, 0, len(commands))
	newDependencies := make([][]CommandId, 0, len(commands))
	for newID, oldIdx := range sortOrder {
		idRemap[proxies[oldIdx].id] = CommandId(newID)
	}
	for _, oldIdx := range sortOrder {
		newCommands = append(newCommands, commands[proxies[oldIdx].id])
		deps := proxies[oldIdx].dependencies
		remapped := make([]CommandId, len(deps))
		for i, dep := range deps {
			remapped[i] = idRemap[dep]
		}
		newDependencies = append(newDependencies, remapped)
	}

	for index, deps := range newDependencies {
		for _, dep := range deps {
			if int(dep) >= len(newCommands) {
				return fmt.Errorf("internal error: dependency index out of bounds")
			}
			if int(dep) >= index {
				return &CycleError{
					CommandA: newCommands[index].Description,
					CommandB: newCommands[dep].Description,
				}
			}
		}
	}

	existingSignatures := make(map[Signature]struct{}, len(db.CommandSignatures))
	for _, sig := range db.CommandSignatures {
		existingSignatures[sig] = struct{}{}
	}

	newSignatures := make([]Signature, len(newCommands))
	for i := range newCommands {
		sig := computeCommandSignature(&newCommands[i])
		if _, ok := existingSignatures[sig]; ok {
			newSignatures[i] = sig
		}
	}

	db.Commands = newCommands
	db.CommandDependencies = newDependencies
	db.CommandSignatures = newSignatures

	db.RebuildFileDependencies()
	return nil
}

// sortStableDescByDepth sorts order (indices into proxies) by descending
// proxies[order[i]].depth, stably.
func sortStableDescByDepth(order []int, proxies []commandSortProxy) {
	// insertion sort: command graphs in this core are not large enough to
	// warrant sort.Slice's allocation, and stability matters for
	// deterministic output ordering among equal-depth commands.
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && proxies[order[j-1]].depth < proxies[order[j]].depth {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
}

// RebuildFileDependencies recomputes FileDependencies from the current
// Commands: every depfile is parsed (its content hash cached first, since
// parsing mutates the read buffer in place) and every input or depfile-
// discovered path not produced by another command is attributed to the
// commands that depend on it. Any previously recorded SignaturePair for a
// path that still appears is carried forward so the next dirtiness pass
// does not treat it as never-seen.
func (db *Database) RebuildFileDependencies() {
	outputs := make(map[string]struct{})
	for i := range db.Commands {
		for _, output := range db.Commands[i].Outputs {
			outputs[output] = struct{}{}
		}
	}

	depFileSignatures := make([]Signature, len(db.Commands))
	depCommands := make(map[string][]CommandId)

	for index := range db.Commands {
		c := &db.Commands[index]
		var depSig Signature
		if c.DepFile.Path != "" {
			if content, err := os.ReadFile(c.DepFile.Path); err == nil {
				depSig = md5Sum(content)
				var paths []string
				switch c.DepFile.Format {
				case DepFileFormatGCC:
					paths, _ = parseGCCDepfile(content)
				case DepFileFormatMSVC:
					paths, _ = parseMSVCDepfile(content)
				}
				for _, p := range paths {
					if _, ok := outputs[p]; !ok {
						depCommands[p] = append(depCommands[p], CommandId(index))
					}
				}
			}
		}
		depFileSignatures[index] = depSig

		for _, input := range c.Inputs {
			if _, ok := outputs[input]; !ok {
				depCommands[input] = append(depCommands[input], CommandId(index))
			}
		}
	}
	db.DepFileSignatures = depFileSignatures

	existingSignatures := make(map[string]SignaturePair, len(db.FileDependencies))
	for _, fd := range db.FileDependencies {
		existingSignatures[fd.Path] = fd.SignaturePair
	}

	result := make([]FileDependencies, 0, len(depCommands))
	for path, commands := range depCommands {
		result = append(result, FileDependencies{
			Path:              path,
			DependentCommands: commands,
			SignaturePair:     existingSignatures[path],
		})
	}
	db.FileDependencies = result
}
