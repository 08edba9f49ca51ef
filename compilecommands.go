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

import "encoding/json"

// compileCommandsEntry is one element of a compile_commands.json array, the
// de facto format Clang tooling (clangd, clang-tidy) reads to understand
// how a project is built.
type compileCommandsEntry struct {
	Directory string `json:"directory"`
	File      string `json:"file"`
	Command   string `json:"command"`
}

// ExportCompileCommands walks db.Commands in stored (topological) order
// and emits a compile_commands.json document: one entry per non-phony
// command that has at least one input, using that input's first entry as
// "file" and directory as the command's WorkingDirectory.
func ExportCompileCommands(db *Database, directory string) ([]byte, error) {
	entries := make([]compileCommandsEntry, 0, len(db.Commands))
	for _, c := range db.Commands {
		if c.IsPhony() || len(c.Inputs) == 0 {
			continue
		}
		dir := c.WorkingDirectory
		if dir == "" {
			dir = directory
		}
		entries = append(entries, compileCommandsEntry{
			Directory: dir,
			File:      c.Inputs[0],
			Command:   c.Command,
		})
	}
	return json.MarshalIndent(entries, "", "  ")
}
