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

// CommandId identifies a command within a Database's parallel arrays. It is
// the index into Database.Commands; it is only valid for the Database it
// came from.
type CommandId = uint32

// DepFileFormat names the dialect a DepFile is written in.
type DepFileFormat int

const (
	DepFileFormatNone DepFileFormat = iota
	DepFileFormatGCC
	DepFileFormatMSVC
)

// DepFile points at a dynamic dependency listing a command writes as a
// side effect of running (e.g. gcc -MMD or cl.exe /sourceDependencies).
// Dependencies discovered this way are merged into the database's file
// dependency graph after the command finishes, since they could not be
// known before the command ran.
type DepFile struct {
	Path   string
	Format DepFileFormat
}

// CommandEntry is one node of the command graph: a shell command together
// with the files it reads, the files it writes, and how to harvest any
// dynamic dependencies it discovers at run time. A CommandEntry with an
// empty Command is a phony rule: it groups inputs/outputs without running
// anything.
type CommandEntry struct {
	Command          string
	Inputs           []string
	Outputs          []string
	WorkingDirectory string
	DepFile          DepFile
	RspFile          string
	RspContents      string
	Description      string
}

// IsPhony reports whether this command performs no actual work.
func (c *CommandEntry) IsPhony() bool {
	return c.Command == ""
}

// FileDependencies tracks the signature of one path on disk and the set of
// commands whose dirtiness depends on it. A path may be an input to many
// commands, so signature refresh happens once per path, not once per
// command-input pair.
type FileDependencies struct {
	Path              string
	DependentCommands []CommandId
	SignaturePair     SignaturePair
}

// PendingCommand is a command the dirtiness analyzer has selected for
// execution, in topological order relative to the other pending commands.
type PendingCommand struct {
	Id      CommandId
	Command *CommandEntry
}
