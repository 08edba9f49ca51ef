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
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExportCompileCommandsSkipsPhonyAndInputless(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.o")
	in := filepath.Join(dir, "in.c")

	db := NewDatabase()
	if err := db.SetCommands([]CommandEntry{
		{Command: "cc -c " + in + " -o " + out, Inputs: []string{in}, Outputs: []string{out}, WorkingDirectory: dir, Description: "compile"},
		{Outputs: []string{filepath.Join(dir, "all")}, Description: "phony group"},
		{Command: "touch " + filepath.Join(dir, "stamp"), Outputs: []string{filepath.Join(dir, "stamp")}, Description: "no inputs"},
	}, dir); err != nil {
		t.Fatalf("SetCommands: %v", err)
	}

	data, err := ExportCompileCommands(db, dir)
	if err != nil {
		t.Fatalf("ExportCompileCommands: %v", err)
	}

	var entries []compileCommandsEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	want := []compileCommandsEntry{
		{Directory: dir, File: in, Command: "cc -c " + in + " -o " + out},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("compile commands mismatch (-want +got):\n%s", diff)
	}
}
