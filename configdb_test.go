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
	"os"
	"path/filepath"
	"testing"
)

func TestNeedsReconfigureFirstRun(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "BUILD.cue")
	if err := os.WriteFile(configFile, []byte("// v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	modulePath := filepath.Join(dir, "wilco")
	if err := os.WriteFile(modulePath, []byte("binary"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dbPath := filepath.Join(dir, ".build_db")
	dirty, db, err := NeedsReconfigure(dbPath, []string{"build"}, []string{configFile}, modulePath)
	if err != nil {
		t.Fatalf("NeedsReconfigure: %v", err)
	}
	if !dirty {
		t.Fatal("expected the very first run to report dirty")
	}

	if err := RecordConfigured(db, dbPath); err != nil {
		t.Fatalf("RecordConfigured: %v", err)
	}

	dirty, _, err = NeedsReconfigure(dbPath, []string{"build"}, []string{configFile}, modulePath)
	if err != nil {
		t.Fatalf("second NeedsReconfigure: %v", err)
	}
	if dirty {
		t.Fatal("expected a freshly recorded configuration to be clean")
	}
}

func TestNeedsReconfigureDetectsConfigChange(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "BUILD.cue")
	if err := os.WriteFile(configFile, []byte("// v1"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	modulePath := filepath.Join(dir, "wilco")
	if err := os.WriteFile(modulePath, []byte("binary"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dbPath := filepath.Join(dir, ".build_db")
	_, db, err := NeedsReconfigure(dbPath, []string{"build"}, []string{configFile}, modulePath)
	if err != nil {
		t.Fatalf("NeedsReconfigure: %v", err)
	}
	if err := RecordConfigured(db, dbPath); err != nil {
		t.Fatalf("RecordConfigured: %v", err)
	}

	// Mutate the configuration file's mtime/content.
	if err := os.WriteFile(configFile, []byte("// v2, changed"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	dirty, _, err := NeedsReconfigure(dbPath, []string{"build"}, []string{configFile}, modulePath)
	if err != nil {
		t.Fatalf("NeedsReconfigure after change: %v", err)
	}
	if !dirty {
		t.Fatal("expected a changed configuration file to be detected as dirty")
	}
}
