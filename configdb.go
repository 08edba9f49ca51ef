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

import "strings"

// BuildConfigurationCommand builds the single synthetic CommandEntry a
// configuration Database carries: its Command string is never executed,
// only hashed, so that running the same args against the same
// configuration files and module binary signs as clean. Its Inputs are
// every configuration dependency the Engine has recorded plus the current
// module's own path, so that touching the configuration program, any file
// it reads, or the tool binary itself is detected as "needs to re-run".
func BuildConfigurationCommand(args []string, configurationDependencies []string, modulePath string) CommandEntry {
	command := "wilco\n" + strings.Join(args, "\n")

	inputs := make([]string, 0, len(configurationDependencies)+1)
	inputs = append(inputs, configurationDependencies...)
	inputs = append(inputs, modulePath)

	return CommandEntry{
		Command:     command,
		Inputs:      inputs,
		Description: "configuration",
	}
}

// NeedsReconfigure loads (or creates) the configuration database at path,
// filters it against a single synthetic command, and reports whether the
// configuration needs to re-run: a non-empty filter result means some
// configuration dependency, or the tool binary itself, changed since the
// last successful configure.
func NeedsReconfigure(path string, args []string, configurationDependencies []string, modulePath string) (bool, *Database, error) {
	db := NewDatabase()
	if _, err := db.Load(path); err != nil {
		return false, nil, err
	}

	command := BuildConfigurationCommand(args, configurationDependencies, modulePath)
	if err := db.SetCommands([]CommandEntry{command}, "."); err != nil {
		return false, nil, err
	}

	pending, err := FilterCommands(db, ".", nil)
	if err != nil {
		return false, nil, err
	}
	return len(pending) > 0, db, nil
}

// RecordConfigured marks the configuration database's single command as
// clean (its current signature) and saves it, called after the
// configuration program has successfully re-run.
func RecordConfigured(db *Database, path string) error {
	if len(db.Commands) != 1 {
		return nil
	}
	db.CommandSignatures[0] = computeCommandSignature(&db.Commands[0])
	return db.Save(path)
}
