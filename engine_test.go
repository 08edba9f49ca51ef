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
	"path/filepath"
	"testing"
)

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine("", "")
	if e.BuildPath != "buildfiles" {
		t.Errorf("BuildPath = %q, want %q", e.BuildPath, "buildfiles")
	}
	if e.WilcoCachePath != ".wilcofiles" {
		t.Errorf("WilcoCachePath = %q, want %q", e.WilcoCachePath, ".wilcofiles")
	}
}

func TestEngineConfigurationDependenciesDeduplicateAndSort(t *testing.T) {
	e := NewEngine("", "")
	e.AddConfigurationDependency("b.cue")
	e.AddConfigurationDependency("a.cue")
	e.AddConfigurationDependency("b.cue")

	deps := e.ConfigurationDependencies()
	if len(deps) != 2 {
		t.Fatalf("deps = %v, want 2 entries", deps)
	}
	if filepath.Base(deps[0]) != "a.cue" || filepath.Base(deps[1]) != "b.cue" {
		t.Fatalf("deps = %v, want a.cue before b.cue", deps)
	}
	for _, d := range deps {
		if !filepath.IsAbs(d) {
			t.Errorf("dependency %q should have been made absolute", d)
		}
	}
}

func TestEngineContextNotCancelledBeforeInterrupt(t *testing.T) {
	e := NewEngine("", "")
	select {
	case <-e.Context().Done():
		t.Fatal("context should not be cancelled before any signal arrives")
	default:
	}
}
