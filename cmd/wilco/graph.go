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

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wilco-build/wilco"
)

// loadGraph reads the JSON []CommandEntry document a configuration-DSL
// front end would hand the core, since that compiler itself is out of
// scope for this repository.
func loadGraph(path string) ([]wilco.CommandEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading graph file %q: %w", path, err)
	}
	var commands []wilco.CommandEntry
	if err := json.Unmarshal(data, &commands); err != nil {
		return nil, fmt.Errorf("parsing graph file %q: %w", path, err)
	}
	return commands, nil
}
