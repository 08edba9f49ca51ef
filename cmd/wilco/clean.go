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
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove every output path named by the current graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd)
		},
	}
}

func runClean(cmd *cobra.Command) error {
	commands, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	removed := 0
	for _, c := range commands {
		for _, output := range c.Outputs {
			if err := os.Remove(output); err == nil {
				removed++
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("removing %q: %w", output, err)
			}
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d output(s).\n", removed)
	return nil
}
