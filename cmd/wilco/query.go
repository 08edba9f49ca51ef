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

	"github.com/wilco-build/wilco"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <target>",
		Short: "Print a target's direct inputs, outputs, and dependency ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0])
		},
	}
}

func runQuery(cmd *cobra.Command, target string) error {
	commands, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	db := wilco.NewDatabase()
	if err := db.SetCommands(commands, wd); err != nil {
		return err
	}

	expanded := wilco.ResolveTarget(wd, target)

	for id := range db.Commands {
		c := &db.Commands[id]
		matches := target == c.Description
		for _, out := range c.Outputs {
			if out == expanded {
				matches = true
				break
			}
		}
		if !matches {
			continue
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s:\n", target)
		fmt.Fprintln(w, "  inputs:")
		for _, in := range c.Inputs {
			fmt.Fprintf(w, "    %s\n", in)
		}
		fmt.Fprintln(w, "  outputs:")
		for _, out := range c.Outputs {
			fmt.Fprintf(w, "    %s\n", out)
		}
		fmt.Fprintln(w, "  depends on:")
		for _, dep := range db.CommandDependencies[id] {
			fmt.Fprintf(w, "    #%d %s\n", dep, db.Commands[dep].Description)
		}
		return nil
	}

	names := make([]string, 0, len(db.Commands))
	for _, c := range db.Commands {
		if c.Description != "" {
			names = append(names, c.Description)
		}
		names = append(names, c.Outputs...)
	}
	if suggestion := wilco.SuggestTarget(target, names); suggestion != "" {
		return fmt.Errorf("the specified target could not be found:\n  %s (%s)\ndid you mean %q?", target, expanded, suggestion)
	}
	return fmt.Errorf("the specified target could not be found:\n  %s (%s)", target, expanded)
}
