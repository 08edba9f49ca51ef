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

func newCompileCommandsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compilecommands",
		Short: "Emit compile_commands.json for the current graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileCommands(cmd, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "compile_commands.json", "path to write the JSON document to")
	return cmd
}

func runCompileCommands(cmd *cobra.Command, output string) error {
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

	data, err := wilco.ExportCompileCommands(db, wd)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", output, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
	return nil
}
