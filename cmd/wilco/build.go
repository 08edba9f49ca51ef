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
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wilco-build/wilco"
)

func newBuildCmd() *cobra.Command {
	var keepDepfile, keepRsp bool

	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Build output binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			wilco.SetKeepDepfile(keepDepfile)
			wilco.SetKeepRsp(keepRsp)
			return runBuild(cmd, args)
		},
	}
	cmd.Flags().BoolVar(&keepDepfile, "keep-depfile", false, "don't delete a command's depfile after harvesting it")
	cmd.Flags().BoolVar(&keepRsp, "keep-rsp", false, "don't delete a command's response file once it finishes")
	return cmd
}

func runBuild(cmd *cobra.Command, targets []string) error {
	wilco.SetVerbose(isVerbose())

	commands, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	buildDir := resolvedBuildPath()
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return fmt.Errorf("creating build path %q: %w", buildDir, err)
	}
	databasePath := filepath.Join(buildDir, ".wilco_db")

	db := wilco.NewDatabase()
	if _, err := db.Load(databasePath); err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := db.SetCommands(commands, wd); err != nil {
		return err
	}

	pending, err := wilco.FilterCommands(db, wd, targets)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do. (Everything up to date.)")
		return db.Save(databasePath)
	}

	maxConcurrent := runtime.NumCPU()
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Building using %d concurrent tasks.\n", maxConcurrent)

	engine := wilco.NewEngine(buildDir, resolvedCachePath())
	completed, runErr := wilco.RunCommands(engine.Context(), db, pending, maxConcurrent, isVerbose(), cmd.OutOrStdout())

	if saveErr := db.Save(databasePath); saveErr != nil && runErr == nil {
		runErr = saveErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d targets rebuilt.\n", completed, len(pending))

	if isVerbose() {
		fmt.Fprint(cmd.OutOrStdout(), wilco.MetricsReport())
	}

	return runErr
}
