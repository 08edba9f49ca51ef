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

	"github.com/spf13/cobra"

	"github.com/wilco-build/wilco"
)

func newConfigureCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Check whether the configuration needs to re-run, and ingest the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, args, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "unconditionally re-ingest the graph into the build database")
	return cmd
}

func runConfigure(cmd *cobra.Command, args []string, force bool) error {
	wilco.SetVerbose(isVerbose())

	cacheDir := resolvedCachePath()
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("creating cache path %q: %w", cacheDir, err)
	}
	configDBPath := filepath.Join(cacheDir, ".config_db")

	modulePath, err := os.Executable()
	if err != nil {
		return err
	}

	dirty, configDB, err := wilco.NeedsReconfigure(configDBPath, os.Args[1:], nil, modulePath)
	if err != nil {
		return err
	}

	if !dirty && !force {
		fmt.Fprintln(cmd.OutOrStdout(), "Configuration is up to date.")
		return nil
	}

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
	if err := db.Save(databasePath); err != nil {
		return err
	}

	if err := wilco.RecordConfigured(configDB, configDBPath); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Reconfigured.")
	return nil
}
