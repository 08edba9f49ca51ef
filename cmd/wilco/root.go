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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wilco-build/wilco"
)

var (
	buildPath       string
	wilcoCachePath  string
	noSelfUpdate    bool
	verbose         bool
	internalRestart bool
	graphPath       string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wilco",
		Short:         "Incremental parallel command execution engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&buildPath, "build-path", "", "where build artifacts and the build database live (default: buildfiles)")
	root.PersistentFlags().StringVar(&wilcoCachePath, "wilco-cache-path", "", "where the self-rebuild database lives (default: .wilcofiles)")
	root.PersistentFlags().BoolVar(&noSelfUpdate, "no-self-update", false, "skip the self-rebuild driver")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "echo full command lines as executed")
	root.PersistentFlags().BoolVar(&internalRestart, "internal-restart", false, "internal marker used by the self-rebuild driver; not for users")
	root.PersistentFlags().StringVar(&graphPath, "graph", "graph.json", "path to the resolved command graph JSON file")
	_ = root.PersistentFlags().MarkHidden("internal-restart")

	viper.SetEnvPrefix("WILCO")
	viper.AutomaticEnv()
	_ = viper.BindEnv("build-path", "WILCO_BUILD_PATH")
	_ = viper.BindEnv("wilco-cache-path", "WILCO_CACHE_PATH")
	_ = viper.BindPFlag("build-path", root.PersistentFlags().Lookup("build-path"))
	_ = viper.BindPFlag("wilco-cache-path", root.PersistentFlags().Lookup("wilco-cache-path"))
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(newBuildCmd())
	root.AddCommand(newConfigureCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newCompileCommandsCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func run() int {
	if code, handled := maybeSelfRebuild(); handled {
		return code
	}

	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		var failed *wilco.CommandFailedError
		if errors.As(err, &failed) {
			fmt.Fprintln(os.Stderr, err)
			if failed.ExitCode != 0 {
				return failed.ExitCode
			}
			return 1
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// maybeSelfRebuild implements the self-rebuild protocol at process start
// (spec.md §4.6): unless disabled, the first invocation re-execs itself in
// a bounded loop so that an out-of-date wilco binary rebuilds itself
// before running the actual command; the re-exec'd children pass
// --internal-restart and, on that path, only check and possibly perform
// the self-rebuild, reporting ExitRestart if they did so the parent loops
// again, rather than going on to run the requested subcommand.
func maybeSelfRebuild() (int, bool) {
	root := newRootCmd()
	if err := root.ParseFlags(os.Args[1:]); err != nil {
		return 0, false
	}

	if noSelfUpdate {
		return 0, false
	}

	executablePath, err := os.Executable()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1, true
	}

	engine := wilco.NewEngine(resolvedBuildPath(), resolvedCachePath())

	if !internalRestart {
		code, err := wilco.RestartLoop(engine.Context(), executablePath, os.Args[1:])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1, true
		}
		return code, true
	}

	sources, err := filepath.Glob("*.go")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1, true
	}
	selfCommands := []wilco.CommandEntry{{
		Command:     fmt.Sprintf("go build -o %q .", executablePath),
		Inputs:      sources,
		Outputs:     []string{executablePath},
		Description: "rebuild wilco itself",
	}}
	rebuilt, err := wilco.RebuildSelf(engine.Context(), resolvedCachePath(), executablePath, selfCommands, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1, true
	}
	if rebuilt {
		return wilco.ExitRestart, true
	}

	return 0, false
}

func resolvedBuildPath() string {
	if v := viper.GetString("build-path"); v != "" {
		return v
	}
	return "buildfiles"
}

func resolvedCachePath() string {
	if v := viper.GetString("wilco-cache-path"); v != "" {
		return v
	}
	return ".wilcofiles"
}

func isVerbose() bool {
	return viper.GetBool("verbose")
}
