// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cmd implements the CLI surface of spec §6, built on cobra
// following the teacher's cmd/main.go -> cmd.Execute() convention
// (pkg/cmd/root.go's rootCmd + GetFlag accessor idiom) adapted from a
// multi-subcommand compiler toolbox to this engine's single-command
// analyse-and-search surface.
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/zkfuzz/zkfuzz/pkg/log"
)

// Version is filled when building with make, but *not* when installing
// via "go install" (mirrors the teacher's convention exactly).
var Version string

var rootCmd = &cobra.Command{
	Use:   "zkfuzz <input>",
	Short: "Finds well-constrainedness violations in arithmetic circuits.",
	Long: "zkfuzz statically executes a circuit's assignment trace and side " +
		"constraints, then co-evolutionarily fuzzes program mutations and " +
		"inputs to find under-constrained or over-constrained circuits.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRoot,
}

func init() {
	rootCmd.Flags().Bool("version", false, "report version of this executable")
	rootCmd.Flags().String("prime", "bn254", "named curve or literal decimal prime")
	rootCmd.Flags().String("debug_prime", "", "override prime for debugging (decimal)")
	rootCmd.Flags().String("search_mode", "ga", "ga|quick|full|none")
	rootCmd.Flags().String("path_to_mutation_setting", "", "JSON file with the search configuration")
	rootCmd.Flags().String("path_to_whitelist", "", "template names to skip")
	rootCmd.Flags().Bool("symbolic_template_params", false, "leave main's template parameters symbolic")
	rootCmd.Flags().Bool("save_output", false, "write a counterexample artefact when found")
	rootCmd.Flags().Int("heuristics_range", 3, "depth bound for binary-pattern search")
	rootCmd.Flags().Int("workers", runtime.GOMAXPROCS(0), "number of concurrent evaluation workers")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	log.Init(GetFlag(cmd, "verbose"))

	if v, _ := cmd.Flags().GetBool("version"); v {
		printVersion()
		return nil
	}

	if len(args) != 1 {
		return cmd.Help()
	}

	return runAnalysis(cmd, args[0])
}

func printVersion() {
	fmt.Print("zkfuzz ")

	if Version != "" {
		fmt.Printf("%s", Version)
	} else if info, ok := debug.ReadBuildInfo(); ok {
		fmt.Printf("%s", info.Main.Version)
	} else {
		fmt.Print("(unknown version)")
	}

	fmt.Println()
}

// GetFlag reads a bool flag, exiting the process on programmer error
// (an undeclared flag name), mirroring the teacher's getFlag idiom.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// exitCode maps a run error to spec §6's exit code convention: 1 for
// invalid inputs / compile-time errors, 0 otherwise (a found violation
// is an expected outcome, not a process failure, and is never surfaced
// as a non-nil error by runAnalysis).
func exitCode(err error) int {
	if ce, ok := err.(*cliError); ok {
		return ce.code
	}

	return 1
}

type cliError struct {
	code int
	msg  string
}

func (e *cliError) Error() string { return e.msg }
