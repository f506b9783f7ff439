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

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zkfuzz/zkfuzz/pkg/ast"
	"github.com/zkfuzz/zkfuzz/pkg/log"
	"github.com/zkfuzz/zkfuzz/pkg/mutate"
	"github.com/zkfuzz/zkfuzz/pkg/search"
)

func mustString(cmd *cobra.Command, flag string) string {
	v, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return v
}

func mustInt(cmd *cobra.Command, flag string) int {
	v, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return v
}

func mustBool(cmd *cobra.Command, flag string) bool {
	v, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return v
}

// parseSearchMode decodes spec §6's "--search_mode" flag, restored by
// SPEC_FULL §4.8 to its original four-way union (ga|quick|full|none)
// rather than the distilled spec's boolean on/off.
func parseSearchMode(s string) (search.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ga":
		return search.ModeGA, nil
	case "quick":
		return search.ModeQuick, nil
	case "full":
		return search.ModeFull, nil
	case "none":
		return search.ModeNone, nil
	default:
		return search.ModeGA, fmt.Errorf("--search_mode: unrecognised value %q (want ga|quick|full|none)", s)
	}
}

// parseStrategy decodes the mutation configuration document's
// "trace_mutation_method" field into the Strategy enum pkg/mutate
// expects (grounded on mutation_config.rs's four literal string
// values).
func parseStrategy(s string) (mutate.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "constant":
		return mutate.StrategyConstant, nil
	case "constant_operator":
		return mutate.StrategyConstantOperator, nil
	case "constant_operator_add":
		return mutate.StrategyConstantOperatorAdd, nil
	case "constant_operator_delete":
		return mutate.StrategyConstantOperatorDelete, nil
	default:
		return mutate.StrategyConstantOperator, fmt.Errorf("trace_mutation_method: unrecognised value %q", s)
	}
}

// loadWhitelist reads one template name per line from path (spec §6
// "--path_to_whitelist"); an empty path yields an empty whitelist, and
// a missing file is logged and otherwise ignored rather than aborting
// the run, matching --path_to_mutation_setting's missing-file
// tolerance.
func loadWhitelist(path string) (map[string]bool, error) {
	out := map[string]bool{}

	if path == "" {
		return out, nil
	}

	f, err := os.Open(path)
	if err != nil {
		log.Infof("whitelist %q unreadable, proceeding with none: %v", path, err)
		return out, nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}

		out[name] = true
	}

	return out, scanner.Err()
}

func whitelisted(prog *ast.Program, whitelist map[string]bool) bool {
	if len(whitelist) == 0 || prog.Main == nil {
		return false
	}

	return whitelist[prog.Main.Template]
}
