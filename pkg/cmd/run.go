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
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zkfuzz/zkfuzz/pkg/artifact"
	"github.com/zkfuzz/zkfuzz/pkg/ast"
	"github.com/zkfuzz/zkfuzz/pkg/config"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
	"github.com/zkfuzz/zkfuzz/pkg/field/bn254"
	"github.com/zkfuzz/zkfuzz/pkg/log"
	"github.com/zkfuzz/zkfuzz/pkg/search"
)

// ParseProgram loads the input file at path into a pkg/ast.Program.
// Spec §6 states the AST "is supplied by an external parser not
// specified here"; this package stays honest to that boundary by
// exposing the parse step as a replaceable hook rather than inventing
// a Circom front-end of its own. A front-end binary wires this up in
// its own init(); the default reports a clear, actionable error.
//
// symbolicTemplateParams carries "--symbolic_template_params" through
// to the front-end: the executor already treats any Main.Args entry
// the parser leaves as an unresolved ast.NameRef as a free symbolic
// reference (pkg/exec.resolveName's "unbound plain name" case), so
// honouring this flag is entirely a parser-side decision about what to
// put in Main.Args -- nothing in pkg/exec itself needs to change.
var ParseProgram func(path string, symbolicTemplateParams bool) (*ast.Program, error) = func(string, bool) (*ast.Program, error) {
	return nil, fmt.Errorf("no circuit parser registered: set cmd.ParseProgram before calling Execute")
}

func runAnalysis(cmd *cobra.Command, path string) error {
	start := time.Now()

	prog, err := ParseProgram(path, mustBool(cmd, "symbolic_template_params"))
	if err != nil {
		return &cliError{code: 1, msg: fmt.Sprintf("parsing %s: %v", path, err)}
	}

	mode, err := parseSearchMode(mustString(cmd, "search_mode"))
	if err != nil {
		return &cliError{code: 1, msg: err.Error()}
	}

	mutCfg := config.Load(mustString(cmd, "path_to_mutation_setting"))

	strategy, err := parseStrategy(mutCfg.TraceMutationMethod)
	if err != nil {
		return &cliError{code: 1, msg: err.Error()}
	}

	if hr := mustInt(cmd, "heuristics_range"); hr > 0 {
		mutCfg.BinaryModeSearchLevel = hr
	}

	whitelist, err := loadWhitelist(mustString(cmd, "path_to_whitelist"))
	if err != nil {
		return &cliError{code: 1, msg: err.Error()}
	}

	if whitelisted(prog, whitelist) {
		log.Infof("main template is whitelisted, skipping analysis")
		return nil
	}

	scfg := search.Config{Mutation: mutCfg, Mode: mode, Workers: mustInt(cmd, "workers"), Strategy: strategy}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	primeName := mustString(cmd, "prime")
	if dp := mustString(cmd, "debug_prime"); dp != "" {
		primeName = dp
	}

	outcome, err := runWithField(ctx, prog, primeName, scfg)
	if err != nil {
		return &cliError{code: 1, msg: err.Error()}
	}

	elapsed := time.Since(start)

	if !outcome.found {
		fmt.Println("no violation found within the search budget")
		return nil
	}

	fmt.Printf("violation found: %s (generation %d)\n", outcome.class, outcome.generation)

	if mustBool(cmd, "save_output") {
		ce := artifact.Counterexample{
			TargetPath:      path,
			MainTemplate:    prog.Main.Template,
			SearchMode:      mustString(cmd, "search_mode"),
			ExecutionTimeMs: elapsed.Milliseconds(),
			Flag:            artifact.Flag{Type: outcome.class.String()},
			Assignment:      outcome.assignment,
			Auxiliary: artifact.Auxiliary{
				Config: mutCfg,
				Log:    artifact.Log{Generation: outcome.generation, RandomSeed: mutCfg.Seed},
			},
			RunID: outcome.runID,
		}

		if err := artifact.Write("counterexample.json", ce); err != nil {
			return &cliError{code: 1, msg: fmt.Sprintf("writing counterexample artefact: %v", err)}
		}
	}

	return nil
}

// outcome flattens the generic search.Result into field-agnostic data
// the CLI layer can print/serialise without itself being generic.
type outcome struct {
	found      bool
	class      fmt.Stringer
	generation int
	assignment map[string]string
	runID      string
}

// runWithField selects the field backend per spec §6's "--prime"/
// "--debug_prime" and instantiates the generic pipeline
// (exec.NewExecutor -> search.Run/BruteForce) over it. bn254 gets
// gnark-crypto's optimised Element; any other name, or a literal
// decimal prime, falls back to pkg/field/bignum's runtime-modulus
// backend, since none of the pack's other generated field packages
// (bls12_377, koalabear, gf8209, gf251) support an arbitrary modulus
// chosen at run time.
func runWithField(ctx context.Context, prog *ast.Program, primeName string, scfg search.Config) (outcome, error) {
	if strings.EqualFold(primeName, "bn254") {
		return runGeneric[bn254.Element](ctx, prog, bn254.One(), scfg)
	}

	p, ok := new(big.Int).SetString(primeName, 10)
	if !ok {
		return outcome{}, fmt.Errorf("unrecognised --prime value %q: expected \"bn254\" or a decimal prime literal", primeName)
	}

	mod := bignum.NewModulus(p)

	return runGeneric[bignum.Element](ctx, prog, mod.One(), scfg)
}

// runGeneric builds the baseline trace for prog and dispatches to the
// search driver selected by scfg.Mode, all instantiated over the field
// backend F fixed by one's concrete type.
func runGeneric[F field.Element[F]](ctx context.Context, prog *ast.Program, one F, scfg search.Config) (outcome, error) {
	exr := exec.NewExecutor[F](prog, exec.DefaultSymbolicSetting(), one)

	baseline, err := exr.Run()
	if err != nil {
		return outcome{}, fmt.Errorf("symbolic execution: %w", err)
	}

	res, err := search.Run[F](ctx, baseline, scfg, one)
	if err != nil {
		return outcome{}, err
	}

	if !res.Found {
		return outcome{found: false, generation: res.Generation}, nil
	}

	assignment := make(map[string]string, len(res.Input))
	for name, v := range res.Input {
		assignment[string(name)] = v.String()
	}

	return outcome{
		found:      true,
		class:      res.Class,
		generation: res.Generation,
		assignment: assignment,
		runID:      artifact.RunIDString(res.RunID),
	}, nil
}
