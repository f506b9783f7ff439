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
package search_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/pkg/config"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
	"github.com/zkfuzz/zkfuzz/pkg/mutate"
	"github.com/zkfuzz/zkfuzz/pkg/search"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

var testPrime = big.NewInt(11)

func testModulus() *bignum.Modulus { return bignum.NewModulus(testPrime) }

func cst(mod *bignum.Modulus, v int64) expr.Expr[bignum.Element] {
	return &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(v))}
}

func nm(n string) expr.Expr[bignum.Element] {
	return &expr.NameExpr[bignum.Element]{Name: expr.Name(n)}
}

// overConstrainedTrace computes out=in*2 correctly but carries an
// extraneous side constraint in=3, incorrectly rejecting every other
// otherwise-valid input -- an over-constrained circuit.
func overConstrainedTrace(mod *bignum.Modulus) *exec.Trace[bignum.Element] {
	return &exec.Trace[bignum.Element]{
		Statements: []exec.Statement[bignum.Element]{
			{Kind: exec.Witness, Target: "out", Value: &expr.Binary[bignum.Element]{
				Op: expr.Mul, L: nm("in"), R: cst(mod, 2),
			}},
		},
		SideConstraints: []expr.Expr[bignum.Element]{
			&expr.Compare[bignum.Element]{Op: expr.Eq, L: nm("in"), R: cst(mod, 3)},
		},
		Inputs:  []expr.Name{"in"},
		Outputs: []expr.Name{"out"},
	}
}

func safeTrace(mod *bignum.Modulus) *exec.Trace[bignum.Element] {
	return &exec.Trace[bignum.Element]{
		Statements: []exec.Statement[bignum.Element]{
			{Kind: exec.WitnessAndConstraint, Target: "out", Value: &expr.Binary[bignum.Element]{
				Op: expr.Mul, L: nm("in"), R: cst(mod, 2),
			}},
		},
		Inputs:  []expr.Name{"in"},
		Outputs: []expr.Name{"out"},
	}
}

func TestRunGACompletesAndReportsIterations(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	baseline := safeTrace(mod)

	cfg := config.Default()
	cfg.RandomValueRanges = []config.Range{{Lo: big.NewInt(0), Hi: testPrime, Prob: 1.0}}
	cfg.Seed = 1
	cfg.ProgramPopulationSize = 6
	cfg.InputPopulationSize = 6
	cfg.MaxGenerations = 20
	cfg.InputUpdateInterval = 1

	res, err := search.Run[bignum.Element](context.Background(), baseline, search.Config{
		Mutation: cfg, Mode: search.ModeGA, Workers: 2, Strategy: mutate.StrategyConstantOperator,
	}, one)

	require.NoError(t, err)
	// A correctly-constrained doubling circuit should not itself be
	// flagged against its own (unmutated) baseline; mutants that tighten
	// or loosen it may or may not trip a violation within the budget --
	// this run only asserts the driver completes and reports iterations.
	require.GreaterOrEqual(t, res.Iterations, 0)
	_ = res.Found
}

func TestBruteForceFullFindsOverConstrained(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	baseline := overConstrainedTrace(mod)

	cfg := config.Default()
	cfg.Seed = 0

	res, err := search.BruteForce[bignum.Element](context.Background(), baseline, search.Config{Mutation: cfg, Mode: search.ModeFull}, one, uuid.New())
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, "over-constrained", res.Class.String())
}

func TestBruteForceNoneSkipsSearch(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	baseline := safeTrace(mod)
	cfg := config.Default()

	res, err := search.BruteForce[bignum.Element](context.Background(), baseline, search.Config{Mutation: cfg, Mode: search.ModeNone}, one, uuid.New())
	require.NoError(t, err)
	require.False(t, res.Found)
}

// unusedOutputTrace declares "out" but never assigns it, exercising
// the CheckUnusedOutputs pre-pass ahead of the GA/brute-force drivers.
func unusedOutputTrace() *exec.Trace[bignum.Element] {
	return &exec.Trace[bignum.Element]{
		Inputs:  []expr.Name{"in"},
		Outputs: []expr.Name{"out"},
	}
}

func TestRunReportsUnusedOutputWithoutSearching(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	baseline := unusedOutputTrace()
	cfg := config.Default()

	res, err := search.Run[bignum.Element](context.Background(), baseline, search.Config{Mutation: cfg, Mode: search.ModeGA}, one)
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, "under-constrained/non-deterministic", res.Class.String())
	require.Equal(t, 0, res.Generation)
	require.Equal(t, 0, res.Iterations)
}
