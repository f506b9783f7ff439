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
package input_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/pkg/config"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
	"github.com/zkfuzz/zkfuzz/pkg/input"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

var testPrime = big.NewInt(101)

func testModulus() *bignum.Modulus { return bignum.NewModulus(testPrime) }

func cst(mod *bignum.Modulus, v int64) expr.Expr[bignum.Element] {
	return &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(v))}
}

func nm(n string) expr.Expr[bignum.Element] {
	return &expr.NameExpr[bignum.Element]{Name: expr.Name(n)}
}

func testConfig() config.Mutation {
	cfg := config.Default()
	cfg.RandomValueRanges = []config.Range{{Lo: big.NewInt(0), Hi: testPrime, Prob: 1.0}}

	return cfg
}

func TestRandomDrawsEveryName(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	g := input.NewGenerator[bignum.Element](testConfig(), 7, one)
	ind := g.Random([]expr.Name{"a", "b", "c"}, false)

	require.Len(t, ind, 3)
	require.Contains(t, ind, expr.Name("a"))
	require.Contains(t, ind, expr.Name("b"))
	require.Contains(t, ind, expr.Name("c"))
}

func TestRandomBinaryModeRestrictsToZeroOrOne(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	g := input.NewGenerator[bignum.Element](testConfig(), 11, one)
	ind := g.Random([]expr.Name{"a", "b"}, true)

	for _, v := range ind {
		f := v.AsField(one)
		require.True(t, f.IsZero() || f.IsOne())
	}
}

func TestCrossoverProducesValueForEveryParentName(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	g := input.NewGenerator[bignum.Element](testConfig(), 3, one)

	a := input.Individual[bignum.Element]{"x": value.Field[bignum.Element](mod.FromInt64(1))}
	b := input.Individual[bignum.Element]{"x": value.Field[bignum.Element](mod.FromInt64(2)), "y": value.Field[bignum.Element](mod.FromInt64(3))}

	child := g.Crossover(a, b)
	require.Contains(t, child, expr.Name("x"))
	require.Contains(t, child, expr.Name("y"))
}

func TestMutateSinglepointChangesAtMostOneName(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	cfg := testConfig()
	cfg.InputGenerationSinglepointMutationRate = 1.0

	g := input.NewGenerator[bignum.Element](cfg, 5, one)

	ind := input.Individual[bignum.Element]{
		"a": value.Field[bignum.Element](mod.FromInt64(1)),
		"b": value.Field[bignum.Element](mod.FromInt64(2)),
	}

	out := g.Mutate(ind, []expr.Name{"a", "b"})

	changed := 0

	for n, v := range out {
		if !value.Equal[bignum.Element](v, ind[n], one) {
			changed++
		}
	}

	require.LessOrEqual(t, changed, 1)
}

func TestZeroDivisionAttemptSolvesLinearDenominator(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	// tmp <-- 10 / (in - 7); denominator is zero when in = 7.
	den := &expr.Binary[bignum.Element]{Op: expr.Sub, L: nm("in"), R: cst(mod, 7)}
	trace := &exec.Trace[bignum.Element]{
		Statements: []exec.Statement[bignum.Element]{
			{Kind: exec.Witness, Target: "tmp", Value: &expr.Binary[bignum.Element]{Op: expr.Div, L: cst(mod, 10), R: den}},
		},
		Inputs: []expr.Name{"in"},
	}

	got, ok := input.ZeroDivisionAttempt[bignum.Element](trace, []expr.Name{"in"}, one)
	require.True(t, ok)
	require.Equal(t, mod.FromInt64(7).String(), got["in"].AsField(one).String())
}

func TestZeroDivisionAttemptFindsNoCandidateWithoutDivision(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	trace := &exec.Trace[bignum.Element]{
		Statements: []exec.Statement[bignum.Element]{
			{Kind: exec.Witness, Target: "out", Value: nm("in")},
		},
		Inputs: []expr.Name{"in"},
	}

	_, ok := input.ZeroDivisionAttempt[bignum.Element](trace, []expr.Name{"in"}, one)
	require.False(t, ok)
}
