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
package fitness_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
	"github.com/zkfuzz/zkfuzz/pkg/fitness"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

var testPrime = big.NewInt(101)

func testModulus() *bignum.Modulus { return bignum.NewModulus(testPrime) }

func cst(mod *bignum.Modulus, v int64) expr.Expr[bignum.Element] {
	return &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(v))}
}

func TestEqualityResidualIsZeroWhenEqual(t *testing.T) {
	mod := testModulus()

	a := mod.FromInt64(7)
	b := mod.FromInt64(7)

	require.Equal(t, big.NewInt(0), fitness.EqualityResidual[bignum.Element](a, b))
}

func TestEqualityResidualTakesSmallerWraparoundDistance(t *testing.T) {
	mod := testModulus()

	// |100 - 0| = 100, P - 100 = 1: the wraparound distance wins.
	a := mod.FromInt64(100)
	b := mod.FromInt64(0)

	require.Equal(t, big.NewInt(1), fitness.EqualityResidual[bignum.Element](a, b))
}

func TestScoreSumsResidualsAndIsZeroIffAllHold(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	env := map[expr.Name]value.Value[bignum.Element]{
		"a": value.Field[bignum.Element](mod.FromInt64(3)),
		"b": value.Field[bignum.Element](mod.FromInt64(3)),
	}

	satisfied := []expr.Expr[bignum.Element]{
		&expr.Compare[bignum.Element]{Op: expr.Eq, L: &expr.NameExpr[bignum.Element]{Name: "a"}, R: &expr.NameExpr[bignum.Element]{Name: "b"}},
	}

	score, err := fitness.Score[bignum.Element](satisfied, env, one)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), score)

	violated := []expr.Expr[bignum.Element]{
		&expr.Compare[bignum.Element]{Op: expr.Eq, L: &expr.NameExpr[bignum.Element]{Name: "a"}, R: cst(mod, 4)},
	}

	score, err = fitness.Score[bignum.Element](violated, env, one)
	require.NoError(t, err)
	require.True(t, score.Sign() > 0)
}

func TestClassifyUnderConstrainedUnexpectedInput(t *testing.T) {
	one := testModulus().One()

	trial := fitness.Trial[bignum.Element]{Aggregate: big.NewInt(0), ReplayFailed: true}
	require.Equal(t, fitness.UnderConstrainedUnexpectedInput, fitness.Classify[bignum.Element](trial, one))
}

func TestClassifyUnderConstrainedNonDeterministic(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	trial := fitness.Trial[bignum.Element]{
		Aggregate:       big.NewInt(0),
		OutputNames:     []expr.Name{"out"},
		MutatedOutputs:  map[expr.Name]value.Value[bignum.Element]{"out": value.Field[bignum.Element](mod.FromInt64(1))},
		BaselineOutputs: map[expr.Name]value.Value[bignum.Element]{"out": value.Field[bignum.Element](mod.FromInt64(0))},
	}

	require.Equal(t, fitness.UnderConstrainedNonDeterministic, fitness.Classify[bignum.Element](trial, one))
}

func TestClassifyOverConstrained(t *testing.T) {
	one := testModulus().One()

	trial := fitness.Trial[bignum.Element]{Aggregate: big.NewInt(5), IsBaseline: true}
	require.Equal(t, fitness.OverConstrained, fitness.Classify[bignum.Element](trial, one))
}

func TestClassifyNoViolation(t *testing.T) {
	one := testModulus().One()

	trial := fitness.Trial[bignum.Element]{Aggregate: big.NewInt(0)}
	require.Equal(t, fitness.NoViolation, fitness.Classify[bignum.Element](trial, one))

	trial = fitness.Trial[bignum.Element]{Aggregate: big.NewInt(5), IsBaseline: false}
	require.Equal(t, fitness.NoViolation, fitness.Classify[bignum.Element](trial, one))
}
