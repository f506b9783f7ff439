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
package mutate_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/pkg/config"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
	"github.com/zkfuzz/zkfuzz/pkg/mutate"
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

func baselineTrace(mod *bignum.Modulus) *exec.Trace[bignum.Element] {
	return &exec.Trace[bignum.Element]{
		Statements: []exec.Statement[bignum.Element]{
			{Kind: exec.Witness, Target: "tmp", Value: &expr.Binary[bignum.Element]{Op: expr.Add, L: nm("in"), R: cst(mod, 1)}},
			{Kind: exec.WitnessAndConstraint, Target: "out", Value: nm("tmp")},
		},
		Inputs:  []expr.Name{"in"},
		Outputs: []expr.Name{"out"},
	}
}

func TestApplyBoundedByK(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	cfg := config.Default()
	cfg.MaxNumMutationPoints = 3

	m := mutate.NewMutator[bignum.Element](cfg, mutate.StrategyConstant, 42, one)
	trace := baselineTrace(mod)

	mutation := m.Random(trace)
	require.LessOrEqual(t, len(mutation.Edits), cfg.MaxNumMutationPoints)
}

func TestApplyNeverDeletesOutputAssignment(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	trace := baselineTrace(mod)

	edits := []mutate.Edit[bignum.Element]{
		{Kind: mutate.StatementDeletion, StmtIndex: 1},
	}

	_, err := mutate.Apply[bignum.Element](trace, edits)
	require.Error(t, err)

	_ = one
}

func TestApplyConstantPerturbation(t *testing.T) {
	mod := testModulus()

	trace := baselineTrace(mod)

	edits := []mutate.Edit[bignum.Element]{
		{Kind: mutate.ConstantPerturbation, StmtIndex: 0, SiteID: 2, Replacement: cst(mod, 99)},
	}

	out, err := mutate.Apply[bignum.Element](trace, edits)
	require.NoError(t, err)
	require.Equal(t, "(in + 99)", out.Statements[0].Value.String())
}

func TestApplyRejectsUndefinedNameIntroduction(t *testing.T) {
	mod := testModulus()

	trace := baselineTrace(mod)

	edits := []mutate.Edit[bignum.Element]{
		{Kind: mutate.ConstantPerturbation, StmtIndex: 0, SiteID: 0, Replacement: nm("phantom")},
	}

	_, err := mutate.Apply[bignum.Element](trace, edits)
	require.Error(t, err)
}

func TestApplyStatementDeletionOfNonOutput(t *testing.T) {
	mod := testModulus()

	trace := &exec.Trace[bignum.Element]{
		Statements: []exec.Statement[bignum.Element]{
			{Kind: exec.Witness, Target: "dead", Value: cst(mod, 1)},
			{Kind: exec.Witness, Target: "out", Value: cst(mod, 2)},
		},
		Outputs: []expr.Name{"out"},
	}

	edits := []mutate.Edit[bignum.Element]{{Kind: mutate.StatementDeletion, StmtIndex: 0}}

	out, err := mutate.Apply[bignum.Element](trace, edits)
	require.NoError(t, err)
	require.Len(t, out.Statements, 1)
	require.Equal(t, expr.Name("out"), out.Statements[0].Target)
}
