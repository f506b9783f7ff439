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

	"github.com/zkfuzz/zkfuzz/pkg/ast"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
	"github.com/zkfuzz/zkfuzz/pkg/fitness"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// This file exercises the full AST -> pkg/exec -> pkg/fitness pipeline
// against the six worked circuits used to validate the classifier
// end to end. Each builds the ast.Program by hand (there is no parser
// in this tree -- pkg/cmd.ParseProgram is an external hook), runs it
// through exec.NewExecutor, and classifies one or two concrete
// replays via fitness.EvaluateTrial/Classify.

func il(v int64) *ast.IntLiteral { return &ast.IntLiteral{Value: big.NewInt(v).String()} }
func nm(n string) *ast.NameRef   { return &ast.NameRef{Name: n} }
func bin(op string, l, r ast.Expr) *ast.InfixExpr {
	return &ast.InfixExpr{Op: op, L: l, R: r}
}

func buildTrace(t *testing.T, tmpl *ast.Template, one bignum.Element) *exec.Trace[bignum.Element] {
	t.Helper()

	prog := &ast.Program{Templates: []*ast.Template{tmpl}, Main: &ast.MainDecl{Template: tmpl.Name}}

	tr, err := exec.NewExecutor[bignum.Element](prog, exec.DefaultSymbolicSetting(), one).Run()
	require.NoError(t, err)

	return tr
}

// isZeroTemplate builds `inv <-- (in != 0) ? 1/in : 0; out <-- -in*inv
// + 1;`, optionally asserting `in*out === 0`.
func isZeroTemplate(withConstraint bool) *ast.Template {
	body := []ast.Stmt{
		&ast.AssignStmt{
			Op:     ast.WitnessOnly,
			Target: ast.LValue{Name: "inv"},
			Value: &ast.TernaryExpr{
				Cond: bin("!=", nm("in"), il(0)),
				Then: bin("/", il(1), nm("in")),
				Else: il(0),
			},
		},
		&ast.AssignStmt{
			Op:     ast.WitnessOnly,
			Target: ast.LValue{Name: "out"},
			Value:  bin("+", bin("*", &ast.PrefixExpr{Op: "-", Arg: nm("in")}, nm("inv")), il(1)),
		},
	}

	if withConstraint {
		body = append(body, &ast.ConstraintStmt{L: bin("*", nm("in"), nm("out")), R: il(0)})
	}

	return &ast.Template{
		Name:    "IsZero",
		Inputs:  []ast.SignalDecl{{Name: "in", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Signals: []ast.SignalDecl{{Name: "inv", Kind: ast.IntermediateSignal}},
		Body:    body,
	}
}

func TestScenarioIsZeroSafeNoViolation(t *testing.T) {
	mod := bignum.NewModulus(big.NewInt(101))
	one := mod.One()

	tr := buildTrace(t, isZeroTemplate(true), one)

	for _, in := range []int64{0, 7} {
		inputs := map[expr.Name]value.Value[bignum.Element]{
			"main.in": value.Field[bignum.Element](mod.FromInt64(in)),
		}

		trial, _, err := fitness.EvaluateTrial[bignum.Element](tr, tr, inputs, true, one)
		require.NoError(t, err)
		require.Equal(t, fitness.NoViolation, fitness.Classify[bignum.Element](trial, one))
	}
}

// TestScenarioIsZeroVulnerableNonDeterministic drops the `in*out===0`
// side constraint and compares the honest inverse-computing trace
// (baseline) against a mutant that forces `inv <-- 0` regardless of
// `in` -- the attacker-chosen witness the missing constraint permits.
func TestScenarioIsZeroVulnerableNonDeterministic(t *testing.T) {
	mod := bignum.NewModulus(big.NewInt(101))
	one := mod.One()

	baseline := buildTrace(t, isZeroTemplate(false), one)

	forcedZero := *baseline
	forcedZero.Statements = append([]exec.Statement[bignum.Element]{}, baseline.Statements...)
	forcedZero.Statements[0] = exec.Statement[bignum.Element]{
		Kind:   exec.Witness,
		Target: "main.inv",
		Value:  &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(0))},
	}

	inputs := map[expr.Name]value.Value[bignum.Element]{
		"main.in": value.Field[bignum.Element](mod.FromInt64(1)),
	}

	trial, agg, err := fitness.EvaluateTrial[bignum.Element](&forcedZero, baseline, inputs, false, one)
	require.NoError(t, err)
	require.Equal(t, 0, agg.Sign())
	require.Equal(t, fitness.UnderConstrainedNonDeterministic, fitness.Classify[bignum.Element](trial, one))
}

// modulusTemplate builds `y <-- x % 5; q <-- x \ 5; x === q*5+y; q <
// x === true;` -- note the missing `y < 5` bound is the bug.
func modulusTemplate() *ast.Template {
	return &ast.Template{
		Name:    "Modulus",
		Inputs:  []ast.SignalDecl{{Name: "x", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "q", Kind: ast.OutputSignal}, {Name: "y", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "y"}, Value: bin("%", nm("x"), il(5))},
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "q"}, Value: bin("\\", nm("x"), il(5))},
			&ast.ConstraintStmt{L: nm("x"), R: bin("+", bin("*", nm("q"), il(5)), nm("y"))},
			&ast.ConstraintStmt{L: bin("<", nm("q"), nm("x")), R: &ast.BoolLiteral{Value: true}},
		},
	}
}

// TestScenarioModulusUnderConstrainedNonDeterministic compares the
// honest baseline (y = x%5, q = x\5) against a mutant that substitutes
// q=1, y=P-2 for x=3 -- a pair that satisfies both declared
// constraints without y ever landing in the intended [0,5) range.
func TestScenarioModulusUnderConstrainedNonDeterministic(t *testing.T) {
	mod := bignum.NewModulus(big.NewInt(101))
	one := mod.One()

	baseline := buildTrace(t, modulusTemplate(), one)

	mutant := *baseline
	mutant.Statements = []exec.Statement[bignum.Element]{
		{Kind: exec.Witness, Target: "main.y", Value: &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(99))}}, // P-2
		{Kind: exec.Witness, Target: "main.q", Value: &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(1))}},
	}

	inputs := map[expr.Name]value.Value[bignum.Element]{
		"main.x": value.Field[bignum.Element](mod.FromInt64(3)),
	}

	trial, agg, err := fitness.EvaluateTrial[bignum.Element](&mutant, baseline, inputs, false, one)
	require.NoError(t, err)
	require.Equal(t, 0, agg.Sign())
	require.Equal(t, fitness.UnderConstrainedNonDeterministic, fitness.Classify[bignum.Element](trial, one))
}

// addTemplate builds `tmp <-- (a+b >= 2^32) ? 1 : 0; tmp*(tmp-1)===0;
// out <-- (a+b) - tmp*2^32;`.
func addTemplate() *ast.Template {
	return &ast.Template{
		Name:    "MaliciousAdd",
		Inputs:  []ast.SignalDecl{{Name: "a", Kind: ast.InputSignal}, {Name: "b", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Signals: []ast.SignalDecl{{Name: "tmp", Kind: ast.IntermediateSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{
				Op:     ast.WitnessOnly,
				Target: ast.LValue{Name: "tmp"},
				Value: &ast.TernaryExpr{
					Cond: bin(">=", bin("+", nm("a"), nm("b")), il(4294967296)),
					Then: il(1),
					Else: il(0),
				},
			},
			&ast.ConstraintStmt{L: bin("*", nm("tmp"), bin("-", nm("tmp"), il(1))), R: il(0)},
			&ast.AssignStmt{
				Op:     ast.WitnessOnly,
				Target: ast.LValue{Name: "out"},
				Value:  bin("-", bin("+", nm("a"), nm("b")), bin("*", nm("tmp"), il(4294967296))),
			},
		},
	}
}

// TestScenarioMaliciousAddUnderConstrainedNonDeterministic compares
// the honest baseline (tmp correctly detects the carry) against a
// mutant that hardcodes tmp=0, which still satisfies the boolean
// constraint tmp*(tmp-1)===0 but drops the carry from out.
func TestScenarioMaliciousAddUnderConstrainedNonDeterministic(t *testing.T) {
	mod := bignum.NewModulus(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))) // 2^127-1
	one := mod.One()

	baseline := buildTrace(t, addTemplate(), one)

	mutant := *baseline
	mutant.Statements = append([]exec.Statement[bignum.Element]{}, baseline.Statements...)
	mutant.Statements[0] = exec.Statement[bignum.Element]{
		Kind:   exec.Witness,
		Target: "main.tmp",
		Value:  &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(0))},
	}

	inputs := map[expr.Name]value.Value[bignum.Element]{
		"main.a": value.Field[bignum.Element](mod.FromInt64(1 << 31)),
		"main.b": value.Field[bignum.Element](mod.FromInt64(1 << 31)),
	}

	trial, agg, err := fitness.EvaluateTrial[bignum.Element](&mutant, baseline, inputs, false, one)
	require.NoError(t, err)
	require.Equal(t, 0, agg.Sign())
	require.Equal(t, fitness.UnderConstrainedNonDeterministic, fitness.Classify[bignum.Element](trial, one))
}

// rewardTemplate builds `out <-- in \ gwei; out*gwei === in;` with
// gwei = 10^6, integer division as the witness generator's hint.
func rewardTemplate() *ast.Template {
	return &ast.Template{
		Name:    "Reward",
		Inputs:  []ast.SignalDecl{{Name: "in", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: bin("\\", nm("in"), il(1_000_000))},
			&ast.ConstraintStmt{L: bin("*", nm("out"), il(1_000_000)), R: nm("in")},
		},
	}
}

func TestScenarioRewardNoViolationWhenDivisible(t *testing.T) {
	mod := bignum.NewModulus(big.NewInt(3_000_017)) // prime, comfortably above 3e6
	one := mod.One()

	tr := buildTrace(t, rewardTemplate(), one)

	inputs := map[expr.Name]value.Value[bignum.Element]{
		"main.in": value.Field[bignum.Element](mod.FromInt64(3_000_000)),
	}

	trial, _, err := fitness.EvaluateTrial[bignum.Element](tr, tr, inputs, true, one)
	require.NoError(t, err)
	require.Equal(t, fitness.NoViolation, fitness.Classify[bignum.Element](trial, one))
}

// TestScenarioRewardViolationWhenNotDivisible replays the same,
// unmutated circuit against an input not divisible by gwei. The
// witness generator's own integer-division hint (out=0 for in=7)
// fails the declared multiplicative constraint outright: the
// self-compared baseline scores a positive residual, which
// fitness.Classify reports as over-constrained (the trace's natural
// witness computation is rejected by its own assertion).
func TestScenarioRewardViolationWhenNotDivisible(t *testing.T) {
	mod := bignum.NewModulus(big.NewInt(1_000_003))
	one := mod.One()

	tr := buildTrace(t, rewardTemplate(), one)

	inputs := map[expr.Name]value.Value[bignum.Element]{
		"main.in": value.Field[bignum.Element](mod.FromInt64(7)),
	}

	trial, agg, err := fitness.EvaluateTrial[bignum.Element](tr, tr, inputs, true, one)
	require.NoError(t, err)
	require.True(t, agg.Sign() > 0)
	require.Equal(t, fitness.OverConstrained, fitness.Classify[bignum.Element](trial, one))
}

// singleAssignmentTemplate builds `out <-- a+1; out === b+1;`.
func singleAssignmentTemplate() *ast.Template {
	return &ast.Template{
		Name:    "SingleAssignment0",
		Inputs:  []ast.SignalDecl{{Name: "a", Kind: ast.InputSignal}, {Name: "b", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: bin("+", nm("a"), il(1))},
			&ast.ConstraintStmt{L: nm("out"), R: bin("+", nm("b"), il(1))},
		},
	}
}

func TestScenarioSingleAssignmentOverConstrainedWhenInputsDiffer(t *testing.T) {
	mod := bignum.NewModulus(big.NewInt(101))
	one := mod.One()

	tr := buildTrace(t, singleAssignmentTemplate(), one)

	inputs := map[expr.Name]value.Value[bignum.Element]{
		"main.a": value.Field[bignum.Element](mod.FromInt64(2)),
		"main.b": value.Field[bignum.Element](mod.FromInt64(5)),
	}

	trial, agg, err := fitness.EvaluateTrial[bignum.Element](tr, tr, inputs, true, one)
	require.NoError(t, err)
	require.True(t, agg.Sign() > 0)
	require.Equal(t, fitness.OverConstrained, fitness.Classify[bignum.Element](trial, one))
}

func TestScenarioSingleAssignmentNoViolationWhenInputsMatch(t *testing.T) {
	mod := bignum.NewModulus(big.NewInt(101))
	one := mod.One()

	tr := buildTrace(t, singleAssignmentTemplate(), one)

	inputs := map[expr.Name]value.Value[bignum.Element]{
		"main.a": value.Field[bignum.Element](mod.FromInt64(4)),
		"main.b": value.Field[bignum.Element](mod.FromInt64(4)),
	}

	trial, _, err := fitness.EvaluateTrial[bignum.Element](tr, tr, inputs, true, one)
	require.NoError(t, err)
	require.Equal(t, fitness.NoViolation, fitness.Classify[bignum.Element](trial, one))
}
