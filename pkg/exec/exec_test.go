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
package exec_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/pkg/ast"
	"github.com/zkfuzz/zkfuzz/pkg/errs"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
)

var testPrime = big.NewInt(101)

func testModulus() *bignum.Modulus { return bignum.NewModulus(testPrime) }

func intLit(v int64) *ast.IntLiteral { return &ast.IntLiteral{Value: big.NewInt(v).String()} }

func nameRef(n string) *ast.NameRef { return &ast.NameRef{Name: n} }

func infix(op string, l, r ast.Expr) *ast.InfixExpr { return &ast.InfixExpr{Op: op, L: l, R: r} }

// doublerProgram builds `template Main(){ signal input in; signal
// output out; out <== in*2; }`.
func doublerProgram() *ast.Program {
	tmpl := &ast.Template{
		Name:    "Main",
		Inputs:  []ast.SignalDecl{{Name: "in", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{
				Op:     ast.ConstraintAndWitness,
				Target: ast.LValue{Name: "out"},
				Value:  infix("*", nameRef("in"), intLit(2)),
			},
		},
	}

	return &ast.Program{
		Templates: []*ast.Template{tmpl},
		Main:      &ast.MainDecl{Template: "Main"},
	}
}

func TestRunProducesWitnessAndConstraintStatement(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	exr := exec.NewExecutor[bignum.Element](doublerProgram(), exec.DefaultSymbolicSetting(), one)
	tr, err := exr.Run()
	require.NoError(t, err)
	require.Len(t, tr.Statements, 1)
	require.Equal(t, exec.WitnessAndConstraint, tr.Statements[0].Kind)
	require.Len(t, tr.SideConstraints, 1)
	require.Equal(t, "main.in", string(tr.Inputs[0]))
	require.Equal(t, "main.out", string(tr.Outputs[0]))
}

// witnessOnlyProgram builds a deliberately under-constrained circuit:
// out is computed but never asserted, matching spec §1's
// under-constrained bug class.
func witnessOnlyProgram() *ast.Program {
	tmpl := &ast.Template{
		Name:    "Main",
		Inputs:  []ast.SignalDecl{{Name: "in", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{
				Op:     ast.WitnessOnly,
				Target: ast.LValue{Name: "out"},
				Value:  infix("*", nameRef("in"), intLit(2)),
			},
		},
	}

	return &ast.Program{
		Templates: []*ast.Template{tmpl},
		Main:      &ast.MainDecl{Template: "Main"},
	}
}

func TestRunWitnessOnlyAssignmentEmitsNoSideConstraint(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	exr := exec.NewExecutor[bignum.Element](witnessOnlyProgram(), exec.DefaultSymbolicSetting(), one)
	tr, err := exr.Run()
	require.NoError(t, err)
	require.Len(t, tr.Statements, 1)
	require.Equal(t, exec.Witness, tr.Statements[0].Kind)
	require.Empty(t, tr.SideConstraints)
}

// forkingProgram builds `if (in == 0) { out <-- 1 } else { out <-- 0
// }` over a symbolic input, forcing the non-decidable fork/merge path
// (spec §4.3 "Conditionals").
func forkingProgram() *ast.Program {
	tmpl := &ast.Template{
		Name:    "Main",
		Inputs:  []ast.SignalDecl{{Name: "in", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.IfStmt{
				Cond: infix("==", nameRef("in"), intLit(0)),
				Then: []ast.Stmt{&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: intLit(1)}},
				Else: []ast.Stmt{&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: intLit(0)}},
			},
		},
	}

	return &ast.Program{
		Templates: []*ast.Template{tmpl},
		Main:      &ast.MainDecl{Template: "Main"},
	}
}

func TestRunForksAndMergesNonDecidableConditional(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	exr := exec.NewExecutor[bignum.Element](forkingProgram(), exec.DefaultSymbolicSetting(), one)
	tr, err := exr.Run()
	require.NoError(t, err)

	// Both branches assign "out"; each branch emits its own statement
	// guarded by its path condition, while the bindings are merged with
	// Select.
	require.Len(t, tr.Statements, 2)
}

// componentProgram builds a Main wiring a Double sub-component and
// reading its output, exercising lazy component execution (spec §4.3
// "executed lazily at first read of any c.out").
func componentProgram() *ast.Program {
	double := &ast.Template{
		Name:    "Double",
		Inputs:  []ast.SignalDecl{{Name: "in", Kind: ast.InputSignal}},
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.ConstraintAndWitness, Target: ast.LValue{Name: "out"}, Value: infix("*", nameRef("in"), intLit(2))},
		},
	}

	main := &ast.Template{
		Name:       "Main",
		Inputs:     []ast.SignalDecl{{Name: "in", Kind: ast.InputSignal}},
		Outputs:    []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Components: []ast.ComponentDecl{{Name: "d", Template: "Double"}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Owner: "d", Field: "in"}, Value: nameRef("in")},
			&ast.AssignStmt{
				Op:     ast.WitnessOnly,
				Target: ast.LValue{Name: "out"},
				Value:  &ast.FieldAccess{Owner: nameRef("d"), Field: "out"},
			},
		},
	}

	return &ast.Program{
		Templates: []*ast.Template{main, double},
		Main:      &ast.MainDecl{Template: "Main"},
	}
}

func TestRunExpandsComponentLazilyOnOutputRead(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	exr := exec.NewExecutor[bignum.Element](componentProgram(), exec.DefaultSymbolicSetting(), one)
	tr, err := exr.Run()
	require.NoError(t, err)

	// d.in assignment, d.out assignment (with its side constraint) and
	// main.out assignment: three statements, one side constraint.
	require.Len(t, tr.Statements, 3)
	require.Len(t, tr.SideConstraints, 1)
}

// doubleAssignProgram reassigns "out" twice on the same unconditional
// path, which must be rejected per spec §4.3's single-assignment
// invariant.
func doubleAssignProgram() *ast.Program {
	tmpl := &ast.Template{
		Name:    "Main",
		Outputs: []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: intLit(1)},
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: intLit(2)},
		},
	}

	return &ast.Program{Templates: []*ast.Template{tmpl}, Main: &ast.MainDecl{Template: "Main"}}
}

func TestRunRejectsUnconditionalDoubleAssignment(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	exr := exec.NewExecutor[bignum.Element](doubleAssignProgram(), exec.DefaultSymbolicSetting(), one)
	_, err := exr.Run()
	require.Error(t, err)

	asErr, ok := err.(*errs.Error)
	require.True(t, ok)
	require.Equal(t, errs.ParseSchema, asErr.Kind)
}

func TestRunRejectsMissingMainTemplate(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	prog := &ast.Program{Main: &ast.MainDecl{Template: "Nope"}}

	exr := exec.NewExecutor[bignum.Element](prog, exec.DefaultSymbolicSetting(), one)
	_, err := exr.Run()
	require.Error(t, err)
}

func TestRunRejectsWiringCycle(t *testing.T) {
	a := &ast.Template{
		Name:       "A",
		Components: []ast.ComponentDecl{{Name: "b", Template: "B"}},
		Outputs:    []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: &ast.FieldAccess{Owner: nameRef("b"), Field: "out"}},
		},
	}

	b := &ast.Template{
		Name:       "B",
		Components: []ast.ComponentDecl{{Name: "a", Template: "A"}},
		Outputs:    []ast.SignalDecl{{Name: "out", Kind: ast.OutputSignal}},
		Body: []ast.Stmt{
			&ast.AssignStmt{Op: ast.WitnessOnly, Target: ast.LValue{Name: "out"}, Value: &ast.FieldAccess{Owner: nameRef("a"), Field: "out"}},
		},
	}

	prog := &ast.Program{Templates: []*ast.Template{a, b}, Main: &ast.MainDecl{Template: "A"}}

	mod := testModulus()
	one := mod.One()

	exr := exec.NewExecutor[bignum.Element](prog, exec.DefaultSymbolicSetting(), one)
	_, err := exr.Run()
	require.Error(t, err)

	asErr, ok := err.(*errs.Error)
	require.True(t, ok)
	require.Equal(t, errs.WiringCycle, asErr.Kind)
}
