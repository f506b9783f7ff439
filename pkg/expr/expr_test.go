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
package expr_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field/bignum"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

var testPrime, _ = new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495517", 10)

func testModulus() *bignum.Modulus { return bignum.NewModulus(testPrime) }

func c(mod *bignum.Modulus, v int64) expr.Expr[bignum.Element] {
	return &expr.Constant[bignum.Element]{Value: value.Field[bignum.Element](mod.FromInt64(v))}
}

func name(n string) expr.Expr[bignum.Element] {
	return &expr.NameExpr[bignum.Element]{Name: expr.Name(n)}
}

func TestEvaluateArithmetic(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	e := &expr.Binary[bignum.Element]{
		Op: expr.Add,
		L:  c(mod, 3),
		R:  &expr.Binary[bignum.Element]{Op: expr.Mul, L: c(mod, 4), R: c(mod, 5)},
	}

	v, err := expr.Evaluate[bignum.Element](e, nil, one)
	require.NoError(t, err)
	require.Equal(t, "23", v.String())
}

func TestEvaluateDivideByZero(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	e := &expr.Binary[bignum.Element]{Op: expr.Div, L: c(mod, 7), R: c(mod, 0)}

	_, err := expr.Evaluate[bignum.Element](e, nil, one)
	require.Error(t, err)
}

func TestEvaluateUnboundName(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	_, err := expr.Evaluate[bignum.Element](name("x"), map[expr.Name]value.Value[bignum.Element]{}, one)
	require.Error(t, err)
}

func TestEvaluateSelect(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	e := &expr.Select[bignum.Element]{
		Cond: &expr.Compare[bignum.Element]{Op: expr.Lt, L: c(mod, 2), R: c(mod, 3)},
		Then: c(mod, 100),
		Else: c(mod, 200),
	}

	v, err := expr.Evaluate[bignum.Element](e, nil, one)
	require.NoError(t, err)
	require.Equal(t, "100", v.String())
}

func TestEvaluateIndexOutOfBounds(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	arr := &expr.Constant[bignum.Element]{Value: value.Array[bignum.Element]([]value.Value[bignum.Element]{
		value.Field[bignum.Element](mod.FromInt64(1)),
		value.Field[bignum.Element](mod.FromInt64(2)),
	})}

	e := &expr.Index[bignum.Element]{Array: arr, Indices: []expr.Expr[bignum.Element]{c(mod, 5)}}

	_, err := expr.Evaluate[bignum.Element](e, nil, one)
	require.Error(t, err)
}

func TestNormaliseIdentityElimination(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	e := &expr.Binary[bignum.Element]{Op: expr.Add, L: name("x"), R: c(mod, 0)}

	norm := expr.Normalise[bignum.Element](e, one)
	require.Equal(t, "x", norm.String())
}

func TestNormaliseIdempotent(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	exprs := []expr.Expr[bignum.Element]{
		&expr.Binary[bignum.Element]{
			Op: expr.Add,
			L:  &expr.Binary[bignum.Element]{Op: expr.Add, L: name("b"), R: name("a")},
			R:  c(mod, 0),
		},
		&expr.Binary[bignum.Element]{Op: expr.Mul, L: c(mod, 1), R: name("z")},
		&expr.Unary[bignum.Element]{Op: expr.Neg, Arg: &expr.Unary[bignum.Element]{Op: expr.Neg, Arg: name("w")}},
	}

	for _, e := range exprs {
		once := expr.Normalise[bignum.Element](e, one)
		twice := expr.Normalise[bignum.Element](once, one)
		require.Equal(t, once.String(), twice.String())
	}
}

func TestNormalisePreservesEvaluation(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	env := map[expr.Name]value.Value[bignum.Element]{
		"a": value.Field[bignum.Element](mod.FromInt64(7)),
		"b": value.Field[bignum.Element](mod.FromInt64(11)),
	}

	e := &expr.Binary[bignum.Element]{
		Op: expr.Add,
		L:  &expr.Binary[bignum.Element]{Op: expr.Mul, L: name("a"), R: c(mod, 1)},
		R:  &expr.Binary[bignum.Element]{Op: expr.Add, L: name("b"), R: c(mod, 0)},
	}

	before, err := expr.Evaluate[bignum.Element](e, env, one)
	require.NoError(t, err)

	norm := expr.Normalise[bignum.Element](e, one)

	after, err := expr.Evaluate[bignum.Element](norm, env, one)
	require.NoError(t, err)

	require.True(t, value.Equal[bignum.Element](before, after, one))
}

func TestNormaliseCommutativeOrdering(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	e1 := &expr.Binary[bignum.Element]{Op: expr.Add, L: name("y"), R: name("x")}
	e2 := &expr.Binary[bignum.Element]{Op: expr.Add, L: name("x"), R: name("y")}

	require.Equal(t,
		expr.Normalise[bignum.Element](e1, one).String(),
		expr.Normalise[bignum.Element](e2, one).String(),
	)
}

func TestSubstitute(t *testing.T) {
	mod := testModulus()
	one := mod.One()

	e := &expr.Binary[bignum.Element]{Op: expr.Add, L: name("x"), R: name("y")}
	bindings := map[expr.Name]expr.Expr[bignum.Element]{"x": c(mod, 42)}

	got := expr.Substitute[bignum.Element](e, bindings)
	require.Equal(t, []expr.Name{"y"}, got.FreeNames())

	v, err := expr.Evaluate[bignum.Element](got, map[expr.Name]value.Value[bignum.Element]{
		"y": value.Field[bignum.Element](mod.FromInt64(1)),
	}, one)
	require.NoError(t, err)
	require.Equal(t, "43", v.String())
}

func TestArenaInternsStructurallyEqualNodes(t *testing.T) {
	mod := testModulus()

	a := expr.NewArena[bignum.Element]()

	e1 := &expr.Binary[bignum.Element]{Op: expr.Add, L: name("x"), R: c(mod, 1)}
	e2 := &expr.Binary[bignum.Element]{Op: expr.Add, L: name("x"), R: c(mod, 1)}

	i1 := a.InternTree(e1)
	i2 := a.InternTree(e2)

	require.Same(t, i1, i2)
	require.Equal(t, 3, a.Len())
}

func TestFreeNamesDeduplicatesAndSorts(t *testing.T) {
	e := &expr.Binary[bignum.Element]{Op: expr.Add, L: name("b"), R: &expr.Binary[bignum.Element]{Op: expr.Add, L: name("a"), R: name("b")}}

	require.Equal(t, []expr.Name{"a", "b"}, expr.SortedFreeNames[bignum.Element](e))
}
