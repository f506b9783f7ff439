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
package input

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// ZeroDivisionAttempt implements the spec §4.7/§9(iii) heuristic:
// scan the trace for a division whose denominator is a degree-<=2
// polynomial in exactly one free name, then solve for a root that
// drives that denominator to zero, targeting a divide-by-zero runtime
// failure directly instead of waiting for random search to find one.
//
// Grounded on original_source/src/executor/symbolic_execution.rs's
// search for div-by-zero candidates and
// original_source/src/executor/utils.rs's quadratic/finite-difference
// solve, ported here to pkg/field's TonelliShanks/SolveQuadraticModulus.
func ZeroDivisionAttempt[F field.Element[F]](t *exec.Trace[F], allInputs []expr.Name, one F) (map[expr.Name]value.Value[F], bool) {
	var denominators []expr.Expr[F]

	for _, s := range t.Statements {
		scanExprForDiv[F](s.Value, &denominators)
	}

	for _, sc := range t.SideConstraints {
		scanExprForDiv[F](sc, &denominators)
	}

	for _, den := range denominators {
		free := den.FreeNames()
		if len(free) != 1 {
			continue
		}

		root, ok := solveDenominatorRoot[F](den, free[0], one)
		if !ok {
			continue
		}

		return buildInputMap[F](allInputs, free[0], root, one), true
	}

	return nil, false
}

// scanExprForDiv recursively collects the denominator of every
// Binary{Op: Div} node found anywhere within e.
func scanExprForDiv[F field.Element[F]](e expr.Expr[F], out *[]expr.Expr[F]) {
	switch v := e.(type) {
	case *expr.Binary[F]:
		if v.Op == expr.Div {
			*out = append(*out, v.R)
		}

		scanExprForDiv[F](v.L, out)
		scanExprForDiv[F](v.R, out)

	case *expr.Unary[F]:
		scanExprForDiv[F](v.Arg, out)

	case *expr.Compare[F]:
		scanExprForDiv[F](v.L, out)
		scanExprForDiv[F](v.R, out)

	case *expr.BoolBinary[F]:
		scanExprForDiv[F](v.L, out)
		scanExprForDiv[F](v.R, out)

	case *expr.Select[F]:
		scanExprForDiv[F](v.Cond, out)
		scanExprForDiv[F](v.Then, out)
		scanExprForDiv[F](v.Else, out)

	case *expr.Index[F]:
		scanExprForDiv[F](v.Array, out)
		for _, idx := range v.Indices {
			scanExprForDiv[F](idx, out)
		}

	case *expr.Call[F]:
		for _, a := range v.Args {
			scanExprForDiv[F](a, out)
		}
	}
}

// solveDenominatorRoot fits den(name) as a degree-<=2 polynomial using
// four sample points (0,1,2,3) via finite differences, verifies the
// fit at the fourth point to reject non-quadratic denominators, then
// solves for a root via field.SolveQuadraticModulus.
func solveDenominatorRoot[F field.Element[F]](den expr.Expr[F], name expr.Name, one F) (*big.Int, bool) {
	sample := func(x int64) (F, error) {
		env := map[expr.Name]value.Value[F]{name: value.Field[F](one.SetBigInt(big.NewInt(x)))}

		v, err := expr.Evaluate[F](den, env, one)
		if err != nil {
			return one, err
		}

		return v.AsField(one), nil
	}

	y0, err := sample(0)
	if err != nil {
		return nil, false
	}

	y1, err := sample(1)
	if err != nil {
		return nil, false
	}

	y2, err := sample(2)
	if err != nil {
		return nil, false
	}

	y3, err := sample(3)
	if err != nil {
		return nil, false
	}

	two := one.SetBigInt(big.NewInt(2))

	invTwo, err := field.Div[F](one.SetBigInt(big.NewInt(1)), two)
	if err != nil {
		return nil, false
	}

	c := y0
	d1 := y1.Sub(y0)
	d2 := y2.Sub(y0)

	a := d2.Sub(two.Mul(d1)).Mul(invTwo)
	b := d1.Sub(a)

	predicted := a.Mul(one.SetBigInt(big.NewInt(9))).Add(b.Mul(one.SetBigInt(big.NewInt(3)))).Add(c)
	if predicted.Cmp(y3) != 0 {
		return nil, false
	}

	p := one.Modulus()

	return field.SolveQuadraticModulus([3]*big.Int{c.BigInt(), b.BigInt(), a.BigInt()}, p)
}

func buildInputMap[F field.Element[F]](allInputs []expr.Name, target expr.Name, root *big.Int, one F) map[expr.Name]value.Value[F] {
	out := make(map[expr.Name]value.Value[F], len(allInputs))
	zero := one.Sub(one)

	for _, n := range allInputs {
		if n == target {
			out[n] = value.Field[F](one.SetBigInt(root))
		} else {
			out[n] = value.Field[F](zero)
		}
	}

	return out
}
