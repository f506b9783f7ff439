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
package expr

import (
	"sort"

	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// Normalise rewrites e into a canonical form, applying (spec §4.2):
//
//  1. constant folding: sub-trees with no free names collapse to a
//     single Constant;
//  2. associative flattening: nested Add/Mul of the same operator
//     collapse into a single n-ary fold over a flat operand list;
//  3. identity/zero elimination: x+0, x*1, x*0, etc;
//  4. double-negation collapse: Neg(Neg(x)) -> x;
//  5. deterministic ordering of commutative operators' operands, by
//     String() form, so that two structurally-equal expressions built
//     in different operand orders normalise to the same tree.
//
// Normalise is idempotent (Normalise(Normalise(e)) == Normalise(e)) and
// evaluate-preserving (Evaluate(e) == Evaluate(Normalise(e)) for every
// fully-bound env), the two properties spec §8 requires to be tested.
func Normalise[F field.Element[F]](e Expr[F], one F) Expr[F] {
	switch n := e.(type) {
	case *Constant[F]:
		return n

	case *NameExpr[F]:
		return n

	case *Unary[F]:
		return normaliseUnary(n, one)

	case *Binary[F]:
		return normaliseBinary(n, one)

	case *Compare[F]:
		return &Compare[F]{Op: n.Op, L: Normalise[F](n.L, one), R: Normalise[F](n.R, one)}

	case *BoolBinary[F]:
		return &BoolBinary[F]{Op: n.Op, L: Normalise[F](n.L, one), R: Normalise[F](n.R, one)}

	case *Select[F]:
		cond := Normalise[F](n.Cond, one)
		if c, ok := cond.(*Constant[F]); ok {
			if c.Value.AsBool() {
				return Normalise[F](n.Then, one)
			}

			return Normalise[F](n.Else, one)
		}

		return &Select[F]{Cond: cond, Then: Normalise[F](n.Then, one), Else: Normalise[F](n.Else, one)}

	case *Index[F]:
		idxs := make([]Expr[F], len(n.Indices))
		for i, idx := range n.Indices {
			idxs[i] = Normalise[F](idx, one)
		}

		return &Index[F]{Array: Normalise[F](n.Array, one), Indices: idxs}

	case *Call[F]:
		args := make([]Expr[F], len(n.Args))
		for i, a := range n.Args {
			args[i] = Normalise[F](a, one)
		}

		return &Call[F]{Callee: n.Callee, Args: args}

	default:
		return e
	}
}

func normaliseUnary[F field.Element[F]](n *Unary[F], one F) Expr[F] {
	arg := Normalise[F](n.Arg, one)

	if n.Op == Neg {
		if inner, ok := arg.(*Unary[F]); ok && inner.Op == Neg {
			return inner.Arg
		}
	}

	if c, ok := arg.(*Constant[F]); ok {
		if v, err := Evaluate[F](&Unary[F]{Op: n.Op, Arg: c}, nil, one); err == nil {
			return &Constant[F]{Value: v}
		}
	}

	return &Unary[F]{Op: n.Op, Arg: arg}
}

func normaliseBinary[F field.Element[F]](n *Binary[F], one F) Expr[F] {
	l := Normalise[F](n.L, one)
	r := Normalise[F](n.R, one)

	if (n.Op == Add || n.Op == Mul) && n.Op.IsCommutative() {
		operands := flatten[F](n.Op, l)
		operands = append(operands, flatten[F](n.Op, r)...)
		operands = foldConstants[F](n.Op, operands, one)

		reduced, rest := applyIdentities[F](n.Op, operands, one)
		if reduced != nil {
			return reduced
		}

		operands = rest

		sort.Slice(operands, func(i, j int) bool { return operands[i].String() < operands[j].String() })

		return rebuild[F](n.Op, operands)
	}

	if lc, lok := l.(*Constant[F]); lok {
		if rc, rok := r.(*Constant[F]); rok {
			if v, err := Evaluate[F](&Binary[F]{Op: n.Op, L: lc, R: rc}, nil, one); err == nil {
				return &Constant[F]{Value: v}
			}
		}
	}

	return applySingleIdentity[F](n.Op, l, r, one)
}

// flatten collects a flat operand list out of nested applications of
// the same associative operator op, e.g. Add(Add(a,b),c) -> [a,b,c].
func flatten[F field.Element[F]](op BinaryOp, e Expr[F]) []Expr[F] {
	if b, ok := e.(*Binary[F]); ok && b.Op == op {
		out := flatten[F](op, b.L)
		return append(out, flatten[F](op, b.R)...)
	}

	return []Expr[F]{e}
}

// foldConstants merges every Constant operand in operands into a
// single Constant (via repeated op-application), leaving non-constant
// operands untouched; the folded constant (if any) is placed first.
func foldConstants[F field.Element[F]](op BinaryOp, operands []Expr[F], one F) []Expr[F] {
	var acc *Constant[F]

	rest := make([]Expr[F], 0, len(operands))

	for _, o := range operands {
		c, ok := o.(*Constant[F])
		if !ok {
			rest = append(rest, o)
			continue
		}

		if acc == nil {
			acc = c
			continue
		}

		v, err := Evaluate[F](&Binary[F]{Op: op, L: acc, R: c}, nil, one)
		if err != nil {
			rest = append(rest, o)
			continue
		}

		acc = &Constant[F]{Value: v}
	}

	if acc == nil {
		return rest
	}

	return append([]Expr[F]{acc}, rest...)
}

// applyIdentities eliminates op's identity/absorbing element from a
// flattened operand list, e.g. dropping +0 terms or collapsing a *0
// term to a single 0. When the list collapses to one expression it is
// returned first; otherwise the first result is nil and the second is
// the reduced operand list, from which the caller rebuilds a tree.
func applyIdentities[F field.Element[F]](op BinaryOp, operands []Expr[F], one F) (Expr[F], []Expr[F]) {
	zero := value.Field[F](fieldZero(one))
	unit := value.Field[F](one)

	filtered := make([]Expr[F], 0, len(operands))

	for _, o := range operands {
		c, ok := o.(*Constant[F])
		if !ok {
			filtered = append(filtered, o)
			continue
		}

		switch {
		case op == Mul && value.Equal[F](c.Value, zero, one):
			return &Constant[F]{Value: zero}, nil
		case op == Add && value.Equal[F](c.Value, zero, one):
			continue
		case op == Mul && value.Equal[F](c.Value, unit, one):
			continue
		default:
			filtered = append(filtered, o)
		}
	}

	if len(filtered) == 0 {
		if op == Mul {
			return &Constant[F]{Value: unit}, nil
		}

		return &Constant[F]{Value: zero}, nil
	}

	if len(filtered) == 1 {
		return filtered[0], nil
	}

	return nil, filtered
}

func applySingleIdentity[F field.Element[F]](op BinaryOp, l, r Expr[F], one F) Expr[F] {
	zero := value.Field[F](fieldZero(one))

	switch op {
	case Sub:
		if c, ok := r.(*Constant[F]); ok && value.Equal[F](c.Value, zero, one) {
			return l
		}
	case Div:
		if c, ok := r.(*Constant[F]); ok && value.Equal[F](c.Value, value.Field[F](one), one) {
			return l
		}
	}

	return &Binary[F]{Op: op, L: l, R: r}
}

func fieldZero[F field.Element[F]](one F) F { return one.Sub(one) }

// rebuild folds a (non-empty) operand list back into a left-leaning
// Binary tree, e.g. [a,b,c] -> Add(Add(a,b),c).
func rebuild[F field.Element[F]](op BinaryOp, operands []Expr[F]) Expr[F] {
	acc := operands[0]
	for _, o := range operands[1:] {
		acc = &Binary[F]{Op: op, L: acc, R: o}
	}

	return acc
}
