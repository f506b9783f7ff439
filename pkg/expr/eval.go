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
	"math/big"

	"github.com/zkfuzz/zkfuzz/pkg/errs"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// Evaluate computes a fully-bound expression's value against env, the
// assignment of every free name occurring in e (spec §4.2/§8: "a fully
// bound expression evaluates to a single concrete value or a typed
// error"). one is used to materialise field constants of the correct
// modulus when no other operand is available (e.g. Pow's base case).
func Evaluate[F field.Element[F]](e Expr[F], env map[Name]value.Value[F], one F) (value.Value[F], error) {
	switch n := e.(type) {
	case *Constant[F]:
		return n.Value, nil

	case *NameExpr[F]:
		v, ok := env[n.Name]
		if !ok {
			return value.Value[F]{}, errs.New(errs.UndeclaredSignal, string(n.Name), "name not bound in environment")
		}

		return v, nil

	case *Unary[F]:
		return evalUnary(n, env, one)

	case *Binary[F]:
		return evalBinary(n, env, one)

	case *Compare[F]:
		return evalCompare(n, env, one)

	case *BoolBinary[F]:
		return evalBoolBinary(n, env, one)

	case *Select[F]:
		cond, err := Evaluate[F](n.Cond, env, one)
		if err != nil {
			return value.Value[F]{}, err
		}

		if cond.AsBool() {
			return Evaluate[F](n.Then, env, one)
		}

		return Evaluate[F](n.Else, env, one)

	case *Index[F]:
		return evalIndex(n, env, one)

	case *Call[F]:
		return value.Value[F]{}, errs.New(errs.UnreachablePath, n.Callee, "unresolved call reached the concrete evaluator; calls must be inlined by the symbolic executor")

	default:
		return value.Value[F]{}, errs.New(errs.UnreachablePath, "", "unrecognised expression node")
	}
}

func evalUnary[F field.Element[F]](n *Unary[F], env map[Name]value.Value[F], one F) (value.Value[F], error) {
	arg, err := Evaluate[F](n.Arg, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	switch n.Op {
	case Neg:
		return value.Field(arg.AsField(one).Neg()), nil
	case BitNot:
		v := new(big.Int).Not(arg.AsField(one).BigInt())
		return value.Field(one.SetBigInt(v)), nil
	case BoolNot:
		return value.Bool[F](!arg.AsBool()), nil
	default:
		return value.Value[F]{}, errs.New(errs.UnreachablePath, "", "unrecognised unary operator")
	}
}

func evalBinary[F field.Element[F]](n *Binary[F], env map[Name]value.Value[F], one F) (value.Value[F], error) {
	lv, err := Evaluate[F](n.L, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	rv, err := Evaluate[F](n.R, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	l, r := lv.AsField(one), rv.AsField(one)

	switch n.Op {
	case Add:
		return value.Field(l.Add(r)), nil
	case Sub:
		return value.Field(l.Sub(r)), nil
	case Mul:
		return value.Field(l.Mul(r)), nil
	case Div:
		q, divErr := field.Div[F](l, r)
		if divErr != nil {
			return value.Value[F]{}, errs.New(errs.DivideByZero, "", "division by zero")
		}

		return value.Field(q), nil
	case IntDiv:
		if r.IsZero() {
			return value.Value[F]{}, errs.New(errs.DivideByZero, "", "integer division by zero")
		}

		q := new(big.Int).Quo(l.BigInt(), r.BigInt())

		return value.Field(one.SetBigInt(q)), nil
	case Mod:
		if r.IsZero() {
			return value.Value[F]{}, errs.New(errs.DivideByZero, "", "modulus by zero")
		}

		m := new(big.Int).Rem(l.BigInt(), r.BigInt())

		return value.Field(one.SetBigInt(m)), nil
	case Pow:
		return value.Field(field.PowBig[F](l, r.BigInt())), nil
	case BitAnd:
		z := new(big.Int).And(l.BigInt(), r.BigInt())
		return value.Field(one.SetBigInt(z)), nil
	case BitOr:
		z := new(big.Int).Or(l.BigInt(), r.BigInt())
		return value.Field(one.SetBigInt(z)), nil
	case BitXor:
		z := new(big.Int).Xor(l.BigInt(), r.BigInt())
		return value.Field(one.SetBigInt(z)), nil
	case ShL:
		z := new(big.Int).Lsh(l.BigInt(), uint(r.BigInt().Uint64()))
		return value.Field(one.SetBigInt(z)), nil
	case ShR:
		z := new(big.Int).Rsh(l.BigInt(), uint(r.BigInt().Uint64()))
		return value.Field(one.SetBigInt(z)), nil
	default:
		return value.Value[F]{}, errs.New(errs.UnreachablePath, "", "unrecognised binary operator")
	}
}

func evalCompare[F field.Element[F]](n *Compare[F], env map[Name]value.Value[F], one F) (value.Value[F], error) {
	lv, err := Evaluate[F](n.L, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	rv, err := Evaluate[F](n.R, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	c := lv.AsField(one).Cmp(rv.AsField(one))

	var result bool

	switch n.Op {
	case Eq:
		result = c == 0
	case NEq:
		result = c != 0
	case Lt:
		result = c < 0
	case Le:
		result = c <= 0
	case Gt:
		result = c > 0
	case Ge:
		result = c >= 0
	default:
		return value.Value[F]{}, errs.New(errs.UnreachablePath, "", "unrecognised comparison operator")
	}

	return value.Bool[F](result), nil
}

func evalBoolBinary[F field.Element[F]](n *BoolBinary[F], env map[Name]value.Value[F], one F) (value.Value[F], error) {
	lv, err := Evaluate[F](n.L, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	// Short-circuit, matching the source language's evaluation order.
	if n.Op == And && !lv.AsBool() {
		return value.Bool[F](false), nil
	}

	if n.Op == Or && lv.AsBool() {
		return value.Bool[F](true), nil
	}

	rv, err := Evaluate[F](n.R, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	return value.Bool[F](rv.AsBool()), nil
}

func evalIndex[F field.Element[F]](n *Index[F], env map[Name]value.Value[F], one F) (value.Value[F], error) {
	cur, err := Evaluate[F](n.Array, env, one)
	if err != nil {
		return value.Value[F]{}, err
	}

	for _, idxExpr := range n.Indices {
		idxVal, idxErr := Evaluate[F](idxExpr, env, one)
		if idxErr != nil {
			return value.Value[F]{}, idxErr
		}

		idx := idxVal.AsField(one).BigInt()
		elems := cur.Elements()

		if !idx.IsInt64() || idx.Sign() < 0 || idx.Int64() >= int64(len(elems)) {
			return value.Value[F]{}, errs.New(errs.DynamicOOB, "", "index %s out of bounds for length %d", idx, len(elems))
		}

		cur = elems[idx.Int64()]
	}

	return cur, nil
}

// Substitute replaces every free occurrence of a bound name with its
// replacement expression, leaving unbound names untouched. Used by the
// symbolic executor to inline function bodies and component outputs
// (spec §4.3).
func Substitute[F field.Element[F]](e Expr[F], bindings map[Name]Expr[F]) Expr[F] {
	switch n := e.(type) {
	case *Constant[F]:
		return n

	case *NameExpr[F]:
		if repl, ok := bindings[n.Name]; ok {
			return repl
		}

		return n

	case *Unary[F]:
		return &Unary[F]{Op: n.Op, Arg: Substitute[F](n.Arg, bindings)}

	case *Binary[F]:
		return &Binary[F]{Op: n.Op, L: Substitute[F](n.L, bindings), R: Substitute[F](n.R, bindings)}

	case *Compare[F]:
		return &Compare[F]{Op: n.Op, L: Substitute[F](n.L, bindings), R: Substitute[F](n.R, bindings)}

	case *BoolBinary[F]:
		return &BoolBinary[F]{Op: n.Op, L: Substitute[F](n.L, bindings), R: Substitute[F](n.R, bindings)}

	case *Select[F]:
		return &Select[F]{
			Cond: Substitute[F](n.Cond, bindings),
			Then: Substitute[F](n.Then, bindings),
			Else: Substitute[F](n.Else, bindings),
		}

	case *Index[F]:
		idxs := make([]Expr[F], len(n.Indices))
		for i, idx := range n.Indices {
			idxs[i] = Substitute[F](idx, bindings)
		}

		return &Index[F]{Array: Substitute[F](n.Array, bindings), Indices: idxs}

	case *Call[F]:
		args := make([]Expr[F], len(n.Args))
		for i, a := range n.Args {
			args[i] = Substitute[F](a, bindings)
		}

		return &Call[F]{Callee: n.Callee, Args: args}

	default:
		return e
	}
}

// PartialEval evaluates as much of e as the (possibly incomplete) env
// allows, returning a residual expression for the parts that remain
// symbolic rather than failing outright. This backs spec §4.2's
// "partial evaluation" used while folding path conditions during
// symbolic execution, as distinct from Evaluate's full-binding
// contract.
func PartialEval[F field.Element[F]](e Expr[F], env map[Name]value.Value[F], one F) Expr[F] {
	switch n := e.(type) {
	case *Constant[F]:
		return n

	case *NameExpr[F]:
		if v, ok := env[n.Name]; ok {
			return &Constant[F]{Value: v}
		}

		return n

	case *Unary[F]:
		arg := PartialEval[F](n.Arg, env, one)
		if c, ok := arg.(*Constant[F]); ok {
			bound := map[Name]value.Value[F]{}
			if v, err := Evaluate[F](&Unary[F]{Op: n.Op, Arg: c}, bound, one); err == nil {
				return &Constant[F]{Value: v}
			}
		}

		return &Unary[F]{Op: n.Op, Arg: arg}

	case *Binary[F]:
		l := PartialEval[F](n.L, env, one)
		r := PartialEval[F](n.R, env, one)

		if lc, lok := l.(*Constant[F]); lok {
			if rc, rok := r.(*Constant[F]); rok {
				if v, err := Evaluate[F](&Binary[F]{Op: n.Op, L: lc, R: rc}, nil, one); err == nil {
					return &Constant[F]{Value: v}
				}
			}
		}

		return &Binary[F]{Op: n.Op, L: l, R: r}

	case *Compare[F]:
		l := PartialEval[F](n.L, env, one)
		r := PartialEval[F](n.R, env, one)

		if lc, lok := l.(*Constant[F]); lok {
			if rc, rok := r.(*Constant[F]); rok {
				if v, err := Evaluate[F](&Compare[F]{Op: n.Op, L: lc, R: rc}, nil, one); err == nil {
					return &Constant[F]{Value: v}
				}
			}
		}

		return &Compare[F]{Op: n.Op, L: l, R: r}

	case *BoolBinary[F]:
		l := PartialEval[F](n.L, env, one)
		r := PartialEval[F](n.R, env, one)

		return &BoolBinary[F]{Op: n.Op, L: l, R: r}

	case *Select[F]:
		cond := PartialEval[F](n.Cond, env, one)
		if c, ok := cond.(*Constant[F]); ok {
			if c.Value.AsBool() {
				return PartialEval[F](n.Then, env, one)
			}

			return PartialEval[F](n.Else, env, one)
		}

		return &Select[F]{Cond: cond, Then: PartialEval[F](n.Then, env, one), Else: PartialEval[F](n.Else, env, one)}

	case *Index[F]:
		idxs := make([]Expr[F], len(n.Indices))
		for i, idx := range n.Indices {
			idxs[i] = PartialEval[F](idx, env, one)
		}

		return &Index[F]{Array: PartialEval[F](n.Array, env, one), Indices: idxs}

	case *Call[F]:
		args := make([]Expr[F], len(n.Args))
		for i, a := range n.Args {
			args[i] = PartialEval[F](a, env, one)
		}

		return &Call[F]{Callee: n.Callee, Args: args}

	default:
		return e
	}
}
