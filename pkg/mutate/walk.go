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
package mutate

import (
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
)

// site tags one pre-order-numbered node in an expression tree that a
// mutation can target.
type site struct {
	id   int
	kind siteKind
}

type siteKind uint8

const (
	siteConstant siteKind = iota
	siteBinaryOp
)

// collectSites walks e in pre-order, numbering every node starting at
// 0, and reports the id/kind of every node a mutation can target:
// constants (for constant perturbation) and binary operators (for
// operator substitution). This mirrors the position-addressed rewrite
// original_source/src/mutator/mutation_utils.rs's apply_trace_mutation
// performs over a SymbolicValue tree, expressed here as an explicit
// pre-order id rather than a Rust enum path.
func collectSites[F field.Element[F]](e expr.Expr[F]) []site {
	var sites []site

	counter := 0

	var walk func(n expr.Expr[F])
	walk = func(n expr.Expr[F]) {
		id := counter
		counter++

		switch v := n.(type) {
		case *expr.Constant[F]:
			sites = append(sites, site{id: id, kind: siteConstant})

		case *expr.NameExpr[F]:
			// leaf, no children

		case *expr.Unary[F]:
			walk(v.Arg)

		case *expr.Binary[F]:
			sites = append(sites, site{id: id, kind: siteBinaryOp})
			walk(v.L)
			walk(v.R)

		case *expr.Compare[F]:
			walk(v.L)
			walk(v.R)

		case *expr.BoolBinary[F]:
			walk(v.L)
			walk(v.R)

		case *expr.Select[F]:
			walk(v.Cond)
			walk(v.Then)
			walk(v.Else)

		case *expr.Index[F]:
			walk(v.Array)
			for _, idx := range v.Indices {
				walk(idx)
			}

		case *expr.Call[F]:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}

	walk(e)

	return sites
}

// replaceAt rebuilds e with the node numbered id (in the same
// pre-order walk collectSites uses) replaced by repl, leaving every
// other node structurally shared with e (only the path from the root
// to the replaced node is freshly allocated).
func replaceAt[F field.Element[F]](e expr.Expr[F], id int, counter *int, repl expr.Expr[F]) expr.Expr[F] {
	myID := *counter
	*counter++

	if myID == id {
		return repl
	}

	switch v := e.(type) {
	case *expr.Unary[F]:
		return &expr.Unary[F]{Op: v.Op, Arg: replaceAt[F](v.Arg, id, counter, repl)}

	case *expr.Binary[F]:
		return &expr.Binary[F]{Op: v.Op, L: replaceAt[F](v.L, id, counter, repl), R: replaceAt[F](v.R, id, counter, repl)}

	case *expr.Compare[F]:
		return &expr.Compare[F]{Op: v.Op, L: replaceAt[F](v.L, id, counter, repl), R: replaceAt[F](v.R, id, counter, repl)}

	case *expr.BoolBinary[F]:
		return &expr.BoolBinary[F]{Op: v.Op, L: replaceAt[F](v.L, id, counter, repl), R: replaceAt[F](v.R, id, counter, repl)}

	case *expr.Select[F]:
		return &expr.Select[F]{
			Cond: replaceAt[F](v.Cond, id, counter, repl),
			Then: replaceAt[F](v.Then, id, counter, repl),
			Else: replaceAt[F](v.Else, id, counter, repl),
		}

	case *expr.Index[F]:
		idxs := make([]expr.Expr[F], len(v.Indices))
		arr := replaceAt[F](v.Array, id, counter, repl)

		for i, idx := range v.Indices {
			idxs[i] = replaceAt[F](idx, id, counter, repl)
		}

		return &expr.Index[F]{Array: arr, Indices: idxs}

	case *expr.Call[F]:
		args := make([]expr.Expr[F], len(v.Args))
		for i, a := range v.Args {
			args[i] = replaceAt[F](a, id, counter, repl)
		}

		return &expr.Call[F]{Callee: v.Callee, Args: args}

	default:
		return e
	}
}

// nodeAt returns the node numbered id within e's pre-order walk.
func nodeAt[F field.Element[F]](e expr.Expr[F], id int, counter *int) expr.Expr[F] {
	myID := *counter
	*counter++

	if myID == id {
		return e
	}

	switch v := e.(type) {
	case *expr.Unary[F]:
		return nodeAt[F](v.Arg, id, counter)

	case *expr.Binary[F]:
		if n := nodeAt[F](v.L, id, counter); n != nil {
			return n
		}

		return nodeAt[F](v.R, id, counter)

	case *expr.Compare[F]:
		if n := nodeAt[F](v.L, id, counter); n != nil {
			return n
		}

		return nodeAt[F](v.R, id, counter)

	case *expr.BoolBinary[F]:
		if n := nodeAt[F](v.L, id, counter); n != nil {
			return n
		}

		return nodeAt[F](v.R, id, counter)

	case *expr.Select[F]:
		if n := nodeAt[F](v.Cond, id, counter); n != nil {
			return n
		}

		if n := nodeAt[F](v.Then, id, counter); n != nil {
			return n
		}

		return nodeAt[F](v.Else, id, counter)

	case *expr.Index[F]:
		if n := nodeAt[F](v.Array, id, counter); n != nil {
			return n
		}

		for _, idx := range v.Indices {
			if n := nodeAt[F](idx, id, counter); n != nil {
				return n
			}
		}

		return nil

	case *expr.Call[F]:
		for _, a := range v.Args {
			if n := nodeAt[F](a, id, counter); n != nil {
				return n
			}
		}

		return nil

	default:
		return nil
	}
}
