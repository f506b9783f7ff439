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

import "github.com/zkfuzz/zkfuzz/pkg/field"

// Arena interns expression sub-trees so structurally-identical
// sub-expressions share a single Expr value rather than being
// reallocated at every construction site, per spec §9's sharing design
// note. Interning is keyed on the node's canonical String() form,
// mirroring the teacher's convention of using a Lisp-style canonical
// print form as the basis for structural comparison (pkg/ir/norm.go's
// Lisp method).
//
// Arena is not safe for concurrent use; each goroutine in the search
// driver's worker pool owns its own Arena.
type Arena[F field.Element[F]] struct {
	table map[string]Expr[F]
}

// NewArena constructs an empty interning arena.
func NewArena[F field.Element[F]]() *Arena[F] {
	return &Arena[F]{table: make(map[string]Expr[F])}
}

// Intern returns the arena's canonical representative for e: if an
// equal expression (by String() form) was interned before, that
// existing value is returned and e is discarded; otherwise e itself
// becomes the new representative.
func (a *Arena[F]) Intern(e Expr[F]) Expr[F] {
	key := e.String()

	if existing, ok := a.table[key]; ok {
		return existing
	}

	a.table[key] = e

	return e
}

// Len reports the number of distinct sub-expressions currently
// interned.
func (a *Arena[F]) Len() int { return len(a.table) }

// InternTree recursively interns e and every sub-expression reachable
// from it, bottom-up, so that shared sub-trees collapse to the same
// pointer throughout the whole tree rather than only at the root.
func (a *Arena[F]) InternTree(e Expr[F]) Expr[F] {
	switch n := e.(type) {
	case *Constant[F]:
		return a.Intern(n)

	case *NameExpr[F]:
		return a.Intern(n)

	case *Unary[F]:
		return a.Intern(&Unary[F]{Op: n.Op, Arg: a.InternTree(n.Arg)})

	case *Binary[F]:
		return a.Intern(&Binary[F]{Op: n.Op, L: a.InternTree(n.L), R: a.InternTree(n.R)})

	case *Compare[F]:
		return a.Intern(&Compare[F]{Op: n.Op, L: a.InternTree(n.L), R: a.InternTree(n.R)})

	case *BoolBinary[F]:
		return a.Intern(&BoolBinary[F]{Op: n.Op, L: a.InternTree(n.L), R: a.InternTree(n.R)})

	case *Select[F]:
		return a.Intern(&Select[F]{
			Cond: a.InternTree(n.Cond),
			Then: a.InternTree(n.Then),
			Else: a.InternTree(n.Else),
		})

	case *Index[F]:
		idxs := make([]Expr[F], len(n.Indices))
		for i, idx := range n.Indices {
			idxs[i] = a.InternTree(idx)
		}

		return a.Intern(&Index[F]{Array: a.InternTree(n.Array), Indices: idxs})

	case *Call[F]:
		args := make([]Expr[F], len(n.Args))
		for i, arg := range n.Args {
			args[i] = a.InternTree(arg)
		}

		return a.Intern(&Call[F]{Callee: n.Callee, Args: args})

	default:
		return e
	}
}
