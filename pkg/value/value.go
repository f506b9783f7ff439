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

// Package value implements the tagged Value union of spec §3: field
// element, boolean, array and tuple, generic over the field backend
// (pkg/field.Element) in use for a given run.
package value

import (
	"fmt"
	"strings"

	"github.com/zkfuzz/zkfuzz/pkg/field"
)

// Kind tags which variant of Value is populated.
type Kind uint8

const (
	// FieldKind holds a field element.
	FieldKind Kind = iota
	// BoolKind holds 0 or 1.
	BoolKind
	// ArrayKind holds an ordered, dimensionally homogeneous sequence.
	ArrayKind
	// TupleKind holds a fixed heterogeneous sequence.
	TupleKind
)

// Value is an immutable, once-constructed tagged union over field
// element, boolean, array and tuple values (spec §3 "Value").
type Value[F field.Element[F]] struct {
	kind  Kind
	field F
	boo   bool
	elems []Value[F]
}

// Field constructs a Value wrapping a field element.
func Field[F field.Element[F]](f F) Value[F] {
	return Value[F]{kind: FieldKind, field: f}
}

// Bool constructs a Value wrapping a boolean.
func Bool[F field.Element[F]](b bool) Value[F] {
	return Value[F]{kind: BoolKind, boo: b}
}

// Array constructs a Value wrapping an ordered sequence. Per spec §3,
// arrays must be dimensionally homogeneous; this is enforced by
// pkg/exec when array literals/accesses are constructed, not here.
func Array[F field.Element[F]](elems []Value[F]) Value[F] {
	return Value[F]{kind: ArrayKind, elems: elems}
}

// Tuple constructs a Value wrapping a fixed heterogeneous sequence.
func Tuple[F field.Element[F]](elems []Value[F]) Value[F] {
	return Value[F]{kind: TupleKind, elems: elems}
}

// Kind reports which variant is populated.
func (v Value[F]) Kind() Kind { return v.kind }

// IsField reports whether this is a field-element value.
func (v Value[F]) IsField() bool { return v.kind == FieldKind }

// IsBool reports whether this is a boolean value.
func (v Value[F]) IsBool() bool { return v.kind == BoolKind }

// IsArray reports whether this is an array value.
func (v Value[F]) IsArray() bool { return v.kind == ArrayKind }

// IsTuple reports whether this is a tuple value.
func (v Value[F]) IsTuple() bool { return v.kind == TupleKind }

// AsField returns the field element, converting a boolean to 0/1 if
// necessary (many circuits treat booleans and 0/1 field elements
// interchangeably). Panics on array/tuple values.
func (v Value[F]) AsField(one F) F {
	switch v.kind {
	case FieldKind:
		return v.field
	case BoolKind:
		if v.boo {
			return one
		}

		var zero F

		return zero
	default:
		panic("value: cannot coerce array/tuple to field element")
	}
}

// AsBool returns the boolean interpretation: a field element is truthy
// iff it is non-zero.
func (v Value[F]) AsBool() bool {
	switch v.kind {
	case FieldKind:
		return !v.field.IsZero()
	case BoolKind:
		return v.boo
	default:
		panic("value: cannot coerce array/tuple to bool")
	}
}

// Elements returns the elements of an array or tuple value.
func (v Value[F]) Elements() []Value[F] {
	if v.kind != ArrayKind && v.kind != TupleKind {
		panic("value: not an array or tuple")
	}

	return v.elems
}

// Len returns the number of elements for arrays/tuples, or 1
// otherwise (a scalar value occupies one slot in an assignment map).
func (v Value[F]) Len() int {
	switch v.kind {
	case ArrayKind, TupleKind:
		return len(v.elems)
	default:
		return 1
	}
}

// Equal reports whether two values are structurally and numerically
// equal (field equality on representatives for scalars, spec §4.1).
func Equal[F field.Element[F]](x, y Value[F], one F) bool {
	if x.kind == ArrayKind || x.kind == TupleKind || y.kind == ArrayKind || y.kind == TupleKind {
		if x.kind != y.kind || len(x.elems) != len(y.elems) {
			return false
		}

		for i := range x.elems {
			if !Equal(x.elems[i], y.elems[i], one) {
				return false
			}
		}

		return true
	}

	return x.AsField(one).Cmp(y.AsField(one)) == 0
}

// String renders a value for debugging/logging; decimal for scalars,
// bracketed comma-separated lists for arrays/tuples -- matching spec
// §6's "decimal strings" artefact convention for scalars.
func (v Value[F]) String() string {
	switch v.kind {
	case FieldKind:
		return v.field.String()
	case BoolKind:
		if v.boo {
			return "1"
		}

		return "0"
	case ArrayKind, TupleKind:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}

		open, close := "[", "]"
		if v.kind == TupleKind {
			open, close = "(", ")"
		}

		return fmt.Sprintf("%s%s%s", open, strings.Join(parts, ", "), close)
	default:
		return "?"
	}
}
