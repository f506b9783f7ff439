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

// Package field implements modular arithmetic over a configurable
// prime field, per spec §4.1. All values live in [0, P) using
// canonical least-non-negative representatives.
package field

import "math/big"

// Element is a value of a prime-order field. Two backends implement
// it: bignum.Element (arbitrary, runtime-configured modulus) and
// bn254.Element (a fast fixed-modulus wrapper around gnark-crypto's
// ecc/bn254/fr, used for the default named curve).
//
// The interface shape mirrors the teacher's
// pkg/util/field.Element[Operand] generic interface.
type Element[Operand any] interface {
	// Add computes x+y mod P.
	Add(y Operand) Operand
	// Sub computes x-y mod P.
	Sub(y Operand) Operand
	// Mul computes x*y mod P.
	Mul(y Operand) Operand
	// Inverse computes x⁻¹ mod P, or 0 if x = 0 (the zero case is
	// surfaced separately by callers that need to distinguish it --
	// see ErrDivideByZero below).
	Inverse() Operand
	// Neg computes -x mod P, i.e. P-x for x != 0.
	Neg() Operand
	// Cmp returns -1, 0 or +1 comparing x and y as field elements
	// under the signed convention of spec §4.1 (the left half
	// [0,P/2) is non-negative, [P/2,P) is negative).
	Cmp(y Operand) int
	// IsZero reports whether this value is the additive identity.
	IsZero() bool
	// IsOne reports whether this value is the multiplicative identity.
	IsOne() bool
	// Modulus returns the field's prime modulus.
	Modulus() *big.Int
	// BigInt returns the canonical least-non-negative representative.
	BigInt() *big.Int
	// SetBigInt reduces v modulo this element's field and returns the
	// resulting element, preserving whichever modulus x was
	// constructed against. Used to round-trip through math/big for
	// operations (IntDiv, Mod, bitwise, Pow) that are easiest to
	// express on the integer representative (spec §4.1).
	SetBigInt(v *big.Int) Operand
	// String renders the decimal representation of the
	// least-non-negative representative, matching spec §6's
	// "decimal strings in [0,P)" artefact convention.
	String() string
}

// ErrDivideByZero is returned by division helpers when the
// denominator is the zero element, per spec §4.1's "field error"
// surfaced to the evaluator.
var ErrDivideByZero = divideByZeroError{}

type divideByZeroError struct{}

func (divideByZeroError) Error() string { return "division by zero" }

// Div computes x/y mod P using the modular inverse of y, returning
// ErrDivideByZero when y is zero (spec §4.1).
func Div[F Element[F]](x, y F) (F, error) {
	var zero F

	if y.IsZero() {
		return zero, ErrDivideByZero
	}

	return x.Mul(y.Inverse()), nil
}
