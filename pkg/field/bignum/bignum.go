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

// Package bignum implements field.Element over an arbitrary,
// runtime-configured prime modulus using math/big. This is the
// backend exercised by --prime=<name-or-literal> and
// --debug_prime=<int> (spec §6), since none of the fixed-modulus
// generated field packages in the example pack (bls12_377, koalabear,
// gf8209, gf251 -- all baked at compile time via bavard codegen) can
// express a modulus chosen at run time.
package bignum

import (
	"math/big"
)

// Element is a field element modulo a runtime-supplied prime,
// represented by its canonical least-non-negative representative.
type Element struct {
	val *big.Int
	mod *Modulus
}

// Modulus is a shared, immutable prime modulus. Multiple Elements
// constructed against the same Modulus pointer interoperate; mixing
// Elements from different Moduli panics, mirroring the teacher's
// convention of panicking on cross-field-instance operations (e.g.
// pkg/util/field/element.go's Cmp/Mul assume operands share a field).
type Modulus struct {
	p    *big.Int
	half *big.Int
}

// NewModulus constructs a shared modulus descriptor for p. Panics if p
// is not a positive odd number greater than 2, matching spec §4.1
// ("a configurable odd prime").
func NewModulus(p *big.Int) *Modulus {
	if p.Cmp(big.NewInt(3)) < 0 || p.Bit(0) == 0 {
		panic("field: modulus must be an odd number greater than 2")
	}

	half := new(big.Int).Rsh(p, 1)

	return &Modulus{p: new(big.Int).Set(p), half: half}
}

// Zero constructs the additive identity for this modulus.
func (m *Modulus) Zero() Element {
	return Element{val: big.NewInt(0), mod: m}
}

// One constructs the multiplicative identity for this modulus.
func (m *Modulus) One() Element {
	return Element{val: big.NewInt(1), mod: m}
}

// Elem reduces v modulo this modulus and returns the resulting
// Element.
func (m *Modulus) Elem(v *big.Int) Element {
	r := new(big.Int).Mod(v, m.p)
	return Element{val: r, mod: m}
}

// FromUint64 constructs an Element from an unsigned integer.
func (m *Modulus) FromUint64(v uint64) Element {
	return m.Elem(new(big.Int).SetUint64(v))
}

// FromInt64 constructs an Element from a signed integer, applying the
// field's negation convention for negative values.
func (m *Modulus) FromInt64(v int64) Element {
	return m.Elem(big.NewInt(v))
}

// P returns the modulus itself.
func (m *Modulus) P() *big.Int { return new(big.Int).Set(m.p) }

func (x Element) checkCompatible(y Element) {
	if x.mod != y.mod {
		panic("field: operands belong to different moduli")
	}
}

// Add computes x+y mod P.
func (x Element) Add(y Element) Element {
	x.checkCompatible(y)
	return x.mod.Elem(new(big.Int).Add(x.val, y.val))
}

// Sub computes x-y mod P.
func (x Element) Sub(y Element) Element {
	x.checkCompatible(y)
	return x.mod.Elem(new(big.Int).Sub(x.val, y.val))
}

// Mul computes x*y mod P.
func (x Element) Mul(y Element) Element {
	x.checkCompatible(y)
	return x.mod.Elem(new(big.Int).Mul(x.val, y.val))
}

// Neg computes -x mod P, i.e. P-x when x != 0 (spec §4.1's rewrite
// "Neg x -> P - x when x is constant" generalised to all x).
func (x Element) Neg() Element {
	if x.val.Sign() == 0 {
		return x
	}

	return x.mod.Elem(new(big.Int).Sub(x.mod.p, x.val))
}

// Inverse computes the modular (extended-Euclid) inverse of x, or 0 if
// x is zero.
func (x Element) Inverse() Element {
	if x.val.Sign() == 0 {
		return x.mod.Zero()
	}

	inv := new(big.Int).ModInverse(x.val, x.mod.p)

	return Element{val: inv, mod: x.mod}
}

// Cmp compares x and y under the two's-complement-like sign
// convention of spec §4.1: representatives in [0, P/2) are treated as
// non-negative, [P/2, P) as negative.
func (x Element) Cmp(y Element) int {
	x.checkCompatible(y)

	sx, sy := x.signed(), y.signed()

	return sx.Cmp(sy)
}

// signed returns the two's-complement-like signed interpretation of
// this element's representative.
func (x Element) signed() *big.Int {
	if x.val.Cmp(x.mod.half) > 0 {
		return new(big.Int).Sub(x.val, x.mod.p)
	}

	return new(big.Int).Set(x.val)
}

// IsZero reports whether x is the additive identity.
func (x Element) IsZero() bool { return x.val.Sign() == 0 }

// IsOne reports whether x is the multiplicative identity.
func (x Element) IsOne() bool { return x.val.Cmp(big.NewInt(1)) == 0 }

// Modulus returns the field's prime modulus.
func (x Element) Modulus() *big.Int { return x.mod.P() }

// BigInt returns the canonical least-non-negative representative.
func (x Element) BigInt() *big.Int { return new(big.Int).Set(x.val) }

// SetBigInt reduces v modulo x's modulus and returns the result.
func (x Element) SetBigInt(v *big.Int) Element { return x.mod.Elem(v) }

// String renders the decimal least-non-negative representative.
func (x Element) String() string { return x.val.String() }

// IntDivMod computes integer division and remainder on the
// least-non-negative representatives of x and y, per spec §4.1:
// "Integer division (IntDiv) and modulus are defined on
// least-non-negative representatives ... the field is viewed as
// integers and the usual division/remainder is computed without the
// prime reduction." Both results are re-wrapped as field elements of
// x's modulus. Panics if y is zero -- callers must check IsZero first
// (unlike field.Div, which returns ErrDivideByZero instead).
func IntDivMod(x, y Element) (quotient, remainder Element) {
	x.checkCompatible(y)

	q, r := new(big.Int), new(big.Int)
	q.DivMod(x.val, y.val, r)

	return x.mod.Elem(q), x.mod.Elem(r)
}
