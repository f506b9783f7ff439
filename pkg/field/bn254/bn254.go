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

// Package bn254 wraps gnark-crypto's ecc/bn254/fr.Element to conform
// to field.Element, following exactly the adapter pattern used by the
// teacher's pkg/util/field/bls12_377/core.go (mutate-a-temporary,
// return-by-value). bn254 is Circom's actual default scalar field, so
// this is the fast path selected by --prime=bn254 (spec §6); arbitrary
// or debug primes fall back to pkg/field/bignum.
package bn254

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Element wraps fr.Element to conform to the field.Element interface.
type Element struct {
	fr.Element
}

// Zero constructs the additive identity.
func Zero() Element {
	return Element{}
}

// One constructs the multiplicative identity.
func One() Element {
	var e Element
	e.Element.SetOne()

	return e
}

// FromUint64 constructs an element from an unsigned integer.
func FromUint64(v uint64) Element {
	var e Element
	e.Element.SetUint64(v)

	return e
}

// FromBigInt reduces v modulo the bn254 scalar field and constructs
// the resulting element.
func FromBigInt(v *big.Int) Element {
	var e Element
	e.Element.SetBigInt(v)

	return e
}

// Add computes x+y.
func (x Element) Add(y Element) Element {
	var res fr.Element

	res.Add(&x.Element, &y.Element)

	return Element{res}
}

// Sub computes x-y.
func (x Element) Sub(y Element) Element {
	var res fr.Element

	res.Sub(&x.Element, &y.Element)

	return Element{res}
}

// Mul computes x*y.
func (x Element) Mul(y Element) Element {
	var res fr.Element

	res.Mul(&x.Element, &y.Element)

	return Element{res}
}

// Neg computes -x.
func (x Element) Neg() Element {
	var res fr.Element

	res.Neg(&x.Element)

	return Element{res}
}

// Inverse computes x⁻¹, or 0 if x = 0.
func (x Element) Inverse() Element {
	var res fr.Element

	res.Inverse(&x.Element)

	return Element{res}
}

// Cmp compares x and y under the signed convention of spec §4.1 (the
// left half [0,P/2) is non-negative, [P/2,P) is negative). fr.Element
// only exposes an unsigned Cmp, so the sign split is applied here on
// the big.Int representatives.
func (x Element) Cmp(y Element) int {
	return x.signed().Cmp(y.signed())
}

func (x Element) signed() *big.Int {
	var v big.Int

	x.Element.BigInt(&v)

	half := new(big.Int).Rsh(x.Modulus(), 1)
	if v.Cmp(half) > 0 {
		v.Sub(&v, x.Modulus())
	}

	return &v
}

// IsZero implements field.Element.
func (x Element) IsZero() bool { return x.Element.IsZero() }

// IsOne implements field.Element.
func (x Element) IsOne() bool { return x.Element.IsOne() }

// Modulus returns the bn254 scalar field modulus.
func (x Element) Modulus() *big.Int {
	return fr.Modulus()
}

// BigInt returns the canonical least-non-negative representative.
func (x Element) BigInt() *big.Int {
	var v big.Int
	return x.Element.BigInt(&v)
}

// SetBigInt reduces v modulo bn254's scalar field and returns the
// result.
func (x Element) SetBigInt(v *big.Int) Element { return FromBigInt(v) }

// String renders the decimal least-non-negative representative.
func (x Element) String() string {
	return x.Element.String()
}
