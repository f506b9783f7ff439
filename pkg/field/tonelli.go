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
package field

import "math/big"

// TonelliShanks computes a square root of n modulo the odd prime p,
// i.e. an r with r*r ≡ n (mod p), or (nil, false) if n is not a
// quadratic residue mod p. Ported from
// original_source/src/executor/utils.rs's tonelli_shanks, which the
// zero-division heuristic of spec §4.7 ("quadratic case handled
// directly") uses to solve a*x²+b*x+c=0 for a discriminant that must
// be square-rooted modulo the field's prime.
func TonelliShanks(n, p *big.Int) (*big.Int, bool) {
	one := big.NewInt(1)
	two := big.NewInt(2)

	nMod := new(big.Int).Mod(n, p)
	if nMod.Sign() < 0 {
		nMod.Add(nMod, p)
	}

	if nMod.Sign() == 0 {
		return big.NewInt(0), true
	}

	if p.Cmp(two) == 0 {
		return new(big.Int).Set(nMod), true
	}

	// Euler's criterion: n is a quadratic residue iff n^((p-1)/2) == 1.
	exp := new(big.Int).Rsh(new(big.Int).Sub(p, one), 1)
	if new(big.Int).Exp(nMod, exp, p).Cmp(one) != 0 {
		return nil, false
	}

	// Factor p-1 = q * 2^s with q odd.
	q := new(big.Int).Sub(p, one)
	s := 0

	for new(big.Int).Mod(q, two).Sign() == 0 {
		q.Rsh(q, 1)
		s++
	}

	if s == 1 {
		// p ≡ 3 (mod 4): r = n^((p+1)/4) directly.
		exp := new(big.Int).Rsh(new(big.Int).Add(p, one), 2)
		return new(big.Int).Exp(nMod, exp, p), true
	}

	// Find a quadratic non-residue z.
	z := big.NewInt(2)
	for new(big.Int).Exp(z, exp, p).Cmp(one) == 0 {
		z.Add(z, one)
	}

	m := s
	c := new(big.Int).Exp(z, q, p)
	t := new(big.Int).Exp(nMod, q, p)
	rExp := new(big.Int).Rsh(new(big.Int).Add(q, one), 1)
	r := new(big.Int).Exp(nMod, rExp, p)

	for {
		if t.Cmp(one) == 0 {
			return r, true
		}

		i := 0
		tt := new(big.Int).Set(t)

		for tt.Cmp(one) != 0 {
			tt.Mul(tt, tt)
			tt.Mod(tt, p)
			i++

			if i >= m {
				return nil, false
			}
		}

		b := new(big.Int).Exp(c, new(big.Int).Lsh(one, uint(m-i-1)), p)
		m = i
		c = new(big.Int).Mod(new(big.Int).Mul(b, b), p)
		t = new(big.Int).Mod(new(big.Int).Mul(t, c), p)
		r = new(big.Int).Mod(new(big.Int).Mul(r, b), p)
	}
}

// SolveQuadraticModulus solves a*x² + b*x + c ≡ 0 (mod p) for one root
// x, given coeffs = [c, b, a] (the constant-first ordering
// original_source/src/executor/utils.rs's solve_quadratic_modulus_equation
// uses for its QuadraticPoly triple), returning (nil, false) when no
// root exists or the degenerate a=b=0 case is reached. The a=0 branch
// solves the linear equation directly via modular inverse; the general
// case uses the quadratic formula with TonelliShanks for the
// discriminant's square root.
func SolveQuadraticModulus(coeffs [3]*big.Int, p *big.Int) (*big.Int, bool) {
	c, b, a := coeffs[0], coeffs[1], coeffs[2]

	if a.Sign() == 0 && b.Sign() == 0 {
		return nil, false
	}

	if a.Sign() == 0 {
		// Linear: b*x + c = 0 -> x = -c * b^-1 mod p.
		bInv := new(big.Int).ModInverse(b, p)
		if bInv == nil {
			return nil, false
		}

		x := new(big.Int).Mul(new(big.Int).Neg(c), bInv)
		x.Mod(x, p)

		return normalizeMod(x, p), true
	}

	// Discriminant d = b^2 - 4ac (mod p).
	d := new(big.Int).Mul(b, b)
	four := big.NewInt(4)
	d.Sub(d, new(big.Int).Mul(four, new(big.Int).Mul(a, c)))
	d.Mod(d, p)

	rootD, ok := TonelliShanks(d, p)
	if !ok {
		return nil, false
	}

	twoA := new(big.Int).Mul(big.NewInt(2), a)
	twoAInv := new(big.Int).ModInverse(twoA, p)

	if twoAInv == nil {
		return nil, false
	}

	numer := new(big.Int).Add(new(big.Int).Neg(b), rootD)
	x := new(big.Int).Mul(numer, twoAInv)
	x.Mod(x, p)

	return normalizeMod(x, p), true
}

func normalizeMod(x, p *big.Int) *big.Int {
	if x.Sign() < 0 {
		return new(big.Int).Add(x, p)
	}

	return x
}
