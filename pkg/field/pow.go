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

// Pow computes val^n mod P by square-and-multiply, mirroring the
// teacher's pkg/util/field/util.go Pow helper.
func Pow[F Element[F]](val F, n uint64) F {
	if n == 0 {
		return val.SetBigInt(big.NewInt(1))
	}

	if n == 1 {
		return val
	}

	half := Pow(val, n/2)
	sq := half.Mul(half)

	if n%2 == 1 {
		return sq.Mul(val)
	}

	return sq
}

// PowBig computes val^n mod P where n is an arbitrary non-negative
// big.Int exponent (binary circuits occasionally parametrise
// exponents by a template parameter rather than a small literal).
func PowBig[F Element[F]](val F, n *big.Int) F {
	result := val.SetBigInt(big.NewInt(1))
	base := val

	for i := 0; i < n.BitLen(); i++ {
		if n.Bit(i) == 1 {
			result = result.Mul(base)
		}

		base = base.Mul(base)
	}

	return result
}
