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
package config

import (
	"math/big"
	"math/rand"

	"github.com/zkfuzz/zkfuzz/pkg/field"
)

// SampleWeighted draws one field element from ranges's weighted mix
// (spec §4.7 "random values are drawn from a finite set of ranges,
// each with a probability weight summing to 1"), shared by pkg/input's
// input generation and pkg/mutate's constant-perturbation edit kind
// (spec §4.6 "sampled from the configured ranges" reuses the same
// table).
func SampleWeighted[F field.Element[F]](rng *rand.Rand, ranges []Range, one F) F {
	if len(ranges) == 0 {
		return one.Sub(one)
	}

	roll := rng.Float64()

	cum := 0.0

	for _, rg := range ranges {
		cum += rg.Prob
		if roll <= cum {
			return sampleRange[F](rng, rg, one)
		}
	}

	return sampleRange[F](rng, ranges[len(ranges)-1], one)
}

func sampleRange[F field.Element[F]](rng *rand.Rand, rg Range, one F) F {
	span := new(big.Int).Sub(rg.Hi, rg.Lo)
	if span.Sign() <= 0 {
		return one.SetBigInt(rg.Lo)
	}

	v := new(big.Int).Rand(rng, span)
	v.Add(v, rg.Lo)

	return one.SetBigInt(v)
}
