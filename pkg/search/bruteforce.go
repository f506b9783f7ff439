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
package search

import (
	"context"
	"math/big"

	"github.com/google/uuid"

	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/fitness"
	"github.com/zkfuzz/zkfuzz/pkg/input"
	"github.com/zkfuzz/zkfuzz/pkg/log"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// BruteForce implements the degenerate `--search_mode=quick|full`
// drivers of SPEC_FULL's §4.8 supplement: enumerate candidate values
// for each declared input against the unmutated baseline trace,
// skipping the mutator/GA machinery entirely, grounded on
// original_source/src/mutator/brute_force.rs's brute_force_search
// (quick_mode tries {0,1,-1}; the general branch enumerates every
// residue; this port folds the heuristics-range branch into ModeFull
// with an early exit once a violation is classified).
func BruteForce[F field.Element[F]](
	ctx context.Context,
	baseline *exec.Trace[F],
	cfg Config,
	one F,
	runID uuid.UUID,
) (Result[F], error) {
	names := append([]expr.Name{}, baseline.Inputs...)

	if cfg.Mode == ModeNone || len(names) == 0 {
		return Result[F]{RunID: runID, Seed: cfg.Mutation.Seed}, nil
	}

	candidates := quickCandidates[F](one)
	if cfg.Mode == ModeFull {
		candidates = fullCandidates[F](one)
	}

	iterations := 0
	assignment := make(map[expr.Name]value.Value[F], len(names))

	var result *Result[F]

	var search func(idx int) bool

	search = func(idx int) bool {
		select {
		case <-ctx.Done():
			return true
		default:
		}

		if idx == len(names) {
			iterations++

			env := make(map[expr.Name]value.Value[F], len(assignment))
			for n, v := range assignment {
				env[n] = v
			}

			trial, _, err := fitness.EvaluateTrial[F](baseline, baseline, env, true, one)
			if err != nil {
				return false
			}

			class := fitness.Classify[F](trial, one)
			if class != fitness.NoViolation {
				ind := input.Individual[F](env)
				result = &Result[F]{Found: true, Class: class, Input: ind, RunID: runID, Seed: cfg.Mutation.Seed, Iterations: iterations}

				return true
			}

			if iterations%10000 == 0 {
				log.Debugf("brute-force: %d assignments tried", iterations)
			}

			return false
		}

		name := names[idx]

		for _, c := range candidates {
			assignment[name] = value.Field[F](one.SetBigInt(c))

			if search(idx + 1) {
				return true
			}
		}

		delete(assignment, name)

		return false
	}

	search(0)

	if result != nil {
		return *result, nil
	}

	return Result[F]{RunID: runID, Seed: cfg.Mutation.Seed, Iterations: iterations}, nil
}

func quickCandidates[F field.Element[F]](one F) []*big.Int {
	p := one.Modulus()

	return []*big.Int{big.NewInt(0), big.NewInt(1), new(big.Int).Sub(p, big.NewInt(1))}
}

func fullCandidates[F field.Element[F]](one F) []*big.Int {
	p := one.Modulus()

	var out []*big.Int

	for v := big.NewInt(0); v.Cmp(p) < 0; v = new(big.Int).Add(v, big.NewInt(1)) {
		out = append(out, new(big.Int).Set(v))
	}

	return out
}
