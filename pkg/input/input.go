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

// Package input implements the input generator/mutator of spec §4.7:
// weighted-range random sampling, an optional binary-mode warm-up,
// crossover and mutation over (name -> Value) input assignments, and
// the zero-division-attempt heuristic.
//
// Sampling weights and the crossover/mutation probabilities are
// grounded on original_source/src/mutator/mutation_config.rs's default
// table and mutation_test_crossover_fn.rs /
// mutation_test_update_input_fn.rs's point-wise parent-selection and
// per-name mutation shape.
package input

import (
	"math/big"
	"math/rand"

	"github.com/zkfuzz/zkfuzz/pkg/config"
	"github.com/zkfuzz/zkfuzz/pkg/eval"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// Individual is one full input assignment: a concrete value for every
// declared circuit input (spec §3 "input population = set of
// (name -> Value) maps").
type Individual[F field.Element[F]] map[expr.Name]value.Value[F]

// Clone returns a shallow copy (Value is itself immutable, so a
// shallow map copy is a full value copy).
func (ind Individual[F]) Clone() Individual[F] {
	out := make(Individual[F], len(ind))
	for k, v := range ind {
		out[k] = v
	}

	return out
}

// Generator draws and varies Individuals using a seeded PRNG (spec §5
// determinism: same seed -> same generated sequence).
type Generator[F field.Element[F]] struct {
	rng *rand.Rand
	cfg config.Mutation
	one F
}

// NewGenerator constructs a Generator seeded deterministically from
// seed.
func NewGenerator[F field.Element[F]](cfg config.Mutation, seed uint64, one F) *Generator[F] {
	return &Generator[F]{rng: rand.New(rand.NewSource(int64(seed))), cfg: cfg, one: one}
}

// Random draws a fresh Individual over names. When binaryMode is true
// (spec §4.7 "binary mode restricts random draws to {0,1}"), every
// name is drawn uniformly from {0,1}; otherwise each is drawn from
// cfg.RandomValueRanges's weighted mix.
func (g *Generator[F]) Random(names []expr.Name, binaryMode bool) Individual[F] {
	ind := make(Individual[F], len(names))

	for _, n := range names {
		if binaryMode {
			ind[n] = value.Field[F](g.one.SetBigInt(big.NewInt(int64(g.rng.Intn(2)))))
			continue
		}

		ind[n] = value.Field[F](config.SampleWeighted[F](g.rng, g.cfg.RandomValueRanges, g.one))
	}

	return ind
}

// Crossover implements spec §4.7's "point-wise random parent selection
// per input name": for each name present in either parent, the child
// inherits a's value with probability cfg.InputGenerationCrossoverRate,
// else b's.
func (g *Generator[F]) Crossover(a, b Individual[F]) Individual[F] {
	child := make(Individual[F], len(a))

	for n := range a {
		if g.rng.Float64() < g.cfg.InputGenerationCrossoverRate {
			child[n] = a[n]
		} else if v, ok := b[n]; ok {
			child[n] = v
		} else {
			child[n] = a[n]
		}
	}

	for n, v := range b {
		if _, ok := child[n]; !ok {
			child[n] = v
		}
	}

	return child
}

// Mutate implements spec §4.7's "single-point (one input replaced) or
// multi-point (each input independently replaced with probability m)":
// with probability cfg.InputGenerationSinglepointMutationRate a single
// random name is replaced, otherwise every name is independently
// replaced with probability cfg.InputGenerationMutationRate.
func (g *Generator[F]) Mutate(ind Individual[F], names []expr.Name) Individual[F] {
	out := ind.Clone()

	if len(names) == 0 {
		return out
	}

	if g.rng.Float64() < g.cfg.InputGenerationSinglepointMutationRate {
		n := names[g.rng.Intn(len(names))]
		out[n] = value.Field[F](config.SampleWeighted[F](g.rng, g.cfg.RandomValueRanges, g.one))

		return out
	}

	for _, n := range names {
		if g.rng.Float64() < g.cfg.InputGenerationMutationRate {
			out[n] = value.Field[F](config.SampleWeighted[F](g.rng, g.cfg.RandomValueRanges, g.one))
		}
	}

	return out
}

// UpdateStrategy selects one of the three input-population update
// methods `main.rs` dispatches on `input_initialization_method` (spec
// §4.7 supplement): `Random` draws a fresh population each round,
// `Fitness` biases resampling toward inputs that scored well last
// round, `Coverage` biases toward inputs that reach previously-unvisited
// branches.
type UpdateStrategy uint8

// Update strategies.
const (
	// Random draws every member of the next population independently
	// (spec §4.7 baseline).
	Random UpdateStrategy = iota
	// Fitness performs roulette-wheel parent selection weighted by each
	// prior individual's fitness score, then crossover/mutate (ported
	// from update_input_population_with_fitness_score).
	Fitness
	// Coverage greedily keeps only individuals that extend the set of
	// branch conditions visited so far, mutating/crossing over survivors
	// to explore further (ported from
	// update_input_population_with_coverage_maximization).
	Coverage
)

// ParseUpdateStrategy maps the configuration document's
// `input_initialization_method` string to an UpdateStrategy, defaulting
// to Random for "random", empty, or any unrecognised value.
func ParseUpdateStrategy(s string) UpdateStrategy {
	switch s {
	case "fitness":
		return Fitness
	case "coverage":
		return Coverage
	default:
		return Random
	}
}

// UpdatePopulation regenerates the input population per strategy (spec
// §4.7 supplement). scores holds, for Fitness, the previous
// generation's per-individual fitness score in the same order as prev
// (absent or length-mismatched scores fall back to Random); baseline is
// only consulted by Coverage, to replay candidates and measure which
// branches they reach.
func (g *Generator[F]) UpdatePopulation(
	strategy UpdateStrategy,
	prev []Individual[F],
	scores []*big.Int,
	names []expr.Name,
	binaryMode bool,
	baseline *exec.Trace[F],
) []Individual[F] {
	size := g.cfg.InputPopulationSize
	if size <= 0 {
		size = len(prev)
	}

	switch strategy {
	case Fitness:
		if len(prev) == 0 || len(scores) != len(prev) {
			return g.randomPopulation(names, binaryMode, size)
		}

		return g.updateByFitness(prev, scores, names, size)

	case Coverage:
		return g.updateByCoverage(prev, names, baseline, size)

	default:
		return g.randomPopulation(names, binaryMode, size)
	}
}

func (g *Generator[F]) randomPopulation(names []expr.Name, binaryMode bool, size int) []Individual[F] {
	out := make([]Individual[F], size)
	for i := range out {
		out[i] = g.Random(names, binaryMode)
	}

	return out
}

// updateByFitness ports update_input_population_with_fitness_score:
// every child is bred from two roulette-selected parents, crossed over
// with probability cfg.CrossoverRate, then mutated name-by-name with
// probability cfg.MutationRate.
func (g *Generator[F]) updateByFitness(prev []Individual[F], scores []*big.Int, names []expr.Name, size int) []Individual[F] {
	out := make([]Individual[F], size)

	for i := range out {
		p1 := rouletteSelection(g.rng, prev, scores)
		p2 := rouletteSelection(g.rng, prev, scores)

		var child Individual[F]
		if g.rng.Float64() < g.cfg.CrossoverRate {
			child = g.Crossover(p1, p2)
		} else {
			child = p1.Clone()
		}

		for _, n := range names {
			if g.rng.Float64() < g.cfg.MutationRate {
				child[n] = value.Field[F](config.SampleWeighted[F](g.rng, g.cfg.RandomValueRanges, g.one))
			}
		}

		out[i] = child
	}

	return out
}

// rouletteSelection ports roulette_selection: weights are each score
// minus the population minimum (so every weight is non-negative), and
// the selected individual is found by walking the population with a
// uniformly drawn target in [0, total_weight).
func rouletteSelection[F field.Element[F]](rng *rand.Rand, pop []Individual[F], scores []*big.Int) Individual[F] {
	minScore := scores[0]
	for _, s := range scores[1:] {
		if s.Cmp(minScore) < 0 {
			minScore = s
		}
	}

	weights := make([]*big.Int, len(scores))
	total := big.NewInt(0)

	for i, s := range scores {
		w := new(big.Int).Sub(s, minScore)
		weights[i] = w
		total.Add(total, w)
	}

	if total.Sign() <= 0 {
		total = big.NewInt(1)
	}

	target := new(big.Int).Rand(rng, total)

	for i, w := range weights {
		if target.Cmp(w) < 0 {
			return pop[i]
		}

		target.Sub(target, w)
	}

	return pop[0]
}

// updateByCoverage ports update_input_population_with_coverage_maximization:
// seed with a random batch, keep only individuals whose replay reaches
// a branch condition not yet seen this call, then repeatedly
// crossover/mutate survivors, keeping only further coverage gains, up to
// cfg.InputGenerationMaxIteration rounds or until size is reached.
// Candidates that fail to replay (a genuine runtime error under
// eval.ReplayCoverage) are treated as reaching no new branch.
func (g *Generator[F]) updateByCoverage(prev []Individual[F], names []expr.Name, baseline *exec.Trace[F], size int) []Individual[F] {
	visited := make(map[string]bool)

	gainsCoverage := func(ind Individual[F]) bool {
		_, taken, err := eval.ReplayCoverage[F](baseline, ind, g.one)
		if err != nil {
			return false
		}

		gained := false

		for branch := range taken {
			if !visited[branch] {
				visited[branch] = true
				gained = true
			}
		}

		return gained
	}

	kept := make([]Individual[F], 0, size)

	for _, ind := range g.randomPopulation(names, false, size) {
		if gainsCoverage(ind) {
			kept = append(kept, ind)
		}
	}

	maxIter := g.cfg.InputGenerationMaxIteration
	if maxIter <= 0 {
		maxIter = 30
	}

	for iter := 0; iter < maxIter && len(kept) < size; iter++ {
		var grown []Individual[F]

		for _, ind := range kept {
			cand := ind.Clone()

			if len(kept) > 1 && g.rng.Float64() < g.cfg.InputGenerationCrossoverRate {
				other := kept[g.rng.Intn(len(kept))]
				cand = g.Crossover(cand, other)
			}

			if g.rng.Float64() < g.cfg.InputGenerationMutationRate {
				cand = g.Mutate(cand, names)
			}

			if gainsCoverage(cand) {
				grown = append(grown, cand)
			}
		}

		if len(grown) == 0 {
			break
		}

		kept = append(kept, grown...)
	}

	for len(kept) < size {
		kept = append(kept, g.Random(names, false))
	}

	return kept[:size]
}
