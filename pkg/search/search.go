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

// Package search implements the co-evolutionary search driver of spec
// §4.8: two populations (program mutants and inputs) evolved generation
// by generation, evaluated pairwise against the immutable baseline
// trace, with a single-writer counterexample latch and cooperative
// cancellation per spec §5.
//
// The generation loop shape (regenerate inputs every R_update
// generations, retain the elite and the top scorers, fill every other
// slot with a fresh random mutant; no crossover or mutation of the
// survivors is done) is grounded on
// original_source/src/mutator/mutation_test.rs's mutation_test_search
// and mutation_test_evolution_fn.rs's simple_evolution/roulette_selection.
package search

import (
	"context"
	"math/big"
	"runtime"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/zkfuzz/zkfuzz/pkg/config"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/fitness"
	"github.com/zkfuzz/zkfuzz/pkg/input"
	"github.com/zkfuzz/zkfuzz/pkg/log"
	"github.com/zkfuzz/zkfuzz/pkg/mutate"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// Mode selects which driver Run dispatches to (spec §6
// "--search_mode", restored to its original four-way union by
// SPEC_FULL's §4.8 supplement).
type Mode uint8

// Search modes.
const (
	// ModeGA runs the full co-evolutionary driver.
	ModeGA Mode = iota
	// ModeQuick tries only {0, 1, P-1} per free variable.
	ModeQuick
	// ModeFull exhaustively enumerates every value in [0, P) per free
	// variable (only tractable for tiny fields/variable counts).
	ModeFull
	// ModeNone parses/executes the baseline only; no search.
	ModeNone
)

// Program is one member of the program population: an edit list
// against the baseline, plus its cached worst-case score.
type Program[F field.Element[F]] struct {
	ID       int
	Mutation mutate.Mutation[F]
	Trace    *exec.Trace[F]
	Score    *big.Int
}

// Individual re-exports pkg/input's input assignment type under the
// name this package's population bookkeeping uses.
type Individual[F field.Element[F]] = input.Individual[F]

// Result is what Run returns: either a witnessed counterexample or a
// budget-exhausted "no violation found" outcome.
type Result[F field.Element[F]] struct {
	Found      bool
	Class      fitness.Class
	Generation int
	Program    *Program[F]
	Input      Individual[F]
	RunID      uuid.UUID
	Seed       uint64
	Iterations int
}

// Config bundles everything Run needs beyond the mutation/search JSON
// document: the mode, worker count, and mutation strategy.
type Config struct {
	Mutation config.Mutation
	Mode     Mode
	Workers  int
	Strategy mutate.Strategy
}

// Run executes the search described by spec §4.8 against baseline,
// returning as soon as a violation is classified or the generation
// budget (cfg.Mutation.MaxGenerations) is exhausted. ctx is checked at
// every generation boundary and before every (program, input)
// evaluation (spec §5's cooperative cancellation).
func Run[F field.Element[F]](ctx context.Context, baseline *exec.Trace[F], cfg Config, one F) (Result[F], error) {
	runID := uuid.New()

	if r, ok := unusedOutputResult[F](baseline, one, runID, cfg.Mutation.Seed); ok {
		return r, nil
	}

	if cfg.Mode != ModeGA {
		return BruteForce[F](ctx, baseline, cfg, one, runID)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	mut := mutate.NewMutator[F](cfg.Mutation, cfg.Strategy, cfg.Mutation.Seed, one)
	gen := input.NewGenerator[F](cfg.Mutation, cfg.Mutation.Seed+1, one)
	updateStrategy := input.ParseUpdateStrategy(cfg.Mutation.InputInitializationMethod)

	names := append([]expr.Name{}, baseline.Inputs...)

	inputPop := make([]Individual[F], cfg.Mutation.InputPopulationSize)
	for i := range inputPop {
		inputPop[i] = gen.Random(names, withinBinaryWarmup(cfg.Mutation, 0))
	}

	inputScores := make([]*big.Int, len(inputPop))
	for i := range inputScores {
		inputScores[i] = big.NewInt(0)
	}

	programPop := make([]*Program[F], cfg.Mutation.ProgramPopulationSize)

	programPop[0] = &Program[F]{ID: 0, Trace: baseline, Score: big.NewInt(0)}

	for i := 1; i < len(programPop); i++ {
		programPop[i] = newMutant[F](mut, baseline, i)
	}

	lt := &latch[F]{}

	maxGen := cfg.Mutation.MaxGenerations
	if maxGen <= 0 {
		maxGen = 500
	}

	iterations := 0

	for g := 0; g < maxGen; g++ {
		select {
		case <-ctx.Done():
			return Result[F]{RunID: runID, Seed: cfg.Mutation.Seed, Iterations: iterations}, nil
		default:
		}

		if cfg.Mutation.InputUpdateInterval <= 0 || g%cfg.Mutation.InputUpdateInterval == 0 {
			inputPop = regenerateInputs[F](gen, updateStrategy, inputPop, inputScores, names, withinBinaryWarmup(cfg.Mutation, g), baseline)

			inputScores = make([]*big.Int, len(inputPop))
			for i := range inputScores {
				inputScores[i] = big.NewInt(0)
			}
		}

		n := evaluateGeneration[F](ctx, baseline, programPop, inputPop, inputScores, workers, lt, g, one)
		iterations += n

		if v := lt.load(); v != nil {
			v.RunID = runID
			v.Seed = cfg.Mutation.Seed
			v.Iterations = iterations

			log.Infof("counterexample found at generation %d: %s", g, v.Class)

			return *v, nil
		}

		log.Infof("generation %d: %d pairs evaluated, best score %s", g, n, bestScore(programPop))

		programPop = evolveProgramPopulation[F](mut, baseline, programPop, cfg.Mutation)
	}

	return Result[F]{RunID: runID, Seed: cfg.Mutation.Seed, Iterations: iterations}, nil
}

// unusedOutputResult implements the Trace.CheckUnusedOutputs pre-pass
// (SPEC_FULL §4.3 supplement): an output signal with no assignment
// anywhere in the baseline trace is free under every input, which is a
// direct under-constrained/non-deterministic witness -- cheaper than
// paying for a generation of search to rediscover the same fact.
func unusedOutputResult[F field.Element[F]](baseline *exec.Trace[F], one F, runID uuid.UUID, seed uint64) (Result[F], bool) {
	unused := baseline.CheckUnusedOutputs()
	if len(unused) == 0 {
		return Result[F]{}, false
	}

	log.Infof("unused output pre-pass: %s is never assigned, reporting as a direct counterexample", unused[0])

	zero := one.Sub(one)

	in := make(Individual[F], len(baseline.Inputs))
	for _, name := range baseline.Inputs {
		in[name] = value.Field[F](zero)
	}

	return Result[F]{
		Found:      true,
		Class:      fitness.UnderConstrainedNonDeterministic,
		Generation: 0,
		Program:    &Program[F]{ID: 0, Trace: baseline, Score: big.NewInt(0)},
		Input:      in,
		RunID:      runID,
		Seed:       seed,
		Iterations: 0,
	}, true
}

func withinBinaryWarmup(cfg config.Mutation, generation int) bool {
	if cfg.BinaryModeWarmupRound <= 0 {
		return false
	}

	maxGen := cfg.MaxGenerations
	if maxGen <= 0 {
		maxGen = 500
	}

	return float64(generation) < cfg.BinaryModeWarmupRound*float64(maxGen)
}

func newMutant[F field.Element[F]](mut *mutate.Mutator[F], baseline *exec.Trace[F], id int) *Program[F] {
	mn := mut.Random(baseline)

	tr, err := mutate.Apply[F](baseline, mn.Edits)
	if err != nil {
		// An invalid mutant (spec §4.8 "mutator-produced traces that
		// fail structurally are dropped and replaced") degrades to the
		// identity trace; it will simply score like the baseline and
		// get replaced next generation.
		return &Program[F]{ID: id, Trace: baseline, Score: big.NewInt(0)}
	}

	return &Program[F]{ID: id, Mutation: mn, Trace: tr, Score: big.NewInt(0)}
}

// regenerateInputs refreshes the input population per cfg.Mutation's
// input_initialization_method (spec §4.7 supplement): `random` and
// unrecognised values fall back to this package's original blend of
// fresh draws plus crossover/mutate of the prior population; `fitness`
// and `coverage` delegate entirely to pkg/input's matching
// UpdatePopulation strategy.
func regenerateInputs[F field.Element[F]](
	gen *input.Generator[F],
	strategy input.UpdateStrategy,
	prev []Individual[F],
	scores []*big.Int,
	names []expr.Name,
	binaryMode bool,
	baseline *exec.Trace[F],
) []Individual[F] {
	if strategy != input.Random {
		return gen.UpdatePopulation(strategy, prev, scores, names, binaryMode, baseline)
	}

	out := make([]Individual[F], len(prev))

	for i := range out {
		switch {
		case len(prev) < 2:
			out[i] = gen.Random(names, binaryMode)
		case i%3 == 0:
			out[i] = gen.Random(names, binaryMode)
		default:
			a := prev[i%len(prev)]
			b := prev[(i+1)%len(prev)]
			out[i] = gen.Mutate(gen.Crossover(a, b), names)
		}
	}

	return out
}

type pairJob[F field.Element[F]] struct {
	program *Program[F]
	in      Individual[F]
	inIdx   int
	genNum  int
}

type latch[F field.Element[F]] struct {
	mu    sync.Mutex
	once  sync.Once
	value *Result[F]
}

func (l *latch[F]) publish(r Result[F]) {
	l.once.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.value = &r
	})
}

func (l *latch[F]) load() *Result[F] {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.value
}

// evaluateGeneration dispatches every (program, input) pair in this
// generation across a bounded worker pool (spec §5 "independent
// evaluation of each pair within a generation"), publishing the first
// classified violation to lt and returning the pair count processed.
func evaluateGeneration[F field.Element[F]](
	ctx context.Context,
	baseline *exec.Trace[F],
	programs []*Program[F],
	inputs []Individual[F],
	inputScores []*big.Int,
	workers int,
	lt *latch[F],
	generation int,
	one F,
) int {
	jobs := make(chan pairJob[F])

	var counted int
	var countMu sync.Mutex
	var scoreMu sync.Mutex

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				if lt.load() != nil {
					continue
				}

				countMu.Lock()
				counted++
				countMu.Unlock()

				evaluatePair[F](baseline, job, inputScores, &scoreMu, lt, one)
			}
		}()
	}

	for _, p := range programs {
		for i, in := range inputs {
			if lt.load() != nil {
				break
			}

			jobs <- pairJob[F]{program: p, in: in, inIdx: i, genNum: generation}
		}
	}

	close(jobs)
	wg.Wait()

	return counted
}

// evaluatePair scores one (program, input) pair and, on the way,
// updates both the program's and this input's best-seen aggregate
// score (inputScores mirrors mutation_test.rs's fitness_scores_inputs,
// consumed by the Fitness input-update strategy's roulette selection).
func evaluatePair[F field.Element[F]](baseline *exec.Trace[F], job pairJob[F], inputScores []*big.Int, scoreMu *sync.Mutex, lt *latch[F], one F) {
	env := make(map[expr.Name]value.Value[F], len(job.in))
	for n, v := range job.in {
		env[n] = v
	}

	isBaseline := job.program.ID == 0

	trial, agg, err := fitness.EvaluateTrial[F](job.program.Trace, baseline, env, isBaseline, one)
	if err != nil {
		return
	}

	log.Tracef("generation %d: program %d, input %d: score %s", job.genNum, job.program.ID, job.inIdx, agg)

	job.program.Score = maxBig(job.program.Score, agg)

	if job.inIdx >= 0 && job.inIdx < len(inputScores) {
		scoreMu.Lock()
		inputScores[job.inIdx] = maxBig(inputScores[job.inIdx], agg)
		scoreMu.Unlock()
	}

	class := fitness.Classify[F](trial, one)
	if class == fitness.NoViolation {
		return
	}

	lt.publish(Result[F]{
		Found:      true,
		Class:      class,
		Generation: job.genNum,
		Program:    job.program,
		Input:      job.in,
	})
}

func maxBig(a, b *big.Int) *big.Int {
	if a == nil {
		return new(big.Int).Set(b)
	}

	if a.Cmp(b) >= 0 {
		return a
	}

	return new(big.Int).Set(b)
}

func bestScore[F field.Element[F]](programs []*Program[F]) string {
	best := big.NewInt(0)

	for _, p := range programs {
		if p.Score != nil && p.Score.Cmp(best) > 0 {
			best = p.Score
		}
	}

	return best.String()
}

// evolveProgramPopulation implements spec §4.8 step 2: keep the elite
// (identity mutation, index 0) and the highest scorers unchanged, up to
// len(pop)-k programs in all, and fill every other slot with a fresh
// random mutant. No crossover or mutation of the surviving programs is
// done (grounded on
// original_source/src/mutator/mutation_test_evolution_fn.rs's
// simple_evolution).
func evolveProgramPopulation[F field.Element[F]](mut *mutate.Mutator[F], baseline *exec.Trace[F], pop []*Program[F], cfg config.Mutation) []*Program[F] {
	if len(pop) == 0 {
		return pop
	}

	sorted := append([]*Program[F]{}, pop...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreOf(sorted[i]).Cmp(scoreOf(sorted[j])) > 0
	})

	k := cfg.NumEliminatedIndividuals
	if k < 0 {
		k = 0
	}

	if k > len(sorted)-1 {
		k = len(sorted) - 1
	}

	out := make([]*Program[F], 0, len(sorted))
	out = append(out, elitePlaceholder(pop))

	topEnd := len(sorted) - k
	if topEnd < 1 {
		topEnd = 1
	}

	for i := 0; i < len(sorted) && len(out) < topEnd; i++ {
		if sorted[i].ID == 0 {
			continue
		}

		out = append(out, sorted[i])
	}

	nextID := maxID(pop) + 1

	for len(out) < len(pop) {
		out = append(out, newMutant[F](mut, baseline, nextID))
		nextID++
	}

	return out
}

func elitePlaceholder[F field.Element[F]](pop []*Program[F]) *Program[F] {
	for _, p := range pop {
		if p.ID == 0 {
			return p
		}
	}

	return pop[0]
}

func scoreOf[F field.Element[F]](p *Program[F]) *big.Int {
	if p.Score == nil {
		return big.NewInt(0)
	}

	return p.Score
}

func maxID[F field.Element[F]](pop []*Program[F]) int {
	m := 0
	for _, p := range pop {
		if p.ID > m {
			m = p.ID
		}
	}

	return m
}
