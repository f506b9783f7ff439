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

// Package mutate implements the program mutator of spec §4.6: a
// bounded list of edits applied additively against the immutable
// baseline trace produced by pkg/exec, never against an
// already-mutated trace.
//
// The four edit kinds and the strategy knob restricting which kinds a
// run uses are grounded on original_source/src/mutator's
// mutate_trace_with_constant / mutate_trace_with_constant_operator /
// mutate_trace_with_constant_operator_add /
// mutate_trace_with_constant_operator_delete functions (selected by
// mutation_config.trace_mutation_method); the seeded-RNG wrapping
// idiom is grounded on
// other_examples/Connerlevi-A-Swarm__mutation-engine-v2.go's
// NewMutationEngine(seed).
package mutate

import (
	"fmt"
	"math/rand"

	"github.com/zkfuzz/zkfuzz/pkg/config"
	"github.com/zkfuzz/zkfuzz/pkg/errs"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// EditKind enumerates the four mutation primitives of spec §4.6.
type EditKind uint8

// Edit kinds.
const (
	ConstantPerturbation EditKind = iota
	OperatorSubstitution
	StatementDeletion
	StatementInsertion
)

func (k EditKind) String() string {
	switch k {
	case ConstantPerturbation:
		return "constant-perturbation"
	case OperatorSubstitution:
		return "operator-substitution"
	case StatementDeletion:
		return "statement-deletion"
	case StatementInsertion:
		return "statement-insertion"
	default:
		return "unknown"
	}
}

// Strategy restricts which edit kinds a run may draw from, recovering
// the knob original_source's trace_mutation_method flattens into a
// fixed union (SPEC_FULL §4.6 supplement).
type Strategy uint8

// Strategies, matching trace_mutation_method's four string values.
const (
	// StrategyConstant allows only constant perturbation.
	StrategyConstant Strategy = iota
	// StrategyConstantOperator allows constant perturbation and
	// operator substitution (the prototype's default).
	StrategyConstantOperator
	// StrategyConstantOperatorAdd additionally allows statement
	// insertion.
	StrategyConstantOperatorAdd
	// StrategyConstantOperatorDelete additionally allows statement
	// deletion instead of insertion.
	StrategyConstantOperatorDelete
)

// Kinds returns the edit kinds a strategy draws from.
func (s Strategy) Kinds() []EditKind {
	switch s {
	case StrategyConstant:
		return []EditKind{ConstantPerturbation}
	case StrategyConstantOperatorAdd:
		return []EditKind{ConstantPerturbation, OperatorSubstitution, StatementInsertion}
	case StrategyConstantOperatorDelete:
		return []EditKind{ConstantPerturbation, OperatorSubstitution, StatementDeletion}
	default:
		return []EditKind{ConstantPerturbation, OperatorSubstitution}
	}
}

// Edit is one mutation primitive applied against a specific statement
// index of the baseline trace.
type Edit[F field.Element[F]] struct {
	Kind      EditKind
	StmtIndex int
	// SiteID addresses the constant or binary-operator node within
	// Statements[StmtIndex].Value for ConstantPerturbation/
	// OperatorSubstitution (site ids per pkg/mutate's pre-order
	// numbering of that statement's expression tree).
	SiteID int
	// Replacement is the new sub-expression for ConstantPerturbation/
	// OperatorSubstitution, or the full assignment for
	// StatementInsertion.
	Replacement expr.Expr[F]
	InsertStmt  exec.Statement[F]
}

// Mutation is an ordered, bounded edit list (spec §4.6 constraint (i):
// at most K edits), composed additively against the baseline trace.
type Mutation[F field.Element[F]] struct {
	Edits []Edit[F]
}

// Mutator draws random, validity-respecting mutations against a fixed
// baseline trace using a seeded PRNG (spec §5's determinism
// requirement: same seed -> same sequence of mutants).
type Mutator[F field.Element[F]] struct {
	rng      *rand.Rand
	cfg      config.Mutation
	strategy Strategy
	one      F
}

// NewMutator constructs a Mutator seeded deterministically from seed.
func NewMutator[F field.Element[F]](cfg config.Mutation, strategy Strategy, seed uint64, one F) *Mutator[F] {
	return &Mutator[F]{rng: rand.New(rand.NewSource(int64(seed))), cfg: cfg, strategy: strategy, one: one}
}

// Random draws a new bounded Mutation against baseline: between 1 and
// cfg.MaxNumMutationPoints edits (default K=10), each independently
// chosen among the strategy's allowed kinds and a uniformly-random
// valid target for that kind. Returns an empty Mutation if baseline
// offers no valid target for any allowed kind.
func (m *Mutator[F]) Random(baseline *exec.Trace[F]) Mutation[F] {
	kinds := m.strategy.Kinds()

	k := m.cfg.MaxNumMutationPoints
	if k <= 0 {
		k = 10
	}

	n := 1 + m.rng.Intn(k)

	var edits []Edit[F]

	for i := 0; i < n; i++ {
		kind := kinds[m.rng.Intn(len(kinds))]

		edit, ok := m.draw(baseline, kind)
		if ok {
			edits = append(edits, edit)
		}
	}

	return Mutation[F]{Edits: edits}
}

func (m *Mutator[F]) draw(baseline *exec.Trace[F], kind EditKind) (Edit[F], bool) {
	switch kind {
	case ConstantPerturbation:
		return m.drawConstantPerturbation(baseline)
	case OperatorSubstitution:
		return m.drawOperatorSubstitution(baseline)
	case StatementDeletion:
		return m.drawStatementDeletion(baseline)
	case StatementInsertion:
		return m.drawStatementInsertion(baseline)
	default:
		return Edit[F]{}, false
	}
}

func (m *Mutator[F]) drawConstantPerturbation(baseline *exec.Trace[F]) (Edit[F], bool) {
	idx, sid, ok := m.pickSite(baseline, siteConstant)
	if !ok {
		return Edit[F]{}, false
	}

	v := m.sampleConstant()

	return Edit[F]{
		Kind: ConstantPerturbation, StmtIndex: idx, SiteID: sid,
		Replacement: &expr.Constant[F]{Value: value.Field[F](v)},
	}, true
}

func (m *Mutator[F]) drawOperatorSubstitution(baseline *exec.Trace[F]) (Edit[F], bool) {
	idx, sid, ok := m.pickSite(baseline, siteBinaryOp)
	if !ok {
		return Edit[F]{}, false
	}

	counter := 0

	node := nodeAt[F](baseline.Statements[idx].Value, sid, &counter)

	bin, isBin := node.(*expr.Binary[F])
	if !isBin {
		return Edit[F]{}, false
	}

	newOp, ok := sameArityOperator(bin.Op)
	if !ok {
		return Edit[F]{}, false
	}

	return Edit[F]{
		Kind: OperatorSubstitution, StmtIndex: idx, SiteID: sid,
		Replacement: &expr.Binary[F]{Op: newOp, L: bin.L, R: bin.R},
	}, true
}

func (m *Mutator[F]) drawStatementDeletion(baseline *exec.Trace[F]) (Edit[F], bool) {
	candidates := make([]int, 0, len(baseline.Statements))

	for i, s := range baseline.Statements {
		if !isOutputAssignment(baseline, s.Target) {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		return Edit[F]{}, false
	}

	idx := candidates[m.rng.Intn(len(candidates))]

	return Edit[F]{Kind: StatementDeletion, StmtIndex: idx}, true
}

func (m *Mutator[F]) drawStatementInsertion(baseline *exec.Trace[F]) (Edit[F], bool) {
	if len(baseline.Statements) == 0 {
		return Edit[F]{}, false
	}

	after := m.rng.Intn(len(baseline.Statements))

	// Pick a small random expression over names already bound by
	// statements up to and including `after`, so the inserted
	// statement never references an undefined name (spec §4.6
	// constraint (ii)).
	known := make([]expr.Name, 0, after+1+len(baseline.Inputs))
	known = append(known, baseline.Inputs...)

	for i := 0; i <= after; i++ {
		known = append(known, baseline.Statements[i].Target)
	}

	if len(known) == 0 {
		return Edit[F]{}, false
	}

	lhs := known[m.rng.Intn(len(known))]

	var rhs expr.Expr[F]

	if m.rng.Intn(2) == 0 || len(known) < 2 {
		rhs = &expr.Constant[F]{Value: value.Field[F](m.sampleConstant())}
	} else {
		rhs = &expr.Binary[F]{
			Op: addOrMul(m.rng),
			L:  &expr.NameExpr[F]{Name: lhs},
			R:  &expr.Constant[F]{Value: value.Field[F](m.sampleConstant())},
		}
	}

	fresh := expr.Name(fmt.Sprintf("_mut$insert%d", m.rng.Int63()))

	stmt := exec.Statement[F]{Kind: exec.Witness, Target: fresh, Value: rhs}

	return Edit[F]{Kind: StatementInsertion, StmtIndex: after, InsertStmt: stmt}, true
}

func addOrMul(rng *rand.Rand) expr.BinaryOp {
	if rng.Intn(2) == 0 {
		return expr.Add
	}

	return expr.Mul
}

func (m *Mutator[F]) pickSite(baseline *exec.Trace[F], want siteKind) (stmtIdx, siteID int, ok bool) {
	type hit struct{ stmt, id int }

	var hits []hit

	for i, s := range baseline.Statements {
		for _, site := range collectSites[F](s.Value) {
			if site.kind == want {
				hits = append(hits, hit{stmt: i, id: site.id})
			}
		}
	}

	if len(hits) == 0 {
		return 0, 0, false
	}

	h := hits[m.rng.Intn(len(hits))]

	return h.stmt, h.id, true
}

// sampleConstant draws a value from cfg.RandomValueRanges's weighted
// mix (spec §4.7's range table, reused here for constant perturbation
// per spec §4.6's "sampled from the configured ranges").
func (m *Mutator[F]) sampleConstant() F {
	return config.SampleWeighted[F](m.rng, m.cfg.RandomValueRanges, m.one)
}

// sameArityOperator implements spec §4.6's "swap a binary operator
// with one of the same arity class (Add<->Sub, Mul<->Div,
// comparisons)" for the purely-arithmetic BinaryOp kinds; comparison
// operators are handled separately since they live in Compare nodes,
// not Binary.
func sameArityOperator(op expr.BinaryOp) (expr.BinaryOp, bool) {
	switch op {
	case expr.Add:
		return expr.Sub, true
	case expr.Sub:
		return expr.Add, true
	case expr.Mul:
		return expr.Div, true
	case expr.Div:
		return expr.Mul, true
	default:
		return 0, false
	}
}

func isOutputAssignment[F field.Element[F]](t *exec.Trace[F], target expr.Name) bool {
	for _, out := range t.Outputs {
		if out == target {
			return true
		}
	}

	for _, out := range t.Outputs {
		if len(target) > len(out)+1 && string(target[:len(out)+1]) == string(out)+"[" {
			return true
		}
	}

	return false
}

// Apply rebuilds a full *exec.Trace[F] from baseline by composing
// edits additively (spec §4.6 "edits act on the baseline trace ...
// composition defines the mutant"), validating constraints (ii) and
// (iii) as it goes. SideConstraints are carried over unchanged: a
// deleted or perturbed witness-only statement simply leaves any side
// constraint mentioning its target referring to an unassigned name,
// which pkg/eval.EvaluateConstraints treats as vacuously satisfied.
// pkg/fitness does not: scoring such a constraint fails on the
// unassigned name and EvaluateTrial reports the trial as a failed
// replay.
func Apply[F field.Element[F]](baseline *exec.Trace[F], edits []Edit[F]) (*exec.Trace[F], error) {
	stmts := append([]exec.Statement[F]{}, baseline.Statements...)

	deleted := make(map[int]bool)
	insertions := make(map[int][]exec.Statement[F])

	for _, e := range edits {
		switch e.Kind {
		case ConstantPerturbation, OperatorSubstitution:
			if e.StmtIndex < 0 || e.StmtIndex >= len(stmts) {
				return nil, errs.New(errs.InvalidMutant, "", "mutation targets out-of-range statement %d", e.StmtIndex)
			}

			counter := 0
			newVal := replaceAt[F](stmts[e.StmtIndex].Value, e.SiteID, &counter, e.Replacement)

			if err := checkKnownNames(baseline, e.StmtIndex, newVal); err != nil {
				return nil, err
			}

			s := stmts[e.StmtIndex]
			s.Value = newVal
			stmts[e.StmtIndex] = s

		case StatementDeletion:
			if e.StmtIndex < 0 || e.StmtIndex >= len(stmts) {
				return nil, errs.New(errs.InvalidMutant, "", "deletion targets out-of-range statement %d", e.StmtIndex)
			}

			if isOutputAssignment(baseline, stmts[e.StmtIndex].Target) {
				return nil, errs.New(errs.InvalidMutant, string(stmts[e.StmtIndex].Target), "refusing to delete an output-assigning statement")
			}

			deleted[e.StmtIndex] = true

		case StatementInsertion:
			insertions[e.StmtIndex] = append(insertions[e.StmtIndex], e.InsertStmt)

		default:
			return nil, errs.New(errs.InvalidMutant, "", "unrecognised edit kind %v", e.Kind)
		}
	}

	out := &exec.Trace[F]{
		SideConstraints: baseline.SideConstraints,
		Inputs:          baseline.Inputs,
		Outputs:         baseline.Outputs,
		Signals:         baseline.Signals,
	}

	for i, s := range stmts {
		if !deleted[i] {
			out.Statements = append(out.Statements, s)
		}

		out.Statements = append(out.Statements, insertions[i]...)
	}

	return out, nil
}

// checkKnownNames enforces spec §4.6 constraint (ii): a mutated value
// must never reference a name that is not bound by an earlier
// statement or a declared input at the point of use (trace.Inputs plus
// every statement strictly before stmtIdx, plus stmtIdx's own target
// for the rare self-referential case).
func checkKnownNames[F field.Element[F]](baseline *exec.Trace[F], stmtIdx int, e expr.Expr[F]) error {
	known := make(map[expr.Name]bool, len(baseline.Inputs)+stmtIdx+1)
	for _, n := range baseline.Inputs {
		known[n] = true
	}

	for i := 0; i <= stmtIdx && i < len(baseline.Statements); i++ {
		known[baseline.Statements[i].Target] = true
	}

	for _, n := range e.FreeNames() {
		if !known[n] {
			return errs.New(errs.InvalidMutant, string(n), "mutation introduced an undefined name")
		}
	}

	return nil
}
