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

// Package fitness implements the error and fitness scoring of spec
// §4.5: a scalar residual measuring how close a witness comes to
// satisfying every side constraint, and the four-way classification of
// a concrete trial into the violation taxonomy of spec §1.
//
// The residual shape (zero for a satisfied equality, a symmetric
// distance around the field's midpoint otherwise, a fixed penalty for
// a violated inequality) is grounded on
// original_source/src/mutator/utils.rs's
// accumulate_error_of_constraints/count_error_constraints/max_error_of_constraints
// family, adjusted to use spec §4.5's canonical
// min(|a-b|, P-|a-b|) distance rather than that prototype's plain
// absolute difference of representatives -- spec.md is explicit here,
// not silent, so it governs over the Rust prototype's literal formula.
package fitness

import (
	"math/big"

	"github.com/zkfuzz/zkfuzz/pkg/eval"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// InequalityPenalty is the fixed positive score added per violated
// inequality/ordering constraint (spec §4.5 "a fixed positive
// penalty"). Chosen large relative to any plausible equality residual
// in a small demonstration field so that a single violated ordering
// constraint always outweighs a near-miss equality, matching the
// original's treatment of ordering constraints as hard filters rather
// than optimisation targets.
var InequalityPenalty = big.NewInt(1 << 20)

// Residual scores one constraint (an expr.Compare node, the only shape
// pkg/exec ever emits into Trace.SideConstraints) against an
// evaluation environment: 0 if satisfied; for Eq, the canonical
// min(|a-b|, P-|a-b|) distance; for any other comparison operator, the
// fixed InequalityPenalty.
func Residual[F field.Element[F]](c expr.Expr[F], env map[expr.Name]value.Value[F], one F) (*big.Int, error) {
	cmp, ok := c.(*expr.Compare[F])
	if !ok {
		v, err := expr.Evaluate[F](c, env, one)
		if err != nil {
			return nil, err
		}

		if v.AsBool() {
			return big.NewInt(0), nil
		}

		return new(big.Int).Set(InequalityPenalty), nil
	}

	if cmp.Op != expr.Eq {
		v, err := expr.Evaluate[F](c, env, one)
		if err != nil {
			return nil, err
		}

		if v.AsBool() {
			return big.NewInt(0), nil
		}

		return new(big.Int).Set(InequalityPenalty), nil
	}

	lv, err := expr.Evaluate[F](cmp.L, env, one)
	if err != nil {
		return nil, err
	}

	rv, err := expr.Evaluate[F](cmp.R, env, one)
	if err != nil {
		return nil, err
	}

	return EqualityResidual(lv.AsField(one), rv.AsField(one)), nil
}

// EqualityResidual computes spec §4.5's equality residual: 0 if a and
// b are the same field element, otherwise min(|a-b|, P-|a-b|) taken
// over the canonical least-non-negative representatives.
func EqualityResidual[F field.Element[F]](a, b F) *big.Int {
	if a.Cmp(b) == 0 {
		return big.NewInt(0)
	}

	p := a.Modulus()
	d := new(big.Int).Sub(a.BigInt(), b.BigInt())
	d.Abs(d)

	other := new(big.Int).Sub(p, d)
	if other.Cmp(d) < 0 {
		return other
	}

	return d
}

// Score aggregates Residual over every constraint in constraints
// (spec §4.5 "aggregate fitness = sum of residuals"), short-circuiting
// on the first constraint whose evaluation raises a genuine runtime
// error (one not explained by an unreached branch -- callers replaying
// via pkg/eval.EvaluateConstraints should prefer that entry point,
// which already filters unreached-branch errors; Score is the lower
// level used once an environment is known complete).
func Score[F field.Element[F]](constraints []expr.Expr[F], env map[expr.Name]value.Value[F], one F) (*big.Int, error) {
	total := big.NewInt(0)

	for _, c := range constraints {
		r, err := Residual[F](c, env, one)
		if err != nil {
			return nil, err
		}

		total.Add(total, r)
	}

	return total, nil
}

// Class is the four-way violation taxonomy of spec §1/§4.5.
type Class uint8

// Violation classes.
const (
	// NoViolation is returned when no bug class applies: continue the
	// search.
	NoViolation Class = iota
	// UnderConstrainedNonDeterministic: the mutated trace satisfies
	// every constraint (aggregate = 0) but produces an output that
	// differs from the baseline's output under the same inputs.
	UnderConstrainedNonDeterministic
	// UnderConstrainedUnexpectedInput: the mutated trace satisfies
	// every constraint (aggregate = 0) yet the concrete evaluator
	// itself fails to produce a witness (a runtime replay failure).
	UnderConstrainedUnexpectedInput
	// OverConstrained: the mutated trace is identical to the baseline
	// (no mutation changed its semantics) and replay succeeds, yet the
	// aggregate residual is positive -- the constraints reject an
	// input the canonical trace would otherwise accept.
	OverConstrained
)

func (c Class) String() string {
	switch c {
	case NoViolation:
		return "no-violation"
	case UnderConstrainedNonDeterministic:
		return "under-constrained/non-deterministic"
	case UnderConstrainedUnexpectedInput:
		return "under-constrained/unexpected-input"
	case OverConstrained:
		return "over-constrained"
	default:
		return "unknown"
	}
}

// Trial bundles everything Classify needs about one (program, input)
// replay: the aggregate residual, whether the mutated trace is
// identical to the baseline (no edits applied), whether concrete
// replay of the mutated trace succeeded, and -- when both replays
// succeeded -- the mutated and baseline output values for comparison.
type Trial[F field.Element[F]] struct {
	Aggregate       *big.Int
	IsBaseline      bool
	ReplayFailed    bool
	MutatedOutputs  map[expr.Name]value.Value[F]
	BaselineOutputs map[expr.Name]value.Value[F]
	OutputNames     []expr.Name
}

// Classify implements spec §4.5's classification of a concrete trial:
//
//	aggregate = 0 ∧ evaluator failure        -> under-constrained/unexpected-input
//	aggregate = 0 ∧ success ∧ output differs -> under-constrained/non-deterministic
//	aggregate > 0 ∧ trace == baseline ∧ success -> over-constrained
//	otherwise                                -> no violation
func Classify[F field.Element[F]](t Trial[F], one F) Class {
	zero := t.Aggregate.Sign() == 0

	if zero && t.ReplayFailed {
		return UnderConstrainedUnexpectedInput
	}

	if zero && !t.ReplayFailed && outputsDiffer(t, one) {
		return UnderConstrainedNonDeterministic
	}

	if !zero && t.IsBaseline && !t.ReplayFailed {
		return OverConstrained
	}

	return NoViolation
}

func outputsDiffer[F field.Element[F]](t Trial[F], one F) bool {
	for _, name := range t.OutputNames {
		mv, mok := t.MutatedOutputs[name]
		bv, bok := t.BaselineOutputs[name]

		if mok != bok {
			return true
		}

		if mok && !value.Equal[F](mv, bv, one) {
			return true
		}
	}

	return false
}

// EvaluateTrial is a convenience wrapper tying pkg/eval and this
// package together for one (candidate trace, baseline trace, input)
// triple, mirroring evaluate_trace_fitness_by_error's per-input body:
// replay the candidate, replay the baseline (callers typically cache
// this across inputs), score the candidate's side constraints, and
// classify.
func EvaluateTrial[F field.Element[F]](
	candidate, baseline *exec.Trace[F],
	inputs map[expr.Name]value.Value[F],
	isBaseline bool,
	one F,
) (Trial[F], *big.Int, error) {
	cw, cerr := eval.Replay[F](candidate, inputs, one)

	trial := Trial[F]{OutputNames: candidate.Outputs, IsBaseline: isBaseline}

	if cerr != nil {
		trial.ReplayFailed = true
		trial.Aggregate = big.NewInt(0)

		return trial, trial.Aggregate, nil
	}

	agg, serr := scoreEnv[F](candidate, cw, one)
	if serr != nil {
		trial.ReplayFailed = true
		trial.Aggregate = big.NewInt(0)

		return trial, trial.Aggregate, nil
	}

	trial.Aggregate = agg
	trial.MutatedOutputs = cw.Values

	bw, berr := eval.Replay[F](baseline, inputs, one)
	if berr == nil {
		trial.BaselineOutputs = bw.Values
	}

	return trial, agg, nil
}

func scoreEnv[F field.Element[F]](t *exec.Trace[F], w *eval.Witness[F], one F) (*big.Int, error) {
	return Score[F](t.SideConstraints, w.Values, one)
}
