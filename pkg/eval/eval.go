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

// Package eval implements the concrete evaluator of spec §4.4: replay a
// canonical trace produced by pkg/exec against one concrete input
// assignment, in emission order, honouring each statement's path
// condition, and report either a complete witness or a typed runtime
// failure.
//
// This mirrors the replay loop original_source/src/mutator/utils.rs's
// emulate_symbolic_trace walks over a SymbolicTrace: fold statements
// left to right into a binding environment, skipping any whose guard
// does not hold for this input.
package eval

import (
	"strings"

	"github.com/zkfuzz/zkfuzz/pkg/errs"
	"github.com/zkfuzz/zkfuzz/pkg/exec"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// Witness is the full binding environment produced by one replay: every
// name the taken path assigned, keyed by its fully qualified dotted
// name (spec §4.4 "a complete witness").
type Witness[F field.Element[F]] struct {
	Values map[expr.Name]value.Value[F]
}

// Lookup returns the value bound to name, if any.
func (w *Witness[F]) Lookup(name expr.Name) (value.Value[F], bool) {
	v, ok := w.Values[name]
	return v, ok
}

// Replay walks t.Statements in order starting from the supplied input
// bindings, building the full witness. A statement whose path
// condition evaluates false under the bindings accumulated so far is
// skipped (it belongs to a branch this input does not take); one whose
// path condition or value expression raises a typed error aborts replay
// and returns that error, per spec §4.4's "runtime failure" outcome
// (errs.DivideByZero, errs.InverseOfZero, errs.DynamicOOB,
// errs.UnreachablePath).
func Replay[F field.Element[F]](t *exec.Trace[F], inputs map[expr.Name]value.Value[F], one F) (*Witness[F], error) {
	env := make(map[expr.Name]value.Value[F], len(inputs)+len(t.Statements))
	for k, v := range inputs {
		env[k] = v
	}

	for _, stmt := range t.Statements {
		if stmt.PathCnd != nil && !isTrivialTrue[F](stmt.PathCnd) {
			cond, err := expr.Evaluate[F](stmt.PathCnd, env, one)
			if err != nil {
				if asErr, ok := err.(*errs.Error); ok && asErr.Kind == errs.UndeclaredSignal {
					// A name this branch's guard depends on was never
					// assigned on the path taken so far: the guard
					// cannot hold, so this statement is unreachable
					// for this input. Skip rather than fail the whole
					// replay.
					continue
				}

				return nil, err
			}

			if !cond.AsBool() {
				continue
			}
		}

		v, err := expr.Evaluate[F](stmt.Value, env, one)
		if err != nil {
			return nil, err
		}

		env[stmt.Target] = v
	}

	return &Witness[F]{Values: env}, nil
}

// isTrivialTrue reports whether cond is the literal boolean constant
// true, the common case for unconditional statements (mirrors
// exec.isTrivialTrue, duplicated here since that helper is unexported).
func isTrivialTrue[F field.Element[F]](cond expr.Expr[F]) bool {
	c, ok := cond.(*expr.Constant[F])
	if !ok {
		return false
	}

	return c.Value.IsBool() && c.Value.AsBool()
}

// ReplayCoverage behaves exactly like Replay but additionally returns a
// branch-coverage signature for the taken path: the textual form of
// every non-trivial path condition that evaluated true. This
// approximates original_source/src/executor/coverage.rs's per-path
// branch-ID bitset without a structural branch-ID type, since every
// forked path condition pkg/exec emits already prints deterministically
// per branch (see exec.Statement.String); pkg/input's coverage-guided
// update strategy diffs this set against previously visited branches.
func ReplayCoverage[F field.Element[F]](t *exec.Trace[F], inputs map[expr.Name]value.Value[F], one F) (*Witness[F], map[string]bool, error) {
	env := make(map[expr.Name]value.Value[F], len(inputs)+len(t.Statements))
	for k, v := range inputs {
		env[k] = v
	}

	taken := make(map[string]bool)

	for _, stmt := range t.Statements {
		if stmt.PathCnd != nil && !isTrivialTrue[F](stmt.PathCnd) {
			cond, err := expr.Evaluate[F](stmt.PathCnd, env, one)
			if err != nil {
				if asErr, ok := err.(*errs.Error); ok && asErr.Kind == errs.UndeclaredSignal {
					continue
				}

				return nil, nil, err
			}

			if !cond.AsBool() {
				continue
			}

			taken[stmt.PathCnd.String()] = true
		}

		v, err := expr.Evaluate[F](stmt.Value, env, one)
		if err != nil {
			return nil, nil, err
		}

		env[stmt.Target] = v
	}

	return &Witness[F]{Values: env}, taken, nil
}

// MissingOutputs reports every declared output signal with no
// assignment in w, array-aware: a scalar output "a" is satisfied by a
// binding for "a" itself, an array output "a" is satisfied so long as
// at least one flattened lane "a[0]", "a[1]", ... was assigned (the
// executor's single-assignment check already guarantees no lane is
// assigned twice on one path). An output appearing here is a direct
// counterexample candidate: it can never be witnessed, which is
// trivially under-constrained (original_source's check_unused_outputs).
func MissingOutputs[F field.Element[F]](t *exec.Trace[F], w *Witness[F]) []expr.Name {
	var missing []expr.Name

	for _, out := range t.Outputs {
		if _, ok := w.Values[out]; ok {
			continue
		}

		if hasLane(w, out) {
			continue
		}

		missing = append(missing, out)
	}

	return missing
}

func hasLane[F field.Element[F]](w *Witness[F], base expr.Name) bool {
	prefix := string(base) + "["

	for name := range w.Values {
		if strings.HasPrefix(string(name), prefix) {
			return true
		}
	}

	return false
}

// EvaluateConstraints evaluates every side constraint in t against the
// witness w, returning one boolean per constraint (true iff satisfied)
// in t.SideConstraints order. A constraint that mentions a name never
// bound on this replay's taken path is vacuously satisfied (it
// belongs to a branch this input did not exercise) and is reported
// true; any other evaluation error aborts and is returned, since it
// signals a genuine runtime failure (division by zero, out-of-bounds
// index) rather than an unreached branch.
func EvaluateConstraints[F field.Element[F]](t *exec.Trace[F], w *Witness[F], one F) ([]bool, error) {
	results := make([]bool, len(t.SideConstraints))

	for i, c := range t.SideConstraints {
		v, err := expr.Evaluate[F](c, w.Values, one)
		if err != nil {
			if asErr, ok := err.(*errs.Error); ok && asErr.Kind == errs.UndeclaredSignal {
				results[i] = true
				continue
			}

			return nil, err
		}

		results[i] = v.AsBool()
	}

	return results, nil
}
