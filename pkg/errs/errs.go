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

// Package errs provides the tagged error taxonomy used throughout the
// engine (spec §7): parse/schema errors, compile-time symbolic errors,
// runtime replay errors and search errors.
package errs

import "fmt"

// Kind identifies which bucket of the taxonomy an error belongs to.
type Kind uint8

const (
	// ParseSchema covers malformed configuration, unknown enum values
	// and out-of-range numbers.
	ParseSchema Kind = iota
	// UnboundedRecursion is a compile-time error: the call depth
	// exceeded the executor's unroll bound. No decreasing-measure check
	// is made.
	UnboundedRecursion
	// NonDecidableLoop is a compile-time error: a loop condition is not
	// compile-time decidable, or the loop exceeded the unroll bound. No
	// over-approximating fallback is attempted.
	NonDecidableLoop
	// WiringCycle is a compile-time error: component instantiation
	// forms a cycle.
	WiringCycle
	// CompileTimeOOB is a compile-time error: a constant array index is
	// out of the declared dimension.
	CompileTimeOOB
	// UndeclaredSignal is a compile-time error: an expression refers to
	// a name outside its template instance's scope.
	UndeclaredSignal
	// DivideByZero is a runtime replay error.
	DivideByZero
	// InverseOfZero is a runtime replay error.
	InverseOfZero
	// DynamicOOB is a runtime replay error: a symbolic index evaluated
	// out of range.
	DynamicOOB
	// UnreachablePath is a runtime replay error: the path condition
	// evaluated to false for the supplied inputs.
	UnreachablePath
	// BudgetExhausted is a search error: normal termination without a
	// counterexample.
	BudgetExhausted
	// InvalidMutant is a search error: a mutator-produced trace
	// referenced an undefined name and was discarded.
	InvalidMutant
	// Cancelled is a search error: the cooperative cancel flag fired.
	Cancelled
)

var names = [...]string{
	"parse-schema",
	"unbounded-recursion",
	"non-decidable-loop",
	"wiring-cycle",
	"compile-time-oob",
	"undeclared-signal",
	"divide-by-zero",
	"inverse-of-zero",
	"dynamic-oob",
	"unreachable-path",
	"budget-exhausted",
	"invalid-mutant",
	"cancelled",
}

// String returns the stable tag name for this error kind.
func (k Kind) String() string {
	if int(k) < len(names) {
		return names[k]
	}

	return "unknown"
}

// IsCompileTime identifies the errors which must abort analysis
// entirely, per spec §7's propagation policy.
func (k Kind) IsCompileTime() bool {
	switch k {
	case UnboundedRecursion, NonDecidableLoop, WiringCycle, CompileTimeOOB, UndeclaredSignal, ParseSchema:
		return true
	default:
		return false
	}
}

// IsRuntime identifies errors which are only ever triggered by
// concrete replay, and which are caught per-pair and folded into
// scoring rather than aborting the run.
func (k Kind) IsRuntime() bool {
	switch k {
	case DivideByZero, InverseOfZero, DynamicOOB, UnreachablePath:
		return true
	default:
		return false
	}
}

// Error is a structured error carrying a taxonomy Kind, a
// human-readable message and an optional location (e.g. a fully
// qualified signal name or template name), mirroring the teacher's
// *sexp.SyntaxError shape (file + span + message + Error()).
type Error struct {
	Kind    Kind
	Where   string
	Message string
}

// New constructs an Error of the given kind.
func New(kind Kind, where, format string, args ...any) *Error {
	return &Error{Kind: kind, Where: where, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	}

	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Where, e.Message)
}
