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

// Package exec implements the symbolic execution engine of spec §4.3:
// it lowers a pkg/ast.Program's main template into a canonical trace
// (an ordered list of single-assignment statements) and a side
// constraint set, keeping the two separate because divergence between
// them is the primary bug class the analysis looks for.
//
// The state-machine shape (Ready/Executing/Fork/merge, owner-qualified
// scope names, a single binding map plus two append-only output lists)
// is grounded on original_source/src/executor/symbolic_state.rs's
// SymbolicState.
package exec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/zkfuzz/zkfuzz/pkg/ast"
	"github.com/zkfuzz/zkfuzz/pkg/errs"
	"github.com/zkfuzz/zkfuzz/pkg/expr"
	"github.com/zkfuzz/zkfuzz/pkg/field"
	"github.com/zkfuzz/zkfuzz/pkg/log"
	"github.com/zkfuzz/zkfuzz/pkg/value"
)

// Setting configures the executor's behaviour, mirroring
// original_source/src/executor/symbolic_setting.rs's
// SymbolicExecutorSetting (split there into a symbolic-analysis preset
// and a concrete-replay preset).
type Setting struct {
	// OnlyInitializationBlocks mirrors the prototype's
	// only_initialization_blocks flag. The executor does not read it:
	// every template body is executed in full whatever its value.
	OnlyInitializationBlocks bool
	// SubstituteOutput mirrors the concrete-replay preset's
	// substitute_output flag. The executor does not read it: output
	// signals are handled like every other signal whatever its value.
	SubstituteOutput bool
	// MaxUnroll bounds the call depth (function calls and nested
	// component instantiations both count) and the number of loop
	// iterations. A call past the depth raises errs.UnboundedRecursion
	// and a loop past the iteration count raises errs.NonDecidableLoop;
	// no check is made that recursive calls decrease their parameters.
	MaxUnroll int
}

// DefaultSymbolicSetting mirrors
// get_default_setting_for_symbolic_execution: full trace kept, no
// output substitution, generous unroll bound.
func DefaultSymbolicSetting() Setting {
	return Setting{OnlyInitializationBlocks: false, SubstituteOutput: false, MaxUnroll: 10_000}
}

// DefaultConcreteSetting mirrors
// get_default_setting_for_concrete_execution: SubstituteOutput set
// (which the executor does not read), same unroll bound.
func DefaultConcreteSetting() Setting {
	return Setting{OnlyInitializationBlocks: false, SubstituteOutput: true, MaxUnroll: 10_000}
}

// Kind tags a trace statement as witness-only or constraint-and-witness
// (spec §4.3 "Assignment kinds"), the distinction the analysis exists
// to exploit divergence in.
type Kind uint8

// Statement kinds.
const (
	// Witness populates the trace but emits no side constraint.
	Witness Kind = iota
	// WitnessAndConstraint populates the trace and also emits a side
	// constraint asserting the assigned value equals its definition.
	WitnessAndConstraint
)

// Statement is one entry of the canonical trace: an assignment to a
// fully owner-qualified Name, guarded by the path condition active when
// it was emitted (non-trivial only under a non-decidable branch).
type Statement[F field.Element[F]] struct {
	Kind    Kind
	Target  expr.Name
	Value   expr.Expr[F]
	PathCnd expr.Expr[F]
}

func (s Statement[F]) String() string {
	op := "<--"
	if s.Kind == WitnessAndConstraint {
		op = "<=="
	}

	if isTrivialTrue[F](s.PathCnd) {
		return fmt.Sprintf("%s %s %s", s.Target, op, s.Value)
	}

	return fmt.Sprintf("[%s] %s %s %s", s.PathCnd, s.Target, op, s.Value)
}

// Trace is the ordered canonical trace produced by the executor.
type Trace[F field.Element[F]] struct {
	Statements []Statement[F]
	// SideConstraints are the verifier-visible constraints, kept as a
	// separate list from Statements per spec §3's "canonical trace /
	// side constraints are emitted into two separate lists".
	SideConstraints []expr.Expr[F]
	Inputs          []expr.Name
	Outputs         []expr.Name
	Signals         []expr.Name
}

// CheckUnusedOutputs flags every declared output with zero assignment
// statements anywhere in the trace: a signal that can never be set is
// trivially under-constrained, so this cheap pre-pass is tried before
// paying for a full search (mirrors original_source/src/mutator/unused_outputs.rs's
// placement ahead of brute-force/GA search in main.rs's dispatch order).
func (t *Trace[F]) CheckUnusedOutputs() []expr.Name {
	assigned := make(map[expr.Name]bool, len(t.Statements))
	for _, s := range t.Statements {
		assigned[s.Target] = true
	}

	var unused []expr.Name

	for _, o := range t.Outputs {
		if !assigned[o] {
			unused = append(unused, o)
		}
	}

	return unused
}

// Executor performs symbolic execution of a pkg/ast.Program's main
// template. One is constructed per run to build the baseline trace;
// it is not safe for concurrent use.
type Executor[F field.Element[F]] struct {
	prog     *ast.Program
	setting  Setting
	one      F
	tmplByID map[string]*ast.Template
	fnByID   map[string]*ast.Function
	arena    *expr.Arena[F]
}

// NewExecutor constructs an Executor over prog using the field unit
// element one (used to materialise constants of the correct modulus).
func NewExecutor[F field.Element[F]](prog *ast.Program, setting Setting, one F) *Executor[F] {
	e := &Executor[F]{
		prog:     prog,
		setting:  setting,
		one:      one,
		tmplByID: make(map[string]*ast.Template, len(prog.Templates)),
		fnByID:   make(map[string]*ast.Function, len(prog.Functions)),
		arena:    expr.NewArena[F](),
	}

	for _, t := range prog.Templates {
		e.tmplByID[t.Name] = t
	}

	for _, f := range prog.Functions {
		e.fnByID[f.Name] = f
	}

	return e
}

// scope holds the mutable per-template-instance execution state:
// owner-qualified binding map, accumulated trace/constraints and
// recursion/loop bookkeeping. Mirrors symbolic_state.rs's
// SymbolicState, generalised to this engine's Expr/Value types.
type scope[F field.Element[F]] struct {
	owner       string
	bindings    map[expr.Name]expr.Expr[F]
	trace       *Trace[F]
	pathCond    expr.Expr[F]
	depth       int
	wiringStack map[string]bool
	components  map[string]*componentState[F]
}

// componentState tracks a sub-component instance's lazy-execution
// status (spec §4.3: "executed lazily at first read of any c.out").
type componentState[F field.Element[F]] struct {
	decl    ast.ComponentDecl
	scope   *scope[F]
	started bool
}

func newScope[F field.Element[F]](owner string, trace *Trace[F], pathCond expr.Expr[F], depth int) *scope[F] {
	return &scope[F]{
		owner:       owner,
		bindings:    make(map[expr.Name]expr.Expr[F]),
		trace:       trace,
		pathCond:    pathCond,
		depth:       depth,
		wiringStack: make(map[string]bool),
		components:  make(map[string]*componentState[F]),
	}
}

func qualify(owner, name string) expr.Name {
	if owner == "" {
		return expr.Name(name)
	}

	return expr.Name(owner + "." + name)
}

func isTrivialTrue[F field.Element[F]](c expr.Expr[F]) bool {
	if c == nil {
		return true
	}

	cst, ok := c.(*expr.Constant[F])
	return ok && cst.Value.AsBool()
}

// Run executes Program.Main and returns the resulting canonical trace.
func (e *Executor[F]) Run() (*Trace[F], error) {
	if e.prog.Main == nil {
		return nil, errs.New(errs.ParseSchema, "", "program has no main declaration")
	}

	tmpl, ok := e.tmplByID[e.prog.Main.Template]
	if !ok {
		return nil, errs.New(errs.UndeclaredSignal, e.prog.Main.Template, "main template not found")
	}

	trace := &Trace[F]{}

	root := newScope[F]("main", trace, trueConst[F](e.one), 0)

	if err := e.bindParams(root, tmpl.Params, e.prog.Main.Args); err != nil {
		return nil, err
	}

	if err := e.declareSignals(root, tmpl); err != nil {
		return nil, err
	}

	e.declareComponents(root, tmpl)

	if err := e.execBlock(root, tmpl.Body); err != nil {
		return nil, err
	}

	return trace, nil
}

// declareComponents registers every sub-component instance a template
// declares so that lowerLValue/resolveFieldAccess can find it by name;
// the instance's own body is not executed here (spec §4.3 "executed
// lazily at first read of any c.out", enforced by
// ensureComponentExecuted).
func (e *Executor[F]) declareComponents(sc *scope[F], tmpl *ast.Template) {
	for _, c := range tmpl.Components {
		sc.components[c.Name] = &componentState[F]{decl: c}
	}
}

func trueConst[F field.Element[F]](one F) expr.Expr[F] {
	return &expr.Constant[F]{Value: value.Bool[F](true)}
}

func (e *Executor[F]) bindParams(sc *scope[F], params []string, args []ast.Expr) error {
	if len(params) != len(args) {
		return errs.New(errs.ParseSchema, "", "template parameter count mismatch: expected %d, got %d", len(params), len(args))
	}

	for i, p := range params {
		v, err := e.evalStatic(sc, args[i])
		if err != nil {
			return err
		}

		sc.bindings[qualify(sc.owner, p)] = v
	}

	return nil
}

func (e *Executor[F]) declareSignals(sc *scope[F], tmpl *ast.Template) error {
	all := append(append(append([]ast.SignalDecl{}, tmpl.Inputs...), tmpl.Outputs...), tmpl.Signals...)

	for _, s := range all {
		name := qualify(sc.owner, s.Name)
		sc.trace.Signals = append(sc.trace.Signals, name)

		switch s.Kind {
		case ast.InputSignal:
			sc.trace.Inputs = append(sc.trace.Inputs, name)
		case ast.OutputSignal:
			sc.trace.Outputs = append(sc.trace.Outputs, name)
		}
	}

	return nil
}

// evalStatic evaluates a template-parameter-only expression to a
// closed Expr (used for array dimensions and component arguments,
// which must be compile-time decidable per spec §4.3).
func (e *Executor[F]) evalStatic(sc *scope[F], a ast.Expr) (expr.Expr[F], error) {
	built, err := e.lower(sc, a)
	if err != nil {
		return nil, err
	}

	norm := expr.Normalise[F](built, e.one)
	if _, ok := norm.(*expr.Constant[F]); !ok {
		if len(norm.FreeNames()) > 0 {
			return norm, nil
		}
	}

	return norm, nil
}

// lower translates a surface ast.Expr into a pkg/expr.Expr, resolving
// plain names against the scope's binding map: variables and template
// parameters are substituted eagerly here, while signal names stay
// Name references that the concrete evaluator reads from the witness.
func (e *Executor[F]) lower(sc *scope[F], a ast.Expr) (expr.Expr[F], error) {
	switch n := a.(type) {
	case *ast.IntLiteral:
		v, err := parseFieldLiteral[F](n.Value, e.one)
		if err != nil {
			return nil, err
		}

		return &expr.Constant[F]{Value: value.Field[F](v)}, nil

	case *ast.BoolLiteral:
		return &expr.Constant[F]{Value: value.Bool[F](n.Value)}, nil

	case *ast.NameRef:
		return e.resolveName(sc, n.Name)

	case *ast.FieldAccess:
		return e.resolveFieldAccess(sc, n)

	case *ast.IndexAccess:
		return e.resolveIndexAccess(sc, n)

	case *ast.ArrayLiteral:
		elems := make([]value.Value[F], 0, len(n.Elements))
		exprs := make([]expr.Expr[F], len(n.Elements))

		allConst := true

		for i, el := range n.Elements {
			v, err := e.lower(sc, el)
			if err != nil {
				return nil, err
			}

			exprs[i] = v

			if c, ok := v.(*expr.Constant[F]); ok {
				elems = append(elems, c.Value)
			} else {
				allConst = false
			}
		}

		if allConst {
			return &expr.Constant[F]{Value: value.Array[F](elems)}, nil
		}

		return nil, errs.New(errs.ParseSchema, "", "symbolic array literals are not supported")

	case *ast.PrefixExpr:
		arg, err := e.lower(sc, n.Arg)
		if err != nil {
			return nil, err
		}

		op, err := prefixOp(n.Op)
		if err != nil {
			return nil, err
		}

		return &expr.Unary[F]{Op: op, Arg: arg}, nil

	case *ast.InfixExpr:
		return e.lowerInfix(sc, n)

	case *ast.TernaryExpr:
		cond, err := e.lower(sc, n.Cond)
		if err != nil {
			return nil, err
		}

		then, err := e.lower(sc, n.Then)
		if err != nil {
			return nil, err
		}

		els, err := e.lower(sc, n.Else)
		if err != nil {
			return nil, err
		}

		return &expr.Select[F]{Cond: cond, Then: then, Else: els}, nil

	case *ast.CallExpr:
		return e.lowerCall(sc, n)

	default:
		return nil, errs.New(errs.ParseSchema, "", "unrecognised expression node %T", a)
	}
}

func (e *Executor[F]) lowerInfix(sc *scope[F], n *ast.InfixExpr) (expr.Expr[F], error) {
	l, err := e.lower(sc, n.L)
	if err != nil {
		return nil, err
	}

	r, err := e.lower(sc, n.R)
	if err != nil {
		return nil, err
	}

	if op, ok := binOpOf(n.Op); ok {
		return &expr.Binary[F]{Op: op, L: l, R: r}, nil
	}

	if op, ok := cmpOpOf(n.Op); ok {
		return &expr.Compare[F]{Op: op, L: l, R: r}, nil
	}

	if op, ok := boolOpOf(n.Op); ok {
		return &expr.BoolBinary[F]{Op: op, L: l, R: r}, nil
	}

	return nil, errs.New(errs.ParseSchema, "", "unrecognised infix operator %q", n.Op)
}

func (e *Executor[F]) resolveName(sc *scope[F], name string) (expr.Expr[F], error) {
	qn := qualify(sc.owner, name)

	// Signals stay Name references so that statements and constraints
	// read the witness value assigned to them; only variables and
	// parameters are substituted.
	for _, s := range sc.trace.Signals {
		if s == qn {
			return &expr.NameExpr[F]{Name: qn}, nil
		}
	}

	if v, ok := sc.bindings[qn]; ok {
		return v, nil
	}

	// Unbound plain name: treat as a free symbolic reference (e.g. an
	// as-yet-unassigned input signal); the concrete evaluator will
	// resolve it via the supplied input assignment.
	return &expr.NameExpr[F]{Name: qn}, nil
}

func (e *Executor[F]) resolveFieldAccess(sc *scope[F], n *ast.FieldAccess) (expr.Expr[F], error) {
	owner, ok := n.Owner.(*ast.NameRef)
	if !ok {
		return nil, errs.New(errs.ParseSchema, "", "component field access owner must be a plain name")
	}

	comp, ok := sc.components[owner.Name]
	if !ok {
		return nil, errs.New(errs.UndeclaredSignal, owner.Name, "undeclared component")
	}

	if err := e.ensureComponentScope(sc, comp); err != nil {
		return nil, err
	}

	if n.Field == "out" || isOutputField(comp, n.Field) {
		if err := e.ensureComponentExecuted(sc, comp); err != nil {
			return nil, err
		}
	}

	qn := qualify(comp.scope.owner, n.Field)
	if v, ok := comp.scope.bindings[qn]; ok {
		return v, nil
	}

	return &expr.NameExpr[F]{Name: qn}, nil
}

func isOutputField[F field.Element[F]](comp *componentState[F], field string) bool {
	if comp.scope == nil {
		return false
	}

	for _, o := range comp.scope.trace.Outputs {
		if string(o) == string(qualify(comp.scope.owner, field)) {
			return true
		}
	}

	return false
}

// ensureComponentScope lazily allocates a sub-component's own scope
// and declares its signals/nested components, without running its
// body. Writes to a component's input wires (e.g. "d.in <-- ...")
// must reach a real scope before the component's body is ever
// executed, so this step is split out from ensureComponentExecuted
// and shared by both the write path (lowerLValue) and the read path
// (resolveFieldAccess/ensureComponentExecuted).
func (e *Executor[F]) ensureComponentScope(sc *scope[F], comp *componentState[F]) error {
	if comp.scope != nil {
		return nil
	}

	tmpl, ok := e.tmplByID[comp.decl.Template]
	if !ok {
		return errs.New(errs.UndeclaredSignal, comp.decl.Template, "undeclared template")
	}

	childOwner := string(qualify(sc.owner, comp.decl.Name))
	comp.scope = newScope[F](childOwner, sc.trace, sc.pathCond, sc.depth+1)

	if err := e.bindParams(comp.scope, tmpl.Params, comp.decl.Args); err != nil {
		return err
	}

	if err := e.declareSignals(comp.scope, tmpl); err != nil {
		return err
	}

	e.declareComponents(comp.scope, tmpl)

	return nil
}

// ensureComponentExecuted runs a sub-component's body on first access,
// per spec §4.3's "executed lazily at first read of any c.out", and
// detects wiring cycles via the wiringStack that the child shares with
// its parent.
func (e *Executor[F]) ensureComponentExecuted(sc *scope[F], comp *componentState[F]) error {
	if comp.started {
		return nil
	}

	if err := e.ensureComponentScope(sc, comp); err != nil {
		return err
	}

	tmpl, ok := e.tmplByID[comp.decl.Template]
	if !ok {
		return errs.New(errs.UndeclaredSignal, comp.decl.Template, "undeclared template")
	}

	// A wiring cycle is the same template, with the same parameter
	// values, being expanded again further down its own expansion chain.
	key := comp.decl.Template
	for _, p := range tmpl.Params {
		key += "," + fmt.Sprint(comp.scope.bindings[qualify(comp.scope.owner, p)])
	}

	if sc.wiringStack[key] {
		return errs.New(errs.WiringCycle, comp.decl.Name, "component wiring cycle detected")
	}

	sc.wiringStack[key] = true
	defer delete(sc.wiringStack, key)

	comp.started = true
	comp.scope.wiringStack = sc.wiringStack

	return e.execBlock(comp.scope, tmpl.Body)
}

func (e *Executor[F]) resolveIndexAccess(sc *scope[F], n *ast.IndexAccess) (expr.Expr[F], error) {
	arr, err := e.lower(sc, n.Array)
	if err != nil {
		return nil, err
	}

	idx, err := e.lower(sc, n.Index)
	if err != nil {
		return nil, err
	}

	norm := expr.Normalise[F](idx, e.one)
	if c, ok := norm.(*expr.Constant[F]); ok {
		if arrC, ok := arr.(*expr.Constant[F]); ok {
			i := c.Value.AsField(e.one).BigInt().Int64()
			elems := arrC.Value.Elements()

			if i < 0 || i >= int64(len(elems)) {
				return nil, errs.New(errs.CompileTimeOOB, "", "constant index %d out of bounds for length %d", i, len(elems))
			}

			return &expr.Constant[F]{Value: elems[i]}, nil
		}
	}

	// Symbolic index: kept as an Index node over the lowered array; the
	// concrete evaluator resolves it and reports errs.DynamicOOB when it
	// is out of range. No Select chain over the lanes is built.
	return &expr.Index[F]{Array: arr, Indices: []expr.Expr[F]{idx}}, nil
}

func (e *Executor[F]) lowerCall(sc *scope[F], n *ast.CallExpr) (expr.Expr[F], error) {
	fn, ok := e.fnByID[n.Callee]
	if !ok {
		return nil, errs.New(errs.UndeclaredSignal, n.Callee, "undeclared function")
	}

	if sc.depth+1 > e.callDepthLimit() {
		return nil, errs.New(errs.UnboundedRecursion, n.Callee, "function call depth exceeded %d", e.callDepthLimit())
	}

	args := make([]expr.Expr[F], len(n.Args))

	for i, a := range n.Args {
		v, err := e.lower(sc, a)
		if err != nil {
			return nil, err
		}

		args[i] = v
	}

	if len(fn.Params) != len(args) {
		return nil, errs.New(errs.ParseSchema, "", "function %s parameter count mismatch", fn.Name)
	}

	callOwner := fmt.Sprintf("%s$%s#%d", sc.owner, fn.Name, sc.depth+1)
	fnScope := newScope[F](callOwner, sc.trace, sc.pathCond, sc.depth+1)

	for i, p := range fn.Params {
		fnScope.bindings[qualify(fnScope.owner, p)] = args[i]
	}

	ret, err := e.execFunctionBody(fnScope, fn.Body)
	if err != nil {
		return nil, err
	}

	if ret == nil {
		return nil, errs.New(errs.ParseSchema, "", "function %s did not return a value on every path", fn.Name)
	}

	return ret, nil
}

func (e *Executor[F]) callDepthLimit() int {
	if e.setting.MaxUnroll <= 0 {
		return 10_000
	}

	return e.setting.MaxUnroll
}

// execFunctionBody executes fn's statements and returns the value of
// the first Return reached along the taken path, or nil if control
// falls off the end without returning.
func (e *Executor[F]) execFunctionBody(sc *scope[F], body []ast.Stmt) (expr.Expr[F], error) {
	for _, s := range body {
		if ret, ok := s.(*ast.ReturnStmt); ok {
			return e.lower(sc, ret.Value)
		}

		if err := e.execStmt(sc, s); err != nil {
			return nil, err
		}
	}

	return nil, nil
}

func (e *Executor[F]) execBlock(sc *scope[F], body []ast.Stmt) error {
	for _, s := range body {
		if err := e.execStmt(sc, s); err != nil {
			return err
		}
	}

	return nil
}

func (e *Executor[F]) execStmt(sc *scope[F], s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.VarDeclStmt:
		return e.execVarDecl(sc, n)

	case *ast.AssignStmt:
		return e.execAssign(sc, n)

	case *ast.ConstraintStmt:
		l, err := e.lower(sc, n.L)
		if err != nil {
			return err
		}

		r, err := e.lower(sc, n.R)
		if err != nil {
			return err
		}

		sc.trace.SideConstraints = append(sc.trace.SideConstraints, &expr.Compare[F]{Op: expr.Eq, L: l, R: r})

		return nil

	case *ast.BlockStmt:
		return e.execBlock(sc, n.Body)

	case *ast.IfStmt:
		return e.execIf(sc, n)

	case *ast.ForStmt:
		return e.execFor(sc, n)

	case *ast.WhileStmt:
		return e.execWhile(sc, n)

	case *ast.ReturnStmt:
		// Return outside a function body is only meaningful within
		// execFunctionBody; reaching it here is a no-op so that
		// template bodies (which never return) can share execBlock.
		return nil

	default:
		return errs.New(errs.ParseSchema, "", "unrecognised statement node %T", s)
	}
}

func (e *Executor[F]) execVarDecl(sc *scope[F], n *ast.VarDeclStmt) error {
	if n.Init == nil {
		return nil
	}

	v, err := e.lower(sc, n.Init)
	if err != nil {
		return err
	}

	sc.bindings[qualify(sc.owner, n.Name)] = v

	return nil
}

func (e *Executor[F]) execAssign(sc *scope[F], n *ast.AssignStmt) error {
	val, err := e.lower(sc, n.Value)
	if err != nil {
		return err
	}

	target, err := e.lowerLValue(sc, n.Target)
	if err != nil {
		return err
	}

	if _, exists := sc.bindings[target]; exists && !isTrivialTrue[F](sc.pathCond) {
		log.Debugf("reassigning %s under a forked path condition", target)
	} else if _, exists := sc.bindings[target]; exists {
		return errs.New(errs.ParseSchema, string(target), "single-assignment violation: %s already assigned outside a fork", target)
	}

	sc.bindings[target] = val

	kind := Witness
	if n.Op == ast.ConstraintAndWitness {
		kind = WitnessAndConstraint
	}

	sc.trace.Statements = append(sc.trace.Statements, Statement[F]{
		Kind: kind, Target: target, Value: val, PathCnd: sc.pathCond,
	})

	if kind == WitnessAndConstraint {
		sc.trace.SideConstraints = append(sc.trace.SideConstraints,
			&expr.Compare[F]{Op: expr.Eq, L: &expr.NameExpr[F]{Name: target}, R: val})
	}

	return nil
}

func (e *Executor[F]) lowerLValue(sc *scope[F], l ast.LValue) (expr.Name, error) {
	if l.Owner != "" {
		comp, ok := sc.components[l.Owner]
		if !ok {
			return "", errs.New(errs.UndeclaredSignal, l.Owner, "undeclared component")
		}

		if err := e.ensureComponentScope(sc, comp); err != nil {
			return "", err
		}

		return qualify(comp.scope.owner, l.Field), nil
	}

	// Indexed array targets are flattened into one name per lane,
	// e.g. "a[2]", matching the owner-path convention of
	// original_source/src/executor/symbolic_value.rs's SymbolicName.
	name := l.Name

	for _, idx := range l.Indices {
		v, err := e.lower(sc, idx)
		if err != nil {
			return "", err
		}

		norm := expr.Normalise[F](v, e.one)

		c, ok := norm.(*expr.Constant[F])
		if !ok {
			return "", errs.New(errs.ParseSchema, l.Name, "assignment target index must be compile-time constant")
		}

		name = fmt.Sprintf("%s[%s]", name, c.Value.AsField(e.one).BigInt())
	}

	return qualify(sc.owner, name), nil
}

func (e *Executor[F]) execIf(sc *scope[F], n *ast.IfStmt) error {
	cond, err := e.lower(sc, n.Cond)
	if err != nil {
		return err
	}

	norm := expr.Normalise[F](cond, e.one)

	if c, ok := norm.(*expr.Constant[F]); ok {
		if c.Value.AsBool() {
			return e.execBlock(sc, n.Then)
		}

		return e.execBlock(sc, n.Else)
	}

	// Fork: execute both branches under their respective path
	// conditions, merging assignments to the same name with Select
	// (spec §4.3 "Conditionals").
	thenCnd := andCond[F](sc.pathCond, norm)
	elseCnd := andCond[F](sc.pathCond, &expr.Unary[F]{Op: expr.BoolNot, Arg: norm})

	thenScope := forkScope(sc, thenCnd)
	if err := e.execBlock(thenScope, n.Then); err != nil {
		return err
	}

	elseScope := forkScope(sc, elseCnd)
	if err := e.execBlock(elseScope, n.Else); err != nil {
		return err
	}

	return mergeForks[F](sc, norm, thenScope, elseScope)
}

func andCond[F field.Element[F]](a, b expr.Expr[F]) expr.Expr[F] {
	if isTrivialTrue[F](a) {
		return b
	}

	return &expr.BoolBinary[F]{Op: expr.And, L: a, R: b}
}

func forkScope[F field.Element[F]](sc *scope[F], pathCond expr.Expr[F]) *scope[F] {
	child := newScope[F](sc.owner, sc.trace, pathCond, sc.depth)
	for k, v := range sc.bindings {
		child.bindings[k] = v
	}

	for k, v := range sc.components {
		child.components[k] = v
	}

	return child
}

// mergeForks folds two forked scopes' bindings back into the parent,
// using Select(cond, thenVal, elseVal) for every name either branch
// touched (spec §4.3's Fork/merge transition).
func mergeForks[F field.Element[F]](sc *scope[F], cond expr.Expr[F], thenSc, elseSc *scope[F]) error {
	touched := make(map[expr.Name]bool)

	for k, v := range thenSc.bindings {
		if orig, ok := sc.bindings[k]; !ok || orig != v {
			touched[k] = true
		}
	}

	for k, v := range elseSc.bindings {
		if orig, ok := sc.bindings[k]; !ok || orig != v {
			touched[k] = true
		}
	}

	for name := range touched {
		thenVal, thenOK := thenSc.bindings[name]
		elseVal, elseOK := elseSc.bindings[name]

		if !thenOK {
			thenVal = sc.bindings[name]
		}

		if !elseOK {
			elseVal = sc.bindings[name]
		}

		if thenVal == nil || elseVal == nil {
			return errs.New(errs.ParseSchema, string(name), "signal assigned on only one branch of a non-decidable conditional")
		}

		sc.bindings[name] = &expr.Select[F]{Cond: cond, Then: thenVal, Else: elseVal}
	}

	for k, v := range thenSc.components {
		sc.components[k] = v
	}

	for k, v := range elseSc.components {
		if _, ok := sc.components[k]; !ok {
			sc.components[k] = v
		}
	}

	return nil
}

func (e *Executor[F]) execFor(sc *scope[F], n *ast.ForStmt) error {
	if n.Init != nil {
		if err := e.execStmt(sc, n.Init); err != nil {
			return err
		}
	}

	for iter := 0; ; iter++ {
		if iter >= e.callDepthLimit() {
			return errs.New(errs.NonDecidableLoop, "", "loop exceeded the unroll bound of %d iterations", e.callDepthLimit())
		}

		cond, err := e.lower(sc, n.Cond)
		if err != nil {
			return err
		}

		norm := expr.Normalise[F](cond, e.one)

		c, ok := norm.(*expr.Constant[F])
		if !ok {
			return errs.New(errs.NonDecidableLoop, "", "loop condition is not compile-time decidable")
		}

		if !c.Value.AsBool() {
			break
		}

		if err := e.execBlock(sc, n.Body); err != nil {
			return err
		}

		if n.Post != nil {
			if err := e.execStmt(sc, n.Post); err != nil {
				return err
			}
		}
	}

	return nil
}

func (e *Executor[F]) execWhile(sc *scope[F], n *ast.WhileStmt) error {
	for iter := 0; ; iter++ {
		if iter >= e.callDepthLimit() {
			return errs.New(errs.NonDecidableLoop, "", "loop exceeded the unroll bound of %d iterations", e.callDepthLimit())
		}

		cond, err := e.lower(sc, n.Cond)
		if err != nil {
			return err
		}

		norm := expr.Normalise[F](cond, e.one)

		c, ok := norm.(*expr.Constant[F])
		if !ok {
			return errs.New(errs.NonDecidableLoop, "", "loop condition is not compile-time decidable")
		}

		if !c.Value.AsBool() {
			break
		}

		if err := e.execBlock(sc, n.Body); err != nil {
			return err
		}
	}

	return nil
}

func parseFieldLiteral[F field.Element[F]](s string, one F) (F, error) {
	var zero F

	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return zero, errs.New(errs.ParseSchema, s, "malformed integer literal")
	}

	return one.SetBigInt(v), nil
}

func prefixOp(op string) (expr.UnaryOp, error) {
	switch op {
	case "-":
		return expr.Neg, nil
	case "~":
		return expr.BitNot, nil
	case "!":
		return expr.BoolNot, nil
	default:
		return 0, errs.New(errs.ParseSchema, "", "unrecognised prefix operator %q", op)
	}
}

func binOpOf(op string) (expr.BinaryOp, bool) {
	switch op {
	case "+":
		return expr.Add, true
	case "-":
		return expr.Sub, true
	case "*":
		return expr.Mul, true
	case "/":
		return expr.Div, true
	case "\\":
		return expr.IntDiv, true
	case "%":
		return expr.Mod, true
	case "**":
		return expr.Pow, true
	case "&":
		return expr.BitAnd, true
	case "|":
		return expr.BitOr, true
	case "^":
		return expr.BitXor, true
	case "<<":
		return expr.ShL, true
	case ">>":
		return expr.ShR, true
	default:
		return 0, false
	}
}

func cmpOpOf(op string) (expr.CompareOp, bool) {
	switch op {
	case "==":
		return expr.Eq, true
	case "!=":
		return expr.NEq, true
	case "<":
		return expr.Lt, true
	case "<=":
		return expr.Le, true
	case ">":
		return expr.Gt, true
	case ">=":
		return expr.Ge, true
	default:
		return 0, false
	}
}

func boolOpOf(op string) (expr.BoolOp, bool) {
	switch op {
	case "&&":
		return expr.And, true
	case "||":
		return expr.Or, true
	default:
		return 0, false
	}
}

