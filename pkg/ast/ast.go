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

// Package ast defines the surface-language tree that pkg/exec consumes
// as the input to symbolic execution (spec §4.3 "Input: an AST for a
// main template with actual template parameters"). This package has no
// parser of its own -- it is the contract a front-end producing this
// tree must satisfy, mirroring the teacher's pkg/corset/ast.go +
// expression.go split between declaration shapes and a common
// expression interface.
package ast

// Program is a parsed circuit source: every template and function
// declaration, plus the name of the main template to instantiate
// (spec §4.3).
type Program struct {
	Templates []*Template
	Functions []*Function
	Main      *MainDecl
}

// MainDecl names the template to instantiate as the analysis root and
// the concrete actual parameters it is instantiated with.
type MainDecl struct {
	Template string
	Args     []Expr
}

// Template declares a reusable component: formal template parameters
// (compile-time constants, e.g. array widths), a signal interface, and
// a statement body.
type Template struct {
	Name       string
	Params     []string
	Inputs     []SignalDecl
	Outputs    []SignalDecl
	Signals    []SignalDecl
	Components []ComponentDecl
	Body       []Stmt
}

// Function declares a pure, value-returning computation. Functions may
// recurse; the executor caps the call depth at its Setting.MaxUnroll
// (errs.UnboundedRecursion) and does not check that the parameters
// decrease.
type Function struct {
	Name   string
	Params []string
	Body   []Stmt
}

// SignalKind distinguishes a template's input/output/intermediate
// signals.
type SignalKind uint8

// Signal kinds.
const (
	InputSignal SignalKind = iota
	OutputSignal
	IntermediateSignal
)

// SignalDecl declares one signal (scalar or array-shaped).
type SignalDecl struct {
	Name string
	Kind SignalKind
	// Dims holds the declared array dimensions, each an Expr evaluable
	// at template-instantiation time (i.e. over template parameters
	// and constants only); a scalar signal has no Dims.
	Dims []Expr
}

// ComponentDecl declares a sub-component instance `component c =
// T(args)` (spec §4.3 "Component expansion").
type ComponentDecl struct {
	Name     string
	Template string
	Args     []Expr
	// Dims is non-empty for an array of components, e.g. `component
	// c[4] = T()`.
	Dims []Expr
}

// AssignOp distinguishes the surface language's two assignment
// operators (spec §4.3 "Assignment kinds"): WitnessOnly populates the
// trace but emits no verifier constraint; ConstraintAndWitness emits
// both a trace assignment and a side constraint. The executor must
// keep this distinction visible in its output, since divergence
// between the two is the primary bug class this analysis looks for.
type AssignOp uint8

// Assignment operators.
const (
	// WitnessOnly is the surface "<--" operator.
	WitnessOnly AssignOp = iota
	// ConstraintAndWitness is the surface "<==" operator.
	ConstraintAndWitness
)

// Stmt is the common interface for every statement kind.
type Stmt interface {
	stmtNode()
}

// AssignStmt assigns the evaluated RHS to a (possibly array-indexed,
// possibly component-dotted) LHS name.
type AssignStmt struct {
	Op      AssignOp
	Target  LValue
	Value   Expr
	PathLoc SourceLoc
}

func (*AssignStmt) stmtNode() {}

// ConstraintStmt asserts `L === R` (an equality constraint with no
// corresponding trace assignment -- the surface `===` operator).
type ConstraintStmt struct {
	L, R Expr
}

func (*ConstraintStmt) stmtNode() {}

// IfStmt is a conditional; Else is nil when there is no else-branch.
// The executor decides at symbolic-execution time whether Cond is
// compile-time decidable (spec §4.3 "Conditionals").
type IfStmt struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) stmtNode() {}

// ForStmt is a C-style bounded loop: `for (Init; Cond; Post) Body`.
// The executor unrolls it only while Cond remains compile-time
// decidable at every iteration (spec §4.3 "Loops").
type ForStmt struct {
	Init Stmt
	Cond Expr
	Post Stmt
	Body []Stmt
}

func (*ForStmt) stmtNode() {}

// WhileStmt is a condition-first loop, subject to the same
// decidability requirement as ForStmt.
type WhileStmt struct {
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode() {}

// BlockStmt groups statements without introducing a new signal scope
// (Circom has no block-local signal declarations).
type BlockStmt struct {
	Body []Stmt
}

func (*BlockStmt) stmtNode() {}

// ReturnStmt returns a value from a Function body.
type ReturnStmt struct {
	Value Expr
}

func (*ReturnStmt) stmtNode() {}

// VarDeclStmt declares a local (non-signal) variable used for
// intermediate computation within a function or template body.
type VarDeclStmt struct {
	Name string
	Dims []Expr
	Init Expr
}

func (*VarDeclStmt) stmtNode() {}

// SourceLoc is an optional source-position tag carried by statements
// for diagnostics; a zero value means "unknown location".
type SourceLoc struct {
	Line, Col int
}

// LValue is the target of an AssignStmt or VarDeclStmt: a plain name,
// an array element, or a component's dotted field (or any combination,
// e.g. `c.out[2]`).
type LValue struct {
	Name    string
	Indices []Expr
	// Owner is non-empty for a component field access, e.g. "c" in
	// `c.out[2] = ...`; Field is the accessed field name ("out").
	Owner string
	Field string
}

// Expr is the surface expression tree, distinct from pkg/expr.Expr:
// this tree still carries unresolved names, prefix/infix operators and
// component/array accesses exactly as written, prior to the symbolic
// executor binding them to a field backend and owner-qualified names.
type Expr interface {
	exprNode()
}

// IntLiteral is a decimal integer literal.
type IntLiteral struct{ Value string }

func (*IntLiteral) exprNode() {}

// BoolLiteral is a literal true/false.
type BoolLiteral struct{ Value bool }

func (*BoolLiteral) exprNode() {}

// NameRef references a plain identifier: a signal, local variable,
// function parameter or template parameter.
type NameRef struct{ Name string }

func (*NameRef) exprNode() {}

// FieldAccess is a dotted component field access, e.g. `c.out`.
type FieldAccess struct {
	Owner Expr
	Field string
}

func (*FieldAccess) exprNode() {}

// IndexAccess is an array index, e.g. `a[i]`; chained for
// multi-dimensional arrays (`a[i][j]` is IndexAccess{IndexAccess{a,i}, j}).
type IndexAccess struct {
	Array Expr
	Index Expr
}

func (*IndexAccess) exprNode() {}

// ArrayLiteral is an array literal `[e0, e1, ...]`.
type ArrayLiteral struct{ Elements []Expr }

func (*ArrayLiteral) exprNode() {}

// PrefixExpr applies a prefix (unary) operator: `-e`, `!e`, `~e`.
type PrefixExpr struct {
	Op  string
	Arg Expr
}

func (*PrefixExpr) exprNode() {}

// InfixExpr applies an infix (binary) operator, covering arithmetic,
// comparison and boolean connectives uniformly at the surface level;
// pkg/exec classifies Op into pkg/expr's Binary/Compare/BoolBinary
// kinds once the operand field type is known.
type InfixExpr struct {
	Op   string
	L, R Expr
}

func (*InfixExpr) exprNode() {}

// TernaryExpr is the surface `cond ? then : else` expression.
type TernaryExpr struct {
	Cond, Then, Else Expr
}

func (*TernaryExpr) exprNode() {}

// CallExpr is a function call or component instantiation argument
// list, e.g. `f(a, b)`.
type CallExpr struct {
	Callee string
	Args   []Expr
}

func (*CallExpr) exprNode() {}
