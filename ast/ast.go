/*
 * Copyright 2024 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package ast declares the syntax tree of rules and pipelines.
//
// Expressions and statements are closed sets: only the types in this package
// implement Expr and Stmt. Trees are not modified after construction; the
// linker returns linked copies.
package ast

import (
	"github.com/rulego/rulepipe/api/types"
)

// Unlinked is the handle of a function call that has not been linked yet.
const Unlinked = -1

// Node is implemented by every syntax tree node.
type Node interface {
	Pos() types.Position
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Literal is a constant: string, int64, float64, bool or nil.
type Literal struct {
	Position types.Position
	Value    interface{}
}

// FieldRef reads a field of the message under evaluation: $message.name.
type FieldRef struct {
	Position types.Position
	Name     string
}

// VarRef reads a variable bound by let.
type VarRef struct {
	Position types.Position
	Name     string
}

// FieldAccess reads a key of a map or a field of a message value: target.name.
type FieldAccess struct {
	Position types.Position
	Target   Expr
	Name     string
}

// Arg is a call argument. Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Expr
}

// FuncCall calls a function by name.
//
// After linking, Handle indexes the function table of the snapshot and
// Slots[i] is the parameter position Args[i] is bound to.
type FuncCall struct {
	Position types.Position
	Name     string
	Args     []Arg
	Handle   int
	Slots    []int
}

// Linked reports whether the call was resolved by the linker.
func (c *FuncCall) Linked() bool {
	return c.Handle != Unlinked
}

// UnaryOp is a prefix operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	if op == OpNot {
		return "not"
	}
	return "-"
}

// Unary applies a prefix operator.
type Unary struct {
	Position types.Position
	Op       UnaryOp
	Operand  Expr
}

// BinaryOp is an infix operator.
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var binaryOpNames = [...]string{
	OpOr:  "or",
	OpAnd: "and",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return "?"
}

// IsComparison reports whether op is one of == != < <= > >=.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogical reports whether op is and/or.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// IsArithmetic reports whether op is one of + - * / %.
func (op BinaryOp) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

// Binary applies an infix operator.
type Binary struct {
	Position types.Position
	Op       BinaryOp
	Left     Expr
	Right    Expr
}

// LetStmt binds a variable for the rest of the rule.
type LetStmt struct {
	Position types.Position
	Name     string
	Value    Expr
}

// ExprStmt evaluates an expression, a function call, for its side effects.
type ExprStmt struct {
	Position types.Position
	Expr     Expr
}

func (n *Literal) Pos() types.Position     { return n.Position }
func (n *FieldRef) Pos() types.Position    { return n.Position }
func (n *VarRef) Pos() types.Position      { return n.Position }
func (n *FieldAccess) Pos() types.Position { return n.Position }
func (n *FuncCall) Pos() types.Position    { return n.Position }
func (n *Unary) Pos() types.Position       { return n.Position }
func (n *Binary) Pos() types.Position      { return n.Position }
func (n *LetStmt) Pos() types.Position     { return n.Position }
func (n *ExprStmt) Pos() types.Position    { return n.Position }

func (*Literal) exprNode()     {}
func (*FieldRef) exprNode()    {}
func (*VarRef) exprNode()      {}
func (*FieldAccess) exprNode() {}
func (*FuncCall) exprNode()    {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}

func (*LetStmt) stmtNode()  {}
func (*ExprStmt) stmtNode() {}

// Rule is a parsed rule: when When holds, run Then in order.
type Rule struct {
	Position types.Position
	Name     string
	When     Expr
	Then     []Stmt
}

func (r *Rule) Pos() types.Position { return r.Position }

// MatchPolicy decides when a stage lets its pipeline continue.
type MatchPolicy int

const (
	// MatchAll requires every rule condition of the stage to be true.
	MatchAll MatchPolicy = iota
	// MatchEither requires at least one rule condition of the stage to be true.
	MatchEither
)

func (m MatchPolicy) String() string {
	if m == MatchEither {
		return "either"
	}
	return "all"
}

// Stage is a numbered step of a pipeline.
type Stage struct {
	Position types.Position
	Number   int
	Match    MatchPolicy
	Rules    []string
}

// Pipeline is a parsed pipeline.
type Pipeline struct {
	Position types.Position
	Name     string
	Stages   []Stage
}

func (p *Pipeline) Pos() types.Position { return p.Position }
