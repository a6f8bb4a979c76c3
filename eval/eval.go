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

// Package eval evaluates linked rules against messages by walking the syntax tree.
//
// Evaluation never fails as a whole. An error raised by a function or an
// operator is recorded in the Context and the failing expression yields null.
// A condition that recorded an error is false; a statement that recorded an
// error ends its rule.
package eval

import (
	"errors"
	"fmt"

	"github.com/rulego/rulepipe/ast"
)

var errUnlinked = errors.New("function call is not linked")

// Executable is a rule ready to run: either the interpreted syntax tree or
// its compiled form.
type Executable interface {
	Name() string
	// Condition evaluates the when clause.
	Condition(ctx *Context) bool
	// Execute runs the then statements in order.
	Execute(ctx *Context)
}

// Interpreted runs a linked rule by walking its syntax tree.
type Interpreted struct {
	Rule *ast.Rule
}

var _ Executable = (*Interpreted)(nil)

func NewInterpreted(rule *ast.Rule) *Interpreted {
	return &Interpreted{Rule: rule}
}

func (r *Interpreted) Name() string {
	return r.Rule.Name
}

func (r *Interpreted) Condition(ctx *Context) bool {
	return Condition(r.Rule, ctx)
}

func (r *Interpreted) Execute(ctx *Context) {
	Execute(r.Rule, ctx)
}

// Condition evaluates the when clause of rule. A non-boolean result or any
// error recorded during evaluation makes it false.
func Condition(rule *ast.Rule, ctx *Context) bool {
	before := ctx.ErrorCount()
	v := Evaluate(rule.When, ctx)
	if ctx.ErrorCount() > before {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Execute runs the statements of rule. It stops after a statement that
// recorded an error or dropped the message.
func Execute(rule *ast.Rule, ctx *Context) {
	for _, stmt := range rule.Then {
		before := ctx.ErrorCount()
		exec(stmt, ctx)
		if ctx.ErrorCount() > before || ctx.Message().Dropped() {
			return
		}
	}
}

func exec(stmt ast.Stmt, ctx *Context) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		ctx.SetVar(s.Name, Evaluate(s.Value, ctx))
	case *ast.ExprStmt:
		Evaluate(s.Expr, ctx)
	default:
		ctx.Fail(stmt.Pos(), "", fmt.Errorf("unsupported statement %T", stmt))
	}
}

// Evaluate returns the value of e. Errors are recorded in ctx and yield null.
func Evaluate(e ast.Expr, ctx *Context) interface{} {
	switch n := e.(type) {
	case *ast.Literal:
		return n.Value
	case *ast.FieldRef:
		v, _ := ctx.Message().Field(n.Name)
		return v
	case *ast.VarRef:
		v, _ := ctx.Var(n.Name)
		return v
	case *ast.FieldAccess:
		return Access(Evaluate(n.Target, ctx), n.Name)
	case *ast.FuncCall:
		return call(n, ctx)
	case *ast.Unary:
		return unary(n, ctx)
	case *ast.Binary:
		return binary(n, ctx)
	default:
		ctx.Fail(e.Pos(), "", fmt.Errorf("unsupported expression %T", e))
		return nil
	}
}

func call(n *ast.FuncCall, ctx *Context) interface{} {
	fn := ctx.Table().At(n.Handle)
	if fn == nil {
		ctx.Fail(n.Position, n.Name, errUnlinked)
		return nil
	}
	values := make([]interface{}, len(n.Args))
	for i, arg := range n.Args {
		values[i] = Evaluate(arg.Value, ctx)
	}
	args, err := Bind(fn.Descriptor(), values, n.Slots)
	if err != nil {
		ctx.Fail(n.Position, n.Name, err)
		return nil
	}
	v, err := Invoke(ctx, fn, args)
	if err != nil {
		ctx.Fail(n.Position, n.Name, err)
		return nil
	}
	return v
}

func unary(n *ast.Unary, ctx *Context) interface{} {
	v := Evaluate(n.Operand, ctx)
	var (
		out interface{}
		err error
	)
	switch n.Op {
	case ast.OpNot:
		out, err = Not(v)
	case ast.OpNeg:
		out, err = Negate(v)
	default:
		err = fmt.Errorf("unknown operator %s", n.Op)
	}
	if err != nil {
		ctx.Fail(n.Position, "", err)
		return nil
	}
	return out
}

func binary(n *ast.Binary, ctx *Context) interface{} {
	switch {
	case n.Op.IsLogical():
		return logical(n, ctx)
	case n.Op.IsComparison():
		b, err := Compare(n.Op, Evaluate(n.Left, ctx), Evaluate(n.Right, ctx))
		if err != nil {
			ctx.Fail(n.Position, "", err)
			return nil
		}
		return b
	case n.Op.IsArithmetic():
		v, err := Arithmetic(n.Op, Evaluate(n.Left, ctx), Evaluate(n.Right, ctx))
		if err != nil {
			ctx.Fail(n.Position, "", err)
			return nil
		}
		return v
	default:
		ctx.Fail(n.Position, "", fmt.Errorf("unknown operator %s", n.Op))
		return nil
	}
}

func logical(n *ast.Binary, ctx *Context) interface{} {
	left, err := Truthy(Evaluate(n.Left, ctx))
	if err != nil {
		ctx.Fail(n.Left.Pos(), "", fmt.Errorf("%s: %w", n.Op, err))
		return nil
	}
	if n.Op == ast.OpAnd && !left {
		return false
	}
	if n.Op == ast.OpOr && left {
		return true
	}
	right, err := Truthy(Evaluate(n.Right, ctx))
	if err != nil {
		ctx.Fail(n.Right.Pos(), "", fmt.Errorf("%s: %w", n.Op, err))
		return nil
	}
	return right
}
