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

// Package codegen compiles linked rules into trees of Go closures.
//
// A compiled Program behaves exactly like eval.Interpreted: the same
// evaluation order, the same recorded errors and the same side effects.
// It saves the per-node type switch and the function table lookup, and
// folds operators and call arguments whose operands are all literals.
package codegen

import (
	"fmt"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
	"github.com/rulego/rulepipe/eval"
)

type exprFunc func(ctx *eval.Context) interface{}

type stmtFunc func(ctx *eval.Context)

// Program is a compiled rule.
type Program struct {
	name string
	when exprFunc
	then []stmtFunc
}

var _ eval.Executable = (*Program)(nil)

// Compile compiles a linked rule. Calls are bound to the functions of table,
// which must be the table the rule was linked against.
func Compile(rule *ast.Rule, table *types.FunctionTable) (*Program, error) {
	if rule == nil {
		return nil, fmt.Errorf("rule is nil")
	}
	c := &compiler{table: table}
	p := &Program{name: rule.Name}
	var err error
	if p.when, err = c.expr(rule.When); err != nil {
		return nil, fmt.Errorf("compile rule %q: %w", rule.Name, err)
	}
	for _, s := range rule.Then {
		fn, err := c.stmt(s)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", rule.Name, err)
		}
		p.then = append(p.then, fn)
	}
	return p, nil
}

func (p *Program) Name() string {
	return p.name
}

func (p *Program) Condition(ctx *eval.Context) bool {
	before := ctx.ErrorCount()
	v := p.when(ctx)
	if ctx.ErrorCount() > before {
		return false
	}
	b, _ := v.(bool)
	return b
}

func (p *Program) Execute(ctx *eval.Context) {
	for _, fn := range p.then {
		before := ctx.ErrorCount()
		fn(ctx)
		if ctx.ErrorCount() > before || ctx.Message().Dropped() {
			return
		}
	}
}

type compiler struct {
	table *types.FunctionTable
}

func (c *compiler) stmt(s ast.Stmt) (stmtFunc, error) {
	switch n := s.(type) {
	case *ast.LetStmt:
		value, err := c.expr(n.Value)
		if err != nil {
			return nil, err
		}
		name := n.Name
		return func(ctx *eval.Context) {
			ctx.SetVar(name, value(ctx))
		}, nil
	case *ast.ExprStmt:
		value, err := c.expr(n.Expr)
		if err != nil {
			return nil, err
		}
		return func(ctx *eval.Context) {
			value(ctx)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported statement %T", s)
	}
}

func (c *compiler) expr(e ast.Expr) (exprFunc, error) {
	switch n := e.(type) {
	case *ast.Literal:
		return constant(n.Value), nil
	case *ast.FieldRef:
		name := n.Name
		return func(ctx *eval.Context) interface{} {
			v, _ := ctx.Message().Field(name)
			return v
		}, nil
	case *ast.VarRef:
		name := n.Name
		return func(ctx *eval.Context) interface{} {
			v, _ := ctx.Var(name)
			return v
		}, nil
	case *ast.FieldAccess:
		target, err := c.expr(n.Target)
		if err != nil {
			return nil, err
		}
		name := n.Name
		return func(ctx *eval.Context) interface{} {
			return eval.Access(target(ctx), name)
		}, nil
	case *ast.FuncCall:
		return c.call(n)
	case *ast.Unary:
		return c.unary(n)
	case *ast.Binary:
		return c.binary(n)
	default:
		return nil, fmt.Errorf("unsupported expression %T", e)
	}
}

func constant(v interface{}) exprFunc {
	return func(*eval.Context) interface{} {
		return v
	}
}

func literal(e ast.Expr) (interface{}, bool) {
	if l, ok := e.(*ast.Literal); ok {
		return l.Value, true
	}
	return nil, false
}

func (c *compiler) call(n *ast.FuncCall) (exprFunc, error) {
	fn := c.table.At(n.Handle)
	if fn == nil {
		return nil, fmt.Errorf("call of %s at %s is not linked", n.Name, n.Position)
	}
	desc := fn.Descriptor()
	pos, name, slots := n.Position, n.Name, n.Slots

	values := make([]interface{}, len(n.Args))
	allLiteral := true
	argFns := make([]exprFunc, len(n.Args))
	for i, arg := range n.Args {
		if v, ok := literal(arg.Value); ok {
			values[i] = v
		} else {
			allLiteral = false
		}
		f, err := c.expr(arg.Value)
		if err != nil {
			return nil, err
		}
		argFns[i] = f
	}

	if allLiteral {
		if bound, err := eval.Bind(desc, values, slots); err == nil {
			return func(ctx *eval.Context) interface{} {
				v, err := eval.Invoke(ctx, fn, bound)
				if err != nil {
					ctx.Fail(pos, name, err)
					return nil
				}
				return v
			}, nil
		}
	}

	return func(ctx *eval.Context) interface{} {
		values := make([]interface{}, len(argFns))
		for i, f := range argFns {
			values[i] = f(ctx)
		}
		args, err := eval.Bind(desc, values, slots)
		if err != nil {
			ctx.Fail(pos, name, err)
			return nil
		}
		v, err := eval.Invoke(ctx, fn, args)
		if err != nil {
			ctx.Fail(pos, name, err)
			return nil
		}
		return v
	}, nil
}

func (c *compiler) unary(n *ast.Unary) (exprFunc, error) {
	operand, err := c.expr(n.Operand)
	if err != nil {
		return nil, err
	}
	var op func(interface{}) (interface{}, error)
	switch n.Op {
	case ast.OpNot:
		op = eval.Not
	case ast.OpNeg:
		op = eval.Negate
	default:
		return nil, fmt.Errorf("unknown operator %s", n.Op)
	}
	if v, ok := literal(n.Operand); ok {
		if folded, err := op(v); err == nil {
			return constant(folded), nil
		}
	}
	pos := n.Position
	return func(ctx *eval.Context) interface{} {
		v, err := op(operand(ctx))
		if err != nil {
			ctx.Fail(pos, "", err)
			return nil
		}
		return v
	}, nil
}

func (c *compiler) binary(n *ast.Binary) (exprFunc, error) {
	left, err := c.expr(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := c.expr(n.Right)
	if err != nil {
		return nil, err
	}
	if n.Op.IsLogical() {
		return logical(n, left, right), nil
	}

	var apply func(a, b interface{}) (interface{}, error)
	switch {
	case n.Op.IsComparison():
		op := n.Op
		apply = func(a, b interface{}) (interface{}, error) {
			ok, err := eval.Compare(op, a, b)
			if err != nil {
				return nil, err
			}
			return ok, nil
		}
	case n.Op.IsArithmetic():
		op := n.Op
		apply = func(a, b interface{}) (interface{}, error) {
			return eval.Arithmetic(op, a, b)
		}
	default:
		return nil, fmt.Errorf("unknown operator %s", n.Op)
	}

	if lv, ok := literal(n.Left); ok {
		if rv, ok := literal(n.Right); ok {
			if folded, err := apply(lv, rv); err == nil {
				return constant(folded), nil
			}
		}
	}
	pos := n.Position
	return func(ctx *eval.Context) interface{} {
		v, err := apply(left(ctx), right(ctx))
		if err != nil {
			ctx.Fail(pos, "", err)
			return nil
		}
		return v
	}, nil
}

func logical(n *ast.Binary, left, right exprFunc) exprFunc {
	op := n.Op
	leftPos, rightPos := n.Left.Pos(), n.Right.Pos()
	shortCircuit := op == ast.OpOr
	return func(ctx *eval.Context) interface{} {
		l, err := eval.Truthy(left(ctx))
		if err != nil {
			ctx.Fail(leftPos, "", fmt.Errorf("%s: %w", op, err))
			return nil
		}
		if l == shortCircuit {
			return l
		}
		r, err := eval.Truthy(right(ctx))
		if err != nil {
			ctx.Fail(rightPos, "", fmt.Errorf("%s: %w", op, err))
			return nil
		}
		return r
	}
}
