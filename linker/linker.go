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

// Package linker resolves and validates parsed rules and pipelines.
//
// Linking a rule binds every function call to a handle of a function table and
// every argument to a parameter slot, and checks what can be checked before a
// message is seen: arity, argument types, side effects inside conditions and
// variable scoping. The input tree is left untouched; a linked copy is returned.
package linker

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
)

// LinkRule links rule against table. All problems found are returned joined,
// each as a *types.LinkError.
func LinkRule(rule *ast.Rule, table *types.FunctionTable) (*ast.Rule, error) {
	if rule == nil {
		return nil, errors.New("rule is nil")
	}
	l := &ruleLinker{
		table: table,
		rule:  rule.Name,
		scope: make(map[string]types.Type),
	}
	out := &ast.Rule{Position: rule.Position, Name: rule.Name}

	l.inCondition = true
	when, t := l.expr(rule.When)
	l.inCondition = false
	if t != types.TypeBoolean && t != types.TypeAny {
		l.errorf(rule.When.Pos(), "condition must be boolean, found %s", t)
	}
	out.When = when

	for _, stmt := range rule.Then {
		if s := l.stmt(stmt); s != nil {
			out.Then = append(out.Then, s)
		}
	}
	if len(l.errs) > 0 {
		return nil, errors.Join(l.errs...)
	}
	return out, nil
}

type ruleLinker struct {
	table       *types.FunctionTable
	rule        string
	scope       map[string]types.Type
	inCondition bool
	errs        []error
}

func (l *ruleLinker) errorf(pos types.Position, format string, args ...interface{}) {
	l.errs = append(l.errs, &types.LinkError{
		Kind: types.EntityRule,
		Name: l.rule,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	})
}

func (l *ruleLinker) stmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.LetStmt:
		value, t := l.expr(n.Value)
		if t == types.TypeVoid {
			l.errorf(n.Position, "variable %s is assigned a function without result", n.Name)
			t = types.TypeAny
		}
		// later statements see the binding, the value itself does not
		l.scope[n.Name] = t
		return &ast.LetStmt{Position: n.Position, Name: n.Name, Value: value}
	case *ast.ExprStmt:
		if _, ok := n.Expr.(*ast.FuncCall); !ok {
			l.errorf(n.Position, "statement must be a let binding or a function call")
			return nil
		}
		value, _ := l.expr(n.Expr)
		return &ast.ExprStmt{Position: n.Position, Expr: value}
	default:
		l.errorf(s.Pos(), "unsupported statement %T", s)
		return nil
	}
}

// expr returns the linked copy of e and its static type.
func (l *ruleLinker) expr(e ast.Expr) (ast.Expr, types.Type) {
	switch n := e.(type) {
	case *ast.Literal:
		return &ast.Literal{Position: n.Position, Value: n.Value}, types.TypeOf(n.Value)
	case *ast.FieldRef:
		return &ast.FieldRef{Position: n.Position, Name: n.Name}, types.TypeAny
	case *ast.VarRef:
		t, ok := l.scope[n.Name]
		if !ok {
			l.errorf(n.Position, "undeclared variable %s", n.Name)
			t = types.TypeAny
		}
		return &ast.VarRef{Position: n.Position, Name: n.Name}, t
	case *ast.FieldAccess:
		target, t := l.expr(n.Target)
		switch t {
		case types.TypeAny, types.TypeNull, types.TypeMap, types.TypeMessage:
		default:
			l.errorf(n.Position, "cannot access .%s on a value of type %s", n.Name, t)
		}
		return &ast.FieldAccess{Position: n.Position, Target: target, Name: n.Name}, types.TypeAny
	case *ast.FuncCall:
		return l.call(n)
	case *ast.Unary:
		return l.unary(n)
	case *ast.Binary:
		return l.binary(n)
	default:
		l.errorf(e.Pos(), "unsupported expression %T", e)
		return e, types.TypeAny
	}
}

func (l *ruleLinker) operand(e ast.Expr, op fmt.Stringer) (ast.Expr, types.Type) {
	out, t := l.expr(e)
	if t == types.TypeVoid {
		l.errorf(e.Pos(), "operand of %s has no value", op)
		t = types.TypeAny
	}
	return out, t
}

func (l *ruleLinker) unary(n *ast.Unary) (ast.Expr, types.Type) {
	operand, t := l.operand(n.Operand, n.Op)
	out := &ast.Unary{Position: n.Position, Op: n.Op, Operand: operand}
	switch n.Op {
	case ast.OpNot:
		if !isLogicalType(t) {
			l.errorf(n.Position, "not requires a boolean operand, found %s", t)
		}
		return out, types.TypeBoolean
	case ast.OpNeg:
		if t != types.TypeAny && !t.IsNumeric() {
			l.errorf(n.Position, "cannot negate a value of type %s", t)
			return out, types.TypeAny
		}
		return out, t
	default:
		l.errorf(n.Position, "unknown operator %s", n.Op)
		return out, types.TypeAny
	}
}

func (l *ruleLinker) binary(n *ast.Binary) (ast.Expr, types.Type) {
	left, lt := l.operand(n.Left, n.Op)
	right, rt := l.operand(n.Right, n.Op)
	out := &ast.Binary{Position: n.Position, Op: n.Op, Left: left, Right: right}
	switch {
	case n.Op.IsLogical():
		if !isLogicalType(lt) || !isLogicalType(rt) {
			l.errorf(n.Position, "%s requires boolean operands, found %s and %s", n.Op, lt, rt)
		}
		return out, types.TypeBoolean
	case n.Op.IsComparison():
		if n.Op != ast.OpEq && n.Op != ast.OpNe && !orderable(lt, rt) {
			l.errorf(n.Position, "cannot order %s and %s with %s", lt, rt, n.Op)
		}
		return out, types.TypeBoolean
	case n.Op.IsArithmetic():
		return out, l.arithmetic(n, lt, rt)
	default:
		l.errorf(n.Position, "unknown operator %s", n.Op)
		return out, types.TypeAny
	}
}

func (l *ruleLinker) arithmetic(n *ast.Binary, lt, rt types.Type) types.Type {
	if n.Op == ast.OpAdd && lt == types.TypeString && rt == types.TypeString {
		return types.TypeString
	}
	if n.Op == ast.OpAdd && (lt == types.TypeString || rt == types.TypeString) &&
		(lt == types.TypeAny || rt == types.TypeAny) {
		return types.TypeAny
	}
	for _, t := range []types.Type{lt, rt} {
		if t != types.TypeAny && !t.IsNumeric() {
			l.errorf(n.Position, "arithmetic %s on %s and %s", n.Op, lt, rt)
			return types.TypeAny
		}
	}
	switch {
	case lt == types.TypeLong && rt == types.TypeLong:
		return types.TypeLong
	case lt == types.TypeDouble || rt == types.TypeDouble:
		return types.TypeDouble
	default:
		return types.TypeAny
	}
}

func isLogicalType(t types.Type) bool {
	return t == types.TypeBoolean || t == types.TypeAny || t == types.TypeNull
}

// orderable reports whether < <= > >= may hold between values of the two static types.
func orderable(a, b types.Type) bool {
	if a == types.TypeAny || b == types.TypeAny || a == types.TypeNull || b == types.TypeNull {
		return true
	}
	if a.IsNumeric() && b.IsNumeric() {
		return true
	}
	return a == types.TypeString && b == types.TypeString
}

func (l *ruleLinker) call(n *ast.FuncCall) (ast.Expr, types.Type) {
	out := &ast.FuncCall{Position: n.Position, Name: n.Name, Handle: ast.Unlinked}
	argTypes := make([]types.Type, len(n.Args))
	for i, arg := range n.Args {
		value, t := l.expr(arg.Value)
		if t == types.TypeVoid {
			l.errorf(arg.Value.Pos(), "argument %d of %s() has no value", i+1, n.Name)
			t = types.TypeAny
		}
		out.Args = append(out.Args, ast.Arg{Name: arg.Name, Value: value})
		argTypes[i] = t
	}

	handle, ok := l.table.Lookup(n.Name)
	if !ok {
		l.errorf(n.Position, "unknown function %s", n.Name)
		return out, types.TypeAny
	}
	desc := l.table.At(handle).Descriptor()
	if l.inCondition && desc.IsMutating() {
		l.errorf(n.Position, "function %s() changes state and cannot be called in a condition", n.Name)
	}

	slots, ok := l.bind(n, desc)
	if !ok {
		return out, desc.ReturnType
	}
	for i, slot := range slots {
		p := desc.Params[slot]
		if !argTypes[i].AssignableTo(p.Type) {
			l.errorf(n.Args[i].Value.Pos(), "function %s() parameter %s expects %s, found %s",
				n.Name, p.Name, p.Type, argTypes[i])
			ok = false
			continue
		}
		if lit, isLit := out.Args[i].Value.(*ast.Literal); isLit && p.Transform != nil && lit.Value != nil {
			if _, err := p.Transform(lit.Value); err != nil {
				l.errorf(lit.Position, "function %s() parameter %s: %v", n.Name, p.Name, err)
				ok = false
			}
		}
	}
	if ok {
		out.Handle = handle
		out.Slots = slots
	}
	return out, desc.ReturnType
}

// bind assigns every argument of n to a parameter slot. Positional arguments
// fill parameters in order; named ones may follow them in any order.
func (l *ruleLinker) bind(n *ast.FuncCall, desc types.FunctionDescriptor) ([]int, bool) {
	ok := true
	slots := make([]int, len(n.Args))
	bound := make([]bool, len(desc.Params))
	named := false
	for i, arg := range n.Args {
		pos := arg.Value.Pos()
		if arg.Name == "" {
			if named {
				l.errorf(pos, "function %s(): positional argument after named arguments", n.Name)
				ok = false
				continue
			}
			if i >= len(desc.Params) {
				l.errorf(pos, "function %s() takes at most %d arguments, found %d", n.Name, len(desc.Params), len(n.Args))
				ok = false
				break
			}
			slots[i] = i
			bound[i] = true
			continue
		}
		named = true
		idx := desc.ParamIndex(arg.Name)
		if idx < 0 {
			l.errorf(pos, "function %s() has no parameter %s", n.Name, arg.Name)
			ok = false
			continue
		}
		if bound[idx] {
			l.errorf(pos, "function %s() parameter %s is bound twice", n.Name, arg.Name)
			ok = false
			continue
		}
		slots[i] = idx
		bound[idx] = true
	}
	for i, p := range desc.Params {
		if !bound[i] && !p.Optional {
			l.errorf(n.Position, "function %s() is missing required parameter %s", n.Name, p.Name)
			ok = false
		}
	}
	return slots, ok
}

// LinkPipeline checks p against the linked rules of the same snapshot and
// returns a copy with stages in ascending order.
func LinkPipeline(p *ast.Pipeline, rules map[string]*ast.Rule) (*ast.Pipeline, error) {
	if p == nil {
		return nil, errors.New("pipeline is nil")
	}
	var errs []error
	errorf := func(pos types.Position, format string, args ...interface{}) {
		errs = append(errs, &types.LinkError{
			Kind: types.EntityPipeline,
			Name: p.Name,
			Pos:  pos,
			Msg:  fmt.Sprintf(format, args...),
		})
	}

	out := &ast.Pipeline{Position: p.Position, Name: p.Name}
	seen := make(map[int]types.Position, len(p.Stages))
	for _, stage := range p.Stages {
		if first, ok := seen[stage.Number]; ok {
			errorf(stage.Position, "stage %d is already declared at line %s", stage.Number, first)
			continue
		}
		seen[stage.Number] = stage.Position
		for _, name := range stage.Rules {
			if _, ok := rules[name]; !ok {
				errorf(stage.Position, "stage %d references unknown rule %q", stage.Number, name)
			}
		}
		out.Stages = append(out.Stages, ast.Stage{
			Position: stage.Position,
			Number:   stage.Number,
			Match:    stage.Match,
			Rules:    append([]string(nil), stage.Rules...),
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	sort.SliceStable(out.Stages, func(i, j int) bool {
		return out.Stages[i].Number < out.Stages[j].Number
	})
	return out, nil
}
