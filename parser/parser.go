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

// Package parser turns rule and pipeline source text into syntax trees.
//
// Rules:
//
//	rule "<name>"
//	when <expr>
//	then
//	    <stmt>;
//	end
//
// Pipelines:
//
//	pipeline "<name>"
//	stage <n> match all|either
//	    rule "<name>"[, "<name>"];
//	end
//
// Operator precedence, lowest to highest: or, and, not, comparison,
// additive, multiplicative, unary minus, call and field access.
// Function names are not resolved here; that is the job of the linker.
package parser

import (
	"fmt"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
)

// ParseRule parses the source of a single rule.
func ParseRule(src string) (*ast.Rule, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	r, err := p.rule()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParsePipeline parses the source of a single pipeline.
func ParsePipeline(src string) (*ast.Pipeline, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	pl, err := p.pipeline()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return pl, nil
}

// ParseExpr parses a standalone expression.
func ParseExpr(src string) (ast.Expr, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

type parser struct {
	toks []token
	i    int
}

func newParser(src string) (*parser, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	return &parser{toks: toks}, nil
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) peekAt(n int) token {
	if p.i+n < len(p.toks) {
		return p.toks[p.i+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...interface{}) error {
	return &types.ParseError{Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) isWord(w string) bool {
	t := p.peek()
	return t.kind == tokWord && t.text == w
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) acceptWord(w string) bool {
	if p.isWord(w) {
		p.next()
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectWord(w string) (token, error) {
	if !p.isWord(w) {
		return token{}, p.errorf(p.peek(), "expected %q, found %s", w, p.peek())
	}
	return p.next(), nil
}

func (p *parser) expectPunct(s string) (token, error) {
	if !p.isPunct(s) {
		return token{}, p.errorf(p.peek(), "expected %q, found %s", s, p.peek())
	}
	return p.next(), nil
}

func (p *parser) expectString(what string) (string, error) {
	t := p.peek()
	if t.kind != tokString {
		return "", p.errorf(t, "expected %s as string literal, found %s", what, t)
	}
	p.next()
	return t.text, nil
}

func (p *parser) expectEOF() error {
	if t := p.peek(); t.kind != tokEOF {
		return p.errorf(t, "unexpected %s after end", t)
	}
	return nil
}

// ident accepts a bare non-reserved word or a quoted identifier.
func (p *parser) ident(what string) (token, error) {
	t := p.peek()
	switch {
	case t.kind == tokQuotedIdent:
	case t.kind == tokWord && !ast.Reserved[t.text]:
	default:
		return token{}, p.errorf(t, "expected %s, found %s", what, t)
	}
	return p.next(), nil
}

// name accepts any word, reserved or not, or a quoted identifier. Used after '.'.
func (p *parser) name(what string) (token, error) {
	t := p.peek()
	if t.kind != tokWord && t.kind != tokQuotedIdent {
		return token{}, p.errorf(t, "expected %s, found %s", what, t)
	}
	return p.next(), nil
}

func (p *parser) rule() (*ast.Rule, error) {
	start, err := p.expectWord("rule")
	if err != nil {
		return nil, err
	}
	name, err := p.expectString("rule name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectWord("when"); err != nil {
		return nil, err
	}
	when, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectWord("then"); err != nil {
		return nil, err
	}
	r := &ast.Rule{Position: start.pos, Name: name, When: when}
	for {
		for p.acceptPunct(";") {
		}
		if p.acceptWord("end") {
			return r, nil
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		r.Then = append(r.Then, s)
		if !p.isPunct(";") && !p.isWord("end") {
			return nil, p.errorf(p.peek(), "expected \";\" or \"end\" after statement, found %s", p.peek())
		}
	}
}

func (p *parser) stmt() (ast.Stmt, error) {
	t := p.peek()
	if p.acceptWord("let") {
		name, err := p.ident("variable name")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("="); err != nil {
			return nil, err
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.LetStmt{Position: t.pos, Name: name.text, Value: value}, nil
	}
	e, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, ok := e.(*ast.FuncCall); !ok {
		return nil, p.errorf(t, "statement must be a function call or let")
	}
	return &ast.ExprStmt{Position: t.pos, Expr: e}, nil
}

func (p *parser) pipeline() (*ast.Pipeline, error) {
	start, err := p.expectWord("pipeline")
	if err != nil {
		return nil, err
	}
	name, err := p.expectString("pipeline name")
	if err != nil {
		return nil, err
	}
	pl := &ast.Pipeline{Position: start.pos, Name: name}
	for {
		if p.acceptWord("end") {
			return pl, nil
		}
		if !p.isWord("stage") {
			return nil, p.errorf(p.peek(), "expected \"stage\" or \"end\", found %s", p.peek())
		}
		st, err := p.stage()
		if err != nil {
			return nil, err
		}
		pl.Stages = append(pl.Stages, st)
	}
}

func (p *parser) stage() (ast.Stage, error) {
	start := p.next()
	st := ast.Stage{Position: start.pos}
	negative := p.acceptPunct("-")
	num := p.peek()
	if num.kind != tokInt {
		return st, p.errorf(num, "expected stage number, found %s", num)
	}
	p.next()
	if num.ival > int64(maxStage) {
		return st, p.errorf(num, "stage number %s out of range", num.text)
	}
	st.Number = int(num.ival)
	if negative {
		st.Number = -st.Number
	}
	if _, err := p.expectWord("match"); err != nil {
		return st, err
	}
	switch {
	case p.acceptWord("all"):
		st.Match = ast.MatchAll
	case p.acceptWord("either"):
		st.Match = ast.MatchEither
	default:
		return st, p.errorf(p.peek(), "expected \"all\" or \"either\", found %s", p.peek())
	}
	for p.acceptWord("rule") {
		for {
			name, err := p.expectString("rule name")
			if err != nil {
				return st, err
			}
			st.Rules = append(st.Rules, name)
			if !p.acceptPunct(",") {
				break
			}
		}
		p.acceptPunct(";")
	}
	return st, nil
}

const maxStage = 1<<31 - 1

func (p *parser) expr() (ast.Expr, error) {
	return p.or()
}

func (p *parser) or() (ast.Expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !(p.isWord("or") || p.isPunct("||")) {
			return left, nil
		}
		p.next()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: t.pos, Op: ast.OpOr, Left: left, Right: right}
	}
}

func (p *parser) and() (ast.Expr, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !(p.isWord("and") || p.isPunct("&&")) {
			return left, nil
		}
		p.next()
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: t.pos, Op: ast.OpAnd, Left: left, Right: right}
	}
}

func (p *parser) not() (ast.Expr, error) {
	t := p.peek()
	if p.isWord("not") || p.isPunct("!") {
		p.next()
		operand, err := p.not()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Position: t.pos, Op: ast.OpNot, Operand: operand}, nil
	}
	return p.comparison()
}

var comparisonOps = map[string]ast.BinaryOp{
	"==": ast.OpEq,
	"!=": ast.OpNe,
	"<":  ast.OpLt,
	"<=": ast.OpLe,
	">":  ast.OpGt,
	">=": ast.OpGe,
}

func (p *parser) comparison() (ast.Expr, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	op, ok := comparisonOps[t.text]
	if t.kind != tokPunct || !ok {
		return left, nil
	}
	p.next()
	right, err := p.additive()
	if err != nil {
		return nil, err
	}
	if n := p.peek(); n.kind == tokPunct {
		if _, chained := comparisonOps[n.text]; chained {
			return nil, p.errorf(n, "comparison operators cannot be chained")
		}
	}
	return &ast.Binary{Position: t.pos, Op: op, Left: left, Right: right}, nil
}

func (p *parser) additive() (ast.Expr, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var op ast.BinaryOp
		switch {
		case p.isPunct("+"):
			op = ast.OpAdd
		case p.isPunct("-"):
			op = ast.OpSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: t.pos, Op: op, Left: left, Right: right}
	}
}

func (p *parser) multiplicative() (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		var op ast.BinaryOp
		switch {
		case p.isPunct("*"):
			op = ast.OpMul
		case p.isPunct("/"):
			op = ast.OpDiv
		case p.isPunct("%"):
			op = ast.OpMod
		default:
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Position: t.pos, Op: op, Left: left, Right: right}
	}
}

func (p *parser) unary() (ast.Expr, error) {
	t := p.peek()
	if p.acceptPunct("-") {
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Position: t.pos, Op: ast.OpNeg, Operand: operand}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (ast.Expr, error) {
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if !p.acceptPunct(".") {
			return e, nil
		}
		name, err := p.name("field name")
		if err != nil {
			return nil, err
		}
		e = &ast.FieldAccess{Position: t.pos, Target: e, Name: name.text}
	}
}

func (p *parser) primary() (ast.Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return &ast.Literal{Position: t.pos, Value: t.text}, nil
	case tokInt:
		p.next()
		return &ast.Literal{Position: t.pos, Value: t.ival}, nil
	case tokFloat:
		p.next()
		return &ast.Literal{Position: t.pos, Value: t.fval}, nil
	case tokMessage:
		p.next()
		if _, err := p.expectPunct("."); err != nil {
			return nil, err
		}
		name, err := p.name("field name")
		if err != nil {
			return nil, err
		}
		return &ast.FieldRef{Position: t.pos, Name: name.text}, nil
	case tokPunct:
		if t.text == "(" {
			p.next()
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	case tokWord:
		switch t.text {
		case "true":
			p.next()
			return &ast.Literal{Position: t.pos, Value: true}, nil
		case "false":
			p.next()
			return &ast.Literal{Position: t.pos, Value: false}, nil
		case "null":
			p.next()
			return &ast.Literal{Position: t.pos, Value: nil}, nil
		}
	}
	if t.kind == tokWord || t.kind == tokQuotedIdent {
		id, err := p.ident("expression")
		if err != nil {
			return nil, err
		}
		if p.isPunct("(") {
			return p.call(id)
		}
		return &ast.VarRef{Position: id.pos, Name: id.text}, nil
	}
	return nil, p.errorf(t, "unexpected %s, expected expression", t)
}

func (p *parser) call(name token) (ast.Expr, error) {
	p.next()
	c := &ast.FuncCall{Position: name.pos, Name: name.text, Handle: ast.Unlinked}
	if p.acceptPunct(")") {
		return c, nil
	}
	for {
		var arg ast.Arg
		if t := p.peek(); (t.kind == tokWord || t.kind == tokQuotedIdent) && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == ":" {
			id, err := p.ident("parameter name")
			if err != nil {
				return nil, err
			}
			p.next()
			arg.Name = id.text
		}
		value, err := p.expr()
		if err != nil {
			return nil, err
		}
		arg.Value = value
		c.Args = append(c.Args, arg)
		if p.acceptPunct(")") {
			return c, nil
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
	}
}
