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

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lit(v interface{}) *Literal { return &Literal{Value: v} }

func field(name string) *FieldRef { return &FieldRef{Name: name} }

func bin(op BinaryOp, l, r Expr) *Binary { return &Binary{Op: op, Left: l, Right: r} }

func TestFormatExprPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		expr   Expr
		expect string
	}{
		{"literals", bin(OpEq, lit(int64(1)), lit(1.0)), "1 == 1.0"},
		{"left assoc", bin(OpSub, bin(OpSub, lit(int64(1)), lit(int64(2))), lit(int64(3))), "1 - 2 - 3"},
		{"right nested", bin(OpSub, lit(int64(1)), bin(OpSub, lit(int64(2)), lit(int64(3)))), "1 - (2 - 3)"},
		{"mul over add", bin(OpMul, bin(OpAdd, lit(int64(1)), lit(int64(2))), lit(int64(3))), "(1 + 2) * 3"},
		{"and over or", bin(OpAnd, bin(OpOr, lit(true), lit(false)), lit(true)), "(true or false) and true"},
		{"not comparison", &Unary{Op: OpNot, Operand: bin(OpEq, field("a"), lit("x"))}, `not $message.a == "x"`},
		{"not or", &Unary{Op: OpNot, Operand: bin(OpOr, lit(true), lit(false))}, "not (true or false)"},
		{"negate sum", &Unary{Op: OpNeg, Operand: bin(OpAdd, lit(int64(1)), lit(int64(2)))}, "-(1 + 2)"},
		{"nested comparison", bin(OpEq, bin(OpLt, lit(int64(1)), lit(int64(2))), lit(true)), "(1 < 2) == true"},
		{"field access", &FieldAccess{Target: &VarRef{Name: "m"}, Name: "k"}, "m.k"},
		{"access on call", &FieldAccess{Target: &FuncCall{Name: "f"}, Name: "k"}, "f().k"},
		{"access on sum", &FieldAccess{Target: bin(OpAdd, lit("a"), lit("b")), Name: "k"}, `("a" + "b").k`},
		{"named args", &FuncCall{Name: "set_field", Args: []Arg{{Name: "field", Value: lit("a")}, {Name: "value", Value: lit(nil)}}}, `set_field(field: "a", value: null)`},
		{"quoted ident", field("host-name"), "$message.`host-name`"},
		{"reserved ident", field("end"), "$message.`end`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, FormatExpr(tt.expr))
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3.0", FormatValue(3.0))
	assert.Equal(t, "1e+21", FormatValue(1e21))
	assert.Equal(t, "0.25", FormatValue(0.25))
	assert.Equal(t, `"a\"b\\c\n\u0001"`, FormatValue("a\"b\\c\n\x01"))
	assert.Equal(t, "null", FormatValue(nil))
	assert.Equal(t, "-4", FormatValue(int64(-4)))
}

func TestFormatRuleAndPipeline(t *testing.T) {
	r := &Rule{
		Name: "r1",
		When: bin(OpEq, field("a"), lit("x")),
		Then: []Stmt{
			&LetStmt{Name: "v", Value: lit(int64(1))},
			&ExprStmt{Expr: &FuncCall{Name: "set_field", Args: []Arg{{Value: lit("b")}, {Value: &VarRef{Name: "v"}}}}},
		},
	}
	assert.Equal(t, "rule \"r1\"\nwhen\n    $message.a == \"x\"\nthen\n    let v = 1;\n    set_field(\"b\", v);\nend\n", FormatRule(r))

	p := &Pipeline{
		Name: "p",
		Stages: []Stage{
			{Number: 0, Match: MatchAll, Rules: []string{"r1", "r2"}},
			{Number: -1, Match: MatchEither},
		},
	}
	assert.Equal(t, "pipeline \"p\"\nstage 0 match all\n    rule \"r1\";\n    rule \"r2\";\nstage -1 match either\nend\n", FormatPipeline(p))
}

func TestCalls(t *testing.T) {
	r := &Rule{
		Name: "r",
		When: &FuncCall{Name: "has_field", Args: []Arg{{Value: lit("a")}}},
		Then: []Stmt{
			&ExprStmt{Expr: &FuncCall{Name: "set_field", Args: []Arg{{Value: lit("b")}, {Value: &FuncCall{Name: "to_string", Args: []Arg{{Value: field("a")}}}}}}},
		},
	}
	assert.Equal(t, []string{"has_field", "set_field", "to_string"}, Calls(r))
}
