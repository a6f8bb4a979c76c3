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

// Package evaltest holds the rule scenarios every Executable implementation must pass.
package evaltest

import (
	"testing"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
	"github.com/rulego/rulepipe/builtin/funcs"
	"github.com/rulego/rulepipe/eval"
	"github.com/rulego/rulepipe/linker"
	"github.com/rulego/rulepipe/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario runs one rule against one message.
type Scenario struct {
	Name   string
	Rule   string
	Fields map[string]interface{}
	// Matched is the expected condition result. Statements run only when it holds.
	Matched bool
	// Want are the message fields after the rule ran.
	Want map[string]interface{}
	// Errors is the number of evaluation errors recorded.
	Errors  int
	Dropped bool
	// Clones are the fields of every message cloned by the rule, in creation order.
	Clones []map[string]interface{}
}

// Scenarios returns the shared scenario table.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name:    "set field",
			Rule:    `rule "r" when true then set_field("a", "x"); end`,
			Matched: true,
			Want:    map[string]interface{}{"a": "x"},
		},
		{
			Name:    "numeric condition holds",
			Rule:    `rule "r" when $message.level > 3 then set_field("high", true); end`,
			Fields:  map[string]interface{}{"level": int64(5)},
			Matched: true,
			Want:    map[string]interface{}{"level": int64(5), "high": true},
		},
		{
			Name:   "numeric condition fails",
			Rule:   `rule "r" when $message.level > 3 then set_field("high", true); end`,
			Fields: map[string]interface{}{"level": int64(1)},
			Want:   map[string]interface{}{"level": int64(1)},
		},
		{
			Name: "missing field compares false",
			Rule: `rule "r" when $message.missing == 1 then set_field("a", 1); end`,
			Want: map[string]interface{}{},
		},
		{
			Name:    "null equals null",
			Rule:    `rule "r" when $message.missing == null then set_field("m", true); end`,
			Matched: true,
			Want:    map[string]interface{}{"m": true},
		},
		{
			Name: "null not equal is false",
			Rule: `rule "r" when $message.missing != 1 then set_field("m", true); end`,
			Want: map[string]interface{}{},
		},
		{
			Name:    "long equals double",
			Rule:    `rule "r" when 1 == 1.0 then set_field("eq", true); end`,
			Matched: true,
			Want:    map[string]interface{}{"eq": true},
		},
		{
			Name:    "string ordering",
			Rule:    `rule "r" when "abc" < "abd" then set_field("lt", true); end`,
			Matched: true,
			Want:    map[string]interface{}{"lt": true},
		},
		{
			Name:    "mixed kinds are unequal",
			Rule:    `rule "r" when $message.s != 1 and not ($message.s == 1) then set_field("ne", true); end`,
			Fields:  map[string]interface{}{"s": "1"},
			Matched: true,
			Want:    map[string]interface{}{"s": "1", "ne": true},
		},
		{
			Name:   "ordering mixed kinds is an error",
			Rule:   `rule "r" when $message.s < 1 then set_field("a", 1); end`,
			Fields: map[string]interface{}{"s": "a"},
			Want:   map[string]interface{}{"s": "a"},
			Errors: 1,
		},
		{
			Name: "and short-circuits",
			Rule: `rule "r" when false and 1 / 0 == 1 then set_field("a", 1); end`,
			Want: map[string]interface{}{},
		},
		{
			Name:    "or short-circuits",
			Rule:    `rule "r" when true or 1 / 0 == 1 then set_field("a", 1); end`,
			Matched: true,
			Want:    map[string]interface{}{"a": int64(1)},
		},
		{
			Name:    "not null is true",
			Rule:    `rule "r" when not $message.missing then set_field("n", true); end`,
			Matched: true,
			Want:    map[string]interface{}{"n": true},
		},
		{
			Name:   "non boolean logical operand is an error",
			Rule:   `rule "r" when $message.s and true then set_field("a", 1); end`,
			Fields: map[string]interface{}{"s": "x"},
			Want:   map[string]interface{}{"s": "x"},
			Errors: 1,
		},
		{
			Name:   "non boolean condition is false",
			Rule:   `rule "r" when $message.flag then set_field("a", 1); end`,
			Fields: map[string]interface{}{"flag": "yes"},
			Want:   map[string]interface{}{"flag": "yes"},
		},
		{
			Name:    "failing statement skips the rest",
			Rule:    `rule "r" when true then set_field("a", 1); set_field("b", 1 / 0); set_field("c", 3); end`,
			Matched: true,
			Want:    map[string]interface{}{"a": int64(1)},
			Errors:  1,
		},
		{
			Name:    "failing function skips the rest",
			Rule:    `rule "r" when true then set_field("a", parse_json("{")); set_field("c", 1); end`,
			Matched: true,
			Want:    map[string]interface{}{},
			Errors:  1,
		},
		{
			Name:    "let binding",
			Rule:    `rule "r" when true then let x = 2 * 3 + 1; set_field("x", x); end`,
			Matched: true,
			Want:    map[string]interface{}{"x": int64(7)},
		},
		{
			Name:    "integer and double arithmetic",
			Rule:    `rule "r" when true then set_field("d", 7 / 2); set_field("m", 7 % 2); set_field("f", 7 / 2.0); end`,
			Matched: true,
			Want:    map[string]interface{}{"d": int64(3), "m": int64(1), "f": 3.5},
		},
		{
			Name:    "string concatenation",
			Rule:    `rule "r" when true then set_field("s", "a" + "b" + to_string(1)); end`,
			Matched: true,
			Want:    map[string]interface{}{"s": "ab1"},
		},
		{
			Name:    "operator precedence",
			Rule:    `rule "r" when 1 + 2 * 3 == 7 then set_field("p", 1 + 2 * 3 - -1); end`,
			Matched: true,
			Want:    map[string]interface{}{"p": int64(8)},
		},
		{
			Name:    "field access on parsed json",
			Rule:    `rule "r" when true then let m = parse_json('{"a":{"b":2}}'); set_field("b", m.a.b); end`,
			Matched: true,
			Want:    map[string]interface{}{"b": int64(2)},
		},
		{
			Name:    "drop ends the rule",
			Rule:    `rule "r" when true then drop_message(); set_field("after", 1); end`,
			Matched: true,
			Want:    map[string]interface{}{},
			Dropped: true,
		},
		{
			Name:    "named arguments",
			Rule:    `rule "r" when true then set_field(value: "v", field: "k", prefix: "p_"); end`,
			Matched: true,
			Want:    map[string]interface{}{"p_k": "v"},
		},
		{
			Name:    "default arguments",
			Rule:    `rule "r" when true then set_field("x", to_long("abc", default: -1)); set_field("y", to_long("abc")); end`,
			Matched: true,
			Want:    map[string]interface{}{"x": int64(-1), "y": int64(0)},
		},
		{
			Name:    "long widens to double",
			Rule:    `rule "r" when true then set_field("d", to_double("x", 2)); end`,
			Matched: true,
			Want:    map[string]interface{}{"d": 2.0},
		},
		{
			Name:    "argument type checked at run time",
			Rule:    `rule "r" when true then set_field($message.n, 1); end`,
			Fields:  map[string]interface{}{"n": int64(5)},
			Matched: true,
			Want:    map[string]interface{}{"n": int64(5)},
			Errors:  1,
		},
		{
			Name:    "regex groups",
			Rule:    `rule "r" when regex('^\\w+@', to_string($message.email)).matches == true then let r = regex('^(?P<user>\\w+)@', to_string($message.email)); set_field("user", r.groups.user); end`,
			Fields:  map[string]interface{}{"email": "bob@example.com"},
			Matched: true,
			Want:    map[string]interface{}{"email": "bob@example.com", "user": "bob"},
		},
		{
			Name:    "null pattern stops the rule",
			Rule:    `rule "r" when true then let r = regex($message.missing, "x"); set_field("after", true); end`,
			Matched: true,
			Want:    map[string]interface{}{},
			Errors:  1,
		},
		{
			Name:    "clone is independent",
			Rule:    `rule "r" when true then let c = clone_message(); set_field("copy", true, message: c); set_field("origin", true); end`,
			Fields:  map[string]interface{}{"a": int64(1)},
			Matched: true,
			Want:    map[string]interface{}{"a": int64(1), "origin": true},
			Clones:  []map[string]interface{}{{"a": int64(1), "copy": true}},
		},
		{
			Name:    "routing",
			Rule:    `rule "r" when not in_stream("audit") then route_to_stream("audit"); set_field("routed", in_stream("audit")); end`,
			Matched: true,
			Want:    map[string]interface{}{"routed": true},
		},
	}
}

// Compiler turns a linked rule into the Executable under test.
type Compiler func(rule *ast.Rule, table *types.FunctionTable) (eval.Executable, error)

// Run runs every scenario against the executables produced by compile.
func Run(t *testing.T, compile Compiler) {
	table := funcs.Default().Table()
	for _, sc := range Scenarios() {
		sc := sc
		t.Run(sc.Name, func(t *testing.T) {
			parsed, err := parser.ParseRule(sc.Rule)
			require.NoError(t, err)
			linked, err := linker.LinkRule(parsed, table)
			require.NoError(t, err)
			exe, err := compile(linked, table)
			require.NoError(t, err)
			assert.Equal(t, "r", exe.Name())

			msg := types.NewMsg(sc.Fields, types.DefaultStream)
			ctx := eval.NewContext(msg, table, types.DefaultStream)
			ctx.BeginRule(exe.Name())
			matched := exe.Condition(ctx)
			assert.Equal(t, sc.Matched, matched, "condition")
			if matched {
				exe.Execute(ctx)
			}
			assert.Equal(t, sc.Want, msg.Fields())
			assert.Len(t, ctx.Errors(), sc.Errors, "%v", ctx.Errors())
			assert.Equal(t, sc.Dropped, msg.Dropped())
			assert.Equal(t, sc.Clones, CloneFields(ctx.TakeClones()))
		})
	}
}

// CloneFields lists the fields of clones, nil when there are none.
func CloneFields(clones []types.Message) []map[string]interface{} {
	var out []map[string]interface{}
	for _, c := range clones {
		out = append(out, c.Fields())
	}
	return out
}
