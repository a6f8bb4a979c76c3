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

package eval_test

import (
	"errors"
	"math"
	"testing"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
	"github.com/rulego/rulepipe/builtin/funcs"
	"github.com/rulego/rulepipe/eval"
	"github.com/rulego/rulepipe/eval/evaltest"
	"github.com/rulego/rulepipe/linker"
	"github.com/rulego/rulepipe/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpretedScenarios(t *testing.T) {
	evaltest.Run(t, func(rule *ast.Rule, table *types.FunctionTable) (eval.Executable, error) {
		return eval.NewInterpreted(rule), nil
	})
}

func TestCompare(t *testing.T) {
	tests := []struct {
		op   ast.BinaryOp
		a, b interface{}
		want bool
		err  bool
	}{
		{ast.OpEq, int64(1), 1.0, true, false},
		{ast.OpEq, 3, int64(3), true, false},
		{ast.OpLt, int64(1), 1.5, true, false},
		{ast.OpGe, 2.0, int64(2), true, false},
		{ast.OpNe, int64(1), int64(2), true, false},
		{ast.OpLt, "a", "b", true, false},
		{ast.OpGt, "a", "b", false, false},
		{ast.OpEq, nil, nil, true, false},
		{ast.OpNe, nil, nil, false, false},
		{ast.OpNe, nil, int64(1), false, false},
		{ast.OpLt, nil, int64(1), false, false},
		{ast.OpEq, "1", int64(1), false, false},
		{ast.OpNe, "1", int64(1), true, false},
		{ast.OpEq, true, true, true, false},
		{ast.OpEq, []interface{}{int64(1)}, []interface{}{int64(1)}, true, false},
		{ast.OpEq, map[string]interface{}{"a": "b"}, map[string]string{"a": "b"}, true, false},
		{ast.OpLt, true, false, false, true},
		{ast.OpLt, "a", int64(1), false, true},
		{ast.OpEq, math.NaN(), math.NaN(), false, false},
		{ast.OpNe, math.NaN(), 1.0, true, false},
	}
	for _, tt := range tests {
		got, err := eval.Compare(tt.op, tt.a, tt.b)
		if tt.err {
			assert.Error(t, err, "%v %s %v", tt.a, tt.op, tt.b)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v %s %v", tt.a, tt.op, tt.b)
	}
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		op   ast.BinaryOp
		a, b interface{}
		want interface{}
		err  bool
	}{
		{ast.OpAdd, int64(1), int64(2), int64(3), false},
		{ast.OpSub, int64(1), 0.5, 0.5, false},
		{ast.OpMul, 2, int64(3), int64(6), false},
		{ast.OpDiv, int64(-7), int64(2), int64(-3), false},
		{ast.OpMod, int64(-7), int64(2), int64(-1), false},
		{ast.OpDiv, 1.0, int64(4), 0.25, false},
		{ast.OpMod, 5.5, int64(2), 1.5, false},
		{ast.OpAdd, "a", "b", "ab", false},
		{ast.OpDiv, int64(1), int64(0), nil, true},
		{ast.OpMod, int64(1), int64(0), nil, true},
		{ast.OpAdd, nil, int64(1), nil, true},
		{ast.OpAdd, "a", int64(1), nil, true},
		{ast.OpSub, "a", "b", nil, true},
		{ast.OpMul, true, int64(1), nil, true},
	}
	for _, tt := range tests {
		got, err := eval.Arithmetic(tt.op, tt.a, tt.b)
		if tt.err {
			assert.Error(t, err, "%v %s %v", tt.a, tt.op, tt.b)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v %s %v", tt.a, tt.op, tt.b)
	}
	_, err := eval.Arithmetic(ast.OpDiv, int64(1), int64(0))
	assert.True(t, errors.Is(err, eval.ErrDivisionByZero))
}

func TestUnary(t *testing.T) {
	v, err := eval.Not(nil)
	require.NoError(t, err)
	assert.Equal(t, true, v)
	_, err = eval.Not("x")
	assert.Error(t, err)

	v, err = eval.Negate(int32(3))
	require.NoError(t, err)
	assert.Equal(t, int64(-3), v)
	_, err = eval.Negate(nil)
	assert.Error(t, err)
}

func TestAccess(t *testing.T) {
	m := map[string]interface{}{"a": int64(1)}
	assert.Equal(t, int64(1), eval.Access(m, "a"))
	assert.Nil(t, eval.Access(m, "b"))
	msg := types.NewMsg(map[string]interface{}{"f": "v"})
	assert.Equal(t, "v", eval.Access(msg, "f"))
	assert.Nil(t, eval.Access("str", "len"))
	assert.Nil(t, eval.Access(nil, "x"))
}

func TestBind(t *testing.T) {
	desc := types.FunctionDescriptor{
		Name: "f",
		Params: []types.ParameterDescriptor{
			{Name: "a", Type: types.TypeString},
			{Name: "b", Type: types.TypeDouble, Optional: true, Default: 1.5},
			{Name: "c", Type: types.TypeAny, Optional: true, Transform: func(v interface{}) (interface{}, error) {
				return "t:" + v.(string), nil
			}},
		},
	}
	args, err := eval.Bind(desc, []interface{}{"x"}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, types.Args{"x", 1.5, nil}, args)

	args, err = eval.Bind(desc, []interface{}{"y", int64(2)}, []int{2, 1})
	require.NoError(t, err)
	assert.Equal(t, types.Args{nil, 2.0, "t:y"}, args)

	_, err = eval.Bind(desc, []interface{}{int64(1)}, []int{0})
	assert.Error(t, err)
	_, err = eval.Bind(desc, []interface{}{"x"}, nil)
	assert.Error(t, err)
}

func TestInvokeRecoversPanic(t *testing.T) {
	fn := types.NewFunc(types.FunctionDescriptor{Name: "boom"}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
		panic("bad")
	})
	ctx := eval.NewContext(types.NewMsg(nil), nil, "")
	_, err := eval.Invoke(ctx, fn, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: bad")
}

func TestEvaluationErrorsCarryLocation(t *testing.T) {
	table := funcs.Default().Table()
	rule, err := parser.ParseRule("rule \"r\"\nwhen true\nthen\n  set_field(\"x\", parse_json(\"[\"));\nend")
	require.NoError(t, err)
	linked, err := linker.LinkRule(rule, table)
	require.NoError(t, err)

	ctx := eval.NewContext(types.NewMsg(nil), table, "")
	ctx.Enter("p", 3)
	ctx.BeginRule("r")
	eval.Execute(linked, ctx)

	require.Len(t, ctx.Errors(), 1)
	var evalErr *types.EvaluationError
	require.True(t, errors.As(ctx.Errors()[0], &evalErr))
	assert.Equal(t, "p", evalErr.Pipeline)
	assert.Equal(t, 3, evalErr.Stage)
	assert.Equal(t, "r", evalErr.Rule)
	assert.Equal(t, "parse_json", evalErr.Function)
	assert.Equal(t, 4, evalErr.Pos.Line)
}

func TestContextScopesAndClones(t *testing.T) {
	msg := types.NewMsg(map[string]interface{}{"a": int64(1)})
	ctx := eval.NewContext(msg, nil, "")
	assert.Equal(t, types.DefaultStream, ctx.DefaultStream())

	ctx.BeginRule("one")
	ctx.SetVar("x", int64(1))
	_, ok := ctx.Var("x")
	assert.True(t, ok)
	ctx.BeginRule("two")
	_, ok = ctx.Var("x")
	assert.False(t, ok)
	assert.Equal(t, "two", ctx.Rule())

	c := ctx.Clone(nil)
	c.SetField("a", int64(2))
	v, _ := msg.Field("a")
	assert.Equal(t, int64(1), v)
	assert.Len(t, ctx.TakeClones(), 1)
	assert.Empty(t, ctx.TakeClones())
}

func TestUnlinkedCallIsAnError(t *testing.T) {
	rule, err := parser.ParseRule(`rule "r" when has_field("a") then drop_message(); end`)
	require.NoError(t, err)
	ctx := eval.NewContext(types.NewMsg(map[string]interface{}{"a": int64(1)}), funcs.Default().Table(), "")
	assert.False(t, eval.Condition(rule, ctx))
	assert.Len(t, ctx.Errors(), 1)
}
