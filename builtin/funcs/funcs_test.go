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

package funcs

import (
	"errors"
	"testing"

	"github.com/rulego/rulepipe/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testContext struct {
	msg    types.Message
	clones []types.Message
}

func (c *testContext) Message() types.Message { return c.msg }

func (c *testContext) Clone(m types.Message) types.Message {
	cp := m.Copy()
	c.clones = append(c.clones, cp)
	return cp
}

func (c *testContext) DefaultStream() string { return types.DefaultStream }
func (c *testContext) Pipeline() string      { return "p" }
func (c *testContext) Stage() int            { return 0 }
func (c *testContext) Rule() string          { return "r" }

// call binds args positionally, filling omitted optional parameters with their defaults.
func call(t *testing.T, ctx *testContext, name string, args ...interface{}) (interface{}, error) {
	t.Helper()
	fn, ok := Default().Get(name)
	require.True(t, ok, name)
	desc := fn.Descriptor()
	bound := make(types.Args, len(desc.Params))
	for i, p := range desc.Params {
		v := p.Default
		if i < len(args) {
			v = args[i]
		}
		if p.Transform != nil && v != nil {
			var err error
			v, err = p.Transform(v)
			if err != nil {
				return nil, err
			}
		}
		bound[i] = v
	}
	return fn.Invoke(ctx, bound)
}

func newContext(fields map[string]interface{}) *testContext {
	return &testContext{msg: types.NewMsg(fields, types.DefaultStream)}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, uint64(0), r.Version())

	f := types.NewFunc(types.FunctionDescriptor{Name: "one", ReturnType: types.TypeLong},
		func(ctx types.EvalContext, args types.Args) (interface{}, error) { return int64(1), nil })
	require.NoError(t, r.Register(f))
	err := r.Register(f)
	assert.True(t, errors.Is(err, ErrFunctionExists))

	t1 := r.Table()
	assert.Same(t, t1, r.Table())
	assert.Equal(t, []string{"one"}, t1.Names())

	g := types.NewFunc(types.FunctionDescriptor{Name: "two", ReturnType: types.TypeLong},
		func(ctx types.EvalContext, args types.Args) (interface{}, error) { return int64(2), nil })
	require.NoError(t, r.Register(g))
	t2 := r.Table()
	assert.NotSame(t, t1, t2)
	assert.Greater(t, t2.Version(), t1.Version())
	assert.Equal(t, 1, t1.Len())
	assert.Equal(t, []string{"one", "two"}, t2.Names())

	require.NoError(t, r.Unregister("one"))
	assert.Error(t, r.Unregister("one"))
	assert.Equal(t, []string{"two"}, r.Names())

	require.NoError(t, r.ReplaceAll(f))
	_, ok := r.Get("two")
	assert.False(t, ok)
	assert.Error(t, r.ReplaceAll(f, f))

	bad := types.NewFunc(types.FunctionDescriptor{
		Name: "bad",
		Params: []types.ParameterDescriptor{
			{Name: "a", Optional: true},
			{Name: "b"},
		},
	}, nil)
	assert.Error(t, r.Register(bad))
}

func TestBuiltinsAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Builtins() {
		d := f.Descriptor()
		assert.NoError(t, d.Validate(), d.Name)
		assert.False(t, seen[d.Name], "duplicate %s", d.Name)
		seen[d.Name] = true
	}
	assert.True(t, seen["set_field"])
	assert.True(t, seen["route_to_stream"])
}

func TestConversion(t *testing.T) {
	ctx := newContext(nil)
	tests := []struct {
		name string
		args []interface{}
		want interface{}
	}{
		{"to_string", []interface{}{int64(42)}, "42"},
		{"to_string", []interface{}{nil, "fallback"}, "fallback"},
		{"to_string", []interface{}{true}, "true"},
		{"to_long", []interface{}{"17"}, int64(17)},
		{"to_long", []interface{}{3.9}, int64(3)},
		{"to_long", []interface{}{"abc", int64(-1)}, int64(-1)},
		{"to_long", []interface{}{nil}, int64(0)},
		{"to_double", []interface{}{"1.5"}, 1.5},
		{"to_double", []interface{}{int64(2)}, 2.0},
		{"to_double", []interface{}{"x", 0.5}, 0.5},
		{"to_bool", []interface{}{"true"}, true},
		{"to_bool", []interface{}{nil}, false},
		{"is_null", []interface{}{nil}, true},
		{"is_not_null", []interface{}{"a"}, true},
		{"is_string", []interface{}{"a"}, true},
		{"is_number", []interface{}{int64(1)}, true},
		{"is_number", []interface{}{"1"}, false},
		{"is_boolean", []interface{}{false}, true},
		{"is_map", []interface{}{map[string]interface{}{}}, true},
		{"is_list", []interface{}{[]interface{}{}}, true},
	}
	for _, tt := range tests {
		got, err := call(t, ctx, tt.name, tt.args...)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, "%s(%v)", tt.name, tt.args)
	}
}

func TestMessageFunctions(t *testing.T) {
	ctx := newContext(map[string]interface{}{"a": "1", "b": int64(2)})

	v, err := call(t, ctx, "field", "a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
	v, _ = call(t, ctx, "field", "missing")
	assert.Nil(t, v)
	v, _ = call(t, ctx, "has_field", "b")
	assert.Equal(t, true, v)

	_, err = call(t, ctx, "set_field", "c", int64(3), "pre_", "_suf")
	require.NoError(t, err)
	assert.True(t, ctx.msg.HasField("pre_c_suf"))

	_, err = call(t, ctx, "set_field", "d", nil)
	require.NoError(t, err)
	assert.False(t, ctx.msg.HasField("d"))

	_, err = call(t, ctx, "set_field", "", "x")
	assert.Error(t, err)

	_, err = call(t, ctx, "set_fields", map[string]interface{}{"x": int64(1), "y": nil}, "f_")
	require.NoError(t, err)
	assert.True(t, ctx.msg.HasField("f_x"))
	assert.False(t, ctx.msg.HasField("f_y"))

	_, err = call(t, ctx, "rename_field", "a", "renamed")
	require.NoError(t, err)
	assert.False(t, ctx.msg.HasField("a"))
	v, _ = ctx.msg.Field("renamed")
	assert.Equal(t, "1", v)

	_, err = call(t, ctx, "remove_field", "b")
	require.NoError(t, err)
	assert.False(t, ctx.msg.HasField("b"))

	other := types.NewMsg(nil)
	_, err = call(t, ctx, "set_field", "only_other", "v", "", "", other)
	require.NoError(t, err)
	assert.True(t, other.HasField("only_other"))
	assert.False(t, ctx.msg.HasField("only_other"))
}

func TestStreamsAndDrop(t *testing.T) {
	ctx := newContext(nil)

	_, err := call(t, ctx, "route_to_stream", "errors")
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "errors"}, ctx.msg.Streams())

	v, _ := call(t, ctx, "in_stream", "errors")
	assert.Equal(t, true, v)

	_, err = call(t, ctx, "route_to_stream", "audit", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "errors"}, ctx.msg.Streams())

	_, err = call(t, ctx, "route_to_stream", "")
	assert.Error(t, err)

	_, _ = call(t, ctx, "remove_from_stream", "errors")
	assert.Equal(t, []string{"audit"}, ctx.msg.Streams())

	v, err = call(t, ctx, "clone_message")
	require.NoError(t, err)
	require.Len(t, ctx.clones, 1)
	assert.Same(t, ctx.clones[0], v)
	assert.NotEqual(t, ctx.msg.ID(), ctx.clones[0].ID())

	_, _ = call(t, ctx, "drop_message")
	assert.True(t, ctx.msg.Dropped())
	assert.False(t, ctx.clones[0].Dropped())
}

func TestStringFunctions(t *testing.T) {
	ctx := newContext(map[string]interface{}{"user": "bob", "n": int64(3)})
	tests := []struct {
		name string
		args []interface{}
		want interface{}
	}{
		{"concat", []interface{}{"a", int64(1)}, "a1"},
		{"lowercase", []interface{}{"AbC"}, "abc"},
		{"uppercase", []interface{}{"AbC"}, "ABC"},
		{"trim", []interface{}{"  x \t"}, "x"},
		{"contains", []interface{}{"Hello", "ell"}, true},
		{"contains", []interface{}{"Hello", "ELL"}, false},
		{"contains", []interface{}{"Hello", "ELL", true}, true},
		{"starts_with", []interface{}{"Hello", "He"}, true},
		{"ends_with", []interface{}{"Hello", "LO", true}, true},
		{"substring", []interface{}{"héllo", int64(1), int64(3)}, "él"},
		{"substring", []interface{}{"hello", int64(-3)}, "llo"},
		{"abbreviate", []interface{}{"hello world", int64(8)}, "hello..."},
		{"split", []interface{}{`,\s*`, "a, b,c"}, []interface{}{"a", "b", "c"}},
		{"split", []interface{}{`,`, "a,b,c", int64(2)}, []interface{}{"a", "b,c"}},
		{"regex_replace", []interface{}{`o`, "foo", "0"}, "f00"},
		{"regex_replace", []interface{}{`o`, "foo", "0", false}, "f0o"},
		{"regex_replace", []interface{}{`(\w+)@`, "bob@x", "$1 at "}, "bob at x"},
		{"format", []interface{}{"${user} has ${n}"}, "bob has 3"},
		{"length", []interface{}{"héllo"}, int64(5)},
		{"length", []interface{}{[]interface{}{1, 2}}, int64(2)},
		{"length", []interface{}{nil}, int64(0)},
	}
	for _, tt := range tests {
		got, err := call(t, ctx, tt.name, tt.args...)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, got, "%s(%v)", tt.name, tt.args)
	}

	_, err := call(t, ctx, "regex", "(", "x")
	assert.Error(t, err)
	_, err = call(t, ctx, "length", true)
	assert.Error(t, err)
}

func TestRegex(t *testing.T) {
	ctx := newContext(nil)
	v, err := call(t, ctx, "regex", `^(?P<user>\w+)@(\w+)$`, "bob@example")
	require.NoError(t, err)
	m := v.(map[string]interface{})
	assert.Equal(t, true, m["matches"])
	groups := m["groups"].(map[string]interface{})
	assert.Equal(t, "bob", groups["0"])
	assert.Equal(t, "bob", groups["user"])
	assert.Equal(t, "example", groups["1"])

	v, err = call(t, ctx, "regex", `^\d+$`, "abc")
	require.NoError(t, err)
	assert.Equal(t, false, v.(map[string]interface{})["matches"])

	for _, name := range []string{"regex", "split", "regex_replace"} {
		args := []interface{}{nil, "x", "y"}
		if name != "regex_replace" {
			args = args[:2]
		}
		_, err = call(t, ctx, name, args...)
		assert.EqualError(t, err, "pattern is null", name)
	}
}

func TestDataFunctions(t *testing.T) {
	ctx := newContext(nil)

	v, err := call(t, ctx, "parse_json", `{"a":1,"b":[true,1.5]}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"a": int64(1), "b": []interface{}{true, 1.5}}, v)

	_, err = call(t, ctx, "parse_json", `{"a":`)
	assert.Error(t, err)

	v, err = call(t, ctx, "to_json", map[string]interface{}{"a": int64(1)})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, v)

	a, _ := call(t, ctx, "uuid")
	b, _ := call(t, ctx, "uuid")
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)

	now, err := call(t, ctx, "now_millis")
	require.NoError(t, err)
	assert.Greater(t, now.(int64), int64(0))
}
