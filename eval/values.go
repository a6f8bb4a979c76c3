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

package eval

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
	"github.com/rulego/rulepipe/utils/cast"
)

// ErrDivisionByZero is returned for integer division or remainder by zero.
var ErrDivisionByZero = errors.New("division by zero")

// Truthy interprets v as a condition operand. Null is false.
func Truthy(v interface{}) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, found %s", types.TypeOf(v))
	}
}

// Not negates a condition operand; not null is true.
func Not(v interface{}) (interface{}, error) {
	b, err := Truthy(v)
	if err != nil {
		return nil, err
	}
	return !b, nil
}

// Negate applies unary minus.
func Negate(v interface{}) (interface{}, error) {
	switch n := cast.Normalize(v).(type) {
	case int64:
		return -n, nil
	case float64:
		return -n, nil
	default:
		return nil, fmt.Errorf("cannot negate %s", types.TypeOf(v))
	}
}

// Compare applies a comparison operator.
//
// Numbers compare by value whatever their kind and strings lexicographically.
// A comparison with null holds only for null == null. Other values of the same
// kind support == and != only; values of different kinds are never equal and
// cannot be ordered.
func Compare(op ast.BinaryOp, a, b interface{}) (bool, error) {
	a, b = cast.Normalize(a), cast.Normalize(b)
	if a == nil || b == nil {
		return op == ast.OpEq && a == nil && b == nil, nil
	}
	if cast.IsNumber(a) && cast.IsNumber(b) {
		return ordered(op, compareNumbers(a, b)), nil
	}
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return ordered(op, strings.Compare(as, bs)), nil
		}
	}
	switch op {
	case ast.OpEq:
		return equal(a, b), nil
	case ast.OpNe:
		return !equal(a, b), nil
	}
	at, bt := types.TypeOf(a), types.TypeOf(b)
	if at == bt {
		return false, fmt.Errorf("cannot order %s values", at)
	}
	return false, fmt.Errorf("cannot order %s and %s", at, bt)
}

func compareNumbers(a, b interface{}) int {
	if ai, ok := a.(int64); ok {
		if bi, ok := b.(int64); ok {
			switch {
			case ai < bi:
				return -1
			case ai > bi:
				return 1
			}
			return 0
		}
	}
	af, bf := cast.ToFloat64(a), cast.ToFloat64(b)
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	case af == bf:
		return 0
	}
	// NaN is unordered and unequal to everything
	return 2
}

func ordered(op ast.BinaryOp, c int) bool {
	switch op {
	case ast.OpEq:
		return c == 0
	case ast.OpNe:
		return c != 0
	case ast.OpLt:
		return c == -1
	case ast.OpLe:
		return c == -1 || c == 0
	case ast.OpGt:
		return c == 1
	case ast.OpGe:
		return c == 1 || c == 0
	}
	return false
}

func equal(a, b interface{}) bool {
	if am, ok := a.(types.Message); ok {
		bm, ok := b.(types.Message)
		return ok && am.ID() == bm.ID()
	}
	return reflect.DeepEqual(a, b)
}

// Arithmetic applies + - * / %. Two longs yield a long with truncating
// division; a double operand yields a double. + concatenates two strings.
func Arithmetic(op ast.BinaryOp, a, b interface{}) (interface{}, error) {
	a, b = cast.Normalize(a), cast.Normalize(b)
	if a == nil || b == nil {
		return nil, fmt.Errorf("arithmetic %s on null", op)
	}
	if op == ast.OpAdd {
		if as, ok := a.(string); ok {
			if bs, ok := b.(string); ok {
				return as + bs, nil
			}
		}
	}
	if !cast.IsNumber(a) || !cast.IsNumber(b) {
		return nil, fmt.Errorf("arithmetic %s on %s and %s", op, types.TypeOf(a), types.TypeOf(b))
	}
	ai, aLong := a.(int64)
	bi, bLong := b.(int64)
	if aLong && bLong {
		return longArithmetic(op, ai, bi)
	}
	af, bf := cast.ToFloat64(a), cast.ToFloat64(b)
	switch op {
	case ast.OpAdd:
		return af + bf, nil
	case ast.OpSub:
		return af - bf, nil
	case ast.OpMul:
		return af * bf, nil
	case ast.OpDiv:
		return af / bf, nil
	case ast.OpMod:
		return math.Mod(af, bf), nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

func longArithmetic(op ast.BinaryOp, a, b int64) (interface{}, error) {
	switch op {
	case ast.OpAdd:
		return a + b, nil
	case ast.OpSub:
		return a - b, nil
	case ast.OpMul:
		return a * b, nil
	case ast.OpDiv:
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return a / b, nil
	case ast.OpMod:
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		return a % b, nil
	}
	return nil, fmt.Errorf("unknown operator %s", op)
}

// Access reads name from a map or a message. Any other target yields null.
func Access(target interface{}, name string) interface{} {
	switch t := target.(type) {
	case map[string]interface{}:
		return t[name]
	case types.Message:
		v, _ := t.Field(name)
		return v
	default:
		if m, ok := cast.Normalize(target).(map[string]interface{}); ok {
			return m[name]
		}
		return nil
	}
}

// Bind places the evaluated arguments of a call into parameter order.
// slots[i] is the parameter values[i] is bound to. Omitted parameters take
// their default. Each non-null argument is checked against the declared
// type, long widens to double, and the parameter transform is applied.
func Bind(desc types.FunctionDescriptor, values []interface{}, slots []int) (types.Args, error) {
	args := make(types.Args, len(desc.Params))
	bound := make([]bool, len(desc.Params))
	for i, v := range values {
		if i >= len(slots) || slots[i] < 0 || slots[i] >= len(args) {
			return nil, fmt.Errorf("argument %d is not bound to a parameter", i+1)
		}
		args[slots[i]] = v
		bound[slots[i]] = true
	}
	for i, p := range desc.Params {
		v := args[i]
		if !bound[i] {
			v = p.Default
		}
		if v != nil {
			v = cast.Normalize(v)
			if p.Type != types.TypeAny {
				actual := types.TypeOf(v)
				switch {
				case actual == p.Type:
				case actual == types.TypeLong && p.Type == types.TypeDouble:
					v = float64(v.(int64))
				default:
					return nil, fmt.Errorf("parameter %s expects %s, found %s", p.Name, p.Type, actual)
				}
			}
			if p.Transform != nil {
				var err error
				if v, err = p.Transform(v); err != nil {
					return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
				}
			}
		}
		args[i] = v
	}
	return args, nil
}

// Invoke calls fn, turning a panic into an error.
func Invoke(ctx types.EvalContext, fn types.Function, args types.Args) (result interface{}, err error) {
	defer func() {
		if e := recover(); e != nil {
			result = nil
			err = fmt.Errorf("panic: %v", e)
		}
	}()
	result, err = fn.Invoke(ctx, args)
	if err != nil {
		return nil, err
	}
	return cast.Normalize(result), nil
}
