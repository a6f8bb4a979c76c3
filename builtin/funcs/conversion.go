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
	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/utils/cast"
)

func conversionFuncs() []types.Function {
	return []types.Function{
		types.NewFunc(types.FunctionDescriptor{
			Name:        "to_string",
			ReturnType:  types.TypeString,
			Params:      []types.ParameterDescriptor{param("value", types.TypeAny), optional("default", types.TypeString, "")},
			Description: "converts a value to its string form, returning default for null or unconvertible values",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			if args.Get(0) == nil {
				return args.Get(1), nil
			}
			s, err := cast.ToStringE(args.Get(0))
			if err != nil {
				return args.Get(1), nil
			}
			return s, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "to_long",
			ReturnType:  types.TypeLong,
			Params:      []types.ParameterDescriptor{param("value", types.TypeAny), optional("default", types.TypeLong, int64(0))},
			Description: "converts a value to a long, returning default for null or unconvertible values",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			if args.Get(0) == nil {
				return cast.ToInt64(args.Get(1)), nil
			}
			i, err := cast.ToInt64E(args.Get(0))
			if err != nil {
				return cast.ToInt64(args.Get(1)), nil
			}
			return i, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "to_double",
			ReturnType:  types.TypeDouble,
			Params:      []types.ParameterDescriptor{param("value", types.TypeAny), optional("default", types.TypeDouble, 0.0)},
			Description: "converts a value to a double, returning default for null or unconvertible values",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			if args.Get(0) == nil {
				return cast.ToFloat64(args.Get(1)), nil
			}
			f, err := cast.ToFloat64E(args.Get(0))
			if err != nil {
				return cast.ToFloat64(args.Get(1)), nil
			}
			return f, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "to_bool",
			ReturnType:  types.TypeBoolean,
			Params:      []types.ParameterDescriptor{param("value", types.TypeAny)},
			Description: "converts a value to a boolean; null and unconvertible values are false",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			return cast.ToBool(args.Get(0)), nil
		}),
		typeCheck("is_null", func(v interface{}) bool { return v == nil }),
		typeCheck("is_not_null", func(v interface{}) bool { return v != nil }),
		typeCheck("is_string", func(v interface{}) bool { return types.TypeOf(v) == types.TypeString }),
		typeCheck("is_number", cast.IsNumber),
		typeCheck("is_boolean", func(v interface{}) bool { return types.TypeOf(v) == types.TypeBoolean }),
		typeCheck("is_map", func(v interface{}) bool { return types.TypeOf(v) == types.TypeMap }),
		typeCheck("is_list", func(v interface{}) bool { return types.TypeOf(v) == types.TypeList }),
	}
}

func typeCheck(name string, check func(v interface{}) bool) types.Function {
	return types.NewFunc(types.FunctionDescriptor{
		Name:       name,
		ReturnType: types.TypeBoolean,
		Params:     []types.ParameterDescriptor{param("value", types.TypeAny)},
	}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
		return check(args.Get(0)), nil
	})
}
