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
	"sort"

	"github.com/rulego/rulepipe/api/types"
)

var errEmptyField = errors.New("field name must not be empty")

func messageFuncs() []types.Function {
	return []types.Function{
		types.NewFunc(types.FunctionDescriptor{
			Name:        "field",
			ReturnType:  types.TypeAny,
			Params:      []types.ParameterDescriptor{param("name", types.TypeString), messageParam(false)},
			Description: "reads a message field, null when missing",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			name, _ := args.String(0)
			v, _ := args.Message(1, ctx).Field(name)
			return v, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "has_field",
			ReturnType:  types.TypeBoolean,
			Params:      []types.ParameterDescriptor{param("field", types.TypeString), messageParam(false)},
			Description: "checks whether a message field exists",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			name, _ := args.String(0)
			return args.Message(1, ctx).HasField(name), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "set_field",
			ReturnType: types.TypeVoid,
			Params: []types.ParameterDescriptor{
				param("field", types.TypeString),
				param("value", types.TypeAny),
				optional("prefix", types.TypeString, ""),
				optional("suffix", types.TypeString, ""),
				messageParam(true),
			},
			Description: "sets a message field; a null value leaves the message untouched",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			name, _ := args.String(0)
			if name == "" {
				return nil, errEmptyField
			}
			if v := args.Get(1); v != nil {
				prefix, _ := args.String(2)
				suffix, _ := args.String(3)
				args.Message(4, ctx).SetField(prefix+name+suffix, v)
			}
			return nil, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "set_fields",
			ReturnType: types.TypeVoid,
			Params: []types.ParameterDescriptor{
				param("fields", types.TypeMap),
				optional("prefix", types.TypeString, ""),
				optional("suffix", types.TypeString, ""),
				messageParam(true),
			},
			Description: "sets every entry of a map as a message field",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			fields, _ := args.Get(0).(map[string]interface{})
			prefix, _ := args.String(1)
			suffix, _ := args.String(2)
			msg := args.Message(3, ctx)
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if k == "" || fields[k] == nil {
					continue
				}
				msg.SetField(prefix+k+suffix, fields[k])
			}
			return nil, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "remove_field",
			ReturnType:  types.TypeVoid,
			Params:      []types.ParameterDescriptor{param("field", types.TypeString), messageParam(true)},
			Description: "removes a message field",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			name, _ := args.String(0)
			args.Message(1, ctx).RemoveField(name)
			return nil, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "rename_field",
			ReturnType:  types.TypeVoid,
			Params:      []types.ParameterDescriptor{param("old_field", types.TypeString), param("new_field", types.TypeString), messageParam(true)},
			Description: "moves the value of a field to a new name",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			oldName, _ := args.String(0)
			newName, _ := args.String(1)
			if newName == "" {
				return nil, errEmptyField
			}
			msg := args.Message(2, ctx)
			if v, ok := msg.Field(oldName); ok && oldName != newName {
				msg.SetField(newName, v)
				msg.RemoveField(oldName)
			}
			return nil, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "drop_message",
			ReturnType:  types.TypeVoid,
			Params:      []types.ParameterDescriptor{messageParam(true)},
			Description: "drops the message; processing stops and it is not emitted",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			args.Message(0, ctx).Drop()
			return nil, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "clone_message",
			ReturnType:  types.TypeMessage,
			Params:      []types.ParameterDescriptor{messageParam(false)},
			Mutating:    true,
			Description: "copies the message; the copy continues with the remaining stages and is emitted",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			return ctx.Clone(args.Message(0, ctx)), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "route_to_stream",
			ReturnType: types.TypeVoid,
			Params: []types.ParameterDescriptor{
				param("id", types.TypeString),
				optional("remove_from_default", types.TypeBoolean, false),
				messageParam(true),
			},
			Description: "adds the message to a stream, optionally leaving the default stream",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			id, _ := args.String(0)
			if id == "" {
				return nil, errors.New("stream id must not be empty")
			}
			msg := args.Message(2, ctx)
			msg.AddStream(id)
			if args.Bool(1, false) && id != ctx.DefaultStream() {
				msg.RemoveStream(ctx.DefaultStream())
			}
			return nil, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "remove_from_stream",
			ReturnType:  types.TypeVoid,
			Params:      []types.ParameterDescriptor{param("id", types.TypeString), messageParam(true)},
			Description: "removes the message from a stream",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			id, _ := args.String(0)
			args.Message(1, ctx).RemoveStream(id)
			return nil, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "in_stream",
			ReturnType:  types.TypeBoolean,
			Params:      []types.ParameterDescriptor{param("id", types.TypeString), messageParam(false)},
			Description: "checks whether the message belongs to a stream",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			id, _ := args.String(0)
			return args.Message(1, ctx).InStream(id), nil
		}),
	}
}
