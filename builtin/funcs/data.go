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
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/utils/json"
)

func dataFuncs() []types.Function {
	return []types.Function{
		types.NewFunc(types.FunctionDescriptor{
			Name:        "parse_json",
			ReturnType:  types.TypeAny,
			Params:      []types.ParameterDescriptor{param("value", types.TypeString)},
			Description: "decodes a JSON document into maps, lists and scalars",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			value, _ := args.String(0)
			return json.Decode([]byte(value))
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "to_json",
			ReturnType: types.TypeString,
			Params:     []types.ParameterDescriptor{param("value", types.TypeAny)},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			b, err := json.Marshal(args.Get(0))
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "uuid",
			ReturnType:  types.TypeString,
			Description: "generates a random UUID",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			id, err := uuid.NewV4()
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "now_millis",
			ReturnType:  types.TypeLong,
			Description: "current unix time in milliseconds",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			return time.Now().UnixMilli(), nil
		}),
	}
}
