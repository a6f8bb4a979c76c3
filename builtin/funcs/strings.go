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
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/utils/cache"
	"github.com/rulego/rulepipe/utils/el"
	"github.com/rulego/rulepipe/utils/str"
)

// compiledTTL bounds how long unused compiled patterns and templates stay cached.
const compiledTTL = "30m"

// Compiled caches regular expressions and templates by their source text.
var Compiled types.Cache = cache.DefaultCache

// compilePattern is the Transform of regular expression parameters.
func compilePattern(v interface{}) (interface{}, error) {
	pattern, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("pattern must be a string, got %T", v)
	}
	return Compiled.GetOrLoad("regex:"+pattern, compiledTTL, func() (interface{}, error) {
		return regexp.Compile(pattern)
	})
}

// pattern returns the compiled pattern argument at i. A null pattern is an error.
func pattern(args types.Args, i int) (*regexp.Regexp, error) {
	re, ok := args.Get(i).(*regexp.Regexp)
	if !ok {
		return nil, errors.New("pattern is null")
	}
	return re, nil
}

func patternParam() types.ParameterDescriptor {
	p := param("pattern", types.TypeString)
	p.Transform = compilePattern
	return p
}

func stringFuncs() []types.Function {
	return []types.Function{
		types.NewFunc(types.FunctionDescriptor{
			Name:       "concat",
			ReturnType: types.TypeString,
			Params:     []types.ParameterDescriptor{param("first", types.TypeAny), param("second", types.TypeAny)},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			return str.ToString(args.Get(0)) + str.ToString(args.Get(1)), nil
		}),
		stringMapper("lowercase", strings.ToLower),
		stringMapper("uppercase", strings.ToUpper),
		stringMapper("trim", strings.TrimSpace),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "contains",
			ReturnType: types.TypeBoolean,
			Params: []types.ParameterDescriptor{
				param("value", types.TypeString),
				param("search", types.TypeString),
				optional("ignore_case", types.TypeBoolean, false),
			},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			value, search := foldCase(args, 2)
			return strings.Contains(value, search), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "starts_with",
			ReturnType: types.TypeBoolean,
			Params: []types.ParameterDescriptor{
				param("value", types.TypeString),
				param("prefix", types.TypeString),
				optional("ignore_case", types.TypeBoolean, false),
			},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			value, prefix := foldCase(args, 2)
			return strings.HasPrefix(value, prefix), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "ends_with",
			ReturnType: types.TypeBoolean,
			Params: []types.ParameterDescriptor{
				param("value", types.TypeString),
				param("suffix", types.TypeString),
				optional("ignore_case", types.TypeBoolean, false),
			},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			value, suffix := foldCase(args, 2)
			return strings.HasSuffix(value, suffix), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "substring",
			ReturnType: types.TypeString,
			Params: []types.ParameterDescriptor{
				param("value", types.TypeString),
				param("start", types.TypeLong),
				optional("end", types.TypeLong, nil),
			},
			Description: "returns the characters in [start, end); negative indexes count from the end",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			value, _ := args.String(0)
			start, _ := args.Get(1).(int64)
			end := int64(utf8.RuneCountInString(value))
			if e, ok := args.Get(2).(int64); ok {
				end = e
			}
			return str.Substring(value, int(start), int(end)), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "abbreviate",
			ReturnType: types.TypeString,
			Params:     []types.ParameterDescriptor{param("value", types.TypeString), param("width", types.TypeLong)},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			value, _ := args.String(0)
			width, _ := args.Get(1).(int64)
			return str.Abbreviate(value, int(width)), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "split",
			ReturnType: types.TypeList,
			Params: []types.ParameterDescriptor{
				patternParam(),
				param("value", types.TypeString),
				optional("limit", types.TypeLong, int64(-1)),
			},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			re, err := pattern(args, 0)
			if err != nil {
				return nil, err
			}
			value, _ := args.String(1)
			limit, _ := args.Get(2).(int64)
			if limit == 0 {
				limit = -1
			}
			parts := re.Split(value, int(limit))
			out := make([]interface{}, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "regex",
			ReturnType:  types.TypeMap,
			Params:      []types.ParameterDescriptor{patternParam(), param("value", types.TypeString)},
			Description: `matches value against pattern; returns {"matches": bool, "groups": {...}} with numbered and named groups`,
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			re, err := pattern(args, 0)
			if err != nil {
				return nil, err
			}
			value, _ := args.String(1)
			groups := make(map[string]interface{})
			m := re.FindStringSubmatch(value)
			if m == nil {
				return map[string]interface{}{"matches": false, "groups": groups}, nil
			}
			names := re.SubexpNames()
			for i := 1; i < len(m); i++ {
				groups[strconv.Itoa(i-1)] = m[i]
				if names[i] != "" {
					groups[names[i]] = m[i]
				}
			}
			return map[string]interface{}{"matches": true, "groups": groups}, nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:       "regex_replace",
			ReturnType: types.TypeString,
			Params: []types.ParameterDescriptor{
				patternParam(),
				param("value", types.TypeString),
				param("replacement", types.TypeString),
				optional("replace_all", types.TypeBoolean, true),
			},
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			re, err := pattern(args, 0)
			if err != nil {
				return nil, err
			}
			value, _ := args.String(1)
			replacement, _ := args.String(2)
			if args.Bool(3, true) {
				return re.ReplaceAllString(value, replacement), nil
			}
			loc := re.FindStringSubmatchIndex(value)
			if loc == nil {
				return value, nil
			}
			var dst []byte
			dst = re.ExpandString(dst, replacement, value, loc)
			return value[:loc[0]] + string(dst) + value[loc[1]:], nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "format",
			ReturnType:  types.TypeString,
			Params:      []types.ParameterDescriptor{param("template", types.TypeString), messageParam(false)},
			Description: "renders ${expression} placeholders with the message fields as variables",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			tmpl, _ := args.String(0)
			compiled, err := Compiled.GetOrLoad("template:"+tmpl, compiledTTL, func() (interface{}, error) {
				return el.NewTemplate(tmpl)
			})
			if err != nil {
				return nil, err
			}
			v, err := compiled.(el.Template).Execute(args.Message(1, ctx).Fields())
			if err != nil {
				return nil, err
			}
			return str.ToString(v), nil
		}),
		types.NewFunc(types.FunctionDescriptor{
			Name:        "length",
			ReturnType:  types.TypeLong,
			Params:      []types.ParameterDescriptor{param("value", types.TypeAny)},
			Description: "number of characters of a string or entries of a list or map",
		}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
			switch v := args.Get(0).(type) {
			case nil:
				return int64(0), nil
			case string:
				return int64(utf8.RuneCountInString(v)), nil
			case []interface{}:
				return int64(len(v)), nil
			case map[string]interface{}:
				return int64(len(v)), nil
			default:
				return nil, fmt.Errorf("length of %s is undefined", types.TypeOf(v))
			}
		}),
	}
}

func stringMapper(name string, fn func(string) string) types.Function {
	return types.NewFunc(types.FunctionDescriptor{
		Name:       name,
		ReturnType: types.TypeString,
		Params:     []types.ParameterDescriptor{param("value", types.TypeString)},
	}, func(ctx types.EvalContext, args types.Args) (interface{}, error) {
		value, _ := args.String(0)
		return fn(value), nil
	})
}

// foldCase returns the first two string arguments, lowercased when the boolean at ignoreCase is set.
func foldCase(args types.Args, ignoreCase int) (string, string) {
	a, _ := args.String(0)
	b, _ := args.String(1)
	if args.Bool(ignoreCase, false) {
		return strings.ToLower(a), strings.ToLower(b)
	}
	return a, b
}
