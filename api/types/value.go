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

package types

import "github.com/rulego/rulepipe/utils/cast"

// Type is the static type of an expression, a parameter or a function result.
type Type int

const (
	// TypeAny accepts every value; checks are deferred to run time.
	TypeAny Type = iota
	// TypeVoid is the result type of functions evaluated for their side effects only.
	TypeVoid
	TypeNull
	TypeString
	TypeLong
	TypeDouble
	TypeBoolean
	TypeMap
	TypeList
	TypeMessage
)

var typeNames = map[Type]string{
	TypeAny:     "any",
	TypeVoid:    "void",
	TypeNull:    "null",
	TypeString:  "string",
	TypeLong:    "long",
	TypeDouble:  "double",
	TypeBoolean: "boolean",
	TypeMap:     "map",
	TypeList:    "list",
	TypeMessage: "message",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// IsNumeric reports whether t is long or double.
func (t Type) IsNumeric() bool {
	return t == TypeLong || t == TypeDouble
}

// AssignableTo reports whether a value of static type t may be bound where
// expected is declared. Any on either side defers the decision to run time,
// null is assignable everywhere and long widens to double.
func (t Type) AssignableTo(expected Type) bool {
	switch {
	case t == expected, t == TypeAny, expected == TypeAny, t == TypeNull:
		return true
	case t == TypeLong && expected == TypeDouble:
		return true
	}
	return false
}

// TypeOf returns the dynamic type of a run time value.
func TypeOf(v interface{}) Type {
	switch cast.Normalize(v).(type) {
	case nil:
		return TypeNull
	case string:
		return TypeString
	case int64:
		return TypeLong
	case float64:
		return TypeDouble
	case bool:
		return TypeBoolean
	case map[string]interface{}:
		return TypeMap
	case []interface{}:
		return TypeList
	case Message:
		return TypeMessage
	default:
		return TypeAny
	}
}
