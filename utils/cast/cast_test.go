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

package cast

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect interface{}
	}{
		{"nil", nil, nil},
		{"int", 7, int64(7)},
		{"int32", int32(7), int64(7)},
		{"uint16", uint16(7), int64(7)},
		{"float32", float32(0.5), 0.5},
		{"json int", json.Number("12"), int64(12)},
		{"json float", json.Number("1.5"), 1.5},
		{"bytes", []byte("abc"), "abc"},
		{"string slice", []string{"a", "b"}, []interface{}{"a", "b"}},
		{"string map", map[string]string{"k": "v"}, map[string]interface{}{"k": "v"}},
		{"any map", map[interface{}]interface{}{1: "v"}, map[string]interface{}{"1": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, Normalize(tt.input))
		})
	}
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect int64
		hasErr bool
	}{
		{"int", 123, 123, false},
		{"int64", int64(123), 123, false},
		{"uint64", uint64(123), 123, false},
		{"float64", 1.9, 1, false},
		{"bool", true, 1, false},
		{"string", "123", 123, false},
		{"decimal string", " 12.7 ", 12, false},
		{"invalid string", "abc", 0, true},
		{"invalid type", []int{1, 2, 3}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ToInt64(tt.input))
			_, err := ToInt64E(tt.input)
			assert.Equal(t, tt.hasErr, err != nil)
		})
	}
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect float64
		hasErr bool
	}{
		{"int", 2, 2, false},
		{"float32", float32(0.25), 0.25, false},
		{"string", "1.5", 1.5, false},
		{"invalid string", "x", 0, true},
		{"nil", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ToFloat64(tt.input))
			_, err := ToFloat64E(tt.input)
			assert.Equal(t, tt.hasErr, err != nil)
		})
	}
}

func TestToBool(t *testing.T) {
	tests := []struct {
		name   string
		input  interface{}
		expect bool
		hasErr bool
	}{
		{"bool", true, true, false},
		{"zero", 0, false, false},
		{"float", 0.1, true, false},
		{"string", "true", true, false},
		{"invalid", "maybe", false, true},
		{"map", map[string]interface{}{}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, ToBool(tt.input))
			_, err := ToBoolE(tt.input)
			assert.Equal(t, tt.hasErr, err != nil)
		})
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "abc", ToString("abc"))
	assert.Equal(t, "42", ToString(42))
	assert.Equal(t, "1.5", ToString(float32(1.5)))
	assert.Equal(t, "false", ToString(false))
	assert.Equal(t, `{"a":1}`, ToString(map[string]interface{}{"a": 1}))
	assert.Equal(t, `["x"]`, ToString([]string{"x"}))
}
