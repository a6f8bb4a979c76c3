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


package engine

import (
	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/utils/maps"
)

// Settings are the engine options that can be read from a configuration file.
// Keys are snake_case like the rest of the command configuration.
type Settings struct {
	Codegen       bool   `mapstructure:"codegen"`
	DefaultStream string `mapstructure:"default_stream"`
	ParseWorkers  int    `mapstructure:"parse_workers"`
}

// DecodeSettings reads Settings from a loosely typed map such as an ini section,
// so "true" and "8" are accepted for Codegen and ParseWorkers.
func DecodeSettings(input map[string]interface{}) (Settings, error) {
	var s Settings
	err := maps.WeakMap2Struct(input, &s)
	return s, err
}

// Options converts the settings into engine options.
func (s Settings) Options() []types.Option {
	opts := []types.Option{types.WithCodegen(s.Codegen), types.WithParseWorkers(s.ParseWorkers)}
	if s.DefaultStream != "" {
		opts = append(opts, types.WithDefaultStream(s.DefaultStream))
	}
	return opts
}
