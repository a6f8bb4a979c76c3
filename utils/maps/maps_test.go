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

package maps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type settings struct {
	Dir      string
	Codegen  bool
	Workers  int `mapstructure:"parse_workers"`
	Interval time.Duration
}

func TestWeakMap2Struct(t *testing.T) {
	var s settings
	err := WeakMap2Struct(map[string]string{"dir": "rules", "codegen": "true", "parse_workers": "8", "interval": "5s"}, &s)
	assert.Nil(t, err)
	assert.Equal(t, settings{Dir: "rules", Codegen: true, Workers: 8, Interval: 5 * time.Second}, s)

	err = WeakMap2Struct(map[string]string{"parse_workers": "eight"}, &s)
	assert.NotNil(t, err)
}
