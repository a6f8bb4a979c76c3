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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/rulepipe/api/types"
)

func TestDecodeSettings(t *testing.T) {
	s, err := DecodeSettings(map[string]interface{}{
		"codegen":        "true",
		"parse_workers":  "8",
		"default_stream": "all",
	})
	require.NoError(t, err)
	assert.Equal(t, Settings{Codegen: true, DefaultStream: "all", ParseWorkers: 8}, s)

	config := types.NewConfig(s.Options()...)
	assert.True(t, config.Codegen)
	assert.Equal(t, 8, config.ParseWorkers)
	assert.Equal(t, "all", config.DefaultStream)

	_, err = DecodeSettings(map[string]interface{}{"parse_workers": "lots"})
	assert.Error(t, err)
}
