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

package el

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplate(t *testing.T) {
	data := map[string]interface{}{"source": "host-a", "level": int64(3), "tags": map[string]interface{}{"env": "prod"}}

	tmpl, err := NewTemplate("${level * 2}")
	require.Nil(t, err)
	_, ok := tmpl.(*ExprTemplate)
	assert.True(t, ok)
	v, err := tmpl.Execute(data)
	require.Nil(t, err)
	assert.EqualValues(t, 6, v)

	tmpl, err = NewTemplate("host=${source} env=${tags.env} missing=${nothing}")
	require.Nil(t, err)
	assert.True(t, tmpl.HasVar())
	v, err = tmpl.Execute(data)
	require.Nil(t, err)
	assert.Equal(t, "host=host-a env=prod missing=", v)

	tmpl, err = NewTemplate("plain text")
	require.Nil(t, err)
	assert.False(t, tmpl.HasVar())
	v, _ = tmpl.Execute(data)
	assert.Equal(t, "plain text", v)
}

func TestTemplateErrors(t *testing.T) {
	_, err := NewTemplate("${1 +}")
	assert.NotNil(t, err)
	_, err = NewTemplate("a ${(} b")
	assert.NotNil(t, err)
}

func TestTwoPlaceholdersOnly(t *testing.T) {
	tmpl, err := NewTemplate("${a}${b}")
	require.Nil(t, err)
	v, err := tmpl.Execute(map[string]interface{}{"a": "x", "b": "y"})
	require.Nil(t, err)
	assert.Equal(t, "xy", v)
}
