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

package memory

import (
	"context"
	"testing"

	"github.com/rulego/rulepipe/api/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := New()
	changes := 0
	s.OnChange(func() { changes++ })

	require.NoError(t, s.PutRule(types.RuleSource{ID: "b", Source: "rule b"}))
	require.NoError(t, s.PutRule(types.RuleSource{ID: "a", Source: "rule a"}))
	assert.ErrorIs(t, s.PutRule(types.RuleSource{}), ErrEmptyID)
	require.NoError(t, s.PutPipeline(types.PipelineSource{ID: "p", Source: "pipeline"}))
	require.NoError(t, s.Connect("default", "p"))
	assert.Equal(t, 4, changes)

	rules, err := s.LoadRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "a", rules[0].ID)
	assert.False(t, rules[0].CreatedAt.IsZero())

	created := rules[0].CreatedAt
	require.NoError(t, s.PutRule(types.RuleSource{ID: "a", Source: "rule a2"}))
	rules, _ = s.LoadRules(context.Background())
	assert.Equal(t, created, rules[0].CreatedAt)
	assert.Equal(t, "rule a2", rules[0].Source)

	conns, err := s.LoadConnections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.StreamConnection{{StreamID: "default", PipelineIDs: []string{"p"}}}, conns)

	require.NoError(t, s.Connect("default"))
	conns, _ = s.LoadConnections(context.Background())
	assert.Empty(t, conns)

	s.DeleteRule("a")
	s.DeletePipeline("p")
	rules, _ = s.LoadRules(context.Background())
	pipelines, _ := s.LoadPipelines(context.Background())
	assert.Len(t, rules, 1)
	assert.Empty(t, pipelines)
}
