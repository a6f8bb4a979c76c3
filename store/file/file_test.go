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


package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rulego/rulepipe/api/types"
)

func TestStore(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	rules, err := s.LoadRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
	conns, err := s.LoadConnections(ctx)
	require.NoError(t, err)
	assert.Empty(t, conns)

	require.NoError(t, s.PutRule("r1", `rule "r1" when true then end`))
	require.NoError(t, s.PutRule("r0", `rule "r0" when true then end`))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RulesDir, "r2.rule.bak"), []byte("x"), 0644))
	require.NoError(t, s.PutPipeline("p", `pipeline "p" stage 0 match all rule "r1"; end`))
	require.NoError(t, s.SaveConnections([]types.StreamConnection{{StreamID: "default", PipelineIDs: []string{"p"}}}))

	rules, err = s.LoadRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "r0", rules[0].ID)
	assert.Equal(t, "r0.rule", rules[0].Title)
	assert.Equal(t, `rule "r0" when true then end`, rules[0].Source)
	assert.False(t, rules[0].ModifiedAt.IsZero())

	pipelines, err := s.LoadPipelines(ctx)
	require.NoError(t, err)
	require.Len(t, pipelines, 1)
	assert.Equal(t, "p", pipelines[0].ID)

	conns, err = s.LoadConnections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.StreamConnection{{StreamID: "default", PipelineIDs: []string{"p"}}}, conns)
}

func TestConnectionsFormat(t *testing.T) {
	dir := t.TempDir()
	data := []byte("connections:\n  - stream: default\n    pipelines: [a, b]\n  - stream: audit\n    pipelines:\n      - c\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConnectionsFile), data, 0644))

	conns, err := New(dir).LoadConnections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.StreamConnection{
		{StreamID: "default", PipelineIDs: []string{"a", "b"}},
		{StreamID: "audit", PipelineIDs: []string{"c"}},
	}, conns)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConnectionsFile), []byte("connections: {"), 0644))
	_, err = New(dir).LoadConnections(context.Background())
	assert.ErrorContains(t, err, ConnectionsFile)
}

func TestDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.PutRule("r", "a"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, RulesDir, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, RulesDir, "nested", "r.rule"), []byte("b"), 0644))

	_, err := s.LoadRules(context.Background())
	assert.ErrorContains(t, err, "same id r")
}
