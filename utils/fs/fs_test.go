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


package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.txt")
	data := []byte("hello world")

	require.NoError(t, SaveFile(path, data))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, SaveFile(path, []byte("replaced")))
	got, _ = os.ReadFile(path)
	assert.Equal(t, "replaced", string(got))
}

func TestIsExist(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exists.txt")
	assert.False(t, IsExist(path))
	require.NoError(t, os.WriteFile(path, nil, 0644))
	assert.True(t, IsExist(path))
	assert.True(t, IsExist(dir))
}

func TestGetFilePaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.rule", "a.rule", "c.pipeline", "nested/d.rule", "skip/e.rule", "old.rule.bak"} {
		require.NoError(t, SaveFile(filepath.Join(dir, name), []byte(name)))
	}

	paths, err := GetFilePaths(filepath.Join(dir, "*.rule"), "skip")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.rule"),
		filepath.Join(dir, "b.rule"),
		filepath.Join(dir, "nested", "d.rule"),
	}, paths)

	_, err = GetFilePaths(filepath.Join(dir, "missing", "*.rule"))
	assert.Error(t, err)
}
