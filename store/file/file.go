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


// Package file loads rule, pipeline and connection sources from a directory:
//
//	<dir>/rules/*.rule          one rule per file, id is the file name without extension
//	<dir>/pipelines/*.pipeline  one pipeline per file, id is the file name without extension
//	<dir>/connections.yaml      stream to pipeline connections
//
// connections.yaml lists the pipelines of every stream:
//
//	connections:
//	  - stream: default
//	    pipelines: [greetings, routing]
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/utils/fs"
)

const (
	RulesDir        = "rules"
	PipelinesDir    = "pipelines"
	RuleExt         = ".rule"
	PipelineExt     = ".pipeline"
	ConnectionsFile = "connections.yaml"
)

// Store reads sources from a directory on every load. It holds no state,
// so edits become visible with the next Manager reload.
type Store struct {
	dir string
	// Excluded are file and directory name patterns skipped while loading.
	Excluded []string
}

var _ types.SourceStore = (*Store)(nil)

func New(dir string) *Store {
	return &Store{dir: dir, Excluded: []string{".*", "*.bak", "*~"}}
}

// Dir returns the configuration directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) LoadRules(ctx context.Context) ([]types.RuleSource, error) {
	return s.load(ctx, RulesDir, RuleExt)
}

func (s *Store) LoadPipelines(ctx context.Context) ([]types.PipelineSource, error) {
	return s.load(ctx, PipelinesDir, PipelineExt)
}

func (s *Store) load(ctx context.Context, sub, ext string) ([]types.Source, error) {
	dir := filepath.Join(s.dir, sub)
	if !fs.IsExist(dir) {
		return nil, nil
	}
	paths, err := fs.GetFilePaths(filepath.Join(dir, "*"+ext), s.Excluded...)
	if err != nil {
		return nil, err
	}
	out := make([]types.Source, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(filepath.Base(path), ext)
		if other, ok := seen[id]; ok {
			return nil, fmt.Errorf("%s and %s have the same id %s", other, path, id)
		}
		seen[id] = path
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		rel, _ := filepath.Rel(dir, path)
		out = append(out, types.Source{
			ID:         id,
			Title:      rel,
			Source:     string(data),
			ModifiedAt: info.ModTime(),
		})
	}
	return out, nil
}

type connectionsFile struct {
	Connections []types.StreamConnection `yaml:"connections"`
}

// LoadConnections reads connections.yaml. A missing file means no connections.
func (s *Store) LoadConnections(ctx context.Context) ([]types.StreamConnection, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, ConnectionsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var f connectionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", ConnectionsFile, err)
	}
	return f.Connections, nil
}

// PutRule writes a rule file.
func (s *Store) PutRule(id, source string) error {
	return fs.SaveFile(filepath.Join(s.dir, RulesDir, id+RuleExt), []byte(source))
}

// PutPipeline writes a pipeline file.
func (s *Store) PutPipeline(id, source string) error {
	return fs.SaveFile(filepath.Join(s.dir, PipelinesDir, id+PipelineExt), []byte(source))
}

// SaveConnections replaces connections.yaml.
func (s *Store) SaveConnections(connections []types.StreamConnection) error {
	data, err := yaml.Marshal(connectionsFile{Connections: connections})
	if err != nil {
		return err
	}
	return fs.SaveFile(filepath.Join(s.dir, ConnectionsFile), data)
}
