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

// Package memory is an in-memory source store, used by tests and embedders
// that manage configuration themselves.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rulego/rulepipe/api/types"
)

// ErrEmptyID is returned when a source without id is stored.
var ErrEmptyID = errors.New("id is empty")

// Store keeps rule sources, pipeline sources and stream connections in memory.
type Store struct {
	rules       map[string]types.RuleSource
	pipelines   map[string]types.PipelineSource
	connections map[string][]string
	onChange    func()
	sync.RWMutex
}

var _ types.SourceStore = (*Store)(nil)

func New() *Store {
	return &Store{
		rules:       make(map[string]types.RuleSource),
		pipelines:   make(map[string]types.PipelineSource),
		connections: make(map[string][]string),
	}
}

// OnChange registers fn to be called after every modification,
// typically Manager.OnConfigurationChanged.
func (s *Store) OnChange(fn func()) {
	s.Lock()
	defer s.Unlock()
	s.onChange = fn
}

func (s *Store) changed() {
	s.RLock()
	fn := s.onChange
	s.RUnlock()
	if fn != nil {
		fn()
	}
}

// PutRule creates or replaces a rule source.
func (s *Store) PutRule(src types.RuleSource) error {
	if err := s.put(s.rules, src); err != nil {
		return err
	}
	s.changed()
	return nil
}

// PutPipeline creates or replaces a pipeline source.
func (s *Store) PutPipeline(src types.PipelineSource) error {
	if err := s.put(s.pipelines, src); err != nil {
		return err
	}
	s.changed()
	return nil
}

func (s *Store) put(m map[string]types.Source, src types.Source) error {
	if src.ID == "" {
		return ErrEmptyID
	}
	now := time.Now()
	s.Lock()
	defer s.Unlock()
	if old, ok := m[src.ID]; ok && src.CreatedAt.IsZero() {
		src.CreatedAt = old.CreatedAt
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	src.ModifiedAt = now
	m[src.ID] = src
	return nil
}

// DeleteRule removes a rule source.
func (s *Store) DeleteRule(id string) {
	s.Lock()
	delete(s.rules, id)
	s.Unlock()
	s.changed()
}

// DeletePipeline removes a pipeline source.
func (s *Store) DeletePipeline(id string) {
	s.Lock()
	delete(s.pipelines, id)
	s.Unlock()
	s.changed()
}

// Connect replaces the pipelines attached to stream. No pipelines detaches the stream.
func (s *Store) Connect(stream string, pipelineIDs ...string) error {
	if stream == "" {
		return ErrEmptyID
	}
	s.Lock()
	if len(pipelineIDs) == 0 {
		delete(s.connections, stream)
	} else {
		s.connections[stream] = append([]string(nil), pipelineIDs...)
	}
	s.Unlock()
	s.changed()
	return nil
}

func (s *Store) LoadRules(ctx context.Context) ([]types.RuleSource, error) {
	return s.load(s.rules), nil
}

func (s *Store) LoadPipelines(ctx context.Context) ([]types.PipelineSource, error) {
	return s.load(s.pipelines), nil
}

func (s *Store) load(m map[string]types.Source) []types.Source {
	s.RLock()
	defer s.RUnlock()
	out := make([]types.Source, 0, len(m))
	for _, src := range m {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) LoadConnections(ctx context.Context) ([]types.StreamConnection, error) {
	s.RLock()
	defer s.RUnlock()
	out := make([]types.StreamConnection, 0, len(s.connections))
	for stream, ids := range s.connections {
		out = append(out, types.StreamConnection{StreamID: stream, PipelineIDs: append([]string(nil), ids...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StreamID < out[j].StreamID })
	return out, nil
}
