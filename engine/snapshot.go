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
	"sort"
	"sync/atomic"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
	"github.com/rulego/rulepipe/eval"
)

// PipelineEntry is a linked pipeline together with the id it is stored under.
type PipelineEntry struct {
	ID       string
	Pipeline *ast.Pipeline
}

// Snapshot is an immutable, fully linked configuration: rules, pipelines,
// stream connections and the function table they were linked against.
//
// A snapshot is reference counted. The manager holds one reference while the
// snapshot is current; every message being processed holds another. The
// snapshot is retired when the last reference is released.
type Snapshot struct {
	version     uint64
	digest      string
	table       *types.FunctionTable
	rules       map[string]*ast.Rule
	executables map[string]eval.Executable
	pipelines   map[string]*PipelineEntry
	// connections maps a stream to its pipelines, ordered by pipeline name.
	connections map[string][]*PipelineEntry
	errors      []*types.ConfigurationError

	refs     int64
	onRetire func(s *Snapshot)
}

func newSnapshot(version uint64, digest string, table *types.FunctionTable) *Snapshot {
	return &Snapshot{
		version:     version,
		digest:      digest,
		table:       table,
		rules:       make(map[string]*ast.Rule),
		executables: make(map[string]eval.Executable),
		pipelines:   make(map[string]*PipelineEntry),
		connections: make(map[string][]*PipelineEntry),
		refs:        1,
	}
}

// Version increases with every published snapshot of a manager.
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Table is the function table the rules of the snapshot are linked against.
func (s *Snapshot) Table() *types.FunctionTable {
	return s.table
}

// Rule returns a linked rule by name.
func (s *Snapshot) Rule(name string) (*ast.Rule, bool) {
	r, ok := s.rules[name]
	return r, ok
}

// RuleNames lists the rules of the snapshot, sorted.
func (s *Snapshot) RuleNames() []string {
	names := make([]string, 0, len(s.rules))
	for name := range s.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Executable returns the runnable form of a rule.
func (s *Snapshot) Executable(name string) (eval.Executable, bool) {
	e, ok := s.executables[name]
	return e, ok
}

// Pipeline returns a linked pipeline by id.
func (s *Snapshot) Pipeline(id string) (*PipelineEntry, bool) {
	p, ok := s.pipelines[id]
	return p, ok
}

// PipelineIDs lists the pipelines of the snapshot, sorted.
func (s *Snapshot) PipelineIDs() []string {
	ids := make([]string, 0, len(s.pipelines))
	for id := range s.pipelines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Connected returns the pipelines attached to a stream, ordered by pipeline name.
func (s *Snapshot) Connected(stream string) []*PipelineEntry {
	return s.connections[stream]
}

// Errors lists the entities that were excluded from the snapshot.
func (s *Snapshot) Errors() []*types.ConfigurationError {
	return s.errors
}

// Refs is the current reference count.
func (s *Snapshot) Refs() int64 {
	return atomic.LoadInt64(&s.refs)
}

// retain takes a reference. It fails once the snapshot was retired.
func (s *Snapshot) retain() bool {
	for {
		n := atomic.LoadInt64(&s.refs)
		if n <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt64(&s.refs, n, n+1) {
			return true
		}
	}
}

// Release drops a reference taken by Manager.Acquire.
func (s *Snapshot) Release() {
	if atomic.AddInt64(&s.refs, -1) == 0 && s.onRetire != nil {
		s.onRetire(s)
	}
}

// resolve returns the pipelines that apply to a message, ordered by name
// and without duplicates. A message without streams belongs to defaultStream.
func (s *Snapshot) resolve(msg types.Message, defaultStream string) []*PipelineEntry {
	streams := msg.Streams()
	if len(streams) == 0 {
		streams = []string{defaultStream}
	}
	if len(streams) == 1 {
		return s.connections[streams[0]]
	}
	seen := make(map[string]struct{})
	var out []*PipelineEntry
	for _, stream := range streams {
		for _, p := range s.connections[stream] {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, p)
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []*PipelineEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Pipeline.Name != b.Pipeline.Name {
			return a.Pipeline.Name < b.Pipeline.Name
		}
		return a.ID < b.ID
	})
}
