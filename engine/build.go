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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/ast"
	"github.com/rulego/rulepipe/codegen"
	"github.com/rulego/rulepipe/eval"
	"github.com/rulego/rulepipe/linker"
	"github.com/rulego/rulepipe/parser"
)

// sources is everything a snapshot is built from, ordered by id.
type sources struct {
	rules       []types.RuleSource
	pipelines   []types.PipelineSource
	connections []types.StreamConnection
}

func loadSources(ctx context.Context, store types.SourceStore) (*sources, error) {
	rules, err := store.LoadRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	pipelines, err := store.LoadPipelines(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pipelines: %w", err)
	}
	connections, err := store.LoadConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("load connections: %w", err)
	}
	src := &sources{
		rules:       append([]types.RuleSource(nil), rules...),
		pipelines:   append([]types.PipelineSource(nil), pipelines...),
		connections: append([]types.StreamConnection(nil), connections...),
	}
	sort.SliceStable(src.rules, func(i, j int) bool { return src.rules[i].ID < src.rules[j].ID })
	sort.SliceStable(src.pipelines, func(i, j int) bool { return src.pipelines[i].ID < src.pipelines[j].ID })
	sort.SliceStable(src.connections, func(i, j int) bool {
		return src.connections[i].StreamID < src.connections[j].StreamID
	})
	return src, nil
}

// digest fingerprints the sources and the function table they will be linked against.
func (s *sources) digest(table *types.FunctionTable) string {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(strconv.Itoa(len(p))))
			h.Write([]byte{':'})
			h.Write([]byte(p))
		}
	}
	write("table", strconv.FormatUint(table.Version(), 10))
	write(table.Names()...)
	for _, r := range s.rules {
		write("rule", r.ID, r.Title, r.Source)
	}
	for _, p := range s.pipelines {
		write("pipeline", p.ID, p.Title, p.Source)
	}
	for _, c := range s.connections {
		write("connection", c.StreamID)
		write(c.PipelineIDs...)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type parsedRule struct {
	rule *ast.Rule
	err  error
}

type parsedPipeline struct {
	pipeline *ast.Pipeline
	err      error
}

// build parses, links and optionally compiles src into an unpublished snapshot.
// Entities that fail are excluded and recorded; only cancellation of ctx fails the build.
func build(ctx context.Context, config types.Config, table *types.FunctionTable, src *sources, version uint64, digest string) (*Snapshot, error) {
	rules := make([]parsedRule, len(src.rules))
	pipelines := make([]parsedPipeline, len(src.pipelines))

	g, gctx := errgroup.WithContext(ctx)
	if config.ParseWorkers > 0 {
		g.SetLimit(config.ParseWorkers)
	}
	for i := range src.rules {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rules[i].rule, rules[i].err = parser.ParseRule(src.rules[i].Source)
			return nil
		})
	}
	for i := range src.pipelines {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pipelines[i].pipeline, pipelines[i].err = parser.ParsePipeline(src.pipelines[i].Source)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := newSnapshot(version, digest, table)
	exclude := func(kind types.EntityKind, source types.Source, err error) {
		s.errors = append(s.errors, &types.ConfigurationError{Kind: kind, ID: source.ID, Title: source.Title, Err: err})
	}

	for i, p := range rules {
		source := src.rules[i]
		if p.err != nil {
			exclude(types.EntityRule, source, p.err)
			continue
		}
		if _, ok := s.rules[p.rule.Name]; ok {
			exclude(types.EntityRule, source, &types.LinkError{
				Kind: types.EntityRule,
				Name: p.rule.Name,
				Pos:  p.rule.Position,
				Msg:  "duplicate rule name",
			})
			continue
		}
		linked, err := linker.LinkRule(p.rule, table)
		if err != nil {
			exclude(types.EntityRule, source, err)
			continue
		}
		s.rules[linked.Name] = linked
		s.executables[linked.Name] = executable(config, linked, table)
	}

	names := make(map[string]string)
	for i, p := range pipelines {
		source := src.pipelines[i]
		if p.err != nil {
			exclude(types.EntityPipeline, source, p.err)
			continue
		}
		if other, ok := names[p.pipeline.Name]; ok {
			exclude(types.EntityPipeline, source, &types.LinkError{
				Kind: types.EntityPipeline,
				Name: p.pipeline.Name,
				Pos:  p.pipeline.Position,
				Msg:  fmt.Sprintf("duplicate pipeline name, already used by %s", other),
			})
			continue
		}
		if _, ok := s.pipelines[source.ID]; ok {
			exclude(types.EntityPipeline, source, fmt.Errorf("duplicate pipeline id %s", source.ID))
			continue
		}
		linked, err := linker.LinkPipeline(p.pipeline, s.rules)
		if err != nil {
			exclude(types.EntityPipeline, source, err)
			continue
		}
		names[linked.Name] = source.ID
		s.pipelines[source.ID] = &PipelineEntry{ID: source.ID, Pipeline: linked}
	}

	for _, c := range src.connections {
		if c.StreamID == "" {
			s.errors = append(s.errors, &types.ConfigurationError{
				Kind: types.EntityConnection,
				Err:  fmt.Errorf("connection without stream id"),
			})
			continue
		}
		for _, id := range c.PipelineIDs {
			entry, ok := s.pipelines[id]
			if !ok {
				s.errors = append(s.errors, &types.ConfigurationError{
					Kind: types.EntityConnection,
					ID:   c.StreamID,
					Err:  fmt.Errorf("unknown pipeline %s", id),
				})
				continue
			}
			if !connected(s.connections[c.StreamID], id) {
				s.connections[c.StreamID] = append(s.connections[c.StreamID], entry)
			}
		}
	}
	for _, entries := range s.connections {
		sortEntries(entries)
	}
	return s, nil
}

func connected(entries []*PipelineEntry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

// executable compiles rule when codegen is enabled, falling back to the interpreter.
func executable(config types.Config, rule *ast.Rule, table *types.FunctionTable) eval.Executable {
	if config.Codegen {
		p, err := codegen.Compile(rule, table)
		if err == nil {
			return p
		}
		config.Logger.Printf("rule %q: codegen failed, using the interpreter: %v", rule.Name, err)
	}
	return eval.NewInterpreted(rule)
}
