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
	"fmt"
	"sort"
	"time"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/api/types/metrics"
	"github.com/rulego/rulepipe/ast"
	"github.com/rulego/rulepipe/eval"
	"github.com/rulego/rulepipe/utils/runtime"
)

// Interpreter runs messages through the pipelines of a snapshot.
// It is safe for concurrent use; every message is processed on the calling goroutine.
type Interpreter struct {
	source SnapshotSource
	config types.Config
}

// NewInterpreter creates an interpreter that processes every message against
// the snapshot current when the message arrives.
//
// Usage:
//
//	m := engine.NewManager(store)
//	_ = m.Reload(ctx)
//	in := engine.NewInterpreter(m, types.WithConfig(m.Config()))
//	out := in.Process(msg)
func NewInterpreter(source SnapshotSource, opts ...types.Option) *Interpreter {
	config := types.NewConfig(opts...)
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.Nop{}
	}
	if config.DefaultStream == "" {
		config.DefaultStream = types.DefaultStream
	}
	return &Interpreter{source: source, config: config}
}

// Process runs msg through the current snapshot and returns the surviving
// messages: msg itself unless it was dropped, followed by its clones in the
// order they were created. Without a snapshot msg is returned untouched.
func (i *Interpreter) Process(msg types.Message) []types.Message {
	s, err := i.source.Acquire()
	if err != nil {
		return []types.Message{msg}
	}
	defer s.Release()
	return i.ProcessWith(s, msg)
}

// run is one message making its way through the stages. A clone starts its
// own run in the stage it was created in, with the pipelines ordered after
// the one that created it, so every stage is completed before the next.
type run struct {
	msg    types.Message
	active map[string]bool
	// next is the stage index the run starts at and from the pipeline
	// position it starts at within that stage.
	next int
	from int
}

// ProcessWith runs msg through the pipelines of s.
func (i *Interpreter) ProcessWith(s *Snapshot, msg types.Message) []types.Message {
	start := time.Now()
	pipelines := s.resolve(msg, i.config.DefaultStream)
	stages := stageNumbers(pipelines)

	active := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		active[p.ID] = true
	}
	queue := []*run{{msg: msg, active: active}}
	var out []types.Message
	for n := 0; n < len(queue); n++ {
		r := queue[n]
		clones := i.runStages(s, r, pipelines, stages)
		queue = append(queue, clones...)
		if !r.msg.Dropped() {
			out = append(out, r.msg)
		}
	}
	i.config.Metrics.MessageProcessed(len(out), msg.Dropped(), time.Since(start))
	return out
}

// runStages walks the stage numbers of all applicable pipelines in ascending
// order. Each number is run by every active pipeline that has it before any
// pipeline moves on to the next number.
func (i *Interpreter) runStages(s *Snapshot, r *run, pipelines []*PipelineEntry, stages []int) (clones []*run) {
	contexts := make(map[string]*eval.Context, len(pipelines))
	defer func() {
		if e := recover(); e != nil {
			i.config.Logger.Printf("panic while processing message %s: %v\n%s", r.msg.ID(), e, runtime.Stack())
			r.msg.AddProcessingError(fmt.Errorf("processing panic: %v", e))
		}
	}()

	for idx := r.next; idx < len(stages); idx++ {
		number := stages[idx]
		first := 0
		if idx == r.next {
			first = r.from
		}
		for pos := first; pos < len(pipelines); pos++ {
			p := pipelines[pos]
			if !r.active[p.ID] {
				continue
			}
			stage, ok := findStage(p.Pipeline, number)
			if !ok {
				continue
			}
			ctx, ok := contexts[p.ID]
			if !ok {
				ctx = eval.NewContext(r.msg, s.table, i.config.DefaultStream)
				contexts[p.ID] = ctx
			}
			ctx.Enter(p.Pipeline.Name, number)
			passed := i.runStage(s, ctx, stage)
			dropped := r.msg.Dropped()
			if !dropped {
				i.config.Metrics.StageExecuted(p.Pipeline.Name, number, passed)
				if !passed {
					r.active[p.ID] = false
				}
			}
			for _, c := range ctx.TakeClones() {
				clones = append(clones, &run{msg: c, active: copyActive(r.active), next: idx, from: pos + 1})
			}
			if dropped {
				return clones
			}
		}
		if !anyActive(r.active) {
			return clones
		}
	}
	return clones
}

// runStage evaluates every rule of stage in order, executing the statements
// of each rule whose condition holds, and reports whether the stage passed.
func (i *Interpreter) runStage(s *Snapshot, ctx *eval.Context, stage *ast.Stage) bool {
	if len(stage.Rules) == 0 {
		return true
	}
	matched := 0
	for _, name := range stage.Rules {
		exe, ok := s.executables[name]
		if !ok {
			continue
		}
		ctx.BeginRule(name)
		before := ctx.ErrorCount()

		began := time.Now()
		ok = exe.Condition(ctx)
		i.config.Metrics.RuleEvaluated(ctx.Pipeline(), name, ok, time.Since(began))
		if ok {
			matched++
			began = time.Now()
			exe.Execute(ctx)
			i.config.Metrics.RuleExecuted(ctx.Pipeline(), name, time.Since(began))
		}

		for _, err := range ctx.Errors()[before:] {
			ctx.Message().AddProcessingError(err)
			i.config.Metrics.RuleFailed(ctx.Pipeline(), name)
		}
		if ctx.Message().Dropped() {
			return false
		}
	}
	if stage.Match == ast.MatchEither {
		return matched > 0
	}
	return matched == len(stage.Rules)
}

func findStage(p *ast.Pipeline, number int) (*ast.Stage, bool) {
	idx := sort.Search(len(p.Stages), func(i int) bool { return p.Stages[i].Number >= number })
	if idx < len(p.Stages) && p.Stages[idx].Number == number {
		return &p.Stages[idx], true
	}
	return nil, false
}

// stageNumbers is the ascending union of the stage numbers of pipelines.
func stageNumbers(pipelines []*PipelineEntry) []int {
	seen := make(map[int]struct{})
	var numbers []int
	for _, p := range pipelines {
		for _, st := range p.Pipeline.Stages {
			if _, ok := seen[st.Number]; !ok {
				seen[st.Number] = struct{}{}
				numbers = append(numbers, st.Number)
			}
		}
	}
	sort.Ints(numbers)
	return numbers
}

func copyActive(active map[string]bool) map[string]bool {
	out := make(map[string]bool, len(active))
	for k, v := range active {
		out[k] = v
	}
	return out
}

func anyActive(active map[string]bool) bool {
	for _, v := range active {
		if v {
			return true
		}
	}
	return false
}
