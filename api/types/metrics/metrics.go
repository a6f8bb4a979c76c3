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

// Package metrics defines the sink the interpreter reports rule, stage and
// message counters to, and an in-memory implementation of it.
package metrics

import (
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Sink receives processing metrics. Implementations must be safe for concurrent use.
type Sink interface {
	// RuleEvaluated is called after a rule condition was evaluated.
	RuleEvaluated(pipeline, rule string, matched bool, d time.Duration)
	// RuleExecuted is called after the statements of a matched rule ran.
	RuleExecuted(pipeline, rule string, d time.Duration)
	// RuleFailed is called for every evaluation error raised by a rule.
	RuleFailed(pipeline, rule string)
	// StageExecuted is called after a stage ran for a message.
	StageExecuted(pipeline string, stage int, passed bool)
	// MessageProcessed is called once per input message.
	MessageProcessed(outputs int, dropped bool, d time.Duration)
}

// Nop discards all metrics.
type Nop struct{}

var _ Sink = Nop{}

func (Nop) RuleEvaluated(string, string, bool, time.Duration) {}
func (Nop) RuleExecuted(string, string, time.Duration) {}
func (Nop) RuleFailed(string, string) {}
func (Nop) StageExecuted(string, int, bool) {}
func (Nop) MessageProcessed(int, bool, time.Duration) {}

// RuleMetrics holds the counters of one rule.
type RuleMetrics struct {
	Evaluated int64 // Number of condition evaluations
	Matched   int64 // Number of conditions that were true
	Executed  int64 // Number of statement block executions
	Failed    int64 // Number of evaluation errors
	Nanos     int64 // Total time spent in condition and statements
}

func (m *RuleMetrics) get() RuleMetrics {
	return RuleMetrics{
		Evaluated: atomic.LoadInt64(&m.Evaluated),
		Matched:   atomic.LoadInt64(&m.Matched),
		Executed:  atomic.LoadInt64(&m.Executed),
		Failed:    atomic.LoadInt64(&m.Failed),
		Nanos:     atomic.LoadInt64(&m.Nanos),
	}
}

// StageMetrics holds the counters of one pipeline stage.
type StageMetrics struct {
	Executed int64
	Passed   int64
}

// MessageMetrics holds the per-message counters.
type MessageMetrics struct {
	Processed int64 // Number of input messages
	Outputs   int64 // Number of messages emitted, clones included
	Dropped   int64 // Number of input messages that were dropped
	Nanos     int64
}

// EngineMetrics is the in-memory Sink.
type EngineMetrics struct {
	rules    sync.Map // rule name -> *RuleMetrics
	stages   sync.Map // pipeline/stage -> *StageMetrics
	messages MessageMetrics
}

var _ Sink = (*EngineMetrics)(nil)

// NewEngineMetrics creates a new instance of EngineMetrics.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{}
}

func (m *EngineMetrics) rule(name string) *RuleMetrics {
	if v, ok := m.rules.Load(name); ok {
		return v.(*RuleMetrics)
	}
	v, _ := m.rules.LoadOrStore(name, &RuleMetrics{})
	return v.(*RuleMetrics)
}

func (m *EngineMetrics) stage(pipeline string, stage int) *StageMetrics {
	key := StageKey(pipeline, stage)
	if v, ok := m.stages.Load(key); ok {
		return v.(*StageMetrics)
	}
	v, _ := m.stages.LoadOrStore(key, &StageMetrics{})
	return v.(*StageMetrics)
}

func (m *EngineMetrics) RuleEvaluated(_, rule string, matched bool, d time.Duration) {
	r := m.rule(rule)
	atomic.AddInt64(&r.Evaluated, 1)
	if matched {
		atomic.AddInt64(&r.Matched, 1)
	}
	atomic.AddInt64(&r.Nanos, int64(d))
}

func (m *EngineMetrics) RuleExecuted(_, rule string, d time.Duration) {
	r := m.rule(rule)
	atomic.AddInt64(&r.Executed, 1)
	atomic.AddInt64(&r.Nanos, int64(d))
}

func (m *EngineMetrics) RuleFailed(_, rule string) {
	atomic.AddInt64(&m.rule(rule).Failed, 1)
}

func (m *EngineMetrics) StageExecuted(pipeline string, stage int, passed bool) {
	s := m.stage(pipeline, stage)
	atomic.AddInt64(&s.Executed, 1)
	if passed {
		atomic.AddInt64(&s.Passed, 1)
	}
}

func (m *EngineMetrics) MessageProcessed(outputs int, dropped bool, d time.Duration) {
	atomic.AddInt64(&m.messages.Processed, 1)
	atomic.AddInt64(&m.messages.Outputs, int64(outputs))
	if dropped {
		atomic.AddInt64(&m.messages.Dropped, 1)
	}
	atomic.AddInt64(&m.messages.Nanos, int64(d))
}

// Rule returns a copy of the counters of one rule.
func (m *EngineMetrics) Rule(name string) RuleMetrics {
	if v, ok := m.rules.Load(name); ok {
		return v.(*RuleMetrics).get()
	}
	return RuleMetrics{}
}

// Stage returns a copy of the counters of one pipeline stage.
func (m *EngineMetrics) Stage(pipeline string, stage int) StageMetrics {
	if v, ok := m.stages.Load(StageKey(pipeline, stage)); ok {
		s := v.(*StageMetrics)
		return StageMetrics{Executed: atomic.LoadInt64(&s.Executed), Passed: atomic.LoadInt64(&s.Passed)}
	}
	return StageMetrics{}
}

// Messages returns a copy of the message counters.
func (m *EngineMetrics) Messages() MessageMetrics {
	return MessageMetrics{
		Processed: atomic.LoadInt64(&m.messages.Processed),
		Outputs:   atomic.LoadInt64(&m.messages.Outputs),
		Dropped:   atomic.LoadInt64(&m.messages.Dropped),
		Nanos:     atomic.LoadInt64(&m.messages.Nanos),
	}
}

// Rules lists the names of all rules with counters, sorted.
func (m *EngineMetrics) Rules() []string {
	var names []string
	m.rules.Range(func(key, _ interface{}) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}

// Reset resets all metrics to zero.
func (m *EngineMetrics) Reset() {
	m.rules.Range(func(key, _ interface{}) bool {
		m.rules.Delete(key)
		return true
	})
	m.stages.Range(func(key, _ interface{}) bool {
		m.stages.Delete(key)
		return true
	})
	atomic.StoreInt64(&m.messages.Processed, 0)
	atomic.StoreInt64(&m.messages.Outputs, 0)
	atomic.StoreInt64(&m.messages.Dropped, 0)
	atomic.StoreInt64(&m.messages.Nanos, 0)
}

// StageKey is the key stage counters are stored under.
func StageKey(pipeline string, stage int) string {
	return pipeline + "/" + strconv.Itoa(stage)
}
