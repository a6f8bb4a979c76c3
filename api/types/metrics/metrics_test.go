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

package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngineMetrics(t *testing.T) {
	m := NewEngineMetrics()
	m.RuleEvaluated("p", "r1", true, time.Millisecond)
	m.RuleEvaluated("p", "r1", false, time.Millisecond)
	m.RuleExecuted("p", "r1", time.Millisecond)
	m.RuleFailed("p", "r1")
	m.StageExecuted("p", 0, true)
	m.StageExecuted("p", 0, false)
	m.MessageProcessed(2, false, time.Millisecond)
	m.MessageProcessed(0, true, time.Millisecond)

	assert.Equal(t, RuleMetrics{
		Evaluated: 2,
		Matched:   1,
		Executed:  1,
		Failed:    1,
		Nanos:     int64(3 * time.Millisecond),
	}, m.Rule("r1"))
	assert.Equal(t, StageMetrics{Executed: 2, Passed: 1}, m.Stage("p", 0))
	msgs := m.Messages()
	assert.Equal(t, int64(2), msgs.Processed)
	assert.Equal(t, int64(2), msgs.Outputs)
	assert.Equal(t, int64(1), msgs.Dropped)
	assert.Equal(t, []string{"r1"}, m.Rules())

	m.Reset()
	assert.Equal(t, RuleMetrics{}, m.Rule("r1"))
	assert.Equal(t, StageMetrics{}, m.Stage("p", 0))
	assert.Equal(t, int64(0), m.Messages().Processed)
}

func TestEngineMetricsConcurrent(t *testing.T) {
	m := NewEngineMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RuleEvaluated("p", "r", true, 0)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(5000), m.Rule("r").Matched)
}
