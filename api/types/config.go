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

package types

import (
	"time"

	"github.com/rulego/rulepipe/api/types/metrics"
)

// DefaultStream is the stream messages without stream membership are routed through.
const DefaultStream = "default"

// BuildReport summarizes one configuration build.
type BuildReport struct {
	// Version of the published snapshot. Zero when nothing was published.
	Version     uint64
	Rules       int
	Pipelines   int
	Connections int
	// Errors lists every entity excluded from the snapshot.
	Errors   []*ConfigurationError
	Duration time.Duration
	// Unchanged is true when the sources matched the active snapshot and nothing was published.
	Unchanged bool
}

// Config defines the configuration for the rule engine.
type Config struct {
	// Logger is the logging interface, defaulting to `DefaultLogger()`.
	Logger Logger
	// Functions supplies the function table snapshots are linked against.
	// Nil means the built-in function library.
	Functions FunctionProvider
	// Metrics receives per-rule, per-stage and per-message metrics, defaulting to metrics.Nop.
	Metrics metrics.Sink
	// Codegen compiles linked rules to closures instead of walking the syntax tree.
	Codegen bool
	// DefaultStream is the stream messages without stream membership belong to.
	DefaultStream string
	// ParseWorkers bounds concurrent parsing during a snapshot build. Zero means unbounded.
	ParseWorkers int
	// OnBuild is called after every configuration build attempt that loaded sources.
	OnBuild func(report BuildReport)
	// OnSnapshotRetired is called when the last reference to a snapshot is released.
	OnSnapshotRetired func(version uint64)
}

// NewConfig creates a new Config and applies the options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		Logger:        DefaultLogger(),
		Metrics:       metrics.Nop{},
		DefaultStream: DefaultStream,
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
