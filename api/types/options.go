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
	"errors"

	"github.com/rulego/rulepipe/api/types/metrics"
)

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithConfig is an option that replaces the whole Config.
func WithConfig(config Config) Option {
	return func(c *Config) error {
		*c = config
		return nil
	}
}

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = NewLogger(logger)
		return nil
	}
}

// WithFunctions is an option that sets the function provider of the Config.
func WithFunctions(functions FunctionProvider) Option {
	return func(c *Config) error {
		c.Functions = functions
		return nil
	}
}

// WithMetrics is an option that sets the metrics sink of the Config.
func WithMetrics(sink metrics.Sink) Option {
	return func(c *Config) error {
		if sink == nil {
			sink = metrics.Nop{}
		}
		c.Metrics = sink
		return nil
	}
}

// WithCodegen is an option that enables compiling rules to closures.
func WithCodegen(enabled bool) Option {
	return func(c *Config) error {
		c.Codegen = enabled
		return nil
	}
}

// WithDefaultStream is an option that sets the stream of messages without stream membership.
func WithDefaultStream(stream string) Option {
	return func(c *Config) error {
		if stream == "" {
			return errors.New("default stream must not be empty")
		}
		c.DefaultStream = stream
		return nil
	}
}

// WithParseWorkers is an option that bounds concurrent parsing during builds.
func WithParseWorkers(n int) Option {
	return func(c *Config) error {
		c.ParseWorkers = n
		return nil
	}
}

// WithOnBuild is an option that sets the build report callback of the Config.
func WithOnBuild(onBuild func(report BuildReport)) Option {
	return func(c *Config) error {
		c.OnBuild = onBuild
		return nil
	}
}

// WithOnSnapshotRetired is an option that sets the snapshot retirement callback of the Config.
func WithOnSnapshotRetired(fn func(version uint64)) Option {
	return func(c *Config) error {
		c.OnSnapshotRetired = fn
		return nil
	}
}
