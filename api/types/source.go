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
	"context"
	"time"
)

// Source is a stored rule or pipeline definition.
type Source struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string    `json:"source" yaml:"source"`
	CreatedAt   time.Time `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	ModifiedAt  time.Time `json:"modifiedAt,omitempty" yaml:"modifiedAt,omitempty"`
}

// RuleSource is the stored text of one rule.
type RuleSource = Source

// PipelineSource is the stored text of one pipeline.
type PipelineSource = Source

// StreamConnection attaches pipelines to a stream.
type StreamConnection struct {
	StreamID    string   `json:"streamId" yaml:"stream"`
	PipelineIDs []string `json:"pipelineIds" yaml:"pipelines"`
}

// RuleSourceProvider loads all stored rule sources.
type RuleSourceProvider interface {
	LoadRules(ctx context.Context) ([]RuleSource, error)
}

// PipelineSourceProvider loads all stored pipeline sources.
type PipelineSourceProvider interface {
	LoadPipelines(ctx context.Context) ([]PipelineSource, error)
}

// ConnectionProvider loads all stream to pipeline connections.
type ConnectionProvider interface {
	LoadConnections(ctx context.Context) ([]StreamConnection, error)
}

// SourceStore provides every kind of configuration source.
type SourceStore interface {
	RuleSourceProvider
	PipelineSourceProvider
	ConnectionProvider
}
