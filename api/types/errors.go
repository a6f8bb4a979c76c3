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
	"fmt"
	"strings"
)

// Position is a 1-based line and column in rule or pipeline source.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position was set by the parser.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// EntityKind names the configuration entity an error belongs to.
type EntityKind string

const (
	EntityRule       EntityKind = "rule"
	EntityPipeline   EntityKind = "pipeline"
	EntityConnection EntityKind = "connection"
)

// ParseError reports a syntax error in rule or pipeline source.
type ParseError struct {
	Pos Position
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// LinkError reports a semantic problem found while linking a parsed entity:
// an unknown function, bad arity or argument types, a mutating call inside a
// condition, an undeclared variable, or an unresolved stage rule reference.
type LinkError struct {
	Kind EntityKind
	Name string
	Pos  Position
	Msg  string
}

func (e *LinkError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	if e.Name != "" {
		sb.WriteString(" ")
		sb.WriteString(fmt.Sprintf("%q", e.Name))
	}
	if e.Pos.IsValid() {
		sb.WriteString(" at line ")
		sb.WriteString(e.Pos.String())
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	return sb.String()
}

// EvaluationError is a non-fatal error raised while evaluating a rule against a message.
// The value of the failing expression becomes null and processing continues.
type EvaluationError struct {
	Pipeline string
	Stage    int
	Rule     string
	Function string
	Pos      Position
	Err      error
}

func (e *EvaluationError) Error() string {
	var sb strings.Builder
	sb.WriteString("evaluation of rule ")
	sb.WriteString(fmt.Sprintf("%q", e.Rule))
	if e.Pipeline != "" {
		sb.WriteString(fmt.Sprintf(" in pipeline %q stage %d", e.Pipeline, e.Stage))
	}
	if e.Function != "" {
		sb.WriteString(fmt.Sprintf(" calling %s()", e.Function))
	}
	if e.Pos.IsValid() {
		sb.WriteString(" at line ")
		sb.WriteString(e.Pos.String())
	}
	sb.WriteString(": ")
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ConfigurationError records an entity that was excluded from a snapshot.
// Err is the underlying ParseError or LinkError.
type ConfigurationError struct {
	Kind  EntityKind
	ID    string
	Title string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s %s (%s) excluded: %v", e.Kind, e.ID, e.Title, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
