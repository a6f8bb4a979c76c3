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

package eval

import (
	"github.com/rulego/rulepipe/api/types"
)

// Context is the evaluation state of one message in one pipeline.
// It is never shared between messages or goroutines.
type Context struct {
	msg           types.Message
	table         *types.FunctionTable
	defaultStream string
	pipeline      string
	stage         int
	rule          string
	// vars holds the let bindings of the rule being evaluated.
	vars   map[string]interface{}
	errs   []error
	clones []types.Message
}

var _ types.EvalContext = (*Context)(nil)

// NewContext creates the context of msg. Calls are dispatched through table,
// the function table the rules were linked against.
func NewContext(msg types.Message, table *types.FunctionTable, defaultStream string) *Context {
	if defaultStream == "" {
		defaultStream = types.DefaultStream
	}
	return &Context{
		msg:           msg,
		table:         table,
		defaultStream: defaultStream,
		vars:          make(map[string]interface{}),
	}
}

func (c *Context) Message() types.Message {
	return c.msg
}

// Clone copies m. The copy is collected by TakeClones.
func (c *Context) Clone(m types.Message) types.Message {
	if m == nil {
		m = c.msg
	}
	cp := m.Copy()
	c.clones = append(c.clones, cp)
	return cp
}

func (c *Context) DefaultStream() string {
	return c.defaultStream
}

func (c *Context) Pipeline() string {
	return c.pipeline
}

func (c *Context) Stage() int {
	return c.stage
}

func (c *Context) Rule() string {
	return c.rule
}

// Table is the function table calls are dispatched through.
func (c *Context) Table() *types.FunctionTable {
	return c.table
}

// Enter moves the context to a stage of a pipeline.
func (c *Context) Enter(pipeline string, stage int) {
	c.pipeline = pipeline
	c.stage = stage
}

// BeginRule starts the evaluation of a rule with an empty variable scope.
func (c *Context) BeginRule(name string) {
	c.rule = name
	if len(c.vars) > 0 {
		c.vars = make(map[string]interface{})
	}
}

// Var returns the value bound to a let variable.
func (c *Context) Var(name string) (interface{}, bool) {
	v, ok := c.vars[name]
	return v, ok
}

func (c *Context) SetVar(name string, value interface{}) {
	c.vars[name] = value
}

// Fail records a non-fatal evaluation error at pos. function is empty when
// the error was not raised by a function call.
func (c *Context) Fail(pos types.Position, function string, err error) {
	c.errs = append(c.errs, &types.EvaluationError{
		Pipeline: c.pipeline,
		Stage:    c.stage,
		Rule:     c.rule,
		Function: function,
		Pos:      pos,
		Err:      err,
	})
}

// Errors returns the evaluation errors recorded so far.
func (c *Context) Errors() []error {
	return c.errs
}

// ErrorCount is the number of errors recorded so far.
func (c *Context) ErrorCount() int {
	return len(c.errs)
}

// TakeClones returns the messages cloned since the last call and forgets them.
func (c *Context) TakeClones() []types.Message {
	clones := c.clones
	c.clones = nil
	return clones
}
