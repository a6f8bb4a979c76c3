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
	"fmt"
	"sort"
)

// ParameterDescriptor describes one parameter of a rule function.
type ParameterDescriptor struct {
	Name string
	Type Type
	// Optional parameters may be omitted; Default is bound in their place.
	Optional bool
	Default  interface{}
	// Transform converts the bound argument before the function sees it.
	Transform func(v interface{}) (interface{}, error)
	// Mutating marks a parameter through which the function changes state,
	// typically the message the function writes to.
	Mutating    bool
	Description string
}

// FunctionDescriptor is the signature of a rule function.
type FunctionDescriptor struct {
	Name       string
	ReturnType Type
	Params     []ParameterDescriptor
	// Mutating marks a function with side effects that do not flow through a parameter.
	Mutating    bool
	Description string
}

// IsMutating reports whether calling the function may change state.
// Mutating functions are rejected inside rule conditions.
func (d FunctionDescriptor) IsMutating() bool {
	if d.Mutating {
		return true
	}
	for _, p := range d.Params {
		if p.Mutating {
			return true
		}
	}
	return false
}

// ParamIndex returns the position of the named parameter or -1.
func (d FunctionDescriptor) ParamIndex(name string) int {
	for i, p := range d.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Validate checks that the descriptor is well formed.
func (d FunctionDescriptor) Validate() error {
	if d.Name == "" {
		return errors.New("function name is empty")
	}
	seen := make(map[string]struct{}, len(d.Params))
	optional := false
	for _, p := range d.Params {
		if p.Name == "" {
			return fmt.Errorf("function %s: parameter name is empty", d.Name)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("function %s: duplicate parameter %s", d.Name, p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Optional {
			optional = true
		} else if optional {
			return fmt.Errorf("function %s: required parameter %s follows an optional one", d.Name, p.Name)
		}
	}
	return nil
}

// Args are the bound arguments of a call, indexed by parameter position.
// Omitted optional parameters without a default are nil.
type Args []interface{}

// Get returns the argument at i or nil.
func (a Args) Get(i int) interface{} {
	if i < 0 || i >= len(a) {
		return nil
	}
	return a[i]
}

// String returns the argument at i if it is a string.
func (a Args) String(i int) (string, bool) {
	s, ok := a.Get(i).(string)
	return s, ok
}

// Bool returns the argument at i if it is a boolean, otherwise def.
func (a Args) Bool(i int, def bool) bool {
	if b, ok := a.Get(i).(bool); ok {
		return b
	}
	return def
}

// Message returns the argument at i if it is a message, otherwise the message under evaluation.
func (a Args) Message(i int, ctx EvalContext) Message {
	if m, ok := a.Get(i).(Message); ok {
		return m
	}
	return ctx.Message()
}

// EvalContext is the view of the evaluation state handed to functions.
type EvalContext interface {
	// Message is the message under evaluation.
	Message() Message
	// Clone copies m. The copy continues through the remaining stages as an
	// independent message and is part of the processing output.
	Clone(m Message) Message
	// DefaultStream is the stream of messages without stream membership.
	DefaultStream() string
	Pipeline() string
	Stage() int
	Rule() string
}

// Function is a rule function implementation.
type Function interface {
	Descriptor() FunctionDescriptor
	Invoke(ctx EvalContext, args Args) (interface{}, error)
}

// InvokeFunc is the function body of a Func.
type InvokeFunc func(ctx EvalContext, args Args) (interface{}, error)

// Func adapts a descriptor and a plain Go function to the Function interface.
type Func struct {
	Desc FunctionDescriptor
	Fn   InvokeFunc
}

var _ Function = (*Func)(nil)

// NewFunc creates a Function from a descriptor and its body.
func NewFunc(desc FunctionDescriptor, fn InvokeFunc) *Func {
	return &Func{Desc: desc, Fn: fn}
}

func (f *Func) Descriptor() FunctionDescriptor {
	return f.Desc
}

func (f *Func) Invoke(ctx EvalContext, args Args) (interface{}, error) {
	return f.Fn(ctx, args)
}

// FunctionTable is an immutable set of functions addressed by integer handle.
// A configuration snapshot captures one table and keeps it for its lifetime.
type FunctionTable struct {
	version uint64
	funcs   []Function
	index   map[string]int
}

// NewFunctionTable freezes funcs, ordered by name, into a table.
func NewFunctionTable(version uint64, funcs []Function) *FunctionTable {
	sorted := append([]Function(nil), funcs...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Descriptor().Name < sorted[j].Descriptor().Name
	})
	t := &FunctionTable{
		version: version,
		funcs:   sorted,
		index:   make(map[string]int, len(sorted)),
	}
	for i, f := range sorted {
		t.index[f.Descriptor().Name] = i
	}
	return t
}

// Version identifies the registry state the table was frozen from.
func (t *FunctionTable) Version() uint64 {
	return t.version
}

// Lookup resolves a function name to its handle.
func (t *FunctionTable) Lookup(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// At returns the function behind a handle, or nil for an invalid handle.
func (t *FunctionTable) At(handle int) Function {
	if t == nil || handle < 0 || handle >= len(t.funcs) {
		return nil
	}
	return t.funcs[handle]
}

func (t *FunctionTable) Len() int {
	return len(t.funcs)
}

// Names lists the function names in handle order.
func (t *FunctionTable) Names() []string {
	names := make([]string, len(t.funcs))
	for i, f := range t.funcs {
		names[i] = f.Descriptor().Name
	}
	return names
}

// FunctionProvider supplies the function table a snapshot is built with.
type FunctionProvider interface {
	Table() *FunctionTable
}
