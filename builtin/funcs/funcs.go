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

// Package funcs holds the function registry and the built-in rule functions.
package funcs

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rulego/rulepipe/api/types"
)

// ErrFunctionExists is returned when a function name is registered twice.
var ErrFunctionExists = errors.New("function already exists")

// Registry maps function names to implementations.
// Snapshots never see the registry itself, only tables frozen from it.
type Registry struct {
	funcs   map[string]types.Function
	version uint64
	table   *types.FunctionTable
	sync.RWMutex
}

var _ types.FunctionProvider = (*Registry)(nil)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]types.Function)}
}

// Default creates a registry holding the built-in functions.
func Default() *Registry {
	r := NewRegistry()
	for _, f := range Builtins() {
		_ = r.Register(f)
	}
	return r
}

// Register adds a function. Names are unique and case-sensitive.
func (r *Registry) Register(fn types.Function) error {
	desc := fn.Descriptor()
	if err := desc.Validate(); err != nil {
		return err
	}
	r.Lock()
	defer r.Unlock()
	if _, ok := r.funcs[desc.Name]; ok {
		return fmt.Errorf("%w. name=%s", ErrFunctionExists, desc.Name)
	}
	r.funcs[desc.Name] = fn
	r.changed()
	return nil
}

// ReplaceAll swaps the whole mapping in one step.
func (r *Registry) ReplaceAll(fns ...types.Function) error {
	next := make(map[string]types.Function, len(fns))
	for _, fn := range fns {
		desc := fn.Descriptor()
		if err := desc.Validate(); err != nil {
			return err
		}
		if _, ok := next[desc.Name]; ok {
			return fmt.Errorf("%w. name=%s", ErrFunctionExists, desc.Name)
		}
		next[desc.Name] = fn
	}
	r.Lock()
	defer r.Unlock()
	r.funcs = next
	r.changed()
	return nil
}

// Unregister removes a function by name.
func (r *Registry) Unregister(name string) error {
	r.Lock()
	defer r.Unlock()
	if _, ok := r.funcs[name]; !ok {
		return fmt.Errorf("function not found. name=%s", name)
	}
	delete(r.funcs, name)
	r.changed()
	return nil
}

func (r *Registry) changed() {
	r.version++
	r.table = nil
}

// Get returns the function registered under name.
func (r *Registry) Get(name string) (types.Function, bool) {
	r.RLock()
	defer r.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Names lists the registered function names, sorted.
func (r *Registry) Names() []string {
	r.RLock()
	defer r.RUnlock()
	keys := make([]string, 0, len(r.funcs))
	for k := range r.funcs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Version increases with every change to the registry.
func (r *Registry) Version() uint64 {
	r.RLock()
	defer r.RUnlock()
	return r.version
}

// Table freezes the current mapping. The same table is returned until the registry changes.
func (r *Registry) Table() *types.FunctionTable {
	r.RLock()
	if t := r.table; t != nil {
		r.RUnlock()
		return t
	}
	r.RUnlock()

	r.Lock()
	defer r.Unlock()
	if r.table == nil {
		fns := make([]types.Function, 0, len(r.funcs))
		for _, f := range r.funcs {
			fns = append(fns, f)
		}
		r.table = types.NewFunctionTable(r.version, fns)
	}
	return r.table
}

// Builtins returns fresh instances of every built-in function.
func Builtins() []types.Function {
	var fns []types.Function
	fns = append(fns, conversionFuncs()...)
	fns = append(fns, messageFuncs()...)
	fns = append(fns, stringFuncs()...)
	fns = append(fns, dataFuncs()...)
	return fns
}

func param(name string, t types.Type) types.ParameterDescriptor {
	return types.ParameterDescriptor{Name: name, Type: t}
}

func optional(name string, t types.Type, def interface{}) types.ParameterDescriptor {
	return types.ParameterDescriptor{Name: name, Type: t, Optional: true, Default: def}
}

// messageParam is the trailing optional message parameter of message functions.
// Without it the function works on the message under evaluation.
func messageParam(mutating bool) types.ParameterDescriptor {
	return types.ParameterDescriptor{
		Name:        "message",
		Type:        types.TypeMessage,
		Optional:    true,
		Mutating:    mutating,
		Description: "the message to use, defaults to the message under evaluation",
	}
}
