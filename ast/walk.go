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

package ast

// Inspect traverses e depth-first in evaluation order, calling f for every
// expression. Children are skipped when f returns false.
func Inspect(e Expr, f func(Expr) bool) {
	if e == nil || !f(e) {
		return
	}
	switch n := e.(type) {
	case *FieldAccess:
		Inspect(n.Target, f)
	case *FuncCall:
		for _, a := range n.Args {
			Inspect(a.Value, f)
		}
	case *Unary:
		Inspect(n.Operand, f)
	case *Binary:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	}
}

// InspectRule traverses the condition and all statements of r.
func InspectRule(r *Rule, f func(Expr) bool) {
	Inspect(r.When, f)
	for _, s := range r.Then {
		switch n := s.(type) {
		case *LetStmt:
			Inspect(n.Value, f)
		case *ExprStmt:
			Inspect(n.Expr, f)
		}
	}
}

// Calls returns the names of all functions called by r, in source order.
func Calls(r *Rule) []string {
	var names []string
	InspectRule(r, func(e Expr) bool {
		if c, ok := e.(*FuncCall); ok {
			names = append(names, c.Name)
		}
		return true
	})
	return names
}
