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

// Package el evaluates ${...} string templates against message fields.
// Each placeholder holds an expr-lang expression.
package el

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rulego/rulepipe/utils/str"
)

// Template is a compiled string template.
type Template interface {
	// Execute renders the template with data as the expression environment.
	Execute(data map[string]interface{}) (interface{}, error)
	// HasVar reports whether the template holds any placeholder.
	HasVar() bool
}

// NewTemplate compiles tmpl. A template that is a single ${expr} yields the
// expression value itself; mixed text yields a string.
func NewTemplate(tmpl string) (Template, error) {
	trimV := strings.TrimSpace(tmpl)
	if strings.HasPrefix(trimV, str.VarPrefix) && strings.HasSuffix(trimV, str.VarSuffix) &&
		strings.Count(trimV, str.VarPrefix) == 1 {
		return NewExprTemplate(trimV[len(str.VarPrefix) : len(trimV)-len(str.VarSuffix)])
	} else if str.CheckHasVar(tmpl) {
		return NewMixedTemplate(tmpl)
	}
	return &NotTemplate{Tmpl: tmpl}, nil
}

// ExprTemplate evaluates one expr-lang expression.
type ExprTemplate struct {
	Tmpl    string
	Program *vm.Program
}

func NewExprTemplate(expression string) (*ExprTemplate, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return &ExprTemplate{Tmpl: expression, Program: program}, nil
}

func (t *ExprTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	return expr.Run(t.Program, data)
}

func (t *ExprTemplate) HasVar() bool {
	return true
}

// NotTemplate is plain text without placeholders.
type NotTemplate struct {
	Tmpl string
}

func (t *NotTemplate) Execute(map[string]interface{}) (interface{}, error) {
	return t.Tmpl, nil
}

func (t *NotTemplate) HasVar() bool {
	return false
}

type variable struct {
	start   int
	end     int
	program *vm.Program
}

// MixedTemplate interleaves text and placeholders, such as "host=${source} level=${level}".
type MixedTemplate struct {
	Tmpl      string
	variables []variable
}

func NewMixedTemplate(tmpl string) (*MixedTemplate, error) {
	t := &MixedTemplate{Tmpl: tmpl}
	offset := 0
	for {
		start := strings.Index(tmpl[offset:], str.VarPrefix)
		if start < 0 {
			break
		}
		start += offset
		end := strings.Index(tmpl[start:], str.VarSuffix)
		if end < 0 {
			break
		}
		end += start + len(str.VarSuffix)
		program, err := expr.Compile(tmpl[start+len(str.VarPrefix):end-len(str.VarSuffix)], expr.AllowUndefinedVariables())
		if err != nil {
			return nil, err
		}
		t.variables = append(t.variables, variable{start: start, end: end, program: program})
		offset = end
	}
	return t, nil
}

func (t *MixedTemplate) Execute(data map[string]interface{}) (interface{}, error) {
	return t.ExecuteAsString(data)
}

// ExecuteAsString renders the template; a placeholder evaluating to nil renders as empty text.
func (t *MixedTemplate) ExecuteAsString(data map[string]interface{}) (string, error) {
	if len(t.variables) == 0 {
		return t.Tmpl, nil
	}
	var sb strings.Builder
	lastPos := 0
	machine := vm.VM{}
	for _, v := range t.variables {
		sb.WriteString(t.Tmpl[lastPos:v.start])
		val, err := machine.Run(v.program, data)
		if err != nil {
			return "", err
		}
		sb.WriteString(str.ToString(val))
		lastPos = v.end
	}
	sb.WriteString(t.Tmpl[lastPos:])
	return sb.String(), nil
}

func (t *MixedTemplate) HasVar() bool {
	return len(t.variables) > 0
}
