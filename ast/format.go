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

import (
	"fmt"
	"strconv"
	"strings"
)

// Binding strength of each syntactic level, weakest first.
const (
	precOr = iota + 1
	precAnd
	precNot
	precCmp
	precAdd
	precMul
	precNeg
	precPostfix
	precPrimary
)

// Reserved words cannot name variables, functions or call parameters.
var Reserved = map[string]bool{
	"and": true, "or": true, "not": true,
	"true": true, "false": true, "null": true,
	"let": true, "when": true, "then": true, "end": true,
	"rule": true, "pipeline": true,
}

// Precedence returns the binding strength of e.
func Precedence(e Expr) int {
	switch n := e.(type) {
	case *Binary:
		switch {
		case n.Op == OpOr:
			return precOr
		case n.Op == OpAnd:
			return precAnd
		case n.Op.IsComparison():
			return precCmp
		case n.Op == OpAdd || n.Op == OpSub:
			return precAdd
		default:
			return precMul
		}
	case *Unary:
		if n.Op == OpNot {
			return precNot
		}
		return precNeg
	case *FieldAccess:
		return precPostfix
	case *Literal:
		if isNegativeNumber(n.Value) {
			return precNeg
		}
		return precPrimary
	default:
		return precPrimary
	}
}

// FormatRule prints a rule as canonical source. Parsing the output yields an
// equal tree, positions aside.
func FormatRule(r *Rule) string {
	var sb strings.Builder
	sb.WriteString("rule ")
	sb.WriteString(Quote(r.Name))
	sb.WriteString("\nwhen\n    ")
	sb.WriteString(FormatExpr(r.When))
	sb.WriteString("\nthen\n")
	for _, s := range r.Then {
		sb.WriteString("    ")
		sb.WriteString(FormatStmt(s))
		sb.WriteString(";\n")
	}
	sb.WriteString("end\n")
	return sb.String()
}

// FormatPipeline prints a pipeline as canonical source.
func FormatPipeline(p *Pipeline) string {
	var sb strings.Builder
	sb.WriteString("pipeline ")
	sb.WriteString(Quote(p.Name))
	sb.WriteString("\n")
	for _, st := range p.Stages {
		sb.WriteString(fmt.Sprintf("stage %d match %s\n", st.Number, st.Match))
		for _, name := range st.Rules {
			sb.WriteString("    rule ")
			sb.WriteString(Quote(name))
			sb.WriteString(";\n")
		}
	}
	sb.WriteString("end\n")
	return sb.String()
}

// FormatStmt prints a statement without the trailing separator.
func FormatStmt(s Stmt) string {
	switch n := s.(type) {
	case *LetStmt:
		return "let " + Ident(n.Name) + " = " + FormatExpr(n.Value)
	case *ExprStmt:
		return FormatExpr(n.Expr)
	default:
		return fmt.Sprintf("<unknown statement %T>", s)
	}
}

// FormatExpr prints an expression, adding parentheses where precedence requires them.
func FormatExpr(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Literal:
		sb.WriteString(FormatValue(n.Value))
	case *FieldRef:
		sb.WriteString("$message.")
		sb.WriteString(Ident(n.Name))
	case *VarRef:
		sb.WriteString(Ident(n.Name))
	case *FieldAccess:
		writeOperand(sb, n.Target, precPostfix)
		sb.WriteString(".")
		sb.WriteString(Ident(n.Name))
	case *FuncCall:
		sb.WriteString(Ident(n.Name))
		sb.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			if a.Name != "" {
				sb.WriteString(Ident(a.Name))
				sb.WriteString(": ")
			}
			writeExpr(sb, a.Value)
		}
		sb.WriteString(")")
	case *Unary:
		if n.Op == OpNot {
			sb.WriteString("not ")
			writeOperand(sb, n.Operand, precNot)
		} else {
			sb.WriteString("-")
			writeOperand(sb, n.Operand, precNeg)
		}
	case *Binary:
		prec := Precedence(n)
		left, right := prec, prec+1
		if n.Op.IsComparison() {
			left = prec + 1
		}
		writeOperand(sb, n.Left, left)
		sb.WriteString(" ")
		sb.WriteString(n.Op.String())
		sb.WriteString(" ")
		writeOperand(sb, n.Right, right)
	default:
		sb.WriteString(fmt.Sprintf("<unknown expression %T>", e))
	}
}

func writeOperand(sb *strings.Builder, e Expr, min int) {
	if Precedence(e) < min {
		sb.WriteString("(")
		writeExpr(sb, e)
		sb.WriteString(")")
		return
	}
	writeExpr(sb, e)
}

// FormatValue prints a literal value.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		s := strconv.FormatFloat(val, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case string:
		return Quote(val)
	default:
		return Quote(fmt.Sprintf("%v", val))
	}
}

func isNegativeNumber(v interface{}) bool {
	switch val := v.(type) {
	case int64:
		return val < 0
	case float64:
		return val < 0
	}
	return false
}

// Quote returns s as a double quoted string literal.
func Quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				sb.WriteString(fmt.Sprintf(`\u%04x`, r))
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Ident prints a name, quoting it with backticks when it is not a plain identifier.
func Ident(name string) string {
	if IsIdent(name) && !Reserved[name] {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// IsIdent reports whether name matches [A-Za-z_][A-Za-z0-9_]*.
func IsIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
