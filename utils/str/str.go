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

// Package str provides string helpers used by the rule functions and stores:
// ${} template detection, rune-safe slicing, abbreviation and SQL placeholder
// rewriting.
package str

import (
	"fmt"
	"strings"

	"github.com/rulego/rulepipe/utils/cast"
)

const (
	// VarPrefix opens a template variable.
	VarPrefix = "${"
	// VarSuffix closes a template variable.
	VarSuffix = "}"
)

// ToString converts a value to its string form. Maps and lists become JSON.
func ToString(input interface{}) string {
	return cast.ToString(input)
}

// CheckHasVar reports whether the string contains a ${} placeholder.
func CheckHasVar(str string) bool {
	return strings.Contains(str, VarPrefix) && strings.Contains(str, VarSuffix)
}

// Substring returns the runes of s in [start, end). Negative indexes count
// from the end of s and out of range indexes are clamped.
func Substring(s string, start, end int) string {
	runes := []rune(s)
	n := len(runes)
	start = clampIndex(start, n)
	end = clampIndex(end, n)
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// Abbreviate shortens s to at most width runes, ending with "..." when cut.
// Widths below 4 are raised to 4.
func Abbreviate(s string, width int) string {
	if width < 4 {
		width = 4
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// ConvertDollarPlaceholder rewrites ? placeholders into postgres style $n placeholders.
func ConvertDollarPlaceholder(sql, dbType string) string {
	if dbType == "postgres" {
		n := 1
		for strings.Contains(sql, "?") {
			sql = strings.Replace(sql, "?", fmt.Sprintf("$%d", n), 1)
			n++
		}
	}
	return sql
}

// Contains reports whether target is in list.
func Contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}
