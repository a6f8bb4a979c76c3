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


// Package runtime formats stack traces for logging recovered panics.
package runtime

import (
	"fmt"
	"runtime"
	"strings"
)

// Stack returns the file and line of up to 20 callers of the function that
// calls Stack, one per line.
func Stack() string {
	pc := make([]uintptr, 20)
	n := runtime.Callers(3, pc)
	frames := runtime.CallersFrames(pc[:n])

	var sb strings.Builder
	for {
		f, more := frames.Next()
		sb.WriteString(fmt.Sprintf(" %s:%d %s\n", f.File, f.Line, f.Function))
		if !more {
			break
		}
	}
	return sb.String()
}
