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


package main

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/utils/json"
)

// maxLine bounds a single input message.
const maxLine = 16 * 1024 * 1024

// decodeMessage parses one input line. A line is either the fields of the
// message or an envelope {"id": "...", "fields": {...}, "streams": [...]}.
func decodeMessage(line []byte) (*types.Msg, error) {
	v, err := json.Decode(line)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.New("message must be a JSON object")
	}
	fields, ok := obj["fields"].(map[string]interface{})
	if !ok {
		return types.NewMsg(obj), nil
	}
	id, _ := obj["id"].(string)
	var streams []string
	if list, ok := obj["streams"].([]interface{}); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				streams = append(streams, s)
			}
		}
	}
	return types.NewMsgWithID(id, fields, streams...), nil
}

type processor interface {
	Process(msg types.Message) []types.Message
}

// processLines runs every JSON line of in through p and writes the resulting
// messages to out, one per line. Lines that cannot be decoded are logged and skipped.
func processLines(in io.Reader, out io.Writer, p processor, logger types.Logger) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	w := bufio.NewWriter(out)
	defer w.Flush()

	n, processed := 0, 0
	for scanner.Scan() {
		n++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, err := decodeMessage(line)
		if err != nil {
			logger.Printf("line %d skipped: %v", n, err)
			continue
		}
		processed++
		for _, m := range p.Process(msg) {
			b, err := json.Marshal(m)
			if err != nil {
				logger.Printf("line %d: encode message %s: %v", n, m.ID(), err)
				continue
			}
			if _, err := w.Write(append(b, '\n')); err != nil {
				return processed, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return processed, err
	}
	return processed, w.Flush()
}
