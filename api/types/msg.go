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
	"sort"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rulego/rulepipe/utils/cast"
	"github.com/rulego/rulepipe/utils/json"
)

// Message is the unit of data flowing through the pipelines.
// A message is owned by a single goroutine while it is processed.
type Message interface {
	// ID is the unique message id.
	ID() string
	// Field returns the value of a field and whether it exists.
	Field(name string) (interface{}, bool)
	SetField(name string, value interface{})
	RemoveField(name string)
	HasField(name string) bool
	// Fields returns a shallow copy of all fields.
	Fields() map[string]interface{}
	// Streams returns the ids of the streams the message belongs to, sorted.
	Streams() []string
	AddStream(id string)
	RemoveStream(id string)
	InStream(id string) bool
	// Drop marks the message as filtered out. Dropped messages leave processing immediately.
	Drop()
	Dropped() bool
	// AddProcessingError attaches a non-fatal processing error to the message.
	AddProcessingError(err error)
	ProcessingErrors() []error
	// Copy returns an independent deep copy carrying a new id.
	Copy() Message
}

// Msg is the default Message implementation.
type Msg struct {
	id      string
	ts      int64
	fields  map[string]interface{}
	streams map[string]struct{}
	dropped bool
	errs    []error
}

var _ Message = (*Msg)(nil)

// NewMsg creates a message with a new id, the current time and the given fields.
// Field values are normalized to the rule value model.
func NewMsg(fields map[string]interface{}, streams ...string) *Msg {
	return newMsg(newID(), time.Now().UnixMilli(), fields, streams...)
}

// NewMsgWithID creates a message with a caller supplied id.
func NewMsgWithID(id string, fields map[string]interface{}, streams ...string) *Msg {
	if id == "" {
		id = newID()
	}
	return newMsg(id, time.Now().UnixMilli(), fields, streams...)
}

func newMsg(id string, ts int64, fields map[string]interface{}, streams ...string) *Msg {
	m := &Msg{
		id:      id,
		ts:      ts,
		fields:  make(map[string]interface{}, len(fields)),
		streams: make(map[string]struct{}, len(streams)),
	}
	for k, v := range fields {
		m.fields[k] = deepCopy(v)
	}
	for _, s := range streams {
		m.streams[s] = struct{}{}
	}
	return m
}

func newID() string {
	uuId, _ := uuid.NewV4()
	return uuId.String()
}

func (m *Msg) ID() string {
	return m.id
}

// Ts is the creation time in unix milliseconds.
func (m *Msg) Ts() int64 {
	return m.ts
}

func (m *Msg) Field(name string) (interface{}, bool) {
	v, ok := m.fields[name]
	return v, ok
}

func (m *Msg) SetField(name string, value interface{}) {
	m.fields[name] = cast.Normalize(value)
}

func (m *Msg) RemoveField(name string) {
	delete(m.fields, name)
}

func (m *Msg) HasField(name string) bool {
	_, ok := m.fields[name]
	return ok
}

func (m *Msg) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

func (m *Msg) Streams() []string {
	out := make([]string, 0, len(m.streams))
	for s := range m.streams {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (m *Msg) AddStream(id string) {
	m.streams[id] = struct{}{}
}

func (m *Msg) RemoveStream(id string) {
	delete(m.streams, id)
}

func (m *Msg) InStream(id string) bool {
	_, ok := m.streams[id]
	return ok
}

func (m *Msg) Drop() {
	m.dropped = true
}

func (m *Msg) Dropped() bool {
	return m.dropped
}

func (m *Msg) AddProcessingError(err error) {
	if err != nil {
		m.errs = append(m.errs, err)
	}
}

func (m *Msg) ProcessingErrors() []error {
	return m.errs
}

// Copy returns a deep copy with a new id. The drop flag is not inherited.
func (m *Msg) Copy() Message {
	c := newMsg(newID(), m.ts, m.fields, m.Streams()...)
	c.errs = append([]error(nil), m.errs...)
	return c
}

// MarshalJSON renders the message as {"id","timestamp","fields","streams","errors"}.
func (m *Msg) MarshalJSON() ([]byte, error) {
	errs := make([]string, 0, len(m.errs))
	for _, err := range m.errs {
		errs = append(errs, err.Error())
	}
	return json.Marshal(struct {
		ID        string                 `json:"id"`
		Timestamp int64                  `json:"timestamp"`
		Fields    map[string]interface{} `json:"fields"`
		Streams   []string               `json:"streams"`
		Errors    []string               `json:"errors,omitempty"`
	}{
		ID:        m.id,
		Timestamp: m.ts,
		Fields:    m.fields,
		Streams:   m.Streams(),
		Errors:    errs,
	})
}

func deepCopy(v interface{}) interface{} {
	switch val := cast.Normalize(v).(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return val
	}
}
