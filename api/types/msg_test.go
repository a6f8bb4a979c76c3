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
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMsgFields(t *testing.T) {
	msg := NewMsg(map[string]interface{}{"count": 3, "source": "host-a"})
	assert.NotEmpty(t, msg.ID())
	assert.True(t, msg.Ts() > 0)

	v, ok := msg.Field("count")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)

	_, ok = msg.Field("missing")
	assert.False(t, ok)

	msg.SetField("ratio", float32(0.5))
	v, _ = msg.Field("ratio")
	assert.Equal(t, 0.5, v)

	msg.RemoveField("source")
	assert.False(t, msg.HasField("source"))
	assert.Len(t, msg.Fields(), 2)
}

func TestMsgStreams(t *testing.T) {
	msg := NewMsg(nil, "b", "a")
	assert.Equal(t, []string{"a", "b"}, msg.Streams())
	msg.AddStream("c")
	msg.RemoveStream("a")
	assert.False(t, msg.InStream("a"))
	assert.True(t, msg.InStream("c"))
	assert.Equal(t, []string{"b", "c"}, msg.Streams())
}

func TestMsgCopyIsIndependent(t *testing.T) {
	orig := NewMsg(map[string]interface{}{
		"nested": map[string]interface{}{"k": "v"},
		"list":   []interface{}{int64(1)},
	}, "default")
	orig.AddProcessingError(errors.New("before"))
	orig.Drop()

	c := orig.Copy()
	require.NotEqual(t, orig.ID(), c.ID())
	assert.False(t, c.Dropped())
	assert.Len(t, c.ProcessingErrors(), 1)

	nested, _ := c.Field("nested")
	nested.(map[string]interface{})["k"] = "changed"
	list, _ := c.Field("list")
	list.([]interface{})[0] = int64(2)
	c.AddStream("other")
	c.SetField("new", true)

	origNested, _ := orig.Field("nested")
	assert.Equal(t, "v", origNested.(map[string]interface{})["k"])
	origList, _ := orig.Field("list")
	assert.Equal(t, int64(1), origList.([]interface{})[0])
	assert.False(t, orig.InStream("other"))
	assert.False(t, orig.HasField("new"))
}

func TestMsgMarshalJSON(t *testing.T) {
	msg := NewMsgWithID("id-1", map[string]interface{}{"a": "<b>"}, "s1")
	msg.AddProcessingError(errors.New("boom"))
	data, err := json.Marshal(msg)
	require.Nil(t, err)

	var out map[string]interface{}
	require.Nil(t, json.Unmarshal(data, &out))
	assert.Equal(t, "id-1", out["id"])
	assert.Equal(t, map[string]interface{}{"a": "<b>"}, out["fields"])
	assert.Equal(t, []interface{}{"s1"}, out["streams"])
	assert.Equal(t, []interface{}{"boom"}, out["errors"])
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeNull, TypeOf(nil))
	assert.Equal(t, TypeLong, TypeOf(5))
	assert.Equal(t, TypeDouble, TypeOf(1.5))
	assert.Equal(t, TypeString, TypeOf("x"))
	assert.Equal(t, TypeBoolean, TypeOf(false))
	assert.Equal(t, TypeMap, TypeOf(map[string]interface{}{}))
	assert.Equal(t, TypeList, TypeOf([]interface{}{}))
	assert.Equal(t, TypeMessage, TypeOf(NewMsg(nil)))
	assert.Equal(t, TypeAny, TypeOf(struct{}{}))
}

func TestAssignableTo(t *testing.T) {
	assert.True(t, TypeLong.AssignableTo(TypeDouble))
	assert.False(t, TypeDouble.AssignableTo(TypeLong))
	assert.True(t, TypeAny.AssignableTo(TypeString))
	assert.True(t, TypeMap.AssignableTo(TypeAny))
	assert.True(t, TypeNull.AssignableTo(TypeBoolean))
	assert.False(t, TypeString.AssignableTo(TypeBoolean))
	assert.Equal(t, "boolean", TypeBoolean.String())
}
