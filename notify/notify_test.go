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


package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel(t *testing.T) {
	c := make(chan struct{})
	n := NewChannel(c)
	var calls atomic.Int32
	require.NoError(t, n.Start(context.Background(), func() { calls.Add(1) }))
	assert.ErrorIs(t, n.Start(context.Background(), func() {}), ErrStarted)

	c <- struct{}{}
	c <- struct{}{}
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	n.Stop()
	n.Stop()
	select {
	case c <- struct{}{}:
		t.Fatal("stopped notifier still receives")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestChannelStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n := NewChannel(make(chan struct{}))
	require.NoError(t, n.Start(ctx, func() {}))
	cancel()
	n.Stop()
}

func TestCronPoller(t *testing.T) {
	p := NewCronPoller("* * * * * *")
	fired := make(chan struct{}, 4)
	require.NoError(t, p.Start(context.Background(), func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	}))
	assert.ErrorIs(t, p.Start(context.Background(), func() {}), ErrStarted)

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("cron poller never fired")
	}
	p.Stop()
}

func TestCronPollerBadSpec(t *testing.T) {
	p := NewCronPoller("every now and then")
	assert.Error(t, p.Start(context.Background(), func() {}))
	p.Stop()
}

func TestNATSNotifierConfig(t *testing.T) {
	n := NewNATSNotifier(NATSConfig{}, nil)
	assert.Equal(t, DefaultSubject, n.config.Subject)
	assert.ErrorContains(t, n.Start(context.Background(), func() {}), "server")

	n = NewNATSNotifier(NATSConfig{Server: "nats://127.0.0.1:1", Timeout: 100 * time.Millisecond}, nil)
	assert.Error(t, n.Start(context.Background(), func() {}))
	n.Stop()
}

func TestNATSHandler(t *testing.T) {
	n := NewNATSNotifier(NATSConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	h := n.handler(ctx, func() { calls++ })

	h(&nats.Msg{Subject: DefaultSubject})
	cancel()
	h(&nats.Msg{Subject: DefaultSubject})
	assert.Equal(t, 1, calls)
}

func TestMQTTNotifierConfig(t *testing.T) {
	n := NewMQTTNotifier(MQTTConfig{}, nil)
	assert.Equal(t, DefaultTopic, n.config.Topic)
	assert.Regexp(t, `^rulepipe-[0-9a-f]{8}$`, n.config.ClientID)
	assert.ErrorContains(t, n.Start(context.Background(), func() {}), "server")

	n = NewMQTTNotifier(MQTTConfig{Server: "tcp://127.0.0.1:1", ConnectTimeout: time.Second}, nil)
	assert.Error(t, n.Start(context.Background(), func() {}))
	n.Stop()

	opts := n.clientOptions(context.Background(), func() {})
	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "127.0.0.1:1", opts.Servers[0].Host)
	assert.True(t, opts.AutoReconnect)
}

type changeMessage struct {
	paho.Message
	topic string
}

func (m changeMessage) Topic() string { return m.topic }

func TestMQTTHandler(t *testing.T) {
	n := NewMQTTNotifier(MQTTConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	h := n.handler(ctx, func() { calls++ })

	h(nil, changeMessage{topic: DefaultTopic})
	cancel()
	h(nil, changeMessage{topic: DefaultTopic})
	assert.Equal(t, 1, calls)
}
