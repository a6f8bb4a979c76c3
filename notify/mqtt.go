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
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"

	"github.com/rulego/rulepipe/api/types"
)

// DefaultTopic is the topic configuration editors publish to after a change.
const DefaultTopic = "rulepipe/config/changed"

// MQTTConfig configures an MQTTNotifier.
type MQTTConfig struct {
	// Server is the broker address, e.g. tcp://127.0.0.1:1883.
	Server   string
	Topic    string
	Username string
	Password string
	// ClientID defaults to rulepipe- and a random suffix.
	ClientID             string
	QOS                  uint8
	ConnectTimeout       time.Duration
	MaxReconnectInterval time.Duration
}

// MQTTNotifier signals a change for every message published on a topic.
// The topic is subscribed again after every reconnect.
type MQTTNotifier struct {
	config MQTTConfig
	logger types.Logger

	mu     sync.Mutex
	client paho.Client
}

var _ Notifier = (*MQTTNotifier)(nil)

func NewMQTTNotifier(config MQTTConfig, logger types.Logger) *MQTTNotifier {
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	if config.ClientID == "" {
		id, _ := uuid.NewV4()
		config.ClientID = "rulepipe-" + id.String()[:8]
	}
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = 5 * time.Second
	}
	if config.MaxReconnectInterval <= 0 {
		config.MaxReconnectInterval = time.Minute
	}
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &MQTTNotifier{config: config, logger: logger}
}

func (n *MQTTNotifier) clientOptions(ctx context.Context, onChange func()) *paho.ClientOptions {
	opts := paho.NewClientOptions()
	opts.AddBroker(n.config.Server)
	opts.SetClientID(n.config.ClientID)
	opts.SetUsername(n.config.Username)
	opts.SetPassword(n.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(n.config.ConnectTimeout)
	opts.SetMaxReconnectInterval(n.config.MaxReconnectInterval)
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(n.config.Topic, n.config.QOS, n.handler(ctx, onChange))
		if token.WaitTimeout(n.config.ConnectTimeout) && token.Error() != nil {
			n.logger.Printf("mqtt notifier subscribe %s: %v", n.config.Topic, token.Error())
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		n.logger.Printf("mqtt notifier disconnected: %v", err)
	})
	return opts
}

// Start connects to the broker. The change topic is subscribed once connected.
func (n *MQTTNotifier) Start(ctx context.Context, onChange func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		return ErrStarted
	}
	if n.config.Server == "" {
		return errors.New("mqtt server can not be empty")
	}
	client := paho.NewClient(n.clientOptions(ctx, onChange))
	token := client.Connect()
	if !token.WaitTimeout(n.config.ConnectTimeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connect to %s: timeout", n.config.Server)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", n.config.Server, err)
	}
	n.client = client
	return nil
}

func (n *MQTTNotifier) handler(ctx context.Context, onChange func()) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		if ctx.Err() != nil {
			return
		}
		n.logger.Printf("configuration change announced on %s", msg.Topic())
		onChange()
	}
}

func (n *MQTTNotifier) Stop() {
	n.mu.Lock()
	client := n.client
	n.client = nil
	n.mu.Unlock()
	if client == nil {
		return
	}
	client.Unsubscribe(n.config.Topic).WaitTimeout(n.config.ConnectTimeout)
	client.Disconnect(250)
}
