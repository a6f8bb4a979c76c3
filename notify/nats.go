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
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rulego/rulepipe/api/types"
)

// DefaultSubject is the subject configuration editors publish to after a change.
const DefaultSubject = "rulepipe.config.changed"

// NATSConfig configures a NATSNotifier.
type NATSConfig struct {
	Server   string
	Subject  string
	Username string
	Password string
	// ClientName identifies the connection on the server.
	ClientName    string
	Timeout       time.Duration
	ReconnectWait time.Duration
}

// NATSNotifier signals a change for every message published on a subject.
type NATSNotifier struct {
	config NATSConfig
	logger types.Logger

	mu   sync.Mutex
	conn *nats.Conn
	sub  *nats.Subscription
}

var _ Notifier = (*NATSNotifier)(nil)

func NewNATSNotifier(config NATSConfig, logger types.Logger) *NATSNotifier {
	if config.Subject == "" {
		config.Subject = DefaultSubject
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.ReconnectWait <= 0 {
		config.ReconnectWait = 2 * time.Second
	}
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &NATSNotifier{config: config, logger: logger}
}

func (n *NATSNotifier) options() []nats.Option {
	opts := []nats.Option{
		nats.Timeout(n.config.Timeout),
		nats.ReconnectWait(n.config.ReconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				n.logger.Printf("nats notifier disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			n.logger.Printf("nats notifier reconnected to %s", c.ConnectedUrl())
		}),
	}
	if n.config.Username != "" {
		opts = append(opts, nats.UserInfo(n.config.Username, n.config.Password))
	}
	if n.config.ClientName != "" {
		opts = append(opts, nats.Name(n.config.ClientName))
	}
	return opts
}

// Start connects to the server and subscribes to the change subject.
func (n *NATSNotifier) Start(ctx context.Context, onChange func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil {
		return ErrStarted
	}
	if n.config.Server == "" {
		return errors.New("nats server can not be empty")
	}
	conn, err := nats.Connect(n.config.Server, n.options()...)
	if err != nil {
		return err
	}
	sub, err := conn.Subscribe(n.config.Subject, n.handler(ctx, onChange))
	if err != nil {
		conn.Close()
		return err
	}
	n.conn, n.sub = conn, sub
	return nil
}

func (n *NATSNotifier) handler(ctx context.Context, onChange func()) nats.MsgHandler {
	return func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		n.logger.Printf("configuration change announced on %s", msg.Subject)
		onChange()
	}
}

func (n *NATSNotifier) Stop() {
	n.mu.Lock()
	conn, sub := n.conn, n.sub
	n.conn, n.sub = nil, nil
	n.mu.Unlock()
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if conn != nil {
		if err := conn.Drain(); err != nil {
			conn.Close()
		}
	}
}
