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


// Package notify delivers configuration change signals to a Manager.
//
// Usage:
//
//	m := engine.NewManager(store)
//	_ = m.Start(ctx)
//	poller := notify.NewCronPoller("*/30 * * * * *")
//	_ = poller.Start(ctx, m.OnConfigurationChanged)
//	defer poller.Stop()
package notify

import (
	"context"
	"errors"
	"sync"
)

// ErrStarted is returned when Start is called on a running notifier.
var ErrStarted = errors.New("notifier already started")

// Notifier calls onChange whenever the stored configuration may have changed.
// onChange must not block; Manager.OnConfigurationChanged is the usual callback.
type Notifier interface {
	Start(ctx context.Context, onChange func()) error
	Stop()
}

// Channel forwards every value received on C.
type Channel struct {
	C <-chan struct{}

	mu   sync.Mutex
	stop context.CancelFunc
	done chan struct{}
}

var _ Notifier = (*Channel)(nil)

func NewChannel(c <-chan struct{}) *Channel {
	return &Channel{C: c}
}

func (n *Channel) Start(ctx context.Context, onChange func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.done != nil {
		return ErrStarted
	}
	ctx, n.stop = context.WithCancel(ctx)
	n.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-n.C:
				if !ok {
					return
				}
				onChange()
			}
		}
	}(n.done)
	return nil
}

func (n *Channel) Stop() {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()
	if stop != nil {
		stop()
		<-done
	}
}
