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
	"sync"

	"github.com/robfig/cron/v3"
)

// CronPoller signals a change on every tick of a cron schedule with seconds,
// such as "*/30 * * * * *". The Manager skips publication when the sources
// did not change, so polling stores without change events is cheap.
type CronPoller struct {
	spec string

	mu   sync.Mutex
	cron *cron.Cron
}

var _ Notifier = (*CronPoller)(nil)

func NewCronPoller(spec string) *CronPoller {
	return &CronPoller{spec: spec}
}

func (p *CronPoller) Start(ctx context.Context, onChange func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cron != nil {
		return ErrStarted
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(p.spec, func() {
		if ctx.Err() == nil {
			onChange()
		}
	}); err != nil {
		return err
	}
	c.Start()
	p.cron = c
	return nil
}

func (p *CronPoller) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
