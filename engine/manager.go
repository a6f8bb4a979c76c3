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

// Package engine builds configuration snapshots and runs messages through them.
//
// The Manager loads rule, pipeline and connection sources, builds an immutable
// Snapshot from them and publishes it with a single atomic pointer swap.
// The Interpreter processes messages against the snapshot current at the time
// the message arrives; a message keeps using that snapshot until it is done,
// even when a newer one is published in the meantime.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/builtin/funcs"
)

var (
	// ErrNoSnapshot is returned by Acquire before the first successful build and after Stop.
	ErrNoSnapshot = errors.New("no configuration snapshot")
	// ErrAlreadyStarted is returned by Start when the background goroutine is running.
	ErrAlreadyStarted = errors.New("manager already started")
)

// SnapshotSource hands out references to the current snapshot.
type SnapshotSource interface {
	Acquire() (*Snapshot, error)
}

// Manager owns the current configuration snapshot.
type Manager struct {
	config  types.Config
	store   types.SourceStore
	current atomic.Pointer[Snapshot]

	// buildMu serializes builds; version is guarded by it.
	buildMu sync.Mutex
	version uint64

	changes chan struct{}
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ SnapshotSource = (*Manager)(nil)

// NewManager creates a manager reading its sources from store.
// Nothing is built until Reload or Start is called.
//
// Without types.WithFunctions the built-in function library is used.
func NewManager(store types.SourceStore, opts ...types.Option) *Manager {
	config := types.NewConfig(opts...)
	if config.Functions == nil {
		config.Functions = funcs.Default()
	}
	if config.Logger == nil {
		config.Logger = types.DefaultLogger()
	}
	return &Manager{
		config:  config,
		store:   store,
		changes: make(chan struct{}, 1),
	}
}

// Config returns the manager configuration.
func (m *Manager) Config() types.Config {
	return m.config
}

// Reload builds a snapshot from the current sources and publishes it.
//
// When a source provider fails the build is abandoned, the current snapshot
// stays in place and the error is returned. Rules and pipelines that fail to
// parse or link do not fail the build; they are left out of the snapshot and
// listed in the BuildReport. Nothing is published when the sources did not
// change since the current snapshot was built.
func (m *Manager) Reload(ctx context.Context) error {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	start := time.Now()
	src, err := loadSources(ctx, m.store)
	if err != nil {
		m.config.Logger.Printf("configuration reload failed, keeping version %d: %v", m.currentVersion(), err)
		return err
	}
	table := m.config.Functions.Table()
	digest := src.digest(table)
	if cur := m.current.Load(); cur != nil && cur.digest == digest {
		m.report(types.BuildReport{
			Version:     cur.version,
			Rules:       len(cur.rules),
			Pipelines:   len(cur.pipelines),
			Connections: len(cur.connections),
			Errors:      cur.errors,
			Duration:    time.Since(start),
			Unchanged:   true,
		})
		return nil
	}

	s, err := build(ctx, m.config, table, src, m.version+1, digest)
	if err != nil {
		m.config.Logger.Printf("configuration build failed, keeping version %d: %v", m.currentVersion(), err)
		return err
	}
	m.version = s.version
	s.onRetire = m.retired
	m.publish(s)

	for _, e := range s.errors {
		m.config.Logger.Printf("configuration version %d: %v", s.version, e)
	}
	m.config.Logger.Printf("configuration version %d published: %d rules, %d pipelines, %d streams, %d errors",
		s.version, len(s.rules), len(s.pipelines), len(s.connections), len(s.errors))
	m.report(types.BuildReport{
		Version:     s.version,
		Rules:       len(s.rules),
		Pipelines:   len(s.pipelines),
		Connections: len(s.connections),
		Errors:      s.errors,
		Duration:    time.Since(start),
	})
	return nil
}

func (m *Manager) report(r types.BuildReport) {
	if m.config.OnBuild != nil {
		m.config.OnBuild(r)
	}
}

func (m *Manager) currentVersion() uint64 {
	if cur := m.current.Load(); cur != nil {
		return cur.version
	}
	return 0
}

// publish swaps s in and drops the manager's reference to the previous snapshot.
func (m *Manager) publish(s *Snapshot) {
	if old := m.current.Swap(s); old != nil {
		old.Release()
	}
}

func (m *Manager) retired(s *Snapshot) {
	if m.config.OnSnapshotRetired != nil {
		m.config.OnSnapshotRetired(s.version)
	}
}

// Acquire returns the current snapshot with a reference taken on it.
// The caller must Release it when done.
func (m *Manager) Acquire() (*Snapshot, error) {
	for {
		s := m.current.Load()
		if s == nil {
			return nil, ErrNoSnapshot
		}
		if s.retain() {
			return s, nil
		}
		// s was retired after Load; a newer snapshot is already current
	}
}

// OnConfigurationChanged requests a rebuild by the background goroutine.
// It never blocks; requests arriving while one is pending are merged.
func (m *Manager) OnConfigurationChanged() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Start launches the background goroutine that rebuilds the snapshot after
// every OnConfigurationChanged. It runs until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done != nil {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(ctx, m.done)
	return nil
}

func (m *Manager) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.changes:
			// failures are logged by Reload and the previous snapshot stays current
			_ = m.Reload(ctx)
		}
	}
}

// Stop ends the background goroutine and releases the current snapshot.
// Messages still holding a reference finish against it.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	// a Reload in progress publishes before the snapshot is dropped
	m.buildMu.Lock()
	defer m.buildMu.Unlock()
	if old := m.current.Swap(nil); old != nil {
		old.Release()
	}
}
