//go:build integration

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


package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/engine"
)

type testDatabase struct {
	driverName string
	image      string
	port       string
	env        map[string]string
	ready      string
	dsn        func(host, port string) string
}

var databases = []testDatabase{
	{
		driverName: DriverPostgres,
		image:      "postgres:16-alpine",
		port:       "5432",
		env:        map[string]string{"POSTGRES_PASSWORD": "password", "POSTGRES_DB": "testdb"},
		ready:      "database system is ready to accept connections",
		dsn: func(host, port string) string {
			return fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port)
		},
	},
	{
		driverName: DriverMySQL,
		image:      "mysql:8.0",
		port:       "3306",
		env:        map[string]string{"MYSQL_ROOT_PASSWORD": "password", "MYSQL_DATABASE": "testdb"},
		ready:      "port: 3306  MySQL Community Server",
		dsn: func(host, port string) string {
			return fmt.Sprintf("root:password@tcp(%s:%s)/testdb?parseTime=true", host, port)
		},
	},
}

// startDatabase runs d in a container and returns a store connected to it.
func startDatabase(t *testing.T, d testDatabase) *Store {
	t.Helper()
	ctx := context.Background()

	occurrence := 1
	if d.driverName == DriverPostgres {
		// the init script restarts the server once
		occurrence = 2
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        d.image,
			ExposedPorts: []string{d.port + "/tcp"},
			Env:          d.env,
			WaitingFor: wait.ForLog(d.ready).
				WithOccurrence(occurrence).
				WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, d.port)
	require.NoError(t, err)

	config := Config{DriverName: d.driverName, Dsn: d.dsn(host, port.Port())}
	var s *Store
	for i := 0; i < 30; i++ {
		if s, err = New(config); err == nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreAgainstDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("starts database containers")
	}
	for _, d := range databases {
		t.Run(d.driverName, func(t *testing.T) {
			s := startDatabase(t, d)
			ctx := context.Background()

			require.NoError(t, s.Migrate(ctx))
			// a second run finds nothing to do
			require.NoError(t, s.Migrate(ctx))

			rules, err := s.LoadRules(ctx)
			require.NoError(t, err)
			assert.Empty(t, rules)

			require.NoError(t, s.PutRule(ctx, types.RuleSource{
				ID:     "r1",
				Title:  "Greeting",
				Source: `rule "r1" when true then set_field("greeting", "hello"); end`,
			}))
			rules, err = s.LoadRules(ctx)
			require.NoError(t, err)
			require.Len(t, rules, 1)
			created := rules[0].CreatedAt
			assert.WithinDuration(t, time.Now(), created, time.Minute)

			require.NoError(t, s.PutRule(ctx, types.RuleSource{
				ID:     "r1",
				Title:  "Greeting",
				Source: `rule "r1" when true then set_field("greeting", "hi"); end`,
			}))
			rules, err = s.LoadRules(ctx)
			require.NoError(t, err)
			require.Len(t, rules, 1)
			assert.True(t, created.Equal(rules[0].CreatedAt))
			assert.Contains(t, rules[0].Source, `"hi"`)

			require.NoError(t, s.PutPipeline(ctx, types.PipelineSource{
				ID:     "p",
				Source: `pipeline "p" stage 0 match all rule "r1"; end`,
			}))
			require.NoError(t, s.Connect(ctx, "default", "p"))
			require.NoError(t, s.Connect(ctx, "audit", "p"))
			require.NoError(t, s.Connect(ctx, "audit"))

			conns, err := s.LoadConnections(ctx)
			require.NoError(t, err)
			assert.Equal(t, []types.StreamConnection{{StreamID: "default", PipelineIDs: []string{"p"}}}, conns)

			m := engine.NewManager(s)
			require.NoError(t, m.Reload(ctx))
			defer m.Stop()
			out := engine.NewInterpreter(m).Process(types.NewMsg(map[string]interface{}{"message": "x"}))
			require.Len(t, out, 1)
			v, _ := out[0].Field("greeting")
			assert.Equal(t, "hi", v)
		})
	}
}
