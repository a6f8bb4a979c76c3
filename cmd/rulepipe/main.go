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


// Command rulepipe runs JSON-lines messages from stdin through the pipelines
// of a configuration directory or database and writes the results to stdout.
//
//	rulepipe -c rulepipe.ini < messages.jsonl > out.jsonl
//	rulepipe -dir ./config < messages.jsonl
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/builtin/metrics"
	"github.com/rulego/rulepipe/engine"
	"github.com/rulego/rulepipe/notify"
	"github.com/rulego/rulepipe/store/file"
	"github.com/rulego/rulepipe/store/sqlstore"
)

const version = "1.0.0"

var (
	ver        bool
	configFile string
	dir        string
)

func init() {
	flag.StringVar(&configFile, "c", "", "config file")
	flag.StringVar(&dir, "dir", "", "configuration directory, overrides [store] dir")
	flag.BoolVar(&ver, "v", false, "print version")
}

func main() {
	flag.Parse()
	if ver {
		fmt.Printf("rulepipe v%s\n", version)
		os.Exit(0)
	}

	c, err := loadConfig(configFile)
	if err != nil {
		log.Fatal("error:", err)
	}
	if dir != "" {
		c.Store = Store{Type: "file", Dir: dir}
	}
	logger := initLogger(c)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, c, logger); err != nil {
		logger.Printf("error: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c Config, logger *log.Logger) error {
	store, closeStore, err := openStore(ctx, c.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	sink := metrics.NewPrometheus()
	opts := append(c.Engine.Options(),
		types.WithLogger(logger),
		types.WithMetrics(sink),
		types.WithOnBuild(sink.ObserveBuild),
	)
	manager := engine.NewManager(store, opts...)
	if err := manager.Reload(ctx); err != nil {
		return err
	}
	if err := manager.Start(ctx); err != nil {
		return err
	}
	defer manager.Stop()

	for _, n := range notifiers(c.Notify, logger) {
		if err := n.Start(ctx, manager.OnConfigurationChanged); err != nil {
			return err
		}
		defer n.Stop()
	}

	if c.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(sink)
		srv := &http.Server{Addr: c.MetricsAddr, Handler: newRouter(reg, manager)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	interpreter := engine.NewInterpreter(manager, types.WithConfig(manager.Config()))
	n, err := processLines(os.Stdin, os.Stdout, interpreter, logger)
	logger.Printf("processed %d messages", n)
	return err
}

func openStore(ctx context.Context, c Store) (types.SourceStore, func(), error) {
	switch c.Type {
	case "", "file":
		return file.New(c.Dir), func() {}, nil
	case "sql":
		s, err := sqlstore.New(sqlstore.Config{DriverName: c.Driver, Dsn: c.Dsn})
		if err != nil {
			return nil, nil, err
		}
		if c.Migrate {
			if err := s.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, nil, err
			}
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %s", c.Type)
	}
}

func notifiers(c Notify, logger types.Logger) []notify.Notifier {
	var out []notify.Notifier
	if c.Cron != "" {
		out = append(out, notify.NewCronPoller(c.Cron))
	}
	if c.NatsServer != "" {
		out = append(out, notify.NewNATSNotifier(notify.NATSConfig{
			Server:     c.NatsServer,
			Subject:    c.NatsSubject,
			ClientName: "rulepipe",
		}, logger))
	}
	if c.MqttServer != "" {
		out = append(out, notify.NewMQTTNotifier(notify.MQTTConfig{
			Server: c.MqttServer,
			Topic:  c.MqttTopic,
		}, logger))
	}
	return out
}
