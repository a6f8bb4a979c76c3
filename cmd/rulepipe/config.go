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


package main

import (
	"log"
	"os"

	"gopkg.in/ini.v1"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/engine"
)

// Config is the command configuration, read from an ini file.
type Config struct {
	// LogFile enables rotating file logging. Empty logs to stderr.
	LogFile    string `ini:"log_file"`
	LogMaxSize int    `ini:"log_max_size"`

	// MetricsAddr serves /metrics and /status when set, e.g. ":9090".
	MetricsAddr string          `ini:"metrics_addr"`
	Store       Store           `ini:"store"`
	Notify      Notify          `ini:"notify"`
	Engine      engine.Settings `ini:"-"`
}

type Store struct {
	// Type is file or sql.
	Type   string `ini:"type"`
	Dir    string `ini:"dir"`
	// Driver is mysql or postgres.
	Driver string `ini:"driver"`
	Dsn    string `ini:"dsn"`
	// Migrate applies the schema migrations when the sql store is opened.
	Migrate bool `ini:"migrate"`
}

type Notify struct {
	// Cron is a schedule with seconds polling the store, e.g. "*/30 * * * * *".
	Cron        string `ini:"cron"`
	NatsServer  string `ini:"nats_server"`
	NatsSubject string `ini:"nats_subject"`
	MqttServer  string `ini:"mqtt_server"`
	MqttTopic   string `ini:"mqtt_topic"`
}

var DefaultConfig = Config{
	LogMaxSize: 100,
	Store:      Store{Type: "file", Dir: ".", Migrate: true},
}

// loadConfig reads file; an empty name returns DefaultConfig.
// The [engine] section is decoded into engine.Settings.
func loadConfig(file string) (Config, error) {
	c := DefaultConfig
	if file == "" {
		return c, nil
	}
	cfg, err := ini.Load(file)
	if err != nil {
		return c, err
	}
	if err := cfg.MapTo(&c); err != nil {
		return c, err
	}
	if section, err := cfg.GetSection("engine"); err == nil {
		settings := make(map[string]interface{})
		for k, v := range section.KeysHash() {
			settings[k] = v
		}
		if c.Engine, err = engine.DecodeSettings(settings); err != nil {
			return c, err
		}
	}
	return c, nil
}

func initLogger(c Config) *log.Logger {
	if c.LogFile == "" {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return types.WriterLogger(&lumberjack.Logger{
		Filename:   c.LogFile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: 3,
		Compress:   true,
	}, "")
}
