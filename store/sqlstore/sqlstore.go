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


// Package sqlstore loads rule, pipeline and connection sources from a
// MySQL or PostgreSQL database.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/rulego/rulepipe/api/types"
	"github.com/rulego/rulepipe/utils/maps"
	"github.com/rulego/rulepipe/utils/str"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

const (
	rulesTable       = "pipeline_rules"
	pipelinesTable   = "pipeline_pipelines"
	connectionsTable = "pipeline_connections"
	migrationsTable  = "pipeline_schema_migrations"
)

// migrations holds one directory of golang-migrate files per driver.
//
//go:embed migrations
var migrations embed.FS

// Config configures the store. MySQL DSNs need parseTime=true.
type Config struct {
	// DriverName is mysql or postgres. Default mysql.
	DriverName string
	Dsn        string
	PoolSize   int
}

func (c *Config) defaults() {
	if c.DriverName == "" {
		c.DriverName = DriverMySQL
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 4
	}
}

// Store reads sources with plain SELECTs on every load.
type Store struct {
	config Config
	db     *sql.DB
}

var _ types.SourceStore = (*Store)(nil)

// New opens the database and checks the connection.
//
// Usage:
//
//	s, err := sqlstore.New(sqlstore.Config{DriverName: "postgres", Dsn: dsn})
func New(config Config) (*Store, error) {
	config.defaults()
	if config.Dsn == "" {
		return nil, errors.New("dsn can not be empty")
	}
	db, err := sql.Open(config.DriverName, config.Dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(config.PoolSize)
	db.SetMaxIdleConns(config.PoolSize / 2)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{config: config, db: db}, nil
}

// NewFromSettings decodes settings such as {"driverName": "postgres", "dsn": "..."} into a Config.
func NewFromSettings(settings map[string]interface{}) (*Store, error) {
	var config Config
	if err := maps.WeakMap2Struct(settings, &config); err != nil {
		return nil, err
	}
	return New(config)
}

// NewWithDB wraps an already opened database.
func NewWithDB(db *sql.DB, config Config) *Store {
	config.defaults()
	return &Store{config: config, db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(q string) string {
	return str.ConvertDollarPlaceholder(q, s.config.DriverName)
}

func (s *Store) LoadRules(ctx context.Context) ([]types.RuleSource, error) {
	return s.load(ctx, rulesTable)
}

func (s *Store) LoadPipelines(ctx context.Context) ([]types.PipelineSource, error) {
	return s.load(ctx, pipelinesTable)
}

func (s *Store) load(ctx context.Context, table string) ([]types.Source, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT id, title, description, source, created_at, modified_at FROM %s ORDER BY id", table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []types.Source
	for rows.Next() {
		var (
			src                 types.Source
			title, description  sql.NullString
			createdAt, modified sql.NullTime
		)
		if err := rows.Scan(&src.ID, &title, &description, &src.Source, &createdAt, &modified); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		src.Title = title.String
		src.Description = description.String
		src.CreatedAt = createdAt.Time
		src.ModifiedAt = modified.Time
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *Store) LoadConnections(ctx context.Context) ([]types.StreamConnection, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT stream_id, pipeline_id FROM %s ORDER BY stream_id, pipeline_id", connectionsTable))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", connectionsTable, err)
	}
	defer rows.Close()

	byStream := make(map[string][]string)
	for rows.Next() {
		var stream, pipeline string
		if err := rows.Scan(&stream, &pipeline); err != nil {
			return nil, fmt.Errorf("scan %s: %w", connectionsTable, err)
		}
		byStream[stream] = append(byStream[stream], pipeline)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]types.StreamConnection, 0, len(byStream))
	for stream, ids := range byStream {
		out = append(out, types.StreamConnection{StreamID: stream, PipelineIDs: ids})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StreamID < out[j].StreamID })
	return out, nil
}

// PutRule creates or replaces a rule source.
func (s *Store) PutRule(ctx context.Context, src types.RuleSource) error {
	return s.put(ctx, rulesTable, src)
}

// PutPipeline creates or replaces a pipeline source.
func (s *Store) PutPipeline(ctx context.Context, src types.PipelineSource) error {
	return s.put(ctx, pipelinesTable, src)
}

func (s *Store) put(ctx context.Context, table string, src types.Source) error {
	if src.ID == "" {
		return errors.New("id can not be empty")
	}
	now := time.Now().UTC()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		var created sql.NullTime
		err := tx.QueryRowContext(ctx, s.query(fmt.Sprintf("SELECT created_at FROM %s WHERE id = ?", table)), src.ID).Scan(&created)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if created.Valid {
			src.CreatedAt = created.Time
		}
		if _, err := tx.ExecContext(ctx, s.query(fmt.Sprintf("DELETE FROM %s WHERE id = ?", table)), src.ID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.query(fmt.Sprintf(
			"INSERT INTO %s (id, title, description, source, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?)", table)),
			src.ID, src.Title, src.Description, src.Source, src.CreatedAt, now)
		return err
	})
}

// Connect replaces the pipelines attached to stream. No pipelines detaches the stream.
func (s *Store) Connect(ctx context.Context, stream string, pipelineIDs ...string) error {
	if stream == "" {
		return errors.New("stream id can not be empty")
	}
	return s.tx(ctx, func(tx *sql.Tx) error {
		table := connectionsTable
		if _, err := tx.ExecContext(ctx, s.query(fmt.Sprintf("DELETE FROM %s WHERE stream_id = ?", table)), stream); err != nil {
			return err
		}
		for _, id := range pipelineIDs {
			if _, err := tx.ExecContext(ctx, s.query(fmt.Sprintf(
				"INSERT INTO %s (stream_id, pipeline_id) VALUES (?, ?)", table)), stream, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Migrate brings the schema up to date with the migrations embedded for the
// configured driver. It needs the Dsn, so stores created by NewWithDB cannot migrate.
// The migration runs on its own connection pool; closing the migrator leaves the
// store's pool open.
func (s *Store) Migrate(ctx context.Context) error {
	if s.config.Dsn == "" {
		return errors.New("migrate: dsn can not be empty")
	}
	db, err := sql.Open(s.config.DriverName, s.config.Dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var driver database.Driver
	switch s.config.DriverName {
	case DriverPostgres:
		driver, err = migratepostgres.WithInstance(db, &migratepostgres.Config{MigrationsTable: migrationsTable})
	case DriverMySQL:
		driver, err = migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: migrationsTable})
	default:
		return fmt.Errorf("migrate: unsupported driver %s", s.config.DriverName)
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	src, err := migrationSource(s.config.DriverName)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, s.config.DriverName, driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func migrationSource(driverName string) (source.Driver, error) {
	src, err := iofs.New(migrations, "migrations/"+driverName)
	if err != nil {
		return nil, fmt.Errorf("migrations for %s: %w", driverName, err)
	}
	return src, nil
}
