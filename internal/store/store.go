// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store provides SQL persistence for user models, estimation
// records, suggestion history, and notification deliveries. The same
// database/sql code path serves SQLite for local installs and Postgres
// for server deployments; the driver is selected by configuration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	log "github.com/sirupsen/logrus"

	"github.com/attunehq/attune/internal/config"
)

// DriverSQLite and DriverPostgres are the supported database/sql drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// SQLStore is the SQL persistence layer. It satisfies model.Persistence,
// model.RecordSource and notify.PendingSource.
type SQLStore struct {
	db  *sql.DB
	cfg config.StoreConfig
}

// Open opens the configured database and creates the schema if needed.
func Open(ctx context.Context, cfg config.StoreConfig) (*SQLStore, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	case "":
		cfg.Driver = DriverSQLite
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store DSN cannot be empty")
	}

	if cfg.Driver == DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite works best with a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLStore{db: db, cfg: cfg}
	if err := s.initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}

	log.Infof("SQL store initialized (driver: %s)", cfg.Driver)
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func (s *SQLStore) initialize(ctx context.Context) error {
	if s.cfg.Driver == DriverPostgres && s.cfg.Schema != "" {
		stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.cfg.Schema)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema %q: %w", s.cfg.Schema, err)
		}
	}

	// Column types are chosen to mean the same thing under SQLite's type
	// affinity and Postgres's strict typing.
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			user_id TEXT PRIMARY KEY,
			last_updated TIMESTAMP NOT NULL,
			content TEXT NOT NULL
		)`, s.table("user_models")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			task_type TEXT NOT NULL,
			task_size TEXT NOT NULL,
			estimated_minutes DOUBLE PRECISION NOT NULL,
			actual_minutes DOUBLE PRECISION NOT NULL,
			title TEXT,
			project_id TEXT,
			created_at TIMESTAMP NOT NULL
		)`, s.table("estimation_records")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			suggestion_type TEXT NOT NULL,
			accepted BOOLEAN NOT NULL,
			shown_at TIMESTAMP NOT NULL
		)`, s.table("suggestion_history")),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			notification_type TEXT NOT NULL,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`, s.table("sent_notifications")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_estimation_user_created ON %s(user_id, created_at)",
			s.table("estimation_records")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_suggestion_user_shown ON %s(user_id, shown_at)",
			s.table("suggestion_history")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_notification_user_status ON %s(user_id, status, created_at)",
			s.table("sent_notifications")),
	}

	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// table returns the schema-qualified table name when a schema is configured.
func (s *SQLStore) table(name string) string {
	if s.cfg.Driver == DriverPostgres && s.cfg.Schema != "" {
		return s.cfg.Schema + "." + name
	}
	return name
}

// rebind rewrites ? placeholders to $1..$n for the Postgres driver. SQL in
// this package is written with ? so both drivers share one set of queries.
func (s *SQLStore) rebind(query string) string {
	if s.cfg.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
