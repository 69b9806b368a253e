/*
 * Copyright 2025 The RuleGo Authors.
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

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/funnelgo/funnel/api/types"
	"github.com/funnelgo/funnel/utils/str"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

const (
	MySQL    = "mysql"
	Postgres = "postgres"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLConfiguration configures the database store.
type SQLConfiguration struct {
	// DriverName is mysql or postgres.
	DriverName string
	// Dsn is passed to sql.Open.
	Dsn string
	// Table holds the documents. It is created when missing.
	Table string
	// PoolSize caps open connections. 0 leaves the driver default.
	PoolSize int
	// ConnMaxLifetime recycles connections older than this.
	ConnMaxLifetime time.Duration
}

// SQLStore keeps one row per flow instance.
type SQLStore struct {
	db      *sql.DB
	driver  string
	loadSQL string
	saveSQL string
	delSQL  string
}

var _ types.ValueStore = (*SQLStore)(nil)

// NewSQLStore opens the database and creates the table.
func NewSQLStore(config SQLConfiguration) (*SQLStore, error) {
	if config.DriverName == "" {
		config.DriverName = MySQL
	}
	if config.Dsn == "" {
		return nil, errors.New("storage: dsn can not be empty")
	}
	db, err := sql.Open(config.DriverName, config.Dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", config.DriverName, err)
	}
	if config.PoolSize > 0 {
		db.SetMaxOpenConns(config.PoolSize)
		db.SetMaxIdleConns(config.PoolSize)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}
	store, err := NewSQLStoreWithDB(db, config.DriverName, config.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLStoreWithDB uses an open database. The store owns db from then on.
func NewSQLStoreWithDB(db *sql.DB, driverName, table string) (*SQLStore, error) {
	if table == "" {
		table = "funnel_values"
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("storage: invalid table name %q", table)
	}
	s := &SQLStore{db: db, driver: driverName}
	var ddl, upsert string
	switch driverName {
	case MySQL:
		ddl = "CREATE TABLE IF NOT EXISTS " + table +
			" (k VARCHAR(255) NOT NULL PRIMARY KEY, data MEDIUMTEXT NOT NULL, updated_at TIMESTAMP NOT NULL)"
		upsert = "INSERT INTO " + table + " (k, data, updated_at) VALUES (?, ?, ?)" +
			" ON DUPLICATE KEY UPDATE data = VALUES(data), updated_at = VALUES(updated_at)"
	case Postgres:
		ddl = "CREATE TABLE IF NOT EXISTS " + table +
			" (k VARCHAR(255) NOT NULL PRIMARY KEY, data TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL)"
		upsert = "INSERT INTO " + table + " (k, data, updated_at) VALUES (?, ?, ?)" +
			" ON CONFLICT (k) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at"
	default:
		return nil, fmt.Errorf("storage: unsupported sql driver %q", driverName)
	}
	s.saveSQL = str.ConvertDollarPlaceholder(upsert, driverName)
	s.loadSQL = str.ConvertDollarPlaceholder("SELECT data FROM "+table+" WHERE k = ?", driverName)
	s.delSQL = str.ConvertDollarPlaceholder("DELETE FROM "+table+" WHERE k = ?", driverName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("storage: create table %s: %w", table, err)
	}
	return s, nil
}

func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.loadSQL, Key(key)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", key, err)
	}
	return []byte(data), nil
}

func (s *SQLStore) Save(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.saveSQL, Key(key), string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("storage: save %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.delSQL, Key(key)); err != nil {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
