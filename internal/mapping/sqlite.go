// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mapping

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS newsfeed_workflow_mappings (
	query_id    TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	topic       TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMP NOT NULL
)`

type sqliteStore struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// NewSQLiteStore SQLite 存储（需要 cgo）
func NewSQLiteStore(ctx context.Context, path string) (Store, error) {
	if path == "" {
		path = "newsfeed.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("mapping: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mapping: connect sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("mapping: apply schema: %w", err)
	}
	return &sqliteStore{db: db, sb: sq.StatementBuilder.RunWith(db)}, nil
}

func (s *sqliteStore) Get(ctx context.Context, queryID string) (*Mapping, error) {
	var m Mapping
	err := s.sb.Select("query_id", "workflow_id", "topic", "updated_at").
		From(mappingTable).
		Where(sq.Eq{"query_id": queryID}).
		QueryRowContext(ctx).
		Scan(&m.QueryID, &m.WorkflowID, &m.Topic, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *sqliteStore) Put(ctx context.Context, m Mapping) error {
	_, err := s.sb.Insert(mappingTable).
		Columns("query_id", "workflow_id", "topic", "updated_at").
		Values(m.QueryID, m.WorkflowID, m.Topic, m.UpdatedAt.UTC()).
		Suffix(upsertSuffix).
		ExecContext(ctx)
	return err
}

func (s *sqliteStore) List(ctx context.Context) ([]Mapping, error) {
	rows, err := s.sb.Select("query_id", "workflow_id", "topic", "updated_at").
		From(mappingTable).
		OrderBy("query_id").
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Mapping
	for rows.Next() {
		var m Mapping
		if err := rows.Scan(&m.QueryID, &m.WorkflowID, &m.Topic, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
