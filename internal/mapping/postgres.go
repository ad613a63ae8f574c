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
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const mappingTable = "newsfeed_workflow_mappings"

const pgSchema = `CREATE TABLE IF NOT EXISTS newsfeed_workflow_mappings (
	query_id    TEXT PRIMARY KEY,
	workflow_id TEXT NOT NULL,
	topic       TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL
)`

const upsertSuffix = "ON CONFLICT (query_id) DO UPDATE SET workflow_id = EXCLUDED.workflow_id, topic = EXCLUDED.topic, updated_at = EXCLUDED.updated_at"

type pgStore struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// NewPostgresStore PostgreSQL 存储；首次连接时建表
func NewPostgresStore(ctx context.Context, dsn string) (Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &pgStore{pool: pool, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}, nil
}

func (s *pgStore) Get(ctx context.Context, queryID string) (*Mapping, error) {
	query, args, err := s.sb.Select("query_id", "workflow_id", "topic", "updated_at").
		From(mappingTable).
		Where(sq.Eq{"query_id": queryID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var m Mapping
	err = s.pool.QueryRow(ctx, query, args...).Scan(&m.QueryID, &m.WorkflowID, &m.Topic, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *pgStore) Put(ctx context.Context, m Mapping) error {
	query, args, err := s.sb.Insert(mappingTable).
		Columns("query_id", "workflow_id", "topic", "updated_at").
		Values(m.QueryID, m.WorkflowID, m.Topic, m.UpdatedAt).
		Suffix(upsertSuffix).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, query, args...)
	return err
}

func (s *pgStore) List(ctx context.Context) ([]Mapping, error) {
	query, args, err := s.sb.Select("query_id", "workflow_id", "topic", "updated_at").
		From(mappingTable).
		OrderBy("query_id").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}
