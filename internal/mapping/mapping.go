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

// Package mapping 维护主题 query id 到当前 workflow id 的映射
package mapping

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"newsfeed/pkg/config"
	"newsfeed/pkg/errors"
)

// ErrNotFound query id 尚未映射
var ErrNotFound = errors.ErrNotFound

// Mapping 一条映射记录
type Mapping struct {
	QueryID    string    `json:"queryId"`
	WorkflowID string    `json:"workflowId"`
	Topic      string    `json:"topic"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store 映射存储；同一 query id 后写覆盖先写
type Store interface {
	Get(ctx context.Context, queryID string) (*Mapping, error)
	Put(ctx context.Context, m Mapping) error
	List(ctx context.Context) ([]Mapping, error)
	Close() error
}

// QueryID 主题的稳定短 id：md5 十六进制前 8 位
func QueryID(topic string) string {
	sum := md5.Sum([]byte(topic))
	return hex.EncodeToString(sum[:])[:8]
}

// NewWorkflowID 为 query id 生成新的 workflow id
func NewWorkflowID(queryID string) string {
	return fmt.Sprintf("newsfeed-%s-%s", queryID, strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// NewStore 按配置创建存储
func NewStore(ctx context.Context, cfg config.MappingConfig) (Store, error) {
	switch cfg.Type {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = "workflow_mappings.json"
		}
		return NewFileStore(path)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Addr, cfg.Password, cfg.DB)
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("mapping: unsupported store type %q", cfg.Type)
	}
}
