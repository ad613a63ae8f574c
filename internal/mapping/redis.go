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
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisHashKey = "newsfeed:workflow_mappings"

type redisStore struct {
	rdb *redis.Client
}

// NewRedisStore Redis hash 存储，field 为 query id
func NewRedisStore(ctx context.Context, addr, password string, db int) (Store, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &redisStore{rdb: rdb}, nil
}

func (s *redisStore) Get(ctx context.Context, queryID string) (*Mapping, error) {
	data, err := s.rdb.HGet(ctx, redisHashKey, queryID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m Mapping
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *redisStore) Put(ctx context.Context, m Mapping) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, redisHashKey, m.QueryID, data).Err()
}

func (s *redisStore) List(ctx context.Context) ([]Mapping, error) {
	all, err := s.rdb.HGetAll(ctx, redisHashKey).Result()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Mapping, len(all))
	for id, raw := range all {
		var m Mapping
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			continue
		}
		byID[id] = m
	}
	return sortedMappings(byID), nil
}

func (s *redisStore) Close() error {
	return s.rdb.Close()
}
