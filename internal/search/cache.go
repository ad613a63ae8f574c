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

package search

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/log"
	"newsfeed/pkg/metrics"
)

// Cache 以 Redis 缓存检索结果；缓存读写失败只记日志，不影响检索
type Cache struct {
	next   Provider
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *log.Logger
}

// WithCache 创建缓存装饰器
func WithCache(next Provider, rdb redis.Cmdable, ttl time.Duration, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Nop()
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// CacheKey 缓存键
func CacheKey(topic, date string) string {
	return fmt.Sprintf("newsfeed:search:%x:%s", md5.Sum([]byte(topic)), date)
}

// Search 实现 Provider
func (c *Cache) Search(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
	key := CacheKey(topic, date)
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var items []newsfeed.RawNewsItem
		if jsonErr := json.Unmarshal(data, &items); jsonErr == nil {
			metrics.SearchCacheTotal.WithLabelValues("hit").Inc()
			return items, nil
		}
		c.logger.Warn("search cache entry corrupt", "key", key)
		metrics.SearchCacheTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.SearchCacheTotal.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("search cache read failed", "key", key, "error", err)
		metrics.SearchCacheTotal.WithLabelValues("error").Inc()
	}

	items, err := c.next.Search(ctx, topic, date)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(items); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("search cache write failed", "key", key, "error", err)
		}
	}
	return items, nil
}
