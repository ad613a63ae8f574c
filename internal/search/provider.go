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

// Package search 新闻检索 provider 及其装饰器（限流、Redis 缓存）
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
)

// ErrPermanent provider 明确拒绝请求（鉴权失败、参数错误），重试无意义
var ErrPermanent = errors.New("permanent search failure")

// Provider 按主题与日期检索新闻，返回顺序即 provider 顺序
type Provider interface {
	Search(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error)
}

// ProviderFunc 函数适配 Provider
type ProviderFunc func(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error)

// Search 实现 Provider
func (f ProviderFunc) Search(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
	return f(ctx, topic, date)
}

// Build 按配置组装 provider：基础 provider -> 缓存 -> 限流。返回的 cleanup 关闭底层连接
func Build(cfg config.SearchConfig, logger *log.Logger) (Provider, func(), error) {
	var p Provider
	switch cfg.Provider {
	case "", "serpapi":
		if cfg.SerpAPI.APIKey == "" {
			return nil, nil, fmt.Errorf("search: serpapi api_key is required")
		}
		p = NewSerpAPI(SerpAPIOptions{
			BaseURL:      cfg.SerpAPI.BaseURL,
			APIKey:       cfg.SerpAPI.APIKey,
			GoogleDomain: cfg.SerpAPI.GoogleDomain,
			GL:           cfg.SerpAPI.GL,
			HL:           cfg.SerpAPI.HL,
			ExactDate:    cfg.SerpAPI.ExactDate,
			Timeout:      config.Duration(cfg.SerpAPI.Timeout, 20*time.Second),
		})
	case "fixture":
		f, err := LoadFixture(cfg.Fixture.Path)
		if err != nil {
			return nil, nil, err
		}
		p = f
	default:
		return nil, nil, fmt.Errorf("search: unsupported provider %q", cfg.Provider)
	}

	cleanup := func() {}
	if cfg.Cache.Enable {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		p = WithCache(p, rdb, config.Duration(cfg.Cache.TTL, 10*time.Minute), logger)
		cleanup = func() { _ = rdb.Close() }
	}
	p = WithRateLimit(p, cfg.RateLimit.QPS, cfg.RateLimit.Burst)
	return p, cleanup, nil
}
