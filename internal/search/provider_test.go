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
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/config"
)

func TestFixture_Search(t *testing.T) {
	f, err := LoadFixture("testdata/fixture.yaml")
	require.NoError(t, err)

	items, err := f.Search(context.Background(), "anything", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Example Wire", *items[0].Source)
	assert.Nil(t, items[1].Source)

	leap, err := f.Search(context.Background(), "anything", "2024-02-29")
	require.NoError(t, err)
	require.Len(t, leap, 2)
	assert.Nil(t, leap[1].Title)
}

func TestLoadFixture_Errors(t *testing.T) {
	_, err := LoadFixture("")
	assert.Error(t, err)
	_, err = LoadFixture("testdata/missing.yaml")
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	p, cleanup, err := Build(config.SearchConfig{
		Provider:  "fixture",
		Fixture:   config.FixtureConfig{Path: "testdata/fixture.yaml"},
		RateLimit: config.RateLimitConfig{QPS: 100, Burst: 5},
	}, nil)
	require.NoError(t, err)
	defer cleanup()
	items, err := p.Search(context.Background(), "bitcoin", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, _, err = Build(config.SearchConfig{Provider: "serpapi"}, nil)
	assert.Error(t, err, "serpapi requires an api key")
	_, _, err = Build(config.SearchConfig{Provider: "bing"}, nil)
	assert.Error(t, err)
}

func TestWithRateLimit_ContextCancelled(t *testing.T) {
	calls := 0
	p := WithRateLimit(ProviderFunc(func(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
		calls++
		return nil, nil
	}), 0.001, 1)

	_, err := p.Search(context.Background(), "a", "2024-01-01")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Search(ctx, "a", "2024-01-01")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRateLimit_Disabled(t *testing.T) {
	base := ProviderFunc(func(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) { return nil, nil })
	p := WithRateLimit(base, 0, 0)
	_, ok := p.(ProviderFunc)
	assert.True(t, ok)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("bitcoin", "2024-01-01"), CacheKey("bitcoin", "2024-01-01"))
	assert.NotEqual(t, CacheKey("bitcoin", "2024-01-01"), CacheKey("bitcoin", "2024-01-02"))
	assert.Contains(t, CacheKey("bitcoin", "2024-01-01"), "newsfeed:search:")
}

func TestCache_Redis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping Redis cache tests")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	topic := "cache-test-" + time.Now().Format(time.RFC3339Nano)
	defer rdb.Del(ctx, CacheKey(topic, "2024-01-01"))

	calls := 0
	c := WithCache(ProviderFunc(func(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
		calls++
		return []newsfeed.RawNewsItem{{Title: newsfeed.Str("cached")}}, nil
	}), rdb, time.Minute, nil)

	for i := 0; i < 2; i++ {
		items, err := c.Search(ctx, topic, "2024-01-01")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "cached", *items[0].Title)
	}
	assert.Equal(t, 1, calls)
}
