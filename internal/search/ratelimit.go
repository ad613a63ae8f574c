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

	"golang.org/x/time/rate"

	"newsfeed/internal/newsfeed"
)

type rateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// WithRateLimit 令牌桶限流；qps <= 0 时不限流
func WithRateLimit(next Provider, qps float64, burst int) Provider {
	if qps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(qps), burst)}
}

func (r *rateLimited) Search(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Search(ctx, topic, date)
}
