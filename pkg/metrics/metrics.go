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

package metrics

import (
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// DefaultRegistry 独立 registry，避免与第三方库注册到全局的指标混在一起
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		CycleTotal, ArticlesAppended, DuplicatesSkipped,
		ActivityDuration, ActivityFailTotal,
		NotifyFailTotal, SearchCacheTotal,
		HTTPRequestTotal, SubscriptionTotal,
	)
}

// CycleTotal 累积轮次总数（按结果）
var CycleTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsfeed_cycle_total",
		Help: "累积轮次总数",
	},
	[]string{"outcome"}, // completed | aborted | continued | exited
)

// ArticlesAppended 去重后新增文章数
var ArticlesAppended = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsfeed_articles_appended_total",
		Help: "去重后新增文章数",
	},
	[]string{"origin"}, // fetch | update
)

// DuplicatesSkipped 去重跳过的条目数
var DuplicatesSkipped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "newsfeed_duplicates_skipped_total",
		Help: "去重跳过的条目数",
	},
)

// ActivityDuration Activity 耗时（秒）
var ActivityDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "newsfeed_activity_duration_seconds",
		Help:    "Activity 耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"activity"},
)

// ActivityFailTotal Activity 单次尝试失败数
var ActivityFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsfeed_activity_fail_total",
		Help: "Activity 单次尝试失败数",
	},
	[]string{"activity", "retryable"},
)

// NotifyFailTotal 通知渠道投递失败数
var NotifyFailTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsfeed_notify_fail_total",
		Help: "通知渠道投递失败数",
	},
	[]string{"channel"},
)

// SearchCacheTotal 检索缓存命中情况
var SearchCacheTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsfeed_search_cache_total",
		Help: "检索缓存命中情况",
	},
	[]string{"result"}, // hit | miss | error
)

// HTTPRequestTotal API 请求数
var HTTPRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsfeed_http_requests_total",
		Help: "API 请求数",
	},
	[]string{"method", "status"},
)

// SubscriptionTotal 订阅请求结果
var SubscriptionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "newsfeed_subscription_total",
		Help: "订阅请求结果",
	},
	[]string{"result"}, // reused | started | already_running | failed
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// Handler 返回 net/http 形式的 /metrics handler（worker 进程使用）
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}
