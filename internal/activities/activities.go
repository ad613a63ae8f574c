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

// Package activities 累积 workflow 调用的 Temporal Activity：检索新闻、发送通知
package activities

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"newsfeed/internal/newsfeed"
	"newsfeed/internal/notify"
	"newsfeed/internal/search"
	"newsfeed/pkg/log"
	"newsfeed/pkg/metrics"
	"newsfeed/pkg/tracing"
)

// Activity 失败类型；workflow 的重试策略据此判断是否重试
const (
	ErrTypeValidation       = "ValidationError"
	ErrTypeProviderRejected = "ProviderRejected"
)

// Activities 持有外部依赖；以指针注册到 worker，方法名即 activity 名
type Activities struct {
	Searcher search.Provider
	Notifier notify.Notifier
	Logger   *log.Logger
}

// NewActivities 创建 Activities
func NewActivities(searcher search.Provider, notifier notify.Notifier, logger *log.Logger) *Activities {
	if logger == nil {
		logger = log.Nop()
	}
	return &Activities{Searcher: searcher, Notifier: notifier, Logger: logger}
}

func validationError(msg string, cause error) error {
	return temporal.NewNonRetryableApplicationError(msg, ErrTypeValidation, cause)
}

// SearchNews 检索某主题某日的新闻
func (a *Activities) SearchNews(ctx context.Context, req newsfeed.SearchRequest) (result *newsfeed.SearchResult, err error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, validationError("topic is required", nil)
	}
	if err := newsfeed.ValidateDate(req.Date); err != nil {
		return nil, validationError(err.Error(), err)
	}

	info := activity.GetInfo(ctx)
	logger := a.Logger.With("activity", "SearchNews", "topic", req.Topic, "date", req.Date, "attempt", info.Attempt)
	ctx, span := tracing.StartActivitySpan(ctx, "SearchNews", req.Topic, req.Date)
	start := time.Now()
	defer func() {
		metrics.ActivityDuration.WithLabelValues("SearchNews").Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()

	items, err := a.Searcher.Search(ctx, req.Topic, req.Date)
	if err != nil {
		retryable := !errors.Is(err, search.ErrPermanent)
		metrics.ActivityFailTotal.WithLabelValues("SearchNews", strconv.FormatBool(retryable)).Inc()
		logger.Warn("search failed", "error", err, "retryable", retryable)
		if !retryable {
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeProviderRejected, err)
		}
		return nil, err
	}
	logger.Info("search completed", "items", len(items))
	return &newsfeed.SearchResult{Date: req.Date, Items: items}, nil
}

// NotifyResults 将结果投递到已配置的通知渠道
func (a *Activities) NotifyResults(ctx context.Context, req newsfeed.NotifyRequest) (err error) {
	if a.Notifier == nil {
		return nil
	}
	ctx, span := tracing.StartActivitySpan(ctx, "NotifyResults", req.Topic, req.Date)
	start := time.Now()
	defer func() {
		metrics.ActivityDuration.WithLabelValues("NotifyResults").Observe(time.Since(start).Seconds())
		tracing.EndSpan(span, err)
	}()

	err = a.Notifier.Notify(ctx, notify.Digest{
		Topic:    req.Topic,
		Date:     req.Date,
		Articles: req.Articles,
		NewCount: req.NewCount,
	})
	if err != nil {
		metrics.ActivityFailTotal.WithLabelValues("NotifyResults", "true").Inc()
		a.Logger.Warn("notify failed", "topic", req.Topic, "date", req.Date, "error", err)
	}
	return err
}
