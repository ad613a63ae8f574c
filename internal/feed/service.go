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

// Package feed 面向 API 的订阅服务：按主题复用或启动累积 workflow，并转发查询与控制操作
package feed

import (
	"context"
	"sort"
	"strings"
	"time"

	"newsfeed/internal/mapping"
	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/errors"
	"newsfeed/pkg/log"
	"newsfeed/pkg/metrics"
)

// Gateway 对累积 workflow 的操作；accumulator.Client 实现该接口
type Gateway interface {
	Start(ctx context.Context, workflowID string, topic newsfeed.Topic) error
	CurrentResults(ctx context.Context, workflowID string) ([]newsfeed.Article, error)
	ProcessedDates(ctx context.Context, workflowID string) ([]string, error)
	State(ctx context.Context, workflowID string) (newsfeed.Status, error)
	Append(ctx context.Context, workflowID string, article newsfeed.Article) ([]newsfeed.Article, error)
	Exit(ctx context.Context, workflowID string) error
	KeepAlive(ctx context.Context, workflowID string) error
}

// Subscription 订阅结果
type Subscription struct {
	QueryID    string             `json:"queryId"`
	WorkflowID string             `json:"workflowId"`
	Topic      string             `json:"topic"`
	Articles   []newsfeed.Article `json:"articles"`
	Dates      []string           `json:"dates"`
	Reused     bool               `json:"reused"`
}

// Options 服务参数
type Options struct {
	InitialWait  time.Duration
	PollInterval time.Duration
	Now          func() time.Time
	Sleep        func(ctx context.Context, d time.Duration) error
}

// Service 订阅服务
type Service struct {
	store  mapping.Store
	gw     Gateway
	opts   Options
	logger *log.Logger
}

// NewService 创建服务
func NewService(store mapping.Store, gw Gateway, opts Options, logger *log.Logger) *Service {
	if opts.InitialWait <= 0 {
		opts.InitialWait = 30 * time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{store: store, gw: gw, opts: opts, logger: logger}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// UniqueDates 结果中出现过的日期（升序去重）
func UniqueDates(articles []newsfeed.Article) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, a := range articles {
		if a.Date == "" {
			continue
		}
		if _, ok := seen[a.Date]; ok {
			continue
		}
		seen[a.Date] = struct{}{}
		out = append(out, a.Date)
	}
	sort.Strings(out)
	return out
}

// Subscribe 订阅主题：已有 workflow 且有结果时直接复用并保活；否则以今天为起点启动新 workflow（带入旧结果），
// 并在 InitialWait 内轮询首批结果
func (s *Service) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.Wrap(errors.ErrInvalidArg, "topic is required")
	}
	qid := mapping.QueryID(topic)
	today := s.opts.Now().Format(newsfeed.DateLayout)
	logger := s.logger.With("query_id", qid, "topic", topic)
	logger.Info("newsfeed subscribe", "date", today)

	var carried []newsfeed.Article
	existing, err := s.store.Get(ctx, qid)
	switch {
	case err == nil:
		articles, qerr := s.gw.CurrentResults(ctx, existing.WorkflowID)
		if qerr == nil {
			if kerr := s.gw.KeepAlive(ctx, existing.WorkflowID); kerr != nil {
				logger.Warn("keepalive failed", "workflow_id", existing.WorkflowID, "error", kerr)
			}
			if len(articles) > 0 {
				metrics.SubscriptionTotal.WithLabelValues("reused").Inc()
				logger.Info("reusing workflow", "workflow_id", existing.WorkflowID, "articles", len(articles))
				return s.subscription(qid, existing.WorkflowID, topic, articles, true), nil
			}
			carried = articles
		} else {
			logger.Warn("existing workflow unavailable", "workflow_id", existing.WorkflowID, "error", qerr)
		}
	case errors.Is(err, mapping.ErrNotFound):
	default:
		logger.Warn("mapping lookup failed", "error", err)
	}

	workflowID := mapping.NewWorkflowID(qid)
	startErr := s.gw.Start(ctx, workflowID, newsfeed.Topic{
		TopicDate:       today,
		TopicString:     topic,
		PreviousResults: carried,
	})
	switch {
	case startErr == nil:
		metrics.SubscriptionTotal.WithLabelValues("started").Inc()
		if err := s.store.Put(ctx, mapping.Mapping{
			QueryID:    qid,
			WorkflowID: workflowID,
			Topic:      topic,
			UpdatedAt:  s.opts.Now().UTC(),
		}); err != nil {
			logger.Warn("save mapping failed", "workflow_id", workflowID, "error", err)
		}
		articles := s.waitForResults(ctx, workflowID, logger)
		return s.subscription(qid, workflowID, topic, articles, false), nil
	case errors.Is(startErr, errors.ErrAlreadyRunning):
		metrics.SubscriptionTotal.WithLabelValues("already_running").Inc()
		logger.Warn("workflow already started", "workflow_id", workflowID)
		articles, err := s.gw.CurrentResults(ctx, workflowID)
		if err != nil {
			logger.Error("query running workflow failed", "workflow_id", workflowID, "error", err)
		}
		return s.subscription(qid, workflowID, topic, articles, true), nil
	default:
		metrics.SubscriptionTotal.WithLabelValues("failed").Inc()
		logger.Error("start workflow failed", "workflow_id", workflowID, "error", startErr)
		return nil, startErr
	}
}

func (s *Service) waitForResults(ctx context.Context, workflowID string, logger *log.Logger) []newsfeed.Article {
	var articles []newsfeed.Article
	for waited := time.Duration(0); waited < s.opts.InitialWait; waited += s.opts.PollInterval {
		got, err := s.gw.CurrentResults(ctx, workflowID)
		if err != nil {
			logger.Warn("query initial results failed", "workflow_id", workflowID, "error", err)
		} else if len(got) > 0 {
			logger.Info("initial results ready", "workflow_id", workflowID, "articles", len(got), "waited", waited)
			return got
		} else {
			articles = got
		}
		if err := s.opts.Sleep(ctx, s.opts.PollInterval); err != nil {
			break
		}
	}
	logger.Info("initial wait elapsed", "workflow_id", workflowID, "articles", len(articles))
	return articles
}

func (s *Service) subscription(qid, workflowID, topic string, articles []newsfeed.Article, reused bool) *Subscription {
	if articles == nil {
		articles = []newsfeed.Article{}
	}
	return &Subscription{
		QueryID:    qid,
		WorkflowID: workflowID,
		Topic:      topic,
		Articles:   articles,
		Dates:      UniqueDates(articles),
		Reused:     reused,
	}
}

// Updates 当前结果及其日期；query id 未映射时返回 ErrNotFound
func (s *Service) Updates(ctx context.Context, queryID string) (*Subscription, error) {
	m, err := s.store.Get(ctx, queryID)
	if err != nil {
		return nil, err
	}
	articles, err := s.gw.CurrentResults(ctx, m.WorkflowID)
	if err != nil {
		return nil, err
	}
	return s.subscription(queryID, m.WorkflowID, m.Topic, articles, true), nil
}

// ProcessedDates 已处理日期
func (s *Service) ProcessedDates(ctx context.Context, queryID string) ([]string, error) {
	m, err := s.store.Get(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return s.gw.ProcessedDates(ctx, m.WorkflowID)
}

// State 运行概况
func (s *Service) State(ctx context.Context, queryID string) (newsfeed.Status, error) {
	m, err := s.store.Get(ctx, queryID)
	if err != nil {
		return newsfeed.Status{}, err
	}
	return s.gw.State(ctx, m.WorkflowID)
}

// Append 向主题 workflow 注入文章
func (s *Service) Append(ctx context.Context, queryID string, article newsfeed.Article) ([]newsfeed.Article, error) {
	if err := newsfeed.ValidateDate(article.Date); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidArg, err.Error())
	}
	m, err := s.store.Get(ctx, queryID)
	if err != nil {
		return nil, err
	}
	return s.gw.Append(ctx, m.WorkflowID, article)
}

// Exit 请求主题 workflow 结束
func (s *Service) Exit(ctx context.Context, queryID string) error {
	m, err := s.store.Get(ctx, queryID)
	if err != nil {
		return err
	}
	s.logger.Info("exit requested", "query_id", queryID, "workflow_id", m.WorkflowID)
	return s.gw.Exit(ctx, m.WorkflowID)
}

// KeepAlive 发送保活信号
func (s *Service) KeepAlive(ctx context.Context, queryID string) error {
	m, err := s.store.Get(ctx, queryID)
	if err != nil {
		return err
	}
	return s.gw.KeepAlive(ctx, m.WorkflowID)
}

// Subscriptions 所有已映射主题
func (s *Service) Subscriptions(ctx context.Context) ([]mapping.Mapping, error) {
	return s.store.List(ctx)
}
