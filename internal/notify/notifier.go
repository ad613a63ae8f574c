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

// Package notify 将累积结果投递到外部渠道（Slack / Telegram / Email / 日志）
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
	"newsfeed/pkg/metrics"
)

// Digest 一次通知的内容
type Digest struct {
	Topic    string
	Date     string
	Articles []newsfeed.Article
	NewCount int
}

// Notifier 通知渠道
type Notifier interface {
	Notify(ctx context.Context, d Digest) error
}

// Channel 带名字的渠道，用于日志与指标
type Channel struct {
	Name     string
	Notifier Notifier
}

// Multi 依次投递到所有渠道；任一渠道失败不影响其他渠道，错误合并返回
type Multi struct {
	channels []Channel
	logger   *log.Logger
}

// NewMulti 创建 Multi
func NewMulti(logger *log.Logger, channels ...Channel) *Multi {
	if logger == nil {
		logger = log.Nop()
	}
	return &Multi{channels: channels, logger: logger}
}

// Notify 实现 Notifier
func (m *Multi) Notify(ctx context.Context, d Digest) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.Notifier.Notify(ctx, d); err != nil {
			metrics.NotifyFailTotal.WithLabelValues(ch.Name).Inc()
			m.logger.Error("notify channel failed", "channel", ch.Name, "topic", d.Topic, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Build 按配置组装通知渠道；未配置任何渠道时只写日志
func Build(cfg config.NotifyConfig, logger *log.Logger) (Notifier, error) {
	if logger == nil {
		logger = log.Nop()
	}
	names := cfg.Channels
	if len(names) == 0 {
		names = []string{"log"}
	}
	var channels []Channel
	for _, name := range names {
		var n Notifier
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "slack":
			if cfg.Slack.Token == "" {
				return nil, fmt.Errorf("notify: slack token is required")
			}
			n = NewSlack(SlackOptions{
				Token:    cfg.Slack.Token,
				Channel:  cfg.Slack.Channel,
				Username: cfg.Slack.Username,
				BaseURL:  cfg.Slack.BaseURL,
			}, logger)
		case "telegram":
			if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
				return nil, fmt.Errorf("notify: telegram token and chat_id are required")
			}
			n = NewTelegram(TelegramOptions{
				Token:       cfg.Telegram.Token,
				ChatID:      cfg.Telegram.ChatID,
				APIEndpoint: cfg.Telegram.APIEndpoint,
			})
		case "email":
			if cfg.Email.To == "" {
				return nil, fmt.Errorf("notify: email recipient is required")
			}
			n = NewEmail(EmailOptions{
				SMTPHost: cfg.Email.SMTPHost,
				SMTPPort: cfg.Email.SMTPPort,
				Username: cfg.Email.Username,
				Password: cfg.Email.Password,
				From:     cfg.Email.From,
				To:       cfg.Email.To,
				Timeout:  10 * time.Second,
			})
		case "log":
			n = NewLog(logger)
		default:
			return nil, fmt.Errorf("notify: unsupported channel %q", name)
		}
		channels = append(channels, Channel{Name: name, Notifier: n})
	}
	return NewMulti(logger, channels...), nil
}
