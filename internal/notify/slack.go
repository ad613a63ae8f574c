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

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"newsfeed/pkg/log"
	"newsfeed/pkg/tracing"
	"newsfeed/pkg/utils"
)

// SlackOptions Slack 配置
type SlackOptions struct {
	Token    string
	Channel  string
	Username string
	BaseURL  string
}

// Slack 每条文章一条 chat.postMessage
type Slack struct {
	client *resty.Client
	opts   SlackOptions
	logger *log.Logger
}

type slackMessage struct {
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewSlack 创建 Slack 渠道
func NewSlack(opts SlackOptions, logger *log.Logger) *Slack {
	opts.BaseURL = utils.CoalesceString(opts.BaseURL, "https://slack.com/api")
	opts.Channel = utils.CoalesceString(opts.Channel, "#newsfeed-demo")
	if logger == nil {
		logger = log.Nop()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetAuthToken(opts.Token)
	return &Slack{client: client, opts: opts, logger: logger}
}

// Notify 实现 Notifier；单条失败只记日志，全部失败时返回错误
func (s *Slack) Notify(ctx context.Context, d Digest) (err error) {
	if len(d.Articles) == 0 {
		return nil
	}
	ctx, span := tracing.StartProviderSpan(ctx, "notify", "slack")
	defer func() { tracing.EndSpan(span, err) }()

	var failed int
	var lastErr error
	for _, a := range d.Articles {
		if postErr := s.post(ctx, a.Title+" "+a.Link); postErr != nil {
			failed++
			lastErr = postErr
			s.logger.Error("slack post failed", "title", a.Title, "error", postErr)
		}
	}
	if failed == len(d.Articles) {
		return fmt.Errorf("slack: all %d posts failed: %w", failed, lastErr)
	}
	return nil
}

func (s *Slack) post(ctx context.Context, text string) error {
	var out slackResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(slackMessage{Channel: s.opts.Channel, Text: text, Username: s.opts.Username}).
		SetResult(&out).
		Post("/chat.postMessage")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("status %d", resp.StatusCode())
	}
	if !out.OK {
		return fmt.Errorf("slack api error: %s", out.Error)
	}
	return nil
}
