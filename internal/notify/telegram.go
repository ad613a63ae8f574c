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
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"newsfeed/pkg/tracing"
)

// TelegramOptions Telegram 配置；APIEndpoint 形如 https://api.telegram.org/bot%s/%s
type TelegramOptions struct {
	Token       string
	ChatID      int64
	APIEndpoint string
}

// Telegram 将摘要作为一条消息发送到指定会话
type Telegram struct {
	opts TelegramOptions

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

// NewTelegram 创建 Telegram 渠道；Bot 在首次发送时初始化
func NewTelegram(opts TelegramOptions) *Telegram {
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	return &Telegram{opts: opts}
}

func (t *Telegram) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.opts.Token, t.opts.APIEndpoint)
	if err != nil {
		return nil, err
	}
	t.bot = bot
	return bot, nil
}

// Notify 实现 Notifier
func (t *Telegram) Notify(ctx context.Context, d Digest) (err error) {
	if len(d.Articles) == 0 {
		return nil
	}
	_, span := tracing.StartProviderSpan(ctx, "notify", "telegram")
	defer func() { tracing.EndSpan(span, err) }()

	bot, err := t.client()
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.opts.ChatID, truncateRunes(RenderText(d), telegramMaxRunes))
	msg.DisableWebPagePreview = true
	_, err = bot.Send(msg)
	return err
}
