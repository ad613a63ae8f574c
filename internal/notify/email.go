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
	"time"

	gomail "gopkg.in/mail.v2"

	"newsfeed/pkg/tracing"
	"newsfeed/pkg/utils"
)

// MailSender 发送邮件；*gomail.Dialer 满足该接口
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailOptions SMTP 配置
type EmailOptions struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
}

// Email 以 HTML + 纯文本发送摘要邮件
type Email struct {
	opts   EmailOptions
	sender MailSender
}

// NewEmail 创建 Email 渠道
func NewEmail(opts EmailOptions) *Email {
	opts.SMTPHost = utils.CoalesceString(opts.SMTPHost, "smtp.gmail.com")
	opts.SMTPPort = utils.DefaultInt(opts.SMTPPort, 587)
	dialer := gomail.NewDialer(opts.SMTPHost, opts.SMTPPort, opts.Username, opts.Password)
	if opts.Timeout > 0 {
		dialer.Timeout = opts.Timeout
	}
	return NewEmailWithSender(opts, dialer)
}

// NewEmailWithSender 使用自定义 sender（测试使用）
func NewEmailWithSender(opts EmailOptions, sender MailSender) *Email {
	opts.From = utils.CoalesceString(opts.From, opts.Username)
	return &Email{opts: opts, sender: sender}
}

// Message 构造邮件
func (e *Email) Message(d Digest) (*gomail.Message, error) {
	html, err := RenderHTML(d)
	if err != nil {
		return nil, err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.opts.From)
	m.SetHeader("To", e.opts.To)
	m.SetHeader("Subject", Subject(d))
	m.SetBody("text/plain", RenderText(d))
	m.AddAlternative("text/html", html)
	return m, nil
}

// Notify 实现 Notifier
func (e *Email) Notify(ctx context.Context, d Digest) (err error) {
	if len(d.Articles) == 0 {
		return nil
	}
	_, span := tracing.StartProviderSpan(ctx, "notify", "email")
	defer func() { tracing.EndSpan(span, err) }()

	m, err := e.Message(d)
	if err != nil {
		return err
	}
	return e.sender.DialAndSend(m)
}
