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

	"newsfeed/pkg/log"
)

// Log 只写日志的渠道
type Log struct {
	logger *log.Logger
}

// NewLog 创建日志渠道
func NewLog(logger *log.Logger) *Log {
	if logger == nil {
		logger = log.Nop()
	}
	return &Log{logger: logger}
}

// Notify 实现 Notifier
func (l *Log) Notify(ctx context.Context, d Digest) error {
	l.logger.InfoContext(ctx, "newsfeed digest",
		"topic", d.Topic,
		"date", d.Date,
		"new", d.NewCount,
		"total", len(d.Articles),
	)
	for _, a := range d.Articles {
		l.logger.DebugContext(ctx, "newsfeed article", "title", a.Title, "link", a.Link, "date", a.Date)
	}
	return nil
}
