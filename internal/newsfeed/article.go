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

// Package newsfeed 定义新闻累积的领域模型与纯函数：文章、去重、日期推进、累积状态。
// 本包不依赖任何运行时（Temporal / HTTP），workflow 重放时结果只由输入决定。
package newsfeed

import "time"

// 缺省字段策略：provider 未返回对应字段时使用
const (
	DefaultTitle     = "No Title"
	DefaultLink      = "#"
	DefaultSource    = "Unknown"
	DefaultSnippet   = "No description available"
	DefaultThumbnail = ""
)

// Article 累积结果中的一条新闻；加入后不再修改。唯一性由 (Title, Link, Date) 决定
type Article struct {
	Position  int    `json:"position"`
	Source    string `json:"source"`
	Title     string `json:"title"`
	Link      string `json:"link"`
	Date      string `json:"date"`
	Thumbnail string `json:"thumbnail"`
	Snippet   string `json:"snippet"`
}

// Key 去重键
func (a Article) Key() string {
	return ArticleKey(a.Title, a.Link, a.Date)
}

// WithDefaults 对空字段套用缺省值（外部 update 注入时无法区分缺失与空串，统一按缺失处理）
func (a Article) WithDefaults() Article {
	if a.Title == "" {
		a.Title = DefaultTitle
	}
	if a.Link == "" {
		a.Link = DefaultLink
	}
	if a.Source == "" {
		a.Source = DefaultSource
	}
	if a.Snippet == "" {
		a.Snippet = DefaultSnippet
	}
	return a
}

// RawNewsItem provider 返回的原始条目；除 Date 外字段均可缺失（nil）
type RawNewsItem struct {
	Title     *string `json:"title,omitempty" yaml:"title,omitempty"`
	Link      *string `json:"link,omitempty" yaml:"link,omitempty"`
	Source    *string `json:"source,omitempty" yaml:"source,omitempty"`
	Date      string  `json:"date,omitempty" yaml:"date,omitempty"` // provider 原始日期文本（如 "2 hours ago"），不参与去重
	Thumbnail *string `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	Snippet   *string `json:"snippet,omitempty" yaml:"snippet,omitempty"`
}

// Str 返回字符串指针，便于构造 RawNewsItem
func Str(s string) *string {
	return &s
}

// Topic workflow 初始化输入；PreviousResults 在首次启动或 continue-as-new 时回填结果
type Topic struct {
	TopicDate       string    `json:"topicDate"`
	TopicString     string    `json:"topicString"`
	PreviousResults []Article `json:"previousResults,omitempty"`
}

// SearchRequest 检索 activity 输入
type SearchRequest struct {
	Topic string `json:"topic"`
	Date  string `json:"date"`
}

// SearchResult 检索 activity 输出；Items 保持 provider 返回顺序
type SearchResult struct {
	Date  string        `json:"date"`
	Items []RawNewsItem `json:"items"`
}

// NotifyRequest 通知 activity 输入
type NotifyRequest struct {
	Topic    string    `json:"topic"`
	Date     string    `json:"date"`
	Articles []Article `json:"articles"`
	NewCount int       `json:"newCount"`
}

// Status get_state 查询返回的运行概况
type Status struct {
	Phase          string     `json:"phase"`
	TopicString    string     `json:"topicString"`
	CurrentDate    string     `json:"currentDate"`
	DayCount       int        `json:"dayCount"`
	ResultCount    int        `json:"resultCount"`
	ProcessedDates int        `json:"processedDates"`
	ExitRequested  bool       `json:"exitRequested"`
	LastSignalTime *time.Time `json:"lastSignalTime,omitempty"`
}
