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
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/tracing"
	"newsfeed/pkg/utils"
)

const noResultsMessage = "Google hasn't returned any results for this query."

// SerpAPIOptions SerpAPI 请求参数
type SerpAPIOptions struct {
	BaseURL      string
	APIKey       string
	GoogleDomain string
	GL           string
	HL           string
	ExactDate    bool
	Timeout      time.Duration
}

// SerpAPI 通过 SerpAPI 的 Google News 检索（engine=google, tbm=nws）
type SerpAPI struct {
	client *resty.Client
	opts   SerpAPIOptions
}

// NewSerpAPI 创建 SerpAPI provider
func NewSerpAPI(opts SerpAPIOptions) *SerpAPI {
	opts.BaseURL = utils.CoalesceString(opts.BaseURL, "https://serpapi.com")
	opts.GoogleDomain = utils.CoalesceString(opts.GoogleDomain, "google.com")
	opts.GL = utils.CoalesceString(opts.GL, "us")
	opts.HL = utils.CoalesceString(opts.HL, "en")
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json")
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}
	return &SerpAPI{client: client, opts: opts}
}

type serpSource string

// UnmarshalJSON source 可能是字符串，也可能是 {"name": ...}
func (s *serpSource) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = serpSource(str)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*s = serpSource(obj.Name)
	return nil
}

type serpNewsResult struct {
	Position  int         `json:"position"`
	Title     *string     `json:"title"`
	Link      *string     `json:"link"`
	Source    *serpSource `json:"source"`
	Date      string      `json:"date"`
	Thumbnail *string     `json:"thumbnail"`
	Snippet   *string     `json:"snippet"`
}

type serpResponse struct {
	NewsResults []serpNewsResult `json:"news_results"`
	Error       string           `json:"error"`
}

// Params 构造查询参数
func (s *SerpAPI) Params(topic, date string) map[string]string {
	tbs := "qdr:d"
	if s.opts.ExactDate {
		if y, m, d, err := newsfeed.ParseDate(date); err == nil {
			day := fmt.Sprintf("%d/%d/%d", m, d, y)
			tbs = "cdr:1,cd_min:" + day + ",cd_max:" + day
		}
	}
	return map[string]string{
		"engine":        "google",
		"q":             topic,
		"google_domain": s.opts.GoogleDomain,
		"tbs":           tbs,
		"tbm":           "nws",
		"gl":            s.opts.GL,
		"hl":            s.opts.HL,
		"api_key":       s.opts.APIKey,
	}
}

// Search 实现 Provider
func (s *SerpAPI) Search(ctx context.Context, topic, date string) (items []newsfeed.RawNewsItem, err error) {
	ctx, span := tracing.StartProviderSpan(ctx, "search", "serpapi")
	defer func() { tracing.EndSpan(span, err) }()

	var body, errBody serpResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(s.Params(topic, date)).
		SetResult(&body).
		SetError(&errBody).
		Get("/search.json")
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}

	switch code := resp.StatusCode(); {
	case code == 400 || code == 401 || code == 403:
		return nil, fmt.Errorf("%w: serpapi status %d: %s", ErrPermanent, code, errBody.Error)
	case code >= 300:
		return nil, fmt.Errorf("serpapi status %d: %s", code, errBody.Error)
	}

	if body.Error != "" {
		if body.Error == noResultsMessage {
			return []newsfeed.RawNewsItem{}, nil
		}
		return nil, fmt.Errorf("serpapi: %s", body.Error)
	}

	items = make([]newsfeed.RawNewsItem, 0, len(body.NewsResults))
	for _, r := range body.NewsResults {
		item := newsfeed.RawNewsItem{
			Title:     r.Title,
			Link:      r.Link,
			Date:      r.Date,
			Thumbnail: r.Thumbnail,
			Snippet:   r.Snippet,
		}
		if r.Source != nil {
			item.Source = newsfeed.Str(string(*r.Source))
		}
		items = append(items, item)
	}
	return items, nil
}
