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

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"

	"newsfeed/internal/feed"
	"newsfeed/internal/mapping"
	"newsfeed/internal/newsfeed"
)

func apiBaseURL() string {
	if u := os.Getenv("NEWSFEED_API_URL"); u != "" {
		return u
	}
	return "http://localhost:3000"
}

// apiError 服务端统一错误体
type apiError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type apiClient struct {
	r *resty.Client
}

func newClient(baseURL, token string) *apiClient {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		r.SetAuthToken(token)
	}
	return &apiClient{r: r}
}

func (c *apiClient) do(method, path string, body, out interface{}, okCodes ...int) error {
	var apiErr apiError
	req := c.r.R().SetError(&apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if len(okCodes) == 0 {
		okCodes = []int{http.StatusOK}
	}
	for _, code := range okCodes {
		if resp.StatusCode() == code {
			return nil
		}
	}
	if apiErr.Message != "" {
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode(), apiErr.Message)
	}
	return fmt.Errorf("%s %s: %s", method, path, resp.Status())
}

func (c *apiClient) login(user, pass string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": user, "password": pass}, &out)
	return out.Token, err
}

func (c *apiClient) subscribe(topic string) (*feed.Subscription, error) {
	var out feed.Subscription
	err := c.do(http.MethodPost, "/api/newsfeed", map[string]string{"topic": topic}, &out, http.StatusOK, http.StatusCreated)
	return &out, err
}

func (c *apiClient) results(qid string) ([]newsfeed.Article, []string, error) {
	var out struct {
		Articles []newsfeed.Article `json:"articles"`
		Dates    []string           `json:"dates"`
	}
	err := c.do(http.MethodGet, "/api/newsfeed/"+qid, nil, &out)
	return out.Articles, out.Dates, err
}

func (c *apiClient) dates(qid string) ([]string, error) {
	var out struct {
		Dates []string `json:"dates"`
	}
	err := c.do(http.MethodGet, "/api/newsfeed/"+qid+"/dates", nil, &out)
	return out.Dates, err
}

func (c *apiClient) state(qid string) (newsfeed.Status, error) {
	var out struct {
		State newsfeed.Status `json:"state"`
	}
	err := c.do(http.MethodGet, "/api/newsfeed/"+qid+"/state", nil, &out)
	return out.State, err
}

func (c *apiClient) appendArticle(qid string, item newsfeed.RawNewsItem) ([]newsfeed.Article, error) {
	var out struct {
		Articles []newsfeed.Article `json:"articles"`
	}
	err := c.do(http.MethodPost, "/api/newsfeed/"+qid+"/articles", item, &out)
	return out.Articles, err
}

func (c *apiClient) signal(qid, name string) error {
	return c.do(http.MethodPost, "/api/newsfeed/"+qid+"/"+name, nil, nil, http.StatusAccepted)
}

func (c *apiClient) list() ([]mapping.Mapping, error) {
	var out struct {
		Subscriptions []mapping.Mapping `json:"subscriptions"`
	}
	err := c.do(http.MethodGet, "/api/newsfeed", nil, &out)
	return out.Subscriptions, err
}

func prettyJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
