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

package http

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"newsfeed/internal/feed"
	"newsfeed/internal/mapping"
	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/auth"
	"newsfeed/pkg/errors"
	"newsfeed/pkg/log"
	"newsfeed/pkg/metrics"
)

// notFoundMessage 查询 id 未映射到任何 workflow 时的提示
const notFoundMessage = "No workflow found for this query"

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// FeedService 订阅服务；feed.Service 实现该接口
type FeedService interface {
	Subscribe(ctx context.Context, topic string) (*feed.Subscription, error)
	Updates(ctx context.Context, queryID string) (*feed.Subscription, error)
	ProcessedDates(ctx context.Context, queryID string) ([]string, error)
	State(ctx context.Context, queryID string) (newsfeed.Status, error)
	Append(ctx context.Context, queryID string, article newsfeed.Article) ([]newsfeed.Article, error)
	Exit(ctx context.Context, queryID string) error
	KeepAlive(ctx context.Context, queryID string) error
	Subscriptions(ctx context.Context) ([]mapping.Mapping, error)
}

// Handler HTTP 处理器
type Handler struct {
	svc          FeedService
	logger       *log.Logger
	defaultTopic string
}

// NewHandler 创建新的 HTTP 处理器
func NewHandler(svc FeedService, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return &Handler{svc: svc, logger: logger}
}

// SetDefaultTopic 首页表单预填的主题
func (h *Handler) SetDefaultTopic(topic string) {
	h.defaultTopic = topic
}

type subscribeRequest struct {
	Topic string `json:"topic"`
}

type appendRequest struct {
	Source    *string `json:"source"`
	Title     *string `json:"title"`
	Link      *string `json:"link"`
	Date      string  `json:"date"`
	Thumbnail *string `json:"thumbnail"`
	Snippet   *string `json:"snippet"`
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, utils.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Metrics 输出 Prometheus 文本格式指标
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	c.SetContentType("text/plain; version=0.0.4; charset=utf-8")
	if err := metrics.WritePrometheus(c); err != nil {
		c.String(consts.StatusInternalServerError, err.Error())
	}
}

// Index 首页：空表单
func (h *Handler) Index(ctx context.Context, c *app.RequestContext) {
	h.page(c, consts.StatusOK, utils.H{"topic": h.defaultTopic})
}

// SubscribeForm 首页表单提交：订阅主题并渲染当前结果
func (h *Handler) SubscribeForm(ctx context.Context, c *app.RequestContext) {
	topic := c.PostForm("topicString")
	sub, err := h.svc.Subscribe(ctx, topic)
	if err != nil {
		h.logger.Warn("表单订阅失败", "topic", topic, "error", err)
		h.page(c, statusOf(err), utils.H{"topic": topic, "error": err.Error()})
		return
	}
	h.page(c, consts.StatusOK, utils.H{
		"topic":   sub.Topic,
		"queryId": sub.QueryID,
		"results": sub.Articles,
		"dates":   sub.Dates,
	})
}

// page 渲染嵌入的 index.html；不依赖 engine 注册的 HTMLRender
func (h *Handler) page(c *app.RequestContext, status int, data utils.H) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "index.html", data); err != nil {
		h.logger.Error("渲染页面失败", "error", err)
		c.String(consts.StatusInternalServerError, "failed to render page")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// Subscribe POST /api/newsfeed
func (h *Handler) Subscribe(ctx context.Context, c *app.RequestContext) {
	var req subscribeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"status": "error", "message": "invalid request body"})
		return
	}
	sub, err := h.svc.Subscribe(ctx, req.Topic)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := consts.StatusCreated
	if sub.Reused {
		status = consts.StatusOK
	}
	c.JSON(status, utils.H{
		"status":     "success",
		"queryId":    sub.QueryID,
		"workflowId": sub.WorkflowID,
		"topic":      sub.Topic,
		"reused":     sub.Reused,
		"articles":   sub.Articles,
		"dates":      sub.Dates,
	})
}

// ListSubscriptions GET /api/newsfeed
func (h *Handler) ListSubscriptions(ctx context.Context, c *app.RequestContext) {
	list, err := h.svc.Subscriptions(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"status": "success", "subscriptions": list})
}

// GetUpdates GET /api/newsfeed/:qid
func (h *Handler) GetUpdates(ctx context.Context, c *app.RequestContext) {
	sub, err := h.svc.Updates(ctx, c.Param("qid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{
		"status":   "success",
		"articles": sub.Articles,
		"dates":    sub.Dates,
	})
}

// GetProcessedDates GET /api/newsfeed/:qid/dates
func (h *Handler) GetProcessedDates(ctx context.Context, c *app.RequestContext) {
	dates, err := h.svc.ProcessedDates(ctx, c.Param("qid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"status": "success", "dates": dates})
}

// GetState GET /api/newsfeed/:qid/state
func (h *Handler) GetState(ctx context.Context, c *app.RequestContext) {
	st, err := h.svc.State(ctx, c.Param("qid"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, utils.H{"status": "success", "state": st})
}

// AppendArticle POST /api/newsfeed/:qid/articles
func (h *Handler) AppendArticle(ctx context.Context, c *app.RequestContext) {
	var req appendRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"status": "error", "message": "invalid request body"})
		return
	}
	article := newsfeed.Normalize(newsfeed.RawNewsItem{
		Title:     req.Title,
		Link:      req.Link,
		Source:    req.Source,
		Date:      req.Date,
		Thumbnail: req.Thumbnail,
		Snippet:   req.Snippet,
	}, 0, req.Date)
	articles, err := h.svc.Append(ctx, c.Param("qid"), article)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("article appended", "query_id", c.Param("qid"), "title", article.Title, "user", auth.GetUserID(ctx))
	c.JSON(consts.StatusOK, utils.H{"status": "success", "articles": articles})
}

// Exit POST /api/newsfeed/:qid/exit
func (h *Handler) Exit(ctx context.Context, c *app.RequestContext) {
	if err := h.svc.Exit(ctx, c.Param("qid")); err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("exit requested", "query_id", c.Param("qid"), "user", auth.GetUserID(ctx))
	c.JSON(consts.StatusAccepted, utils.H{"status": "success"})
}

// KeepAlive POST /api/newsfeed/:qid/keepalive
func (h *Handler) KeepAlive(ctx context.Context, c *app.RequestContext) {
	if err := h.svc.KeepAlive(ctx, c.Param("qid")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(consts.StatusAccepted, utils.H{"status": "success"})
}

// fail 按错误类别输出统一的错误体
func (h *Handler) fail(c *app.RequestContext, err error) {
	status := statusOf(err)
	if status == consts.StatusNotFound {
		c.JSON(status, utils.H{
			"status":   "error",
			"message":  notFoundMessage,
			"articles": []newsfeed.Article{},
			"dates":    []string{},
		})
		return
	}
	if status >= consts.StatusInternalServerError {
		h.logger.Error("请求处理失败", "path", string(c.Path()), "error", err)
	}
	c.JSON(status, utils.H{"status": "error", "message": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return consts.StatusNotFound
	case errors.Is(err, errors.ErrInvalidArg):
		return consts.StatusBadRequest
	case errors.Is(err, errors.ErrConflict):
		return consts.StatusConflict
	default:
		return consts.StatusInternalServerError
	}
}
