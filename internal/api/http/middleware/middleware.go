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

package middleware

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"golang.org/x/time/rate"

	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
	"newsfeed/pkg/metrics"
)

// Middleware 中间件集合
type Middleware struct {
	cfg    config.APIConfig
	logger *log.Logger
}

// NewMiddleware 创建中间件集合；logger 为 nil 时不输出访问日志
func NewMiddleware(cfg config.APIConfig, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.Nop()
	}
	return &Middleware{cfg: cfg, logger: logger}
}

// CORS 跨域中间件；未启用时直接放行，AllowOrigins 为空时允许所有来源
func (m *Middleware) CORS() app.HandlerFunc {
	if !m.cfg.CORS.Enable {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	allowed := m.cfg.CORS.AllowOrigins
	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.GetHeader("Origin"))
		if origin != "" && originAllowed(allowed, origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		} else if len(allowed) == 0 {
			c.Header("Access-Control-Allow-Origin", "*")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if bytes.Equal(c.Method(), []byte(consts.MethodOptions)) {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// RequestLog 访问日志与请求计数
func (m *Middleware) RequestLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		status := c.Response.StatusCode()
		method := string(c.Method())
		metrics.HTTPRequestTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
		m.logger.Info("http request",
			"method", method,
			"path", string(c.Path()),
			"status", status,
			"client_ip", c.ClientIP(),
			"latency", time.Since(start).String(),
		)
	}
}

// RateLimit 全局令牌桶限流；rps <= 0 时不限流
func (m *Middleware) RateLimit(rps float64) app.HandlerFunc {
	if rps <= 0 {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(ctx context.Context, c *app.RequestContext) {
		if !limiter.Allow() {
			c.JSON(consts.StatusTooManyRequests, utils.H{
				"status":  "error",
				"message": "请求过于频繁，请稍后再试",
			})
			c.Abort()
			return
		}
		c.Next(ctx)
	}
}
