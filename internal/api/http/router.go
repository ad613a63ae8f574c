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
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/app/server"
	hconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"

	"newsfeed/internal/api/http/middleware"
)

// Router HTTP 路由器
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	jwt        *jwt.HertzJWTMiddleware
	rateLimit  float64
}

// NewRouter 创建新的 HTTP 路由器
func NewRouter(handler *Handler, mw *middleware.Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// SetJWT 启用 JWT：订阅与控制类请求需携带 Bearer token
func (r *Router) SetJWT(auth *jwt.HertzJWTMiddleware) {
	r.jwt = auth
}

// SetRateLimit 设置全局限流（每秒请求数）
func (r *Router) SetRateLimit(rps float64) {
	r.rateLimit = rps
}

// Build 创建 Hertz 服务并注册全部路由
func (r *Router) Build(addr string, opts ...hconfig.Option) *server.Hertz {
	opts = append([]hconfig.Option{server.WithHostPorts(addr)}, opts...)
	h := server.New(opts...)
	h.Use(recovery.Recovery(), r.middleware.RequestLog(), r.middleware.CORS())
	if r.rateLimit > 0 {
		h.Use(r.middleware.RateLimit(r.rateLimit))
	}

	h.GET("/", r.handler.Index)
	h.POST("/newsfeed", r.handler.SubscribeForm)
	h.GET("/metrics", r.handler.Metrics)

	api := h.Group("/api")
	api.GET("/health", r.handler.HealthCheck)

	var guard []app.HandlerFunc
	if r.jwt != nil {
		auth := api.Group("/auth")
		auth.POST("/login", r.jwt.LoginHandler)
		auth.GET("/refresh", r.jwt.RefreshHandler)
		guard = append(guard, r.jwt.MiddlewareFunc(), middleware.Identity())
	}

	feeds := api.Group("/newsfeed")
	{
		feeds.GET("", r.handler.ListSubscriptions)
		feeds.GET("/:qid", r.handler.GetUpdates)
		feeds.GET("/:qid/dates", r.handler.GetProcessedDates)
		feeds.GET("/:qid/state", r.handler.GetState)
		feeds.POST("", guarded(guard, r.handler.Subscribe)...)
		feeds.POST("/:qid/articles", guarded(guard, r.handler.AppendArticle)...)
		feeds.POST("/:qid/exit", guarded(guard, r.handler.Exit)...)
		feeds.POST("/:qid/keepalive", guarded(guard, r.handler.KeepAlive)...)
	}
	return h
}

func guarded(guard []app.HandlerFunc, h app.HandlerFunc) []app.HandlerFunc {
	return append(append([]app.HandlerFunc{}, guard...), h)
}
