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

package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzslog "github.com/hertz-contrib/logger/slog"
	"github.com/hertz-contrib/obs-opentelemetry/provider"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"go.temporal.io/sdk/client"
	"google.golang.org/grpc"

	"newsfeed/internal/accumulator"
	apigrpc "newsfeed/internal/api/grpc"
	"newsfeed/internal/api/http"
	"newsfeed/internal/api/http/middleware"
	"newsfeed/internal/app"
	"newsfeed/internal/feed"
	"newsfeed/internal/mapping"
	"newsfeed/internal/workflow"
	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
)

// otelProviderShutdown 用于优雅关闭时关闭 OpenTelemetry provider
type otelProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// App API 应用：订阅表单、JSON API 与可选的 gRPC 健康检查
type App struct {
	config       *app.Bootstrap
	router       *http.Router
	hertz        *server.Hertz
	temporal     client.Client
	store        mapping.Store
	grpcServer   *grpcRun
	health       *apigrpc.Server
	healthCancel context.CancelFunc
	otelProvider otelProviderShutdown
}

// grpcRun 持有 gRPC Server 与 Listener，用于 GracefulStop 时关闭
type grpcRun struct {
	srv *grpc.Server
	lis net.Listener
}

// GracefulStop 停止接受新连接并等待进行中的 RPC 结束
func (g *grpcRun) GracefulStop() {
	if g.srv != nil {
		g.srv.GracefulStop()
	}
	if g.lis != nil {
		_ = g.lis.Close()
	}
}

// NewApp 创建 API 应用：连接 Temporal、打开映射存储并组装路由
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	logger := bootstrap.Logger

	tc, err := accumulator.Dial(cfg.Temporal, logger)
	if err != nil {
		return nil, err
	}
	store, err := mapping.NewStore(context.Background(), cfg.Mapping)
	if err != nil {
		tc.Close()
		return nil, fmt.Errorf("初始化 workflow 映射存储失败: %w", err)
	}

	gw := accumulator.NewClient(tc, cfg.Temporal.TaskQueue, workflow.OptionsFromConfig(cfg.Accumulator), logger)
	svc := feed.NewService(store, gw, feed.Options{
		InitialWait:  config.Duration(cfg.Feed.InitialWait, 30*time.Second),
		PollInterval: config.Duration(cfg.Feed.PollInterval, 3*time.Second),
	}, logger)

	handler := http.NewHandler(svc, logger)
	handler.SetDefaultTopic(cfg.Feed.DefaultTopic)
	router := http.NewRouter(handler, middleware.NewMiddleware(cfg.API, logger))
	if cfg.API.Middleware.RateLimit {
		router.SetRateLimit(cfg.API.Middleware.RateLimitRPS)
	}
	if cfg.API.Middleware.Auth && cfg.API.Middleware.JWTKey != "" {
		timeout := config.Duration(cfg.API.Middleware.JWTTimeout, time.Hour)
		maxRefresh := config.Duration(cfg.API.Middleware.JWTMaxRefresh, time.Hour)
		jwtAuth, err := middleware.NewJWTAuth([]byte(cfg.API.Middleware.JWTKey), timeout, maxRefresh, cfg.API.Middleware.AdminUser)
		if err != nil {
			logger.Warn("JWT 初始化失败，将跳过认证", "error", err)
		} else {
			router.SetJWT(jwtAuth)
			logger.Info("JWT 认证已启用")
		}
	} else if cfg.API.Middleware.Auth {
		logger.Warn("已开启认证但未配置 jwt_key，将跳过认证")
	}

	appObj := &App{
		config:   bootstrap,
		router:   router,
		temporal: tc,
		store:    store,
	}

	if cfg.API.Grpc.Enable && cfg.API.Grpc.Port > 0 {
		appObj.health = apigrpc.NewServer(temporalProbe(tc), logger)
		gs, err := startGRPC(appObj.health, cfg.API.Grpc.Port)
		if err != nil {
			logger.Warn("gRPC 服务启动失败", "error", err)
		} else {
			appObj.grpcServer = gs
			ctx, cancel := context.WithCancel(context.Background())
			appObj.healthCancel = cancel
			go appObj.health.Watch(ctx, 15*time.Second)
			logger.Info("gRPC 服务已启动", "port", cfg.API.Grpc.Port)
		}
	}
	return appObj, nil
}

// temporalProbe 以 Temporal CheckHealth 作为健康探针
func temporalProbe(tc client.Client) apigrpc.Probe {
	return func(ctx context.Context) error {
		_, err := tc.CheckHealth(ctx, &client.CheckHealthRequest{})
		return err
	}
}

// Run 启动 HTTP 服务，addr 如 ":3000"
func (a *App) Run(addr string) error {
	cfg := a.config.Config
	a.config.Logger.Info("API 服务启动", "addr", addr)

	// 使用 Hertz slog 扩展，与 bootstrap 配置对齐
	output, err := log.Output(&log.Config{File: cfg.Log.File})
	if err != nil {
		return err
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(log.ParseLevel(cfg.Log.Level))
	hlog.SetLogger(hertzslog.NewLogger(
		hertzslog.WithOutput(output),
		hertzslog.WithLevel(levelVar),
	))

	// 可选：启用链路追踪（OpenTelemetry）
	exportEndpoint := cfg.Monitoring.Tracing.ExportEndpoint
	if cfg.Monitoring.Tracing.Enable && exportEndpoint != "" {
		opts := []provider.Option{
			provider.WithServiceName(cfg.Monitoring.Tracing.ServiceName + "-api"),
			provider.WithExportEndpoint(exportEndpoint),
		}
		if cfg.Monitoring.Tracing.Insecure {
			opts = append(opts, provider.WithInsecure())
		}
		a.otelProvider = provider.NewOpenTelemetryProvider(opts...)
		tracerOpt, tcfg := hertztracing.NewServerTracer()
		a.hertz = a.router.Build(addr, tracerOpt)
		a.hertz.Use(hertztracing.ServerMiddleware(tcfg))
		a.config.Logger.Info("链路追踪已启用", "endpoint", exportEndpoint)
	} else {
		a.hertz = a.router.Build(addr)
	}
	return a.hertz.Run()
}

// Shutdown 优雅关闭（传入 ctx 以支持超时，如 cmd 层 WithTimeout）
func (a *App) Shutdown(ctx context.Context) error {
	if a.healthCancel != nil {
		a.healthCancel()
	}
	if a.health != nil {
		a.health.Shutdown()
	}
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
	if a.hertz != nil {
		if err := a.hertz.Shutdown(ctx); err != nil {
			return err
		}
	}
	if a.otelProvider != nil {
		_ = a.otelProvider.Shutdown(ctx)
	}
	if err := a.store.Close(); err != nil {
		a.config.Logger.Error("关闭映射存储失败", "error", err)
	}
	a.temporal.Close()
	return nil
}

// startGRPC 创建并启动 gRPC 服务（在 goroutine 中 Serve），返回 grpcRun 以便 Shutdown 时 GracefulStop
func startGRPC(health *apigrpc.Server, port int) (*grpcRun, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}
	srv := grpc.NewServer()
	health.Register(srv)
	go func() {
		_ = srv.Serve(lis)
	}()
	return &grpcRun{srv: srv, lis: lis}, nil
}
