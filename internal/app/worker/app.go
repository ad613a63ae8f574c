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

package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	sdkworkflow "go.temporal.io/sdk/workflow"

	"newsfeed/internal/accumulator"
	"newsfeed/internal/activities"
	"newsfeed/internal/app"
	"newsfeed/internal/notify"
	"newsfeed/internal/search"
	"newsfeed/internal/workflow"
	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
	"newsfeed/pkg/metrics"
	"newsfeed/pkg/tracing"
)

// App Worker 应用：在任务队列上执行累积 workflow 与 Activity
type App struct {
	config      *config.Config
	logger      *log.Logger
	client      client.Client
	worker      worker.Worker
	closeSearch func()
	metricsSrv  *http.Server
	tracer      *sdktrace.TracerProvider
}

// Registry worker.Worker 与测试环境共有的注册能力
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options sdkworkflow.RegisterOptions)
	RegisterActivity(a interface{})
}

// Register 向 registry 注册 workflow 与 Activity
func Register(r Registry, acts *activities.Activities) {
	r.RegisterWorkflowWithOptions(workflow.NewsfeedWorkflow, sdkworkflow.RegisterOptions{Name: workflow.WorkflowName})
	r.RegisterActivity(acts)
}

// WorkerOptions 将并发配置映射为 Temporal worker.Options；0 表示使用 SDK 默认值
func WorkerOptions(cfg config.WorkerConfig) worker.Options {
	return worker.Options{
		MaxConcurrentActivityExecutionSize:     cfg.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: cfg.MaxConcurrentWorkflowTasks,
	}
}

// NewApp 创建新的 Worker 应用
func NewApp(bootstrap *app.Bootstrap) (*App, error) {
	cfg := bootstrap.Config
	logger := bootstrap.Logger

	a := &App{config: cfg, logger: logger}

	if cfg.Monitoring.Tracing.Enable && cfg.Monitoring.Tracing.ExportEndpoint != "" {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    cfg.Monitoring.Tracing.ServiceName,
			ExportEndpoint: cfg.Monitoring.Tracing.ExportEndpoint,
			Insecure:       cfg.Monitoring.Tracing.Insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("初始化链路追踪失败: %w", err)
		}
		a.tracer = tp
		logger.Info("链路追踪已启用", "endpoint", cfg.Monitoring.Tracing.ExportEndpoint)
	}

	searcher, closeSearch, err := search.Build(cfg.Search, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化新闻检索失败: %w", err)
	}
	a.closeSearch = closeSearch

	notifier, err := notify.Build(cfg.Notify, logger)
	if err != nil {
		closeSearch()
		return nil, fmt.Errorf("初始化通知渠道失败: %w", err)
	}

	c, err := accumulator.Dial(cfg.Temporal, logger)
	if err != nil {
		closeSearch()
		return nil, err
	}
	a.client = c

	a.worker = worker.New(c, cfg.Temporal.TaskQueue, WorkerOptions(cfg.Worker))
	Register(a.worker, activities.NewActivities(searcher, notifier, logger))

	if cfg.Monitoring.Prometheus.Enable && cfg.Monitoring.Prometheus.Port > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		a.metricsSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Monitoring.Prometheus.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return a, nil
}

// Start 启动 worker（非阻塞）与 /metrics 端口
func (a *App) Start() error {
	a.logger.Info("启动 worker 应用", "task_queue", a.config.Temporal.TaskQueue, "namespace", a.config.Temporal.Namespace)
	if a.metricsSrv != nil {
		go func() {
			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics 服务异常退出", "error", err)
			}
		}()
	}
	if err := a.worker.Start(); err != nil {
		return fmt.Errorf("启动 Temporal worker 失败: %w", err)
	}
	a.logger.Info("worker 应用启动成功")
	return nil
}

// Shutdown 关闭应用
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("关闭 worker 应用")
	if a.worker != nil {
		a.worker.Stop()
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.closeSearch != nil {
		a.closeSearch()
	}
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Error("关闭 metrics 服务失败", "error", err)
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Error("关闭 tracer 失败", "error", err)
		}
	}
	a.logger.Info("worker 应用关闭成功")
	return nil
}
