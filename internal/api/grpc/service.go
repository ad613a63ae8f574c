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

// Package grpc 提供 gRPC 健康检查服务：按后端探针结果切换 SERVING / NOT_SERVING
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"newsfeed/pkg/log"
)

// ServiceName 对外暴露的健康检查服务名
const ServiceName = "newsfeed.Accumulator"

// Probe 后端可用性探针（如 Temporal CheckHealth）；返回 nil 表示可用
type Probe func(ctx context.Context) error

// Server gRPC 健康检查服务端
type Server struct {
	health  *health.Server
	probe   Probe
	timeout time.Duration
	logger  *log.Logger
}

// NewServer 创建健康检查服务端；probe 为 nil 时始终 SERVING
func NewServer(probe Probe, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Server{health: health.NewServer(), probe: probe, timeout: 5 * time.Second, logger: logger}
	s.set(healthpb.HealthCheckResponse_SERVING)
	return s
}

// Register 注册 Health 服务到 grpc.Server
func (s *Server) Register(grpcServer *grpc.Server) {
	healthpb.RegisterHealthServer(grpcServer, s.health)
}

// Check 执行一次探针并更新服务状态
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	if s.probe == nil {
		return healthpb.HealthCheckResponse_SERVING
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.probe(ctx); err != nil {
		s.logger.Warn("健康探针失败", "service", ServiceName, "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.set(status)
	return status
}

// Watch 按 interval 周期探测，直到 ctx 取消
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Shutdown 标记为 NOT_SERVING，正在进行的 Watch 客户端会收到通知
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

func (s *Server) set(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
