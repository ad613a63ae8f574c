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

// Package accumulator 通过 Temporal 客户端启动、查询、控制新闻累积 workflow
package accumulator

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
)

// Dial 连接 Temporal；证书与私钥均配置时使用 mTLS
func Dial(cfg config.TemporalConfig, logger *log.Logger) (client.Client, error) {
	if logger == nil {
		logger = log.Nop()
	}
	opts := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    tlog.NewStructuredLogger(logger.Logger),
	}
	if cfg.TLS.Enabled() {
		tlsCfg, err := TLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.ConnectionOptions = client.ConnectionOptions{TLS: tlsCfg}
	}
	c, err := client.Dial(opts)
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.HostPort, err)
	}
	logger.Info("temporal client connected", "host_port", cfg.HostPort, "namespace", cfg.Namespace, "tls", cfg.TLS.Enabled())
	return c, nil
}

// TLSConfig 由证书配置构造 tls.Config；ServerName 为空时取 <namespace>.tmprl.cloud
func TLSConfig(cfg config.TemporalConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load temporal client cert: %w", err)
	}
	serverName := cfg.TLS.ServerName
	if serverName == "" {
		serverName = cfg.Namespace + ".tmprl.cloud"
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.TLS.CAFile != "" {
		pem, err := os.ReadFile(cfg.TLS.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read temporal ca: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("temporal ca %s: no certificates found", cfg.TLS.CAFile)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}
