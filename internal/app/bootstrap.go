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

package app

import (
	"context"
	"fmt"
	"strings"

	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
	"newsfeed/pkg/secrets"
)

// Bootstrap 统一初始化：供 api 与 worker 复用，避免在 cmd 内写业务逻辑
type Bootstrap struct {
	Config  *config.Config
	Logger  *log.Logger
	Secrets secrets.Store
}

// secretKeys 配置中为空时从 Secret Store 补齐的字段
func secretKeys(cfg *config.Config) map[string]*string {
	return map[string]*string{
		"SERPAPI_KEY":          &cfg.Search.SerpAPI.APIKey,
		"SLACKAPI_KEY":          &cfg.Notify.Slack.Token,
		"TELEGRAM_BOT_TOKEN":    &cfg.Notify.Telegram.Token,
		"SMTP_PASSWORD":         &cfg.Notify.Email.Password,
		"NEWSFEED_MAPPING_DSN":  &cfg.Mapping.DSN,
		"NEWSFEED_JWT_KEY":      &cfg.API.Middleware.JWTKey,
	}
}

// NewBootstrap 根据配置创建 Bootstrap（日志、Secret Store）
func NewBootstrap(cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志failed: %w", err)
	}

	store, err := secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Vault: secrets.VaultConfig{
			Address:    cfg.Secrets.Vault.Address,
			Token:      cfg.Secrets.Vault.Token,
			PathPrefix: cfg.Secrets.Vault.PathPrefix,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 secret store failed: %w", err)
	}

	b := &Bootstrap{Config: cfg, Logger: logger, Secrets: store}
	b.ResolveSecrets(context.Background())
	return b, nil
}

// ResolveSecrets 对配置中留空的敏感字段，从 Secret Store 读取
func (b *Bootstrap) ResolveSecrets(ctx context.Context) {
	for key, field := range secretKeys(b.Config) {
		before := *field
		*field = secrets.Resolve(ctx, b.Secrets, key, before)
		if before == "" && *field != "" {
			b.Logger.Debug("secret 已从 store 补齐", "key", key)
		}
	}
	// admin_user 只写用户名时，密码取自 NEWSFEED_ADMIN_PASSWORD
	mw := &b.Config.API.Middleware
	if mw.AdminUser != "" && !strings.Contains(mw.AdminUser, ":") {
		if pw := secrets.Resolve(ctx, b.Secrets, "NEWSFEED_ADMIN_PASSWORD", ""); pw != "" {
			mw.AdminUser += ":" + pw
		}
	}
}
