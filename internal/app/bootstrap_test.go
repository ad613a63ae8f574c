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
	"testing"

	"newsfeed/pkg/config"
	"newsfeed/pkg/log"
	"newsfeed/pkg/secrets"
)

func TestBootstrap_ResolveSecrets(t *testing.T) {
	ctx := context.Background()
	store := secrets.NewMemoryStore()
	if err := store.Set(ctx, "SERPAPI_KEY", "from-store"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "SLACKAPI_KEY", "ignored"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := store.Set(ctx, "NEWSFEED_ADMIN_PASSWORD", "pw"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cfg := &config.Config{}
	cfg.Notify.Slack.Token = "from-config"
	cfg.API.Middleware.AdminUser = "admin"
	b := &Bootstrap{Config: cfg, Logger: log.Nop(), Secrets: store}
	b.ResolveSecrets(ctx)

	if cfg.Search.SerpAPI.APIKey != "from-store" {
		t.Errorf("SerpAPI.APIKey = %q, want from-store", cfg.Search.SerpAPI.APIKey)
	}
	if cfg.Notify.Slack.Token != "from-config" {
		t.Errorf("Slack.Token = %q, explicit config value must win", cfg.Notify.Slack.Token)
	}
	if cfg.API.Middleware.AdminUser != "admin:pw" {
		t.Errorf("AdminUser = %q, want admin:pw", cfg.API.Middleware.AdminUser)
	}
	if cfg.Notify.Telegram.Token != "" {
		t.Errorf("Telegram.Token = %q, want empty when store has no value", cfg.Notify.Telegram.Token)
	}
}

func TestNewBootstrap_UnknownSecretProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Secrets.Provider = "kms"
	if _, err := NewBootstrap(cfg); err == nil {
		t.Fatal("expected error for unsupported secret provider")
	}
}

func TestNewBootstrap_NilConfig(t *testing.T) {
	b, err := NewBootstrap(nil)
	if err != nil {
		t.Fatalf("NewBootstrap: %v", err)
	}
	if b.Config == nil || b.Logger == nil || b.Secrets == nil {
		t.Fatalf("bootstrap not fully initialised: %+v", b)
	}
}
