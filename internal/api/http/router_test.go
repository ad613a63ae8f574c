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
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"

	"newsfeed/internal/api/http/middleware"
	"newsfeed/pkg/config"
)

func buildAuthServer(t *testing.T) *server.Hertz {
	t.Helper()
	auth, err := middleware.NewJWTAuth([]byte("test-secret"), time.Hour, time.Hour, "admin:s3cret")
	if err != nil {
		t.Fatalf("NewJWTAuth: %v", err)
	}
	r := NewRouter(NewHandler(newFakeFeed(), nil), middleware.NewMiddleware(config.APIConfig{}, nil))
	r.SetJWT(auth)
	return r.Build(":0")
}

func login(t *testing.T, s *server.Hertz, user, pass string) (int, string) {
	t.Helper()
	raw, _ := json.Marshal(map[string]string{"username": user, "password": pass})
	w := ut.PerformRequest(s.Engine, "POST", "/api/auth/login", &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}, jsonHeader)
	var out struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(w.Result().Body(), &out)
	return w.Result().StatusCode(), out.Token
}

func TestRouter_JWTGuardsFeedRoutes(t *testing.T) {
	s := buildAuthServer(t)

	subscribe := func(headers ...ut.Header) int {
		raw := []byte(`{"topic":"golang"}`)
		headers = append(headers, jsonHeader)
		w := ut.PerformRequest(s.Engine, "POST", "/api/newsfeed", &ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}, headers...)
		return w.Result().StatusCode()
	}

	if got := subscribe(); got != 401 {
		t.Fatalf("POST /api/newsfeed without token status = %d, want 401", got)
	}

	w := ut.PerformRequest(s.Engine, "GET", "/api/newsfeed", emptyBody())
	if got := w.Result().StatusCode(); got != 200 {
		t.Fatalf("GET /api/newsfeed status = %d, want 200 for reads", got)
	}

	if code, _ := login(t, s, "admin", "wrong"); code != 401 {
		t.Fatalf("login with bad password status = %d, want 401", code)
	}
	code, token := login(t, s, "admin", "s3cret")
	if code != 200 || token == "" {
		t.Fatalf("login status = %d token = %q", code, token)
	}

	if got := subscribe(ut.Header{Key: "Authorization", Value: "Bearer " + token}); got != 201 {
		t.Fatalf("POST /api/newsfeed with token status = %d, want 201", got)
	}
}

func TestRouter_AuthDisabledByDefault(t *testing.T) {
	s := buildTestServer(newFakeFeed())
	w := ut.PerformRequest(s.Engine, "POST", "/api/auth/login", emptyBody())
	if got := w.Result().StatusCode(); got != 404 {
		t.Fatalf("POST /api/auth/login status = %d, want 404 when auth is off", got)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	r := NewRouter(NewHandler(newFakeFeed(), nil), middleware.NewMiddleware(config.APIConfig{}, nil))
	r.SetRateLimit(1)
	s := r.Build(":0")

	first := ut.PerformRequest(s.Engine, "GET", "/api/health", emptyBody())
	second := ut.PerformRequest(s.Engine, "GET", "/api/health", emptyBody())
	if first.Result().StatusCode() != 200 {
		t.Fatalf("first request status = %d", first.Result().StatusCode())
	}
	if second.Result().StatusCode() != 429 {
		t.Fatalf("second request status = %d, want 429", second.Result().StatusCode())
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	mw := middleware.NewMiddleware(config.APIConfig{CORS: config.CORSConfig{Enable: true, AllowOrigins: []string{"https://news.example"}}}, nil)
	s := NewRouter(NewHandler(newFakeFeed(), nil), mw).Build(":0")

	w := ut.PerformRequest(s.Engine, "OPTIONS", "/api/newsfeed", emptyBody(), ut.Header{Key: "Origin", Value: "https://news.example"})
	if got := w.Result().StatusCode(); got != 204 {
		t.Fatalf("preflight status = %d, want 204", got)
	}
	if got := string(w.Result().Header.Peek("Access-Control-Allow-Origin")); got != "https://news.example" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
