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
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/hertz-contrib/jwt"

	"newsfeed/pkg/auth"
)

// IdentityKey JWT claims 中的用户标识字段
const IdentityKey = "user"

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// NewJWTAuth 创建 JWT 认证中间件；adminUser 形如 "user:password"，缺省密码时只校验用户名
func NewJWTAuth(key []byte, timeout, maxRefresh time.Duration, adminUser string) (*jwt.HertzJWTMiddleware, error) {
	user, pass, _ := strings.Cut(adminUser, ":")
	return jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "newsfeed",
		Key:         key,
		Timeout:     timeout,
		MaxRefresh:  maxRefresh,
		IdentityKey: IdentityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if name, ok := data.(string); ok {
				return jwt.MapClaims{IdentityKey: name}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			return jwt.ExtractClaims(ctx, c)[IdentityKey]
		},
		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			var req loginRequest
			if err := c.BindAndValidate(&req); err != nil || req.Username == "" {
				return nil, jwt.ErrMissingLoginValues
			}
			if !constantEqual(req.Username, user) || !constantEqual(req.Password, pass) {
				return nil, jwt.ErrFailedAuthentication
			}
			return req.Username, nil
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, utils.H{"status": "error", "message": message})
		},
		TokenLookup:   "header: Authorization, query: token",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
}

// Identity 将 JWT 解析出的用户写入 context，置于 MiddlewareFunc 之后
func Identity() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if v, ok := c.Get(IdentityKey); ok {
			if user, ok := v.(string); ok {
				ctx = auth.WithUserID(ctx, user)
			}
		}
		c.Next(ctx)
	}
}

func constantEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
