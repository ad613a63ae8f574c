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

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体（api 与 worker 共用，各自只读取关心的段）
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Temporal    TemporalConfig    `mapstructure:"temporal"`
	Accumulator AccumulatorConfig `mapstructure:"accumulator"`
	Search      SearchConfig      `mapstructure:"search"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Mapping     MappingConfig     `mapstructure:"mapping"`
	Feed        FeedConfig        `mapstructure:"feed"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
	Log         LogConfig         `mapstructure:"log"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
}

// TemporalConfig Temporal 连接配置；CertFile 与 KeyFile 同时存在时走 mTLS
type TemporalConfig struct {
	HostPort  string    `mapstructure:"host_port"`
	Namespace string    `mapstructure:"namespace"`
	TaskQueue string    `mapstructure:"task_queue"`
	TLS       TLSConfig `mapstructure:"tls"`
}

// TLSConfig mTLS 证书配置
type TLSConfig struct {
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	CAFile     string `mapstructure:"ca_file"`
	ServerName string `mapstructure:"server_name"` // 为空时取 <namespace>.tmprl.cloud
}

// Enabled 证书与私钥均已配置
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

// AccumulatorConfig 累积 workflow 的节奏与重试参数，启动时写入 workflow 输入
type AccumulatorConfig struct {
	SleepInterval   string      `mapstructure:"sleep_interval"`   // 每轮之间休眠，默认 15s
	SleepTimeout    string      `mapstructure:"sleep_timeout"`    // 休眠外层超时，默认 35s
	ActivityTimeout string      `mapstructure:"activity_timeout"` // schedule-to-close，默认 30s
	Retry           RetryConfig `mapstructure:"retry"`
	NotifyPolicy    string      `mapstructure:"notify_policy"`      // full | new
	MaxCyclesPerRun int         `mapstructure:"max_cycles_per_run"` // >0 时每 N 轮 continue-as-new
}

// RetryConfig Activity 重试策略
type RetryConfig struct {
	InitialInterval    string  `mapstructure:"initial_interval"`
	BackoffCoefficient float64 `mapstructure:"backoff_coefficient"`
	MaximumInterval    string  `mapstructure:"maximum_interval"`
	MaximumAttempts    int     `mapstructure:"maximum_attempts"`
}

// SearchConfig 新闻检索配置
type SearchConfig struct {
	Provider  string          `mapstructure:"provider"` // serpapi | fixture
	SerpAPI   SerpAPIConfig   `mapstructure:"serpapi"`
	Fixture   FixtureConfig   `mapstructure:"fixture"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// SerpAPIConfig SerpAPI Google News 参数
type SerpAPIConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	GoogleDomain string `mapstructure:"google_domain"`
	GL           string `mapstructure:"gl"`
	HL           string `mapstructure:"hl"`
	ExactDate    bool   `mapstructure:"exact_date"` // true 时按 topicDate 精确过滤（tbs=cdr）
	Timeout      string `mapstructure:"timeout"`
}

// FixtureConfig 离线样例数据
type FixtureConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig 令牌桶限流
type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

// CacheConfig Redis 结果缓存
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	TTL      string `mapstructure:"ttl"`
}

// NotifyConfig 通知渠道配置
type NotifyConfig struct {
	Channels []string       `mapstructure:"channels"` // slack | telegram | email | log
	Slack    SlackConfig    `mapstructure:"slack"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// SlackConfig Slack chat.postMessage 配置
type SlackConfig struct {
	Token    string `mapstructure:"token"`
	Channel  string `mapstructure:"channel"`
	Username string `mapstructure:"username"`
	BaseURL  string `mapstructure:"base_url"`
}

// TelegramConfig Telegram Bot 配置
type TelegramConfig struct {
	Token       string `mapstructure:"token"`
	ChatID      int64  `mapstructure:"chat_id"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// EmailConfig SMTP 配置
type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// MappingConfig query id -> workflow id 映射存储
type MappingConfig struct {
	Type     string `mapstructure:"type"` // file | memory | redis | postgres | sqlite
	Path     string `mapstructure:"path"` // file / sqlite 路径
	DSN      string `mapstructure:"dsn"`  // postgres
	Addr     string `mapstructure:"addr"` // redis
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
}

// FeedConfig 订阅服务配置
type FeedConfig struct {
	DefaultTopic string `mapstructure:"default_topic"`
	InitialWait  string `mapstructure:"initial_wait"`
	PollInterval string `mapstructure:"poll_interval"`
}

// WorkerConfig Temporal Worker 并发配置
type WorkerConfig struct {
	MaxConcurrentActivities    int `mapstructure:"max_concurrent_activities"`
	MaxConcurrentWorkflowTasks int `mapstructure:"max_concurrent_workflow_tasks"`
}

// APIConfig API 服务配置
type APIConfig struct {
	Port       int              `mapstructure:"port"`
	Host       string           `mapstructure:"host"`
	Timeout    string           `mapstructure:"timeout"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Grpc       GrpcConfig       `mapstructure:"grpc"`
}

// GrpcConfig gRPC 健康检查服务配置
type GrpcConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	Enable       bool     `mapstructure:"enable"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Auth          bool    `mapstructure:"auth"`
	RateLimit     bool    `mapstructure:"rate_limit"`
	RateLimitRPS  float64 `mapstructure:"rate_limit_rps"`
	JWTKey        string  `mapstructure:"jwt_key"`
	JWTTimeout    string  `mapstructure:"jwt_timeout"`     // 如 "1h"
	JWTMaxRefresh string  `mapstructure:"jwt_max_refresh"` // 如 "1h"
	AdminUser     string  `mapstructure:"admin_user"`
}

// SecretsConfig Secret Store 配置
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // env | memory | vault
	Vault    VaultConfig `mapstructure:"vault"`
}

// VaultConfig Vault 连接配置
type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	PathPrefix string `mapstructure:"path_prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置（worker 独立暴露 /metrics 的端口）
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 3000)
	v.SetDefault("api.timeout", "60s")
	v.SetDefault("api.middleware.rate_limit_rps", 20)
	v.SetDefault("api.middleware.jwt_timeout", "1h")
	v.SetDefault("api.middleware.jwt_max_refresh", "1h")
	v.SetDefault("api.middleware.admin_user", "admin")
	v.SetDefault("api.grpc.port", 3001)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "NewsTaskQueue")
	v.SetDefault("temporal.tls.cert_file", "")
	v.SetDefault("temporal.tls.key_file", "")
	v.SetDefault("temporal.tls.ca_file", "")
	v.SetDefault("temporal.tls.server_name", "")

	v.SetDefault("accumulator.sleep_interval", "15s")
	v.SetDefault("accumulator.sleep_timeout", "35s")
	v.SetDefault("accumulator.activity_timeout", "30s")
	v.SetDefault("accumulator.retry.initial_interval", "1s")
	v.SetDefault("accumulator.retry.backoff_coefficient", 2.0)
	v.SetDefault("accumulator.retry.maximum_interval", "30s")
	v.SetDefault("accumulator.retry.maximum_attempts", 2)
	v.SetDefault("accumulator.notify_policy", "full")
	v.SetDefault("accumulator.max_cycles_per_run", 0)

	v.SetDefault("search.provider", "serpapi")
	v.SetDefault("search.serpapi.base_url", "https://serpapi.com")
	v.SetDefault("search.serpapi.api_key", "")
	v.SetDefault("search.serpapi.google_domain", "google.com")
	v.SetDefault("search.serpapi.gl", "us")
	v.SetDefault("search.serpapi.hl", "en")
	v.SetDefault("search.serpapi.timeout", "20s")
	v.SetDefault("search.fixture.path", "")
	v.SetDefault("search.rate_limit.qps", 1.0)
	v.SetDefault("search.rate_limit.burst", 1)
	v.SetDefault("search.cache.ttl", "6h")

	v.SetDefault("notify.channels", []string{"log"})
	v.SetDefault("notify.slack.token", "")
	v.SetDefault("notify.slack.channel", "#newsfeed-demo")
	v.SetDefault("notify.slack.username", "NewsfeedDemo")
	v.SetDefault("notify.slack.base_url", "https://slack.com/api")
	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.email.smtp_host", "smtp.gmail.com")
	v.SetDefault("notify.email.smtp_port", 587)
	v.SetDefault("notify.email.password", "")

	v.SetDefault("mapping.type", "file")
	v.SetDefault("mapping.path", "workflow_mappings.json")
	v.SetDefault("mapping.dsn", "")

	v.SetDefault("feed.default_topic", "bitcoin Apple OpenAI")
	v.SetDefault("feed.initial_wait", "30s")
	v.SetDefault("feed.poll_interval", "3s")

	v.SetDefault("worker.max_concurrent_activities", 4)

	v.SetDefault("secrets.provider", "env")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.prometheus.port", 9464)
	v.SetDefault("monitoring.tracing.service_name", "newsfeed")
}

// bindLegacyEnv 兼容部署脚本沿用的环境变量名
func bindLegacyEnv(v *viper.Viper) {
	_ = v.BindEnv("temporal.task_queue", "NEWS_TASK_QUEUE", "TEMPORAL_TASK_QUEUE")
	_ = v.BindEnv("temporal.host_port", "TEMPORAL_HOST_URL", "TEMPORAL_CLI_ADDRESS", "TEMPORAL_HOST_PORT")
	_ = v.BindEnv("temporal.namespace", "TEMPORAL_NAMESPACE", "TEMPORAL_CLI_NAMESPACE")
	_ = v.BindEnv("temporal.tls.cert_file", "TEMPORAL_MTLS_TLS_CERT")
	_ = v.BindEnv("temporal.tls.key_file", "TEMPORAL_MTLS_TLS_KEY")
	_ = v.BindEnv("feed.default_topic", "NEWS_TOPIC")
	_ = v.BindEnv("search.serpapi.api_key", "SERPAPI_KEY")
	_ = v.BindEnv("notify.slack.token", "SLACKAPI_KEY")
	_ = v.BindEnv("notify.telegram.token", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("notify.email.password", "SMTP_PASSWORD")
	_ = v.BindEnv("mapping.dsn", "NEWSFEED_MAPPING_DSN")
}

// LoadConfig 加载配置文件；configPath 为空时只使用默认值与环境变量
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindLegacyEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	// 替换环境变量
	replaceEnvVars(&config)
	return &config, nil
}

// expandEnv 将形如 ${VAR} 的值替换为环境变量；变量未设置时置空，交由 secret store 补齐
func expandEnv(s *string) {
	if !strings.HasPrefix(*s, "${") || !strings.HasSuffix(*s, "}") {
		return
	}
	*s = os.Getenv(strings.TrimSuffix(strings.TrimPrefix(*s, "${"), "}"))
}

// replaceEnvVars 替换配置中的环境变量引用（仅 secret 类字段）
func replaceEnvVars(config *Config) {
	for _, s := range []*string{
		&config.Search.SerpAPI.APIKey,
		&config.Search.Cache.Password,
		&config.Notify.Slack.Token,
		&config.Notify.Telegram.Token,
		&config.Notify.Email.Password,
		&config.Mapping.DSN,
		&config.Mapping.Password,
		&config.API.Middleware.JWTKey,
		&config.Secrets.Vault.Token,
	} {
		expandEnv(s)
	}
}

// Duration 解析时长字符串，无效或空时返回 defaultVal
func Duration(s string, defaultVal time.Duration) time.Duration {
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// Path 返回配置文件路径：环境变量 NEWSFEED_CONFIG 优先
func Path(defaultPath string) string {
	if p := os.Getenv("NEWSFEED_CONFIG"); p != "" {
		return p
	}
	return defaultPath
}

// LoadAPIConfig 加载 API 配置（configs/api.yaml）
func LoadAPIConfig() (*Config, error) {
	return LoadConfig(Path("configs/api.yaml"))
}

// LoadWorkerConfig 加载 Worker 配置（configs/worker.yaml）
func LoadWorkerConfig() (*Config, error) {
	return LoadConfig(Path("configs/worker.yaml"))
}
