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

package workflow

import (
	"time"

	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/config"
)

// Notify 策略
const (
	NotifyFull = "full" // 每轮投递全部累积结果
	NotifyNew  = "new"  // 只投递本轮新增，无新增时跳过
)

// minCyclesPerRun 启用按轮次 continue-as-new 时每次运行的最少轮次
const minCyclesPerRun = 2

// Options 运行参数；零值字段使用默认值。随输入一起传入，continue-as-new 时原样带入
type Options struct {
	SleepInterval        time.Duration `json:"sleepInterval,omitempty"`
	SleepTimeout         time.Duration `json:"sleepTimeout,omitempty"`
	ActivityTimeout      time.Duration `json:"activityTimeout,omitempty"`
	RetryInitialInterval time.Duration `json:"retryInitialInterval,omitempty"`
	RetryBackoff         float64       `json:"retryBackoff,omitempty"`
	RetryMaxInterval     time.Duration `json:"retryMaxInterval,omitempty"`
	RetryMaxAttempts     int32         `json:"retryMaxAttempts,omitempty"`
	NotifyPolicy         string        `json:"notifyPolicy,omitempty"`
	MaxCyclesPerRun      int           `json:"maxCyclesPerRun,omitempty"`
}

// Input workflow 输入
type Input struct {
	Topic   newsfeed.Topic `json:"topic"`
	Options Options        `json:"options"`
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		SleepInterval:        15 * time.Second,
		SleepTimeout:         35 * time.Second,
		ActivityTimeout:      30 * time.Second,
		RetryInitialInterval: time.Second,
		RetryBackoff:         2.0,
		RetryMaxInterval:     30 * time.Second,
		RetryMaxAttempts:     2,
		NotifyPolicy:         NotifyFull,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SleepInterval <= 0 {
		o.SleepInterval = d.SleepInterval
	}
	if o.SleepTimeout <= 0 {
		o.SleepTimeout = d.SleepTimeout
	}
	if o.ActivityTimeout <= 0 {
		o.ActivityTimeout = d.ActivityTimeout
	}
	if o.RetryInitialInterval <= 0 {
		o.RetryInitialInterval = d.RetryInitialInterval
	}
	if o.RetryBackoff < 1 {
		o.RetryBackoff = d.RetryBackoff
	}
	if o.RetryMaxInterval <= 0 {
		o.RetryMaxInterval = d.RetryMaxInterval
	}
	if o.RetryMaxAttempts <= 0 {
		o.RetryMaxAttempts = d.RetryMaxAttempts
	}
	if o.NotifyPolicy != NotifyNew {
		o.NotifyPolicy = NotifyFull
	}
	switch {
	case o.MaxCyclesPerRun < 0:
		o.MaxCyclesPerRun = 0
	case o.MaxCyclesPerRun == 1:
		// 新运行从携带的当天重新开始，至少要跑完一次休眠才能推进日期
		o.MaxCyclesPerRun = minCyclesPerRun
	}
	return o
}

// OptionsFromConfig 由配置构造运行参数
func OptionsFromConfig(cfg config.AccumulatorConfig) Options {
	d := DefaultOptions()
	return Options{
		SleepInterval:        config.Duration(cfg.SleepInterval, d.SleepInterval),
		SleepTimeout:         config.Duration(cfg.SleepTimeout, d.SleepTimeout),
		ActivityTimeout:      config.Duration(cfg.ActivityTimeout, d.ActivityTimeout),
		RetryInitialInterval: config.Duration(cfg.Retry.InitialInterval, d.RetryInitialInterval),
		RetryBackoff:         cfg.Retry.BackoffCoefficient,
		RetryMaxInterval:     config.Duration(cfg.Retry.MaximumInterval, d.RetryMaxInterval),
		RetryMaxAttempts:     int32(cfg.Retry.MaximumAttempts),
		NotifyPolicy:         cfg.NotifyPolicy,
		MaxCyclesPerRun:      cfg.MaxCyclesPerRun,
	}.withDefaults()
}
