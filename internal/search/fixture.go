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

package search

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"newsfeed/internal/newsfeed"
)

// Fixture 从 YAML 文件读取的离线检索结果；dates 中有对应日期时优先，否则返回 items
type Fixture struct {
	Items []newsfeed.RawNewsItem            `yaml:"items"`
	Dates map[string][]newsfeed.RawNewsItem `yaml:"dates"`
}

// LoadFixture 读取 fixture 文件
func LoadFixture(path string) (*Fixture, error) {
	if path == "" {
		return nil, fmt.Errorf("search: fixture path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("search: read fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("search: parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Search 实现 Provider；topic 不参与匹配
func (f *Fixture) Search(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := f.Items
	if items, ok := f.Dates[date]; ok {
		src = items
	}
	out := make([]newsfeed.RawNewsItem, len(src))
	copy(out, src)
	return out, nil
}
