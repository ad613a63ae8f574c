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

package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileStore JSON 文件存储；每次写入整体重写（先写临时文件再 rename）
type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore 创建文件存储；文件不存在时视为空
func NewFileStore(path string) (Store, error) {
	s := &fileStore{path: path}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileStore) load() (map[string]Mapping, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]Mapping), nil
	}
	if err != nil {
		return nil, fmt.Errorf("mapping: read %s: %w", s.path, err)
	}
	byID := make(map[string]Mapping)
	if len(data) == 0 {
		return byID, nil
	}
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("mapping: parse %s: %w", s.path, err)
	}
	return byID, nil
}

func (s *fileStore) save(byID map[string]Mapping) error {
	data, err := json.MarshalIndent(byID, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Get(ctx context.Context, queryID string) (*Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, err := s.load()
	if err != nil {
		return nil, err
	}
	m, ok := byID[queryID]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *fileStore) Put(ctx context.Context, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, err := s.load()
	if err != nil {
		return err
	}
	byID[m.QueryID] = m
	return s.save(byID)
}

func (s *fileStore) List(ctx context.Context) ([]Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, err := s.load()
	if err != nil {
		return nil, err
	}
	return sortedMappings(byID), nil
}

func (s *fileStore) Close() error { return nil }
