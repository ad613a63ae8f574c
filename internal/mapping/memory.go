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
	"sort"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	byID map[string]Mapping
}

// NewMemoryStore 进程内存储（测试、单机演示）
func NewMemoryStore() Store {
	return &memoryStore{byID: make(map[string]Mapping)}
}

func (s *memoryStore) Get(ctx context.Context, queryID string) (*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[queryID]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *memoryStore) Put(ctx context.Context, m Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[m.QueryID] = m
	return nil
}

func (s *memoryStore) List(ctx context.Context) ([]Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedMappings(s.byID), nil
}

func (s *memoryStore) Close() error { return nil }

func sortedMappings(byID map[string]Mapping) []Mapping {
	out := make([]Mapping, 0, len(byID))
	for _, m := range byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueryID < out[j].QueryID })
	return out
}
