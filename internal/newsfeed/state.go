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

package newsfeed

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrExited workflow 已观察到退出请求后拒绝新的 append
var ErrExited = errors.New("newsfeed is exiting")

// Phase 单次运行内的阶段
type Phase int

const (
	PhaseInitializing Phase = iota
	PhaseFetching
	PhaseMerging
	PhaseNotifying
	PhaseRestarting
	PhaseSleeping
	PhaseExiting
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseFetching:
		return "fetching"
	case PhaseMerging:
		return "merging"
	case PhaseNotifying:
		return "notifying"
	case PhaseRestarting:
		return "restarting"
	case PhaseSleeping:
		return "sleeping"
	case PhaseExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// State 一次 workflow 运行持有的累积状态；只由 workflow 主协程与其 handler 访问
type State struct {
	Topic          string
	CurrentDate    string
	Phase          Phase
	DayCount       int
	ExitRequested  bool
	LastSignalTime *time.Time

	results   []Article
	processed map[string]struct{}
	ids       IDSet
}

// NewState 由初始化输入构造状态：结果按原顺序回填，键集合与已处理日期由结果重建
func NewState(topic Topic) *State {
	s := &State{
		Topic:       topic.TopicString,
		CurrentDate: CanonicalDate(topic.TopicDate),
		processed:   make(map[string]struct{}),
		ids:         make(IDSet),
	}
	s.results = make([]Article, 0, len(topic.PreviousResults))
	for _, a := range topic.PreviousResults {
		a.Date = CanonicalDate(a.Date)
		key := a.Key()
		if s.ids.Has(key) {
			continue
		}
		s.ids.Add(key)
		s.results = append(s.results, a)
		if a.Date != "" {
			s.processed[a.Date] = struct{}{}
		}
	}
	return s
}

// MarkProcessed 记录已处理日期
func (s *State) MarkProcessed(date string) {
	s.processed[date] = struct{}{}
}

// Merge 对一批原始条目去重后追加到结果末尾
func (s *State) Merge(date string, items []RawNewsItem) DedupeResult {
	res := Dedupe(s.ids, date, items)
	s.results = append(s.results, res.Unique...)
	s.ids.Merge(res.NewIDs)
	return res
}

// Append 注入单条文章；重复时返回 false 且不修改状态
func (s *State) Append(a Article) (bool, error) {
	if s.ExitRequested {
		return false, ErrExited
	}
	a.Date = CanonicalDate(a.Date)
	key := a.Key()
	if s.ids.Has(key) {
		return false, nil
	}
	s.ids.Add(key)
	s.results = append(s.results, a)
	return true, nil
}

// Contains 是否已有相同键的文章
func (s *State) Contains(a Article) bool {
	return s.ids.Has(a.Key())
}

// RequestExit 幂等地记录退出请求
func (s *State) RequestExit() {
	s.ExitRequested = true
}

// RecordSignal 记录最近一次保活信号时间
func (s *State) RecordSignal(at time.Time) {
	s.LastSignalTime = &at
}

// Results 返回结果快照（拷贝）
func (s *State) Results() []Article {
	out := make([]Article, len(s.results))
	copy(out, s.results)
	return out
}

// ResultCount 结果条数
func (s *State) ResultCount() int {
	return len(s.results)
}

// ProcessedDates 返回升序排列的已处理日期
func (s *State) ProcessedDates() []string {
	out := make([]string, 0, len(s.processed))
	for d := range s.processed {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// IsProcessed 日期是否已处理
func (s *State) IsProcessed(date string) bool {
	_, ok := s.processed[date]
	return ok
}

// Status 运行概况
func (s *State) Status() Status {
	return Status{
		Phase:          s.Phase.String(),
		TopicString:    s.Topic,
		CurrentDate:    s.CurrentDate,
		DayCount:       s.DayCount,
		ResultCount:    len(s.results),
		ProcessedDates: len(s.processed),
		ExitRequested:  s.ExitRequested,
		LastSignalTime: s.LastSignalTime,
	}
}

// Carry 返回 continue-as-new 的输入：从 today 重新处理，结果原样带入
func (s *State) Carry(today string) Topic {
	return Topic{
		TopicDate:       today,
		TopicString:     s.Topic,
		PreviousResults: s.Results(),
	}
}

// Verify 检查键集合与结果一致且无重复
func (s *State) Verify() error {
	if len(s.ids) != len(s.results) {
		return fmt.Errorf("identifier count %d != result count %d", len(s.ids), len(s.results))
	}
	seen := make(IDSet, len(s.results))
	for i, a := range s.results {
		key := a.Key()
		if seen.Has(key) {
			return fmt.Errorf("duplicate article at %d: %s", i, key)
		}
		if !s.ids.Has(key) {
			return fmt.Errorf("article at %d missing from identifiers: %s", i, key)
		}
		seen.Add(key)
	}
	return nil
}
