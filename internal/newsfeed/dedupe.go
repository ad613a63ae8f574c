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

// IDSet 去重键集合
type IDSet map[string]struct{}

// NewIDSet 由已有结果重建键集合
func NewIDSet(articles []Article) IDSet {
	ids := make(IDSet, len(articles))
	for _, a := range articles {
		ids.Add(a.Key())
	}
	return ids
}

// Has 是否包含 key
func (s IDSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// Add 加入 key
func (s IDSet) Add(key string) {
	s[key] = struct{}{}
}

// Merge 并入另一个集合
func (s IDSet) Merge(other IDSet) {
	for k := range other {
		s[k] = struct{}{}
	}
}

// ArticleKey 去重键：title-link-date，使用字面值
func ArticleKey(title, link, date string) string {
	return title + "-" + link + "-" + date
}

// Normalize 将原始条目转换为 Article；position 为条目在当日批次中的下标
func Normalize(item RawNewsItem, position int, date string) Article {
	a := Article{
		Position:  position,
		Title:     DefaultTitle,
		Link:      DefaultLink,
		Source:    DefaultSource,
		Date:      date,
		Thumbnail: DefaultThumbnail,
		Snippet:   DefaultSnippet,
	}
	if item.Title != nil {
		a.Title = *item.Title
	}
	if item.Link != nil {
		a.Link = *item.Link
	}
	if item.Source != nil {
		a.Source = *item.Source
	}
	if item.Thumbnail != nil {
		a.Thumbnail = *item.Thumbnail
	}
	if item.Snippet != nil {
		a.Snippet = *item.Snippet
	}
	return a
}

// DedupeResult 一次去重的输出
type DedupeResult struct {
	Unique     []Article
	NewIDs     IDSet
	Duplicates int
}

// Dedupe 按输入顺序过滤已存在（含同批次内重复）的条目，不修改 existing
func Dedupe(existing IDSet, today string, items []RawNewsItem) DedupeResult {
	res := DedupeResult{NewIDs: make(IDSet)}
	for i, item := range items {
		a := Normalize(item, i, today)
		key := a.Key()
		if existing.Has(key) || res.NewIDs.Has(key) {
			res.Duplicates++
			continue
		}
		res.Unique = append(res.Unique, a)
		res.NewIDs.Add(key)
	}
	return res
}
