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

package feed

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsfeed/internal/mapping"
	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/errors"
)

type fakeGateway struct {
	mu         sync.Mutex
	results    map[string][]newsfeed.Article
	queryErr   map[string]error
	startErr   error
	started    []newsfeed.Topic
	startedIDs []string
	keepAlive  []string
	exits      []string
	// 启动后第 n 次查询才返回结果
	readyAfter int
	queries    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{results: map[string][]newsfeed.Article{}, queryErr: map[string]error{}}
}

func (f *fakeGateway) Start(ctx context.Context, workflowID string, topic newsfeed.Topic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, topic)
	f.startedIDs = append(f.startedIDs, workflowID)
	return nil
}

func (f *fakeGateway) CurrentResults(ctx context.Context, workflowID string) ([]newsfeed.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.queryErr[workflowID]; err != nil {
		return nil, err
	}
	f.queries++
	if f.readyAfter > 0 && f.queries < f.readyAfter {
		return []newsfeed.Article{}, nil
	}
	return f.results[workflowID], nil
}

func (f *fakeGateway) ProcessedDates(ctx context.Context, workflowID string) ([]string, error) {
	return UniqueDates(f.results[workflowID]), nil
}

func (f *fakeGateway) State(ctx context.Context, workflowID string) (newsfeed.Status, error) {
	return newsfeed.Status{ResultCount: len(f.results[workflowID])}, nil
}

func (f *fakeGateway) Append(ctx context.Context, workflowID string, a newsfeed.Article) ([]newsfeed.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[workflowID] = append(f.results[workflowID], a)
	return f.results[workflowID], nil
}

func (f *fakeGateway) Exit(ctx context.Context, workflowID string) error {
	f.exits = append(f.exits, workflowID)
	return nil
}

func (f *fakeGateway) KeepAlive(ctx context.Context, workflowID string) error {
	f.keepAlive = append(f.keepAlive, workflowID)
	return nil
}

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.slept += d
	c.now = c.now.Add(d)
	return nil
}

func newTestService(gw Gateway, store mapping.Store) (*Service, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)}
	return NewService(store, gw, Options{Now: clock.Now, Sleep: clock.Sleep}, nil), clock
}

func TestSubscribe_StartsNewWorkflow(t *testing.T) {
	gw := newFakeGateway()
	store := mapping.NewMemoryStore()
	svc, clock := newTestService(gw, store)
	qid := mapping.QueryID("bitcoin")

	sub, err := svc.Subscribe(context.Background(), "  bitcoin ")
	require.NoError(t, err)
	assert.Equal(t, qid, sub.QueryID)
	assert.False(t, sub.Reused)
	require.Len(t, gw.started, 1)
	assert.Equal(t, "2024-02-28", gw.started[0].TopicDate)
	assert.Equal(t, "bitcoin", gw.started[0].TopicString)
	assert.Empty(t, gw.started[0].PreviousResults)

	m, err := store.Get(context.Background(), qid)
	require.NoError(t, err)
	assert.Equal(t, sub.WorkflowID, m.WorkflowID)
	assert.Equal(t, "bitcoin", m.Topic)
	assert.Equal(t, 30*time.Second, clock.slept, "waits the full initial window when no results arrive")
	assert.NotNil(t, sub.Articles)
	assert.Empty(t, sub.Articles)
}

func TestSubscribe_PollsUntilResults(t *testing.T) {
	gw := newFakeGateway()
	gw.readyAfter = 3
	svc, clock := newTestService(&resultOnStart{
		fakeGateway: gw,
		articles:    []newsfeed.Article{{Title: "A", Date: "2024-02-28"}},
	}, mapping.NewMemoryStore())

	sub, err := svc.Subscribe(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, sub.Articles, 1)
	assert.Equal(t, []string{"2024-02-28"}, sub.Dates)
	assert.Equal(t, 6*time.Second, clock.slept)
}

// resultOnStart 启动时为新 workflow 预置结果
type resultOnStart struct {
	*fakeGateway
	articles []newsfeed.Article
}

func (r *resultOnStart) Start(ctx context.Context, workflowID string, topic newsfeed.Topic) error {
	if err := r.fakeGateway.Start(ctx, workflowID, topic); err != nil {
		return err
	}
	r.fakeGateway.mu.Lock()
	r.fakeGateway.results[workflowID] = r.articles
	r.fakeGateway.mu.Unlock()
	return nil
}

func TestSubscribe_ReusesWorkflowWithResults(t *testing.T) {
	gw := newFakeGateway()
	store := mapping.NewMemoryStore()
	qid := mapping.QueryID("bitcoin")
	require.NoError(t, store.Put(context.Background(), mapping.Mapping{QueryID: qid, WorkflowID: "wf-old", Topic: "bitcoin"}))
	gw.results["wf-old"] = []newsfeed.Article{{Title: "A", Date: "2024-02-27"}, {Title: "B", Date: "2024-02-26"}}
	svc, clock := newTestService(gw, store)

	sub, err := svc.Subscribe(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.True(t, sub.Reused)
	assert.Equal(t, "wf-old", sub.WorkflowID)
	assert.Equal(t, []string{"2024-02-26", "2024-02-27"}, sub.Dates)
	assert.Equal(t, []string{"wf-old"}, gw.keepAlive)
	assert.Empty(t, gw.started)
	assert.Zero(t, clock.slept)
}

func TestSubscribe_RestartsEmptyWorkflowCarryingNothing(t *testing.T) {
	gw := newFakeGateway()
	store := mapping.NewMemoryStore()
	qid := mapping.QueryID("bitcoin")
	require.NoError(t, store.Put(context.Background(), mapping.Mapping{QueryID: qid, WorkflowID: "wf-empty"}))
	gw.results["wf-empty"] = []newsfeed.Article{}
	svc, _ := newTestService(gw, store)

	sub, err := svc.Subscribe(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, gw.started, 1)
	assert.NotEqual(t, "wf-empty", sub.WorkflowID)
	m, _ := store.Get(context.Background(), qid)
	assert.Equal(t, sub.WorkflowID, m.WorkflowID)
}

func TestSubscribe_UnreachableWorkflowStartsFresh(t *testing.T) {
	gw := newFakeGateway()
	store := mapping.NewMemoryStore()
	qid := mapping.QueryID("bitcoin")
	require.NoError(t, store.Put(context.Background(), mapping.Mapping{QueryID: qid, WorkflowID: "wf-dead"}))
	gw.queryErr["wf-dead"] = fmt.Errorf("workflow wf-dead: %w", errors.ErrNotFound)
	svc, _ := newTestService(gw, store)

	_, err := svc.Subscribe(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, gw.started, 1)
	assert.Empty(t, gw.keepAlive)
}

func TestSubscribe_StartFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.startErr = fmt.Errorf("temporal unavailable")
	store := mapping.NewMemoryStore()
	svc, _ := newTestService(gw, store)

	_, err := svc.Subscribe(context.Background(), "bitcoin")
	require.Error(t, err)
	_, err = store.Get(context.Background(), mapping.QueryID("bitcoin"))
	assert.True(t, errors.Is(err, mapping.ErrNotFound), "mapping is only saved after a successful start")
}

func TestSubscribe_AlreadyRunning(t *testing.T) {
	gw := newFakeGateway()
	gw.startErr = fmt.Errorf("wf: %w", errors.ErrAlreadyRunning)
	svc, _ := newTestService(gw, mapping.NewMemoryStore())

	sub, err := svc.Subscribe(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.True(t, sub.Reused)
}

func TestSubscribe_EmptyTopic(t *testing.T) {
	svc, _ := newTestService(newFakeGateway(), mapping.NewMemoryStore())
	_, err := svc.Subscribe(context.Background(), "   ")
	assert.True(t, errors.Is(err, errors.ErrInvalidArg))
}

func TestOperations_ByQueryID(t *testing.T) {
	gw := newFakeGateway()
	store := mapping.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), mapping.Mapping{QueryID: "abcd1234", WorkflowID: "wf-1", Topic: "go"}))
	gw.results["wf-1"] = []newsfeed.Article{{Title: "A", Date: "2024-01-01"}}
	svc, _ := newTestService(gw, store)
	ctx := context.Background()

	up, err := svc.Updates(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Len(t, up.Articles, 1)
	assert.Equal(t, "go", up.Topic)

	_, err = svc.Updates(ctx, "ffffffff")
	assert.True(t, errors.Is(err, mapping.ErrNotFound))

	dates, err := svc.ProcessedDates(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01"}, dates)

	st, err := svc.State(ctx, "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, 1, st.ResultCount)

	_, err = svc.Append(ctx, "abcd1234", newsfeed.Article{Title: "bad", Date: "yesterday"})
	assert.True(t, errors.Is(err, errors.ErrInvalidArg))
	out, err := svc.Append(ctx, "abcd1234", newsfeed.Article{Title: "B", Date: "2024-01-02"})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	require.NoError(t, svc.KeepAlive(ctx, "abcd1234"))
	require.NoError(t, svc.Exit(ctx, "abcd1234"))
	assert.Equal(t, []string{"wf-1"}, gw.exits)

	subs, err := svc.Subscriptions(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestUniqueDates(t *testing.T) {
	got := UniqueDates([]newsfeed.Article{{Date: "2024-01-02"}, {Date: ""}, {Date: "2024-01-01"}, {Date: "2024-01-02"}})
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, got)
	assert.NotNil(t, UniqueDates(nil))
}
