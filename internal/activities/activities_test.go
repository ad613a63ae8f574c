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

package activities

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"newsfeed/internal/newsfeed"
	"newsfeed/internal/notify"
	"newsfeed/internal/search"
)

type captureNotifier struct {
	got []notify.Digest
	err error
}

func (c *captureNotifier) Notify(ctx context.Context, d notify.Digest) error {
	c.got = append(c.got, d)
	return c.err
}

func newEnv(t *testing.T, acts *Activities) *testsuite.TestActivityEnvironment {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestActivityEnvironment()
	env.RegisterActivity(acts)
	return env
}

func TestSearchNews(t *testing.T) {
	acts := NewActivities(search.ProviderFunc(func(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
		return []newsfeed.RawNewsItem{{Title: newsfeed.Str(topic + " " + date)}}, nil
	}), nil, nil)
	env := newEnv(t, acts)

	val, err := env.ExecuteActivity(acts.SearchNews, newsfeed.SearchRequest{Topic: "golang", Date: "2024-01-01"})
	require.NoError(t, err)
	var out newsfeed.SearchResult
	require.NoError(t, val.Get(&out))
	assert.Equal(t, "2024-01-01", out.Date)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "golang 2024-01-01", *out.Items[0].Title)
}

func TestSearchNews_Validation(t *testing.T) {
	acts := NewActivities(search.ProviderFunc(func(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
		t.Fatal("provider must not be called for invalid input")
		return nil, nil
	}), nil, nil)
	env := newEnv(t, acts)

	for _, req := range []newsfeed.SearchRequest{{Topic: "", Date: "2024-01-01"}, {Topic: "go", Date: "2024-13-01"}} {
		_, err := env.ExecuteActivity(acts.SearchNews, req)
		require.Error(t, err)
		var appErr *temporal.ApplicationError
		require.True(t, errors.As(err, &appErr), "got %v", err)
		assert.Equal(t, ErrTypeValidation, appErr.Type())
		assert.True(t, appErr.NonRetryable())
	}
}

func TestSearchNews_ProviderErrors(t *testing.T) {
	var fail error
	acts := NewActivities(search.ProviderFunc(func(ctx context.Context, topic, date string) ([]newsfeed.RawNewsItem, error) {
		return nil, fail
	}), nil, nil)
	env := newEnv(t, acts)

	fail = fmt.Errorf("%w: status 401", search.ErrPermanent)
	_, err := env.ExecuteActivity(acts.SearchNews, newsfeed.SearchRequest{Topic: "go", Date: "2024-01-01"})
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeProviderRejected, appErr.Type())
	assert.True(t, appErr.NonRetryable())

	fail = errors.New("connection reset")
	_, err = env.ExecuteActivity(acts.SearchNews, newsfeed.SearchRequest{Topic: "go", Date: "2024-01-01"})
	require.Error(t, err)
	if errors.As(err, &appErr) {
		assert.False(t, appErr.NonRetryable())
	}
}

func TestNotifyResults(t *testing.T) {
	n := &captureNotifier{}
	acts := NewActivities(nil, n, nil)
	env := newEnv(t, acts)

	articles := []newsfeed.Article{{Title: "A", Link: "a", Date: "2024-01-01"}}
	_, err := env.ExecuteActivity(acts.NotifyResults, newsfeed.NotifyRequest{Topic: "go", Date: "2024-01-01", Articles: articles, NewCount: 1})
	require.NoError(t, err)
	require.Len(t, n.got, 1)
	assert.Equal(t, "go", n.got[0].Topic)
	assert.Equal(t, 1, n.got[0].NewCount)
	assert.Equal(t, articles, n.got[0].Articles)

	n.err = errors.New("slack down")
	_, err = env.ExecuteActivity(acts.NotifyResults, newsfeed.NotifyRequest{Topic: "go", Date: "2024-01-01", Articles: articles})
	assert.Error(t, err)
}

func TestNotifyResults_NoNotifier(t *testing.T) {
	acts := NewActivities(nil, nil, nil)
	env := newEnv(t, acts)
	_, err := env.ExecuteActivity(acts.NotifyResults, newsfeed.NotifyRequest{Topic: "go"})
	assert.NoError(t, err)
}
