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

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]interface{}
}

func fakeAPI(t *testing.T) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		calls = append(calls, rec)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/newsfeed":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"status":"success","queryId":"abcd1234","workflowId":"newsfeed-abcd1234-00000001","topic":"golang","reused":false,"articles":[{"title":"Go","link":"https://go.dev","date":"2024-03-01","source":"Go Blog"}],"dates":["2024-03-01"]}`)
		case r.URL.Path == "/api/newsfeed/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"status":"error","message":"No workflow found for this query","articles":[],"dates":[]}`)
		case r.URL.Path == "/api/newsfeed/abcd1234":
			_, _ = io.WriteString(w, `{"status":"success","articles":[{"title":"Go","link":"https://go.dev","date":"2024-03-01"}],"dates":["2024-03-01"]}`)
		case r.URL.Path == "/api/newsfeed/abcd1234/state":
			_, _ = io.WriteString(w, `{"status":"success","state":{"phase":"sleeping","topicString":"golang","currentDate":"2024-03-01","dayCount":1,"resultCount":1}}`)
		case r.URL.Path == "/api/newsfeed/abcd1234/articles":
			_, _ = io.WriteString(w, `{"status":"success","articles":[{},{}]}`)
		case r.URL.Path == "/api/newsfeed/abcd1234/exit":
			w.WriteHeader(http.StatusAccepted)
			_, _ = io.WriteString(w, `{"status":"success"}`)
		case r.URL.Path == "/api/auth/login":
			_, _ = io.WriteString(w, `{"code":200,"token":"tok-123"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"status":"error","message":"unexpected"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api-url", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_Subscribe(t *testing.T) {
	srv, calls := fakeAPI(t)
	out, err := run(t, srv, "--token", "tok-123", "subscribe", "golang", "generics")
	require.NoError(t, err)
	assert.Contains(t, out, "query abcd1234 (started")
	assert.Contains(t, out, "https://go.dev")
	require.Len(t, *calls, 1)
	assert.Equal(t, "golang generics", (*calls)[0].body["topic"])
	assert.Equal(t, "Bearer tok-123", (*calls)[0].auth)
}

func TestCLI_ResultsAndState(t *testing.T) {
	srv, _ := fakeAPI(t)
	out, err := run(t, srv, "results", "abcd1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1 articles across 1 dates"), out)

	out, err = run(t, srv, "state", "abcd1234")
	require.NoError(t, err)
	assert.Contains(t, out, "phase:    sleeping")

	out, err = run(t, srv, "--json", "state", "abcd1234")
	require.NoError(t, err)
	assert.Contains(t, out, `"topicString": "golang"`)
}

func TestCLI_NotFound(t *testing.T) {
	srv, _ := fakeAPI(t)
	_, err := run(t, srv, "results", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No workflow found for this query")
}

func TestCLI_AppendSendsOnlyGivenFields(t *testing.T) {
	srv, calls := fakeAPI(t)
	out, err := run(t, srv, "append", "abcd1234", "--date", "2024-03-02", "--title", "Manual", "--snippet", "")
	require.NoError(t, err)
	assert.Contains(t, out, "2 articles")

	body := (*calls)[0].body
	assert.Equal(t, "Manual", body["title"])
	assert.Equal(t, "", body["snippet"])
	assert.Equal(t, "2024-03-02", body["date"])
	_, hasLink := body["link"]
	assert.False(t, hasLink, "unset fields must be omitted so the server applies defaults")
}

func TestCLI_ExitAndLogin(t *testing.T) {
	srv, _ := fakeAPI(t)
	out, err := run(t, srv, "exit", "abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, err = run(t, srv, "login", "-u", "admin", "-p", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok-123\n", out)
}
