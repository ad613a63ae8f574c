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

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/mail.v2"

	"newsfeed/pkg/config"
)

type recordingNotifier struct {
	mu      sync.Mutex
	digests []Digest
	err     error
}

func (r *recordingNotifier) Notify(ctx context.Context, d Digest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.digests = append(r.digests, d)
	return r.err
}

func TestMulti_ContinuesAfterFailure(t *testing.T) {
	bad := &recordingNotifier{err: errors.New("boom")}
	good := &recordingNotifier{}
	m := NewMulti(nil, Channel{Name: "bad", Notifier: bad}, Channel{Name: "good", Notifier: good})

	err := m.Notify(context.Background(), sampleDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, bad.digests, 1)
	assert.Len(t, good.digests, 1)
}

func TestBuild(t *testing.T) {
	n, err := Build(config.NotifyConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, n.Notify(context.Background(), sampleDigest()))

	_, err = Build(config.NotifyConfig{Channels: []string{"slack"}}, nil)
	assert.Error(t, err, "slack without token")
	_, err = Build(config.NotifyConfig{Channels: []string{"pager"}}, nil)
	assert.Error(t, err)

	_, err = Build(config.NotifyConfig{
		Channels: []string{"slack", "telegram", "email", "log"},
		Slack:    config.SlackConfig{Token: "xoxb"},
		Telegram: config.TelegramConfig{Token: "t", ChatID: 1},
		Email:    config.EmailConfig{SMTPHost: "localhost", SMTPPort: 25, To: "a@example.com"},
	}, nil)
	assert.NoError(t, err)
}

func TestSlack_PostsEachArticle(t *testing.T) {
	var mu sync.Mutex
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.Equal(t, "Bearer xoxb-test", r.Header.Get("Authorization"))
		var msg slackMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "#newsfeed-demo", msg.Channel)
		assert.Equal(t, "NewsfeedDemo", msg.Username)
		mu.Lock()
		texts = append(texts, msg.Text)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(msg.Text, "Miners") {
			_, _ = w.Write([]byte(`{"ok":false,"error":"rate_limited"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	s := NewSlack(SlackOptions{Token: "xoxb-test", Username: "NewsfeedDemo", BaseURL: server.URL}, nil)
	require.NoError(t, s.Notify(context.Background(), sampleDigest()), "partial failure is tolerated")
	assert.Equal(t, []string{
		"Bitcoin rallies https://example.com/a",
		"Miners & markets https://example.com/b?x=1&y=2",
	}, texts)
}

func TestSlack_AllFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"invalid_auth"}`))
	}))
	defer server.Close()

	err := NewSlack(SlackOptions{Token: "x", BaseURL: server.URL}, nil).Notify(context.Background(), sampleDigest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_auth")
}

func TestSlack_EmptyDigest(t *testing.T) {
	s := NewSlack(SlackOptions{Token: "x", BaseURL: "http://127.0.0.1:1"}, nil)
	assert.NoError(t, s.Notify(context.Background(), Digest{Topic: "t"}))
}

func TestTelegram_SendsDigest(t *testing.T) {
	var sent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/botTOKEN/getMe":
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"newsfeed","username":"newsfeed_bot"}}`))
		case "/botTOKEN/sendMessage":
			_ = r.ParseForm()
			assert.Equal(t, "42", r.FormValue("chat_id"))
			sent = r.FormValue("text")
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
		}
	}))
	defer server.Close()

	tg := NewTelegram(TelegramOptions{Token: "TOKEN", ChatID: 42, APIEndpoint: server.URL + "/bot%s/%s"})
	require.NoError(t, tg.Notify(context.Background(), sampleDigest()))
	assert.Equal(t, RenderText(sampleDigest()), sent)
}

type fakeSender struct {
	messages []*gomail.Message
	err      error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.messages = append(f.messages, m...)
	return f.err
}

func TestEmail_Notify(t *testing.T) {
	sender := &fakeSender{}
	e := NewEmailWithSender(EmailOptions{Username: "bot@example.com", To: "me@example.com"}, sender)
	require.NoError(t, e.Notify(context.Background(), sampleDigest()))
	require.Len(t, sender.messages, 1)
	m := sender.messages[0]
	assert.Equal(t, []string{"bot@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"me@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{Subject(sampleDigest())}, m.GetHeader("Subject"))

	sender.err = fmt.Errorf("smtp down")
	assert.Error(t, e.Notify(context.Background(), sampleDigest()))
	assert.NoError(t, e.Notify(context.Background(), Digest{}), "empty digest skips sending")
}
