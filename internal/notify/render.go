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
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

const telegramMaxRunes = 4096

var htmlDigest = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body>
<h2>{{.Topic}} news for {{.Date}}</h2>
<p>{{.NewCount}} new of {{len .Articles}} articles</p>
<ul>
{{- range .Articles}}
<li><a href="{{.Link}}">{{.Title}}</a> <small>{{.Source}} · {{.Date}}</small><br>{{.Snippet}}</li>
{{- end}}
</ul>
</body>
</html>
`))

// Subject 邮件标题
func Subject(d Digest) string {
	return fmt.Sprintf("Newsfeed: %s (%s) - %d new", d.Topic, d.Date, d.NewCount)
}

// RenderText 纯文本摘要，每条一行 "title link"
func RenderText(d Digest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s news for %s: %d new, %d total\n", d.Topic, d.Date, d.NewCount, len(d.Articles))
	for _, a := range d.Articles {
		fmt.Fprintf(&sb, "- %s %s\n", a.Title, a.Link)
	}
	return sb.String()
}

// RenderHTML HTML 摘要
func RenderHTML(d Digest) (string, error) {
	var buf bytes.Buffer
	if err := htmlDigest.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncateRunes 超长时截断并追加省略号
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
