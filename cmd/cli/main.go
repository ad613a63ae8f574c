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

// newsctl 命令行：通过 API 订阅主题、查看累积结果并控制 workflow
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"newsfeed/internal/newsfeed"
)

type rootOptions struct {
	apiURL  string
	token   string
	jsonOut bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "newsctl",
		Short:         "newsfeed 累积服务命令行",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", apiBaseURL(), "API 地址（环境变量 NEWSFEED_API_URL）")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("NEWSFEED_TOKEN"), "JWT（环境变量 NEWSFEED_TOKEN）")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "以 JSON 输出")

	client := func() *apiClient { return newClient(opts.apiURL, opts.token) }

	root.AddCommand(
		loginCmd(client),
		subscribeCmd(client, opts),
		resultsCmd(client, opts),
		datesCmd(client, opts),
		stateCmd(client, opts),
		appendCmd(client, opts),
		signalCmd(client, "exit", "请求 workflow 在下一个安全点结束"),
		signalCmd(client, "keepalive", "发送保活信号"),
		listCmd(client, opts),
	)
	return root
}

func loginCmd(client func() *apiClient) *cobra.Command {
	var user, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "获取 JWT",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := client().login(user, pass)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "admin", "用户名")
	cmd.Flags().StringVarP(&pass, "password", "p", os.Getenv("NEWSFEED_ADMIN_PASSWORD"), "密码")
	return cmd
}

func subscribeCmd(client func() *apiClient, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "subscribe <topic...>",
		Short: "订阅主题（复用或启动累积 workflow）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sub, err := client().subscribe(strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				fmt.Fprintln(out, prettyJSON(sub))
				return nil
			}
			verb := "started"
			if sub.Reused {
				verb = "reused"
			}
			fmt.Fprintf(out, "query %s (%s, workflow %s)\n", sub.QueryID, verb, sub.WorkflowID)
			printArticles(out, sub.Articles)
			return nil
		},
	}
}

func resultsCmd(client func() *apiClient, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results <query-id>",
		Short: "查看当前累积结果",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articles, dates, err := client().results(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				fmt.Fprintln(out, prettyJSON(map[string]interface{}{"articles": articles, "dates": dates}))
				return nil
			}
			fmt.Fprintf(out, "%d articles across %d dates\n", len(articles), len(dates))
			printArticles(out, articles)
			return nil
		},
	}
}

func datesCmd(client func() *apiClient, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dates <query-id>",
		Short: "查看已处理日期",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := client().dates(args[0])
			if err != nil {
				return err
			}
			if opts.jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(dates))
				return nil
			}
			for _, d := range dates {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}
}

func stateCmd(client func() *apiClient, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state <query-id>",
		Short: "查看 workflow 运行概况",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client().state(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				fmt.Fprintln(out, prettyJSON(st))
				return nil
			}
			fmt.Fprintf(out, "topic:    %s\nphase:    %s\ndate:     %s\ndays:     %d\nresults:  %d\nexiting:  %t\n",
				st.TopicString, st.Phase, st.CurrentDate, st.DayCount, st.ResultCount, st.ExitRequested)
			if st.LastSignalTime != nil {
				fmt.Fprintf(out, "lastPing: %s\n", st.LastSignalTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func appendCmd(client func() *apiClient, opts *rootOptions) *cobra.Command {
	var title, link, source, date, snippet, thumbnail string
	cmd := &cobra.Command{
		Use:   "append <query-id>",
		Short: "手动追加一篇文章",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item := newsfeed.RawNewsItem{Date: date}
			set := func(name, v string, dst **string) {
				if cmd.Flags().Changed(name) {
					*dst = newsfeed.Str(v)
				}
			}
			set("title", title, &item.Title)
			set("link", link, &item.Link)
			set("source", source, &item.Source)
			set("snippet", snippet, &item.Snippet)
			set("thumbnail", thumbnail, &item.Thumbnail)
			articles, err := client().appendArticle(args[0], item)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				fmt.Fprintln(cmd.OutOrStdout(), prettyJSON(articles))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d articles\n", len(articles))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "标题")
	cmd.Flags().StringVar(&link, "link", "", "链接")
	cmd.Flags().StringVar(&source, "source", "", "来源")
	cmd.Flags().StringVar(&date, "date", "", "日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&snippet, "snippet", "", "摘要")
	cmd.Flags().StringVar(&thumbnail, "thumbnail", "", "缩略图")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func signalCmd(client func() *apiClient, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <query-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().signal(args[0], name); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func listCmd(client func() *apiClient, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出已知订阅",
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := client().list()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.jsonOut {
				fmt.Fprintln(out, prettyJSON(subs))
				return nil
			}
			for _, m := range subs {
				fmt.Fprintf(out, "%s\t%s\t%s\n", m.QueryID, m.WorkflowID, m.Topic)
			}
			return nil
		},
	}
}

func printArticles(w io.Writer, articles []newsfeed.Article) {
	for _, a := range articles {
		fmt.Fprintf(w, "[%s] %s\n    %s (%s)\n", a.Date, a.Title, a.Link, a.Source)
	}
}
