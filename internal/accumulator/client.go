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

package accumulator

import (
	"context"
	stderrors "errors"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/temporal"

	"newsfeed/internal/activities"
	"newsfeed/internal/newsfeed"
	"newsfeed/internal/workflow"
	"newsfeed/pkg/errors"
	"newsfeed/pkg/log"
)

// TemporalClient Client 用到的 Temporal 客户端能力；client.Client 满足该接口
type TemporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, wf interface{}, args ...interface{}) (client.WorkflowRun, error)
	GetWorkflow(ctx context.Context, workflowID string, runID string) client.WorkflowRun
	SignalWorkflow(ctx context.Context, workflowID string, runID string, signalName string, arg interface{}) error
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
	UpdateWorkflow(ctx context.Context, options client.UpdateWorkflowOptions) (client.WorkflowUpdateHandle, error)
	DescribeWorkflowExecution(ctx context.Context, workflowID, runID string) (*workflowservice.DescribeWorkflowExecutionResponse, error)
}

// AlreadyRunningError 同 id 的 workflow 已在运行
type AlreadyRunningError struct {
	WorkflowID string
	RunID      string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("workflow %s already running (run %s)", e.WorkflowID, e.RunID)
}

func (e *AlreadyRunningError) Unwrap() error {
	return errors.ErrAlreadyRunning
}

// Client 累积 workflow 的调用入口
type Client struct {
	tc        TemporalClient
	taskQueue string
	options   workflow.Options
	logger    *log.Logger
}

// NewClient 创建 Client；options 写入每个新启动 workflow 的输入
func NewClient(tc TemporalClient, taskQueue string, options workflow.Options, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	return &Client{tc: tc, taskQueue: taskQueue, options: options, logger: logger}
}

// Start 以指定 id 启动 workflow；同 id 已在运行时返回 *AlreadyRunningError
func (c *Client) Start(ctx context.Context, workflowID string, topic newsfeed.Topic) error {
	run, err := c.tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                c.taskQueue,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflow.WorkflowName, workflow.Input{Topic: topic, Options: c.options})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if stderrors.As(err, &started) {
			return &AlreadyRunningError{WorkflowID: workflowID, RunID: started.RunId}
		}
		return errors.Wrapf(err, "start workflow %s", workflowID)
	}
	c.logger.Info("workflow started",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
		"topic", topic.TopicString,
		"date", topic.TopicDate,
		"previous_results", len(topic.PreviousResults),
	)
	return nil
}

func (c *Client) query(ctx context.Context, workflowID, queryType string, out interface{}) error {
	val, err := c.tc.QueryWorkflow(ctx, workflowID, "", queryType)
	if err != nil {
		return translate(err, workflowID)
	}
	if !val.HasValue() {
		return nil
	}
	return val.Get(out)
}

// CurrentResults 当前累积结果
func (c *Client) CurrentResults(ctx context.Context, workflowID string) ([]newsfeed.Article, error) {
	var out []newsfeed.Article
	if err := c.query(ctx, workflowID, workflow.QueryCurrentResults, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProcessedDates 已处理日期（升序）
func (c *Client) ProcessedDates(ctx context.Context, workflowID string) ([]string, error) {
	var out []string
	if err := c.query(ctx, workflowID, workflow.QueryProcessedDates, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// State 运行概况
func (c *Client) State(ctx context.Context, workflowID string) (newsfeed.Status, error) {
	var out newsfeed.Status
	err := c.query(ctx, workflowID, workflow.QueryState, &out)
	return out, err
}

// Append 注入一条文章并等待 update 完成，返回注入后的结果
func (c *Client) Append(ctx context.Context, workflowID string, article newsfeed.Article) ([]newsfeed.Article, error) {
	handle, err := c.tc.UpdateWorkflow(ctx, client.UpdateWorkflowOptions{
		WorkflowID:   workflowID,
		UpdateName:   workflow.UpdateAppendResult,
		Args:         []interface{}{article},
		WaitForStage: client.WorkflowUpdateStageCompleted,
	})
	if err != nil {
		return nil, translate(err, workflowID)
	}
	var out []newsfeed.Article
	if err := handle.Get(ctx, &out); err != nil {
		return nil, rejection(err, workflowID)
	}
	return out, nil
}

// rejection 将 update 校验/处理拒绝映射为包内哨兵错误
func rejection(err error, workflowID string) error {
	var appErr *temporal.ApplicationError
	if !stderrors.As(err, &appErr) {
		return translate(err, workflowID)
	}
	switch appErr.Type() {
	case activities.ErrTypeValidation:
		return fmt.Errorf("%s: %w", appErr.Message(), errors.ErrInvalidArg)
	case workflow.ErrTypeExited:
		return fmt.Errorf("workflow %s: %s: %w", workflowID, appErr.Message(), errors.ErrConflict)
	}
	return err
}

// Exit 请求 workflow 在下一个安全点结束
func (c *Client) Exit(ctx context.Context, workflowID string) error {
	return translate(c.tc.SignalWorkflow(ctx, workflowID, "", workflow.SignalExit, nil), workflowID)
}

// KeepAlive 发送保活信号
func (c *Client) KeepAlive(ctx context.Context, workflowID string) error {
	return translate(c.tc.SignalWorkflow(ctx, workflowID, "", workflow.SignalKeepAlive, nil), workflowID)
}

// IsRunning workflow 是否处于运行状态；不存在时返回 false
func (c *Client) IsRunning(ctx context.Context, workflowID string) (bool, error) {
	resp, err := c.tc.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if stderrors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return resp.GetWorkflowExecutionInfo().GetStatus() == enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, nil
}

// Result 等待 workflow 结束并返回最终结果
func (c *Client) Result(ctx context.Context, workflowID string) ([]newsfeed.Article, error) {
	var out []newsfeed.Article
	if err := c.tc.GetWorkflow(ctx, workflowID, "").Get(ctx, &out); err != nil {
		return nil, translate(err, workflowID)
	}
	return out, nil
}

func translate(err error, workflowID string) error {
	if err == nil {
		return nil
	}
	var nf *serviceerror.NotFound
	if stderrors.As(err, &nf) {
		return fmt.Errorf("workflow %s: %w", workflowID, errors.ErrNotFound)
	}
	return err
}
