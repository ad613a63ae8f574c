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

package workflow

import (
	"errors"
	"fmt"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"newsfeed/internal/activities"
	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/metrics"
)

// accumulator 一次运行的上下文；只在 workflow 协程内使用
type accumulator struct {
	ctx    workflow.Context
	opts   Options
	raw    Options
	state  *newsfeed.State
	logger log.Logger

	exitCh      workflow.ReceiveChannel
	keepAliveCh workflow.ReceiveChannel
}

// NewsfeedWorkflow 从 Topic.TopicDate 开始按日检索新闻并累积去重结果，直到收到 exit 信号。
// 历史过长时以当天日期和已有结果 continue-as-new。
func NewsfeedWorkflow(ctx workflow.Context, in Input) ([]newsfeed.Article, error) {
	if err := newsfeed.ValidateDate(in.Topic.TopicDate); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), activities.ErrTypeValidation, err)
	}

	acc := &accumulator{
		ctx:         ctx,
		opts:        in.Options.withDefaults(),
		raw:         in.Options,
		state:       newsfeed.NewState(in.Topic),
		logger:      workflow.GetLogger(ctx),
		exitCh:      workflow.GetSignalChannel(ctx, SignalExit),
		keepAliveCh: workflow.GetSignalChannel(ctx, SignalKeepAlive),
	}
	if err := acc.registerHandlers(); err != nil {
		return nil, err
	}
	acc.logger.Info("newsfeed workflow started",
		"topic", in.Topic.TopicString,
		"date", in.Topic.TopicDate,
		"restored", acc.state.ResultCount(),
	)
	return acc.run()
}

func (a *accumulator) run() ([]newsfeed.Article, error) {
	st := a.state
	for {
		today := st.CurrentDate
		st.MarkProcessed(today)

		st.Phase = newsfeed.PhaseFetching
		result, err := a.fetch(today)
		if err != nil {
			a.countCycle("aborted")
			return nil, a.abort(today, err)
		}

		st.Phase = newsfeed.PhaseMerging
		merged := st.Merge(today, result.Items)
		a.recordMerge(merged)

		st.Phase = newsfeed.PhaseNotifying
		a.notify(today, merged.Unique)
		st.DayCount++

		a.drainSignals()
		if st.ExitRequested {
			break
		}
		if a.shouldContinueAsNew() {
			st.Phase = newsfeed.PhaseRestarting
			if err := a.awaitHandlers(); err != nil {
				return nil, err
			}
			// 等待 handler 期间到达的 exit 不能随本次运行丢弃
			a.drainSignals()
			if st.ExitRequested {
				break
			}
			a.countCycle("continued")
			return nil, a.continueAsNew(today)
		}
		a.countCycle("completed")

		st.Phase = newsfeed.PhaseSleeping
		a.sleep()
		if err := a.ctx.Err(); err != nil {
			return st.Results(), err
		}
		if st.ExitRequested {
			break
		}

		next, err := newsfeed.NextDate(today)
		if err != nil {
			return nil, a.abort(today, err)
		}
		st.CurrentDate = next
	}

	st.Phase = newsfeed.PhaseExiting
	a.countCycle("exited")
	if err := a.awaitHandlers(); err != nil {
		return nil, err
	}
	a.logger.Info("newsfeed workflow exiting", "results", st.ResultCount(), "days", st.DayCount)
	return st.Results(), nil
}

func (a *accumulator) activityContext() workflow.Context {
	return workflow.WithActivityOptions(a.ctx, workflow.ActivityOptions{
		ScheduleToCloseTimeout: a.opts.ActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        a.opts.RetryInitialInterval,
			BackoffCoefficient:     a.opts.RetryBackoff,
			MaximumInterval:        a.opts.RetryMaxInterval,
			MaximumAttempts:        a.opts.RetryMaxAttempts,
			NonRetryableErrorTypes: []string{activities.ErrTypeValidation, activities.ErrTypeProviderRejected},
		},
	})
}

func (a *accumulator) fetch(today string) (*newsfeed.SearchResult, error) {
	var acts *activities.Activities
	var out newsfeed.SearchResult
	actx := a.activityContext()
	err := workflow.ExecuteActivity(actx, acts.SearchNews, newsfeed.SearchRequest{
		Topic: a.state.Topic,
		Date:  today,
	}).Get(actx, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// notify 尽力投递，失败只记录
func (a *accumulator) notify(today string, fresh []newsfeed.Article) {
	articles := a.state.Results()
	if a.opts.NotifyPolicy == NotifyNew {
		if len(fresh) == 0 {
			return
		}
		articles = fresh
	}
	var acts *activities.Activities
	actx := a.activityContext()
	err := workflow.ExecuteActivity(actx, acts.NotifyResults, newsfeed.NotifyRequest{
		Topic:    a.state.Topic,
		Date:     today,
		Articles: articles,
		NewCount: len(fresh),
	}).Get(actx, nil)
	if err != nil {
		a.logger.Warn("notify failed, continuing", "date", today, "error", err)
	}
}

// abort 将失败转换为 workflow 终止错误：activity 失败为 CycleAborted，其余为 UnknownFailure
func (a *accumulator) abort(today string, err error) error {
	var actErr *temporal.ActivityError
	if errors.As(err, &actErr) {
		a.logger.Error("cycle aborted", "date", today, "error", err)
		return temporal.NewApplicationErrorWithCause(
			fmt.Sprintf("cycle aborted: fetch failed for %s", today), ErrTypeCycleAborted, err)
	}
	a.logger.Error("unknown failure", "date", today, "error", err)
	return temporal.NewApplicationErrorWithCause(unknownFailureMessage, ErrTypeUnknown, err)
}

func (a *accumulator) shouldContinueAsNew() bool {
	if workflow.GetInfo(a.ctx).GetContinueAsNewSuggested() {
		return true
	}
	return a.opts.MaxCyclesPerRun > 0 && a.state.DayCount >= a.opts.MaxCyclesPerRun
}

// awaitHandlers 等待进行中的 update 结束
func (a *accumulator) awaitHandlers() error {
	return workflow.Await(a.ctx, func() bool { return workflow.AllHandlersFinished(a.ctx) })
}

// continueAsNew 以当天日期和已有结果重新开始；调用前须已 awaitHandlers
func (a *accumulator) continueAsNew(today string) error {
	a.logger.Info("continuing as new", "date", today, "results", a.state.ResultCount(), "days", a.state.DayCount)
	return workflow.NewContinueAsNewError(a.ctx, WorkflowName, Input{
		Topic:   a.state.Carry(today),
		Options: a.raw,
	})
}

// drainSignals 处理已到达但尚未观察的信号
func (a *accumulator) drainSignals() {
	for a.exitCh.ReceiveAsync(nil) {
		a.observeExit()
	}
	for a.keepAliveCh.ReceiveAsync(nil) {
		a.state.RecordSignal(workflow.Now(a.ctx))
	}
}

func (a *accumulator) observeExit() {
	if !a.state.ExitRequested {
		a.logger.Info("exit requested", "date", a.state.CurrentDate)
	}
	a.state.RequestExit()
}

// sleep 休眠 SleepInterval；exit 信号提前唤醒，SleepTimeout 到期视为强制唤醒
func (a *accumulator) sleep() {
	timerCtx, cancel := workflow.WithCancel(a.ctx)
	defer cancel()

	woke := false
	sel := workflow.NewSelector(a.ctx)
	sel.AddFuture(workflow.NewTimer(timerCtx, a.opts.SleepInterval), func(workflow.Future) {
		woke = true
	})
	sel.AddFuture(workflow.NewTimer(timerCtx, a.opts.SleepTimeout), func(workflow.Future) {
		a.logger.Warn("sleep exceeded timeout, waking", "timeout", a.opts.SleepTimeout)
		woke = true
	})
	sel.AddReceive(a.exitCh, func(c workflow.ReceiveChannel, _ bool) {
		c.Receive(a.ctx, nil)
		a.observeExit()
		woke = true
	})
	sel.AddReceive(a.keepAliveCh, func(c workflow.ReceiveChannel, _ bool) {
		c.Receive(a.ctx, nil)
		a.state.RecordSignal(workflow.Now(a.ctx))
	})
	for !woke && a.ctx.Err() == nil {
		sel.Select(a.ctx)
	}
}

func (a *accumulator) recordMerge(res newsfeed.DedupeResult) {
	if workflow.IsReplaying(a.ctx) {
		return
	}
	metrics.ArticlesAppended.WithLabelValues("fetch").Add(float64(len(res.Unique)))
	metrics.DuplicatesSkipped.Add(float64(res.Duplicates))
	a.logger.Info("merged results",
		"date", a.state.CurrentDate,
		"new", len(res.Unique),
		"duplicates", res.Duplicates,
		"total", a.state.ResultCount(),
		"day", a.state.DayCount+1,
	)
}

func (a *accumulator) countCycle(outcome string) {
	if workflow.IsReplaying(a.ctx) {
		return
	}
	metrics.CycleTotal.WithLabelValues(outcome).Inc()
}
