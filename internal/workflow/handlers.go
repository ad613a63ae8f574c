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
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"newsfeed/internal/activities"
	"newsfeed/internal/newsfeed"
	"newsfeed/pkg/metrics"
)

func (a *accumulator) registerHandlers() error {
	st := a.state
	results := func() ([]newsfeed.Article, error) {
		return st.Results(), nil
	}
	if err := workflow.SetQueryHandler(a.ctx, QueryCurrentResults, results); err != nil {
		return err
	}
	if err := workflow.SetQueryHandler(a.ctx, QueryDetails, results); err != nil {
		return err
	}
	if err := workflow.SetQueryHandler(a.ctx, QueryProcessedDates, func() ([]string, error) {
		return st.ProcessedDates(), nil
	}); err != nil {
		return err
	}
	if err := workflow.SetQueryHandler(a.ctx, QueryState, func() (newsfeed.Status, error) {
		return st.Status(), nil
	}); err != nil {
		return err
	}

	return workflow.SetUpdateHandlerWithOptions(a.ctx, UpdateAppendResult,
		func(ctx workflow.Context, article newsfeed.Article) ([]newsfeed.Article, error) {
			added, err := st.Append(article.WithDefaults())
			if err != nil {
				return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeExited, err)
			}
			if added && !workflow.IsReplaying(ctx) {
				metrics.ArticlesAppended.WithLabelValues("update").Inc()
			}
			return st.Results(), nil
		},
		workflow.UpdateHandlerOptions{
			Validator: func(ctx workflow.Context, article newsfeed.Article) error {
				if err := newsfeed.ValidateDate(article.Date); err != nil {
					return temporal.NewNonRetryableApplicationError(err.Error(), activities.ErrTypeValidation, err)
				}
				if st.ExitRequested {
					return temporal.NewNonRetryableApplicationError(newsfeed.ErrExited.Error(), ErrTypeExited, nil)
				}
				return nil
			},
		},
	)
}
