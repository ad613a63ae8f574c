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

// Package workflow 新闻累积 Temporal workflow：按日推进、去重累积、通知、按需 continue-as-new
package workflow

// Workflow 注册名及外部交互的 query / update / signal 名称
const (
	WorkflowName = "NewsfeedWorkflow"

	QueryCurrentResults = "get_current_results"
	QueryDetails        = "newsfeed_details"
	QueryProcessedDates = "get_processed_dates"
	QueryState          = "get_state"

	UpdateAppendResult = "append_result"

	SignalExit      = "exit"
	SignalKeepAlive = "is_running"
)

// Workflow 失败类型
const (
	ErrTypeCycleAborted = "CycleAborted"
	ErrTypeUnknown      = "UnknownFailure"
	ErrTypeExited       = "Exited"

	unknownFailureMessage = "An Unknown Error has occured"
)
