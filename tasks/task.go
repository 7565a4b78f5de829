// Copyright 2025 Probeworks
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


package tasks

import (
	"context"
	"maps"
	"time"
)

// Status is the lifecycle state of a task. Pending and processing are
// transient; completed, failed and cancelled are terminal and never
// change again.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Snapshot is a point-in-time copy of a task's state, safe to hand out
// without holding scheduler locks.
type Snapshot struct {
	ID         string
	Owner      string
	Params     map[string]string
	Status     Status
	Result     string
	Error      string
	CreatedAt  time.Time
	FinishedAt time.Time
}

// task is the scheduler-owned mutable state. All fields besides cancel
// are guarded by the scheduler mutex.
type task struct {
	id         string
	owner      string
	params     map[string]string
	status     Status
	result     string
	errText    string
	createdAt  time.Time
	finishedAt time.Time
	cancel     context.CancelFunc
}

func (t *task) snapshot() Snapshot {
	return Snapshot{
		ID:         t.id,
		Owner:      t.owner,
		Params:     maps.Clone(t.params),
		Status:     t.status,
		Result:     t.result,
		Error:      t.errText,
		CreatedAt:  t.createdAt,
		FinishedAt: t.finishedAt,
	}
}
