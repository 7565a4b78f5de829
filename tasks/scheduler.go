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
	"errors"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
)

// DefaultRetention is how long terminal tasks are kept before the
// reaper removes them.
const DefaultRetention = 24 * time.Hour

// Fn is the work a task runs. It receives a per-task context that is
// cancelled when the task is cancelled, and returns a result string.
type Fn func(ctx context.Context) (string, error)

// Scheduler runs submitted work asynchronously on a worker pool and
// tracks task lifecycle for polling. Terminal tasks are reaped after a
// retention period, either manually via Reap or periodically when a
// reaper schedule is configured.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*task
	closed bool

	pool      *ants.Pool
	retention time.Duration
	reaper    *cron.Cron
	logger    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithPoolSize sets the worker pool size for task execution.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Scheduler) error {
		if size < 1 {
			size = 1
		}

		if s.pool != nil {
			s.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithRetention sets how long terminal tasks are kept.
// Default is DefaultRetention.
func WithRetention(retention time.Duration) Option {
	return func(s *Scheduler) error {
		if retention <= 0 {
			return errors.New("retention must be positive")
		}
		s.retention = retention
		return nil
	}
}

// WithReaperSchedule runs Reap on a cron schedule, e.g. "0 * * * *"
// for hourly. The reaper starts with the scheduler and stops on Close.
func WithReaperSchedule(schedule string) Option {
	return func(s *Scheduler) error {
		reaper := cron.New()
		if _, err := reaper.AddFunc(schedule, func() {
			removed := s.Reap(time.Now())
			if removed > 0 {
				s.logger.Info("reaped terminal tasks", "removed", removed)
			}
		}); err != nil {
			return err
		}
		s.reaper = reaper
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewScheduler creates a task scheduler.
func NewScheduler(opts ...Option) (*Scheduler, error) {
	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		tasks:     make(map[string]*task),
		pool:      pool,
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "scheduler"),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Close()
			return nil, optErr
		}
	}

	if s.reaper != nil {
		s.reaper.Start()
	}

	return s, nil
}

// Submit registers a pending task and runs fn on the worker pool
// without blocking the caller. The returned ID is derived from the
// submit time in milliseconds, adjusted for uniqueness. fn's error
// becomes the task's failure; a cancelled context resolves to the
// cancelled status. Submit never surfaces fn's own errors.
func (s *Scheduler) Submit(ctx context.Context, owner string, params map[string]string, fn Fn) (string, error) {
	if fn == nil {
		return "", errors.New("task function required")
	}

	taskCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return "", ErrSchedulerClosed
	}

	// Millisecond timestamps collide under concurrent submits; bump
	// until unused.
	millis := time.Now().UnixMilli()
	id := strconv.FormatInt(millis, 10)
	for _, exists := s.tasks[id]; exists; _, exists = s.tasks[id] {
		millis++
		id = strconv.FormatInt(millis, 10)
	}

	t := &task{
		id:        id,
		owner:     owner,
		params:    params,
		status:    StatusPending,
		createdAt: time.Now().UTC(),
		cancel:    cancel,
	}
	s.tasks[id] = t
	s.mu.Unlock()

	if err := s.pool.Submit(func() {
		s.run(taskCtx, t, fn)
	}); err != nil {
		s.mu.Lock()
		t.status = StatusFailed
		t.errText = err.Error()
		t.finishedAt = time.Now().UTC()
		s.mu.Unlock()
		cancel()
		return "", err
	}

	s.logger.Info("task submitted", "task", id, "owner", owner)
	return id, nil
}

func (s *Scheduler) run(ctx context.Context, t *task, fn Fn) {
	s.mu.Lock()
	if t.status.Terminal() {
		// Cancelled before it started; never execute.
		s.mu.Unlock()
		return
	}
	t.status = StatusProcessing
	s.mu.Unlock()

	result, err := fn(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Whichever terminal transition landed first wins; a finished fn
	// never resurrects a cancelled task.
	if t.status.Terminal() {
		return
	}

	t.finishedAt = time.Now().UTC()
	switch {
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		t.status = StatusCancelled
	case err != nil:
		t.status = StatusFailed
		t.errText = err.Error()
	default:
		t.status = StatusCompleted
		t.result = result
	}

	// Release the task context; Cancel only covers the cancelled path.
	t.cancel()

	s.logger.Info("task finished", "task", t.id, "status", string(t.status))
}

// Poll returns a snapshot of the task's current state.
func (s *Scheduler) Poll(id string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return Snapshot{}, ErrTaskNotFound
	}
	return t.snapshot(), nil
}

// Cancel cancels a task. The task's context is cancelled and its status
// transitions to cancelled immediately; if the task already reached a
// terminal status, Cancel is a no-op.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.status.Terminal() {
		return nil
	}

	t.status = StatusCancelled
	t.finishedAt = time.Now().UTC()
	t.cancel()

	s.logger.Info("task cancelled", "task", id)
	return nil
}

// Reap removes terminal tasks that finished more than the retention
// period before now. Returns the number removed.
func (s *Scheduler) Reap(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, t := range s.tasks {
		if t.status.Terminal() && now.Sub(t.finishedAt) > s.retention {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked tasks, terminal included.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close stops the reaper, cancels every non-terminal task and releases
// the worker pool. The scheduler should not be used after Close.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for _, t := range s.tasks {
		if !t.status.Terminal() {
			t.status = StatusCancelled
			t.finishedAt = time.Now().UTC()
			t.cancel()
		}
	}
	s.mu.Unlock()

	if s.reaper != nil {
		s.reaper.Stop()
	}
	if s.pool != nil {
		s.pool.Release()
	}
}
