package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	s, err := NewScheduler(opts...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func pollUntilTerminal(t *testing.T, s *Scheduler, id string) Snapshot {
	t.Helper()
	var snapshot Snapshot
	require.Eventually(t, func() bool {
		var err error
		snapshot, err = s.Poll(id)
		require.NoError(t, err)
		return snapshot.Status.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return snapshot
}

func TestSubmitAndPollCompleted(t *testing.T) {
	s := newTestScheduler(t)

	id, err := s.Submit(context.Background(), "tester", map[string]string{"channel": "startups"}, func(ctx context.Context) (string, error) {
		return "42 posts analyzed", nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snapshot := pollUntilTerminal(t, s, id)
	assert.Equal(t, StatusCompleted, snapshot.Status)
	assert.Equal(t, "42 posts analyzed", snapshot.Result)
	assert.Empty(t, snapshot.Error)
	assert.Equal(t, "tester", snapshot.Owner)
	assert.Equal(t, "startups", snapshot.Params["channel"])
	assert.False(t, snapshot.FinishedAt.IsZero())
}

func TestSubmitFailure(t *testing.T) {
	s := newTestScheduler(t)

	id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		return "", errors.New("upstream exploded")
	})
	require.NoError(t, err)

	snapshot := pollUntilTerminal(t, s, id)
	assert.Equal(t, StatusFailed, snapshot.Status)
	assert.Equal(t, "upstream exploded", snapshot.Error)
	assert.Empty(t, snapshot.Result)
}

func TestSubmitGeneratesUniqueIDs(t *testing.T) {
	s := newTestScheduler(t)

	ids := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
			return "", nil
		})
		require.NoError(t, err)
		assert.False(t, ids[id], "duplicate task id %s", id)
		ids[id] = true
	}
}

func TestCancelRunningTask(t *testing.T) {
	s := newTestScheduler(t)

	started := make(chan struct{})
	id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, s.Cancel(id))

	snapshot := pollUntilTerminal(t, s, id)
	assert.Equal(t, StatusCancelled, snapshot.Status)
}

func TestCancelledTaskNeverResurrects(t *testing.T) {
	s := newTestScheduler(t)

	started := make(chan struct{})
	release := make(chan struct{})
	id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		close(started)
		<-release
		// The function returns success even though the task was
		// cancelled mid-flight.
		return "finished anyway", nil
	})
	require.NoError(t, err)

	<-started
	require.NoError(t, s.Cancel(id))
	close(release)

	// Give the function time to return and attempt its transition.
	time.Sleep(100 * time.Millisecond)

	snapshot, err := s.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, snapshot.Status)
	assert.Empty(t, snapshot.Result)
}

func TestCancelBeforeStartSkipsExecution(t *testing.T) {
	// A single-worker pool holds the second task pending while the
	// first blocks.
	s := newTestScheduler(t, WithPoolSize(1))

	release := make(chan struct{})
	_, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		<-release
		return "", nil
	})
	require.NoError(t, err)

	executed := false
	id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		executed = true
		return "", nil
	})
	require.NoError(t, err)

	require.NoError(t, s.Cancel(id))
	close(release)

	snapshot := pollUntilTerminal(t, s, id)
	assert.Equal(t, StatusCancelled, snapshot.Status)
	time.Sleep(100 * time.Millisecond)
	assert.False(t, executed)
}

func TestCancelNotFound(t *testing.T) {
	s := newTestScheduler(t)
	assert.ErrorIs(t, s.Cancel("nope"), ErrTaskNotFound)
}

func TestCancelTerminalIsNoop(t *testing.T) {
	s := newTestScheduler(t)

	id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		return "done", nil
	})
	require.NoError(t, err)

	snapshot := pollUntilTerminal(t, s, id)
	require.Equal(t, StatusCompleted, snapshot.Status)

	require.NoError(t, s.Cancel(id))

	snapshot, err = s.Poll(id)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snapshot.Status)
	assert.Equal(t, "done", snapshot.Result)
}

func TestPollNotFound(t *testing.T) {
	s := newTestScheduler(t)
	_, err := s.Poll("nope")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestReapRemovesOldTerminalTasks(t *testing.T) {
	s := newTestScheduler(t, WithRetention(time.Hour))

	id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		return "", nil
	})
	require.NoError(t, err)
	pollUntilTerminal(t, s, id)

	// Still inside retention.
	assert.Equal(t, 0, s.Reap(time.Now()))
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, 1, s.Reap(time.Now().Add(2*time.Hour)))
	assert.Equal(t, 0, s.Len())

	_, err = s.Poll(id)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestReapKeepsRunningTasks(t *testing.T) {
	s := newTestScheduler(t, WithRetention(time.Hour))

	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	_, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "", nil
	})
	require.NoError(t, err)

	assert.Equal(t, 0, s.Reap(time.Now().Add(48*time.Hour)))
	assert.Equal(t, 1, s.Len())
}

func TestSubmitAfterClose(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	s.Close()

	_, err = s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		return "", nil
	})
	assert.ErrorIs(t, err, ErrSchedulerClosed)
}

func TestReaperSchedule(t *testing.T) {
	s := newTestScheduler(t,
		WithRetention(time.Millisecond),
		WithReaperSchedule("@every 1s"))

	id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
		return "", nil
	})
	require.NoError(t, err)
	pollUntilTerminal(t, s, id)

	require.Eventually(t, func() bool {
		return s.Len() == 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRunReleasesContextOnNaturalFinish(t *testing.T) {
	s := newTestScheduler(t)

	t.Run("completed", func(t *testing.T) {
		ctxCh := make(chan context.Context, 1)
		id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
			ctxCh <- ctx
			return "done", nil
		})
		require.NoError(t, err)

		snapshot := pollUntilTerminal(t, s, id)
		require.Equal(t, StatusCompleted, snapshot.Status)

		taskCtx := <-ctxCh
		require.Eventually(t, func() bool {
			return taskCtx.Err() != nil
		}, time.Second, 10*time.Millisecond, "task context must be released after completion")
	})

	t.Run("failed", func(t *testing.T) {
		ctxCh := make(chan context.Context, 1)
		id, err := s.Submit(context.Background(), "tester", nil, func(ctx context.Context) (string, error) {
			ctxCh <- ctx
			return "", errors.New("upstream exploded")
		})
		require.NoError(t, err)

		snapshot := pollUntilTerminal(t, s, id)
		require.Equal(t, StatusFailed, snapshot.Status)

		taskCtx := <-ctxCh
		require.Eventually(t, func() bool {
			return taskCtx.Err() != nil
		}, time.Second, 10*time.Millisecond, "task context must be released after failure")
	})
}
