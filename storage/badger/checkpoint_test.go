package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/storage"
)

func TestCheckpointRepository_UpsertAndGet(t *testing.T) {
	repo := NewCheckpointRepository(setupTestBackend(t))
	ctx := context.Background()

	cp := &core.Checkpoint{
		Channel:        "smallbusiness",
		Timeframe:      "week",
		LastSearchTime: time.Now().UTC().Format(time.RFC3339),
		LastPostTime:   time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}
	require.NoError(t, repo.UpsertCheckpoint(ctx, cp))
	assert.False(t, cp.UpdatedAt.IsZero())

	got, err := repo.GetCheckpoint(ctx, "smallbusiness", core.TimeframeWeek)
	require.NoError(t, err)
	assert.Equal(t, cp.LastSearchTime, got.LastSearchTime)
	assert.Equal(t, cp.LastPostTime, got.LastPostTime)
}

func TestCheckpointRepository_Get_NotFound(t *testing.T) {
	repo := NewCheckpointRepository(setupTestBackend(t))

	_, err := repo.GetCheckpoint(context.Background(), "startups", core.TimeframeMonth)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCheckpointRepository_Upsert_ReplacesExisting(t *testing.T) {
	repo := NewCheckpointRepository(setupTestBackend(t))
	ctx := context.Background()

	first := &core.Checkpoint{
		Channel:        "startups",
		Timeframe:      "week",
		LastSearchTime: "2025-04-01T00:00:00Z",
		LastPostTime:   "2025-03-31T00:00:00Z",
	}
	require.NoError(t, repo.UpsertCheckpoint(ctx, first))

	second := &core.Checkpoint{
		Channel:        "startups",
		Timeframe:      "week",
		LastSearchTime: "2025-04-02T00:00:00Z",
		LastPostTime:   "2025-04-01T12:00:00Z",
	}
	require.NoError(t, repo.UpsertCheckpoint(ctx, second))

	got, err := repo.GetCheckpoint(ctx, "startups", core.TimeframeWeek)
	require.NoError(t, err)
	assert.Equal(t, second.LastSearchTime, got.LastSearchTime)
}

func TestCheckpointRepository_KeysAreScoped(t *testing.T) {
	repo := NewCheckpointRepository(setupTestBackend(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertCheckpoint(ctx, &core.Checkpoint{
		Channel:        "startups",
		Timeframe:      "week",
		LastSearchTime: "2025-04-01T00:00:00Z",
		LastPostTime:   "2025-04-01T00:00:00Z",
	}))

	// Same channel, different timeframe.
	_, err := repo.GetCheckpoint(ctx, "startups", core.TimeframeMonth)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Different channel, same timeframe.
	_, err = repo.GetCheckpoint(ctx, "saas", core.TimeframeWeek)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCheckpointRepository_Upsert_RejectsInvalidTimeframe(t *testing.T) {
	repo := NewCheckpointRepository(setupTestBackend(t))

	err := repo.UpsertCheckpoint(context.Background(), &core.Checkpoint{
		Channel:   "startups",
		Timeframe: "fortnight",
	})
	assert.ErrorIs(t, err, core.ErrInvalidTimeframe)
}
