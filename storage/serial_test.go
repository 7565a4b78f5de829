package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/threadscout/core"
)

func TestMarshalUnmarshalPost(t *testing.T) {
	now := time.Date(2025, 4, 2, 9, 30, 0, 123456000, time.UTC)

	tests := []struct {
		name string
		post *core.Post
	}{
		{
			name: "bare post",
			post: &core.Post{
				ID:        "1abcde",
				Channel:   "startups",
				Title:     "recommend software for payroll",
				CreatedAt: now,
			},
		},
		{
			name: "fully enriched post",
			post: &core.Post{
				ID:         "1fghij",
				Channel:    "smallbusiness",
				Title:      "tired of manually reconciling receipts",
				Body:       "every month this takes two full days",
				URL:        "https://example.com/r/smallbusiness/1fghij",
				Score:      128,
				CreatedAt:  now,
				Vector:     []float32{0.25, -0.5, 0.75},
				Analysis:   "strong pain point around expense reconciliation",
				InsertedAt: now.Add(time.Minute),
				UpdatedAt:  now.Add(2 * time.Minute),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalPost(tt.post)
			decoded, err := UnmarshalPost(data)
			require.NoError(t, err)

			assert.Equal(t, tt.post.ID, decoded.ID)
			assert.Equal(t, tt.post.Channel, decoded.Channel)
			assert.Equal(t, tt.post.Title, decoded.Title)
			assert.Equal(t, tt.post.Body, decoded.Body)
			assert.Equal(t, tt.post.URL, decoded.URL)
			assert.Equal(t, tt.post.Score, decoded.Score)
			assert.True(t, tt.post.CreatedAt.Equal(decoded.CreatedAt))
			assert.Equal(t, tt.post.Vector, decoded.Vector)
			assert.Equal(t, tt.post.Analysis, decoded.Analysis)
			assert.True(t, tt.post.InsertedAt.Equal(decoded.InsertedAt))
			assert.True(t, tt.post.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestMarshalUnmarshalPost_ZeroTimes(t *testing.T) {
	post := &core.Post{ID: "x", Channel: "saas", Title: "t"}

	decoded, err := UnmarshalPost(MarshalPost(post))
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.IsZero())
	assert.True(t, decoded.InsertedAt.IsZero())
	assert.True(t, decoded.UpdatedAt.IsZero())
}

func TestUnmarshalPost_Truncated(t *testing.T) {
	post := &core.Post{ID: "1abcde", Channel: "startups", Title: "title", Vector: []float32{1, 2, 3}}
	data := MarshalPost(post)

	_, err := UnmarshalPost(data[:len(data)/2])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalCheckpoint(t *testing.T) {
	cp := &core.Checkpoint{
		Channel:        "smallbusiness",
		Timeframe:      "week",
		LastSearchTime: "2025-04-02T09:30:00Z",
		LastPostTime:   "2025-04-01T18:00:00Z",
		UpdatedAt:      time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC),
	}

	decoded, err := UnmarshalCheckpoint(MarshalCheckpoint(cp))
	require.NoError(t, err)
	assert.Equal(t, cp.Channel, decoded.Channel)
	assert.Equal(t, cp.Timeframe, decoded.Timeframe)
	assert.Equal(t, cp.LastSearchTime, decoded.LastSearchTime)
	assert.Equal(t, cp.LastPostTime, decoded.LastPostTime)
	assert.True(t, cp.UpdatedAt.Equal(decoded.UpdatedAt))
}

func TestMarshalUnmarshalID(t *testing.T) {
	id := core.IDFromContent("1abcde")
	decoded, err := UnmarshalID(MarshalID(id))
	require.NoError(t, err)
	assert.Equal(t, id, decoded)
}
