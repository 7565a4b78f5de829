package storage

import (
	"context"
	"time"

	"github.com/probeworks/threadscout/core"
)

// PostRepository provides operations for managing fetched posts.
// Implementations must be thread-safe and support concurrent access.
type PostRepository interface {
	// UpsertPost inserts or replaces a post keyed by its source ID.
	// Validates the post before writing.
	UpsertPost(ctx context.Context, post *core.Post) error

	// UpdateAnalysis sets the analysis text of an existing post.
	// Returns ErrNotFound if the post doesn't exist.
	UpdateAnalysis(ctx context.Context, id string, analysis string) error

	// GetPost retrieves a post by its source ID.
	// Returns ErrNotFound if the post doesn't exist.
	GetPost(ctx context.Context, id string) (*core.Post, error)

	// QueryAnalyzedSince returns posts in the channel created at or after
	// since that carry a non-empty analysis, ordered by score descending.
	QueryAnalyzedSince(ctx context.Context, channel string, since time.Time) ([]*core.Post, error)

	// SimilaritySearch returns posts whose embedding similarity to the
	// given vector is >= minSimilarity, up to limit results, ordered by
	// similarity descending. Posts without embeddings are skipped.
	SimilaritySearch(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ScoredPost, error)

	// EachPost iterates over every stored post in key order, invoking fn
	// for each. Iteration stops on the first error from fn.
	EachPost(ctx context.Context, fn func(post *core.Post) error) error

	// Close releases repository resources.
	Close() error
}

// CheckpointRepository provides operations for per-(channel, timeframe)
// search checkpoints. At most one live checkpoint exists per key.
type CheckpointRepository interface {
	// GetCheckpoint retrieves the checkpoint for a (channel, timeframe)
	// key. Returns ErrNotFound if no search has been recorded yet.
	GetCheckpoint(ctx context.Context, channel string, timeframe core.Timeframe) (*core.Checkpoint, error)

	// UpsertCheckpoint inserts or replaces the checkpoint for its
	// (channel, timeframe) key.
	UpsertCheckpoint(ctx context.Context, checkpoint *core.Checkpoint) error

	// Close releases repository resources.
	Close() error
}
