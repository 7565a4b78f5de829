package source

import (
	"context"

	"github.com/probeworks/threadscout/core"
)

// Client fetches discussion posts from a topic-partitioned content
// source. Implementations must be thread-safe for concurrent use and
// degrade to empty results when the upstream is unavailable.
type Client interface {
	// FetchRecent returns up to limit recent posts from a channel,
	// newest activity first.
	FetchRecent(ctx context.Context, channel string, limit int) ([]*core.Post, error)

	// FetchByTimeframe searches a channel for problem-signal posts
	// within the timeframe's lookback window. Results are deduplicated
	// by post ID across keyword searches.
	FetchByTimeframe(ctx context.Context, channel string, tf core.Timeframe) ([]*core.Post, error)

	// FetchComments returns the top-level comments of a post, filtered
	// to substantive length.
	FetchComments(ctx context.Context, postID string) ([]string, error)

	// ValidateChannel reports whether a channel exists and is eligible
	// for ingestion.
	ValidateChannel(ctx context.Context, channel string) bool
}
