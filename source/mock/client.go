package mock

import (
	"context"
	"sync/atomic"

	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/source"
)

// MockClient is a test double for source.Client.
// It allows custom behavior injection via function fields.
type MockClient struct {
	// FetchRecentFunc is called by FetchRecent if set.
	FetchRecentFunc func(ctx context.Context, channel string, limit int) ([]*core.Post, error)

	// FetchByTimeframeFunc is called by FetchByTimeframe if set.
	FetchByTimeframeFunc func(ctx context.Context, channel string, tf core.Timeframe) ([]*core.Post, error)

	// FetchCommentsFunc is called by FetchComments if set.
	FetchCommentsFunc func(ctx context.Context, postID string) ([]string, error)

	// ValidateChannelFunc is called by ValidateChannel if set.
	// If nil, every channel validates.
	ValidateChannelFunc func(ctx context.Context, channel string) bool

	// Posts is the canned result for fetch calls when no function is set.
	Posts []*core.Post

	// Comments is the canned result for FetchComments keyed by post ID
	// when no function is set.
	Comments map[string][]string

	// Counters are atomic: pipeline workers call the mock concurrently.
	fetchCalls   atomic.Int64
	commentCalls atomic.Int64
}

var _ source.Client = (*MockClient)(nil)

// NewMockClient creates a mock client with empty canned results.
// Note: Returns concrete type to allow test assertions.
func NewMockClient() *MockClient {
	return &MockClient{Comments: make(map[string][]string)}
}

// FetchRecent returns the canned posts capped at limit.
func (m *MockClient) FetchRecent(ctx context.Context, channel string, limit int) ([]*core.Post, error) {
	m.fetchCalls.Add(1)

	if m.FetchRecentFunc != nil {
		return m.FetchRecentFunc(ctx, channel, limit)
	}

	if limit > 0 && len(m.Posts) > limit {
		return m.Posts[:limit], nil
	}
	return m.Posts, nil
}

// FetchByTimeframe returns the canned posts.
func (m *MockClient) FetchByTimeframe(ctx context.Context, channel string, tf core.Timeframe) ([]*core.Post, error) {
	m.fetchCalls.Add(1)

	if m.FetchByTimeframeFunc != nil {
		return m.FetchByTimeframeFunc(ctx, channel, tf)
	}
	return m.Posts, nil
}

// FetchComments returns the canned comments for the post ID.
func (m *MockClient) FetchComments(ctx context.Context, postID string) ([]string, error) {
	m.commentCalls.Add(1)

	if m.FetchCommentsFunc != nil {
		return m.FetchCommentsFunc(ctx, postID)
	}
	return m.Comments[postID], nil
}

// ValidateChannel validates every channel unless a custom function is set.
func (m *MockClient) ValidateChannel(ctx context.Context, channel string) bool {
	if m.ValidateChannelFunc != nil {
		return m.ValidateChannelFunc(ctx, channel)
	}
	return channel != ""
}

// FetchCallCount returns the number of post fetch calls.
func (m *MockClient) FetchCallCount() int {
	return int(m.fetchCalls.Load())
}

// CommentCallCount returns the number of comment fetch calls.
func (m *MockClient) CommentCallCount() int {
	return int(m.commentCalls.Load())
}

// Reset clears call counts, canned results and custom functions.
func (m *MockClient) Reset() {
	m.fetchCalls.Store(0)
	m.commentCalls.Store(0)
	m.Posts = nil
	m.Comments = make(map[string][]string)
	m.FetchRecentFunc = nil
	m.FetchByTimeframeFunc = nil
	m.FetchCommentsFunc = nil
	m.ValidateChannelFunc = nil
}
