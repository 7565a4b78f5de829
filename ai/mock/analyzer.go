package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/probeworks/threadscout/core"
)

// MockAnalyzer is a test double for ai.Analyzer.
// It allows custom behavior injection via function fields.
type MockAnalyzer struct {
	// AnalyzePostFunc is called by AnalyzePost if set.
	// If nil, uses default canned behavior.
	AnalyzePostFunc func(ctx context.Context, post *core.Post, comments []string) (string, error)

	// AnalyzeBatchFunc is called by AnalyzeBatch if set.
	// If nil, uses default canned behavior.
	AnalyzeBatchFunc func(ctx context.Context, posts []*core.Post, comments [][]string) ([]string, error)

	// Atomic: pipeline workers call the mock concurrently.
	callCount atomic.Int64
}

// NewMockAnalyzer creates a mock analyzer with default canned behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// AnalyzePost returns a canned analysis referencing the post title.
func (m *MockAnalyzer) AnalyzePost(ctx context.Context, post *core.Post, comments []string) (string, error) {
	m.callCount.Add(1)

	if m.AnalyzePostFunc != nil {
		return m.AnalyzePostFunc(ctx, post, comments)
	}

	return fmt.Sprintf("Market analysis of %q based on %d comments.", post.Title, len(comments)), nil
}

// AnalyzeBatch returns one canned analysis per post, order-preserving.
func (m *MockAnalyzer) AnalyzeBatch(ctx context.Context, posts []*core.Post, comments [][]string) ([]string, error) {
	m.callCount.Add(1)

	if m.AnalyzeBatchFunc != nil {
		return m.AnalyzeBatchFunc(ctx, posts, comments)
	}

	results := make([]string, len(posts))
	for i, post := range posts {
		var cs []string
		if i < len(comments) {
			cs = comments[i]
		}
		results[i] = fmt.Sprintf("Market analysis of %q based on %d comments.", post.Title, len(cs))
	}
	return results, nil
}

// CallCount returns the number of times any method was called.
func (m *MockAnalyzer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockAnalyzer) Reset() {
	m.callCount.Store(0)
	m.AnalyzePostFunc = nil
	m.AnalyzeBatchFunc = nil
}
