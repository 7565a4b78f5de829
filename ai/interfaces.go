package ai

import (
	"context"

	"github.com/probeworks/threadscout/core"
)

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// An empty vector signals failure for that text; callers treat it as
	// a recoverable per-item condition, not an error.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings
	// in a batch. The returned slice contains embeddings in the same
	// order as the input texts; a per-item failure yields an empty
	// vector at that slot and never aborts the whole batch.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Analyzer produces natural-language market analyses of posts.
// Implementations must be thread-safe for concurrent use.
type Analyzer interface {
	// AnalyzePost analyzes a single post together with its top-level
	// comments. Returns an empty string if the analysis failed.
	AnalyzePost(ctx context.Context, post *core.Post, comments []string) (string, error)

	// AnalyzeBatch analyzes multiple posts in one request. The result is
	// order-preserving: exactly one string per input post, correlated by
	// index, with an empty string signalling a per-item failure.
	AnalyzeBatch(ctx context.Context, posts []*core.Post, comments [][]string) ([]string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages Embedder and
// Analyzer instances sharing configuration and resources.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Analyzer returns the post analysis service.
	Analyzer() Analyzer

	// Close releases resources held by the provider and its services.
	Close() error
}
