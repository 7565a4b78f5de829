package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/probeworks/threadscout/ai"
	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/source"
	"github.com/probeworks/threadscout/storage"
)

const (
	// DefaultThreshold is the minimum similarity applied when the query
	// does not set one.
	DefaultThreshold = 0.7

	// DefaultLimit is the result cap applied when the query does not
	// set one.
	DefaultLimit = 10

	// overFetchFactor widens the store scan so that channel filtering
	// and seen-id exclusion still leave enough results to fill Limit.
	overFetchFactor = 3
)

// Query describes one retrieval request. Embedding, when set, is used
// directly and Text is not embedded. SeenIDs are excluded from the
// results so a caller can page through without repeats.
type Query struct {
	Text      string
	Channel   string
	Threshold float32
	Limit     int
	Embedding []float32
	SeenIDs   []string
}

// Searcher ranks stored posts by embedding similarity to a query.
type Searcher struct {
	posts    storage.PostRepository
	embedder ai.Embedder
	analyzer ai.Analyzer
	client   source.Client
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	posts storage.PostRepository,
	provider ai.Provider,
	client source.Client,
	opts ...Option,
) (*Searcher, error) {
	if posts == nil {
		return nil, ErrPostRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if client == nil {
		return nil, ErrSourceClientRequired
	}

	s := &Searcher{
		posts:    posts,
		embedder: provider.Embedder(),
		analyzer: provider.Analyzer(),
		client:   client,
		logger:   slog.Default().With("component", "searcher"),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to Limit posts similar to the query, similarity
// descending. An empty query embedding (no Embedding supplied and the
// Text failed to embed or is empty) short-circuits to an empty result.
func (s *Searcher) Search(ctx context.Context, query Query) ([]*core.ScoredPost, error) {
	threshold := query.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	embedding := query.Embedding
	if len(embedding) == 0 && query.Text != "" {
		computed, err := s.embedder.EmbedText(ctx, query.Text)
		if err != nil {
			return nil, err
		}
		embedding = computed
	}
	if len(embedding) == 0 {
		s.logger.Debug("no query embedding, returning empty result", "text", query.Text)
		return []*core.ScoredPost{}, nil
	}

	matches, err := s.posts.SimilaritySearch(ctx, embedding, threshold, limit*overFetchFactor)
	if err != nil {
		return nil, err
	}

	channels := make(map[string]bool)
	if query.Channel != "" {
		channels[strings.ToLower(query.Channel)] = true
	} else {
		for _, channel := range core.DefaultChannels {
			channels[strings.ToLower(channel)] = true
		}
	}

	seen := make(map[string]bool, len(query.SeenIDs))
	for _, id := range query.SeenIDs {
		seen[id] = true
	}

	results := make([]*core.ScoredPost, 0, limit)
	for _, match := range matches {
		if len(results) >= limit {
			break
		}
		if !channels[strings.ToLower(match.Post.Channel)] {
			continue
		}
		if seen[match.Post.ID] {
			continue
		}
		seen[match.Post.ID] = true
		results = append(results, match)
	}

	slices.SortFunc(results, func(a, b *core.ScoredPost) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return 0
		}
	})

	s.logger.Debug("search complete",
		"matches", len(matches),
		"results", len(results),
		"threshold", threshold)

	return results, nil
}

// SearchAndAnalyze searches, then backfills the analysis of any
// returned post that lacks one: fetch its comments, analyze it and
// persist the analysis. A post whose backfill fails is returned
// unanalyzed rather than dropped.
func (s *Searcher) SearchAndAnalyze(ctx context.Context, query Query) ([]*core.ScoredPost, error) {
	results, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		post := result.Post
		if post.Analyzed() {
			continue
		}

		comments, err := s.client.FetchComments(ctx, post.ID)
		if err != nil {
			s.logger.Warn("failed to fetch comments for backfill", "post", post.ID, "err", err)
			comments = nil
		}

		analysis, err := s.analyzer.AnalyzePost(ctx, post, comments)
		if err != nil || analysis == "" {
			s.logger.Warn("analysis backfill failed", "post", post.ID, "err", err)
			continue
		}

		if err := s.posts.UpdateAnalysis(ctx, post.ID, analysis); err != nil {
			s.logger.Error("failed to persist backfilled analysis", "post", post.ID, "err", err)
			continue
		}
		post.Analysis = analysis
	}

	return results, nil
}
