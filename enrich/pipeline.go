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


package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/probeworks/threadscout/ai"
	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/source"
	"github.com/probeworks/threadscout/storage"
)

// DefaultBatchSize is the number of posts analyzed per AI request.
const DefaultBatchSize = 5

// Report summarises an enrichment run. Counters track how many posts
// survived each stage; Posts holds the fully enriched results. A run
// with per-post failures still returns a Report, never an error.
type Report struct {
	Fetched  int
	Prepared int
	Analyzed int
	Stored   int
	Posts    []*core.Post
}

// Pipeline orchestrates fetching, embedding, analysis and persistence
// of channel posts. Stages fan out on a shared worker pool; a failure
// in one post never aborts its siblings.
type Pipeline struct {
	posts       storage.PostRepository
	checkpoints storage.CheckpointRepository
	embedder    ai.Embedder
	analyzer    ai.Analyzer
	client      source.Client
	pool        *ants.Pool
	batchSize   int
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many posts are analyzed per AI request.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return errors.New("batch size must be positive")
		}
		p.batchSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new enrichment pipeline.
func NewPipeline(
	posts storage.PostRepository,
	checkpoints storage.CheckpointRepository,
	provider ai.Provider,
	client source.Client,
	opts ...Option,
) (*Pipeline, error) {
	if posts == nil {
		return nil, ErrPostRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if client == nil {
		return nil, ErrSourceClientRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		posts:       posts,
		checkpoints: checkpoints,
		embedder:    provider.Embedder(),
		analyzer:    provider.Analyzer(),
		client:      client,
		pool:        pool,
		batchSize:   DefaultBatchSize,
		logger:      slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestRecent fetches the channel's recent posts, embeds the ones not
// yet analyzed and upserts them. Returns the number of posts stored.
// Per-post failures are logged and skipped.
func (p *Pipeline) IngestRecent(ctx context.Context, channel string, limit int) (int, error) {
	if channel == "" {
		return 0, core.ErrEmptyChannel
	}

	fetched, err := p.client.FetchRecent(ctx, channel, limit)
	if err != nil {
		return 0, err
	}

	p.logger.Info("ingesting recent posts", "channel", channel, "fetched", len(fetched))

	var (
		mu     sync.Mutex
		stored int
		wg     sync.WaitGroup
	)

	for _, post := range fetched {
		post := post

		existing, err := p.posts.GetPost(ctx, post.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			p.logger.Error("failed to check stored post", "post", post.ID, "err", err)
			continue
		}
		if existing != nil && existing.Analyzed() {
			continue
		}

		wg.Add(1)
		if submitErr := p.pool.Submit(func() {
			defer wg.Done()

			vector, err := p.embedder.EmbedText(ctx, post.Content())
			if err != nil || len(vector) == 0 {
				p.logger.Warn("skipping post without embedding", "post", post.ID, "err", err)
				return
			}
			post.Vector = vector

			if err := p.posts.UpsertPost(ctx, post); err != nil {
				p.logger.Error("failed to store post", "post", post.ID, "err", err)
				return
			}

			mu.Lock()
			stored++
			mu.Unlock()
		}); submitErr != nil {
			wg.Done()
			p.logger.Error("failed to submit ingest work", "post", post.ID, "err", submitErr)
		}
	}

	wg.Wait()

	p.logger.Info("ingest complete", "channel", channel, "fetched", len(fetched), "stored", stored)
	return stored, nil
}

// preparedPost pairs a post with its fetched comments, ready for
// analysis.
type preparedPost struct {
	post     *core.Post
	comments []string
}

// AnalyzeTimeframe runs the full enrichment unit for a channel and
// timeframe: fetch, prepare, analyze in batches, persist, checkpoint.
//
// The checkpoint is updated after any fetch attempt, regardless of how
// the later stages fare. Per-post failures reduce the stage counters
// but never fail the run; only setup failures (invalid channel, invalid
// timeframe, cancelled context) return an error.
func (p *Pipeline) AnalyzeTimeframe(ctx context.Context, channel string, tf core.Timeframe, minScore int) (*Report, error) {
	if channel == "" {
		return nil, core.ErrEmptyChannel
	}
	if _, err := core.ParseTimeframe(string(tf)); err != nil {
		return nil, err
	}

	if !p.client.ValidateChannel(ctx, channel) {
		return nil, fmt.Errorf("%w: %s", ErrChannelInvalid, channel)
	}

	fetched, err := p.client.FetchByTimeframe(ctx, channel, tf)
	if err != nil {
		return nil, err
	}

	// The fetch happened; record it even if everything downstream drops
	// out.
	defer p.updateCheckpoint(ctx, channel, tf, fetched)

	report := &Report{Fetched: len(fetched)}

	candidates := make([]*core.Post, 0, len(fetched))
	for _, post := range fetched {
		if post.Score >= minScore {
			candidates = append(candidates, post)
		}
	}

	p.logger.Info("analyzing timeframe",
		"channel", channel,
		"timeframe", string(tf),
		"fetched", len(fetched),
		"candidates", len(candidates))

	prepared := p.prepare(ctx, candidates)
	report.Prepared = len(prepared)

	analyzed := p.analyze(ctx, prepared)
	report.Analyzed = len(analyzed)

	report.Posts = p.persist(ctx, analyzed)
	report.Stored = len(report.Posts)

	p.logger.Info("enrichment complete",
		"channel", channel,
		"timeframe", string(tf),
		"fetched", report.Fetched,
		"prepared", report.Prepared,
		"analyzed", report.Analyzed,
		"stored", report.Stored)

	return report, nil
}

// prepare fans posts out on the worker pool. Each post fetches its
// comments and computes its embedding concurrently; a post with no
// embedding is dropped. Posts already stored with an analysis are
// skipped before any external call.
func (p *Pipeline) prepare(ctx context.Context, posts []*core.Post) []*preparedPost {
	var (
		mu       sync.Mutex
		prepared []*preparedPost
		wg       sync.WaitGroup
	)

	for _, post := range posts {
		post := post

		existing, err := p.posts.GetPost(ctx, post.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			p.logger.Error("failed to check stored post", "post", post.ID, "err", err)
			continue
		}
		if existing != nil && existing.Analyzed() {
			p.logger.Debug("post already analyzed, skipping", "post", post.ID)
			continue
		}

		wg.Add(1)
		if submitErr := p.pool.Submit(func() {
			defer wg.Done()

			var (
				comments []string
				vector   []float32
				inner    sync.WaitGroup
			)

			inner.Add(2)
			go func() {
				defer inner.Done()
				fetched, err := p.client.FetchComments(ctx, post.ID)
				if err != nil {
					p.logger.Warn("failed to fetch comments", "post", post.ID, "err", err)
					return
				}
				comments = fetched
			}()
			go func() {
				defer inner.Done()
				embedded, err := p.embedder.EmbedText(ctx, post.Content())
				if err != nil {
					p.logger.Warn("failed to embed post", "post", post.ID, "err", err)
					return
				}
				vector = embedded
			}()
			inner.Wait()

			if len(vector) == 0 {
				p.logger.Warn("dropping post without embedding", "post", post.ID)
				return
			}
			post.Vector = vector

			mu.Lock()
			prepared = append(prepared, &preparedPost{post: post, comments: comments})
			mu.Unlock()
		}); submitErr != nil {
			wg.Done()
			p.logger.Error("failed to submit preparation work", "post", post.ID, "err", submitErr)
		}
	}

	wg.Wait()
	return prepared
}

// analyze splits prepared posts into fixed-size batches and runs one AI
// request per batch on the worker pool. Responses correlate back to
// posts strictly by index; an empty analysis drops only its own post.
func (p *Pipeline) analyze(ctx context.Context, prepared []*preparedPost) []*core.Post {
	var (
		mu       sync.Mutex
		analyzed []*core.Post
		wg       sync.WaitGroup
	)

	for start := 0; start < len(prepared); start += p.batchSize {
		end := start + p.batchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		batch := prepared[start:end]

		wg.Add(1)
		if submitErr := p.pool.Submit(func() {
			defer wg.Done()

			posts := make([]*core.Post, len(batch))
			comments := make([][]string, len(batch))
			for i, item := range batch {
				posts[i] = item.post
				comments[i] = item.comments
			}

			analyses, err := p.analyzer.AnalyzeBatch(ctx, posts, comments)
			if err != nil {
				p.logger.Error("batch analysis failed", "size", len(batch), "err", err)
				return
			}
			if len(analyses) != len(posts) {
				p.logger.Error("batch analysis result mismatch",
					"expected", len(posts),
					"received", len(analyses))
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for i, analysis := range analyses {
				if analysis == "" {
					p.logger.Warn("dropping post without analysis", "post", posts[i].ID)
					continue
				}
				posts[i].Analysis = analysis
				analyzed = append(analyzed, posts[i])
			}
		}); submitErr != nil {
			wg.Done()
			p.logger.Error("failed to submit analysis work", "size", len(batch), "err", submitErr)
		}
	}

	wg.Wait()
	return analyzed
}

// persist upserts analyzed posts concurrently. A failed upsert drops
// only its own post.
func (p *Pipeline) persist(ctx context.Context, analyzed []*core.Post) []*core.Post {
	var (
		mu     sync.Mutex
		stored []*core.Post
		wg     sync.WaitGroup
	)

	for _, post := range analyzed {
		post := post

		wg.Add(1)
		if submitErr := p.pool.Submit(func() {
			defer wg.Done()

			if err := p.posts.UpsertPost(ctx, post); err != nil {
				p.logger.Error("failed to store analyzed post", "post", post.ID, "err", err)
				return
			}

			mu.Lock()
			stored = append(stored, post)
			mu.Unlock()
		}); submitErr != nil {
			wg.Done()
			p.logger.Error("failed to submit persistence work", "post", post.ID, "err", submitErr)
		}
	}

	wg.Wait()
	return stored
}

// updateCheckpoint records that a search ran now. LastPostTime advances
// to the newest CreatedAt among the fetched posts and never moves
// backwards; with no fetched posts it advances to now.
func (p *Pipeline) updateCheckpoint(ctx context.Context, channel string, tf core.Timeframe, fetched []*core.Post) {
	now := time.Now().UTC()

	newest := now
	if len(fetched) > 0 {
		newest = fetched[0].CreatedAt
		for _, post := range fetched[1:] {
			if post.CreatedAt.After(newest) {
				newest = post.CreatedAt
			}
		}
	}

	if existing, err := p.checkpoints.GetCheckpoint(ctx, channel, tf); err == nil {
		if prev, parseErr := time.Parse(time.RFC3339, existing.LastPostTime); parseErr == nil && prev.After(newest) {
			newest = prev
		}
	}

	checkpoint := &core.Checkpoint{
		Channel:        channel,
		Timeframe:      string(tf),
		LastSearchTime: now.Format(time.RFC3339),
		LastPostTime:   newest.UTC().Format(time.RFC3339),
	}

	if err := p.checkpoints.UpsertCheckpoint(ctx, checkpoint); err != nil {
		p.logger.Error("failed to update checkpoint",
			"channel", channel,
			"timeframe", string(tf),
			"err", err)
		return
	}

	p.logger.Debug("checkpoint updated",
		"channel", channel,
		"timeframe", string(tf),
		"last_post_time", checkpoint.LastPostTime)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
