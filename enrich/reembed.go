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
	"fmt"
	"io"
	"time"

	"github.com/probeworks/threadscout/ai"
	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/storage"
)

// ReembedConfig holds configuration for the re-embedding operation.
type ReembedConfig struct {
	// BatchSize is the number of posts embedded per request.
	BatchSize int

	// ReportInterval is how often to report progress (number of posts).
	ReportInterval int
}

// DefaultReembedConfig returns a ReembedConfig with sensible defaults.
func DefaultReembedConfig() *ReembedConfig {
	return &ReembedConfig{
		BatchSize:      100,
		ReportInterval: 100,
	}
}

// Reembedder regenerates embeddings for every stored post. Vectors in
// the store must all come from one embedding model for similarity
// scores to be comparable, so switching models requires a full pass.
type Reembedder struct {
	posts    storage.PostRepository
	embedder ai.Embedder
	config   *ReembedConfig
	progress io.Writer
}

// NewReembedder creates a re-embedder. progress is where progress
// output is written, typically os.Stderr.
func NewReembedder(posts storage.PostRepository, embedder ai.Embedder, config *ReembedConfig, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultReembedConfig()
	}
	return &Reembedder{
		posts:    posts,
		embedder: embedder,
		config:   config,
		progress: progress,
	}
}

// Run re-embeds every stored post with the configured embedder.
// A post whose embedding fails keeps its previous vector and is counted
// as skipped, so a partially failed run never degrades search.
func (r *Reembedder) Run(ctx context.Context) error {
	var all []*core.Post
	err := r.posts.EachPost(ctx, func(post *core.Post) error {
		all = append(all, post)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load posts: %w", err)
	}

	if len(all) == 0 {
		fmt.Fprintf(r.progress, "No posts found in database (0 posts)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting re-embedding of %d posts (batch size: %d)\n",
		len(all), r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(all), r.config.ReportInterval)
	tracker.Start()

	processed := 0
	skipped := 0

	for i := 0; i < len(all); i += r.config.BatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := min(i+r.config.BatchSize, len(all))
		batch := all[i:end]

		updated, batchSkipped, err := r.processBatch(ctx, batch)
		if err != nil {
			return err
		}
		skipped += batchSkipped

		processed += updated + batchSkipped
		tracker.Update(processed)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Re-embedding complete. Processed %d posts in %v (%.1f posts/sec, %d skipped)\n",
		len(all), elapsed.Round(time.Second), float64(len(all))/elapsed.Seconds(), skipped)

	return nil
}

// processBatch embeds one batch and writes back the posts whose
// embedding succeeded. An empty vector at a slot leaves that post
// untouched.
func (r *Reembedder) processBatch(ctx context.Context, batch []*core.Post) (updated, skipped int, err error) {
	texts := make([]string, len(batch))
	for i, post := range batch {
		texts[i] = post.Content()
	}

	vectors, err := r.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to embed batch: %w", err)
	}
	if len(vectors) != len(batch) {
		return 0, 0, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
	}

	for i, post := range batch {
		if len(vectors[i]) == 0 {
			skipped++
			continue
		}
		post.Vector = vectors[i]
		if err := r.posts.UpsertPost(ctx, post); err != nil {
			return updated, skipped, fmt.Errorf("failed to update post %s: %w", post.ID, err)
		}
		updated++
	}

	return updated, skipped, nil
}
