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
	"log/slog"
	"time"

	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/storage"
)

// DefaultMaxSearchAge is how long a recorded search keeps a (channel,
// timeframe) pair fresh.
const DefaultMaxSearchAge = 24 * time.Hour

// Decision is the outcome of a freshness evaluation. Reusable is
// populated regardless of NeedsNewSearch: staleness only means the
// source should be re-fetched, never that stored results are withheld.
type Decision struct {
	NeedsNewSearch bool
	Reusable       []*core.Post
}

// Freshness decides whether a channel search is recent enough to skip
// re-fetching, based on the stored checkpoint.
type Freshness struct {
	posts       storage.PostRepository
	checkpoints storage.CheckpointRepository
	maxAge      time.Duration
	logger      *slog.Logger
}

// FreshnessOption configures a Freshness.
type FreshnessOption func(*Freshness) error

// WithMaxSearchAge overrides the freshness window.
func WithMaxSearchAge(age time.Duration) FreshnessOption {
	return func(f *Freshness) error {
		if age <= 0 {
			return errors.New("max search age must be positive")
		}
		f.maxAge = age
		return nil
	}
}

// NewFreshness creates a freshness evaluator.
func NewFreshness(posts storage.PostRepository, checkpoints storage.CheckpointRepository, opts ...FreshnessOption) (*Freshness, error) {
	if posts == nil {
		return nil, ErrPostRepositoryRequired
	}
	if checkpoints == nil {
		return nil, ErrCheckpointRepositoryRequired
	}

	f := &Freshness{
		posts:       posts,
		checkpoints: checkpoints,
		maxAge:      DefaultMaxSearchAge,
		logger:      slog.Default().With("component", "freshness"),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Evaluate reports whether the (channel, timeframe) pair needs a new
// source search and loads the reusable stored results either way.
//
// A missing checkpoint, or one whose last search time fails to parse,
// counts as stale. Reusable posts are the analyzed posts in the channel
// created within the timeframe's lookback window, score-descending.
func (f *Freshness) Evaluate(ctx context.Context, channel string, tf core.Timeframe, now time.Time) (*Decision, error) {
	if channel == "" {
		return nil, core.ErrEmptyChannel
	}
	if _, err := core.ParseTimeframe(string(tf)); err != nil {
		return nil, err
	}

	decision := &Decision{NeedsNewSearch: true}

	checkpoint, err := f.checkpoints.GetCheckpoint(ctx, channel, tf)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		f.logger.Debug("no checkpoint recorded", "channel", channel, "timeframe", string(tf))
	case err != nil:
		return nil, err
	default:
		lastSearch, parseErr := time.Parse(time.RFC3339, checkpoint.LastSearchTime)
		if parseErr != nil {
			// Fail safe: an unreadable record must trigger a re-fetch,
			// never suppress one.
			f.logger.Warn("checkpoint has malformed last search time, treating as stale",
				"channel", channel,
				"timeframe", string(tf),
				"value", checkpoint.LastSearchTime)
		} else if now.Sub(lastSearch) < f.maxAge {
			decision.NeedsNewSearch = false
		}
	}

	reusable, err := f.posts.QueryAnalyzedSince(ctx, channel, tf.WindowStart(now))
	if err != nil {
		return nil, err
	}
	decision.Reusable = reusable

	f.logger.Debug("freshness evaluated",
		"channel", channel,
		"timeframe", string(tf),
		"needs_new_search", decision.NeedsNewSearch,
		"reusable", len(reusable))

	return decision, nil
}
