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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/probeworks/threadscout"
	"github.com/probeworks/threadscout/ai"
	"github.com/probeworks/threadscout/ai/openai"
	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/enrich"
	"github.com/probeworks/threadscout/search"
	"github.com/probeworks/threadscout/storage/badger"
	"github.com/probeworks/threadscout/tasks"
)

func main() {
	app := &cli.App{
		Name:  "threadscout",
		Usage: "Market research over discussion channels: fetch, analyze, search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Fetch and embed recent posts from a channel",
				Action: ingestCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "channel",
						Aliases:  []string{"c"},
						Usage:    "Channel to ingest",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of recent posts to fetch",
						Value: 10,
					},
				),
			},
			{
				Name:   "analyze",
				Usage:  "Run the enrichment pipeline over one or more channels",
				Action: analyzeCommand,
				Flags: append(commonFlags(),
					&cli.StringSliceFlag{
						Name:    "channel",
						Aliases: []string{"c"},
						Usage:   "Channel to analyze (repeatable; defaults to the built-in set)",
					},
					&cli.StringFlag{
						Name:    "timeframe",
						Aliases: []string{"t"},
						Usage:   "Lookback window (week, month, year)",
						Value:   "week",
					},
					&cli.IntFlag{
						Name:  "min-score",
						Usage: "Minimum post score to analyze",
						Value: 0,
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Re-fetch even when the last search is still fresh",
					},
				),
			},
			{
				Name:   "status",
				Usage:  "Show search freshness for a channel and timeframe",
				Action: statusCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "channel",
						Aliases:  []string{"c"},
						Usage:    "Channel to inspect",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "timeframe",
						Aliases: []string{"t"},
						Usage:   "Lookback window (week, month, year)",
						Value:   "week",
					},
				),
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate embeddings for all stored posts",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "ai-host",
						Usage:   "OpenAI-compatible service host URL",
						Value:   "https://api.openai.com/v1",
						EnvVars: []string{"OPENAI_HOST"},
					},
					&cli.StringFlag{
						Name:    "ai-token",
						Usage:   "API token for the AI service",
						Value:   "none",
						EnvVars: []string{"OPENAI_API_KEY"},
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of posts to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N posts",
						Value: 100,
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search stored posts by semantic similarity",
				Action: searchCommand,
				Flags: append(commonFlags(),
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Search text",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "channel",
						Aliases: []string{"c"},
						Usage:   "Restrict results to one channel",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 10,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score",
						Value: search.DefaultThreshold,
					},
					&cli.BoolFlag{
						Name:  "analyze",
						Usage: "Backfill missing analyses on the results",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to BadgerDB database directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "ai-host",
			Usage:   "OpenAI-compatible service host URL",
			Value:   "https://api.openai.com/v1",
			EnvVars: []string{"OPENAI_HOST"},
		},
		&cli.StringFlag{
			Name:    "ai-token",
			Usage:   "API token for the AI service",
			Value:   "none",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "text-embedding-3-small",
		},
		&cli.StringFlag{
			Name:  "analysis-model",
			Usage: "Chat model name for analyses",
			Value: "gpt-4o-mini",
		},
		&cli.StringFlag{
			Name:    "reddit-id",
			Usage:   "Reddit OAuth client ID",
			EnvVars: []string{"REDDIT_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:    "reddit-secret",
			Usage:   "Reddit OAuth client secret",
			EnvVars: []string{"REDDIT_CLIENT_SECRET"},
		},
	}
}

func openService(c *cli.Context) (*threadscout.Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithToken(c.String("ai-token")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithAnalysisModel(c.String("analysis-model")),
	)

	return threadscout.NewService(c.String("db"),
		threadscout.WithAIConfig(aiConfig),
		threadscout.WithRedditCredentials(c.String("reddit-id"), c.String("reddit-secret")))
}

func ingestCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	pipeline, err := svc.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	stored, err := pipeline.IngestRecent(c.Context, c.String("channel"), c.Int("limit"))
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Stored %d posts from %s\n", stored, c.String("channel"))
	return nil
}

func analyzeCommand(c *cli.Context) error {
	tf, err := core.ParseTimeframe(c.String("timeframe"))
	if err != nil {
		return err
	}

	channels := c.StringSlice("channel")
	if len(channels) == 0 {
		channels = core.DefaultChannels
	}

	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	pipeline, err := svc.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pipeline.Release()

	freshness, err := svc.NewFreshness()
	if err != nil {
		return fmt.Errorf("failed to create freshness evaluator: %w", err)
	}

	scheduler, err := svc.NewScheduler(tasks.WithReaperSchedule("@hourly"))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	defer scheduler.Close()

	minScore := c.Int("min-score")
	force := c.Bool("force")

	// One task per channel; a SIGINT cancels whatever is still running.
	ids := make([]string, 0, len(channels))
	for _, channel := range channels {
		id, err := scheduler.Submit(c.Context, "cli", map[string]string{
			"channel":   channel,
			"timeframe": string(tf),
		}, func(ctx context.Context) (string, error) {
			if !force {
				decision, err := freshness.Evaluate(ctx, channel, tf, time.Now())
				if err != nil {
					return "", err
				}
				if !decision.NeedsNewSearch {
					return fmt.Sprintf("fresh, reusing %d stored posts", len(decision.Reusable)), nil
				}
			}

			report, err := pipeline.AnalyzeTimeframe(ctx, channel, tf, minScore)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("fetched %d, stored %d", report.Fetched, report.Stored), nil
		})
		if err != nil {
			return fmt.Errorf("failed to submit task for %s: %w", channel, err)
		}
		fmt.Fprintf(os.Stderr, "Task %s submitted for %s\n", id, channel)
		ids = append(ids, id)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "Interrupted, cancelling tasks")
		for _, id := range ids {
			if err := scheduler.Cancel(id); err != nil {
				slog.Warn("failed to cancel task", "task", id, "err", err)
			}
		}
	}()

	// Poll until every task is terminal.
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}
	for len(pending) > 0 {
		time.Sleep(200 * time.Millisecond)
		for id := range pending {
			snapshot, err := scheduler.Poll(id)
			if err != nil {
				return fmt.Errorf("failed to poll task %s: %w", id, err)
			}
			if !snapshot.Status.Terminal() {
				continue
			}
			delete(pending, id)

			switch snapshot.Status {
			case tasks.StatusCompleted:
				fmt.Fprintf(os.Stderr, "Task %s (%s): %s\n", id, snapshot.Params["channel"], snapshot.Result)
			case tasks.StatusFailed:
				fmt.Fprintf(os.Stderr, "Task %s (%s) failed: %s\n", id, snapshot.Params["channel"], snapshot.Error)
			case tasks.StatusCancelled:
				fmt.Fprintf(os.Stderr, "Task %s (%s) cancelled\n", id, snapshot.Params["channel"])
			}
		}
	}

	return nil
}

func statusCommand(c *cli.Context) error {
	tf, err := core.ParseTimeframe(c.String("timeframe"))
	if err != nil {
		return err
	}

	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	freshness, err := svc.NewFreshness()
	if err != nil {
		return fmt.Errorf("failed to create freshness evaluator: %w", err)
	}

	channel := c.String("channel")
	decision, err := freshness.Evaluate(c.Context, channel, tf, time.Now())
	if err != nil {
		return fmt.Errorf("freshness evaluation failed: %w", err)
	}

	state := "fresh"
	if decision.NeedsNewSearch {
		state = "stale"
	}
	fmt.Fprintf(os.Stderr, "%s/%s: %s, %d analyzed posts in window\n",
		channel, tf, state, len(decision.Reusable))

	if checkpoint, err := svc.CheckpointRepository().GetCheckpoint(c.Context, channel, tf); err == nil {
		fmt.Fprintf(os.Stderr, "Last search: %s\nLast post:   %s\n",
			checkpoint.LastSearchTime, checkpoint.LastPostTime)
	}

	return nil
}

func reembedCommand(c *cli.Context) error {
	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	posts := badger.NewPostRepository(backend)

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithToken(c.String("ai-token")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
	)

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	config := &enrich.ReembedConfig{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
	}

	reembedder := enrich.NewReembedder(posts, embedder, config, os.Stderr)
	if err := reembedder.Run(c.Context); err != nil {
		return fmt.Errorf("re-embedding failed: %w", err)
	}

	return nil
}

func searchCommand(c *cli.Context) error {
	svc, err := openService(c)
	if err != nil {
		return fmt.Errorf("failed to open service: %w", err)
	}
	defer svc.Close()

	searcher, err := svc.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	query := search.Query{
		Text:      c.String("query"),
		Channel:   c.String("channel"),
		Threshold: float32(c.Float64("threshold")),
		Limit:     c.Int("limit"),
	}

	var results []*core.ScoredPost
	if c.Bool("analyze") {
		results, err = searcher.SearchAndAnalyze(c.Context, query)
	} else {
		results, err = searcher.Search(c.Context, query)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No results")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d. [%.3f] %s (%s, score %d)\n",
			i+1, result.Similarity, result.Post.Title, result.Post.Channel, result.Post.Score)
		if result.Post.URL != "" {
			fmt.Printf("   %s\n", result.Post.URL)
		}
		if result.Post.Analyzed() {
			fmt.Printf("   %s\n", indent(result.Post.Analysis, "   "))
		}
	}

	return nil
}

func indent(text, prefix string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "\n", "\n"+prefix)
}

// setup loads .env if present and configures the default logger.
func setup(c *cli.Context) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}

	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
