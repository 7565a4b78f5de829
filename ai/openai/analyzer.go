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


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/probeworks/threadscout/ai"
	"github.com/probeworks/threadscout/core"
)

// Analyzer implements ai.Analyzer using OpenAI-compatible chat APIs.
type Analyzer struct {
	client      llms.Model
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// newAnalyzer is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newAnalyzer(config *ai.Config) (*Analyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.AnalysisModel),
	)
	if err != nil {
		return nil, err
	}

	return &Analyzer{
		client:      client,
		maxTokens:   config.MaxAnalysisTokens,
		temperature: config.Temperature,
		logger:      slog.Default().With("component", "openai-analyzer"),
	}, nil
}

// NewAnalyzer creates a new post analyzer using the provided configuration.
//
// Returns ai.Analyzer interface to enforce abstraction.
func NewAnalyzer(config *ai.Config) (ai.Analyzer, error) {
	return newAnalyzer(config)
}

// AnalyzePost analyzes a single post together with its top-level comments.
// A failure is logged and surfaced as an empty string so the caller can
// isolate it to the affected post.
func (a *Analyzer) AnalyzePost(ctx context.Context, post *core.Post, comments []string) (string, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(analysisSystemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(renderPost(post, comments)),
			},
		},
	}

	response, err := a.client.GenerateContent(ctx, content,
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens))
	if err != nil {
		a.logger.Error("failed to analyze post", "post", post.ID, "err", err)
		return "", nil
	}

	if len(response.Choices) < 1 {
		a.logger.Debug("no choices returned from model", "post", post.ID)
		return "", nil
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}

// AnalyzeBatch analyzes multiple posts in a single chat completion. The
// model is instructed to introduce each analysis with a [POST n] marker;
// the response is split back by marker index so results stay correlated
// with the input order even when the model drops a post.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, posts []*core.Post, comments [][]string) ([]string, error) {
	if len(posts) == 0 {
		return []string{}, nil
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf(batchSystemPromptFormat, len(posts))),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(renderBatch(posts, comments)),
			},
		},
	}

	response, err := a.client.GenerateContent(ctx, content,
		llms.WithTemperature(a.temperature),
		llms.WithMaxTokens(a.maxTokens*len(posts)))
	if err != nil {
		a.logger.Error("failed to analyze batch", "count", len(posts), "err", err)
		return make([]string, len(posts)), nil
	}

	if len(response.Choices) < 1 {
		a.logger.Debug("no choices returned from model", "count", len(posts))
		return make([]string, len(posts)), nil
	}

	results := splitBatchResponse(response.Choices[0].Content, len(posts))

	missing := 0
	for _, r := range results {
		if r == "" {
			missing++
		}
	}
	if missing > 0 {
		a.logger.Warn("batch response missing analyses", "count", len(posts), "missing", missing)
	}

	return results, nil
}

// splitBatchResponse splits a batch completion into one analysis per post
// by walking [POST n] markers in ascending index order. A post whose
// marker is absent gets an empty string; surrounding posts are unaffected.
func splitBatchResponse(text string, n int) []string {
	results := make([]string, n)

	// Locate each marker, scanning forward so that out-of-order or
	// duplicated markers in the text cannot shuffle results.
	starts := make([]int, n)
	ends := make([]int, n)
	for i := range starts {
		starts[i] = -1
	}

	offset := 0
	for i := 0; i < n; i++ {
		marker := fmt.Sprintf("[POST %d]", i+1)
		idx := strings.Index(text[offset:], marker)
		if idx < 0 {
			continue
		}
		starts[i] = offset + idx + len(marker)
		offset = starts[i]
	}

	for i := 0; i < n; i++ {
		if starts[i] < 0 {
			continue
		}
		end := len(text)
		for j := i + 1; j < n; j++ {
			if starts[j] >= 0 {
				end = starts[j] - len(fmt.Sprintf("[POST %d]", j+1))
				break
			}
		}
		ends[i] = end
		segment := strings.TrimSpace(text[starts[i]:ends[i]])
		// Models sometimes echo the --- separators from the input.
		segment = strings.TrimSuffix(segment, "---")
		results[i] = strings.TrimSpace(segment)
	}

	return results
}
