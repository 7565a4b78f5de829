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


package threadscout

import (
	"errors"
	"log/slog"

	"github.com/probeworks/threadscout/ai"
	"github.com/probeworks/threadscout/ai/openai"
	"github.com/probeworks/threadscout/enrich"
	"github.com/probeworks/threadscout/search"
	"github.com/probeworks/threadscout/source"
	"github.com/probeworks/threadscout/source/reddit"
	"github.com/probeworks/threadscout/storage"
	"github.com/probeworks/threadscout/storage/badger"
	"github.com/probeworks/threadscout/tasks"
)

// Service wires the store, AI provider and content source together and
// hands out the pipeline, searcher and freshness components built on
// them.
type Service struct {
	backend     *badger.Backend
	posts       storage.PostRepository
	checkpoints storage.CheckpointRepository
	provider    ai.Provider
	client      source.Client
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig     *ai.Config
	provider     ai.Provider
	client       source.Client
	redditID     string
	redditSecret string
}

// WithAIConfig overrides the AI provider configuration.
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider injects an AI provider directly, bypassing the default
// OpenAI provider construction.
func WithAIProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithSourceClient injects a content source client directly, bypassing
// the default Reddit client construction.
func WithSourceClient(client source.Client) ServiceOption {
	return func(o *serviceOptions) {
		o.client = client
	}
}

// WithRedditCredentials sets the OAuth credentials for the default
// Reddit source client.
func WithRedditCredentials(clientID, clientSecret string) ServiceOption {
	return func(o *serviceOptions) {
		o.redditID = clientID
		o.redditSecret = clientSecret
	}
}

// NewService opens the store at filePath and builds the service.
// A source client must be provided either directly or via Reddit
// credentials.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	client := options.client
	if client == nil {
		if options.redditID == "" || options.redditSecret == "" {
			return nil, errors.New("a source client or reddit credentials are required")
		}
		redditClient, err := reddit.New(options.redditID, options.redditSecret)
		if err != nil {
			return nil, err
		}
		client = redditClient
	}

	backend, err := badger.OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}

	posts := badger.NewPostRepository(backend)
	checkpoints := badger.NewCheckpointRepository(backend)

	provider := options.provider
	if provider == nil {
		built, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
		provider = built
	}

	return &Service{
		backend:     backend,
		posts:       posts,
		checkpoints: checkpoints,
		provider:    provider,
		client:      client,
		logger:      slog.Default(),
	}, nil
}

// Close releases the AI provider and the store.
func (s *Service) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// PostRepository returns the post store.
func (s *Service) PostRepository() storage.PostRepository {
	return s.posts
}

// CheckpointRepository returns the checkpoint store.
func (s *Service) CheckpointRepository() storage.CheckpointRepository {
	return s.checkpoints
}

// Source returns the content source client.
func (s *Service) Source() source.Client {
	return s.client
}

// NewPipeline builds an enrichment pipeline on the service's
// repositories, provider and source client.
func (s *Service) NewPipeline(opts ...enrich.Option) (*enrich.Pipeline, error) {
	return enrich.NewPipeline(s.posts, s.checkpoints, s.provider, s.client, opts...)
}

// NewFreshness builds a freshness evaluator on the service's
// repositories.
func (s *Service) NewFreshness(opts ...enrich.FreshnessOption) (*enrich.Freshness, error) {
	return enrich.NewFreshness(s.posts, s.checkpoints, opts...)
}

// NewSearcher builds a searcher on the service's repositories, provider
// and source client.
func (s *Service) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.posts, s.provider, s.client, opts...)
}

// NewScheduler builds a task scheduler.
func (s *Service) NewScheduler(opts ...tasks.Option) (*tasks.Scheduler, error) {
	return tasks.NewScheduler(opts...)
}
