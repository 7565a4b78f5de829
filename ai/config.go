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


package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// Host is the base URL for the OpenAI-compatible API.
	// Example: "https://api.openai.com/v1", or a local server URL.
	Host string

	// Token is the API key. Use "none" for local services that don't
	// require authentication.
	Token string

	// EmbeddingModel is the model identifier for text embeddings.
	// Example: "text-embedding-3-small"
	EmbeddingModel string

	// AnalysisModel is the model identifier for market analysis.
	// Example: "gpt-4o-mini"
	AnalysisModel string

	// MaxAnalysisTokens caps the completion length for a single-post
	// analysis; batch requests scale this by batch size.
	MaxAnalysisTokens int

	// Temperature for analysis completions.
	Temperature float64
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the API host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithToken sets the API key.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAnalysisModel sets the analysis model identifier.
func WithAnalysisModel(model string) ConfigOption {
	return func(c *Config) {
		c.AnalysisModel = model
	}
}

// WithMaxAnalysisTokens sets the per-post completion cap.
func WithMaxAnalysisTokens(tokens int) ConfigOption {
	return func(c *Config) {
		c.MaxAnalysisTokens = tokens
	}
}

// DefaultConfig returns a Config with defaults targeting the hosted
// OpenAI API.
func DefaultConfig() *Config {
	return &Config{
		Host:              "https://api.openai.com/v1",
		Token:             "none",
		EmbeddingModel:    "text-embedding-3-small",
		AnalysisModel:     "gpt-4o-mini",
		MaxAnalysisTokens: 1000,
		Temperature:       0.6,
	}
}

// NewConfig creates a Config with default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form. It adds the
// /v1 suffix to the host if missing, which OpenAI-compatible APIs
// (Ollama, LocalAI, vLLM, the hosted API) expect.
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/")
		c.Host = c.Host + "/v1"
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Token == "" {
		return errors.New("ai config: Token is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.AnalysisModel == "" {
		return errors.New("ai config: AnalysisModel is required")
	}
	if c.MaxAnalysisTokens <= 0 {
		return errors.New("ai config: MaxAnalysisTokens must be positive")
	}
	return nil
}
