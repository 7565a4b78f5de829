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


package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/panjf2000/ants/v2"

	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/source"
)

const (
	defaultAuthURL   = "https://www.reddit.com"
	defaultAPIURL    = "https://oauth.reddit.com"
	defaultPublicURL = "https://www.reddit.com"
	defaultUserAgent = "threadscout/1.0"

	defaultRecentLimit = 10
	searchPageLimit    = 100
	searchConcurrency  = 8
	minCommentLength   = 50

	tokenExpirySlack = time.Minute
)

// httpStatusError indicates a non-2xx response from the upstream API.
type httpStatusError struct {
	Status int
	URL    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.URL)
}

// Client implements source.Client against the Reddit data API.
// Application-only OAuth tokens are obtained lazily and cached until
// shortly before expiry. Safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string
	userAgent    string
	authURL      string
	apiURL       string
	publicURL    string
	logger       *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option configures a Client during construction.
type Option func(*Client) error

// WithHTTPClient overrides the HTTP client used for all requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client cannot be nil")
		}
		c.httpClient = hc
		return nil
	}
}

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if ua == "" {
			return errors.New("user agent cannot be empty")
		}
		c.userAgent = ua
		return nil
	}
}

// WithEndpoints overrides the auth, API and public base URLs.
// Used by tests to point the client at a local server.
func WithEndpoints(authURL, apiURL, publicURL string) Option {
	return func(c *Client) error {
		if authURL == "" || apiURL == "" || publicURL == "" {
			return errors.New("endpoints cannot be empty")
		}
		c.authURL = strings.TrimSuffix(authURL, "/")
		c.apiURL = strings.TrimSuffix(apiURL, "/")
		c.publicURL = strings.TrimSuffix(publicURL, "/")
		return nil
	}
}

// New creates a Reddit client with application-only OAuth credentials.
func New(clientID, clientSecret string, opts ...Option) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("reddit credentials cannot be empty")
	}

	c := &Client{
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		userAgent:    defaultUserAgent,
		authURL:      defaultAuthURL,
		apiURL:       defaultAPIURL,
		publicURL:    defaultPublicURL,
		logger:       slog.Default().With("component", "reddit-client"),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

var _ source.Client = (*Client)(nil)

// FetchRecent returns up to limit posts from the channel's hot listing.
// Upstream failures degrade to an empty result.
func (c *Client) FetchRecent(ctx context.Context, channel string, limit int) ([]*core.Post, error) {
	if channel == "" {
		return nil, core.ErrEmptyChannel
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	endpoint := fmt.Sprintf("%s/r/%s/hot?limit=%d", c.apiURL, url.PathEscape(channel), limit)

	var listing listingResponse
	if err := c.getJSON(ctx, endpoint, true, &listing); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("failed to fetch recent posts", "channel", channel, "err", err)
		return []*core.Post{}, nil
	}

	posts := make([]*core.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, c.mapPost(child.Data))
	}

	c.logger.Debug("fetched recent posts", "channel", channel, "count", len(posts))
	return posts, nil
}

// FetchByTimeframe searches the channel for problem-signal posts within
// the timeframe's lookback window. One search per keyword runs on a
// bounded worker pool; results are deduplicated by post ID. A failed
// keyword search affects only its own results.
func (c *Client) FetchByTimeframe(ctx context.Context, channel string, tf core.Timeframe) ([]*core.Post, error) {
	if channel == "" {
		return nil, core.ErrEmptyChannel
	}
	if _, err := core.ParseTimeframe(string(tf)); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(searchConcurrency)
	if err != nil {
		return nil, fmt.Errorf("create search pool: %w", err)
	}
	defer pool.Release()

	var (
		mu    sync.Mutex
		seen  = make(map[string]bool)
		posts []*core.Post
		wg    sync.WaitGroup
	)

	windowStart := tf.WindowStart(time.Now())

	for _, keyword := range problemKeywords {
		keyword := keyword
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			found, err := c.searchKeyword(ctx, channel, keyword, tf)
			if err != nil {
				c.logger.Warn("keyword search failed", "channel", channel, "keyword", keyword, "err", err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for _, post := range found {
				if seen[post.ID] || post.CreatedAt.Before(windowStart) {
					continue
				}
				seen[post.ID] = true
				posts = append(posts, post)
			}
		})
		if submitErr != nil {
			wg.Done()
			c.logger.Warn("failed to submit keyword search", "keyword", keyword, "err", submitErr)
		}
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.Info("fetched posts by timeframe",
		"channel", channel,
		"timeframe", string(tf),
		"count", len(posts))
	return posts, nil
}

func (c *Client) searchKeyword(ctx context.Context, channel, keyword string, tf core.Timeframe) ([]*core.Post, error) {
	params := url.Values{}
	params.Set("q", keyword)
	params.Set("restrict_sr", "true")
	params.Set("sort", "new")
	params.Set("limit", strconv.Itoa(searchPageLimit))
	params.Set("t", string(tf))
	params.Set("type", "link")

	endpoint := fmt.Sprintf("%s/r/%s/search?%s", c.apiURL, url.PathEscape(channel), params.Encode())

	var listing listingResponse
	if err := c.getJSON(ctx, endpoint, true, &listing); err != nil {
		return nil, err
	}

	posts := make([]*core.Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, c.mapPost(child.Data))
	}
	return posts, nil
}

// FetchComments returns the top-level comments of a post, keeping only
// comments long enough to carry signal. Upstream failures degrade to an
// empty result.
func (c *Client) FetchComments(ctx context.Context, postID string) ([]string, error) {
	if postID == "" {
		return nil, core.ErrEmptyPostID
	}

	endpoint := fmt.Sprintf("%s/comments/%s?sort=top&depth=1", c.apiURL, url.PathEscape(postID))

	// The comments endpoint returns a two-element array: the post
	// listing followed by the comment listing.
	var payload []json.RawMessage
	if err := c.getJSON(ctx, endpoint, true, &payload); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("failed to fetch comments", "post", postID, "err", err)
		return []string{}, nil
	}

	if len(payload) < 2 {
		return []string{}, nil
	}

	var listing commentListing
	if err := json.Unmarshal(payload[1], &listing); err != nil {
		c.logger.Error("failed to parse comment listing", "post", postID, "err", err)
		return []string{}, nil
	}

	comments := make([]string, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		if len(child.Data.Body) <= minCommentLength {
			continue
		}
		comments = append(comments, child.Data.Body)
	}

	c.logger.Debug("fetched comments", "post", postID, "count", len(comments))
	return comments, nil
}

// ValidateChannel reports whether the channel exists, is public and is
// not flagged adult-only. Any upstream failure counts as invalid.
func (c *Client) ValidateChannel(ctx context.Context, channel string) bool {
	if channel == "" {
		return false
	}

	endpoint := fmt.Sprintf("%s/r/%s/about.json", c.publicURL, url.PathEscape(channel))

	var about aboutResponse
	if err := c.getJSON(ctx, endpoint, false, &about); err != nil {
		c.logger.Warn("channel validation failed", "channel", channel, "err", err)
		return false
	}

	if about.Data.DisplayName == "" {
		c.logger.Warn("channel does not exist", "channel", channel)
		return false
	}
	if about.Data.Over18 {
		c.logger.Warn("channel is adult-only, skipping", "channel", channel)
		return false
	}

	return true
}

func (c *Client) mapPost(data listingPost) *core.Post {
	postURL := data.Permalink
	if postURL != "" {
		postURL = c.publicURL + postURL
	}
	return &core.Post{
		ID:        data.ID,
		Channel:   data.Subreddit,
		Title:     data.Title,
		Body:      data.SelfText,
		URL:       postURL,
		Score:     data.Score,
		CreatedAt: time.Unix(int64(data.CreatedUTC), 0).UTC(),
	}
}

// accessToken returns a cached application-only OAuth token, fetching a
// fresh one when the cached token is missing or close to expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Add(tokenExpirySlack).Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authURL+"/api/v1/access_token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &httpStatusError{Status: resp.StatusCode, URL: c.authURL}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("empty access token in response")
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	c.logger.Debug("obtained access token", "expires_in", token.ExpiresIn)

	return c.token, nil
}

// getJSON performs a GET with retries and decodes the JSON response.
// Client errors other than 429 are not retried.
func (c *Client) getJSON(ctx context.Context, endpoint string, authed bool, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
			}
			req.Header.Set("User-Agent", c.userAgent)

			if authed {
				token, err := c.accessToken(ctx)
				if err != nil {
					return fmt.Errorf("obtain token: %w", err)
				}
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				// Drain so the connection can be reused.
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
				statusErr := &httpStatusError{Status: resp.StatusCode, URL: endpoint}
				if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(statusErr)
				}
				return statusErr
			}

			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode response: %w", err))
			}
			return nil
		},
		retry.Attempts(4),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(2*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("retrying request", "attempt", n, "url", endpoint, "err", err)
		}),
	)
}
