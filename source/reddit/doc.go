// Package reddit implements the source.Client interface against the
// Reddit data API using application-only OAuth.
//
// Tokens are cached and refreshed shortly before expiry. Timeframe
// searches fan a problem-keyword set out over a bounded worker pool and
// merge the results, deduplicating by post ID. All requests retry with
// exponential backoff except client errors, which fail immediately.
package reddit
