// Package enrich provides the enrichment pipeline that turns raw
// channel posts into analyzed, embedded records, and the freshness
// policy that decides when a channel needs re-fetching.
//
// The Pipeline type manages the enrichment workflow:
//   - Fetching posts and their top-level comments from the source
//   - Generating embeddings for post content
//   - Producing batched AI analyses correlated back by post index
//   - Persisting enriched posts and updating the search checkpoint
//
// Processing fans out on worker pools; per-post failures are isolated
// and reported in the returned Report rather than aborting the run.
//
// The Freshness type consults search checkpoints to decide whether a
// (channel, timeframe) pair was searched recently enough to reuse
// stored results. Freshness only gates re-fetching: stored analyzed
// posts are always loaded and surfaced regardless of staleness.
package enrich
