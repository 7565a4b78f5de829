package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is the internal 64-bit key for domain entities. Posts carry
// source-assigned string identifiers; the store keys them by a
// content-derived ID so that the same source post always maps to the
// same row.
type ID uint64

// IDFromContent generates a deterministic ID from text using BLAKE2b
// hashing. Identical content always produces the identical ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Post is a single discussion thread fetched from a content channel.
// Vector and Analysis start empty and are populated by the enrichment
// pipeline. An empty Analysis string means "not analyzed yet"; a post
// with a non-empty Analysis always carries a non-empty Vector.
type Post struct {
	ID         string // source-assigned identifier, unique per source
	Channel    string
	Title      string
	Body       string
	URL        string
	Score      int
	CreatedAt  time.Time // when the post was created at the source
	Vector     []float32 // embedding of title + body
	Analysis   string    // AI-generated market analysis
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Analyzed reports whether the post carries a non-empty analysis.
func (p *Post) Analyzed() bool {
	return p.Analysis != ""
}

// Content returns the text the post embedding is computed from.
func (p *Post) Content() string {
	return p.Title + "\n" + p.Body
}

// ScoredPost is a post returned from vector similarity search together
// with its similarity score in [0,1].
type ScoredPost struct {
	Post       *Post
	Similarity float32
}

// Checkpoint records the last search for a (channel, timeframe) pair.
// The two times are persisted as RFC3339 strings; readers must treat a
// value that fails to parse as stale rather than trust it.
type Checkpoint struct {
	Channel        string
	Timeframe      string
	LastSearchTime string
	LastPostTime   string
	UpdatedAt      time.Time
}

// DefaultChannels is the channel set searched when a query does not
// name a target channel.
var DefaultChannels = []string{
	"startups",
	"smallbusiness",
	"entrepreneur",
	"saas",
	"sideproject",
}
