package openai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probeworks/threadscout/core"
)

func TestSplitBatchResponse(t *testing.T) {
	text := "[POST 1]\nFirst analysis.\n[POST 2]\nSecond analysis.\n[POST 3]\nThird analysis."

	results := splitBatchResponse(text, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "First analysis.", results[0])
	assert.Equal(t, "Second analysis.", results[1])
	assert.Equal(t, "Third analysis.", results[2])
}

func TestSplitBatchResponseMissingMarker(t *testing.T) {
	// The model skipped post 2; neighbours must keep their slots.
	text := "[POST 1]\nFirst analysis.\n[POST 3]\nThird analysis."

	results := splitBatchResponse(text, 3)
	require.Len(t, results, 3)
	assert.Equal(t, "First analysis.", results[0])
	assert.Empty(t, results[1])
	assert.Equal(t, "Third analysis.", results[2])
}

func TestSplitBatchResponseAllMissing(t *testing.T) {
	results := splitBatchResponse("The model refused to follow the format.", 2)
	require.Len(t, results, 2)
	assert.Empty(t, results[0])
	assert.Empty(t, results[1])
}

func TestSplitBatchResponsePreamble(t *testing.T) {
	// Leading chatter before the first marker is discarded.
	text := "Here are the analyses you asked for:\n[POST 1]\nOnly analysis."

	results := splitBatchResponse(text, 1)
	require.Len(t, results, 1)
	assert.Equal(t, "Only analysis.", results[0])
}

func TestSplitBatchResponseEchoedSeparator(t *testing.T) {
	text := "[POST 1]\nFirst analysis.\n---\n[POST 2]\nSecond analysis."

	results := splitBatchResponse(text, 2)
	require.Len(t, results, 2)
	assert.Equal(t, "First analysis.", results[0])
	assert.Equal(t, "Second analysis.", results[1])
}

func TestRenderPost(t *testing.T) {
	post := &core.Post{
		Title: "Struggling with invoice reconciliation",
		Body:  "Our finance team spends days every month matching invoices.",
	}

	rendered := renderPost(post, []string{"Same problem here.", "We built a spreadsheet for this."})
	assert.Contains(t, rendered, "POST TITLE: Struggling with invoice reconciliation")
	assert.Contains(t, rendered, "POST CONTENT: Our finance team")
	assert.Contains(t, rendered, "Comment 1:\nSame problem here.")
	assert.Contains(t, rendered, "Comment 2:\nWe built a spreadsheet for this.")
}

func TestRenderPostNoComments(t *testing.T) {
	post := &core.Post{Title: "t", Body: "b"}

	rendered := renderPost(post, nil)
	assert.NotContains(t, rendered, "COMMENTS")
}

func TestRenderBatch(t *testing.T) {
	posts := []*core.Post{
		{Title: "first", Body: "a"},
		{Title: "second", Body: "b"},
	}
	comments := [][]string{{"c1"}, nil}

	rendered := renderBatch(posts, comments)
	assert.Contains(t, rendered, "[POST 1]")
	assert.Contains(t, rendered, "[POST 2]")
	assert.Contains(t, rendered, "\n---\n")
	assert.Less(t, strings.Index(rendered, "first"), strings.Index(rendered, "second"))
}
