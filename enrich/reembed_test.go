package enrich

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/probeworks/threadscout/ai/mock"
	"github.com/probeworks/threadscout/core"
	"github.com/probeworks/threadscout/storage/badger"
)

func setupReembed(t *testing.T) (*badger.PostRepository, *aimock.MockEmbedder) {
	t.Helper()
	backend, err := badger.OpenBackend(t.TempDir(), false)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	return badger.NewPostRepository(backend), aimock.NewMockEmbedder()
}

func storedPost(t *testing.T, posts *badger.PostRepository, id string, vector []float32) *core.Post {
	t.Helper()
	post := &core.Post{
		ID:        id,
		Channel:   "startups",
		Title:     "title " + id,
		Body:      "body " + id,
		Score:     10,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Vector:    vector,
	}
	require.NoError(t, posts.UpsertPost(context.Background(), post))
	return post
}

func TestReembedderReplacesVectors(t *testing.T) {
	posts, embedder := setupReembed(t)
	ctx := context.Background()

	old := []float32{0.5, 0.5}
	storedPost(t, posts, "a", old)
	storedPost(t, posts, "b", old)

	var out bytes.Buffer
	reembedder := NewReembedder(posts, embedder, nil, &out)
	require.NoError(t, reembedder.Run(ctx))

	for _, id := range []string{"a", "b"} {
		got, err := posts.GetPost(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, old, got.Vector, "post %s should carry a fresh vector", id)
		assert.NotEmpty(t, got.Vector)
	}
	assert.Contains(t, out.String(), "Re-embedding complete")
}

func TestReembedderKeepsVectorOnFailure(t *testing.T) {
	posts, embedder := setupReembed(t)
	ctx := context.Background()

	old := []float32{0.5, 0.5}
	storedPost(t, posts, "broken", old)
	storedPost(t, posts, "fine", old)

	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			if strings.Contains(text, "broken") {
				vectors[i] = nil
				continue
			}
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	var out bytes.Buffer
	reembedder := NewReembedder(posts, embedder, nil, &out)
	require.NoError(t, reembedder.Run(ctx))

	broken, err := posts.GetPost(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, old, broken.Vector, "failed embedding must not wipe the stored vector")

	fine, err := posts.GetPost(ctx, "fine")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, fine.Vector)

	assert.Contains(t, out.String(), "1 skipped")
}

func TestReembedderEmptyStore(t *testing.T) {
	posts, embedder := setupReembed(t)

	var out bytes.Buffer
	reembedder := NewReembedder(posts, embedder, nil, &out)
	require.NoError(t, reembedder.Run(context.Background()))

	assert.Contains(t, out.String(), "No posts found")
}

func TestReembedderBatching(t *testing.T) {
	posts, embedder := setupReembed(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		storedPost(t, posts, id, []float32{0.5, 0.5})
	}

	var batchSizes []int
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0}
		}
		return vectors, nil
	}

	var out bytes.Buffer
	config := &ReembedConfig{BatchSize: 2, ReportInterval: 1}
	reembedder := NewReembedder(posts, embedder, config, &out)
	require.NoError(t, reembedder.Run(ctx))

	assert.Len(t, batchSizes, 3)
	for _, size := range batchSizes {
		assert.LessOrEqual(t, size, 2)
	}
}

func TestProgressTracker(t *testing.T) {
	var out bytes.Buffer
	tracker := NewProgressTracker(&out, 10, 5)

	tracker.Start()
	tracker.Update(5)
	assert.Contains(t, out.String(), "5/10")

	tracker.Update(6)
	assert.NotContains(t, out.String(), "6/10", "below the report interval")

	tracker.Finish()
	assert.Contains(t, out.String(), "10/10")
	assert.Contains(t, out.String(), "100.0%")
}
