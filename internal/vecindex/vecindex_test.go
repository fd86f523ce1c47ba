package vecindex

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tome/internal/chunker"
	"tome/internal/loader"
)

// fakeEmbedder maps each text to a deterministic 4-dimensional vector so
// similarity ordering in tests is predictable: texts sharing a first word
// land close together.
type fakeEmbedder struct {
	model string
}

func (f *fakeEmbedder) Model() string { return f.model }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = f.vector(t)
	}
	return vecs, nil
}

func (f *fakeEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	return f.vector(text), nil
}

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, 4)
	for i, r := range text {
		v[i%4] += float32(r) / 1000
	}
	return v
}

func testChunks(texts ...string) []chunker.Chunk {
	docs := make([]loader.Document, len(texts))
	for i, t := range texts {
		docs[i] = loader.Document{
			Content:  t,
			Metadata: loader.Metadata{Source: "/tmp/src.txt", Filename: "src.txt", Page: i + 1},
		}
	}
	return chunker.Split(docs, chunker.Settings{Size: 1000, Overlap: 100})
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(t.TempDir(), &fakeEmbedder{model: "fake-embed"})
}

func TestBuildAndRetrieve(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()

	chunks := testChunks(
		"alpha first chunk about databases",
		"alpha second chunk about databases too",
		"omega completely different topic",
	)
	h, err := b.Build(ctx, "default", chunks)
	require.NoError(t, err)
	defer h.Close()

	n, err := h.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := h.Retrieve(ctx, "alpha first chunk about databases", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha first chunk about databases", results[0].Chunk.Text)
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	assert.Equal(t, "src.txt", results[0].Chunk.Metadata.Filename)
}

func TestBuildEmptyIndexIsQueryable(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()

	h, err := b.Build(ctx, "default", nil)
	require.NoError(t, err)
	defer h.Close()

	results, err := h.Retrieve(ctx, "anything", 4)
	require.NoError(t, err)
	assert.Empty(t, results)

	n, err := h.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadMissingIndex(t *testing.T) {
	b := newBuilder(t)
	_, err := b.Load("never-built")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestLoadAfterBuild(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()

	h, err := b.Build(ctx, "docs", testChunks("persisted content"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	h2, err := b.Load("docs")
	require.NoError(t, err)
	defer h2.Close()

	results, err := h2.Retrieve(ctx, "persisted content", 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted content", results[0].Chunk.Text)
}

func TestLoadModelMismatch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	b1 := NewBuilder(dir, &fakeEmbedder{model: "model-a"})
	h, err := b1.Build(ctx, "docs", testChunks("content"))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	// The per-model file naming normally prevents this; an index file
	// renamed by hand still gets caught by the recorded model.
	b2 := NewBuilder(dir, &fakeEmbedder{model: "model-b"})
	require.NoError(t, os.Rename(b1.Path("docs"), b2.Path("docs")))

	_, err = b2.Load("docs")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelMismatch)
}

func TestUpdateAppendsChunks(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()

	h, err := b.Build(ctx, "docs", testChunks("first document"))
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, b.Update(ctx, h, testChunks("second document")))

	n, err := h.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := h.Retrieve(ctx, "second document", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second document", results[0].Chunk.Text)
}

func TestLoadRefusesInterruptedUpdate(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()

	h, err := b.Build(ctx, "docs", testChunks("content"))
	require.NoError(t, err)
	// Simulate a crash mid-update: state is left at updating.
	require.NoError(t, h.st.setMeta(metaState, StateUpdating))
	require.NoError(t, h.Close())

	_, err = b.Load("docs")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestBuildReplacesExistingIndex(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()

	h1, err := b.Build(ctx, "docs", testChunks("old", "older", "oldest"))
	require.NoError(t, err)
	require.NoError(t, h1.Close())

	h2, err := b.Build(ctx, "docs", testChunks("fresh"))
	require.NoError(t, err)
	defer h2.Close()

	n, err := h2.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRetrieveDefaultK(t *testing.T) {
	b := newBuilder(t)
	ctx := context.Background()

	h, err := b.Build(ctx, "docs", testChunks("a", "b", "c", "d", "e", "f"))
	require.NoError(t, err)
	defer h.Close()

	results, err := h.Retrieve(ctx, "a", 0)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

type failingEmbedder struct{ fakeEmbedder }

func (f *failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service unreachable")
}

func TestBuildEmbeddingFailureLeavesNoIndex(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(dir, &failingEmbedder{fakeEmbedder{model: "fake-embed"}})

	_, err := b.Build(context.Background(), "docs", testChunks("content"))
	require.Error(t, err)

	// Nothing half-built is visible to Load.
	good := NewBuilder(dir, &fakeEmbedder{model: "fake-embed"})
	_, err = good.Load("docs")
	assert.ErrorIs(t, err, ErrIndexNotFound)
}
