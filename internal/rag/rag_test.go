package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tome/internal/chunker"
	"tome/internal/llm"
	"tome/internal/loader"
	"tome/internal/vecindex"
)

// recordingEmbedder captures the texts it is asked to embed.
type recordingEmbedder struct {
	queries []string
}

func (r *recordingEmbedder) Model() string { return "fake-embed" }

func (r *recordingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0, 0}
	}
	return vecs, nil
}

func (r *recordingEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	r.queries = append(r.queries, text)
	return []float32{1, 0, 0, 0}, nil
}

func result(text, filename string, page int) vecindex.Result {
	return vecindex.Result{
		Chunk: chunker.Chunk{
			Text:     text,
			Metadata: loader.Metadata{Filename: filename, Page: page},
		},
	}
}

func TestBuildMessagesWithContext(t *testing.T) {
	results := []vecindex.Result{
		result("rockets need fuel", "rockets.pdf", 3),
		result("orbits are ellipses", "kepler.txt", 0),
	}

	msgs := BuildMessages(results, nil, "how do rockets work?")
	require.Len(t, msgs, 4)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "rockets.pdf")
	assert.Contains(t, msgs[1].Content, "(page 3)")
	assert.Contains(t, msgs[1].Content, "rockets need fuel")
	assert.Contains(t, msgs[1].Content, "kepler.txt")
	assert.NotContains(t, msgs[1].Content, "(page 0)")
	assert.Equal(t, "assistant", msgs[2].Role)
	assert.Equal(t, llm.Message{Role: "user", Content: "how do rockets work?"}, msgs[3])
}

func TestBuildMessagesNoResults(t *testing.T) {
	msgs := BuildMessages(nil, nil, "anything?")
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "anything?", msgs[1].Content)
}

func TestRetrieveNormalizesQuestion(t *testing.T) {
	emb := &recordingEmbedder{}
	builder := vecindex.NewBuilder(t.TempDir(), emb)

	h, err := builder.Build(context.Background(), "docs", nil)
	require.NoError(t, err)
	defer h.Close()

	_, err = Retrieve(context.Background(), h, "  what’s  the   §plan? ", 2)
	require.NoError(t, err)

	require.Len(t, emb.queries, 1)
	assert.Equal(t, "what's the plan?", emb.queries[0])
}

func TestRetrieveRejectsEmptyQuestion(t *testing.T) {
	emb := &recordingEmbedder{}
	builder := vecindex.NewBuilder(t.TempDir(), emb)

	h, err := builder.Build(context.Background(), "docs", nil)
	require.NoError(t, err)
	defer h.Close()

	_, err = Retrieve(context.Background(), h, "  §§  ", 2)
	assert.Error(t, err)
	assert.Empty(t, emb.queries)
}

func TestBuildMessagesKeepsHistoryOrder(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
	}

	msgs := BuildMessages(nil, history, "followup")
	require.Len(t, msgs, 4)
	assert.Equal(t, "first question", msgs[1].Content)
	assert.Equal(t, "first answer", msgs[2].Content)
	assert.Equal(t, "followup", msgs[3].Content)
}
