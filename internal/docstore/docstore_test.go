package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndList(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	hash, err := s.Add([]byte("report body"), "report.txt", "nomic-embed-text")
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	records := s.ListAll()
	require.Len(t, records, 1)
	assert.Equal(t, hash, records[0].Hash)
	assert.Equal(t, "report.txt", records[0].Filename)
	assert.Equal(t, ".txt", records[0].FileType)
	assert.Equal(t, int64(len("report body")), records[0].FileSize)
	assert.Equal(t, "nomic-embed-text", records[0].EmbeddingModel)
	assert.FileExists(t, records[0].Path)
}

func TestAddIdenticalContentDeduplicates(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	h1, err := s.Add([]byte("same bytes"), "a.txt", "m1")
	require.NoError(t, err)
	h2, err := s.Add([]byte("same bytes"), "a.txt", "m1")
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, s.ListAll(), 1)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	hash, err := s.Add([]byte("doomed"), "doomed.txt", "m1")
	require.NoError(t, err)
	rec, ok := s.Get(hash)
	require.True(t, ok)

	ok, err = s.Remove(hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoFileExists(t, rec.Path)
	assert.Empty(t, s.ListAll())
}

func TestRemoveUnknownHash(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	ok, err := s.Remove("deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveToleratesMissingFile(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	hash, err := s.Add([]byte("x"), "gone.txt", "m1")
	require.NoError(t, err)
	rec, _ := s.Get(hash)
	require.NoError(t, os.Remove(rec.Path))

	ok, err := s.Remove(hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	require.NoError(t, err)
	hash, err := s1.Add([]byte("durable"), "keep.txt", "m1")
	require.NoError(t, err)

	s2, err := Open(dir)
	require.NoError(t, err)
	rec, ok := s2.Get(hash)
	require.True(t, ok)
	assert.Equal(t, hash, rec.Hash)
	assert.Equal(t, "keep.txt", rec.Filename)
	assert.Equal(t, filepath.Join(dir, "uploads", "keep.txt"), rec.Path)
}
