package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tome/internal/loader"
)

func open(t *testing.T) *Repository {
	t.Helper()
	r, err := Open(t.TempDir(), loader.DefaultRegistry())
	require.NoError(t, err)
	return r
}

func TestOpenInitializesEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, loader.DefaultRegistry())
	require.NoError(t, err)
	// The index file is persisted immediately even before any mutation.
	assert.FileExists(t, filepath.Join(dir, "repository_index.json"))
}

func TestAddDocument(t *testing.T) {
	r := open(t)

	entry, err := r.AddDocument([]byte("ten pages of findings"), "report.pdf", "default")
	require.NoError(t, err)

	assert.Equal(t, "report.pdf", entry.Filename)
	assert.Equal(t, "default", entry.Collection)
	assert.Equal(t, ".pdf", entry.FileType)
	assert.Equal(t, int64(len("ten pages of findings")), entry.FileSize)
	assert.Regexp(t, `^doc_1_\d{8}_\d{6}$`, entry.ID)
	assert.FileExists(t, entry.Path)

	docs := r.ListCollectionDocuments("default")
	require.Len(t, docs, 1)
	assert.Equal(t, "report.pdf", docs[0].Filename)
	require.NoError(t, r.Validate())
}

func TestAddDocumentCreatesCollectionImplicitly(t *testing.T) {
	r := open(t)
	assert.Empty(t, r.ListCollections())

	_, err := r.AddDocument([]byte("a"), "a.txt", "research")
	require.NoError(t, err)
	assert.Equal(t, []string{"research"}, r.ListCollections())
}

func TestAddDocumentDefaultCollection(t *testing.T) {
	r := open(t)
	entry, err := r.AddDocument([]byte("a"), "a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, "default", entry.Collection)
}

func TestGetDocument(t *testing.T) {
	r := open(t)
	entry, err := r.AddDocument([]byte("a"), "a.txt", "default")
	require.NoError(t, err)

	path, ok := r.GetDocument(entry.ID)
	assert.True(t, ok)
	assert.Equal(t, entry.Path, path)

	_, ok = r.GetDocument("doc_99_00000000_000000")
	assert.False(t, ok)

	// A missing backing file makes the entry unreachable.
	require.NoError(t, os.Remove(entry.Path))
	_, ok = r.GetDocument(entry.ID)
	assert.False(t, ok)
}

func TestRemoveDocument(t *testing.T) {
	r := open(t)
	entry, err := r.AddDocument([]byte("a"), "report.pdf", "default")
	require.NoError(t, err)

	ok, err := r.RemoveDocument(entry.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoFileExists(t, entry.Path)
	assert.Empty(t, r.ListCollectionDocuments("default"))
	require.NoError(t, r.Validate())

	ok, err = r.RemoveDocument(entry.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearCollectionKeepsCollectionRegistered(t *testing.T) {
	r := open(t)
	_, err := r.AddDocument([]byte("a"), "a.txt", "default")
	require.NoError(t, err)
	_, err = r.AddDocument([]byte("b"), "b.txt", "default")
	require.NoError(t, err)

	ok, err := r.ClearCollection("default")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Empty(t, r.ListCollectionDocuments("default"))
	assert.Equal(t, []string{"default"}, r.ListCollections())
	require.NoError(t, r.Validate())
}

func TestClearCollectionUnknown(t *testing.T) {
	r := open(t)
	ok, err := r.ClearCollection("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDocumentIDsNotReusedAfterRemoval(t *testing.T) {
	r := open(t)

	a, err := r.AddDocument([]byte("a"), "a.txt", "docs")
	require.NoError(t, err)
	b, err := r.AddDocument([]byte("b"), "b.txt", "docs")
	require.NoError(t, err)

	ok, err := r.RemoveDocument(a.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Adding within the same second must not mint b's ID again.
	c, err := r.AddDocument([]byte("c"), "c.txt", "docs")
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, c.ID)

	_, found := r.GetDocument(b.ID)
	assert.True(t, found)
	assert.Len(t, r.ListCollectionDocuments("docs"), 2)
	require.NoError(t, r.Validate())
}

func TestOpenSeedsIDCounterFromLegacyIndex(t *testing.T) {
	dir := t.TempDir()
	legacy := `{
    "documents": {
        "doc_2_20250101_120000": {
            "id": "doc_2_20250101_120000",
            "filename": "old.txt",
            "path": "` + filepath.Join(dir, "docs", "old.txt") + `",
            "collection": "docs",
            "added_at": "2025-01-01T12:00:00Z",
            "file_type": ".txt",
            "file_size": 1
        }
    },
    "collections": {
        "docs": {"created_at": "2025-01-01T12:00:00Z", "documents": ["doc_2_20250101_120000"]}
    },
    "last_updated": "2025-01-01T12:00:00Z"
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repository_index.json"), []byte(legacy), 0o644))

	r, err := Open(dir, loader.DefaultRegistry())
	require.NoError(t, err)

	entry, err := r.AddDocument([]byte("new"), "new.txt", "docs")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(entry.ID, "doc_3_"), "got id %s", entry.ID)
}

func TestHasCollection(t *testing.T) {
	r := open(t)
	assert.False(t, r.HasCollection("papers"))

	_, err := r.AddDocument([]byte("x"), "a.txt", "papers")
	require.NoError(t, err)
	assert.True(t, r.HasCollection("papers"))

	// Clearing empties the collection but keeps it registered.
	_, err = r.ClearCollection("papers")
	require.NoError(t, err)
	assert.True(t, r.HasCollection("papers"))
}

func TestListCollectionDocumentsUnknownCollection(t *testing.T) {
	r := open(t)
	assert.Empty(t, r.ListCollectionDocuments("missing"))
}

func TestSearchByFilename(t *testing.T) {
	r := open(t)
	_, err := r.AddDocument([]byte("a"), "Quarterly-Report.txt", "default")
	require.NoError(t, err)
	_, err = r.AddDocument([]byte("b"), "notes.md", "default")
	require.NoError(t, err)

	results := r.SearchByFilename("report")
	require.Len(t, results, 1)
	assert.Equal(t, "Quarterly-Report.txt", results[0].Filename)

	assert.Empty(t, r.SearchByFilename("zzz"))
}

func TestStats(t *testing.T) {
	r := open(t)
	_, err := r.AddDocument([]byte("12345"), "a.txt", "one")
	require.NoError(t, err)
	_, err = r.AddDocument([]byte("1234567890"), "b.txt", "two")
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, 2, stats.TotalDocuments)
	assert.Equal(t, 2, stats.TotalCollections)
	assert.Equal(t, int64(15), stats.TotalSizeBytes)
	assert.False(t, stats.LastUpdated.IsZero())
}

func TestLoadCollectionDocumentsSkipsFailures(t *testing.T) {
	r := open(t)
	_, err := r.AddDocument([]byte("readable text"), "good.txt", "default")
	require.NoError(t, err)
	// Not a real zip archive: the docx loader will fail on it.
	_, err = r.AddDocument([]byte("not a zip"), "bad.docx", "default")
	require.NoError(t, err)

	docs := r.LoadCollectionDocuments("default")
	require.Len(t, docs, 1)
	assert.Equal(t, "readable text", docs[0].Content)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	r1, err := Open(dir, loader.DefaultRegistry())
	require.NoError(t, err)
	entry, err := r1.AddDocument([]byte("keep"), "keep.txt", "archive")
	require.NoError(t, err)

	r2, err := Open(dir, loader.DefaultRegistry())
	require.NoError(t, err)
	docs := r2.ListCollectionDocuments("archive")
	require.Len(t, docs, 1)
	assert.Equal(t, entry.ID, docs[0].ID)
	require.NoError(t, r2.Validate())
}
